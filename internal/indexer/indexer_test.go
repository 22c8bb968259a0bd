package indexer

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/akumar23/HAL-AI-AdvisorBot/internal/embedding"
	"github.com/akumar23/HAL-AI-AdvisorBot/internal/fileid"
	"github.com/akumar23/HAL-AI-AdvisorBot/internal/keyword"
	"github.com/akumar23/HAL-AI-AdvisorBot/internal/models"
	"github.com/akumar23/HAL-AI-AdvisorBot/internal/storage"
	"github.com/akumar23/HAL-AI-AdvisorBot/internal/vector"
)

const seedYAML = `
courses:
  - code: CS 149
    name: Operating Systems
    prerequisites: CS 146 with a grade of C- or better
  - code: CS 146
    name: Data Structures and Algorithms
advisors:
  - name: Christine Watson
    last_name_start: A
    last_name_end: L
    booking_url: https://example.edu/book
policies:
  - category: enrollment
    question: How do I drop a class?
    answer: Drop through MySJSU before the drop deadline.
deadlines:
  - semester: Spring 2025
    deadline_type: Last day to drop
    date: 2025-02-10
    description: Last day to drop without a W
`

type testEnv struct {
	idx      *Indexer
	store    *storage.SQLiteStorage
	vectors  *vector.MemoryIndex
	keywords *keyword.BleveIndex
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	store, err := storage.NewSQLiteStorage(":memory:")
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = store.Close() })
	vecs, err := vector.NewMemoryIndex(64)
	if err != nil {
		t.Fatal(err)
	}
	kw, err := keyword.NewBleveIndex("")
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = kw.Close() })
	idx := New(store, embedding.NewHashEmbedder(64), vecs, kw, WithChunking(20, 5))
	return &testEnv{idx: idx, store: store, vectors: vecs, keywords: kw}
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatal(err)
	}
}

func TestIndexFile_Seed(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "knowledge.yaml")
	writeFile(t, path, seedYAML)

	n, err := env.idx.IndexFile(ctx, path)
	if err != nil {
		t.Fatal(err)
	}
	if n != 5 {
		t.Fatalf("indexed %d documents, want 5", n)
	}

	course, err := env.store.GetDocument(ctx, "course:cs-149")
	if err != nil {
		t.Fatal(err)
	}
	if course.Content != "Course: CS 149 - Operating Systems\nPrerequisites: CS 146 with a grade of C- or better" {
		t.Errorf("course content = %q", course.Content)
	}
	advisor, err := env.store.GetDocument(ctx, "advisor:christine-watson")
	if err != nil {
		t.Fatal(err)
	}
	if advisor.Metadata["last_name_range"] != "A-L" {
		t.Errorf("advisor metadata = %v", advisor.Metadata)
	}
	deadline, err := env.store.GetDocument(ctx, "deadline:spring-2025-last-day-to-drop")
	if err != nil {
		t.Fatal(err)
	}
	if deadline.Metadata["date"] != "2025-02-10" {
		t.Errorf("deadline metadata = %v", deadline.Metadata)
	}

	if env.vectors.Size() != 5 {
		t.Errorf("vector size = %d", env.vectors.Size())
	}
	if n, _ := env.keywords.DocCount(); n != 5 {
		t.Errorf("keyword count = %d", n)
	}

	again, err := env.idx.IndexFile(ctx, path)
	if err != nil || again != 0 {
		t.Errorf("unchanged file re-indexed: %d, %v", again, err)
	}
}

func TestIndexFile_ChunkedPolicy(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "probation_policy.txt")
	var buf bytes.Buffer
	for i := 0; i < 10; i++ {
		buf.WriteString("Students on academic probation must meet with an advisor each semester. ")
	}
	writeFile(t, path, buf.String())

	n, err := env.idx.IndexFile(ctx, path)
	if err != nil {
		t.Fatal(err)
	}
	if n < 2 {
		t.Fatalf("expected several chunks, got %d", n)
	}
	first, err := env.store.GetDocument(ctx, fileid.ChunkID(path, 0))
	if err != nil {
		t.Fatal(err)
	}
	if first.SourceType != models.SourcePolicy || first.Title != "probation policy (part 1)" || first.Origin != path {
		t.Errorf("first chunk = %+v", first)
	}

	// shrink the file; stale chunks must go
	writeFile(t, path, "Probation is removed once the GPA is back above 2.0.")
	future := time.Now().Add(time.Hour)
	_ = os.Chtimes(path, future, future)
	n, err = env.idx.IndexFile(ctx, path)
	if err != nil || n != 1 {
		t.Fatalf("re-index = %d, %v", n, err)
	}
	ids, _ := env.store.DocumentIDsByOrigin(ctx, path)
	if len(ids) != 1 {
		t.Errorf("stale chunks left: %v", ids)
	}
	if env.vectors.Size() != 1 {
		t.Errorf("vector size = %d", env.vectors.Size())
	}

	removed, err := env.idx.RemoveFile(ctx, path)
	if err != nil || removed != 1 {
		t.Errorf("RemoveFile = %d, %v", removed, err)
	}
	if env.vectors.Size() != 0 {
		t.Errorf("vector size after remove = %d", env.vectors.Size())
	}
}

func TestIndexFile_CourseCatalog(t *testing.T) {
	env := newTestEnv(t)
	f := excelize.NewFile()
	_ = f.SetSheetRow("Sheet1", "A1", &[]interface{}{"Course Code", "Title", "Prerequisites", "Units"})
	_ = f.SetSheetRow("Sheet1", "A2", &[]interface{}{"cmpe 131", "Software Engineering I", "CMPE 50", "3"})
	_ = f.SetSheetRow("Sheet1", "A3", &[]interface{}{"", "no code", "", ""})
	path := filepath.Join(t.TempDir(), "catalog.xlsx")
	if err := f.SaveAs(path); err != nil {
		t.Fatal(err)
	}
	_ = f.Close()

	n, err := env.idx.IndexFile(context.Background(), path)
	if err != nil {
		t.Fatal(err)
	}
	if n != 1 {
		t.Fatalf("indexed %d, want 1", n)
	}
	doc, err := env.store.GetDocument(context.Background(), "course:cmpe-131")
	if err != nil {
		t.Fatal(err)
	}
	if doc.Content != "Course: CMPE 131 - Software Engineering I\nPrerequisites: CMPE 50" {
		t.Errorf("content = %q", doc.Content)
	}
}

func TestIndexFile_Unsupported(t *testing.T) {
	env := newTestEnv(t)
	path := filepath.Join(t.TempDir(), "slides.pptx")
	writeFile(t, path, "x")
	if _, err := env.idx.IndexFile(context.Background(), path); !errors.Is(err, ErrUnsupported) {
		t.Errorf("err = %v, want ErrUnsupported", err)
	}
}

func TestIndexDirectory(t *testing.T) {
	env := newTestEnv(t)
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "knowledge.yml"), seedYAML)
	writeFile(t, filepath.Join(dir, "notes.md"), "Graduation requires a completed major form.")
	writeFile(t, filepath.Join(dir, "ignored.bin"), "\x00\x01")
	writeFile(t, filepath.Join(dir, ".hidden.txt"), "secret")
	if err := os.Mkdir(filepath.Join(dir, ".git"), 0755); err != nil {
		t.Fatal(err)
	}
	writeFile(t, filepath.Join(dir, ".git", "HEAD.txt"), "ref")

	n, err := env.idx.IndexDirectory(context.Background(), dir)
	if err != nil {
		t.Fatal(err)
	}
	if n != 6 {
		t.Errorf("indexed %d documents, want 6", n)
	}
	if _, err := env.idx.IndexDirectory(context.Background(), filepath.Join(dir, "notes.md")); err == nil {
		t.Error("expected error for non-directory")
	}
}

func TestIndexDocumentAndRebuild(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	doc, err := env.idx.IndexDocument(ctx, &models.DocumentInput{Content: "Tutoring is free at the library."})
	if err != nil {
		t.Fatal(err)
	}
	if doc.ID == "" || doc.SourceType != models.SourcePolicy {
		t.Errorf("defaults not applied: %+v", doc)
	}
	if _, err := env.idx.IndexDocument(ctx, &models.DocumentInput{Content: " "}); err == nil {
		t.Error("expected validation error")
	}

	fresh, _ := vector.NewMemoryIndex(64)
	kw, _ := keyword.NewBleveIndex("")
	defer kw.Close()
	rebuilt := New(env.store, embedding.NewHashEmbedder(64), fresh, kw)
	n, err := rebuilt.Rebuild(ctx)
	if err != nil || n != 1 {
		t.Fatalf("Rebuild = %d, %v", n, err)
	}
	if fresh.Size() != 1 {
		t.Errorf("fresh index size = %d", fresh.Size())
	}
}
