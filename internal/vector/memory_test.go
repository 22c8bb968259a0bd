package vector

import (
	"context"
	"math"
	"path/filepath"
	"testing"
)

func newTestIndex(t *testing.T) *MemoryIndex {
	t.Helper()
	idx, err := NewMemoryIndex(3)
	if err != nil {
		t.Fatal(err)
	}
	err = idx.Upsert(context.Background(), []Item{
		{ID: "course:cs-149", Tag: "course", Vector: []float32{1, 0, 0}},
		{ID: "course:cs-146", Tag: "course", Vector: []float32{0.9, 0.1, 0}},
		{ID: "policy:drop", Tag: "policy", Vector: []float32{0, 1, 0}},
	})
	if err != nil {
		t.Fatal(err)
	}
	return idx
}

func TestMemoryIndex_Search(t *testing.T) {
	idx := newTestIndex(t)
	ctx := context.Background()

	results, err := idx.Search(ctx, []float32{1, 0, 0}, 2, "")
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != 2 || results[0].ID != "course:cs-149" {
		t.Fatalf("unexpected results %+v", results)
	}
	if results[0].Distance != 0 {
		t.Errorf("exact match distance = %v", results[0].Distance)
	}

	filtered, _ := idx.Search(ctx, []float32{1, 0, 0}, 5, "policy")
	if len(filtered) != 1 || filtered[0].ID != "policy:drop" {
		t.Errorf("filtered results %+v", filtered)
	}
}

func TestMemoryIndex_UpsertReplaces(t *testing.T) {
	idx := newTestIndex(t)
	ctx := context.Background()
	if err := idx.Upsert(ctx, []Item{{ID: "policy:drop", Tag: "policy", Vector: []float32{1, 0, 0}}}); err != nil {
		t.Fatal(err)
	}
	if idx.Size() != 3 {
		t.Errorf("Size = %d, want 3", idx.Size())
	}
	res, _ := idx.Search(ctx, []float32{1, 0, 0}, 1, "policy")
	if res[0].Distance != 0 {
		t.Errorf("vector was not replaced: %+v", res[0])
	}
}

func TestMemoryIndex_DimensionMismatch(t *testing.T) {
	idx := newTestIndex(t)
	if _, err := idx.Search(context.Background(), []float32{1, 0}, 1, ""); err == nil {
		t.Error("expected query dimension error")
	}
	if err := idx.Upsert(context.Background(), []Item{{ID: "x", Vector: []float32{1}}}); err == nil {
		t.Error("expected upsert dimension error")
	}
}

func TestMemoryIndex_Remove(t *testing.T) {
	idx := newTestIndex(t)
	ctx := context.Background()
	if err := idx.Remove(ctx, []string{"course:cs-149"}); err != nil {
		t.Fatal(err)
	}
	if idx.Size() != 2 {
		t.Errorf("Size = %d", idx.Size())
	}
	res, _ := idx.Search(ctx, []float32{1, 0, 0}, 1, "")
	if res[0].ID != "course:cs-146" {
		t.Errorf("top result = %s", res[0].ID)
	}
	// positions must be rebuilt so later upserts replace the right slot
	_ = idx.Upsert(ctx, []Item{{ID: "policy:drop", Tag: "policy", Vector: []float32{0, 0, 1}}})
	if idx.Size() != 2 {
		t.Errorf("Size after upsert = %d", idx.Size())
	}
}

func TestMemoryIndex_SaveLoad(t *testing.T) {
	idx := newTestIndex(t)
	path := filepath.Join(t.TempDir(), "vectors", "index.bin")
	if err := idx.Save(path); err != nil {
		t.Fatal(err)
	}

	loaded, _ := NewMemoryIndex(3)
	if err := loaded.Load(path); err != nil {
		t.Fatal(err)
	}
	if loaded.Size() != 3 {
		t.Fatalf("Size = %d", loaded.Size())
	}
	res, _ := loaded.Search(context.Background(), []float32{0, 1, 0}, 1, "")
	if res[0].ID != "policy:drop" || res[0].Tag != "policy" {
		t.Errorf("unexpected result %+v", res[0])
	}

	wrong, _ := NewMemoryIndex(4)
	if err := wrong.Load(path); err == nil {
		t.Error("expected dimension mismatch error")
	}
	if err := loaded.Load(filepath.Join(t.TempDir(), "missing.bin")); err != nil {
		t.Errorf("missing file should be ignored: %v", err)
	}
}

func TestSimilarity(t *testing.T) {
	if Similarity(0) != 1 {
		t.Error("zero distance should be similarity 1")
	}
	if Similarity(1) != 0.5 {
		t.Errorf("Similarity(1) = %v", Similarity(1))
	}
	if !math.IsInf(L2Distance([]float32{1}, []float32{1, 2}), 1) {
		t.Error("length mismatch should be +Inf")
	}
	if d := L2Distance([]float32{0, 3}, []float32{4, 0}); d != 5 {
		t.Errorf("L2Distance = %v, want 5", d)
	}
}
