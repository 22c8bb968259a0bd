package watcher

import (
	"context"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"testing"
	"time"
)

type fakeIngester struct {
	mu      sync.Mutex
	indexed []string
	removed []string
}

func (f *fakeIngester) IndexFile(_ context.Context, path string) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.indexed = append(f.indexed, path)
	return 1, nil
}

func (f *fakeIngester) RemoveFile(_ context.Context, path string) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.removed = append(f.removed, path)
	return 1, nil
}

func (f *fakeIngester) Accepts(path string) bool {
	ext := filepath.Ext(path)
	return ext == ".md" || ext == ".yaml"
}

func (f *fakeIngester) snapshot() (indexed, removed []string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.indexed...), append([]string(nil), f.removed...)
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(20 * time.Millisecond)
	}
	t.Fatal("condition not met before deadline")
}

func startWatcher(t *testing.T, roots ...string) (*Watcher, *fakeIngester) {
	t.Helper()
	ing := &fakeIngester{}
	w := New(roots, ing, WithDebounce(50*time.Millisecond))
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(func() {
		w.Stop()
		cancel()
	})
	if err := w.Start(ctx); err != nil {
		t.Fatal(err)
	}
	return w, ing
}

func TestWatcher_DebouncedReingest(t *testing.T) {
	dir := t.TempDir()
	_, ing := startWatcher(t, dir)

	path := filepath.Join(dir, "drop-policy.md")
	for i := 0; i < 3; i++ {
		if err := os.WriteFile(path, []byte(strings.Repeat("x", i+1)), 0644); err != nil {
			t.Fatal(err)
		}
	}
	if err := os.WriteFile(filepath.Join(dir, "notes.bin"), []byte("x"), 0644); err != nil {
		t.Fatal(err)
	}

	waitFor(t, func() bool {
		indexed, _ := ing.snapshot()
		return len(indexed) > 0
	})
	time.Sleep(150 * time.Millisecond)
	indexed, _ := ing.snapshot()
	if len(indexed) > 2 {
		t.Errorf("writes were not debounced: %v", indexed)
	}
	for _, p := range indexed {
		if p != path {
			t.Errorf("unexpected re-ingest of %s", p)
		}
	}
}

func TestWatcher_Remove(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "courses.yaml")
	if err := os.WriteFile(path, []byte("courses: []"), 0644); err != nil {
		t.Fatal(err)
	}
	_, ing := startWatcher(t, dir)

	if err := os.Remove(path); err != nil {
		t.Fatal(err)
	}
	waitFor(t, func() bool {
		_, removed := ing.snapshot()
		return len(removed) == 1 && removed[0] == path
	})
}

func TestWatcher_NewDirectory(t *testing.T) {
	dir := t.TempDir()
	_, ing := startWatcher(t, dir)

	sub := filepath.Join(dir, "fall-2026")
	if err := os.Mkdir(sub, 0755); err != nil {
		t.Fatal(err)
	}
	// written before the new directory is necessarily watched; picked up by the walk on add
	early := filepath.Join(sub, "calendar.md")
	if err := os.WriteFile(early, []byte("# Calendar"), 0644); err != nil {
		t.Fatal(err)
	}
	// give the watch time to land, then write once and let the debounce settle
	time.Sleep(200 * time.Millisecond)
	later := filepath.Join(sub, "deadlines.yaml")
	if err := os.WriteFile(later, []byte("deadlines: []"), 0644); err != nil {
		t.Fatal(err)
	}

	waitFor(t, func() bool {
		indexed, _ := ing.snapshot()
		return slices.Contains(indexed, early) && slices.Contains(indexed, later)
	})
}

func TestWatcher_CreatesMissingRoot(t *testing.T) {
	root := filepath.Join(t.TempDir(), "knowledge", "policies")
	w, _ := startWatcher(t, root)
	if _, err := os.Stat(root); err != nil {
		t.Errorf("root should exist after Start: %v", err)
	}
	if got := w.Roots(); len(got) != 1 || got[0] != root {
		t.Errorf("Roots() = %v", got)
	}
}

func TestHidden(t *testing.T) {
	tests := map[string]bool{
		"/k/policy.md":      false,
		"/k/.policy.md.swp": true,
		"/k/policy.md~":     true,
		"/k/.git":           true,
	}
	for path, want := range tests {
		if got := hidden(path); got != want {
			t.Errorf("hidden(%q) = %v, want %v", path, got, want)
		}
	}
}
