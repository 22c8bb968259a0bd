// Package watcher re-ingests knowledge files when they change on disk.
package watcher

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

const defaultDebounce = 400 * time.Millisecond

// Ingester is the part of the knowledge indexer the watcher drives.
type Ingester interface {
	IndexFile(ctx context.Context, path string) (int, error)
	RemoveFile(ctx context.Context, path string) (int, error)
	Accepts(path string) bool
}

// Watcher watches knowledge directories recursively and re-ingests changed files
// once writes to them settle.
type Watcher struct {
	ingester Ingester
	debounce time.Duration
	logger   *zap.Logger

	mu       sync.Mutex
	roots    []string
	fsw      *fsnotify.Watcher
	ctx      context.Context
	pending  map[string]*time.Timer
	started  bool
	done     chan struct{}
	stopOnce sync.Once
}

// Option configures a Watcher.
type Option func(*Watcher)

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(w *Watcher) {
		if l != nil {
			w.logger = l
		}
	}
}

// WithDebounce sets how long a file must be quiet before it is re-ingested.
func WithDebounce(d time.Duration) Option {
	return func(w *Watcher) {
		if d > 0 {
			w.debounce = d
		}
	}
}

// New creates a watcher over roots.
func New(roots []string, ingester Ingester, opts ...Option) *Watcher {
	w := &Watcher{
		ingester: ingester,
		debounce: defaultDebounce,
		logger:   zap.NewNop(),
		pending:  make(map[string]*time.Timer),
		done:     make(chan struct{}),
	}
	for _, r := range roots {
		if abs, err := filepath.Abs(r); err == nil {
			w.roots = append(w.roots, filepath.Clean(abs))
		}
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Start begins watching. Missing roots are created. It returns once the watches are
// in place; events are handled until ctx is cancelled or Stop is called.
func (w *Watcher) Start(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.started {
		return nil
	}
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	for _, root := range w.roots {
		if err := os.MkdirAll(root, 0755); err != nil {
			_ = fsw.Close()
			return err
		}
		if err := addTree(fsw, root); err != nil {
			_ = fsw.Close()
			return err
		}
	}
	w.fsw = fsw
	w.ctx = ctx
	w.started = true
	w.logger.Info("watching knowledge directories", zap.Strings("roots", w.roots))
	go w.run(ctx, fsw)
	return nil
}

// Roots returns the watched directories.
func (w *Watcher) Roots() []string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return append([]string(nil), w.roots...)
}

func (w *Watcher) run(ctx context.Context, fsw *fsnotify.Watcher) {
	for {
		select {
		case <-ctx.Done():
			w.Stop()
			return
		case <-w.done:
			return
		case ev, ok := <-fsw.Events:
			if !ok {
				return
			}
			w.handle(ev)
		case err, ok := <-fsw.Errors:
			if !ok {
				return
			}
			w.logger.Warn("watcher error", zap.Error(err))
		}
	}
}

func (w *Watcher) handle(ev fsnotify.Event) {
	path := filepath.Clean(ev.Name)
	if hidden(path) {
		return
	}
	w.logger.Debug("watcher event", zap.String("op", ev.Op.String()), zap.String("path", path))
	switch {
	case ev.Has(fsnotify.Create) || ev.Has(fsnotify.Write):
		info, err := os.Stat(path)
		if err != nil {
			return
		}
		if info.IsDir() {
			w.addDirectory(path)
			return
		}
		if w.ingester.Accepts(path) {
			w.schedule(path)
		}
	case ev.Has(fsnotify.Remove) || ev.Has(fsnotify.Rename):
		w.cancel(path)
		w.remove(path)
	}
}

// addDirectory watches a directory that appeared under a root and ingests what it already holds.
func (w *Watcher) addDirectory(dir string) {
	w.mu.Lock()
	fsw := w.fsw
	w.mu.Unlock()
	if fsw == nil {
		return
	}
	if err := addTree(fsw, dir); err != nil {
		w.logger.Warn("failed to watch new directory", zap.String("path", dir), zap.Error(err))
	}
	_ = filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if d.IsDir() {
			if path != dir && hidden(path) {
				return filepath.SkipDir
			}
			return nil
		}
		if !hidden(path) && w.ingester.Accepts(path) {
			w.schedule(path)
		}
		return nil
	})
}

func (w *Watcher) schedule(path string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if !w.started {
		return
	}
	if t, ok := w.pending[path]; ok {
		t.Stop()
	}
	w.pending[path] = time.AfterFunc(w.debounce, func() {
		w.mu.Lock()
		delete(w.pending, path)
		ctx := w.ctx
		w.mu.Unlock()
		n, err := w.ingester.IndexFile(ctx, path)
		if err != nil {
			w.logger.Warn("failed to re-ingest file", zap.String("path", path), zap.Error(err))
			return
		}
		w.logger.Info("re-ingested file", zap.String("path", path), zap.Int("documents", n))
	})
}

func (w *Watcher) cancel(path string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if t, ok := w.pending[path]; ok {
		t.Stop()
		delete(w.pending, path)
	}
}

func (w *Watcher) remove(path string) {
	w.mu.Lock()
	ctx := w.ctx
	w.mu.Unlock()
	n, err := w.ingester.RemoveFile(ctx, path)
	if err != nil {
		w.logger.Warn("failed to remove file from knowledge base", zap.String("path", path), zap.Error(err))
		return
	}
	if n > 0 {
		w.logger.Info("removed file from knowledge base", zap.String("path", path), zap.Int("documents", n))
	}
}

// Stop stops watching and drops pending re-ingests.
func (w *Watcher) Stop() {
	w.mu.Lock()
	if !w.started {
		w.mu.Unlock()
		return
	}
	for path, t := range w.pending {
		t.Stop()
		delete(w.pending, path)
	}
	_ = w.fsw.Close()
	w.fsw = nil
	w.started = false
	w.mu.Unlock()
	w.stopOnce.Do(func() { close(w.done) })
}

func addTree(fsw *fsnotify.Watcher, root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if path != root && hidden(path) {
			return filepath.SkipDir
		}
		return fsw.Add(path)
	})
}

func hidden(path string) bool {
	base := filepath.Base(path)
	return strings.HasPrefix(base, ".") || strings.HasSuffix(base, "~")
}
