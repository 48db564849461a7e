// Package watcher follows the library folder tree with fsnotify and keeps the index in step
// with the PDFs on disk.
package watcher

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/hyperjump/tanya/internal/models"
	"go.uber.org/zap"
)

const defaultDebounce = 400 * time.Millisecond

// Handler receives debounced changes. The indexer implements it.
type Handler interface {
	IndexFile(ctx context.Context, path string) error
	RemoveFile(ctx context.Context, path string) error
	IndexDirectory(ctx context.Context, dir string) (int, error)
	RemoveTree(ctx context.Context, dir string) error
}

// Watcher watches the library root recursively.
type Watcher struct {
	root     string
	handler  Handler
	debounce time.Duration
	logger   *zap.Logger

	mu       sync.Mutex
	watcher  *fsnotify.Watcher
	ctx      context.Context
	pending  map[string]*time.Timer
	dirs     map[string]struct{}
	started  bool
	done     chan struct{}
	stopOnce sync.Once
}

// WatcherOption configures a Watcher.
type WatcherOption func(*Watcher)

// WithLogger sets a logger for debug output (directory changes, file events, etc.).
func WithLogger(l *zap.Logger) WatcherOption {
	return func(w *Watcher) {
		if l != nil {
			w.logger = l
		}
	}
}

// WithDebounce sets how long a path must be quiet before it is indexed.
func WithDebounce(d time.Duration) WatcherOption {
	return func(w *Watcher) {
		if d > 0 {
			w.debounce = d
		}
	}
}

// NewWatcher creates a watcher for root. Nothing is watched until Start.
func NewWatcher(root string, handler Handler, opts ...WatcherOption) *Watcher {
	w := &Watcher{
		root:     filepath.Clean(root),
		handler:  handler,
		debounce: defaultDebounce,
		logger:   zap.NewNop(),
		pending:  make(map[string]*time.Timer),
		dirs:     make(map[string]struct{}),
		done:     make(chan struct{}),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Start creates the root if needed and watches it and every directory below it.
// It runs until ctx is cancelled or Stop is called.
func (w *Watcher) Start(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.started {
		return nil
	}
	if err := os.MkdirAll(w.root, 0755); err != nil {
		return err
	}
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	w.watcher = fw
	w.ctx = ctx
	if err := w.addTreeLocked(w.root); err != nil {
		_ = fw.Close()
		w.watcher = nil
		return err
	}
	w.started = true
	w.logger.Debug("watcher starting", zap.String("root", w.root), zap.Int("directories", len(w.dirs)))
	go w.run(ctx, fw)
	return nil
}

// SyncExistingFiles indexes every PDF already in the library. Call it after Start.
func (w *Watcher) SyncExistingFiles(ctx context.Context) (int, error) {
	n, err := w.handler.IndexDirectory(ctx, w.root)
	w.logger.Info("library synced", zap.String("root", w.root), zap.Int("documents", n))
	return n, err
}

// Directories returns the watched directories, sorted.
func (w *Watcher) Directories() []string {
	w.mu.Lock()
	defer w.mu.Unlock()
	out := make([]string, 0, len(w.dirs))
	for d := range w.dirs {
		out = append(out, d)
	}
	sort.Strings(out)
	return out
}

// Stop stops the watcher and releases resources. Pending debounced work is dropped.
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
	_ = w.watcher.Close()
	w.started = false
	w.mu.Unlock()
	w.stopOnce.Do(func() { close(w.done) })
}

func (w *Watcher) run(ctx context.Context, fw *fsnotify.Watcher) {
	for {
		select {
		case <-ctx.Done():
			w.Stop()
			return
		case <-w.done:
			return
		case ev, ok := <-fw.Events:
			if !ok {
				return
			}
			w.handleEvent(ev)
		case err, ok := <-fw.Errors:
			if !ok {
				return
			}
			w.logger.Warn("watcher error", zap.Error(err))
		}
	}
}

func (w *Watcher) handleEvent(ev fsnotify.Event) {
	path := filepath.Clean(ev.Name)
	if !inDir(w.root, path) {
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
			w.handleNewDirectory(path)
			return
		}
		if models.IsPDFName(path) {
			w.schedule(path, func(ctx context.Context) error {
				return w.handler.IndexFile(ctx, path)
			})
		}
	case ev.Has(fsnotify.Remove) || ev.Has(fsnotify.Rename):
		w.cancel(path)
		if w.forgetTree(path) {
			w.apply("remove tree", path, func(ctx context.Context) error {
				return w.handler.RemoveTree(ctx, path)
			})
			return
		}
		if models.IsPDFName(path) {
			w.apply("remove file", path, func(ctx context.Context) error {
				return w.handler.RemoveFile(ctx, path)
			})
		}
	}
}

// handleNewDirectory watches a directory that appeared (a new Year_ or Semester_ folder,
// or a folder moved in) and indexes whatever it already holds.
func (w *Watcher) handleNewDirectory(dir string) {
	w.mu.Lock()
	if !w.started {
		w.mu.Unlock()
		return
	}
	if err := w.addTreeLocked(dir); err != nil {
		w.logger.Warn("watcher failed to add directory", zap.String("path", dir), zap.Error(err))
	}
	w.mu.Unlock()
	w.schedule(dir, func(ctx context.Context) error {
		_, err := w.handler.IndexDirectory(ctx, dir)
		return err
	})
}

func (w *Watcher) addTreeLocked(root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if _, ok := w.dirs[path]; ok {
			return nil
		}
		if err := w.watcher.Add(path); err != nil {
			return err
		}
		w.dirs[path] = struct{}{}
		w.logger.Debug("watcher added directory", zap.String("path", path))
		return nil
	})
}

// forgetTree drops dir and everything below it from the watched set. It reports whether
// dir was a watched directory.
func (w *Watcher) forgetTree(dir string) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	if _, ok := w.dirs[dir]; !ok {
		return false
	}
	for d := range w.dirs {
		if inDir(dir, d) {
			delete(w.dirs, d)
		}
	}
	for p, t := range w.pending {
		if inDir(dir, p) {
			t.Stop()
			delete(w.pending, p)
		}
	}
	return true
}

func (w *Watcher) schedule(path string, fn func(ctx context.Context) error) {
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
		w.mu.Unlock()
		w.apply("index", path, fn)
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

func (w *Watcher) apply(action, path string, fn func(ctx context.Context) error) {
	w.mu.Lock()
	ctx := w.ctx
	w.mu.Unlock()
	if ctx == nil || ctx.Err() != nil {
		return
	}
	if err := fn(ctx); err != nil {
		w.logger.Warn("watcher "+action+" failed", zap.String("path", path), zap.Error(err))
		return
	}
	w.logger.Debug("watcher "+action, zap.String("path", path))
}

// inDir reports whether path is dir or below it.
func inDir(dir, path string) bool {
	rel, err := filepath.Rel(dir, path)
	if err != nil {
		return false
	}
	return rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}
