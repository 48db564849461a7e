// Package indexer keeps the spelling dictionary and query caches in step with the PDFs in the library.
package indexer

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/hyperjump/tanya/internal/extract"
	"github.com/hyperjump/tanya/internal/fileid"
	"github.com/hyperjump/tanya/internal/models"
	"go.uber.org/zap"
)

// DocumentIndex stores document text under a stable id.
type DocumentIndex interface {
	IndexDocument(id, text string) error
	DeleteDocument(id string) error
}

// Invalidator drops anything derived from the file at path.
type Invalidator interface {
	Invalidate(path string)
}

// Refresher reloads state built from the DocumentIndex.
type Refresher interface {
	RefreshCache() error
}

type fileStamp struct {
	size  int64
	mtime time.Time
}

// Indexer extracts text from library PDFs into a DocumentIndex.
type Indexer struct {
	extractor    extract.Extractor
	index        DocumentIndex
	invalidators []Invalidator
	refresher    Refresher
	logger       *zap.Logger

	mu      sync.Mutex
	indexed map[string]fileStamp
}

// IndexerOption configures an Indexer.
type IndexerOption func(*Indexer)

// WithLogger sets a logger for debug output (file indexed, document deleted, etc.).
func WithLogger(l *zap.Logger) IndexerOption {
	return func(idx *Indexer) {
		if l != nil {
			idx.logger = l
		}
	}
}

// WithInvalidator registers a cache to be invalidated whenever a file changes or is removed.
func WithInvalidator(inv Invalidator) IndexerOption {
	return func(idx *Indexer) {
		if inv != nil {
			idx.invalidators = append(idx.invalidators, inv)
		}
	}
}

// WithRefresher registers state to reload after the index changes.
func WithRefresher(r Refresher) IndexerOption {
	return func(idx *Indexer) { idx.refresher = r }
}

// NewIndexer creates an indexer.
func NewIndexer(extractor extract.Extractor, index DocumentIndex, opts ...IndexerOption) *Indexer {
	idx := &Indexer{
		extractor: extractor,
		index:     index,
		logger:    zap.NewNop(),
		indexed:   make(map[string]fileStamp),
	}
	for _, opt := range opts {
		opt(idx)
	}
	return idx
}

// IndexFile (re)indexes the PDF at path. Unchanged files (same size and mtime as the last
// indexed version) are skipped.
func (idx *Indexer) IndexFile(ctx context.Context, path string) error {
	changed, err := idx.indexFile(ctx, path)
	if err != nil {
		return err
	}
	if changed {
		idx.refresh()
	}
	return nil
}

func (idx *Indexer) indexFile(ctx context.Context, path string) (bool, error) {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return false, fmt.Errorf("absolute path: %w", err)
	}
	if !models.IsPDFName(absPath) {
		return false, fmt.Errorf("not a PDF: %s", absPath)
	}
	info, err := os.Stat(absPath)
	if err != nil {
		return false, fmt.Errorf("stat file: %w", err)
	}
	if !info.Mode().IsRegular() {
		return false, fmt.Errorf("not a regular file: %s", absPath)
	}
	stamp := fileStamp{size: info.Size(), mtime: info.ModTime()}

	idx.mu.Lock()
	prev, seen := idx.indexed[absPath]
	idx.mu.Unlock()
	if seen && prev.size == stamp.size && prev.mtime.Equal(stamp.mtime) {
		idx.logger.Debug("indexer skipping unchanged file", zap.String("path", absPath))
		return false, nil
	}

	idx.invalidate(absPath)
	docID := fileid.FileDocID(absPath)
	text, err := idx.extractor.Extract(ctx, absPath)
	if err != nil {
		// Keep the dictionary free of stale text from a previous version.
		_ = idx.index.DeleteDocument(docID)
		idx.forget(absPath)
		return true, fmt.Errorf("extract content: %w", err)
	}
	if err := idx.index.IndexDocument(docID, text.Content); err != nil {
		return false, err
	}

	idx.mu.Lock()
	idx.indexed[absPath] = stamp
	idx.mu.Unlock()
	idx.logger.Debug("indexer file indexed",
		zap.String("path", absPath),
		zap.String("doc_id", docID),
		zap.Int("pages", text.Pages))
	return true, nil
}

// RemoveFile removes the file at path from the index and invalidates caches.
func (idx *Indexer) RemoveFile(ctx context.Context, path string) error {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("absolute path: %w", err)
	}
	idx.invalidate(absPath)
	idx.forget(absPath)
	docID := fileid.FileDocID(absPath)
	if err := idx.index.DeleteDocument(docID); err != nil {
		return err
	}
	idx.logger.Debug("indexer document deleted", zap.String("path", absPath), zap.String("doc_id", docID))
	idx.refresh()
	return nil
}

// RemoveTree removes every indexed file under dir. It is used when a whole folder
// disappears and no per-file events arrive.
func (idx *Indexer) RemoveTree(ctx context.Context, dir string) error {
	absDir, err := filepath.Abs(dir)
	if err != nil {
		return fmt.Errorf("absolute path: %w", err)
	}
	prefix := absDir + string(filepath.Separator)
	idx.mu.Lock()
	var paths []string
	for path := range idx.indexed {
		if strings.HasPrefix(path, prefix) {
			paths = append(paths, path)
		}
	}
	idx.mu.Unlock()

	var errs []error
	for _, path := range paths {
		idx.invalidate(path)
		idx.forget(path)
		if err := idx.index.DeleteDocument(fileid.FileDocID(path)); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", path, err))
		}
	}
	if len(paths) > 0 {
		idx.logger.Debug("indexer tree removed", zap.String("dir", absDir), zap.Int("documents", len(paths)))
		idx.refresh()
	}
	return errors.Join(errs...)
}

// Indexed returns how many files are currently indexed.
func (idx *Indexer) Indexed() int {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	return len(idx.indexed)
}

// IndexDirectory walks dir recursively and indexes every PDF. A file that fails to index
// does not stop the walk; the failures are returned joined together with the number of
// files indexed successfully.
func (idx *Indexer) IndexDirectory(ctx context.Context, dir string) (int, error) {
	absDir, err := filepath.Abs(dir)
	if err != nil {
		return 0, fmt.Errorf("absolute path: %w", err)
	}
	info, err := os.Stat(absDir)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, nil
		}
		return 0, fmt.Errorf("stat directory: %w", err)
	}
	if !info.IsDir() {
		return 0, fmt.Errorf("not a directory: %s", absDir)
	}

	var (
		n       int
		changed bool
		errs    []error
	)
	walkErr := filepath.WalkDir(absDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		if d.IsDir() || !d.Type().IsRegular() || !models.IsPDFName(path) {
			return nil
		}
		c, indexErr := idx.indexFile(ctx, path)
		changed = changed || c
		if indexErr != nil {
			idx.logger.Warn("indexer failed to index file", zap.String("path", path), zap.Error(indexErr))
			errs = append(errs, fmt.Errorf("%s: %w", path, indexErr))
			return nil
		}
		n++
		return nil
	})
	if changed {
		idx.refresh()
	}
	if walkErr != nil {
		errs = append(errs, walkErr)
	}
	return n, errors.Join(errs...)
}

func (idx *Indexer) invalidate(path string) {
	for _, inv := range idx.invalidators {
		inv.Invalidate(path)
	}
}

func (idx *Indexer) forget(path string) {
	idx.mu.Lock()
	delete(idx.indexed, path)
	idx.mu.Unlock()
}

func (idx *Indexer) refresh() {
	if idx.refresher == nil {
		return
	}
	if err := idx.refresher.RefreshCache(); err != nil {
		idx.logger.Warn("indexer failed to refresh", zap.Error(err))
	}
}
