package indexer

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/hyperjump/tanya/internal/extract"
	"github.com/hyperjump/tanya/internal/fileid"
)

type fakeExtractor struct {
	mu    sync.Mutex
	calls int
	fail  map[string]error
}

func (f *fakeExtractor) Extract(ctx context.Context, path string) (*extract.Text, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if err := f.fail[filepath.Base(path)]; err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return &extract.Text{Content: string(data), Pages: 1}, nil
}

type fakeIndex struct {
	mu   sync.Mutex
	docs map[string]string
}

func newFakeIndex() *fakeIndex { return &fakeIndex{docs: make(map[string]string)} }

func (f *fakeIndex) IndexDocument(id, text string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.docs[id] = text
	return nil
}

func (f *fakeIndex) DeleteDocument(id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.docs, id)
	return nil
}

type recorder struct {
	mu          sync.Mutex
	invalidated []string
	refreshes   int
}

func (r *recorder) Invalidate(path string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.invalidated = append(r.invalidated, path)
}

func (r *recorder) RefreshCache() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.refreshes++
	return nil
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
}

func TestIndexFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "Year_1", "Semester_1", "graphs.pdf")
	writeFile(t, path, "vertices and edges")

	ext := &fakeExtractor{}
	index := newFakeIndex()
	rec := &recorder{}
	idx := NewIndexer(ext, index, WithInvalidator(rec), WithRefresher(rec))

	if err := idx.IndexFile(context.Background(), path); err != nil {
		t.Fatal(err)
	}
	if got := index.docs[fileid.FileDocID(path)]; got != "vertices and edges" {
		t.Errorf("indexed text = %q", got)
	}
	if len(rec.invalidated) != 1 || rec.invalidated[0] != path {
		t.Errorf("invalidated = %v", rec.invalidated)
	}
	if rec.refreshes != 1 {
		t.Errorf("refreshes = %d, want 1", rec.refreshes)
	}

	// Unchanged file is skipped.
	if err := idx.IndexFile(context.Background(), path); err != nil {
		t.Fatal(err)
	}
	if ext.calls != 1 {
		t.Errorf("extract calls = %d, want 1 for unchanged file", ext.calls)
	}

	// Modified file is re-extracted.
	writeFile(t, path, "trees and forests, longer")
	future := time.Now().Add(time.Minute)
	if err := os.Chtimes(path, future, future); err != nil {
		t.Fatal(err)
	}
	if err := idx.IndexFile(context.Background(), path); err != nil {
		t.Fatal(err)
	}
	if got := index.docs[fileid.FileDocID(path)]; got != "trees and forests, longer" {
		t.Errorf("re-indexed text = %q", got)
	}
	if rec.refreshes != 2 {
		t.Errorf("refreshes = %d, want 2", rec.refreshes)
	}
}

func TestIndexFile_rejectsNonPDF(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "notes.txt")
	writeFile(t, path, "x")
	idx := NewIndexer(&fakeExtractor{}, newFakeIndex())
	if err := idx.IndexFile(context.Background(), path); err == nil {
		t.Error("expected error for non-PDF file")
	}
}

func TestIndexFile_extractErrorDropsStaleText(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "bad.pdf")
	writeFile(t, path, "old text")

	ext := &fakeExtractor{fail: map[string]error{}}
	index := newFakeIndex()
	idx := NewIndexer(ext, index)
	if err := idx.IndexFile(context.Background(), path); err != nil {
		t.Fatal(err)
	}

	ext.fail["bad.pdf"] = extract.ErrNoPages
	writeFile(t, path, "new")
	err := idx.IndexFile(context.Background(), path)
	if !errors.Is(err, extract.ErrNoPages) {
		t.Fatalf("err = %v, want ErrNoPages", err)
	}
	if _, ok := index.docs[fileid.FileDocID(path)]; ok {
		t.Error("stale text should be removed when extraction fails")
	}
}

func TestRemoveFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "a.pdf")
	writeFile(t, path, "content")
	index := newFakeIndex()
	rec := &recorder{}
	idx := NewIndexer(&fakeExtractor{}, index, WithInvalidator(rec), WithRefresher(rec))
	if err := idx.IndexFile(context.Background(), path); err != nil {
		t.Fatal(err)
	}
	if err := os.Remove(path); err != nil {
		t.Fatal(err)
	}
	if err := idx.RemoveFile(context.Background(), path); err != nil {
		t.Fatal(err)
	}
	if len(index.docs) != 0 {
		t.Errorf("index should be empty, has %d docs", len(index.docs))
	}
	if len(rec.invalidated) != 2 {
		t.Errorf("invalidations = %d, want 2", len(rec.invalidated))
	}
}

func TestIndexDirectory(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "Year_1", "Semester_1", "a.pdf"), "alpha")
	writeFile(t, filepath.Join(dir, "Year_1", "Semester_2", "b.pdf"), "beta")
	writeFile(t, filepath.Join(dir, "Year_1", "Semester_2", "broken.pdf"), "zzz")
	writeFile(t, filepath.Join(dir, "Year_1", "Semester_2", "skip.txt"), "nope")

	ext := &fakeExtractor{fail: map[string]error{"broken.pdf": errors.New("malformed")}}
	index := newFakeIndex()
	rec := &recorder{}
	idx := NewIndexer(ext, index, WithRefresher(rec))

	n, err := idx.IndexDirectory(context.Background(), dir)
	if n != 2 {
		t.Errorf("indexed %d files, want 2", n)
	}
	if err == nil {
		t.Error("expected joined error for broken.pdf")
	}
	if len(index.docs) != 2 {
		t.Errorf("index has %d docs, want 2", len(index.docs))
	}
	if rec.refreshes != 1 {
		t.Errorf("refreshes = %d, want exactly 1 for a directory sync", rec.refreshes)
	}
}

func TestIndexDirectory_missing(t *testing.T) {
	idx := NewIndexer(&fakeExtractor{}, newFakeIndex())
	n, err := idx.IndexDirectory(context.Background(), filepath.Join(t.TempDir(), "absent"))
	if err != nil || n != 0 {
		t.Errorf("missing dir: n=%d err=%v", n, err)
	}
}

func TestRemoveTree(t *testing.T) {
	dir := t.TempDir()
	keep := filepath.Join(dir, "Year_1", "Semester_1", "keep.pdf")
	gone1 := filepath.Join(dir, "Year_2", "Semester_1", "a.pdf")
	gone2 := filepath.Join(dir, "Year_2", "Semester_2", "b.pdf")
	for _, p := range []string{keep, gone1, gone2} {
		writeFile(t, p, "text")
	}
	index := newFakeIndex()
	rec := &recorder{}
	idx := NewIndexer(&fakeExtractor{}, index, WithInvalidator(rec), WithRefresher(rec))
	if _, err := idx.IndexDirectory(context.Background(), dir); err != nil {
		t.Fatal(err)
	}
	if idx.Indexed() != 3 {
		t.Fatalf("Indexed = %d, want 3", idx.Indexed())
	}

	if err := idx.RemoveTree(context.Background(), filepath.Join(dir, "Year_2")); err != nil {
		t.Fatal(err)
	}
	if idx.Indexed() != 1 {
		t.Errorf("Indexed = %d, want 1", idx.Indexed())
	}
	if _, ok := index.docs[fileid.FileDocID(keep)]; !ok || len(index.docs) != 1 {
		t.Errorf("docs = %v, want only keep.pdf", index.docs)
	}
	if rec.refreshes != 2 {
		t.Errorf("refreshes = %d, want 2", rec.refreshes)
	}

	// A sibling whose name shares the prefix is not part of the tree.
	if err := idx.RemoveTree(context.Background(), filepath.Join(dir, "Year_1", "Semester")); err != nil {
		t.Fatal(err)
	}
	if idx.Indexed() != 1 {
		t.Errorf("prefix match removed a sibling folder")
	}
}
