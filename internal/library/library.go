// Package library stores uploaded PDFs in a Year_<y>/Semester_<s> folder tree.
package library

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
	"github.com/hyperjump/tanya/internal/models"
	"go.uber.org/zap"
)

var (
	// ErrFolderNotFound is returned when a Year/Semester folder does not exist.
	ErrFolderNotFound = errors.New("semester folder does not exist")
	// ErrInvalidFilename is returned for upload names that are empty or could escape the folder.
	ErrInvalidFilename = errors.New("invalid filename")
)

// Library owns the root directory of the folder tree.
type Library struct {
	root   string
	logger *zap.Logger
}

// Option configures a Library.
type Option func(*Library)

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(lib *Library) {
		if l != nil {
			lib.logger = l
		}
	}
}

// New returns a Library rooted at root. The root is created lazily on first upload.
func New(root string, opts ...Option) *Library {
	lib := &Library{root: filepath.Clean(root), logger: zap.NewNop()}
	for _, opt := range opts {
		opt(lib)
	}
	return lib
}

// Root returns the library root directory.
func (l *Library) Root() string {
	return l.root
}

// FolderPath returns the directory for folder. It does not touch the filesystem.
func (l *Library) FolderPath(folder models.Folder) string {
	return folder.Path(l.root)
}

// Exists reports whether the folder directory exists.
func (l *Library) Exists(folder models.Folder) (bool, error) {
	if err := folder.Validate(); err != nil {
		return false, err
	}
	info, err := os.Stat(l.FolderPath(folder))
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, fmt.Errorf("stat folder: %w", err)
	}
	return info.IsDir(), nil
}

// ListPDFs returns the base names of the PDF files directly inside folder, sorted by name.
// Only regular files whose name ends in ".pdf" are listed.
func (l *Library) ListPDFs(folder models.Folder) ([]string, error) {
	if err := folder.Validate(); err != nil {
		return nil, err
	}
	dir := l.FolderPath(folder)
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrFolderNotFound
		}
		return nil, fmt.Errorf("read folder: %w", err)
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if !e.Type().IsRegular() || !models.IsPDFName(e.Name()) {
			continue
		}
		names = append(names, e.Name())
	}
	sort.Strings(names)
	return names, nil
}

// Save writes r to <folder>/<filename>, creating the folder if needed. An existing file with
// the same name is replaced. The file is written to a temporary name first and renamed into
// place, so readers never observe a partial upload.
func (l *Library) Save(ctx context.Context, folder models.Folder, filename string, r io.Reader) (*models.StoredFile, error) {
	if err := folder.Validate(); err != nil {
		return nil, err
	}
	name, err := cleanFilename(filename)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	dir := l.FolderPath(folder)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create folder: %w", err)
	}

	tmpPath := filepath.Join(dir, "."+uuid.NewString()+".upload")
	f, err := os.OpenFile(tmpPath, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0644)
	if err != nil {
		return nil, fmt.Errorf("create temp file: %w", err)
	}
	size, copyErr := io.Copy(f, r)
	closeErr := f.Close()
	if copyErr != nil || closeErr != nil {
		_ = os.Remove(tmpPath)
		if copyErr != nil {
			return nil, fmt.Errorf("write upload: %w", copyErr)
		}
		return nil, fmt.Errorf("close upload: %w", closeErr)
	}

	contentType := "application/octet-stream"
	if mt, err := mimetype.DetectFile(tmpPath); err == nil {
		contentType = mt.String()
	}

	dest := filepath.Join(dir, name)
	if err := os.Rename(tmpPath, dest); err != nil {
		_ = os.Remove(tmpPath)
		return nil, fmt.Errorf("store upload: %w", err)
	}

	l.logger.Info("stored upload",
		zap.String("folder", folder.RelPath()),
		zap.String("filename", name),
		zap.Int64("size", size),
		zap.String("content_type", contentType))

	return &models.StoredFile{
		Filename:    name,
		Folder:      folder.RelPath(),
		Path:        dest,
		Size:        size,
		ContentType: contentType,
	}, nil
}

// Stats summarizes the library contents.
type Stats struct {
	Folders   int   `json:"folders"`
	Documents int   `json:"documents"`
	DiskBytes int64 `json:"disk_bytes"`
}

// Stats walks the library and counts semester folders and PDF documents.
// A missing root yields zero stats.
func (l *Library) Stats() (*Stats, error) {
	st := &Stats{}
	years, err := os.ReadDir(l.root)
	if err != nil {
		if os.IsNotExist(err) {
			return st, nil
		}
		return nil, fmt.Errorf("read library root: %w", err)
	}
	for _, y := range years {
		if !y.IsDir() || !strings.HasPrefix(y.Name(), models.YearPrefix) {
			continue
		}
		sems, err := os.ReadDir(filepath.Join(l.root, y.Name()))
		if err != nil {
			return nil, fmt.Errorf("read year folder: %w", err)
		}
		for _, s := range sems {
			if !s.IsDir() || !strings.HasPrefix(s.Name(), models.SemesterPrefix) {
				continue
			}
			st.Folders++
			files, err := os.ReadDir(filepath.Join(l.root, y.Name(), s.Name()))
			if err != nil {
				return nil, fmt.Errorf("read semester folder: %w", err)
			}
			for _, f := range files {
				if f.Type().IsRegular() && models.IsPDFName(f.Name()) {
					st.Documents++
				}
			}
		}
	}
	st.DiskBytes, err = diskUsage(l.root)
	if err != nil {
		return nil, err
	}
	return st, nil
}

func cleanFilename(filename string) (string, error) {
	name := strings.TrimSpace(filename)
	if name == "" || name == "." || name == ".." ||
		strings.ContainsAny(name, "/\\\x00") {
		return "", fmt.Errorf("%w: %q", ErrInvalidFilename, filename)
	}
	return name, nil
}
