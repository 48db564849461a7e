package extract

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/ledongthuc/pdf"
	"go.uber.org/zap"
)

// PDFExtractor extracts text from PDF files page by page.
// A failing page is skipped and counted; only when every page fails is an error returned.
type PDFExtractor struct {
	logger *zap.Logger
}

// Option configures a PDFExtractor.
type Option func(*PDFExtractor)

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(e *PDFExtractor) {
		if l != nil {
			e.logger = l
		}
	}
}

// NewPDFExtractor returns a new PDFExtractor.
func NewPDFExtractor(opts ...Option) *PDFExtractor {
	e := &PDFExtractor{logger: zap.NewNop()}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Extract reads the PDF at path and returns its text.
func (e *PDFExtractor) Extract(ctx context.Context, path string) (*Text, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open file: %w", err)
	}
	defer f.Close()
	info, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("stat file: %w", err)
	}
	text, err := e.ExtractReader(ctx, f, info.Size())
	if err != nil {
		return nil, err
	}
	if text.FailedPages > 0 {
		e.logger.Warn("skipped unreadable pages",
			zap.String("path", path),
			zap.Int("failed_pages", text.FailedPages),
			zap.Int("pages", text.Pages))
	}
	return text, nil
}

// ExtractBytes extracts text from an in-memory PDF.
func (e *PDFExtractor) ExtractBytes(ctx context.Context, content []byte) (*Text, error) {
	return e.ExtractReader(ctx, bytes.NewReader(content), int64(len(content)))
}

// ExtractReader extracts text from a PDF of the given size.
func (e *PDFExtractor) ExtractReader(ctx context.Context, ra io.ReaderAt, size int64) (*Text, error) {
	r, err := newReader(ra, size)
	if err != nil {
		return nil, err
	}
	numPages := r.NumPage()
	if numPages == 0 {
		return nil, ErrNoPages
	}

	var (
		buf       strings.Builder
		failed    int
		firstFail *PageError
	)
	for i := 1; i <= numPages; i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		pageText, err := pageText(r, i)
		if err != nil {
			failed++
			if firstFail == nil {
				firstFail = &PageError{Page: i, Err: err}
			}
			continue
		}
		if pageText == "" {
			continue
		}
		buf.WriteString(pageText)
		buf.WriteByte(' ')
	}
	if failed == numPages {
		return nil, firstFail
	}
	return &Text{Content: buf.String(), Pages: numPages, FailedPages: failed}, nil
}

func newReader(ra io.ReaderAt, size int64) (r *pdf.Reader, err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("malformed PDF: %v", p)
		}
	}()
	r, err = pdf.NewReader(ra, size)
	if err != nil {
		return nil, fmt.Errorf("open PDF: %w", err)
	}
	return r, nil
}

func pageText(r *pdf.Reader, i int) (text string, err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("%v", p)
		}
	}()
	page := r.Page(i)
	if page.V.IsNull() {
		return "", nil
	}
	return page.GetPlainText(nil)
}
