// Package extract provides plain-text extraction from PDF documents.
package extract

import (
	"context"
	"errors"
	"fmt"
)

// ErrNoPages is returned when a PDF has no pages.
var ErrNoPages = errors.New("no pages found in the PDF")

// PageError reports a page whose text could not be extracted.
type PageError struct {
	Page int
	Err  error
}

func (e *PageError) Error() string {
	return fmt.Sprintf("page %d: %v", e.Page, e.Err)
}

func (e *PageError) Unwrap() error {
	return e.Err
}

// Text is the extracted content of one document.
type Text struct {
	// Content holds every non-empty page followed by a single space.
	Content string
	// Pages is the page count reported by the document.
	Pages int
	// FailedPages counts pages skipped because extraction failed.
	FailedPages int
}

// Extractor extracts plain text from a document file.
type Extractor interface {
	Extract(ctx context.Context, path string) (*Text, error)
}
