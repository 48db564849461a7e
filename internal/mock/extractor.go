package mock

import (
	"context"

	"github.com/hyperjump/tanya/internal/extract"
)

var _ extract.Extractor = (*Extractor)(nil)

// Extractor is a mock implementation of extract.Extractor.
type Extractor struct {
	ExtractFn func(ctx context.Context, path string) (*extract.Text, error)
}

func (e *Extractor) Extract(ctx context.Context, path string) (*extract.Text, error) {
	return e.ExtractFn(ctx, path)
}
