package mock

import (
	"context"

	"github.com/hyperjump/tanya/internal/models"
	"github.com/hyperjump/tanya/internal/server"
)

var _ server.Querier = (*Querier)(nil)

// Querier is a mock implementation of server.Querier.
type Querier struct {
	QueryFn func(ctx context.Context, folder models.Folder, query string) (*models.QueryResult, error)
}

func (q *Querier) Query(ctx context.Context, folder models.Folder, query string) (*models.QueryResult, error) {
	return q.QueryFn(ctx, folder, query)
}

var _ server.FileIndexer = (*FileIndexer)(nil)

// FileIndexer is a mock implementation of server.FileIndexer.
type FileIndexer struct {
	IndexFileFn func(ctx context.Context, path string) error
}

func (f *FileIndexer) IndexFile(ctx context.Context, path string) error {
	return f.IndexFileFn(ctx, path)
}
