// Package server provides the HTTP API for Tanya.
package server

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/hyperjump/tanya/internal/config"
	"github.com/hyperjump/tanya/internal/library"
	"github.com/hyperjump/tanya/internal/metrics"
	"github.com/hyperjump/tanya/internal/models"
	"go.uber.org/zap"
)

// Querier answers a query against one folder.
type Querier interface {
	Query(ctx context.Context, folder models.Folder, query string) (*models.QueryResult, error)
}

// Store holds uploaded documents.
type Store interface {
	ListPDFs(folder models.Folder) ([]string, error)
	Save(ctx context.Context, folder models.Folder, filename string, r io.Reader) (*models.StoredFile, error)
	Stats() (*library.Stats, error)
}

// FileIndexer indexes a stored file right after upload.
type FileIndexer interface {
	IndexFile(ctx context.Context, path string) error
}

// WatchService reports the directories being watched.
type WatchService interface {
	Directories() []string
}

// Server is the HTTP server for the Tanya API.
type Server struct {
	querier Querier
	store   Store
	indexer FileIndexer
	watch   WatchService
	metrics *metrics.Metrics
	config  *config.Config
	logger  *zap.Logger
	server  *http.Server
	started time.Time
}

// Option configures a Server.
type Option func(*Server)

// WithIndexer indexes PDFs as soon as they are uploaded.
func WithIndexer(idx FileIndexer) Option {
	return func(s *Server) { s.indexer = idx }
}

// WithWatch reports the watcher's directories in the status endpoint.
func WithWatch(w WatchService) Option {
	return func(s *Server) { s.watch = w }
}

// WithMetrics serves /metrics and records upload outcomes.
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Server) { s.metrics = m }
}

// NewServer creates a server with the given dependencies.
func NewServer(querier Querier, store Store, cfg *config.Config, logger *zap.Logger, opts ...Option) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Server{
		querier: querier,
		store:   store,
		config:  cfg,
		logger:  logger,
		started: time.Now(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Router returns the HTTP handler with all routes and middleware.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Compress(5))

	r.Post("/upload", s.handleUpload)
	if s.config.Search.QueryTimeout > 0 {
		r.With(middleware.Timeout(s.config.Search.QueryTimeout)).Post("/query", s.handleQuery)
	} else {
		r.Post("/query", s.handleQuery)
	}
	r.Post("/files", s.handleFiles)
	r.Get("/health", s.handleHealth)
	r.Get("/api/v1/status", s.handleStatus)
	if s.metrics != nil {
		r.Handle("/metrics", s.metrics.Handler())
	}
	return r
}

// Start starts the HTTP server and blocks until it stops.
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.config.Server.Host, s.config.Server.Port)
	s.server = &http.Server{
		Addr:              addr,
		Handler:           s.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	s.logger.Info("Starting server", zap.String("addr", addr))
	return s.server.ListenAndServe()
}

// Stop gracefully shuts down the server.
func (s *Server) Stop(ctx context.Context) error {
	if s.server != nil {
		return s.server.Shutdown(ctx)
	}
	return nil
}
