package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/hyperjump/tanya/internal/library"
	"github.com/hyperjump/tanya/internal/metrics"
	"github.com/hyperjump/tanya/internal/models"
	"github.com/hyperjump/tanya/internal/search"
	"go.uber.org/zap"
)

// Client-facing error messages.
const (
	msgNoFilePart      = "No file part"
	msgNoSelectedFile  = "No selected file"
	msgFolderRequired  = "Year and semester are required"
	msgQueryRequired   = "Year, semester, and query are required"
	msgFolderNotFound  = "Semester folder does not exist"
	msgInvalidBody     = "invalid request body"
	msgUploadSucceeded = "File uploaded successfully"
)

// multipartMemory is how much of a multipart upload is buffered in memory before spilling to disk.
const multipartMemory = 32 << 20

type uploadResponse struct {
	Message string `json:"message"`
	*models.StoredFile
}

func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	if limit := s.config.Server.MaxUploadBytes; limit > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, limit)
	}
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			s.uploadFailed(w, http.StatusRequestEntityTooLarge, "file too large")
			return
		}
		if !errors.Is(err, http.ErrNotMultipart) {
			s.uploadFailed(w, http.StatusBadRequest, msgInvalidBody)
			return
		}
	}
	if r.MultipartForm != nil {
		defer r.MultipartForm.RemoveAll()
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		// A file part sent without a filename is parsed as a plain form value.
		if r.MultipartForm != nil && len(r.MultipartForm.Value["file"]) > 0 {
			s.uploadFailed(w, http.StatusBadRequest, msgNoSelectedFile)
			return
		}
		s.uploadFailed(w, http.StatusBadRequest, msgNoFilePart)
		return
	}
	defer file.Close()
	if header.Filename == "" {
		s.uploadFailed(w, http.StatusBadRequest, msgNoSelectedFile)
		return
	}
	folder := models.Folder{
		Year:     models.Identifier(strings.TrimSpace(r.FormValue("year"))),
		Semester: models.Identifier(strings.TrimSpace(r.FormValue("semester"))),
	}
	if folder.IsZero() {
		s.uploadFailed(w, http.StatusBadRequest, msgFolderRequired)
		return
	}

	stored, err := s.store.Save(r.Context(), folder, header.Filename, file)
	if err != nil {
		if errors.Is(err, models.ErrInvalidFolder) || errors.Is(err, library.ErrInvalidFilename) {
			s.uploadFailed(w, http.StatusBadRequest, err.Error())
			return
		}
		s.logger.Error("upload failed", zap.String("filename", header.Filename), zap.Error(err))
		s.metrics.ObserveUpload(metrics.StatusError)
		s.respondError(w, http.StatusInternalServerError, "failed to store file")
		return
	}
	s.metrics.ObserveUpload(metrics.StatusOK)

	if s.indexer != nil && models.IsPDFName(stored.Filename) {
		if err := s.indexer.IndexFile(r.Context(), stored.Path); err != nil {
			s.logger.Warn("failed to index upload", zap.String("path", stored.Path), zap.Error(err))
		}
	}
	s.respondJSON(w, http.StatusOK, uploadResponse{Message: msgUploadSucceeded, StoredFile: stored})
}

func (s *Server) uploadFailed(w http.ResponseWriter, status int, message string) {
	s.metrics.ObserveUpload(metrics.StatusClientError)
	s.respondError(w, status, message)
}

func (s *Server) handleQuery(w http.ResponseWriter, r *http.Request) {
	var req models.QueryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, msgInvalidBody)
		return
	}
	if err := req.Validate(); err != nil {
		s.respondFolderError(w, err, msgQueryRequired)
		return
	}
	s.logger.Debug("query request",
		zap.String("folder", req.Folder().RelPath()),
		zap.String("query", req.Query))

	res, err := s.querier.Query(r.Context(), req.Folder(), req.Query)
	if err != nil {
		switch {
		case errors.Is(err, library.ErrFolderNotFound):
			s.respondError(w, http.StatusBadRequest, msgFolderNotFound)
		case errors.Is(err, models.ErrInvalidFolder), errors.Is(err, search.ErrEmptyQuery):
			s.respondError(w, http.StatusBadRequest, err.Error())
		case errors.Is(err, context.DeadlineExceeded):
			// The timeout middleware writes the 504.
			s.logger.Warn("query timed out", zap.String("folder", req.Folder().RelPath()))
		case errors.Is(err, context.Canceled):
			s.logger.Debug("query cancelled by client")
		default:
			s.logger.Error("query failed", zap.Error(err))
			s.respondError(w, http.StatusInternalServerError, err.Error())
		}
		return
	}
	s.respondJSON(w, http.StatusOK, res)
}

func (s *Server) handleFiles(w http.ResponseWriter, r *http.Request) {
	var req models.FilesRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, msgInvalidBody)
		return
	}
	if err := req.Validate(); err != nil {
		s.respondFolderError(w, err, msgFolderRequired)
		return
	}
	files, err := s.store.ListPDFs(req.Folder())
	if err != nil {
		if errors.Is(err, library.ErrFolderNotFound) {
			s.respondError(w, http.StatusBadRequest, msgFolderNotFound)
			return
		}
		s.logger.Error("list files failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if files == nil {
		files = []string{}
	}
	s.respondJSON(w, http.StatusOK, map[string][]string{"files": files})
}

// respondFolderError maps request validation errors to 400 responses. missing is the message
// for absent fields.
func (s *Server) respondFolderError(w http.ResponseWriter, err error, missing string) {
	if errors.Is(err, models.ErrMissingQueryFields) || errors.Is(err, models.ErrMissingFolderFields) {
		s.respondError(w, http.StatusBadRequest, missing)
		return
	}
	s.respondError(w, http.StatusBadRequest, err.Error())
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	stats, err := s.store.Stats()
	if err != nil {
		s.logger.Error("status: library stats failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	resp := map[string]interface{}{
		"folders":          stats.Folders,
		"documents":        stats.Documents,
		"disk_usage_bytes": stats.DiskBytes,
		"uptime_seconds":   int64(time.Since(s.started).Seconds()),
	}

	cfg := s.config
	configInfo := map[string]interface{}{
		"library_root":       cfg.Library.Root,
		"qa_provider":        cfg.Inference.QA.Provider,
		"qa_model":           cfg.Inference.QA.Model,
		"summarizer":         cfg.Inference.Summarizer.Provider,
		"summarizer_model":   cfg.Inference.Summarizer.Model,
		"spell_enabled":      cfg.Spell.EnabledOrDefault(),
		"search_parallelism": cfg.Search.Parallelism,
		"max_concurrent":     cfg.Inference.MaxConcurrent,
	}
	if s.watch != nil {
		configInfo["watched_directories"] = len(s.watch.Directories())
	}
	resp["config"] = configInfo
	s.respondJSON(w, http.StatusOK, resp)
}

func (s *Server) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func (s *Server) respondError(w http.ResponseWriter, status int, message string) {
	s.respondJSON(w, status, map[string]string{"error": message})
}
