package server_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/hyperjump/tanya/internal/config"
	"github.com/hyperjump/tanya/internal/library"
	"github.com/hyperjump/tanya/internal/metrics"
	"github.com/hyperjump/tanya/internal/mock"
	"github.com/hyperjump/tanya/internal/models"
	"github.com/hyperjump/tanya/internal/server"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testServer struct {
	lib      *library.Library
	querier  *mock.Querier
	indexed  []string
	indexCtx []context.Context
	handler  http.Handler
}

func newTestServer(t *testing.T, mutate func(*config.Config)) *testServer {
	t.Helper()
	cfg := &config.Config{}
	cfg.Library.Root = t.TempDir()
	config.ApplyDefaults(cfg)
	if mutate != nil {
		mutate(cfg)
	}
	ts := &testServer{lib: library.New(cfg.Library.Root)}
	ts.querier = &mock.Querier{QueryFn: func(ctx context.Context, folder models.Folder, query string) (*models.QueryResult, error) {
		return nil, errors.New("unexpected query")
	}}
	idx := &mock.FileIndexer{IndexFileFn: func(ctx context.Context, path string) error {
		ts.indexed = append(ts.indexed, path)
		ts.indexCtx = append(ts.indexCtx, ctx)
		return nil
	}}
	srv := server.NewServer(ts.querier, ts.lib, cfg, nil,
		server.WithIndexer(idx),
		server.WithMetrics(metrics.New()))
	ts.handler = srv.Router()
	return ts
}

func (ts *testServer) postJSON(t *testing.T, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	r := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	r.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	ts.handler.ServeHTTP(w, r)
	return w
}

func (ts *testServer) upload(t *testing.T, fields map[string]string, filename, content string) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for k, v := range fields {
		require.NoError(t, mw.WriteField(k, v))
	}
	if content != "" || filename != "" {
		fw, err := mw.CreateFormFile("file", filename)
		require.NoError(t, err)
		_, err = fw.Write([]byte(content))
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())
	r := httptest.NewRequest(http.MethodPost, "/upload", &buf)
	r.Header.Set("Content-Type", mw.FormDataContentType())
	w := httptest.NewRecorder()
	ts.handler.ServeHTTP(w, r)
	return w
}

// assertNothingStored fails when anything was written under the library root.
func (ts *testServer) assertNothingStored(t *testing.T) {
	t.Helper()
	entries, err := os.ReadDir(ts.lib.Root())
	require.NoError(t, err)
	assert.Empty(t, entries, "library root should be untouched")
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var out map[string]interface{}
	require.NoError(t, json.NewDecoder(w.Body).Decode(&out), w.Body.String())
	return out
}

func TestUpload(t *testing.T) {
	ts := newTestServer(t, nil)
	w := ts.upload(t, map[string]string{"year": "1", "semester": "2"}, "graphs.pdf", "%PDF-1.4 body")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	out := decode(t, w)
	assert.Equal(t, "File uploaded successfully", out["message"])
	assert.Equal(t, "graphs.pdf", out["filename"])
	assert.Equal(t, filepath.Join("Year_1", "Semester_2"), out["folder"])
	assert.Equal(t, "application/pdf", out["content_type"])

	dest := filepath.Join(ts.lib.Root(), "Year_1", "Semester_2", "graphs.pdf")
	data, err := os.ReadFile(dest)
	require.NoError(t, err)
	assert.Equal(t, "%PDF-1.4 body", string(data))
	assert.Equal(t, []string{dest}, ts.indexed)
}

func TestUpload_nonPDFIsStoredButNotIndexed(t *testing.T) {
	ts := newTestServer(t, nil)
	w := ts.upload(t, map[string]string{"year": "1", "semester": "1"}, "notes.txt", "plain")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, ts.indexed)

	files, err := ts.lib.ListPDFs(models.Folder{Year: "1", Semester: "1"})
	require.NoError(t, err)
	assert.Empty(t, files)
}

func TestUpload_errors(t *testing.T) {
	tests := []struct {
		name     string
		fields   map[string]string
		filename string
		content  string
		want     string
	}{
		{"no file part", map[string]string{"year": "1", "semester": "1"}, "", "", "No file part"},
		{"empty filename", map[string]string{"year": "1", "semester": "1"}, "", "data", "No selected file"},
		{"missing year", map[string]string{"semester": "1"}, "a.pdf", "data", "Year and semester are required"},
		{"blank semester", map[string]string{"year": "1", "semester": "  "}, "a.pdf", "data", "Year and semester are required"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ts := newTestServer(t, nil)
			w := ts.upload(t, tt.fields, tt.filename, tt.content)
			assert.Equal(t, http.StatusBadRequest, w.Code)
			assert.Equal(t, tt.want, decode(t, w)["error"])
			assert.Empty(t, ts.indexed)
			ts.assertNothingStored(t)
		})
	}
}

func TestUpload_rejectsTraversal(t *testing.T) {
	ts := newTestServer(t, nil)
	w := ts.upload(t, map[string]string{"year": "../..", "semester": "1"}, "a.pdf", "data")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = ts.upload(t, map[string]string{"year": "1", "semester": "1"}, "..", "data")
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Empty(t, ts.indexed)
	ts.assertNothingStored(t)
}

func TestUpload_tooLarge(t *testing.T) {
	ts := newTestServer(t, func(cfg *config.Config) { cfg.Server.MaxUploadBytes = 64 })
	w := ts.upload(t, map[string]string{"year": "1", "semester": "1"}, "a.pdf", strings.Repeat("x", 1024))
	assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
	ts.assertNothingStored(t)
}

func TestQuery(t *testing.T) {
	ts := newTestServer(t, nil)
	var got models.Folder
	ts.querier.QueryFn = func(ctx context.Context, folder models.Folder, query string) (*models.QueryResult, error) {
		got = folder
		docs := []models.DocumentResult{{Filename: "a.pdf", Answer: "vertices and edges"}}
		return &models.QueryResult{
			Answer:         models.RenderAnswer(docs),
			CorrectedQuery: query,
			Documents:      docs,
			ElapsedMillis:  12,
		}, nil
	}

	w := ts.postJSON(t, "/query", `{"year": 2, "semester": "1", "query": "what is a graph"}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, models.Folder{Year: "2", Semester: "1"}, got)

	var res models.QueryResult
	require.NoError(t, json.NewDecoder(w.Body).Decode(&res))
	assert.Equal(t, "Results from a.pdf:\nvertices and edges", res.Answer)
	assert.Equal(t, int64(12), res.ElapsedMillis)
	assert.Len(t, res.Documents, 1)
}

func TestQuery_errors(t *testing.T) {
	tests := []struct {
		name     string
		body     string
		queryErr error
		status   int
		want     string
	}{
		{"bad json", `{"year":`, nil, http.StatusBadRequest, "invalid request body"},
		{"missing query", `{"year": 1, "semester": 1}`, nil, http.StatusBadRequest, "Year, semester, and query are required"},
		{"blank query", `{"year": 1, "semester": 1, "query": "   "}`, nil, http.StatusBadRequest, "Year, semester, and query are required"},
		{"missing semester", `{"year": 1, "query": "q"}`, nil, http.StatusBadRequest, "Year, semester, and query are required"},
		{"missing folder", `{"year": 9, "semester": 9, "query": "q"}`, library.ErrFolderNotFound, http.StatusBadRequest, "Semester folder does not exist"},
		{"pipeline failure", `{"year": 1, "semester": 1, "query": "q"}`, errors.New("boom"), http.StatusInternalServerError, "boom"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ts := newTestServer(t, nil)
			ts.querier.QueryFn = func(ctx context.Context, folder models.Folder, query string) (*models.QueryResult, error) {
				if tt.queryErr == nil {
					t.Fatal("querier should not be called")
				}
				return nil, tt.queryErr
			}
			w := ts.postJSON(t, "/query", tt.body)
			assert.Equal(t, tt.status, w.Code)
			assert.Equal(t, tt.want, decode(t, w)["error"])
		})
	}
}

func TestQuery_invalidFolder(t *testing.T) {
	ts := newTestServer(t, nil)
	w := ts.postJSON(t, "/query", `{"year": "../etc", "semester": 1, "query": "q"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, decode(t, w)["error"], "invalid folder")
}

func TestQuery_timeout(t *testing.T) {
	ts := newTestServer(t, func(cfg *config.Config) { cfg.Search.QueryTimeout = 20 * time.Millisecond })
	ts.querier.QueryFn = func(ctx context.Context, folder models.Folder, query string) (*models.QueryResult, error) {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	w := ts.postJSON(t, "/query", `{"year": 1, "semester": 1, "query": "q"}`)
	assert.Equal(t, http.StatusGatewayTimeout, w.Code)
}

func TestQueryTimeout_onlyAppliesToQuery(t *testing.T) {
	ts := newTestServer(t, func(cfg *config.Config) { cfg.Search.QueryTimeout = time.Minute })
	var queryHasDeadline bool
	ts.querier.QueryFn = func(ctx context.Context, folder models.Folder, query string) (*models.QueryResult, error) {
		_, queryHasDeadline = ctx.Deadline()
		return &models.QueryResult{Answer: models.NoResultsMessage}, nil
	}

	w := ts.postJSON(t, "/query", `{"year": 1, "semester": 1, "query": "q"}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, queryHasDeadline, "query should run under the timeout")

	w = ts.upload(t, map[string]string{"year": "1", "semester": "1"}, "a.pdf", "%PDF-1.4")
	require.Equal(t, http.StatusOK, w.Code)
	require.Len(t, ts.indexCtx, 1)
	_, uploadHasDeadline := ts.indexCtx[0].Deadline()
	assert.False(t, uploadHasDeadline, "upload should not run under the query timeout")
}

func TestFiles(t *testing.T) {
	ts := newTestServer(t, nil)
	dir := filepath.Join(ts.lib.Root(), "Year_1", "Semester_1")
	require.NoError(t, os.MkdirAll(dir, 0755))
	for _, name := range []string{"b.pdf", "a.pdf", "c.txt"} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte("x"), 0644))
	}

	w := ts.postJSON(t, "/files", `{"year": "1", "semester": 1}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, map[string]interface{}{"files": []interface{}{"a.pdf", "b.pdf"}}, decode(t, w))
}

func TestFiles_emptyFolderListsNothing(t *testing.T) {
	ts := newTestServer(t, nil)
	require.NoError(t, os.MkdirAll(filepath.Join(ts.lib.Root(), "Year_1", "Semester_1"), 0755))
	w := ts.postJSON(t, "/files", `{"year": 1, "semester": 1}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"files": []}`, w.Body.String())
}

func TestFiles_errors(t *testing.T) {
	ts := newTestServer(t, nil)

	w := ts.postJSON(t, "/files", `{"year": 1}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "Year and semester are required", decode(t, w)["error"])

	w = ts.postJSON(t, "/files", `{"year": 4, "semester": 2}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "Semester folder does not exist", decode(t, w)["error"])
}

func TestHealthAndStatus(t *testing.T) {
	ts := newTestServer(t, nil)
	ts.upload(t, map[string]string{"year": "1", "semester": "1"}, "a.pdf", "%PDF-1.4")

	r := httptest.NewRequest(http.MethodGet, "/health", nil)
	w := httptest.NewRecorder()
	ts.handler.ServeHTTP(w, r)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())

	r = httptest.NewRequest(http.MethodGet, "/api/v1/status", nil)
	w = httptest.NewRecorder()
	ts.handler.ServeHTTP(w, r)
	require.Equal(t, http.StatusOK, w.Code)
	out := decode(t, w)
	assert.EqualValues(t, 1, out["folders"])
	assert.EqualValues(t, 1, out["documents"])
	cfg := out["config"].(map[string]interface{})
	assert.Equal(t, config.ProviderHuggingFace, cfg["qa_provider"])
	assert.Equal(t, ts.lib.Root(), cfg["library_root"])
}

func TestMetricsEndpoint(t *testing.T) {
	ts := newTestServer(t, nil)
	ts.upload(t, map[string]string{"year": "1", "semester": "1"}, "a.pdf", "%PDF-1.4")

	r := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	w := httptest.NewRecorder()
	ts.handler.ServeHTTP(w, r)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `tanya_uploads_total{status="ok"} 1`)
}
