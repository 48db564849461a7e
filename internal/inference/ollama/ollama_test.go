package ollama

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/hyperjump/tanya/internal/inference"
	olla "github.com/ollama/ollama/api"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newServer returns an Ollama stand-in that replies to /api/generate with reply and hands
// each decoded request to inspect.
func newServer(t *testing.T, reply string, inspect func(req olla.GenerateRequest)) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/generate", r.URL.Path)
		assert.Equal(t, http.MethodPost, r.Method)
		var req olla.GenerateRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		if inspect != nil {
			inspect(req)
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(olla.GenerateResponse{Model: req.Model, Response: reply, Done: true})
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestNew(t *testing.T) {
	c, err := New("llama3", "")
	require.NoError(t, err)
	assert.Equal(t, "llama3", c.Model())

	_, err = New("", "")
	assert.Error(t, err)

	_, err = New("llama3", "://bad")
	assert.Error(t, err)
}

func TestQuestionAnswerer_Answer(t *testing.T) {
	passage := "A graph is a set of vertices and edges."
	srv := newServer(t, " a set of vertices and edges\n", func(req olla.GenerateRequest) {
		assert.Equal(t, "llama3", req.Model)
		require.NotNil(t, req.Stream)
		assert.False(t, *req.Stream)
		assert.Contains(t, req.Prompt, passage)
		assert.Contains(t, req.Prompt, "Question: what is a graph?")
		assert.Equal(t, qaSystemPrompt, req.System)
		assert.EqualValues(t, 0, req.Options["temperature"])
	})

	qa, err := NewQuestionAnswerer("llama3", srv.URL)
	require.NoError(t, err)
	ans, err := qa.Answer(context.Background(), "what is a graph?", passage)
	require.NoError(t, err)
	assert.Equal(t, "a set of vertices and edges", ans.Text)
	assert.Equal(t, 11, ans.Start)
	assert.Equal(t, 38, ans.End)
	assert.Equal(t, 1.0, ans.Score)
}

func TestQuestionAnswerer_paraphrased(t *testing.T) {
	srv := newServer(t, "Vertices joined by edges.", nil)
	qa, err := NewQuestionAnswerer("llama3", srv.URL)
	require.NoError(t, err)
	ans, err := qa.Answer(context.Background(), "q", "A graph is a set of vertices and edges.")
	require.NoError(t, err)
	assert.Equal(t, "Vertices joined by edges.", ans.Text)
	assert.Equal(t, -1, ans.Start)
	assert.Zero(t, ans.Score)
}

func TestQuestionAnswerer_noAnswer(t *testing.T) {
	srv := newServer(t, NoAnswer, nil)
	qa, err := NewQuestionAnswerer("llama3", srv.URL)
	require.NoError(t, err)
	ans, err := qa.Answer(context.Background(), "who wrote it?", "Some unrelated text.")
	require.NoError(t, err)
	assert.Empty(t, ans.Text)

	_, err = qa.Answer(context.Background(), "q", "")
	assert.ErrorIs(t, err, inference.ErrEmptyContext)
}

func TestSummarizer_Summarize(t *testing.T) {
	srv := newServer(t, "A short summary.", func(req olla.GenerateRequest) {
		assert.Contains(t, req.Prompt, "in 50 to 200 characters")
		assert.Equal(t, summarySystemPrompt, req.System)
		assert.EqualValues(t, 0, req.Options["temperature"])
		assert.EqualValues(t, 66, req.Options["num_predict"])
	})
	s, err := NewSummarizer("llama3", srv.URL)
	require.NoError(t, err)
	out, err := s.Summarize(context.Background(), "a long answer", inference.DefaultSummarizeOptions())
	require.NoError(t, err)
	assert.Equal(t, "A short summary.", out)
}

func TestSummarizer_sampling(t *testing.T) {
	srv := newServer(t, "", func(req olla.GenerateRequest) {
		_, ok := req.Options["temperature"]
		assert.False(t, ok)
	})
	s, err := NewSummarizer("llama3", srv.URL)
	require.NoError(t, err)
	_, err = s.Summarize(context.Background(), "text", inference.SummarizeOptions{MaxLength: 100, DoSample: true})
	assert.Error(t, err, "an empty reply is an error")
}

func TestGenerate_serverError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"error":"model \"llama3\" not found"}`))
	}))
	defer srv.Close()

	qa, err := NewQuestionAnswerer("llama3", srv.URL)
	require.NoError(t, err)
	_, err = qa.Answer(context.Background(), "q", "c")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not found")
}
