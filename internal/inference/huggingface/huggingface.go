// Package huggingface calls the HuggingFace Inference API for question answering and
// summarization.
package huggingface

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/hyperjump/tanya/internal/inference"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// DefaultBaseURL is the hosted Inference API endpoint. Model names are appended to it.
const DefaultBaseURL = "https://api-inference.huggingface.co/models/"

// maxErrorBody bounds how much of an error response is kept in the returned error.
const maxErrorBody = 512

// Client is an Inference API client for one model.
type Client struct {
	httpClient *http.Client
	baseURL    string
	model      string
	apiKey     string
	limiter    *rate.Limiter
	logger     *zap.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

// WithRateLimit limits outbound requests to rps per second. Zero or less disables the limit.
func WithRateLimit(rps float64) Option {
	return func(c *Client) {
		if rps > 0 {
			c.limiter = rate.NewLimiter(rate.Limit(rps), 1)
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(c *Client) {
		if l != nil {
			c.logger = l
		}
	}
}

// New returns a client for model. An empty baseURL uses DefaultBaseURL.
func New(model, apiKey, baseURL string, opts ...Option) (*Client, error) {
	if model == "" {
		return nil, errors.New("huggingface: model is required")
	}
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if !strings.HasSuffix(baseURL, "/") {
		baseURL += "/"
	}
	c := &Client{
		httpClient: &http.Client{Timeout: 120 * time.Second},
		baseURL:    baseURL,
		model:      model,
		apiKey:     apiKey,
		logger:     zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Model returns the model name.
func (c *Client) Model() string { return c.model }

// StatusError is returned for non-2xx responses.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("huggingface: status %d", e.StatusCode)
	}
	return fmt.Sprintf("huggingface: status %d: %s", e.StatusCode, e.Body)
}

func (c *Client) post(ctx context.Context, payload, out any) error {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return fmt.Errorf("rate limit: %w", err)
		}
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+c.model, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}
	req.Header.Set("Content-Type", "application/json")

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()
	c.logger.Debug("huggingface request",
		zap.String("model", c.model),
		zap.Int("status", resp.StatusCode),
		zap.Duration("elapsed", time.Since(start)))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return &StatusError{StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(msg))}
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

// QuestionAnswerer answers questions with an extractive QA model.
type QuestionAnswerer struct {
	*Client
}

var _ inference.QuestionAnswerer = (*QuestionAnswerer)(nil)

// NewQuestionAnswerer returns a QA client for model.
func NewQuestionAnswerer(model, apiKey, baseURL string, opts ...Option) (*QuestionAnswerer, error) {
	c, err := New(model, apiKey, baseURL, opts...)
	if err != nil {
		return nil, err
	}
	return &QuestionAnswerer{Client: c}, nil
}

type qaRequest struct {
	Inputs qaInputs `json:"inputs"`
}

type qaInputs struct {
	Question string `json:"question"`
	Context  string `json:"context"`
}

// Answer posts the question and passage and returns the extracted span.
func (q *QuestionAnswerer) Answer(ctx context.Context, question, passage string) (*inference.Answer, error) {
	if err := inference.CheckQuestion(question, passage); err != nil {
		return nil, err
	}
	var ans inference.Answer
	if err := q.post(ctx, qaRequest{Inputs: qaInputs{Question: question, Context: passage}}, &ans); err != nil {
		return nil, err
	}
	ans.Text = strings.TrimSpace(ans.Text)
	return &ans, nil
}

// Summarizer condenses text with a summarization model.
type Summarizer struct {
	*Client
}

var _ inference.Summarizer = (*Summarizer)(nil)

// NewSummarizer returns a summarization client for model.
func NewSummarizer(model, apiKey, baseURL string, opts ...Option) (*Summarizer, error) {
	c, err := New(model, apiKey, baseURL, opts...)
	if err != nil {
		return nil, err
	}
	return &Summarizer{Client: c}, nil
}

type summarizeRequest struct {
	Inputs     string                     `json:"inputs"`
	Parameters inference.SummarizeOptions `json:"parameters"`
}

type summary struct {
	SummaryText string `json:"summary_text"`
}

// Summarize posts text with the length bounds and returns the first summary.
func (s *Summarizer) Summarize(ctx context.Context, text string, opts inference.SummarizeOptions) (string, error) {
	if strings.TrimSpace(text) == "" {
		return "", inference.ErrEmptyContext
	}
	var out []summary
	if err := s.post(ctx, summarizeRequest{Inputs: text, Parameters: opts}, &out); err != nil {
		return "", err
	}
	if len(out) == 0 {
		return "", errors.New("huggingface: no summary returned")
	}
	return strings.TrimSpace(out[0].SummaryText), nil
}
