// Package ollama answers questions and summarizes text with a local Ollama server.
package ollama

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/hyperjump/tanya/internal/inference"
	olla "github.com/ollama/ollama/api"
	"go.uber.org/zap"
)

// DefaultBaseURL is where a local Ollama server listens.
const DefaultBaseURL = "http://localhost:11434"

// NoAnswer is what the model is told to reply when the passage does not answer the question.
const NoAnswer = "NO_ANSWER"

const qaSystemPrompt = `You answer questions using only the provided document text.
Reply with the shortest span of the document that answers the question, copied verbatim.
If the document does not contain the answer, reply with ` + NoAnswer + ` and nothing else.`

const summarySystemPrompt = `You summarize text. Reply with the summary only, no preamble.`

// Client generates completions with one Ollama model.
type Client struct {
	api    *olla.Client
	model  string
	logger *zap.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(c *Client) {
		if l != nil {
			c.logger = l
		}
	}
}

// New returns a client for model at baseURL (DefaultBaseURL when empty).
func New(model, baseURL string, opts ...Option) (*Client, error) {
	if model == "" {
		return nil, errors.New("ollama: model is required")
	}
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	parsedURL, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid base URL: %w", err)
	}
	hc := &http.Client{Timeout: 120 * time.Second}
	c := &Client{
		api:    olla.NewClient(parsedURL, hc),
		model:  model,
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Model returns the model name.
func (c *Client) Model() string { return c.model }

func (c *Client) generate(ctx context.Context, system, prompt string, options map[string]any) (string, error) {
	var out strings.Builder
	start := time.Now()
	err := c.api.Generate(ctx, &olla.GenerateRequest{
		Model:   c.model,
		System:  system,
		Prompt:  prompt,
		Stream:  &[]bool{false}[0],
		Options: options,
	}, func(resp olla.GenerateResponse) error {
		out.WriteString(resp.Response)
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("failed to generate content with ollama: %w", err)
	}
	c.logger.Debug("ollama generate",
		zap.String("model", c.model),
		zap.Duration("elapsed", time.Since(start)))
	return strings.TrimSpace(out.String()), nil
}

// QuestionAnswerer answers questions by prompting the model with the passage.
type QuestionAnswerer struct {
	*Client
}

var _ inference.QuestionAnswerer = (*QuestionAnswerer)(nil)

// NewQuestionAnswerer returns a QA client for model.
func NewQuestionAnswerer(model, baseURL string, opts ...Option) (*QuestionAnswerer, error) {
	c, err := New(model, baseURL, opts...)
	if err != nil {
		return nil, err
	}
	return &QuestionAnswerer{Client: c}, nil
}

// Answer returns the model's reply. A NoAnswer reply becomes an empty answer. When the reply
// occurs verbatim in the passage its offsets are reported.
func (q *QuestionAnswerer) Answer(ctx context.Context, question, passage string) (*inference.Answer, error) {
	if err := inference.CheckQuestion(question, passage); err != nil {
		return nil, err
	}
	prompt := "Document:\n" + passage + "\n\nQuestion: " + question + "\nAnswer:"
	text, err := q.generate(ctx, qaSystemPrompt, prompt, map[string]any{"temperature": 0})
	if err != nil {
		return nil, err
	}
	text = strings.Trim(text, "\"")
	if text == "" || strings.Contains(text, NoAnswer) {
		return &inference.Answer{}, nil
	}
	ans := &inference.Answer{Text: text, Start: -1, End: -1}
	if i := strings.Index(passage, text); i >= 0 {
		ans.Start, ans.End = i, i+len(text)
		ans.Score = 1
	}
	return ans, nil
}

// Summarizer condenses text by prompting the model.
type Summarizer struct {
	*Client
}

var _ inference.Summarizer = (*Summarizer)(nil)

// NewSummarizer returns a summarization client for model.
func NewSummarizer(model, baseURL string, opts ...Option) (*Summarizer, error) {
	c, err := New(model, baseURL, opts...)
	if err != nil {
		return nil, err
	}
	return &Summarizer{Client: c}, nil
}

// Summarize asks for a summary between opts.MinLength and opts.MaxLength characters.
// Sampling is turned off unless opts.DoSample is set.
func (s *Summarizer) Summarize(ctx context.Context, text string, opts inference.SummarizeOptions) (string, error) {
	if strings.TrimSpace(text) == "" {
		return "", inference.ErrEmptyContext
	}
	prompt := fmt.Sprintf("Summarize the following text in %d to %d characters.\n\n%s",
		opts.MinLength, opts.MaxLength, text)
	options := map[string]any{}
	if !opts.DoSample {
		options["temperature"] = 0
	}
	if opts.MaxLength > 0 {
		// Roughly four characters per token; leave room for the model to finish a sentence.
		options["num_predict"] = opts.MaxLength/4 + 16
	}
	out, err := s.generate(ctx, summarySystemPrompt, prompt, options)
	if err != nil {
		return "", err
	}
	if out == "" {
		return "", errors.New("ollama: empty summary")
	}
	return out, nil
}
