// Package mock provides function-field implementations of the service interfaces for tests.
package mock

import (
	"context"

	"github.com/hyperjump/tanya/internal/inference"
)

var _ inference.QuestionAnswerer = (*QuestionAnswerer)(nil)

// QuestionAnswerer is a mock implementation of inference.QuestionAnswerer.
type QuestionAnswerer struct {
	AnswerFn func(ctx context.Context, question, passage string) (*inference.Answer, error)
}

func (q *QuestionAnswerer) Answer(ctx context.Context, question, passage string) (*inference.Answer, error) {
	return q.AnswerFn(ctx, question, passage)
}

var _ inference.Summarizer = (*Summarizer)(nil)

// Summarizer is a mock implementation of inference.Summarizer.
type Summarizer struct {
	SummarizeFn func(ctx context.Context, text string, opts inference.SummarizeOptions) (string, error)
}

func (s *Summarizer) Summarize(ctx context.Context, text string, opts inference.SummarizeOptions) (string, error) {
	return s.SummarizeFn(ctx, text, opts)
}
