// Package inference defines the question-answering and summarization capabilities used by
// the query pipeline and bounds how many calls run at once.
package inference

import (
	"context"
	"errors"
	"strings"
)

// ErrEmptyContext is returned when a question is asked against an empty context.
var ErrEmptyContext = errors.New("context is empty")

// ErrEmptyQuestion is returned when the question is blank.
var ErrEmptyQuestion = errors.New("question is empty")

// Answer is an extractive answer to a question.
type Answer struct {
	Text  string  `json:"answer"`
	Score float64 `json:"score"`
	// Start and End are byte offsets of Text in the context, when the provider reports them.
	Start int `json:"start"`
	End   int `json:"end"`
}

// QuestionAnswerer answers a question from a passage of text.
type QuestionAnswerer interface {
	Answer(ctx context.Context, question, passage string) (*Answer, error)
}

// SummarizeOptions bound the length of a summary, in characters for remote models and
// tokens for models that count tokens.
type SummarizeOptions struct {
	MinLength int  `json:"min_length"`
	MaxLength int  `json:"max_length"`
	DoSample  bool `json:"do_sample"`
}

// DefaultSummarizeOptions returns the options used for long answers.
func DefaultSummarizeOptions() SummarizeOptions {
	return SummarizeOptions{MinLength: 50, MaxLength: 200, DoSample: false}
}

// Summarizer condenses text.
type Summarizer interface {
	Summarize(ctx context.Context, text string, opts SummarizeOptions) (string, error)
}

// CheckQuestion validates question answering input shared by all providers.
func CheckQuestion(question, passage string) error {
	if strings.TrimSpace(question) == "" {
		return ErrEmptyQuestion
	}
	if strings.TrimSpace(passage) == "" {
		return ErrEmptyContext
	}
	return nil
}
