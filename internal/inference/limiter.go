package inference

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/semaphore"
)

// Limiter bounds the number of concurrent inference calls and the duration of each call.
// One Limiter is shared by the question answerer and the summarizer so the total load on a
// single model host stays bounded.
type Limiter struct {
	sem     *semaphore.Weighted
	timeout time.Duration
}

// NewLimiter returns a Limiter allowing maxConcurrent calls at once (minimum 1).
// A zero timeout leaves calls bounded only by the caller's context.
func NewLimiter(maxConcurrent int, timeout time.Duration) *Limiter {
	if maxConcurrent < 1 {
		maxConcurrent = 1
	}
	return &Limiter{sem: semaphore.NewWeighted(int64(maxConcurrent)), timeout: timeout}
}

// Do waits for a slot and runs fn with the per-call timeout applied.
func (l *Limiter) Do(ctx context.Context, fn func(ctx context.Context) error) error {
	if err := l.sem.Acquire(ctx, 1); err != nil {
		return fmt.Errorf("waiting for inference slot: %w", err)
	}
	defer l.sem.Release(1)
	if l.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, l.timeout)
		defer cancel()
	}
	return fn(ctx)
}

// QuestionAnswerer wraps qa so every call goes through the limiter.
func (l *Limiter) QuestionAnswerer(qa QuestionAnswerer) QuestionAnswerer {
	return &limitedQA{limiter: l, next: qa}
}

// Summarizer wraps s so every call goes through the limiter.
func (l *Limiter) Summarizer(s Summarizer) Summarizer {
	return &limitedSummarizer{limiter: l, next: s}
}

type limitedQA struct {
	limiter *Limiter
	next    QuestionAnswerer
}

func (q *limitedQA) Answer(ctx context.Context, question, passage string) (*Answer, error) {
	var ans *Answer
	err := q.limiter.Do(ctx, func(ctx context.Context) error {
		var err error
		ans, err = q.next.Answer(ctx, question, passage)
		return err
	})
	return ans, err
}

type limitedSummarizer struct {
	limiter *Limiter
	next    Summarizer
}

func (s *limitedSummarizer) Summarize(ctx context.Context, text string, opts SummarizeOptions) (string, error) {
	var out string
	err := s.limiter.Do(ctx, func(ctx context.Context) error {
		var err error
		out, err = s.next.Summarize(ctx, text, opts)
		return err
	})
	return out, err
}
