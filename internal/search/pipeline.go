// Package search answers free-text queries against the PDFs of one library folder.
package search

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/hyperjump/tanya/internal/cache"
	"github.com/hyperjump/tanya/internal/extract"
	"github.com/hyperjump/tanya/internal/inference"
	"github.com/hyperjump/tanya/internal/library"
	"github.com/hyperjump/tanya/internal/metrics"
	"github.com/hyperjump/tanya/internal/models"
	"github.com/hyperjump/tanya/pkg/utils"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const (
	// AnswerSummaryThreshold is the answer length (in characters) above which it is summarized.
	AnswerSummaryThreshold = 200
	// SummaryMinLength and SummaryMaxLength bound the summary of a long answer.
	SummaryMinLength = 50
	SummaryMaxLength = 200
)

// Per-document messages returned in place of an answer.
const (
	MsgNoPages        = "No pages found in the PDF."
	MsgPageErrorFmt   = "Error processing page: %v"
	MsgReadErrorFmt   = "Error reading PDF: %v"
	defaultTextCache  = 256
	defaultParallel   = 1
	logAnswerMaxBytes = 80
)

// ErrEmptyQuery is returned when the query has no non-space characters.
var ErrEmptyQuery = errors.New("query is empty")

// Library lists the PDFs of a folder.
type Library interface {
	FolderPath(folder models.Folder) string
	ListPDFs(folder models.Folder) ([]string, error)
}

// Speller corrects the spelling of whitespace-separated text.
type Speller interface {
	CorrectText(text string) string
}

type cachedText struct {
	size  int64
	mtime time.Time
	text  string
}

// Pipeline runs the document query pipeline: correct the query, then extract, correct,
// answer, and (for long answers) summarize every PDF in the folder.
type Pipeline struct {
	library     Library
	extractor   extract.Extractor
	speller     Speller
	qa          inference.QuestionAnswerer
	summarizer  inference.Summarizer
	metrics     *metrics.Metrics
	logger      *zap.Logger
	parallelism int
	texts       *cache.LRU[string, cachedText]
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(p *Pipeline) {
		if l != nil {
			p.logger = l
		}
	}
}

// WithMetrics records query and document outcomes.
func WithMetrics(m *metrics.Metrics) Option {
	return func(p *Pipeline) { p.metrics = m }
}

// WithParallelism sets how many documents of a folder are searched at once.
// Results are always returned in filename order.
func WithParallelism(n int) Option {
	return func(p *Pipeline) {
		if n > 0 {
			p.parallelism = n
		}
	}
}

// WithTextCacheSize sets how many corrected document texts are kept. Zero disables the cache.
func WithTextCacheSize(n int) Option {
	return func(p *Pipeline) {
		if n >= 0 {
			p.texts = cache.NewLRU[string, cachedText](n)
		}
	}
}

// NewPipeline creates a pipeline over the given capabilities.
func NewPipeline(
	lib Library,
	extractor extract.Extractor,
	speller Speller,
	qa inference.QuestionAnswerer,
	summarizer inference.Summarizer,
	opts ...Option,
) *Pipeline {
	p := &Pipeline{
		library:     lib,
		extractor:   extractor,
		speller:     speller,
		qa:          qa,
		summarizer:  summarizer,
		logger:      zap.NewNop(),
		parallelism: defaultParallel,
		texts:       cache.NewLRU[string, cachedText](defaultTextCache),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Query answers query against every PDF in folder. A folder that does not exist yields
// library.ErrFolderNotFound (from the Library). A folder where no document produced an
// answer yields models.NoResultsMessage. Per-document failures are reported inline.
func (p *Pipeline) Query(ctx context.Context, folder models.Folder, query string) (*models.QueryResult, error) {
	start := time.Now()
	res, err := p.query(ctx, folder, query)
	status := metrics.StatusOK
	switch {
	case err != nil && ctx.Err() == nil && isClientError(err):
		status = metrics.StatusClientError
	case err != nil:
		status = metrics.StatusError
	case len(res.Documents) == 0:
		status = metrics.StatusNoResults
	}
	p.metrics.ObserveQuery(status, time.Since(start))
	if err != nil {
		return nil, err
	}
	res.Elapsed = time.Since(start)
	res.ElapsedMillis = res.Elapsed.Milliseconds()
	p.logger.Info("query answered",
		zap.String("folder", folder.RelPath()),
		zap.String("query", query),
		zap.String("corrected_query", res.CorrectedQuery),
		zap.Int("answers", len(res.Documents)),
		zap.Duration("elapsed", res.Elapsed))
	return res, nil
}

func (p *Pipeline) query(ctx context.Context, folder models.Folder, query string) (*models.QueryResult, error) {
	if err := folder.Validate(); err != nil {
		return nil, err
	}
	if strings.TrimSpace(query) == "" {
		return nil, ErrEmptyQuery
	}
	corrected := p.speller.CorrectText(query)

	files, err := p.library.ListPDFs(folder)
	if err != nil {
		return nil, err
	}
	dir := p.library.FolderPath(folder)

	answers := make([]string, len(files))
	var g errgroup.Group
	g.SetLimit(p.parallelism)
	for i, name := range files {
		g.Go(func() error {
			if ctx.Err() != nil {
				return nil
			}
			answers[i] = p.SearchDocument(ctx, filepath.Join(dir, name), corrected)
			return nil
		})
	}
	_ = g.Wait()
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("query interrupted: %w", err)
	}

	res := &models.QueryResult{CorrectedQuery: corrected, Documents: []models.DocumentResult{}}
	for i, name := range files {
		if answers[i] == "" {
			continue
		}
		res.Documents = append(res.Documents, models.DocumentResult{Filename: name, Answer: answers[i]})
	}
	res.Answer = models.RenderAnswer(res.Documents)
	return res, nil
}

// SearchDocument answers query from the PDF at path. It never fails: extraction and
// inference errors are returned as descriptive text, and an empty string means the
// document had no answer.
func (p *Pipeline) SearchDocument(ctx context.Context, path, query string) string {
	answer, outcome := p.searchDocument(ctx, path, query)
	p.metrics.ObserveDocument(outcome)
	p.logger.Debug("document searched",
		zap.String("path", path),
		zap.String("outcome", outcome),
		zap.String("answer", utils.Truncate(answer, logAnswerMaxBytes)))
	return answer
}

func (p *Pipeline) searchDocument(ctx context.Context, path, query string) (string, string) {
	text, err := p.documentText(ctx, path)
	if err != nil {
		var pageErr *extract.PageError
		switch {
		case errors.Is(err, extract.ErrNoPages):
			return MsgNoPages, metrics.OutcomeNoPages
		case errors.As(err, &pageErr):
			return fmt.Sprintf(MsgPageErrorFmt, pageErr), metrics.OutcomePageError
		default:
			p.logger.Warn("failed to read document", zap.String("path", path), zap.Error(err))
			return fmt.Sprintf(MsgReadErrorFmt, err), metrics.OutcomeReadError
		}
	}
	if strings.TrimSpace(text) == "" {
		return "", metrics.OutcomeEmpty
	}

	ans, err := p.qa.Answer(ctx, query, text)
	if err != nil {
		p.logger.Warn("question answering failed", zap.String("path", path), zap.Error(err))
		return fmt.Sprintf(MsgReadErrorFmt, err), metrics.OutcomeQAError
	}
	answer := strings.TrimSpace(ans.Text)
	if answer == "" {
		return "", metrics.OutcomeEmpty
	}
	if utf8.RuneCountInString(answer) <= AnswerSummaryThreshold {
		return answer, metrics.OutcomeAnswered
	}
	return p.summarize(ctx, path, answer), metrics.OutcomeAnswered
}

// summarize shortens a long answer. When the summarizer fails or returns nothing, the
// answer itself is cut at a word boundary instead.
func (p *Pipeline) summarize(ctx context.Context, path, answer string) string {
	summary, err := p.summarizer.Summarize(ctx, answer, inference.SummarizeOptions{
		MinLength: SummaryMinLength,
		MaxLength: SummaryMaxLength,
		DoSample:  false,
	})
	p.metrics.ObserveSummarization(err)
	if err != nil {
		p.logger.Warn("summarization failed", zap.String("path", path), zap.Error(err))
		summary = ""
	}
	summary = strings.TrimSpace(summary)
	if summary == "" {
		summary = answer
	}
	return utils.TruncateAtWord(summary, SummaryMaxLength)
}

// documentText returns the spell-corrected text of the PDF at path, from cache when the
// file's size and modification time are unchanged.
func (p *Pipeline) documentText(ctx context.Context, path string) (string, error) {
	info, err := os.Stat(path)
	if err != nil {
		return "", err
	}
	if c, ok := p.texts.Get(path); ok && c.size == info.Size() && c.mtime.Equal(info.ModTime()) {
		p.metrics.ObserveTextCache(true)
		return c.text, nil
	}
	p.metrics.ObserveTextCache(false)

	extracted, err := p.extractor.Extract(ctx, path)
	if err != nil {
		return "", err
	}
	corrected := p.speller.CorrectText(extracted.Content)
	p.texts.Set(path, cachedText{size: info.Size(), mtime: info.ModTime(), text: corrected})
	return corrected, nil
}

// Invalidate drops the cached text of the file at path.
func (p *Pipeline) Invalidate(path string) {
	p.texts.Delete(path)
}

// InvalidateAll drops every cached text.
func (p *Pipeline) InvalidateAll() {
	p.texts.Purge()
}

// CachedTexts returns how many document texts are cached.
func (p *Pipeline) CachedTexts() int {
	return p.texts.Len()
}

func isClientError(err error) bool {
	return errors.Is(err, models.ErrInvalidFolder) || errors.Is(err, ErrEmptyQuery) || errors.Is(err, library.ErrFolderNotFound)
}
