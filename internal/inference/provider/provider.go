// Package provider builds question answerers and summarizers from configuration.
package provider

import (
	"fmt"
	"io"

	"github.com/hyperjump/tanya/internal/config"
	"github.com/hyperjump/tanya/internal/inference"
	"github.com/hyperjump/tanya/internal/inference/huggingface"
	"github.com/hyperjump/tanya/internal/inference/ollama"
	"go.uber.org/zap"
)

// NewQuestionAnswerer creates the question answerer named by cfg.Provider.
// Supported providers: "huggingface" (default), "ollama", "onnx".
// The returned closer releases model resources and is never nil.
func NewQuestionAnswerer(cfg config.ProviderConfig, logger *zap.Logger) (inference.QuestionAnswerer, io.Closer, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	switch cfg.Provider {
	case config.ProviderHuggingFace, "":
		qa, err := huggingface.NewQuestionAnswerer(cfg.Model, cfg.APIKey, cfg.BaseURL,
			huggingface.WithRateLimit(cfg.RateLimit),
			huggingface.WithLogger(logger))
		if err != nil {
			return nil, nopCloser{}, err
		}
		return qa, nopCloser{}, nil
	case config.ProviderOllama:
		qa, err := ollama.NewQuestionAnswerer(cfg.Model, cfg.BaseURL, ollama.WithLogger(logger))
		if err != nil {
			return nil, nopCloser{}, err
		}
		return qa, nopCloser{}, nil
	case config.ProviderONNX:
		qa, err := inference.NewONNXQuestionAnswerer(inference.ONNXOptions{
			ModelPath:       cfg.ONNX.ModelPath,
			VocabPath:       cfg.ONNX.VocabPath,
			LibraryPath:     cfg.ONNX.LibraryPath,
			MaxSeqLen:       cfg.ONNX.MaxSeqLen,
			DocStride:       cfg.ONNX.DocStride,
			MaxAnswerTokens: cfg.ONNX.MaxAnswerTokens,
			UseTokenTypeIDs: cfg.ONNX.UseTokenTypeIDs,
			Lowercase:       cfg.ONNX.Lowercase,
		})
		if err != nil {
			return nil, nopCloser{}, err
		}
		return qa, qa, nil
	default:
		return nil, nopCloser{}, fmt.Errorf("unknown question answering provider: %s (supported: huggingface, ollama, onnx)", cfg.Provider)
	}
}

// NewSummarizer creates the summarizer named by cfg.Provider.
// Supported providers: "huggingface" (default), "ollama".
func NewSummarizer(cfg config.ProviderConfig, logger *zap.Logger) (inference.Summarizer, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	switch cfg.Provider {
	case config.ProviderHuggingFace, "":
		s, err := huggingface.NewSummarizer(cfg.Model, cfg.APIKey, cfg.BaseURL,
			huggingface.WithRateLimit(cfg.RateLimit),
			huggingface.WithLogger(logger))
		if err != nil {
			return nil, err
		}
		return s, nil
	case config.ProviderOllama:
		s, err := ollama.NewSummarizer(cfg.Model, cfg.BaseURL, ollama.WithLogger(logger))
		if err != nil {
			return nil, err
		}
		return s, nil
	case config.ProviderONNX:
		return nil, fmt.Errorf("summarization is not supported by the %s provider", cfg.Provider)
	default:
		return nil, fmt.Errorf("unknown summarization provider: %s (supported: huggingface, ollama)", cfg.Provider)
	}
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
