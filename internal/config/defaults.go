package config

import "time"

// Provider names accepted in inference.qa.provider and inference.summarizer.provider.
const (
	ProviderHuggingFace = "huggingface"
	ProviderOllama      = "ollama"
	ProviderONNX        = "onnx"
)

const (
	defaultHuggingFaceURL = "https://api-inference.huggingface.co/models/"
	defaultOllamaURL      = "http://localhost:11434"
)

// ApplyDefaults sets default values for any zero values in cfg.
func ApplyDefaults(cfg *Config) {
	if cfg.Server.Host == "" {
		cfg.Server.Host = "localhost"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 5000
	}
	if cfg.Server.MaxUploadBytes == 0 {
		cfg.Server.MaxUploadBytes = 64 << 20
	}
	if cfg.Library.Root == "" {
		cfg.Library.Root = "/usr/local/var/tanya/uploads"
	}
	if cfg.Spell.MaxDistance == 0 {
		cfg.Spell.MaxDistance = 2
	}
	if cfg.Spell.MinWordLength == 0 {
		cfg.Spell.MinWordLength = 3
	}
	if cfg.Spell.CacheSize == 0 {
		cfg.Spell.CacheSize = 50000
	}
	if cfg.Spell.FullDistanceTerms == 0 {
		cfg.Spell.FullDistanceTerms = 20000
	}
	if cfg.Search.Parallelism == 0 {
		cfg.Search.Parallelism = 1
	}
	if cfg.Search.TextCacheSize == 0 {
		cfg.Search.TextCacheSize = 256
	}
	if cfg.Search.QueryTimeout == 0 {
		cfg.Search.QueryTimeout = 5 * time.Minute
	}
	if cfg.Inference.MaxConcurrent == 0 {
		cfg.Inference.MaxConcurrent = 1
	}
	if cfg.Inference.Timeout == 0 {
		cfg.Inference.Timeout = 60 * time.Second
	}
	if cfg.Inference.QA.Provider == "" {
		cfg.Inference.QA.Provider = ProviderHuggingFace
	}
	if cfg.Inference.QA.Model == "" {
		cfg.Inference.QA.Model = defaultModel(cfg.Inference.QA.Provider, "distilbert/distilbert-base-cased-distilled-squad")
	}
	if cfg.Inference.Summarizer.Provider == "" {
		cfg.Inference.Summarizer.Provider = ProviderHuggingFace
	}
	if cfg.Inference.Summarizer.Model == "" {
		cfg.Inference.Summarizer.Model = defaultModel(cfg.Inference.Summarizer.Provider, "facebook/bart-large-cnn")
	}
	applyProviderDefaults(&cfg.Inference.QA)
	applyProviderDefaults(&cfg.Inference.Summarizer)
	if cfg.Watch.Debounce == 0 {
		cfg.Watch.Debounce = 400 * time.Millisecond
	}
}

func defaultModel(provider, huggingFaceModel string) string {
	switch provider {
	case ProviderOllama:
		return "llama3"
	case ProviderONNX:
		return "distilbert-squad"
	default:
		return huggingFaceModel
	}
}

func applyProviderDefaults(p *ProviderConfig) {
	if p.BaseURL == "" {
		switch p.Provider {
		case ProviderHuggingFace:
			p.BaseURL = defaultHuggingFaceURL
		case ProviderOllama:
			p.BaseURL = defaultOllamaURL
		}
	}
	if p.ONNX.MaxSeqLen == 0 {
		p.ONNX.MaxSeqLen = 384
	}
	if p.ONNX.DocStride == 0 {
		p.ONNX.DocStride = 128
	}
	if p.ONNX.MaxAnswerTokens == 0 {
		p.ONNX.MaxAnswerTokens = 15
	}
}
