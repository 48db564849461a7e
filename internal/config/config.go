// Package config provides configuration loading and structs for the Tanya server.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all configuration for the application.
type Config struct {
	Debug     bool            `yaml:"debug"`
	LogLevel  string          `yaml:"log_level"`
	Server    ServerConfig    `yaml:"server"`
	Library   LibraryConfig   `yaml:"library"`
	Spell     SpellConfig     `yaml:"spell"`
	Search    SearchConfig    `yaml:"search"`
	Inference InferenceConfig `yaml:"inference"`
	Watch     WatchConfig     `yaml:"watch"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host           string `yaml:"host"`
	Port           int    `yaml:"port"`
	MaxUploadBytes int64  `yaml:"max_upload_bytes"`
}

// LibraryConfig holds the root of the Year_/Semester_ folder tree.
type LibraryConfig struct {
	Root string `yaml:"root"`
}

// SpellConfig holds spelling-correction settings.
type SpellConfig struct {
	// Enabled defaults to true when unset.
	Enabled *bool `yaml:"enabled"`
	// LexiconPath is an optional word list ("word" or "word count" per line).
	LexiconPath string `yaml:"lexicon_path"`
	// IndexPath stores the corpus dictionary on disk; empty keeps it in memory.
	IndexPath     string `yaml:"index_path"`
	MaxDistance   int    `yaml:"max_distance"`
	MinWordLength int    `yaml:"min_word_length"`
	CacheSize     int    `yaml:"cache_size"`
	// FullDistanceTerms is the dictionary size from which max_distance applies in full;
	// below it only single-edit corrections are made.
	FullDistanceTerms int `yaml:"full_distance_terms"`
}

// EnabledOrDefault returns whether spelling correction runs; defaults to true when unset.
func (s *SpellConfig) EnabledOrDefault() bool {
	if s.Enabled != nil {
		return *s.Enabled
	}
	return true
}

// SearchConfig holds query pipeline settings.
type SearchConfig struct {
	// Parallelism is the number of documents searched at once; 1 keeps folder order strictly sequential.
	Parallelism   int           `yaml:"parallelism"`
	TextCacheSize int           `yaml:"text_cache_size"`
	QueryTimeout  time.Duration `yaml:"query_timeout"`
}

// InferenceConfig selects and bounds the question-answering and summarization providers.
type InferenceConfig struct {
	QA            ProviderConfig `yaml:"qa"`
	Summarizer    ProviderConfig `yaml:"summarizer"`
	MaxConcurrent int            `yaml:"max_concurrent"`
	Timeout       time.Duration  `yaml:"timeout"`
}

// ProviderConfig configures one inference provider.
type ProviderConfig struct {
	// Provider is one of "huggingface", "ollama", or "onnx" (question answering only).
	Provider string `yaml:"provider"`
	Model    string `yaml:"model"`
	BaseURL  string `yaml:"base_url"`
	APIKey   string `yaml:"api_key"`
	// RateLimit caps outbound requests per second; 0 disables the limit.
	RateLimit float64    `yaml:"rate_limit"`
	ONNX      ONNXConfig `yaml:"onnx"`
}

// ONNXConfig holds settings for the local extractive QA model.
type ONNXConfig struct {
	ModelPath       string `yaml:"model_path"`
	VocabPath       string `yaml:"vocab_path"`
	LibraryPath     string `yaml:"library_path"`
	MaxSeqLen       int    `yaml:"max_seq_len"`
	DocStride       int    `yaml:"doc_stride"`
	MaxAnswerTokens int    `yaml:"max_answer_tokens"`
	UseTokenTypeIDs bool   `yaml:"use_token_type_ids"`
	// Lowercase defaults to false (cased vocabularies) when unset.
	Lowercase bool `yaml:"lowercase"`
}

// WatchConfig holds library watch settings.
type WatchConfig struct {
	// Enabled defaults to true when unset.
	Enabled  *bool         `yaml:"enabled"`
	Debounce time.Duration `yaml:"debounce"`
}

// EnabledOrDefault returns whether to watch the library; defaults to true when unset.
func (w *WatchConfig) EnabledOrDefault() bool {
	if w.Enabled != nil {
		return *w.Enabled
	}
	return true
}

// Load reads and parses the config file at path, applies environment overrides,
// expands paths, and applies defaults.
// Returns an error if the file cannot be read or parsed.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if err := ApplyEnv(&cfg, os.Getenv); err != nil {
		return nil, err
	}
	ApplyDefaults(&cfg)

	configDir := filepath.Dir(path)
	ExpandPaths(&cfg, configDir)

	return &cfg, nil
}

// ExpandPaths makes every filesystem path in cfg absolute relative to configDir.
func ExpandPaths(cfg *Config, configDir string) {
	cfg.Library.Root = expandPath(cfg.Library.Root, configDir)
	cfg.Spell.LexiconPath = expandPath(cfg.Spell.LexiconPath, configDir)
	cfg.Spell.IndexPath = expandPath(cfg.Spell.IndexPath, configDir)
	for _, p := range []*ProviderConfig{&cfg.Inference.QA, &cfg.Inference.Summarizer} {
		p.ONNX.ModelPath = expandPath(p.ONNX.ModelPath, configDir)
		p.ONNX.VocabPath = expandPath(p.ONNX.VocabPath, configDir)
		p.ONNX.LibraryPath = expandPath(p.ONNX.LibraryPath, configDir)
	}
}

// Save writes the config to path.
func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

// expandPath converts a path to absolute. Paths starting with "./" are relative to configDir;
// other relative paths are relative to the home directory. Empty paths stay empty.
func expandPath(path string, configDir string) string {
	if path == "" || filepath.IsAbs(path) {
		return path
	}
	if strings.HasPrefix(path, "./") || path == "." {
		return filepath.Join(configDir, path)
	}
	if home, err := os.UserHomeDir(); err == nil {
		return filepath.Join(home, path)
	}
	return path
}
