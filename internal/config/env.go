package config

import (
	"fmt"
	"strconv"
)

// Environment variables that override file settings. Secrets such as the
// HuggingFace token are expected here (or in a .env file) rather than in YAML.
const (
	EnvHuggingFaceToken = "TANYA_HF_TOKEN"
	EnvOllamaURL        = "TANYA_OLLAMA_URL"
	EnvLibraryRoot      = "TANYA_LIBRARY_ROOT"
	EnvPort             = "TANYA_PORT"
	EnvDebug            = "TANYA_DEBUG"
)

// ApplyEnv overrides cfg with values found through getenv. Empty variables are ignored.
func ApplyEnv(cfg *Config, getenv func(string) string) error {
	if v := getenv(EnvHuggingFaceToken); v != "" {
		for _, p := range []*ProviderConfig{&cfg.Inference.QA, &cfg.Inference.Summarizer} {
			if p.APIKey == "" {
				p.APIKey = v
			}
		}
	}
	if v := getenv(EnvOllamaURL); v != "" {
		for _, p := range []*ProviderConfig{&cfg.Inference.QA, &cfg.Inference.Summarizer} {
			if p.Provider == ProviderOllama {
				p.BaseURL = v
			}
		}
	}
	if v := getenv(EnvLibraryRoot); v != "" {
		cfg.Library.Root = v
	}
	if v := getenv(EnvPort); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid %s %q: %w", EnvPort, v, err)
		}
		cfg.Server.Port = port
	}
	if v := getenv(EnvDebug); v != "" {
		debug, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("invalid %s %q: %w", EnvDebug, v, err)
		}
		cfg.Debug = debug
	}
	return nil
}
