package embedder

import (
	"fmt"
)

func New(cfg Config) (Embedder, error) {
	var base Embedder

	switch cfg.Provider {
	case "ollama":
		baseURL := cfg.BaseURL
		if baseURL == "" {
			baseURL = "http://localhost:11434"
		}
		model := cfg.Model
		if model == "" {
			model = "nomic-embed-text"
		}
		base = newOllama(baseURL, model)
	case "openai":
		baseURL := cfg.BaseURL
		if baseURL == "" {
			baseURL = "https://api.openai.com/v1"
		}
		model := cfg.Model
		if model == "" {
			model = "text-embedding-3-large"
		}
		base = newOpenAI(cfg.APIKey, baseURL, model)
	default:
		return nil, fmt.Errorf("unknown embedder provider: %s", cfg.Provider)
	}

	if cfg.CacheSize <= 0 {
		return base, nil
	}

	return NewCached(base, cfg.CacheSize)
}
