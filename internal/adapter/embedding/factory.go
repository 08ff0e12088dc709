package embedding

import (
	"errors"
	"fmt"
	"os"

	"medrag/config"
	"medrag/internal/port"
)

// New builds the embedder described by cfg. lookup resolves the API key
// variable and defaults to os.LookupEnv.
func New(cfg config.EmbeddingConfig, lookup func(string) (string, bool)) (port.Embedder, error) {
	if lookup == nil {
		lookup = os.LookupEnv
	}
	apiKey, _ := lookup(cfg.APIKeyEnv)

	switch cfg.Provider {
	case "ollama":
		return NewOllamaEmbedder(cfg.Model, cfg.BaseURL, cfg.Dimension)
	case "openai":
		if apiKey == "" {
			return nil, fmt.Errorf("API key not found in environment variable: %s", cfg.APIKeyEnv)
		}
		return NewOpenAIEmbedder(apiKey, cfg.Model, cfg.BaseURL, cfg.Dimension)
	case "compatible":
		return NewCompatibleEmbedder(apiKey, cfg.Model, cfg.BaseURL, cfg.Dimension)
	case "hash":
		if cfg.Dimension <= 0 {
			return nil, errors.New("hash embedder requires a positive dimension")
		}
		return NewHashEmbedder(cfg.Dimension), nil
	default:
		return nil, fmt.Errorf("unsupported embedding provider: %s", cfg.Provider)
	}
}

// NewForQueries wraps the configured embedder in an LRU cache.
func NewForQueries(cfg config.EmbeddingConfig, lookup func(string) (string, bool)) (port.Embedder, error) {
	inner, err := New(cfg, lookup)
	if err != nil {
		return nil, err
	}
	if cfg.CacheSize <= 0 {
		return inner, nil
	}
	return NewCachedEmbedder(inner, cfg.CacheSize, cfg.CacheTTL), nil
}
