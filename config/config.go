package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all configuration for the medrag service.
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Index     IndexConfig     `yaml:"index"`
	Ingest    IngestConfig    `yaml:"ingest"`
	Embedding EmbeddingConfig `yaml:"embedding"`
	Retrieve  RetrieveConfig  `yaml:"retrieve"`
	LLM       LLMConfig       `yaml:"llm"`
	Logging   LoggingConfig   `yaml:"logging"`
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Addr            string        `yaml:"addr"`
	AllowedOrigins  []string      `yaml:"allowed_origins"`
	RequestTimeout  time.Duration `yaml:"request_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

// IndexConfig locates the index file on disk.
type IndexConfig struct {
	Dir  string `yaml:"dir"`
	Name string `yaml:"name"`
}

// IngestConfig holds corpus ingestion configuration.
type IngestConfig struct {
	Sources      []string `yaml:"sources"`
	Includes     []string `yaml:"includes"`
	Excludes     []string `yaml:"excludes"`
	ChunkSize    int      `yaml:"chunk_size"`
	ChunkOverlap int      `yaml:"chunk_overlap"`
	Workers      int      `yaml:"workers"`
}

// EmbeddingConfig holds embedding configuration.
type EmbeddingConfig struct {
	Provider  string        `yaml:"provider"`    // "ollama", "openai", "compatible", "hash"
	Model     string        `yaml:"model"`       // e.g., "all-minilm"
	BaseURL   string        `yaml:"base_url"`    // empty = provider default
	APIKeyEnv string        `yaml:"api_key_env"` // Environment variable for API key
	Dimension int           `yaml:"dimension"`   // 0 = derived from model
	BatchSize int           `yaml:"batch_size"`
	CacheSize int           `yaml:"cache_size"`
	CacheTTL  time.Duration `yaml:"cache_ttl"`
}

// RetrieveConfig holds retrieval configuration.
type RetrieveConfig struct {
	TopK           int     `yaml:"top_k"`
	SearchType     string  `yaml:"search_type"` // "similarity" or "mmr"
	FetchK         int     `yaml:"fetch_k"`
	MMRLambda      float64 `yaml:"mmr_lambda"`
	ScoreThreshold float64 `yaml:"score_threshold"` // Filter results below this score (0 = disabled)
}

// LLMConfig holds chat model configuration.
type LLMConfig struct {
	Provider      string  `yaml:"provider"` // "auto", "gemini", "openai", "ollama"
	Model         string  `yaml:"model"`
	BaseURL       string  `yaml:"base_url"`
	Temperature   float64 `yaml:"temperature"`
	MaxTokens     int     `yaml:"max_tokens"`
	ContextBudget int     `yaml:"context_budget"` // tokens of context passed to the model (0 = unlimited)
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

const (
	SearchSimilarity = "similarity"
	SearchMMR        = "mmr"
)

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Addr:            ":8000",
			AllowedOrigins:  []string{"http://localhost:3000", "http://127.0.0.1:3000"},
			RequestTimeout:  60 * time.Second,
			ShutdownTimeout: 10 * time.Second,
		},
		Index: IndexConfig{
			Dir:  "vectorDB",
			Name: "Faiss_index",
		},
		Ingest: IngestConfig{
			Sources:      []string{"documents"},
			Includes:     []string{"**/*.pdf", "**/*.txt", "**/*.md"},
			Excludes:     []string{"**/.git/**", "**/node_modules/**"},
			ChunkSize:    500,
			ChunkOverlap: 50,
			Workers:      4,
		},
		Embedding: EmbeddingConfig{
			Provider:  "ollama",
			Model:     "all-minilm",
			APIKeyEnv: "OPENAI_API_KEY",
			BatchSize: 64,
			CacheSize: 256,
			CacheTTL:  10 * time.Minute,
		},
		Retrieve: RetrieveConfig{
			TopK:       6,
			SearchType: SearchSimilarity,
			FetchK:     20,
			MMRLambda:  0.5,
		},
		LLM: LLMConfig{
			Provider:  "auto",
			MaxTokens: 1024,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// Load loads configuration from a YAML file.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil // Return defaults if no config file
		}
		return nil, err
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}

	return cfg, nil
}

// LoadFromDir loads configuration from a directory (looks for medrag.yaml).
func LoadFromDir(dir string) (*Config, error) {
	path := filepath.Join(dir, "medrag.yaml")
	if _, err := os.Stat(path); err == nil {
		return Load(path)
	}

	path = filepath.Join(dir, ".medrag", "config.yaml")
	if _, err := os.Stat(path); err == nil {
		return Load(path)
	}

	return DefaultConfig(), nil
}

// ApplyEnv overlays MEDRAG_* environment variables onto the config.
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) {
	if lookup == nil {
		lookup = os.LookupEnv
	}
	set := func(key string, dst *string) {
		if v, ok := lookup(key); ok && v != "" {
			*dst = v
		}
	}
	set("MEDRAG_ADDR", &c.Server.Addr)
	set("MEDRAG_INDEX_DIR", &c.Index.Dir)
	set("MEDRAG_INDEX_NAME", &c.Index.Name)
	set("MEDRAG_LOG_LEVEL", &c.Logging.Level)
	set("MEDRAG_LLM_PROVIDER", &c.LLM.Provider)
	set("MEDRAG_EMBEDDING_PROVIDER", &c.Embedding.Provider)
}

// Validate reports every invalid setting at once.
func (c *Config) Validate() error {
	var errs []error

	if c.Index.Name == "" {
		errs = append(errs, errors.New("index.name must not be empty"))
	}
	if c.Ingest.ChunkSize <= 0 {
		errs = append(errs, fmt.Errorf("ingest.chunk_size must be positive, got %d", c.Ingest.ChunkSize))
	}
	if c.Ingest.ChunkOverlap < 0 || c.Ingest.ChunkOverlap >= c.Ingest.ChunkSize {
		errs = append(errs, fmt.Errorf("ingest.chunk_overlap must be in [0, chunk_size), got %d", c.Ingest.ChunkOverlap))
	}
	if c.Retrieve.TopK <= 0 {
		errs = append(errs, fmt.Errorf("retrieve.top_k must be positive, got %d", c.Retrieve.TopK))
	}
	switch c.Retrieve.SearchType {
	case SearchSimilarity, SearchMMR:
	default:
		errs = append(errs, fmt.Errorf("retrieve.search_type %q is not one of similarity, mmr", c.Retrieve.SearchType))
	}
	if c.Retrieve.MMRLambda < 0 || c.Retrieve.MMRLambda > 1 {
		errs = append(errs, fmt.Errorf("retrieve.mmr_lambda must be in [0, 1], got %g", c.Retrieve.MMRLambda))
	}
	switch c.Embedding.Provider {
	case "ollama", "openai", "compatible", "hash":
	default:
		errs = append(errs, fmt.Errorf("unsupported embedding provider: %s", c.Embedding.Provider))
	}
	if c.Embedding.Provider == "hash" && c.Embedding.Dimension <= 0 {
		errs = append(errs, errors.New("embedding.dimension is required for the hash provider"))
	}
	switch c.LLM.Provider {
	case "auto", "gemini", "openai", "ollama":
	default:
		errs = append(errs, fmt.Errorf("unsupported llm provider: %s", c.LLM.Provider))
	}

	return errors.Join(errs...)
}

// Save saves configuration to a YAML file.
func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// IndexPath returns the path to the index database.
func (c *Config) IndexPath() string {
	return filepath.Join(c.Index.Dir, c.Index.Name+".db")
}
