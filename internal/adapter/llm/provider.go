package llm

import (
	"fmt"
	"os"

	"medrag/config"
	"medrag/internal/domain"
)

const (
	geminiBaseURL = "https://generativelanguage.googleapis.com/v1beta/openai"
	ollamaBaseURL = "http://localhost:11434"

	geminiModel = "gemini-2.5-flash-lite"
	openaiModel = "gpt-3.5-turbo"
	ollamaModel = "llama3"
)

// Settings is a fully resolved chat model selection.
type Settings struct {
	Provider string
	Model    string
	BaseURL  string
	APIKey   string
}

// Resolve picks the chat provider. In auto mode GEMINI_API_KEY wins over
// OPENAI_API_KEY; with neither set it fails with ErrNoLLMConfigured.
func Resolve(cfg config.LLMConfig, lookup func(string) (string, bool)) (Settings, error) {
	if lookup == nil {
		lookup = os.LookupEnv
	}
	env := func(k string) string {
		v, _ := lookup(k)
		return v
	}

	provider := cfg.Provider
	if provider == "" || provider == "auto" {
		switch {
		case env("GEMINI_API_KEY") != "":
			provider = "gemini"
		case env("OPENAI_API_KEY") != "":
			provider = "openai"
		default:
			return Settings{}, domain.ErrNoLLMConfigured
		}
	}

	s := Settings{Provider: provider, Model: cfg.Model, BaseURL: cfg.BaseURL}
	switch provider {
	case "gemini":
		s.APIKey = env("GEMINI_API_KEY")
		if s.APIKey == "" {
			return Settings{}, fmt.Errorf("%w: GEMINI_API_KEY is not set", domain.ErrNoLLMConfigured)
		}
		s.Model = orDefault(s.Model, geminiModel)
		s.BaseURL = orDefault(s.BaseURL, geminiBaseURL)
	case "openai":
		s.APIKey = env("OPENAI_API_KEY")
		if s.APIKey == "" {
			return Settings{}, fmt.Errorf("%w: OPENAI_API_KEY is not set", domain.ErrNoLLMConfigured)
		}
		s.Model = orDefault(s.Model, openaiModel)
	case "ollama":
		s.Model = orDefault(s.Model, ollamaModel)
		s.BaseURL = orDefault(s.BaseURL, ollamaBaseURL)
	default:
		return Settings{}, fmt.Errorf("unsupported llm provider: %s", provider)
	}
	return s, nil
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}
