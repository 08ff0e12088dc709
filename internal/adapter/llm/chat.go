// Package llm adapts langchaingo chat models to the answer pipeline.
package llm

import (
	"context"
	"errors"
	"fmt"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/ollama"
	"github.com/tmc/langchaingo/llms/openai"

	"medrag/config"
)

// Chat sends a single-turn prompt to a chat model.
type Chat struct {
	model       llms.Model
	name        string
	maxTokens   int
	temperature float64
}

// New resolves the provider and builds its langchaingo client.
func New(cfg config.LLMConfig, lookup func(string) (string, bool)) (*Chat, error) {
	s, err := Resolve(cfg, lookup)
	if err != nil {
		return nil, err
	}

	var model llms.Model
	switch s.Provider {
	case "gemini", "openai":
		opts := []openai.Option{
			openai.WithToken(s.APIKey),
			openai.WithModel(s.Model),
		}
		if s.BaseURL != "" {
			opts = append(opts, openai.WithBaseURL(s.BaseURL))
		}
		model, err = openai.New(opts...)
	case "ollama":
		model, err = ollama.New(
			ollama.WithModel(s.Model),
			ollama.WithServerURL(s.BaseURL),
		)
	}
	if err != nil {
		return nil, fmt.Errorf("create %s client: %w", s.Provider, err)
	}

	return NewWithModel(model, s.Provider+"/"+s.Model, cfg.MaxTokens, cfg.Temperature), nil
}

// NewWithModel wraps an already constructed model.
func NewWithModel(model llms.Model, name string, maxTokens int, temperature float64) *Chat {
	return &Chat{
		model:       model,
		name:        name,
		maxTokens:   maxTokens,
		temperature: temperature,
	}
}

func (c *Chat) Generate(ctx context.Context, prompt string) (string, error) {
	var opts []llms.CallOption
	if c.maxTokens > 0 {
		opts = append(opts, llms.WithMaxTokens(c.maxTokens))
	}
	if c.temperature > 0 {
		opts = append(opts, llms.WithTemperature(c.temperature))
	}

	resp, err := c.model.GenerateContent(ctx, []llms.MessageContent{
		llms.TextParts(llms.ChatMessageTypeHuman, prompt),
	}, opts...)
	if err != nil {
		return "", err
	}

	if len(resp.Choices) == 0 {
		return "", errors.New("empty response")
	}

	return resp.Choices[0].Content, nil
}

func (c *Chat) ModelName() string {
	return c.name
}
