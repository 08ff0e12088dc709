package port

import "context"

// LLM represents a language model for text generation.
type LLM interface {
	// Generate returns the model completion for a single prompt.
	Generate(ctx context.Context, prompt string) (string, error)

	ModelName() string
}
