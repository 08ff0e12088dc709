package embedding

import (
	"context"
	"errors"
	"fmt"

	"github.com/sashabaranov/go-openai"

	"medrag/internal/domain"
)

const (
	defaultOpenAIBaseURL = "https://api.openai.com/v1"
	defaultOllamaBaseURL = "http://localhost:11434/v1"
)

// knownDimensions maps embedding models to their output size.
var knownDimensions = map[string]int{
	"all-minilm":             384,
	"nomic-embed-text":       768,
	"mxbai-embed-large":      1024,
	"text-embedding-3-small": 1536,
	"text-embedding-3-large": 3072,
	"text-embedding-ada-002": 1536,
}

// OpenAIEmbedder calls an OpenAI-compatible /embeddings endpoint.
// Ollama, OpenAI and self-hosted gateways all speak this format.
type OpenAIEmbedder struct {
	client    *openai.Client
	model     string
	dimension int
	// requestDims is sent as the "dimensions" field when non-zero.
	requestDims int
}

func NewOpenAIEmbedder(apiKey, model, baseURL string, dimension int) (*OpenAIEmbedder, error) {
	if apiKey == "" {
		return nil, errors.New("openai embedder requires an API key")
	}
	if baseURL == "" {
		baseURL = defaultOpenAIBaseURL
	}
	e, err := newCompatible(apiKey, model, baseURL, dimension)
	if err != nil {
		return nil, err
	}
	if dimension > 0 && dimension != knownDimensions[model] {
		// text-embedding-3 models can shorten their output on request.
		e.requestDims = dimension
	}
	return e, nil
}

func NewOllamaEmbedder(model, baseURL string, dimension int) (*OpenAIEmbedder, error) {
	if baseURL == "" {
		baseURL = defaultOllamaBaseURL
	}
	return newCompatible("ollama", model, baseURL, dimension)
}

func NewCompatibleEmbedder(apiKey, model, baseURL string, dimension int) (*OpenAIEmbedder, error) {
	if baseURL == "" {
		return nil, errors.New("compatible embedder requires a base URL")
	}
	return newCompatible(apiKey, model, baseURL, dimension)
}

func newCompatible(apiKey, model, baseURL string, dimension int) (*OpenAIEmbedder, error) {
	if model == "" {
		return nil, errors.New("embedding model must be set")
	}
	if dimension <= 0 {
		dimension = knownDimensions[model]
	}
	if dimension <= 0 {
		return nil, fmt.Errorf("unknown dimension for embedding model %q, set embedding.dimension", model)
	}

	clientConfig := openai.DefaultConfig(apiKey)
	clientConfig.BaseURL = baseURL

	return &OpenAIEmbedder{
		client:    openai.NewClientWithConfig(clientConfig),
		model:     model,
		dimension: dimension,
	}, nil
}

func (e *OpenAIEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	resp, err := e.client.CreateEmbeddings(ctx, openai.EmbeddingRequest{
		Input:      texts,
		Model:      openai.EmbeddingModel(e.model),
		Dimensions: e.requestDims,
	})
	if err != nil {
		return nil, fmt.Errorf("create embeddings: %w", err)
	}

	if len(resp.Data) != len(texts) {
		return nil, fmt.Errorf("embedding response has %d vectors for %d inputs", len(resp.Data), len(texts))
	}

	embeddings := make([][]float32, len(texts))
	for _, data := range resp.Data {
		if data.Index < 0 || data.Index >= len(embeddings) || embeddings[data.Index] != nil {
			return nil, fmt.Errorf("embedding response has invalid index %d", data.Index)
		}
		if len(data.Embedding) != e.dimension {
			return nil, fmt.Errorf("%w: model %s returned %d, expected %d",
				domain.ErrDimensionMismatch, e.model, len(data.Embedding), e.dimension)
		}
		embeddings[data.Index] = data.Embedding
	}

	return embeddings, nil
}

func (e *OpenAIEmbedder) Dimension() int {
	return e.dimension
}

func (e *OpenAIEmbedder) ModelName() string {
	return e.model
}
