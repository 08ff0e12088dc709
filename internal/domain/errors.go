package domain

import "errors"

var (
	ErrIndexNotFound     = errors.New("index not found")
	ErrDocumentNotFound  = errors.New("document not found")
	ErrChunkNotFound     = errors.New("chunk not found")
	ErrDimensionMismatch = errors.New("vector dimension mismatch")
	ErrEmbeddingMismatch = errors.New("index was built with a different embedding model")
	ErrNoLLMConfigured   = errors.New("no supported LLM API key found in environment")
	ErrUnsupportedFormat = errors.New("unsupported document format")
	ErrEmptyQuestion     = errors.New("empty question")
)
