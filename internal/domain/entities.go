package domain

import "time"

// Document is one source file of the corpus.
type Document struct {
	ID      string
	Path    string
	ModTime time.Time
	Pages   int
}

// Page is the text of a single page (or a whole file for flat formats).
type Page struct {
	Number int
	Text   string
}

type Chunk struct {
	ID      string
	DocID   string
	Page    int
	Ordinal int
	Text    string
}

type ScoredChunk struct {
	Chunk Chunk
	Score float64
}

// Passage is a retrieved chunk resolved to its source document.
type Passage struct {
	ChunkID string  `json:"chunk_id"`
	Source  string  `json:"source"`
	Page    int     `json:"page"`
	Score   float64 `json:"score"`
	Text    string  `json:"text"`
}

// Answer is the model output together with the passages it was grounded on.
type Answer struct {
	Question string    `json:"question"`
	Text     string    `json:"answer"`
	Sources  []Passage `json:"sources,omitempty"`
}

type Stats struct {
	TotalDocs    int `json:"total_docs"`
	TotalChunks  int `json:"total_chunks"`
	TotalVectors int `json:"total_vectors"`
}

// EmbeddingInfo records which model produced the vectors of an index.
type EmbeddingInfo struct {
	Provider  string `json:"provider"`
	Model     string `json:"model"`
	Dimension int    `json:"dimension"`
}
