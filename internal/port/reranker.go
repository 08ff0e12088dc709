package port

import "medrag/internal/domain"

type DiversityReranker interface {
	Rerank(query []float32, candidates []VectorResult, k int) []VectorResult
}

// ChunkResolver maps vector hits back to stored chunks.
type ChunkResolver interface {
	GetChunk(id string) (domain.Chunk, error)
	GetDoc(id string) (domain.Document, error)
}
