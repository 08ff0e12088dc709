package retriever

import (
	"context"
	"errors"
	"fmt"

	"medrag/internal/domain"
	"medrag/internal/port"
)

type SemanticRetriever struct {
	vectorStore port.VectorStore
	embedder    port.Embedder
	chunkStore  port.ChunkResolver
	reranker    port.DiversityReranker
	fetchK      int
}

func NewSemanticRetriever(
	vectorStore port.VectorStore,
	embedder port.Embedder,
	chunkStore port.ChunkResolver,
) *SemanticRetriever {
	return &SemanticRetriever{
		vectorStore: vectorStore,
		embedder:    embedder,
		chunkStore:  chunkStore,
	}
}

// WithReranker makes Search pull fetchK candidates and let reranker pick
// the final k from them.
func (r *SemanticRetriever) WithReranker(reranker port.DiversityReranker, fetchK int) *SemanticRetriever {
	r.reranker = reranker
	r.fetchK = fetchK
	return r
}

func (r *SemanticRetriever) Search(ctx context.Context, query string, k int) ([]domain.ScoredChunk, error) {
	embeddings, err := r.embedder.Embed(ctx, []string{query})
	if err != nil {
		return nil, fmt.Errorf("failed to embed query: %w", err)
	}
	if len(embeddings) == 0 {
		return nil, errors.New("embedding returned empty result")
	}
	queryVec := embeddings[0]

	fetch := k
	if r.reranker != nil && r.fetchK > k {
		fetch = r.fetchK
	}

	results, err := r.vectorStore.Search(queryVec, fetch)
	if err != nil {
		return nil, fmt.Errorf("vector search failed: %w", err)
	}
	if r.reranker != nil {
		results = r.reranker.Rerank(queryVec, results, k)
	}

	chunks := make([]domain.ScoredChunk, 0, len(results))
	for _, result := range results {
		chunk, err := r.chunkStore.GetChunk(result.ID)
		if errors.Is(err, domain.ErrChunkNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		chunks = append(chunks, domain.ScoredChunk{
			Chunk: chunk,
			Score: result.Score,
		})
	}

	return chunks, nil
}
