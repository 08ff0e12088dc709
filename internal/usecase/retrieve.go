package usecase

import (
	"context"
	"errors"
	"strings"

	"medrag/internal/domain"
	"medrag/internal/port"
)

// RetrieveUseCase handles search and retrieval operations.
type RetrieveUseCase struct {
	retriever         port.Retriever
	resolver          port.ChunkResolver
	topK              int
	minScoreThreshold float64 // Filter results below this score (0 = disabled)
}

// NewRetrieveUseCase creates a new retrieve use case.
func NewRetrieveUseCase(
	retriever port.Retriever,
	resolver port.ChunkResolver,
	topK int,
	minScoreThreshold float64,
) *RetrieveUseCase {
	return &RetrieveUseCase{
		retriever:         retriever,
		resolver:          resolver,
		topK:              topK,
		minScoreThreshold: minScoreThreshold,
	}
}

// Retrieve returns up to k passages for the question, best first.
// k <= 0 uses the configured default.
func (u *RetrieveUseCase) Retrieve(ctx context.Context, question string, k int) ([]domain.Passage, error) {
	if strings.TrimSpace(question) == "" {
		return nil, domain.ErrEmptyQuestion
	}
	if k <= 0 {
		k = u.topK
	}

	results, err := u.retriever.Search(ctx, question, k)
	if err != nil {
		return nil, err
	}

	if u.minScoreThreshold > 0 {
		results = u.filterByThreshold(results)
	}

	passages := make([]domain.Passage, 0, len(results))
	for _, r := range results {
		doc, err := u.resolver.GetDoc(r.Chunk.DocID)
		if errors.Is(err, domain.ErrDocumentNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		passages = append(passages, domain.Passage{
			ChunkID: r.Chunk.ID,
			Source:  doc.Path,
			Page:    r.Chunk.Page,
			Score:   r.Score,
			Text:    r.Chunk.Text,
		})
	}
	return passages, nil
}

// filterByThreshold removes results below the minimum score threshold.
func (u *RetrieveUseCase) filterByThreshold(results []domain.ScoredChunk) []domain.ScoredChunk {
	filtered := make([]domain.ScoredChunk, 0, len(results))
	for _, r := range results {
		if r.Score >= u.minScoreThreshold {
			filtered = append(filtered, r)
		}
	}
	return filtered
}
