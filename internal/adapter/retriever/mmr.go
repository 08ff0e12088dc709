package retriever

import (
	"medrag/internal/adapter/store"
	"medrag/internal/port"
)

// MMRReranker implements Maximal Marginal Relevance for result diversification.
type MMRReranker struct {
	lambda float64
}

// NewMMRReranker creates a new MMR reranker. lambda 1 ranks purely by
// relevance, lambda 0 purely by novelty.
func NewMMRReranker(lambda float64) *MMRReranker {
	return &MMRReranker{lambda: lambda}
}

// Rerank greedily selects k candidates.
// MMR(c) = λ * sim(query, c) - (1-λ) * max sim(c, selected)
func (r *MMRReranker) Rerank(query []float32, candidates []port.VectorResult, k int) []port.VectorResult {
	if len(candidates) == 0 || k <= 0 {
		return nil
	}

	if k > len(candidates) {
		k = len(candidates)
	}

	relevance := make([]float64, len(candidates))
	for i, c := range candidates {
		relevance[i] = store.CosineSimilarity(query, c.Vector)
	}

	selected := make([]port.VectorResult, 0, k)
	used := make([]bool, len(candidates))
	// maxSim[i] tracks the highest similarity of candidate i to any selected item.
	maxSim := make([]float64, len(candidates))

	for len(selected) < k {
		bestIdx := -1
		bestMMR := 0.0

		for i := range candidates {
			if used[i] {
				continue
			}
			mmr := r.lambda*relevance[i] - (1-r.lambda)*maxSim[i]
			if bestIdx == -1 || mmr > bestMMR {
				bestMMR = mmr
				bestIdx = i
			}
		}

		used[bestIdx] = true
		best := candidates[bestIdx]
		selected = append(selected, best)

		for i := range candidates {
			if used[i] {
				continue
			}
			if sim := store.CosineSimilarity(candidates[i].Vector, best.Vector); sim > maxSim[i] {
				maxSim[i] = sim
			}
		}
	}

	return selected
}
