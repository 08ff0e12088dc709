package cli

import (
	"fmt"
	"log/slog"

	"medrag/config"
	"medrag/internal/adapter/analyzer"
	"medrag/internal/adapter/embedding"
	"medrag/internal/adapter/llm"
	"medrag/internal/adapter/retriever"
	"medrag/internal/adapter/store"
	"medrag/internal/port"
	"medrag/internal/usecase"
)

// pipeline is the read side of an index: retrieval and, when a model is
// configured, answering.
type pipeline struct {
	store    *store.BoltStore
	retrieve *usecase.RetrieveUseCase
	answer   *usecase.AnswerUseCase
}

func (p *pipeline) Close() error {
	return p.store.Close()
}

// openPipeline opens the index for serving. With withLLM unset the answer
// use case renders prompts only and never reaches a model.
func openPipeline(cfg *config.Config, withLLM bool) (*pipeline, error) {
	st, err := store.OpenIndex(cfg.IndexPath())
	if err != nil {
		return nil, fmt.Errorf("%w (run 'medrag ingest' first)", err)
	}

	p, err := buildPipeline(cfg, st, withLLM)
	if err != nil {
		st.Close()
		return nil, err
	}
	return p, nil
}

func buildPipeline(cfg *config.Config, st *store.BoltStore, withLLM bool) (*pipeline, error) {
	embedder, err := embedding.NewForQueries(cfg.Embedding, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create embedder: %w", err)
	}
	if err := st.VerifyEmbedding(embedder.ModelName(), embedder.Dimension()); err != nil {
		return nil, err
	}

	vectors, err := store.NewBoltVectorStore(st.DB(), embedder.Dimension())
	if err != nil {
		return nil, fmt.Errorf("failed to open vector store: %w", err)
	}

	semantic := retriever.NewSemanticRetriever(vectors, embedder, st)
	if cfg.Retrieve.SearchType == config.SearchMMR {
		semantic.WithReranker(retriever.NewMMRReranker(cfg.Retrieve.MMRLambda), cfg.Retrieve.FetchK)
	}
	retrieveUC := usecase.NewRetrieveUseCase(semantic, st, cfg.Retrieve.TopK, cfg.Retrieve.ScoreThreshold)

	var model port.LLM
	if withLLM {
		chat, err := llm.New(cfg.LLM, nil)
		if err != nil {
			return nil, err
		}
		slog.Info("llm ready", "model", chat.ModelName())
		model = chat
	}
	answerUC := usecase.NewAnswerUseCase(retrieveUC, model, analyzer.NewTokenizer(), cfg.Retrieve.TopK, cfg.LLM.ContextBudget)

	return &pipeline{store: st, retrieve: retrieveUC, answer: answerUC}, nil
}
