package retriever

import (
	"context"
	"errors"
	"testing"

	"medrag/internal/domain"
	"medrag/internal/port"
)

type fakeEmbedder struct {
	vec []float32
	err error
}

func (f *fakeEmbedder) Embed(_ context.Context, texts []string) ([][]float32, error) {
	if f.err != nil {
		return nil, f.err
	}
	out := make([][]float32, len(texts))
	for i := range texts {
		out[i] = f.vec
	}
	return out, nil
}

func (f *fakeEmbedder) Dimension() int    { return len(f.vec) }
func (f *fakeEmbedder) ModelName() string { return "fake" }

type fakeVectors struct {
	results []port.VectorResult
	lastK   int
}

func (f *fakeVectors) Upsert([]port.VectorItem) error { return nil }
func (f *fakeVectors) Delete([]string) error          { return nil }
func (f *fakeVectors) Count() (int, error)            { return len(f.results), nil }

func (f *fakeVectors) Search(_ []float32, k int) ([]port.VectorResult, error) {
	f.lastK = k
	if k > len(f.results) {
		k = len(f.results)
	}
	return f.results[:k], nil
}

type fakeChunks map[string]domain.Chunk

func (f fakeChunks) GetChunk(id string) (domain.Chunk, error) {
	c, ok := f[id]
	if !ok {
		return domain.Chunk{}, domain.ErrChunkNotFound
	}
	return c, nil
}

func (f fakeChunks) GetDoc(id string) (domain.Document, error) {
	return domain.Document{ID: id}, nil
}

func TestSemanticRetriever_Similarity(t *testing.T) {
	vectors := &fakeVectors{results: []port.VectorResult{
		{ID: "a", Score: 0.9},
		{ID: "gone", Score: 0.8},
		{ID: "b", Score: 0.7},
	}}
	chunks := fakeChunks{
		"a": {ID: "a", Text: "alpha"},
		"b": {ID: "b", Text: "beta"},
	}
	r := NewSemanticRetriever(vectors, &fakeEmbedder{vec: []float32{1, 0}}, chunks)

	results, err := r.Search(context.Background(), "q", 3)
	if err != nil {
		t.Fatal(err)
	}
	if vectors.lastK != 3 {
		t.Errorf("expected k=3 passed to store, got %d", vectors.lastK)
	}
	if len(results) != 2 {
		t.Fatalf("expected missing chunk to be skipped, got %d results", len(results))
	}
	if results[0].Chunk.ID != "a" || results[0].Score != 0.9 || results[1].Chunk.ID != "b" {
		t.Errorf("unexpected results: %+v", results)
	}
}

func TestSemanticRetriever_MMRFetchesMore(t *testing.T) {
	vectors := &fakeVectors{results: []port.VectorResult{
		{ID: "a", Score: 0.99, Vector: []float32{1, 0.1}},
		{ID: "a2", Score: 0.98, Vector: []float32{1, 0.12}},
		{ID: "b", Score: 0.6, Vector: []float32{0.6, -0.8}},
	}}
	chunks := fakeChunks{"a": {ID: "a"}, "a2": {ID: "a2"}, "b": {ID: "b"}}
	r := NewSemanticRetriever(vectors, &fakeEmbedder{vec: []float32{1, 0}}, chunks).
		WithReranker(NewMMRReranker(0.5), 20)

	results, err := r.Search(context.Background(), "q", 2)
	if err != nil {
		t.Fatal(err)
	}
	if vectors.lastK != 20 {
		t.Errorf("expected fetch_k=20 candidates, got %d", vectors.lastK)
	}
	if len(results) != 2 || results[0].Chunk.ID != "a" || results[1].Chunk.ID != "b" {
		t.Errorf("unexpected mmr selection: %+v", results)
	}
}

func TestSemanticRetriever_EmbedError(t *testing.T) {
	boom := errors.New("embedder down")
	r := NewSemanticRetriever(&fakeVectors{}, &fakeEmbedder{err: boom}, fakeChunks{})

	if _, err := r.Search(context.Background(), "q", 3); !errors.Is(err, boom) {
		t.Errorf("expected wrapped embed error, got %v", err)
	}
}
