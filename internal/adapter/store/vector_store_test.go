package store

import (
	"errors"
	"math"
	"testing"

	"medrag/internal/domain"
	"medrag/internal/port"
)

func TestVectorStore_Search(t *testing.T) {
	s, _ := newTestStore(t)
	vs, err := NewBoltVectorStore(s.DB(), 3)
	if err != nil {
		t.Fatal(err)
	}

	items := []port.VectorItem{
		{ID: "a", Vector: []float32{1, 0, 0}},
		{ID: "b", Vector: []float32{0.9, 0.1, 0}},
		{ID: "c", Vector: []float32{0, 1, 0}},
		{ID: "d", Vector: []float32{0.9, 0.1, 0}},
	}
	if err := vs.Upsert(items); err != nil {
		t.Fatal(err)
	}

	results, err := vs.Search([]float32{1, 0, 0}, 3)
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != 3 {
		t.Fatalf("expected 3 results, got %d", len(results))
	}

	// b and d tie; ID order decides.
	wantIDs := []string{"a", "b", "d"}
	for i, want := range wantIDs {
		if results[i].ID != want {
			t.Errorf("result %d: expected %s, got %s", i, want, results[i].ID)
		}
	}
	if math.Abs(results[0].Score-1.0) > 1e-6 {
		t.Errorf("expected score 1.0 for identical vector, got %f", results[0].Score)
	}
	if len(results[0].Vector) != 3 {
		t.Error("expected result to carry its vector")
	}

	all, err := vs.Search([]float32{1, 0, 0}, 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(all) != 4 {
		t.Errorf("expected k clamped to 4, got %d", len(all))
	}
}

func TestVectorStore_Empty(t *testing.T) {
	s, _ := newTestStore(t)
	vs, err := NewBoltVectorStore(s.DB(), 3)
	if err != nil {
		t.Fatal(err)
	}

	results, err := vs.Search([]float32{1, 0, 0}, 5)
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != 0 {
		t.Errorf("expected no results, got %d", len(results))
	}
}

func TestVectorStore_DimensionMismatch(t *testing.T) {
	s, _ := newTestStore(t)
	vs, err := NewBoltVectorStore(s.DB(), 3)
	if err != nil {
		t.Fatal(err)
	}

	err = vs.Upsert([]port.VectorItem{{ID: "a", Vector: []float32{1, 0}}})
	if !errors.Is(err, domain.ErrDimensionMismatch) {
		t.Errorf("expected ErrDimensionMismatch on upsert, got %v", err)
	}
	if n, _ := vs.Count(); n != 0 {
		t.Errorf("rejected upsert should store nothing, got %d", n)
	}

	_, err = vs.Search([]float32{1, 0}, 1)
	if !errors.Is(err, domain.ErrDimensionMismatch) {
		t.Errorf("expected ErrDimensionMismatch on search, got %v", err)
	}
}

func TestVectorStore_DeleteAndPersistence(t *testing.T) {
	s, _ := newTestStore(t)
	vs, err := NewBoltVectorStore(s.DB(), 2)
	if err != nil {
		t.Fatal(err)
	}

	if err := vs.Upsert([]port.VectorItem{
		{ID: "a", Vector: []float32{1, 0}},
		{ID: "b", Vector: []float32{0, 1}},
	}); err != nil {
		t.Fatal(err)
	}
	if err := vs.Delete([]string{"a"}); err != nil {
		t.Fatal(err)
	}

	reloaded, err := NewBoltVectorStore(s.DB(), 2)
	if err != nil {
		t.Fatal(err)
	}
	if n, _ := reloaded.Count(); n != 1 {
		t.Fatalf("expected 1 persisted vector, got %d", n)
	}
	results, err := reloaded.Search([]float32{0, 1}, 1)
	if err != nil {
		t.Fatal(err)
	}
	if results[0].ID != "b" || results[0].Vector[1] != 1 {
		t.Errorf("unexpected result after reload: %+v", results[0])
	}

	wide, err := NewBoltVectorStore(s.DB(), 3)
	if err != nil {
		t.Fatal(err)
	}
	if n, _ := wide.Count(); n != 0 {
		t.Errorf("vectors of another dimension should not load, got %d", n)
	}
	if wide.Stale() != 1 {
		t.Errorf("expected 1 stale vector, got %d", wide.Stale())
	}
}

func TestEncodeVectorRoundTrip(t *testing.T) {
	in := []float32{0.25, -1.5, float32(math.Pi)}
	out, err := decodeVector(encodeVector(in))
	if err != nil {
		t.Fatal(err)
	}
	for i := range in {
		if in[i] != out[i] {
			t.Errorf("index %d: %f != %f", i, in[i], out[i])
		}
	}
	if _, err := decodeVector([]byte{1, 2, 3}); err == nil {
		t.Error("expected error for truncated vector")
	}
}

func TestCosineSimilarity(t *testing.T) {
	if got := CosineSimilarity([]float32{1, 0}, []float32{0, 1}); got != 0 {
		t.Errorf("orthogonal vectors: expected 0, got %f", got)
	}
	if got := CosineSimilarity([]float32{0, 0}, []float32{1, 1}); got != 0 {
		t.Errorf("zero vector: expected 0, got %f", got)
	}
	if got := CosineSimilarity([]float32{1}, []float32{1, 1}); got != 0 {
		t.Errorf("length mismatch: expected 0, got %f", got)
	}
}
