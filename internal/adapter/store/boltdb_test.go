package store

import (
	"errors"
	"path/filepath"
	"testing"
	"time"

	"go.etcd.io/bbolt"

	"medrag/internal/domain"
)

func newTestStore(t *testing.T) (*BoltStore, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "vectorDB", "Faiss_index.db")
	s, err := NewBoltStore(path)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { s.Close() })
	return s, path
}

func TestBoltStore_Docs(t *testing.T) {
	s, _ := newTestStore(t)

	mod := time.Unix(1700000000, 123)
	doc := domain.Document{ID: "d1", Path: "/books/medical_book.pdf", ModTime: mod, Pages: 12}
	if err := s.PutDoc(doc); err != nil {
		t.Fatal(err)
	}

	got, err := s.GetDoc("d1")
	if err != nil {
		t.Fatal(err)
	}
	if got.Path != doc.Path || got.Pages != 12 || !got.ModTime.Equal(mod) {
		t.Errorf("unexpected doc: %+v", got)
	}

	docs, err := s.ListDocs()
	if err != nil {
		t.Fatal(err)
	}
	if len(docs) != 1 {
		t.Fatalf("expected 1 doc, got %d", len(docs))
	}

	if err := s.DeleteDoc("d1"); err != nil {
		t.Fatal(err)
	}
	if _, err := s.GetDoc("d1"); !errors.Is(err, domain.ErrDocumentNotFound) {
		t.Errorf("expected ErrDocumentNotFound, got %v", err)
	}
}

func TestBoltStore_Chunks(t *testing.T) {
	s, _ := newTestStore(t)

	chunks := []domain.Chunk{
		{ID: "c1", DocID: "d1", Page: 1, Ordinal: 0, Text: "Asthma causes wheezing."},
		{ID: "c2", DocID: "d1", Page: 2, Ordinal: 0, Text: "Inhalers relieve symptoms."},
	}
	if err := s.PutChunks("d1", chunks); err != nil {
		t.Fatal(err)
	}

	c, err := s.GetChunk("c2")
	if err != nil {
		t.Fatal(err)
	}
	if c.Page != 2 || c.Text != "Inhalers relieve symptoms." || c.DocID != "d1" {
		t.Errorf("unexpected chunk: %+v", c)
	}

	byDoc, err := s.GetChunksByDoc("d1")
	if err != nil {
		t.Fatal(err)
	}
	if len(byDoc) != 2 || byDoc[0].ID != "c1" {
		t.Errorf("unexpected chunks by doc: %+v", byDoc)
	}

	if err := s.DeleteChunksByDoc("d1"); err != nil {
		t.Fatal(err)
	}
	if _, err := s.GetChunk("c1"); !errors.Is(err, domain.ErrChunkNotFound) {
		t.Errorf("expected ErrChunkNotFound, got %v", err)
	}
	byDoc, err = s.GetChunksByDoc("d1")
	if err != nil {
		t.Fatal(err)
	}
	if len(byDoc) != 0 {
		t.Errorf("expected no chunks after delete, got %d", len(byDoc))
	}
}

func TestBoltStore_BatchIndexAndReopen(t *testing.T) {
	s, path := newTestStore(t)

	files := []IndexedFile{
		{
			Doc:    domain.Document{ID: "d1", Path: "/a.txt", ModTime: time.Unix(10, 0), Pages: 1},
			Chunks: []domain.Chunk{{ID: "c1", DocID: "d1", Page: 1, Text: "alpha"}},
		},
		{
			Doc:    domain.Document{ID: "d2", Path: "/b.txt", ModTime: time.Unix(20, 0), Pages: 1},
			Chunks: []domain.Chunk{{ID: "c2", DocID: "d2", Page: 1, Text: "beta"}},
		},
	}
	if err := s.BatchIndex(files); err != nil {
		t.Fatal(err)
	}
	if err := s.UpdateStats(domain.Stats{TotalDocs: 2, TotalChunks: 2}); err != nil {
		t.Fatal(err)
	}
	s.Close()

	reopened, err := OpenIndex(path)
	if err != nil {
		t.Fatal(err)
	}
	defer reopened.Close()

	stats, err := reopened.GetStats()
	if err != nil {
		t.Fatal(err)
	}
	if stats.TotalDocs != 2 || stats.TotalChunks != 2 {
		t.Errorf("unexpected stats: %+v", stats)
	}
	c, err := reopened.GetChunk("c2")
	if err != nil {
		t.Fatal(err)
	}
	if c.Text != "beta" {
		t.Errorf("expected beta, got %q", c.Text)
	}
}

func TestNewBoltStore_LockedIndexTimesOut(t *testing.T) {
	_, path := newTestStore(t)

	start := time.Now()
	_, err := NewBoltStore(path)
	if !errors.Is(err, bbolt.ErrTimeout) {
		t.Fatalf("expected bbolt.ErrTimeout while the index is held open, got %v", err)
	}
	if elapsed := time.Since(start); elapsed > 5*time.Second {
		t.Errorf("waited %s for the lock", elapsed)
	}
}

func TestOpenIndex_Missing(t *testing.T) {
	_, err := OpenIndex(filepath.Join(t.TempDir(), "vectorDB", "Faiss_index.db"))
	if !errors.Is(err, domain.ErrIndexNotFound) {
		t.Errorf("expected ErrIndexNotFound, got %v", err)
	}
}

func TestBoltStore_VerifyEmbedding(t *testing.T) {
	s, _ := newTestStore(t)

	if err := s.VerifyEmbedding("all-minilm", 384); err != nil {
		t.Errorf("fresh index should accept any model: %v", err)
	}

	info := domain.EmbeddingInfo{Provider: "ollama", Model: "all-minilm", Dimension: 384}
	if err := s.SetEmbeddingInfo(info); err != nil {
		t.Fatal(err)
	}
	got, err := s.GetEmbeddingInfo()
	if err != nil {
		t.Fatal(err)
	}
	if got != info {
		t.Errorf("expected %+v, got %+v", info, got)
	}

	if err := s.VerifyEmbedding("all-minilm", 384); err != nil {
		t.Errorf("matching model rejected: %v", err)
	}
	if err := s.VerifyEmbedding("nomic-embed-text", 768); !errors.Is(err, domain.ErrEmbeddingMismatch) {
		t.Errorf("expected ErrEmbeddingMismatch, got %v", err)
	}
}
