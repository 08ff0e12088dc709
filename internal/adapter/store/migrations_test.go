package store

import (
	"testing"
	"time"

	"medrag/config"
	"medrag/internal/domain"
	"medrag/internal/port"
)

func TestCheckMigration_FreshIndex(t *testing.T) {
	s, _ := newTestStore(t)
	cfg := config.DefaultConfig()

	result, err := s.CheckMigration(cfg)
	if err != nil {
		t.Fatal(err)
	}
	if !result.NeedsMigration || result.NeedsRebuild {
		t.Errorf("fresh index should need migration only: %+v", result)
	}

	if err := s.Migrate(cfg); err != nil {
		t.Fatal(err)
	}
	result, err = s.CheckMigration(cfg)
	if err != nil {
		t.Fatal(err)
	}
	if result.NeedsMigration || result.NeedsRebuild {
		t.Errorf("migrated index should be current: %+v", result)
	}
}

func TestCheckMigration_ConfigChange(t *testing.T) {
	s, _ := newTestStore(t)
	cfg := config.DefaultConfig()
	if err := s.Migrate(cfg); err != nil {
		t.Fatal(err)
	}

	changed := config.DefaultConfig()
	changed.Ingest.ChunkSize = 800
	rebuild, reason, err := s.NeedsRebuild(changed)
	if err != nil {
		t.Fatal(err)
	}
	if !rebuild {
		t.Error("chunk size change should require rebuild")
	}
	if reason != "index configuration changed" {
		t.Errorf("unexpected reason %q", reason)
	}

	// Retrieval settings do not affect the index.
	retrieval := config.DefaultConfig()
	retrieval.Retrieve.TopK = 2
	if rebuild, _, _ := s.NeedsRebuild(retrieval); rebuild {
		t.Error("top_k change should not require rebuild")
	}
}

func TestCheckMigration_NewerSchema(t *testing.T) {
	s, _ := newTestStore(t)
	if err := s.SetSchemaInfo(&SchemaInfo{Version: CurrentSchemaVersion + 1}); err != nil {
		t.Fatal(err)
	}
	result, err := s.CheckMigration(config.DefaultConfig())
	if err != nil {
		t.Fatal(err)
	}
	if !result.NeedsRebuild {
		t.Errorf("newer schema should require rebuild: %+v", result)
	}
}

func TestComputeConfigHash(t *testing.T) {
	a := ComputeConfigHash(config.DefaultConfig())
	b := ComputeConfigHash(config.DefaultConfig())
	if a != b {
		t.Errorf("hash should be stable: %s vs %s", a, b)
	}

	cfg := config.DefaultConfig()
	cfg.Embedding.Model = "nomic-embed-text"
	if ComputeConfigHash(cfg) == a {
		t.Error("embedding model should change the hash")
	}
}

func TestClear(t *testing.T) {
	s, _ := newTestStore(t)
	cfg := config.DefaultConfig()
	if err := s.Migrate(cfg); err != nil {
		t.Fatal(err)
	}

	vs, err := NewBoltVectorStore(s.DB(), 2)
	if err != nil {
		t.Fatal(err)
	}
	if err := vs.Upsert([]port.VectorItem{{ID: "c1", Vector: []float32{1, 0}}}); err != nil {
		t.Fatal(err)
	}
	if err := s.BatchIndex([]IndexedFile{{
		Doc:    domain.Document{ID: "d1", Path: "/a.txt", ModTime: time.Unix(1, 0)},
		Chunks: []domain.Chunk{{ID: "c1", DocID: "d1", Text: "alpha"}},
	}}); err != nil {
		t.Fatal(err)
	}
	if err := s.SetEmbeddingInfo(domain.EmbeddingInfo{Model: "hash", Dimension: 2}); err != nil {
		t.Fatal(err)
	}

	if err := s.Clear(); err != nil {
		t.Fatal(err)
	}
	if err := vs.Reload(); err != nil {
		t.Fatal(err)
	}

	docs, _ := s.ListDocs()
	if len(docs) != 0 {
		t.Errorf("expected no docs after clear, got %d", len(docs))
	}
	if n, _ := vs.Count(); n != 0 {
		t.Errorf("expected no vectors after clear, got %d", n)
	}
	info, _ := s.GetEmbeddingInfo()
	if info.Model != "" {
		t.Errorf("expected embedding info reset, got %+v", info)
	}
	schema, _ := s.GetSchemaInfo()
	if schema.Version != CurrentSchemaVersion {
		t.Errorf("schema version should survive clear, got %d", schema.Version)
	}
}
