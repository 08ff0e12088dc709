package usecase

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"golang.org/x/sync/errgroup"

	"medrag/config"
	"medrag/internal/adapter/store"
	"medrag/internal/domain"
	"medrag/internal/port"
)

// ProgressFunc is called before each file is processed.
type ProgressFunc func(processed, total int, path string)

// IngestUseCase turns source files into indexed, embedded chunks.
type IngestUseCase struct {
	cfg      *config.Config
	store    *store.BoltStore
	vectors  *store.BoltVectorStore
	walker   port.FileWalker
	loader   port.DocumentLoader
	splitter port.Splitter
	embedder port.Embedder
	logger   *slog.Logger
}

// NewIngestUseCase creates a new ingest use case.
func NewIngestUseCase(
	cfg *config.Config,
	st *store.BoltStore,
	vectors *store.BoltVectorStore,
	walker port.FileWalker,
	loader port.DocumentLoader,
	splitter port.Splitter,
	embedder port.Embedder,
	logger *slog.Logger,
) *IngestUseCase {
	if logger == nil {
		logger = slog.Default()
	}
	return &IngestUseCase{
		cfg:      cfg,
		store:    st,
		vectors:  vectors,
		walker:   walker,
		loader:   loader,
		splitter: splitter,
		embedder: embedder,
		logger:   logger,
	}
}

// IngestResult contains the results of an ingest run.
type IngestResult struct {
	FilesIndexed  int
	FilesSkipped  int
	FilesDeleted  int
	ChunksCreated int
	Rebuilt       bool
	RebuildReason string
	Errors        []string
}

// Ingest indexes every supported file under sources. Unchanged files are
// skipped unless rebuild is set or the index configuration changed.
func (u *IngestUseCase) Ingest(ctx context.Context, sources []string, rebuild bool, progress ProgressFunc) (*IngestResult, error) {
	result := &IngestResult{}

	reason, err := u.prepare(rebuild)
	if err != nil {
		return nil, err
	}
	if reason != "" {
		u.logger.Info("rebuilding index", "reason", reason)
		if err := u.store.Clear(); err != nil {
			return nil, fmt.Errorf("failed to clear index: %w", err)
		}
		if err := u.vectors.Reload(); err != nil {
			return nil, fmt.Errorf("failed to reset vectors: %w", err)
		}
		result.Rebuilt = true
		result.RebuildReason = reason
	}

	files, err := u.collect(sources, result)
	if err != nil {
		return nil, err
	}

	existingDocs, err := u.store.ListDocs()
	if err != nil {
		return nil, fmt.Errorf("failed to list existing docs: %w", err)
	}
	existingMap := make(map[string]domain.Document, len(existingDocs))
	for _, doc := range existingDocs {
		existingMap[doc.Path] = doc
	}

	seenPaths := make(map[string]bool, len(files))
	for i, file := range files {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if progress != nil {
			progress(i, len(files), file.Path)
		}
		seenPaths[file.Path] = true

		if existing, ok := existingMap[file.Path]; ok {
			if existing.ModTime.UnixNano() >= file.ModTime {
				result.FilesSkipped++
				continue
			}
			if err := u.deleteDocument(existing.ID); err != nil {
				result.Errors = append(result.Errors, fmt.Sprintf("failed to delete old data for %s: %v", file.Path, err))
				continue
			}
		}

		n, err := u.indexFile(ctx, file)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			u.logger.Warn("ingest failed", "path", file.Path, "error", err)
			result.Errors = append(result.Errors, fmt.Sprintf("failed to index %s: %v", file.Path, err))
			continue
		}
		u.logger.Debug("indexed", "path", file.Path, "chunks", n)
		result.FilesIndexed++
		result.ChunksCreated += n
	}
	if progress != nil {
		progress(len(files), len(files), "")
	}

	for path, doc := range existingMap {
		if seenPaths[path] {
			continue
		}
		if err := u.deleteDocument(doc.ID); err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("failed to delete %s: %v", path, err))
			continue
		}
		result.FilesDeleted++
	}

	if err := u.finish(); err != nil {
		return nil, err
	}
	return result, nil
}

// prepare migrates the schema and reports why a rebuild is needed, if at all.
func (u *IngestUseCase) prepare(rebuild bool) (string, error) {
	migration, err := u.store.CheckMigration(u.cfg)
	if err != nil {
		return "", fmt.Errorf("failed to check migration: %w", err)
	}
	if migration.NeedsMigration {
		u.logger.Info("running schema migration", "reason", migration.Reason)
		if err := u.store.Migrate(u.cfg); err != nil {
			return "", fmt.Errorf("migration failed: %w", err)
		}
	}

	switch {
	case rebuild:
		return "rebuild requested", nil
	case migration.NeedsRebuild:
		return migration.Reason, nil
	case u.vectors.Stale() > 0:
		return "stored vectors have a different dimension", nil
	}

	err = u.store.VerifyEmbedding(u.embedder.ModelName(), u.embedder.Dimension())
	if errors.Is(err, domain.ErrEmbeddingMismatch) {
		return "embedding model changed", nil
	}
	return "", err
}

// collect walks all sources and keeps supported files, first source wins
// for duplicates. A file named directly with an unsupported format is
// reported as an error.
func (u *IngestUseCase) collect(sources []string, result *IngestResult) ([]port.FileInfo, error) {
	var files []port.FileInfo
	seen := make(map[string]bool)

	for _, src := range sources {
		abs, err := filepath.Abs(src)
		if err != nil {
			return nil, fmt.Errorf("invalid source %s: %w", src, err)
		}
		found, err := u.walker.Walk(abs)
		if err != nil {
			return nil, fmt.Errorf("failed to walk %s: %w", src, err)
		}

		for _, f := range found {
			if !u.loader.Supports(f.Path) {
				if f.Path == abs {
					result.Errors = append(result.Errors, fmt.Sprintf("%s: %v", f.Path, domain.ErrUnsupportedFormat))
				}
				continue
			}
			if seen[f.Path] {
				continue
			}
			seen[f.Path] = true
			files = append(files, f)
		}
	}
	return files, nil
}

// indexFile loads, splits and embeds a single file and returns the chunk count.
func (u *IngestUseCase) indexFile(ctx context.Context, file port.FileInfo) (int, error) {
	pages, err := u.loader.Load(ctx, file.Path)
	if err != nil {
		return 0, err
	}

	doc := domain.Document{
		ID:      generateDocID(file.Path),
		Path:    file.Path,
		ModTime: time.Unix(0, file.ModTime),
		Pages:   len(pages),
	}

	chunks, err := u.splitter.Split(doc, pages)
	if err != nil {
		return 0, fmt.Errorf("failed to split content: %w", err)
	}

	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Text
	}
	vectors, err := u.embedBatches(ctx, texts)
	if err != nil {
		return 0, fmt.Errorf("failed to embed chunks: %w", err)
	}

	items := make([]port.VectorItem, len(chunks))
	for i, c := range chunks {
		items[i] = port.VectorItem{ID: c.ID, Vector: vectors[i]}
	}
	if err := u.vectors.Upsert(items); err != nil {
		return 0, fmt.Errorf("failed to store vectors: %w", err)
	}

	// The document is written last so an interrupted run re-ingests it.
	if err := u.store.BatchIndex([]store.IndexedFile{{Doc: doc, Chunks: chunks}}); err != nil {
		return 0, fmt.Errorf("failed to store document: %w", err)
	}
	return len(chunks), nil
}

// embedBatches embeds texts in batches, with at most workers batches in flight.
func (u *IngestUseCase) embedBatches(ctx context.Context, texts []string) ([][]float32, error) {
	batchSize := u.cfg.Embedding.BatchSize
	if batchSize <= 0 {
		batchSize = 64
	}
	workers := u.cfg.Ingest.Workers
	if workers <= 0 {
		workers = 1
	}

	out := make([][]float32, len(texts))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)

	for start := 0; start < len(texts); start += batchSize {
		end := min(start+batchSize, len(texts))
		g.Go(func() error {
			vecs, err := u.embedder.Embed(gctx, texts[start:end])
			if err != nil {
				return err
			}
			if len(vecs) != end-start {
				return fmt.Errorf("embedder returned %d vectors for %d texts", len(vecs), end-start)
			}
			copy(out[start:end], vecs)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

// deleteDocument deletes a document and all its associated data.
func (u *IngestUseCase) deleteDocument(docID string) error {
	chunks, err := u.store.GetChunksByDoc(docID)
	if err != nil {
		return err
	}

	ids := make([]string, len(chunks))
	for i, c := range chunks {
		ids[i] = c.ID
	}
	if err := u.vectors.Delete(ids); err != nil {
		return err
	}

	if err := u.store.DeleteChunksByDoc(docID); err != nil {
		return err
	}
	return u.store.DeleteDoc(docID)
}

// finish records corpus stats, the embedding model and the config hash.
func (u *IngestUseCase) finish() error {
	docs, err := u.store.ListDocs()
	if err != nil {
		return err
	}
	totalChunks := 0
	for _, doc := range docs {
		chunks, err := u.store.GetChunksByDoc(doc.ID)
		if err != nil {
			return err
		}
		totalChunks += len(chunks)
	}
	totalVectors, err := u.vectors.Count()
	if err != nil {
		return err
	}

	stats := domain.Stats{
		TotalDocs:    len(docs),
		TotalChunks:  totalChunks,
		TotalVectors: totalVectors,
	}
	if err := u.store.UpdateStats(stats); err != nil {
		return fmt.Errorf("failed to update stats: %w", err)
	}

	if err := u.store.SetEmbeddingInfo(domain.EmbeddingInfo{
		Provider:  u.cfg.Embedding.Provider,
		Model:     u.embedder.ModelName(),
		Dimension: u.embedder.Dimension(),
	}); err != nil {
		return fmt.Errorf("failed to record embedding model: %w", err)
	}

	if err := u.store.Migrate(u.cfg); err != nil {
		return fmt.Errorf("failed to update schema info: %w", err)
	}
	return nil
}

// generateDocID creates a unique ID for a document based on its path.
func generateDocID(path string) string {
	hash := sha256.Sum256([]byte(path))
	return hex.EncodeToString(hash[:8])
}
