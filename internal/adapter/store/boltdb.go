package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.etcd.io/bbolt"

	"medrag/internal/domain"
	"medrag/internal/port"
)

var (
	bucketDocs      = []byte("docs")
	bucketChunks    = []byte("chunks")
	bucketBlobs     = []byte("blobs")
	bucketStats     = []byte("stats")
	bucketDocChunks = []byte("doc_chunks")
	keyStats        = []byte("corpus_stats")
	keyEmbedding    = []byte("embedding")
)

var allBuckets = [][]byte{bucketDocs, bucketChunks, bucketBlobs, bucketStats, bucketDocChunks, bucketVectors}

var (
	_ port.IndexStore    = (*BoltStore)(nil)
	_ port.ChunkResolver = (*BoltStore)(nil)
)

type BoltStore struct {
	db *bbolt.DB
}

// lockTimeout bounds the wait for the index file lock held by another
// process, such as a running server.
const lockTimeout = time.Second

// NewBoltStore opens the index file at path, creating it and its
// directory when missing.
func NewBoltStore(path string) (*BoltStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create index dir: %w", err)
	}
	return openBolt(path, &bbolt.Options{Timeout: lockTimeout})
}

// OpenIndex opens an existing index for serving. A missing folder or file
// is reported as ErrIndexNotFound.
func OpenIndex(path string) (*BoltStore, error) {
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", domain.ErrIndexNotFound, path)
		}
		return nil, err
	}
	return openBolt(path, &bbolt.Options{Timeout: lockTimeout})
}

func openBolt(path string, opts *bbolt.Options) (*BoltStore, error) {
	db, err := bbolt.Open(path, 0600, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open bolt db: %w", err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		for _, b := range allBuckets {
			if _, err := tx.CreateBucketIfNotExists(b); err != nil {
				return fmt.Errorf("failed to create bucket %s: %w", b, err)
			}
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, err
	}

	return &BoltStore{db: db}, nil
}

func (s *BoltStore) DB() *bbolt.DB {
	return s.db
}

type docMeta struct {
	Path    string `json:"path"`
	ModTime int64  `json:"mod_time"`
	Pages   int    `json:"pages"`
}

type chunkMeta struct {
	DocID   string `json:"doc_id"`
	Page    int    `json:"page"`
	Ordinal int    `json:"ordinal"`
}

func (m docMeta) toDomain(id string) domain.Document {
	return domain.Document{
		ID:      id,
		Path:    m.Path,
		ModTime: time.Unix(0, m.ModTime),
		Pages:   m.Pages,
	}
}

func putDoc(tx *bbolt.Tx, doc domain.Document) error {
	data, err := json.Marshal(docMeta{
		Path:    doc.Path,
		ModTime: doc.ModTime.UnixNano(),
		Pages:   doc.Pages,
	})
	if err != nil {
		return err
	}
	return tx.Bucket(bucketDocs).Put([]byte(doc.ID), data)
}

func (s *BoltStore) PutDoc(doc domain.Document) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		return putDoc(tx, doc)
	})
}

func (s *BoltStore) GetDoc(id string) (domain.Document, error) {
	var doc domain.Document
	err := s.db.View(func(tx *bbolt.Tx) error {
		data := tx.Bucket(bucketDocs).Get([]byte(id))
		if data == nil {
			return fmt.Errorf("%w: %s", domain.ErrDocumentNotFound, id)
		}
		var meta docMeta
		if err := json.Unmarshal(data, &meta); err != nil {
			return err
		}
		doc = meta.toDomain(id)
		return nil
	})
	return doc, err
}

func (s *BoltStore) DeleteDoc(id string) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(bucketDocs).Delete([]byte(id))
	})
}

func (s *BoltStore) ListDocs() ([]domain.Document, error) {
	var docs []domain.Document
	err := s.db.View(func(tx *bbolt.Tx) error {
		b := tx.Bucket(bucketDocs)
		return b.ForEach(func(k, v []byte) error {
			var meta docMeta
			if err := json.Unmarshal(v, &meta); err != nil {
				return err
			}
			docs = append(docs, meta.toDomain(string(k)))
			return nil
		})
	})
	return docs, err
}

// putChunks replaces the chunk list of docID with chunks.
func putChunks(tx *bbolt.Tx, docID string, chunks []domain.Chunk) error {
	chunksBucket := tx.Bucket(bucketChunks)
	blobsBucket := tx.Bucket(bucketBlobs)

	chunkIDs := make([]string, 0, len(chunks))
	for _, chunk := range chunks {
		data, err := json.Marshal(chunkMeta{
			DocID:   chunk.DocID,
			Page:    chunk.Page,
			Ordinal: chunk.Ordinal,
		})
		if err != nil {
			return err
		}
		if err := chunksBucket.Put([]byte(chunk.ID), data); err != nil {
			return err
		}
		if err := blobsBucket.Put([]byte(chunk.ID), []byte(chunk.Text)); err != nil {
			return err
		}
		chunkIDs = append(chunkIDs, chunk.ID)
	}

	idsData, err := json.Marshal(chunkIDs)
	if err != nil {
		return err
	}
	return tx.Bucket(bucketDocChunks).Put([]byte(docID), idsData)
}

func (s *BoltStore) PutChunks(docID string, chunks []domain.Chunk) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		return putChunks(tx, docID, chunks)
	})
}

func (s *BoltStore) GetChunk(id string) (domain.Chunk, error) {
	var chunk domain.Chunk
	err := s.db.View(func(tx *bbolt.Tx) error {
		c, ok, err := readChunk(tx, id)
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("%w: %s", domain.ErrChunkNotFound, id)
		}
		chunk = c
		return nil
	})
	return chunk, err
}

func readChunk(tx *bbolt.Tx, id string) (domain.Chunk, bool, error) {
	data := tx.Bucket(bucketChunks).Get([]byte(id))
	if data == nil {
		return domain.Chunk{}, false, nil
	}
	var meta chunkMeta
	if err := json.Unmarshal(data, &meta); err != nil {
		return domain.Chunk{}, false, err
	}
	text := tx.Bucket(bucketBlobs).Get([]byte(id))
	return domain.Chunk{
		ID:      id,
		DocID:   meta.DocID,
		Page:    meta.Page,
		Ordinal: meta.Ordinal,
		Text:    string(text),
	}, true, nil
}

func docChunkIDs(tx *bbolt.Tx, docID string) ([]string, error) {
	data := tx.Bucket(bucketDocChunks).Get([]byte(docID))
	if data == nil {
		return nil, nil
	}
	var chunkIDs []string
	if err := json.Unmarshal(data, &chunkIDs); err != nil {
		return nil, err
	}
	return chunkIDs, nil
}

func (s *BoltStore) GetChunksByDoc(docID string) ([]domain.Chunk, error) {
	var chunks []domain.Chunk
	err := s.db.View(func(tx *bbolt.Tx) error {
		chunkIDs, err := docChunkIDs(tx, docID)
		if err != nil {
			return err
		}
		for _, id := range chunkIDs {
			c, ok, err := readChunk(tx, id)
			if err != nil || !ok {
				continue
			}
			chunks = append(chunks, c)
		}
		return nil
	})
	return chunks, err
}

func (s *BoltStore) DeleteChunksByDoc(docID string) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		chunkIDs, err := docChunkIDs(tx, docID)
		if err != nil {
			return err
		}
		chunkBucket := tx.Bucket(bucketChunks)
		blobBucket := tx.Bucket(bucketBlobs)
		for _, id := range chunkIDs {
			if err := chunkBucket.Delete([]byte(id)); err != nil {
				return err
			}
			if err := blobBucket.Delete([]byte(id)); err != nil {
				return err
			}
		}
		return tx.Bucket(bucketDocChunks).Delete([]byte(docID))
	})
}

func (s *BoltStore) GetStats() (domain.Stats, error) {
	var stats domain.Stats
	err := s.db.View(func(tx *bbolt.Tx) error {
		data := tx.Bucket(bucketStats).Get(keyStats)
		if data == nil {
			return nil
		}
		return json.Unmarshal(data, &stats)
	})
	return stats, err
}

func (s *BoltStore) UpdateStats(stats domain.Stats) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		data, err := json.Marshal(stats)
		if err != nil {
			return err
		}
		return tx.Bucket(bucketStats).Put(keyStats, data)
	})
}

// GetEmbeddingInfo returns the zero value for an index that holds no vectors yet.
func (s *BoltStore) GetEmbeddingInfo() (domain.EmbeddingInfo, error) {
	var info domain.EmbeddingInfo
	err := s.db.View(func(tx *bbolt.Tx) error {
		data := tx.Bucket(bucketStats).Get(keyEmbedding)
		if data == nil {
			return nil
		}
		return json.Unmarshal(data, &info)
	})
	return info, err
}

func (s *BoltStore) SetEmbeddingInfo(info domain.EmbeddingInfo) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		data, err := json.Marshal(info)
		if err != nil {
			return err
		}
		return tx.Bucket(bucketStats).Put(keyEmbedding, data)
	})
}

// VerifyEmbedding checks that the index vectors were produced by model
// with the given dimension. An index without recorded info passes.
func (s *BoltStore) VerifyEmbedding(model string, dimension int) error {
	info, err := s.GetEmbeddingInfo()
	if err != nil {
		return err
	}
	if info.Model == "" {
		return nil
	}
	if info.Model != model || info.Dimension != dimension {
		return fmt.Errorf("%w: index uses %s (%d dims), configured %s (%d dims)",
			domain.ErrEmbeddingMismatch, info.Model, info.Dimension, model, dimension)
	}
	return nil
}

func (s *BoltStore) Close() error {
	return s.db.Close()
}

type IndexedFile struct {
	Doc    domain.Document
	Chunks []domain.Chunk
}

// BatchIndex writes documents and their chunks in one transaction.
func (s *BoltStore) BatchIndex(files []IndexedFile) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		for _, file := range files {
			if err := putDoc(tx, file.Doc); err != nil {
				return err
			}
			if err := putChunks(tx, file.Doc.ID, file.Chunks); err != nil {
				return err
			}
		}
		return nil
	})
}
