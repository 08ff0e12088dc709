package store

import (
	"encoding/binary"
	"fmt"
	"math"
	"sort"
	"sync"

	"go.etcd.io/bbolt"

	"medrag/internal/domain"
	"medrag/internal/port"
)

var bucketVectors = []byte("vectors")

var _ port.VectorStore = (*BoltVectorStore)(nil)

// BoltVectorStore implements VectorStore using BoltDB for persistence.
// Vectors are cached in memory and searched by brute force.
type BoltVectorStore struct {
	db        *bbolt.DB
	dimension int
	mu        sync.RWMutex
	vectors   map[string][]float32
	// stale counts persisted vectors whose dimension differs from the store's.
	stale int
}

// NewBoltVectorStore creates a new BoltDB-backed vector store.
func NewBoltVectorStore(db *bbolt.DB, dimension int) (*BoltVectorStore, error) {
	err := db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucketVectors)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create vectors bucket: %w", err)
	}

	store := &BoltVectorStore{
		db:        db,
		dimension: dimension,
	}

	if err := store.Reload(); err != nil {
		return nil, fmt.Errorf("failed to load vectors: %w", err)
	}

	return store, nil
}

// Reload replaces the in-memory cache with the persisted vectors.
func (s *BoltVectorStore) Reload() error {
	vectors := make(map[string][]float32)
	stale := 0
	err := s.db.View(func(tx *bbolt.Tx) error {
		b := tx.Bucket(bucketVectors)
		if b == nil {
			return nil
		}
		return b.ForEach(func(k, v []byte) error {
			vec, err := decodeVector(v)
			if err != nil {
				return fmt.Errorf("vector %s: %w", k, err)
			}
			if len(vec) != s.dimension {
				stale++
				return nil
			}
			vectors[string(k)] = vec
			return nil
		})
	})
	if err != nil {
		return err
	}

	s.mu.Lock()
	s.vectors = vectors
	s.stale = stale
	s.mu.Unlock()
	return nil
}

// Stale reports how many persisted vectors were skipped on load because
// they were written with another dimension.
func (s *BoltVectorStore) Stale() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.stale
}

func (s *BoltVectorStore) Dimension() int {
	return s.dimension
}

// Upsert adds or updates vectors in the store.
func (s *BoltVectorStore) Upsert(items []port.VectorItem) error {
	for _, item := range items {
		if len(item.Vector) != s.dimension {
			return fmt.Errorf("%w: expected %d, got %d", domain.ErrDimensionMismatch, s.dimension, len(item.Vector))
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	err := s.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket(bucketVectors)
		for _, item := range items {
			if err := b.Put([]byte(item.ID), encodeVector(item.Vector)); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	for _, item := range items {
		s.vectors[item.ID] = item.Vector
	}
	return nil
}

// Search finds the k nearest vectors to the query using cosine similarity.
// Equal scores are ordered by ID.
func (s *BoltVectorStore) Search(query []float32, k int) ([]port.VectorResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if len(query) != s.dimension {
		return nil, fmt.Errorf("%w: query has %d dims, expected %d", domain.ErrDimensionMismatch, len(query), s.dimension)
	}

	if len(s.vectors) == 0 || k <= 0 {
		return nil, nil
	}

	results := make([]port.VectorResult, 0, len(s.vectors))
	for id, vec := range s.vectors {
		results = append(results, port.VectorResult{
			ID:     id,
			Score:  CosineSimilarity(query, vec),
			Vector: vec,
		})
	}

	sort.Slice(results, func(i, j int) bool {
		if results[i].Score != results[j].Score {
			return results[i].Score > results[j].Score
		}
		return results[i].ID < results[j].ID
	})

	if k > len(results) {
		k = len(results)
	}
	return results[:k], nil
}

// Delete removes vectors by their IDs.
func (s *BoltVectorStore) Delete(ids []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket(bucketVectors)
		for _, id := range ids {
			if err := b.Delete([]byte(id)); err != nil {
				return err
			}
			delete(s.vectors, id)
		}
		return nil
	})
}

// Count returns the number of vectors in the store.
func (s *BoltVectorStore) Count() (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.vectors), nil
}

// CosineSimilarity returns 0 when either vector has zero length.
func CosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) {
		return 0
	}

	var dotProduct, normA, normB float64
	for i := range a {
		dotProduct += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}

	if normA == 0 || normB == 0 {
		return 0
	}

	return dotProduct / (math.Sqrt(normA) * math.Sqrt(normB))
}

// Vectors are stored as little-endian float32s.
func encodeVector(v []float32) []byte {
	buf := make([]byte, 4*len(v))
	for i, f := range v {
		binary.LittleEndian.PutUint32(buf[4*i:], math.Float32bits(f))
	}
	return buf
}

func decodeVector(data []byte) ([]float32, error) {
	if len(data)%4 != 0 {
		return nil, fmt.Errorf("corrupt vector of %d bytes", len(data))
	}
	v := make([]float32, len(data)/4)
	for i := range v {
		v[i] = math.Float32frombits(binary.LittleEndian.Uint32(data[4*i:]))
	}
	return v, nil
}
