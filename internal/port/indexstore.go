package port

import "medrag/internal/domain"

type IndexStore interface {
	PutDoc(doc domain.Document) error

	GetDoc(id string) (domain.Document, error)

	DeleteDoc(id string) error

	ListDocs() ([]domain.Document, error)

	PutChunks(docID string, chunks []domain.Chunk) error

	GetChunk(id string) (domain.Chunk, error)

	GetChunksByDoc(docID string) ([]domain.Chunk, error)

	DeleteChunksByDoc(docID string) error

	GetStats() (domain.Stats, error)

	UpdateStats(stats domain.Stats) error

	Close() error
}
