package port

import "medrag/internal/domain"

// Splitter cuts the pages of a document into chunks.
type Splitter interface {
	Split(doc domain.Document, pages []domain.Page) ([]domain.Chunk, error)
}
