package port

import (
	"context"

	"medrag/internal/domain"
)

// DocumentLoader extracts page text from a source file.
type DocumentLoader interface {
	Load(ctx context.Context, path string) ([]domain.Page, error)

	// Supports reports whether the loader understands the file at path.
	Supports(path string) bool
}
