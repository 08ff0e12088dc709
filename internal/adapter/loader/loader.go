// Package loader reads corpus files into pages of plain text.
package loader

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/tmc/langchaingo/documentloaders"
	"github.com/tmc/langchaingo/schema"

	"medrag/internal/domain"
)

// Loader dispatches on file extension: PDFs are read page by page,
// plain text and markdown files become a single page.
type Loader struct{}

func New() *Loader {
	return &Loader{}
}

func (l *Loader) Supports(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".pdf", ".txt", ".md":
		return true
	}
	return false
}

func (l *Loader) Load(ctx context.Context, path string) ([]domain.Page, error) {
	ext := strings.ToLower(filepath.Ext(path))
	if !l.Supports(path) {
		return nil, fmt.Errorf("%s: %w %q", path, domain.ErrUnsupportedFormat, ext)
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var docs []schema.Document
	if ext == ".pdf" {
		info, err := f.Stat()
		if err != nil {
			return nil, err
		}
		docs, err = documentloaders.NewPDF(f, info.Size()).Load(ctx)
		if err != nil {
			return nil, fmt.Errorf("load pdf %s: %w", path, err)
		}
	} else {
		docs, err = documentloaders.NewText(f).Load(ctx)
		if err != nil {
			return nil, fmt.Errorf("load text %s: %w", path, err)
		}
	}

	return toPages(docs), nil
}

func toPages(docs []schema.Document) []domain.Page {
	pages := make([]domain.Page, 0, len(docs))
	for i, d := range docs {
		number := i + 1
		if n, ok := d.Metadata["page"].(int); ok && n > 0 {
			number = n
		}
		pages = append(pages, domain.Page{Number: number, Text: d.PageContent})
	}
	return pages
}
