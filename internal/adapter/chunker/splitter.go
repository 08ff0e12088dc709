package chunker

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/tmc/langchaingo/textsplitter"

	"medrag/internal/domain"
)

var defaultSeparators = []string{"\n\n", "\n", " ", ""}

// RecursiveSplitter cuts page text into overlapping character windows,
// preferring paragraph, then line, then word boundaries.
type RecursiveSplitter struct {
	splitter textsplitter.RecursiveCharacter
}

func NewRecursiveSplitter(chunkSize, overlap int) *RecursiveSplitter {
	return &RecursiveSplitter{
		splitter: textsplitter.NewRecursiveCharacter(
			textsplitter.WithChunkSize(chunkSize),
			textsplitter.WithChunkOverlap(overlap),
			textsplitter.WithSeparators(defaultSeparators),
		),
	}
}

func (s *RecursiveSplitter) Split(doc domain.Document, pages []domain.Page) ([]domain.Chunk, error) {
	var chunks []domain.Chunk

	for _, page := range pages {
		if strings.TrimSpace(page.Text) == "" {
			continue
		}

		pieces, err := s.splitter.SplitText(page.Text)
		if err != nil {
			return nil, fmt.Errorf("split page %d of %s: %w", page.Number, doc.Path, err)
		}

		ordinal := 0
		for _, piece := range pieces {
			text := strings.TrimSpace(piece)
			if text == "" {
				continue
			}
			chunks = append(chunks, domain.Chunk{
				ID:      generateChunkID(doc.ID, page.Number, ordinal),
				DocID:   doc.ID,
				Page:    page.Number,
				Ordinal: ordinal,
				Text:    text,
			})
			ordinal++
		}
	}

	return chunks, nil
}

func generateChunkID(docID string, page, ordinal int) string {
	data := fmt.Sprintf("%s:%d:%d", docID, page, ordinal)
	hash := sha256.Sum256([]byte(data))
	return hex.EncodeToString(hash[:8])
}
