package loader

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/tmc/langchaingo/schema"

	"medrag/internal/domain"
)

func TestLoader_Supports(t *testing.T) {
	l := New()

	tests := []struct {
		path string
		want bool
	}{
		{"book.pdf", true},
		{"BOOK.PDF", true},
		{"notes.txt", true},
		{"README.md", true},
		{"scan.docx", false},
		{"noext", false},
	}
	for _, tt := range tests {
		if got := l.Supports(tt.path); got != tt.want {
			t.Errorf("Supports(%q) = %v, want %v", tt.path, got, tt.want)
		}
	}
}

func TestLoader_LoadText(t *testing.T) {
	path := filepath.Join(t.TempDir(), "notes.md")
	content := "# Asthma\n\nAsthma is a chronic inflammatory disease of the airways."
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	pages, err := New().Load(context.Background(), path)
	if err != nil {
		t.Fatal(err)
	}
	if len(pages) != 1 {
		t.Fatalf("expected 1 page, got %d", len(pages))
	}
	if pages[0].Number != 1 {
		t.Errorf("expected page 1, got %d", pages[0].Number)
	}
	if pages[0].Text != content {
		t.Errorf("unexpected page text: %q", pages[0].Text)
	}
}

func TestLoader_Unsupported(t *testing.T) {
	path := filepath.Join(t.TempDir(), "scan.docx")
	if err := os.WriteFile(path, []byte("x"), 0644); err != nil {
		t.Fatal(err)
	}

	_, err := New().Load(context.Background(), path)
	if !errors.Is(err, domain.ErrUnsupportedFormat) {
		t.Errorf("expected ErrUnsupportedFormat, got %v", err)
	}
}

func TestLoader_MissingFile(t *testing.T) {
	_, err := New().Load(context.Background(), filepath.Join(t.TempDir(), "gone.txt"))
	if !errors.Is(err, os.ErrNotExist) {
		t.Errorf("expected not-exist error, got %v", err)
	}
}

func TestToPages_UsesPageMetadata(t *testing.T) {
	docs := []schema.Document{
		{PageContent: "one", Metadata: map[string]any{"page": 1}},
		{PageContent: "two", Metadata: map[string]any{"page": 2}},
		{PageContent: "three"},
	}

	pages := toPages(docs)
	for i, want := range []int{1, 2, 3} {
		if pages[i].Number != want {
			t.Errorf("page %d: expected number %d, got %d", i, want, pages[i].Number)
		}
	}
}

func TestLoader_LoadPDF(t *testing.T) {
	pages, err := New().Load(context.Background(), filepath.Join("testdata", "two_pages.pdf"))
	if err != nil {
		t.Fatal(err)
	}
	if len(pages) != 2 {
		t.Fatalf("expected 2 pages, got %d", len(pages))
	}

	want := []string{"Anemia reduces oxygen delivery.", "Iron deficiency is a common cause."}
	for i, p := range pages {
		if p.Number != i+1 {
			t.Errorf("page %d: expected number %d, got %d", i, i+1, p.Number)
		}
		if !strings.Contains(p.Text, want[i]) {
			t.Errorf("page %d: expected text containing %q, got %q", p.Number, want[i], p.Text)
		}
	}
}

func TestLoader_UpperCaseExtension(t *testing.T) {
	data, err := os.ReadFile(filepath.Join("testdata", "two_pages.pdf"))
	if err != nil {
		t.Fatal(err)
	}
	path := filepath.Join(t.TempDir(), "Medical_Book.PDF")
	if err := os.WriteFile(path, data, 0644); err != nil {
		t.Fatal(err)
	}

	pages, err := New().Load(context.Background(), path)
	if err != nil {
		t.Fatal(err)
	}
	if len(pages) != 2 {
		t.Fatalf("expected 2 pages, got %d", len(pages))
	}
}
