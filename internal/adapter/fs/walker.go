package fs

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar/v4"

	"medrag/internal/port"
)

// Walker lists corpus files under a source. A source may be a
// directory, filtered by include/exclude globs relative to it, or a
// single file, which is returned as is. Globs match case-insensitively
// so BOOK.PDF is picked up by **/*.pdf.
type Walker struct {
	includes []string
	excludes []string
}

func NewWalker(includes, excludes []string) *Walker {
	if len(includes) == 0 {
		includes = []string{"**/*"}
	}
	return &Walker{
		includes: lowerAll(includes),
		excludes: lowerAll(excludes),
	}
}

func (w *Walker) Walk(root string) ([]port.FileInfo, error) {
	root, err := filepath.Abs(root)
	if err != nil {
		return nil, err
	}

	rootInfo, err := os.Stat(root)
	if err != nil {
		return nil, err
	}
	if !rootInfo.IsDir() {
		return []port.FileInfo{toFileInfo(root, rootInfo)}, nil
	}

	var files []port.FileInfo
	err = filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}

		relPath, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		relPath = filepath.ToSlash(relPath)

		if info.IsDir() {
			if relPath != "." && w.matchAny(w.excludes, relPath+"/") {
				return filepath.SkipDir
			}
			return nil
		}

		if w.matchAny(w.includes, relPath) && !w.matchAny(w.excludes, relPath) {
			files = append(files, toFileInfo(path, info))
		}
		return nil
	})

	return files, err
}

func (w *Walker) matchAny(patterns []string, path string) bool {
	path = strings.ToLower(path)
	for _, pattern := range patterns {
		matched, err := doublestar.Match(pattern, path)
		if err == nil && matched {
			return true
		}
	}
	return false
}

func lowerAll(patterns []string) []string {
	out := make([]string, len(patterns))
	for i, p := range patterns {
		out[i] = strings.ToLower(p)
	}
	return out
}

func toFileInfo(path string, info os.FileInfo) port.FileInfo {
	return port.FileInfo{
		Path:    path,
		ModTime: info.ModTime().UnixNano(),
		Size:    info.Size(),
	}
}
