package tristore

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

// FileFinder discovers the files under a search root that the Loader should
// read.
type FileFinder interface {
	// Find returns the paths of files under root whose names end in
	// extension (any file when extension is empty). Subdirectories are
	// searched only when recursive is true.
	Find(root string, recursive bool, extension string) ([]string, error)
}

// GlobFinder implements FileFinder with doublestar globbing.
type GlobFinder struct{}

// Find implements FileFinder. A root that is itself a regular file is
// returned when it matches extension. Results are sorted.
func (GlobFinder) Find(root string, recursive bool, extension string) ([]string, error) {
	info, err := os.Stat(root)
	if err != nil {
		return nil, fmt.Errorf("tristore: stat %s: %w", root, err)
	}
	if !info.IsDir() {
		if strings.HasSuffix(root, extension) {
			return []string{root}, nil
		}
		return nil, nil
	}

	pattern := "*"
	if recursive {
		pattern = "**"
	}
	matches, err := doublestar.Glob(os.DirFS(root), pattern, doublestar.WithFilesOnly())
	if err != nil {
		return nil, fmt.Errorf("tristore: glob %s: %w", root, err)
	}

	var paths []string
	for _, m := range matches {
		if !strings.HasSuffix(m, extension) || !fs.ValidPath(m) {
			continue
		}
		paths = append(paths, filepath.Join(root, filepath.FromSlash(m)))
	}
	slices.Sort(paths)
	return paths, nil
}
