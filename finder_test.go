package tristore_test

import (
	"path/filepath"
	"testing"

	"github.com/matthewjhunter/tristore"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGlobFinder(t *testing.T) {
	dir := t.TempDir()
	top := writeFile(t, dir, "b.txt", "")
	first := writeFile(t, dir, "a.txt", "")
	deep := writeFile(t, dir, "sub/inner/c.txt", "")
	other := writeFile(t, dir, "notes.md", "")

	tests := []struct {
		name      string
		root      string
		recursive bool
		ext       string
		want      []string
	}{
		{"flat", dir, false, ".txt", []string{first, top}},
		{"recursive", dir, true, ".txt", []string{first, top, deep}},
		{"other extension", dir, true, ".md", []string{other}},
		{"file root", top, false, ".txt", []string{top}},
		{"file root wrong extension", other, false, ".txt", nil},
		{"subdirectory root", filepath.Join(dir, "sub"), true, ".txt", []string{deep}},
		{"flat subdirectory", filepath.Join(dir, "sub"), false, ".txt", nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tristore.GlobFinder{}.Find(tt.root, tt.recursive, tt.ext)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestGlobFinder_EmptyExtensionMatchesAll(t *testing.T) {
	dir := t.TempDir()
	a := writeFile(t, dir, "a.txt", "")
	b := writeFile(t, dir, "b.md", "")

	got, err := tristore.GlobFinder{}.Find(dir, false, "")
	require.NoError(t, err)
	assert.Equal(t, []string{a, b}, got)
}

func TestGlobFinder_MissingRoot(t *testing.T) {
	_, err := tristore.GlobFinder{}.Find(filepath.Join(t.TempDir(), "nope"), true, ".txt")
	assert.Error(t, err)
}
