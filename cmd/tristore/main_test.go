package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/matthewjhunter/tristore"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := rootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestLoadQueryExportImport(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "animals.txt"),
		[]byte("Cat:IsA:Animal\nCat:Says:Meow:Meow\nDog:IsA:Animal\n"), 0644))
	db := filepath.Join(dir, "facts.db")

	out, err := execute(t, "load", "--db", db, "--log-level", "error", dir)
	require.NoError(t, err)
	assert.Contains(t, out, "Loaded 1 files, 3 facts.")
	assert.Contains(t, out, "Saved 3 facts")

	out, err = execute(t, "query", "--db", db, "--log-level", "error", "-s", "cat")
	require.NoError(t, err)
	assert.Equal(t, "CAT:ISA:Animal\nCAT:SAYS:Meow:Meow\n", out)

	out, err = execute(t, "query", "--db", db, "--log-level", "error", "--not", "-s", "cat")
	require.NoError(t, err)
	assert.Equal(t, "DOG:ISA:Animal\n", out)

	exported := filepath.Join(dir, "export.json")
	_, err = execute(t, "export", "--db", db, "--log-level", "error", "-o", exported)
	require.NoError(t, err)

	raw, err := os.ReadFile(exported)
	require.NoError(t, err)
	var data tristore.ExportData
	require.NoError(t, json.Unmarshal(raw, &data))
	assert.Len(t, data.Facts, 3)

	other := filepath.Join(dir, "other.db")
	out, err = execute(t, "import", "--db", other, "--log-level", "error", exported)
	require.NoError(t, err)
	assert.Equal(t, "Imported 3 facts, skipped 0 duplicates, 0 invalid.\n", out)

	out, err = execute(t, "import", "--db", other, "--log-level", "error", exported)
	require.NoError(t, err)
	assert.Equal(t, "Imported 0 facts, skipped 3 duplicates, 0 invalid.\n", out)

	out, err = execute(t, "export", "--db", other, "--log-level", "error", "--format", "lines")
	require.NoError(t, err)
	assert.Equal(t, "CAT:ISA:Animal\nCAT:SAYS:Meow:Meow\nDOG:ISA:Animal\n", out)
}

func TestLoad_NoRoots(t *testing.T) {
	_, err := execute(t, "load")
	assert.ErrorContains(t, err, "no roots")
}

func TestExport_MissingDB(t *testing.T) {
	_, err := execute(t, "export", "--db", filepath.Join(t.TempDir(), "nope.db"))
	assert.ErrorContains(t, err, "database not found")
}

func TestVersion(t *testing.T) {
	out, err := execute(t, "version")
	require.NoError(t, err)
	assert.Equal(t, "tristore version 0.1.0\n", out)
}
