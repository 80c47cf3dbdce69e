package tristore

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetrics_IndexEvents(t *testing.T) {
	reg := prometheus.NewRegistry()
	m, err := NewMetrics(reg)
	require.NoError(t, err)

	idx := NewTripleIndex(WithObserver(m))
	require.NoError(t, RegisterIndexGauges(reg, idx))

	_, _ = idx.Add("A", "B", "C")
	_, _ = idx.Add("A", "B", "D")
	_, _ = idx.Add("X", "Y", "Z")
	_, _ = idx.Add("a", "b", "C")
	idx.Delete("A", "", "")

	assert.Equal(t, 3.0, testutil.ToFloat64(m.factsAdded))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.factDuplicates))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.factsRemoved))

	count, err := testutil.GatherAndCount(reg, "tristore_index_facts", "tristore_index_subjects")
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	idx.Reset()
	assert.Equal(t, 1.0, testutil.ToFloat64(m.resets))
}

func TestMetrics_LoaderEvents(t *testing.T) {
	dir := t.TempDir()
	good := filepath.Join(dir, "good.txt")
	require.NoError(t, os.WriteFile(good, []byte("A:B:C\nA:B:D\nA:B:C\n"), 0644))

	reg := prometheus.NewRegistry()
	m, err := NewMetrics(reg)
	require.NoError(t, err)

	idx := NewTripleIndex(WithObserver(m))
	loader := NewLoader(idx, WithLoaderObserver(m), WithFinder(listFinder{good, filepath.Join(dir, "gone.txt")}))
	_, err = loader.Load(context.Background(), LoadConfig{Files: []string{dir}})
	require.NoError(t, err)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.filesLoaded))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.filesFailed))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.triplesRead))
}

func TestMetrics_DoubleRegister(t *testing.T) {
	reg := prometheus.NewRegistry()
	_, err := NewMetrics(reg)
	require.NoError(t, err)
	_, err = NewMetrics(reg)
	assert.Error(t, err)
}

// listFinder returns the same paths for every root.
type listFinder []string

func (f listFinder) Find(string, bool, string) ([]string, error) {
	return f, nil
}

func TestMetrics_ReloadDoesNotRecount(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "facts.txt")
	require.NoError(t, os.WriteFile(path, []byte("A:B:C\nA:B:D\n"), 0644))

	reg := prometheus.NewRegistry()
	m, err := NewMetrics(reg)
	require.NoError(t, err)

	idx := NewTripleIndex(WithObserver(m))
	loader := NewLoader(idx, WithLoaderObserver(m))
	cfg := LoadConfig{Files: []string{path}}
	_, err = loader.Load(context.Background(), cfg)
	require.NoError(t, err)
	_, err = loader.Reload(context.Background(), cfg)
	require.NoError(t, err)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.factsAdded))
	assert.Equal(t, 0.0, testutil.ToFloat64(m.factDuplicates))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.filesLoaded))
	assert.Equal(t, 2, idx.Len())
}
