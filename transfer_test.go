package tristore_test

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/matthewjhunter/tristore"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExportImport(t *testing.T) {
	src := tristore.NewTripleIndex()
	mustAdd(t, src, "Cat", "IsA", "Animal")
	mustAdd(t, src, "Cat", "Says", "Meow:Meow")
	mustAdd(t, src, "Dog", "IsA", "Animal")

	data := tristore.Export(src)
	assert.Equal(t, 1, data.Version)
	assert.False(t, data.ExportedAt.IsZero())
	require.Len(t, data.Facts, 3)
	assert.Equal(t, tristore.ExportedFact{Subject: "CAT", Predicate: "SAYS", Object: "Meow:Meow"}, data.Facts[1])

	raw, err := json.Marshal(data)
	require.NoError(t, err)
	var decoded tristore.ExportData
	require.NoError(t, json.Unmarshal(raw, &decoded))

	dst := tristore.NewTripleIndex()
	mustAdd(t, dst, "Dog", "IsA", "Animal")
	result, err := tristore.Import(dst, &decoded, tristore.ImportOpts{})
	require.NoError(t, err)
	assert.Equal(t, &tristore.ImportResult{Imported: 2, Skipped: 1}, result)
	assert.ElementsMatch(t, src.Facts(), dst.Facts())
}

func TestImport_Replace(t *testing.T) {
	idx := tristore.NewTripleIndex()
	mustAdd(t, idx, "Old", "P", "O")

	data := &tristore.ExportData{Version: 1, Facts: []tristore.ExportedFact{
		{Subject: "new", Predicate: "p", Object: "o"},
		{Subject: "", Predicate: "p", Object: "o"},
		{Subject: "x", Predicate: "", Object: "o"},
	}}
	result, err := tristore.Import(idx, data, tristore.ImportOpts{Replace: true})
	require.NoError(t, err)
	assert.Equal(t, 1, result.Imported)
	assert.Equal(t, 2, result.Invalid)
	assert.Equal(t, []tristore.Fact{fact("NEW", "P", "o")}, idx.Facts())
}

func TestImport_UnsupportedVersion(t *testing.T) {
	idx := tristore.NewTripleIndex()
	mustAdd(t, idx, "A", "B", "C")

	_, err := tristore.Import(idx, &tristore.ExportData{Version: 2}, tristore.ImportOpts{Replace: true})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported export version 2")
	assert.Equal(t, 1, idx.Len(), "index untouched on rejected import")
}

func TestWriteLines_LoadsBack(t *testing.T) {
	src := tristore.NewTripleIndex()
	mustAdd(t, src, "Cat", "Says", "Meow:Meow")
	mustAdd(t, src, "Cat", "IsA", "Animal")

	var buf bytes.Buffer
	require.NoError(t, tristore.WriteLines(&buf, src.Facts()))
	assert.Equal(t, "CAT:SAYS:Meow:Meow\nCAT:ISA:Animal\n", buf.String())

	dst := tristore.NewTripleIndex()
	_, err := tristore.NewLoader(dst).LoadReader(strings.NewReader(buf.String()))
	require.NoError(t, err)
	assert.Equal(t, src.Facts(), dst.Facts())
}
