package tristore

import (
	"bufio"
	"fmt"
	"io"
	"time"
)

// exportVersion is the only ExportData version Import accepts.
const exportVersion = 1

// ExportData is the top-level structure for a tristore export.
type ExportData struct {
	Version    int            `json:"version"`
	ExportedAt time.Time      `json:"exported_at"`
	Facts      []ExportedFact `json:"facts"`
}

// ExportedFact represents a single fact in an export.
type ExportedFact struct {
	Subject   string `json:"subject"`
	Predicate string `json:"predicate"`
	Object    string `json:"object"`
}

// Export snapshots every fact in idx, in insertion order.
func Export(idx *TripleIndex) *ExportData {
	facts := idx.Facts()
	data := &ExportData{
		Version:    exportVersion,
		ExportedAt: time.Now().UTC(),
		Facts:      make([]ExportedFact, 0, len(facts)),
	}
	for _, f := range facts {
		data.Facts = append(data.Facts, ExportedFact{
			Subject:   f.Subject,
			Predicate: f.Predicate,
			Object:    f.Object,
		})
	}
	return data
}

// ImportOpts controls import behavior.
type ImportOpts struct {
	// If true, clear the index before importing.
	Replace bool
}

// ImportResult summarizes an import operation.
type ImportResult struct {
	Imported int
	Skipped  int // already present
	Invalid  int // missing subject or predicate
}

// Import adds the facts in data to idx. Facts already in the index are
// counted as skipped; facts without a subject or predicate as invalid.
func Import(idx *TripleIndex, data *ExportData, opts ImportOpts) (*ImportResult, error) {
	if data.Version != exportVersion {
		return nil, fmt.Errorf("tristore import: unsupported export version %d", data.Version)
	}
	if opts.Replace {
		idx.Reset()
	}

	result := &ImportResult{}
	for _, ef := range data.Facts {
		added, err := idx.Add(ef.Subject, ef.Predicate, ef.Object)
		switch {
		case err != nil:
			result.Invalid++
		case added:
			result.Imported++
		default:
			result.Skipped++
		}
	}
	return result, nil
}

// WriteLines writes facts in the colon-delimited format the Loader reads.
func WriteLines(w io.Writer, facts []Fact) error {
	bw := bufio.NewWriter(w)
	for _, f := range facts {
		if _, err := fmt.Fprintln(bw, f.String()); err != nil {
			return fmt.Errorf("tristore: writing %s: %w", f, err)
		}
	}
	return bw.Flush()
}
