package tristore

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
)

// DefaultDelimiter separates subject, predicate and object in triple files.
const DefaultDelimiter = ":"

// maxLineSize bounds a single record in a triple file.
const maxLineSize = 1 << 20

// LoadConfig selects the files a Loader reads. Files are search roots, not
// necessarily files: each is handed to the FileFinder. A nil Files slice
// means "no sources" and clears the index on Load.
type LoadConfig struct {
	Files       []string `yaml:"files" json:"files"`
	Directories bool     `yaml:"directories" json:"directories"`
	Extension   string   `yaml:"extension" json:"extension"`
}

// Loader reads colon-delimited triple files into a TripleIndex.
type Loader struct {
	index     *TripleIndex
	finder    FileFinder
	logger    *slog.Logger
	observer  Observer
	delimiter string
	seed      func(context.Context, *TripleIndex) error
}

// LoaderOption configures a Loader.
type LoaderOption func(*Loader)

// WithFinder replaces the default GlobFinder.
func WithFinder(f FileFinder) LoaderOption {
	return func(l *Loader) {
		if f != nil {
			l.finder = f
		}
	}
}

// WithLoaderLogger sets the logger for per-file events.
func WithLoaderLogger(lg *slog.Logger) LoaderOption {
	return func(l *Loader) {
		if lg != nil {
			l.logger = lg
		}
	}
}

// WithLoaderObserver reports file loads and failures to o.
func WithLoaderObserver(o Observer) LoaderOption {
	return func(l *Loader) {
		if o != nil {
			l.observer = o
		}
	}
}

// WithDelimiter overrides DefaultDelimiter.
func WithDelimiter(d string) LoaderOption {
	return func(l *Loader) {
		if d != "" {
			l.delimiter = d
		}
	}
}

// WithSeed registers fn to fill the fresh index Reload builds before any
// file is read, so facts from another source (such as a SQLite snapshot)
// survive a reload.
func WithSeed(fn func(ctx context.Context, idx *TripleIndex) error) LoaderOption {
	return func(l *Loader) {
		l.seed = fn
	}
}

// NewLoader creates a loader that feeds idx.
func NewLoader(idx *TripleIndex, opts ...LoaderOption) *Loader {
	l := &Loader{
		index:     idx,
		finder:    GlobFinder{},
		logger:    slog.New(slog.DiscardHandler),
		observer:  nopObserver{},
		delimiter: DefaultDelimiter,
	}
	for _, o := range opts {
		o(l)
	}
	return l
}

// Index returns the index the loader feeds.
func (l *Loader) Index() *TripleIndex {
	return l.index
}

// Load reads every file found under cfg.Files and returns the number of
// files discovered. Files that cannot be read are logged and skipped, as are
// roots the finder rejects. When cfg.Files is nil the index is reset and 0
// is returned. The only error is ctx.Err() if ctx ends mid-load.
func (l *Loader) Load(ctx context.Context, cfg LoadConfig) (int, error) {
	return l.loadInto(ctx, l.index, cfg)
}

// Reload is Load into a fresh index whose contents then replace the loader's
// index in one step, so concurrent readers never observe a partial load.
// The fresh index is first filled by the WithSeed function, if any. Facts
// added to the live index that come from neither the seed nor the files are
// dropped. On cancellation or a seed error the existing index is left
// untouched.
func (l *Loader) Reload(ctx context.Context, cfg LoadConfig) (int, error) {
	if cfg.Files == nil {
		l.index.Reset()
		return 0, nil
	}
	// No observer on the fresh index: a reload does not count as adds.
	fresh := NewTripleIndex(WithLogger(l.index.logger))
	if l.seed != nil {
		if err := l.seed(ctx, fresh); err != nil {
			return 0, fmt.Errorf("tristore: seeding reload: %w", err)
		}
	}
	n, err := l.loadInto(ctx, fresh, cfg)
	if err != nil {
		return n, err
	}
	l.index.Replace(fresh)
	return n, nil
}

func (l *Loader) loadInto(ctx context.Context, idx *TripleIndex, cfg LoadConfig) (int, error) {
	if cfg.Files == nil {
		idx.Reset()
		return 0, nil
	}

	paths := l.discover(cfg)
	for _, path := range paths {
		if err := ctx.Err(); err != nil {
			return len(paths), err
		}
		n, err := l.loadFile(idx, path)
		if err != nil {
			l.logger.Error("failed to load triple file", "path", path, "error", err)
			l.observer.FileFailed(path, err)
			continue
		}
		l.observer.FileLoaded(path, n)
	}

	l.logger.Info("loaded triple files", "files", len(paths), "facts", idx.Len())
	return len(paths), nil
}

// discover returns the de-duplicated union of files found under every root,
// in discovery order.
func (l *Loader) discover(cfg LoadConfig) []string {
	seen := make(map[string]bool)
	var paths []string
	for _, root := range cfg.Files {
		found, err := l.finder.Find(root, cfg.Directories, cfg.Extension)
		if err != nil {
			l.logger.Warn("failed to search for triple files", "root", root, "error", err)
			continue
		}
		for _, p := range found {
			if !seen[p] {
				seen[p] = true
				paths = append(paths, p)
			}
		}
	}
	return paths
}

// LoadFile reads one triple file into the index and returns the number of
// new facts added.
func (l *Loader) LoadFile(path string) (int, error) {
	return l.loadFile(l.index, path)
}

func (l *Loader) loadFile(idx *TripleIndex, path string) (int, error) {
	l.logger.Debug("loading triple file", "path", path)
	f, err := os.Open(path)
	if err != nil {
		return 0, fmt.Errorf("tristore: opening %s: %w", path, err)
	}
	defer f.Close()

	n, err := l.read(idx, f)
	if err != nil {
		return n, fmt.Errorf("tristore: reading %s: %w", path, err)
	}
	return n, nil
}

// LoadReader reads triples from r into the index and returns the number of
// new facts added. Facts read before an error remain in the index.
func (l *Loader) LoadReader(r io.Reader) (int, error) {
	return l.read(l.index, r)
}

func (l *Loader) read(idx *TripleIndex, r io.Reader) (int, error) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), maxLineSize)

	added := 0
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}
		fields := SplitLine(line, l.delimiter)
		if len(fields) < 3 {
			continue
		}
		ok, err := idx.Add(fields[0], fields[1], fields[2])
		if errors.Is(err, ErrMissingTerm) {
			l.logger.Debug("skipping triple without subject or predicate", "line", line)
			continue
		}
		if ok {
			added++
		}
	}
	return added, sc.Err()
}

// SplitLine splits a record on delim. When there are more than three fields,
// everything from the third field on is rejoined with delim, so objects may
// contain the delimiter.
func SplitLine(line, delim string) []string {
	return strings.SplitN(line, delim, 3)
}
