package tristore

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
)

// DefaultDebounce is how long a Watcher waits for file changes to settle
// before reloading.
const DefaultDebounce = 500 * time.Millisecond

// Watcher reloads a Loader's index whenever a triple file under the load
// configuration's roots changes.
type Watcher struct {
	loader   *Loader
	cfg      LoadConfig
	debounce time.Duration
	logger   *slog.Logger
	onReload func(files int, err error)

	fsw *fsnotify.Watcher
}

// WatchOption configures a Watcher.
type WatchOption func(*Watcher)

// WithDebounce sets the settle delay; zero or negative keeps DefaultDebounce.
func WithDebounce(d time.Duration) WatchOption {
	return func(w *Watcher) {
		if d > 0 {
			w.debounce = d
		}
	}
}

// WithWatchLogger sets the watcher's logger.
func WithWatchLogger(l *slog.Logger) WatchOption {
	return func(w *Watcher) {
		if l != nil {
			w.logger = l
		}
	}
}

// OnReload registers fn to run after every reload.
func OnReload(fn func(files int, err error)) WatchOption {
	return func(w *Watcher) {
		w.onReload = fn
	}
}

// NewWatcher creates a watcher over the roots in cfg. Run starts it.
func NewWatcher(loader *Loader, cfg LoadConfig, opts ...WatchOption) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("tristore: creating watcher: %w", err)
	}
	w := &Watcher{
		loader:   loader,
		cfg:      cfg,
		debounce: DefaultDebounce,
		logger:   slog.New(slog.DiscardHandler),
		fsw:      fsw,
	}
	for _, o := range opts {
		o(w)
	}
	return w, nil
}

// Run watches until ctx is done, then closes the underlying watcher. Roots
// that cannot be watched are logged and skipped.
func (w *Watcher) Run(ctx context.Context) error {
	defer w.fsw.Close()

	for _, root := range w.cfg.Files {
		w.addRoot(root)
	}
	w.logger.Info("watching triple files", "roots", w.cfg.Files, "debounce", w.debounce)

	ticker := time.NewTicker(w.debounce)
	defer ticker.Stop()

	dirty := false
	for {
		select {
		case <-ctx.Done():
			return nil

		case ev, ok := <-w.fsw.Events:
			if !ok {
				return nil
			}
			if w.handle(ev) {
				dirty = true
			}

		case err, ok := <-w.fsw.Errors:
			if !ok {
				return nil
			}
			w.logger.Error("watcher error", "error", err)

		case <-ticker.C:
			if !dirty {
				continue
			}
			dirty = false
			n, err := w.loader.Reload(ctx, w.cfg)
			if err != nil {
				w.logger.Warn("reload interrupted", "error", err)
			} else {
				w.logger.Info("reloaded triple files", "files", n)
			}
			if w.onReload != nil {
				w.onReload(n, err)
			}
		}
	}
}

// addRoot watches root, a file's parent directory, or, with Directories set,
// every directory beneath root.
func (w *Watcher) addRoot(root string) {
	info, err := os.Stat(root)
	if err != nil {
		w.logger.Warn("cannot watch root", "root", root, "error", err)
		return
	}
	if !info.IsDir() {
		w.add(filepath.Dir(root))
		return
	}
	if !w.cfg.Directories {
		w.add(root)
		return
	}
	err = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			w.add(path)
		}
		return nil
	})
	if err != nil {
		w.logger.Warn("failed to walk root", "root", root, "error", err)
	}
}

func (w *Watcher) add(dir string) {
	if err := w.fsw.Add(dir); err != nil {
		w.logger.Warn("failed to watch directory", "path", dir, "error", err)
		return
	}
	w.logger.Debug("watching directory", "path", dir)
}

// handle reports whether ev should trigger a reload. New directories are
// picked up, and trigger a reload, when searching recursively.
func (w *Watcher) handle(ev fsnotify.Event) bool {
	if ev.Has(fsnotify.Create) && w.cfg.Directories {
		if info, err := os.Stat(ev.Name); err == nil && info.IsDir() {
			// Files may have arrived with the directory.
			w.add(ev.Name)
			return true
		}
	}
	if !strings.HasSuffix(ev.Name, w.cfg.Extension) {
		return false
	}
	if ev.Has(fsnotify.Create) || ev.Has(fsnotify.Write) || ev.Has(fsnotify.Remove) || ev.Has(fsnotify.Rename) {
		w.logger.Debug("triple file changed", "path", ev.Name, "op", ev.Op.String())
		return true
	}
	return false
}
