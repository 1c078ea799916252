package config

import (
	"context"
	"crypto/sha256"
	"errors"
	"io/fs"
	"log/slog"
	"maps"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// WatchConfig configures a Watcher.
type WatchConfig struct {
	// Root is the directory watched recursively.
	Root string

	// Debounce is how long changes accumulate before they are reloaded.
	// Defaults to 100ms.
	Debounce time.Duration

	Logger *slog.Logger
}

// Change is one reloaded config file.
type Change struct {
	Path string

	// Removed is set when the file no longer exists. File and Err are nil.
	Removed bool

	// File is the reloaded config, nil when Err is set.
	File *File
	Err  error
}

// Watcher reloads config files below a directory as they change.
type Watcher struct {
	root     string
	debounce time.Duration
	fsw      *fsnotify.Watcher
	logger   *slog.Logger

	pendingMu sync.Mutex
	pending   map[string]fsnotify.Op

	// content hashes of the last load, so touching a file without
	// editing it does not emit a change
	hashes map[string][sha256.Size]byte

	changes chan Change
}

// NewWatcher creates a watcher. Nothing is watched until Start.
func NewWatcher(cfg WatchConfig) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	debounce := cfg.Debounce
	if debounce <= 0 {
		debounce = 100 * time.Millisecond
	}
	return &Watcher{
		root:     cfg.Root,
		debounce: debounce,
		fsw:      fsw,
		logger:   logger,
		pending:  make(map[string]fsnotify.Op),
		hashes:   make(map[string][sha256.Size]byte),
		changes:  make(chan Change, 64),
	}, nil
}

// Changes returns the channel of reloads. It is closed once the watcher
// stops.
func (w *Watcher) Changes() <-chan Change {
	return w.changes
}

// Start registers the directory tree and begins processing events until
// ctx is done or Stop is called.
func (w *Watcher) Start(ctx context.Context) error {
	if err := w.addTree(w.root); err != nil {
		return err
	}
	go w.loop(ctx)
	w.logger.Info("watching configs", "root", w.root, "debounce", w.debounce)
	return nil
}

// Stop releases the underlying watcher.
func (w *Watcher) Stop() error {
	return w.fsw.Close()
}

// Seed records the current content of path so that an unchanged file is
// not reported on its first event. Call it before Start.
func (w *Watcher) Seed(path string) {
	if data, err := os.ReadFile(path); err == nil {
		w.hashes[path] = sha256.Sum256(data)
	}
}

func (w *Watcher) addTree(root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if path != root && strings.HasPrefix(d.Name(), ".") {
			return filepath.SkipDir
		}
		if err := w.fsw.Add(path); err != nil {
			w.logger.Warn("failed to watch directory", "path", path, "error", err)
			return nil
		}
		w.logger.Debug("watching directory", "path", path)
		return nil
	})
}

func (w *Watcher) loop(ctx context.Context) {
	defer close(w.changes)

	ticker := time.NewTicker(w.debounce)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			w.handle(ev)
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			w.logger.Error("watcher error", "error", err)
		case <-ticker.C:
			w.flush(ctx)
		}
	}
}

func (w *Watcher) handle(ev fsnotify.Event) {
	if _, ok := FormatOf(ev.Name); !ok {
		if ev.Has(fsnotify.Create) {
			if info, err := os.Stat(ev.Name); err == nil && info.IsDir() {
				if err := w.addTree(ev.Name); err != nil {
					w.logger.Warn("failed to watch new directory", "path", ev.Name, "error", err)
				}
			}
		}
		return
	}
	w.pendingMu.Lock()
	w.pending[ev.Name] |= ev.Op
	w.pendingMu.Unlock()
	w.logger.Debug("config change detected", "path", ev.Name, "op", ev.Op.String())
}

func (w *Watcher) flush(ctx context.Context) {
	w.pendingMu.Lock()
	if len(w.pending) == 0 {
		w.pendingMu.Unlock()
		return
	}
	batch := w.pending
	w.pending = make(map[string]fsnotify.Op)
	w.pendingMu.Unlock()

	for _, path := range slices.Sorted(maps.Keys(batch)) {
		if ctx.Err() != nil {
			return
		}
		change, ok := w.reload(path)
		if !ok {
			continue
		}
		select {
		case w.changes <- change:
		case <-ctx.Done():
			return
		}
	}
}

// reload reads path again. It reports false when the content is unchanged.
func (w *Watcher) reload(path string) (Change, bool) {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		if _, known := w.hashes[path]; !known {
			return Change{}, false
		}
		delete(w.hashes, path)
		return Change{Path: path, Removed: true}, true
	}
	if err != nil {
		return Change{Path: path, Err: err}, true
	}

	sum := sha256.Sum256(data)
	if prev, ok := w.hashes[path]; ok && prev == sum {
		return Change{}, false
	}
	w.hashes[path] = sum

	f, err := LoadFile(path)
	if err != nil {
		return Change{Path: path, Err: err}, true
	}
	return Change{Path: path, File: f}, true
}
