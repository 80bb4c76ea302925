// Package watch reconverts data files when they change on disk.
package watch

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/c360studio/ddicdi/convert"
)

// DefaultDebounce is how long changes are collected before converting.
const DefaultDebounce = 250 * time.Millisecond

// Converter converts one input file and writes its output.
type Converter interface {
	Supports(path string) bool
	ConvertFile(ctx context.Context, path string) (*convert.Result, error)
}

// Config configures a Watcher.
type Config struct {
	// Root is the directory watched recursively.
	Root string

	// Debounce is how long to wait for more changes before converting.
	Debounce time.Duration

	// Initial converts every readable file under Root when Run starts.
	Initial bool

	Logger *slog.Logger
}

// Operation is the kind of change an Event reports.
type Operation string

const (
	OpConvert Operation = "convert"
	OpDelete  Operation = "delete"
)

// Event reports the handling of one changed file.
type Event struct {
	Path      string
	Operation Operation
	Result    *convert.Result
	Err       error
}

// Watcher watches a directory tree and converts files that change.
type Watcher struct {
	config    Config
	converter Converter
	watcher   *fsnotify.Watcher
	logger    *slog.Logger

	pendingMu sync.Mutex
	pending   map[string]fsnotify.Op // path → most recent operation

	// Content hashes of the last conversion of each file
	hashes map[string]string

	events chan Event
}

// New creates a watcher for config.Root. Changes made after New returns are
// picked up by Run.
func New(config Config, converter Converter) (*Watcher, error) {
	info, err := os.Stat(config.Root)
	if err != nil {
		return nil, fmt.Errorf("watch root: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("watch root: not a directory: %s", config.Root)
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create watcher: %w", err)
	}

	logger := config.Logger
	if logger == nil {
		logger = slog.Default()
	}
	if config.Debounce <= 0 {
		config.Debounce = DefaultDebounce
	}

	w := &Watcher{
		config:    config,
		converter: converter,
		watcher:   fsw,
		logger:    logger,
		pending:   make(map[string]fsnotify.Op),
		hashes:    make(map[string]string),
		events:    make(chan Event, 100),
	}
	if err := w.addWatchesRecursive(config.Root); err != nil {
		fsw.Close()
		return nil, fmt.Errorf("watch %s: %w", config.Root, err)
	}
	return w, nil
}

// Events returns the channel of handled changes. It is closed when Run
// returns.
func (w *Watcher) Events() <-chan Event {
	return w.events
}

// Run watches until ctx is done. Conversions run one at a time on the
// calling goroutine.
func (w *Watcher) Run(ctx context.Context) error {
	defer close(w.events)
	defer w.watcher.Close()

	w.logger.Info("watching for changes",
		slog.String("root", w.config.Root),
		slog.Duration("debounce", w.config.Debounce))

	if w.config.Initial {
		for _, path := range w.existingFiles() {
			if ctx.Err() != nil {
				return nil
			}
			w.convert(ctx, path, fsnotify.Create)
		}
	}

	ticker := time.NewTicker(w.config.Debounce)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-w.watcher.Events:
			if !ok {
				return nil
			}
			w.handleFSEvent(event)

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return nil
			}
			w.logger.Error("watcher error", slog.Any("error", err))

		case <-ticker.C:
			w.flushPending(ctx)
		}
	}
}

func skipDir(path, root string) bool {
	if path == root {
		return false
	}
	return strings.HasPrefix(filepath.Base(path), ".")
}

func (w *Watcher) addWatchesRecursive(root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if skipDir(path, w.config.Root) {
			return filepath.SkipDir
		}
		if err := w.watcher.Add(path); err != nil {
			w.logger.Warn("failed to watch directory",
				slog.String("path", path),
				slog.Any("error", err))
			return nil
		}
		w.logger.Debug("watching directory", slog.String("path", path))
		return nil
	})
}

func (w *Watcher) existingFiles() []string {
	var files []string
	_ = filepath.WalkDir(w.config.Root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if d.IsDir() {
			if skipDir(path, w.config.Root) {
				return filepath.SkipDir
			}
			return nil
		}
		if w.wanted(path) {
			files = append(files, path)
		}
		return nil
	})
	return files
}

// wanted reports whether path is an input file. Outputs are never inputs.
func (w *Watcher) wanted(path string) bool {
	if strings.Contains(filepath.Base(path), "_DDICDI") {
		return false
	}
	return w.converter.Supports(path)
}

func (w *Watcher) handleFSEvent(event fsnotify.Event) {
	path := event.Name

	if !w.wanted(path) {
		if event.Has(fsnotify.Create) {
			if info, err := os.Stat(path); err == nil && info.IsDir() {
				if err := w.addWatchesRecursive(path); err != nil {
					w.logger.Warn("failed to watch new directory",
						slog.String("path", path),
						slog.Any("error", err))
				}
			}
		}
		return
	}
	if event.Has(fsnotify.Chmod) && !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
		return
	}

	w.pendingMu.Lock()
	w.pending[path] = event.Op
	w.pendingMu.Unlock()

	w.logger.Debug("file change detected",
		slog.String("path", path),
		slog.String("op", event.Op.String()))
}

func (w *Watcher) flushPending(ctx context.Context) {
	w.pendingMu.Lock()
	if len(w.pending) == 0 {
		w.pendingMu.Unlock()
		return
	}
	toProcess := w.pending
	w.pending = make(map[string]fsnotify.Op)
	w.pendingMu.Unlock()

	paths := make([]string, 0, len(toProcess))
	for path := range toProcess {
		paths = append(paths, path)
	}
	sort.Strings(paths)

	for _, path := range paths {
		if ctx.Err() != nil {
			return
		}
		w.convert(ctx, path, toProcess[path])
	}
}

func (w *Watcher) convert(ctx context.Context, path string, op fsnotify.Op) {
	content, err := os.ReadFile(path)
	if err != nil || op.Has(fsnotify.Remove) || op.Has(fsnotify.Rename) {
		if _, statErr := os.Stat(path); os.IsNotExist(statErr) {
			delete(w.hashes, path)
			w.sendEvent(Event{Path: path, Operation: OpDelete})
			return
		}
		if err != nil {
			w.sendEvent(Event{Path: path, Operation: OpConvert, Err: err})
			return
		}
	}

	sum := sha256.Sum256(content)
	hash := hex.EncodeToString(sum[:])
	if old, ok := w.hashes[path]; ok && old == hash {
		w.logger.Debug("content unchanged", slog.String("path", path))
		return
	}

	res, err := w.converter.ConvertFile(ctx, path)
	if err != nil {
		w.logger.Warn("conversion failed",
			slog.String("path", path),
			slog.Any("error", err))
		w.sendEvent(Event{Path: path, Operation: OpConvert, Err: err})
		return
	}
	w.hashes[path] = hash
	w.sendEvent(Event{Path: path, Operation: OpConvert, Result: res})
}

func (w *Watcher) sendEvent(event Event) {
	select {
	case w.events <- event:
	default:
		w.logger.Warn("event channel full, dropping event",
			slog.String("path", event.Path))
	}
}
