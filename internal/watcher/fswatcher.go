package watcher

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"
)

// skipDirs are never watched. Hidden directories are skipped as well.
var skipDirs = map[string]bool{
	"tmp":          true,
	"log":          true,
	"vendor":       true,
	"node_modules": true,
	"coverage":     true,
}

// FSWatcher watches a project tree with fsnotify and emits debounced batches
// of Ruby file and config events.
type FSWatcher struct {
	fsWatcher      *fsnotify.Watcher
	debouncer      *Debouncer
	events         chan []FileEvent
	errors         chan error
	stopCh         chan struct{}
	rootPath       string
	opts           Options
	mu             sync.RWMutex
	stopped        bool
	droppedBatches atomic.Uint64
}

var _ Watcher = (*FSWatcher)(nil)

// NewFSWatcher creates a watcher with the given options.
func NewFSWatcher(opts Options) (*FSWatcher, error) {
	opts = opts.WithDefaults()

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create fsnotify watcher: %w", err)
	}

	return &FSWatcher{
		fsWatcher: fsw,
		debouncer: NewDebouncer(opts.DebounceWindow),
		events:    make(chan []FileEvent, opts.EventBufferSize),
		errors:    make(chan error, 10),
		stopCh:    make(chan struct{}),
		opts:      opts,
	}, nil
}

// Start watches path recursively. It blocks until ctx is done or Stop is
// called.
func (w *FSWatcher) Start(ctx context.Context, path string) error {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("resolve absolute path: %w", err)
	}
	w.rootPath = absPath

	if err := w.addRecursive(absPath); err != nil {
		return fmt.Errorf("add directories to watcher: %w", err)
	}

	go w.forward(ctx)

	slog.Debug("watcher_started", slog.String("root", absPath))

	for {
		select {
		case <-ctx.Done():
			_ = w.Stop()
			return ctx.Err()
		case <-w.stopCh:
			return nil
		case event, ok := <-w.fsWatcher.Events:
			if !ok {
				return nil
			}
			w.handle(event)
		case err, ok := <-w.fsWatcher.Errors:
			if !ok {
				return nil
			}
			w.emitError(err)
		}
	}
}

// handle converts and filters one fsnotify event.
func (w *FSWatcher) handle(event fsnotify.Event) {
	relPath, err := filepath.Rel(w.rootPath, event.Name)
	if err != nil {
		relPath = event.Name
	}
	relPath = filepath.ToSlash(relPath)

	isDir := false
	if info, err := os.Stat(event.Name); err == nil {
		isDir = info.IsDir()
	}

	if w.ignored(relPath, isDir) {
		return
	}

	base := filepath.Base(event.Name)
	for _, name := range w.opts.ConfigNames {
		if base == name {
			if event.Op&(fsnotify.Create|fsnotify.Write) != 0 {
				w.debouncer.Add(FileEvent{Path: relPath, Operation: OpConfigChange, Timestamp: time.Now()})
			}
			return
		}
	}

	var op Operation
	switch {
	case event.Op&fsnotify.Create != 0:
		op = OpCreate
		if isDir {
			if err := w.addRecursive(event.Name); err != nil {
				w.emitError(err)
			}
			return
		}
	case event.Op&fsnotify.Write != 0:
		op = OpModify
	case event.Op&fsnotify.Remove != 0:
		op = OpDelete
	case event.Op&fsnotify.Rename != 0:
		op = OpRename
	default:
		// chmod
		return
	}

	if isDir || !w.matchesExtension(relPath) {
		return
	}

	w.debouncer.Add(FileEvent{
		Path:      relPath,
		Operation: op,
		Timestamp: time.Now(),
	})
}

func (w *FSWatcher) matchesExtension(relPath string) bool {
	for _, ext := range w.opts.Extensions {
		if strings.HasSuffix(relPath, ext) {
			return true
		}
	}
	return false
}

// ignored reports whether any directory component of relPath is skipped.
func (w *FSWatcher) ignored(relPath string, isDir bool) bool {
	if relPath == "." || relPath == "" {
		return true
	}
	parts := strings.Split(relPath, "/")
	if !isDir {
		parts = parts[:len(parts)-1]
	}
	for _, p := range parts {
		if skipDir(p) {
			return true
		}
	}
	return false
}

func skipDir(name string) bool {
	return skipDirs[name] || (strings.HasPrefix(name, ".") && name != "." && name != "..")
}

// addRecursive adds root and every non-skipped directory below it.
func (w *FSWatcher) addRecursive(root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			// unreadable entries are skipped
			return nil
		}
		if !d.IsDir() {
			return nil
		}
		if path != w.rootPath && skipDir(d.Name()) {
			return filepath.SkipDir
		}
		return w.fsWatcher.Add(path)
	})
}

// forward moves debounced batches to the events channel.
func (w *FSWatcher) forward(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-w.stopCh:
			return
		case events, ok := <-w.debouncer.Output():
			if !ok {
				return
			}
			w.emitEvents(events)
		}
	}
}

func (w *FSWatcher) emitEvents(events []FileEvent) {
	w.mu.RLock()
	defer w.mu.RUnlock()

	if w.stopped {
		return
	}

	select {
	case w.events <- events:
	default:
		count := w.droppedBatches.Add(1)
		slog.Warn("watcher_batch_dropped",
			slog.Int("batch_size", len(events)),
			slog.Uint64("total_dropped_batches", count))
	}
}

func (w *FSWatcher) emitError(err error) {
	w.mu.RLock()
	defer w.mu.RUnlock()

	if w.stopped {
		return
	}

	select {
	case w.errors <- err:
	default:
	}
}

// DroppedBatches returns the number of batches dropped on a full buffer.
func (w *FSWatcher) DroppedBatches() uint64 {
	return w.droppedBatches.Load()
}

// Stop stops the watcher and closes its channels.
func (w *FSWatcher) Stop() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.stopped {
		return nil
	}

	w.stopped = true
	close(w.stopCh)
	w.debouncer.Stop()
	err := w.fsWatcher.Close()

	close(w.events)
	close(w.errors)
	return err
}

// Events implements Watcher.
func (w *FSWatcher) Events() <-chan []FileEvent {
	return w.events
}

// Errors implements Watcher.
func (w *FSWatcher) Errors() <-chan error {
	return w.errors
}

// RootPath returns the absolute watched root once Start has run.
func (w *FSWatcher) RootPath() string {
	return w.rootPath
}
