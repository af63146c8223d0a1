// Package watcher provides file system watching with automatic re-indexing.
package watcher

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/fsnotify/fsnotify"

	"github.com/notevec/notevec/internal/config"
	"github.com/notevec/notevec/internal/index"
)

// Watcher watches a notes directory and forwards edits to the index's
// point-update operations: writes and creates become update-note calls,
// removes and renames become delete-by-path calls.
type Watcher struct {
	root   string
	syncer *index.Syncer
	cfg    *config.Config

	// debounce holds pending file events to batch process
	debounce     map[string]fsnotify.Op
	debounceMu   sync.Mutex
	debounceTime time.Duration

	extSet map[string]bool

	// callback for status updates
	onEvent func(event string, path string)
}

// Option configures the watcher.
type Option func(*Watcher)

// WithDebounceTime sets the debounce duration for batching events.
func WithDebounceTime(d time.Duration) Option {
	return func(w *Watcher) {
		w.debounceTime = d
	}
}

// WithEventCallback sets a callback for file events.
func WithEventCallback(fn func(event string, path string)) Option {
	return func(w *Watcher) {
		w.onEvent = fn
	}
}

// New creates a new file watcher over an initialized syncer.
func New(syncer *index.Syncer, cfg *config.Config, opts ...Option) *Watcher {
	w := &Watcher{
		root:         syncer.Root(),
		syncer:       syncer,
		cfg:          cfg,
		debounce:     make(map[string]fsnotify.Op),
		debounceTime: 500 * time.Millisecond,
		onEvent:      func(string, string) {}, // noop default
	}

	w.extSet = make(map[string]bool)
	for _, ext := range cfg.Notes.Extensions {
		if !strings.HasPrefix(ext, ".") {
			ext = "." + ext
		}
		w.extSet[strings.ToLower(ext)] = true
	}

	for _, opt := range opts {
		opt(w)
	}

	return w
}

// Start begins watching for file changes. Blocks until context is cancelled.
func (w *Watcher) Start(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()

	if err := w.addDirectories(watcher); err != nil {
		return err
	}

	log.Info("Watching for note changes", "root", w.root)

	// Start debounce processor
	go w.processDebounced(ctx)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			w.handleEvent(event, watcher)

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			log.Error("Watcher error", "error", err)
		}
	}
}

// addDirectories recursively adds all directories to the watcher.
func (w *Watcher) addDirectories(watcher *fsnotify.Watcher) error {
	return filepath.WalkDir(w.root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return nil // Skip errors
		}

		if !d.IsDir() {
			return nil
		}

		name := d.Name()
		if strings.HasPrefix(name, ".") && path != w.root {
			return filepath.SkipDir
		}

		if err := watcher.Add(path); err != nil {
			log.Debug("Failed to watch directory", "path", path, "error", err)
		}
		return nil
	})
}

// handleEvent processes a single file system event.
func (w *Watcher) handleEvent(event fsnotify.Event, watcher *fsnotify.Watcher) {
	path := event.Name

	// Skip hidden files
	if strings.HasPrefix(filepath.Base(path), ".") {
		return
	}

	// For new directories, add to watcher
	if event.Has(fsnotify.Create) {
		if info, err := os.Stat(path); err == nil && info.IsDir() {
			watcher.Add(path)
			log.Debug("Added directory to watch", "path", path)
			return
		}
	}

	// Skip directories for file operations
	if info, err := os.Stat(path); err == nil && info.IsDir() {
		return
	}

	if !w.isNoteFile(path) {
		return
	}

	// Add to debounce queue
	w.debounceMu.Lock()
	w.debounce[path] = event.Op
	w.debounceMu.Unlock()
}

// isNoteFile checks whether a path looks like a note worth indexing.
func (w *Watcher) isNoteFile(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	if len(w.extSet) > 0 && !w.extSet[ext] {
		return false
	}

	// A removed file won't stat; the extension check is all we can do.
	info, err := os.Stat(path)
	if err != nil {
		return true
	}
	if w.cfg.Notes.MaxFileSize > 0 && info.Size() > int64(w.cfg.Notes.MaxFileSize) {
		return false
	}

	return true
}

// processDebounced processes debounced file events periodically.
func (w *Watcher) processDebounced(ctx context.Context) {
	ticker := time.NewTicker(w.debounceTime)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			w.flushDebounced(ctx)
		}
	}
}

// flushDebounced processes all pending debounced events.
func (w *Watcher) flushDebounced(ctx context.Context) {
	w.debounceMu.Lock()
	if len(w.debounce) == 0 {
		w.debounceMu.Unlock()
		return
	}

	events := make(map[string]fsnotify.Op, len(w.debounce))
	for k, v := range w.debounce {
		events[k] = v
	}
	w.debounce = make(map[string]fsnotify.Op)
	w.debounceMu.Unlock()

	for path, op := range events {
		select {
		case <-ctx.Done():
			return
		default:
		}

		relPath, err := filepath.Rel(w.root, path)
		if err != nil {
			relPath = path
		}

		if op.Has(fsnotify.Remove) || op.Has(fsnotify.Rename) {
			if err := w.syncer.RemoveNote(ctx, relPath); err != nil {
				log.Error("Failed to remove note from index", "path", relPath, "error", err)
			} else {
				w.onEvent("delete", relPath)
				log.Info("Removed from index", "note", relPath)
			}
		} else if op.Has(fsnotify.Create) || op.Has(fsnotify.Write) {
			if err := w.syncer.UpdateNote(ctx, relPath); err != nil {
				log.Error("Failed to update note in index", "path", relPath, "error", err)
			} else {
				w.onEvent("index", relPath)
				log.Info("Indexed", "note", relPath)
			}
		}
	}
}
