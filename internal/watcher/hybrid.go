package watcher

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"
)

// HybridWatcher uses fsnotify as the primary watching mechanism with
// polling as a fallback.
type HybridWatcher struct {
	fsWatcher     *fsnotify.Watcher
	pollWatcher   *PollingWatcher
	useFsnotify   bool
	events        chan Event
	errors        chan error
	stopCh        chan struct{}
	rootPath      string
	opts          Options
	logger        *slog.Logger
	mu            sync.RWMutex
	stopped       bool
	droppedEvents atomic.Uint64
}

// NewHybridWatcher creates a new hybrid watcher with the given options.
// Attempts to use fsnotify first, falls back to polling if it fails.
func NewHybridWatcher(opts Options) (*HybridWatcher, error) {
	opts = opts.WithDefaults()

	h := &HybridWatcher{
		events: make(chan Event, opts.EventBufferSize),
		errors: make(chan error, 10),
		stopCh: make(chan struct{}),
		opts:   opts,
		logger: slog.Default(),
	}

	if !opts.ForcePolling {
		fsw, err := fsnotify.NewWatcher()
		if err == nil {
			h.fsWatcher = fsw
			h.useFsnotify = true
			return h, nil
		}
		h.logger.Warn("fsnotify unavailable, falling back to polling", slog.String("error", err.Error()))
	}

	h.pollWatcher = NewPollingWatcher(opts)
	return h, nil
}

// SetLogger replaces the logger. nil is ignored.
func (h *HybridWatcher) SetLogger(l *slog.Logger) {
	if l != nil {
		h.logger = l
	}
}

// Start watches path until ctx is cancelled or Stop is called.
// It blocks; run it in its own goroutine.
func (h *HybridWatcher) Start(ctx context.Context, path string) error {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("resolve absolute path: %w", err)
	}
	h.mu.Lock()
	h.rootPath = absPath
	h.mu.Unlock()

	if h.useFsnotify {
		return h.startFsnotify(ctx)
	}
	return h.startPolling(ctx)
}

func (h *HybridWatcher) startFsnotify(ctx context.Context) error {
	if err := h.addRecursive(h.rootPath, false); err != nil {
		return fmt.Errorf("add directories to watcher: %w", err)
	}

	for {
		select {
		case <-ctx.Done():
			_ = h.Stop()
			return ctx.Err()
		case <-h.stopCh:
			return nil
		case event, ok := <-h.fsWatcher.Events:
			if !ok {
				return nil
			}
			h.handleFsnotifyEvent(event)
		case err, ok := <-h.fsWatcher.Errors:
			if !ok {
				return nil
			}
			h.emitError(err)
		}
	}
}

func (h *HybridWatcher) startPolling(ctx context.Context) error {
	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case <-h.stopCh:
				return
			case event, ok := <-h.pollWatcher.Events():
				if !ok {
					return
				}
				h.emit(event)
			case err, ok := <-h.pollWatcher.Errors():
				if !ok {
					return
				}
				h.emitError(err)
			}
		}
	}()

	return h.pollWatcher.Start(ctx, h.rootPath)
}

// handleFsnotifyEvent converts and filters fsnotify events.
func (h *HybridWatcher) handleFsnotifyEvent(event fsnotify.Event) {
	relPath, err := filepath.Rel(h.rootPath, event.Name)
	if err != nil {
		return
	}
	relPath = filepath.ToSlash(relPath)
	if h.opts.ignoredDir(relPath) {
		return
	}

	switch {
	case event.Op&fsnotify.Create != 0:
		info, err := os.Stat(event.Name)
		if err != nil {
			return
		}
		if info.IsDir() {
			// A directory moved in or created with content already inside.
			_ = h.addRecursive(event.Name, true)
			return
		}
		if h.opts.tracks(relPath) {
			h.emit(Event{Path: relPath, Timestamp: time.Now()})
		}
	case event.Op&fsnotify.Write != 0:
		if h.opts.tracks(relPath) {
			h.emit(Event{Path: relPath, Timestamp: time.Now()})
		}
	case event.Op&(fsnotify.Remove|fsnotify.Rename) != 0:
		// The new name of a rename arrives as its own Create.
		if h.opts.tracks(relPath) {
			h.emit(Event{Path: relPath, Deleted: true, Timestamp: time.Now()})
		}
	}
}

// addRecursive adds every directory under root to the fsnotify watcher.
// With announce set, trackable files found on the way are reported as changed.
func (h *HybridWatcher) addRecursive(root string, announce bool) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}

		relPath, _ := filepath.Rel(h.rootPath, path)
		relPath = filepath.ToSlash(relPath)

		if !d.IsDir() {
			if announce && h.opts.tracks(relPath) {
				h.emit(Event{Path: relPath, Timestamp: time.Now()})
			}
			return nil
		}

		if relPath == "." {
			return h.fsWatcher.Add(path)
		}
		if h.opts.ignoredDir(relPath) {
			return filepath.SkipDir
		}
		return h.fsWatcher.Add(path)
	})
}

// emit sends an event without blocking the watch loop.
func (h *HybridWatcher) emit(event Event) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	if h.stopped {
		return
	}

	select {
	case h.events <- event:
	default:
		count := h.droppedEvents.Add(1)
		h.logger.Warn("event buffer full, dropping event",
			slog.String("path", event.Path),
			slog.Uint64("total_dropped", count))
	}
}

func (h *HybridWatcher) emitError(err error) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	if h.stopped {
		return
	}

	select {
	case h.errors <- err:
	default:
	}
}

// DroppedEvents returns the number of events dropped due to buffer overflow.
func (h *HybridWatcher) DroppedEvents() uint64 {
	return h.droppedEvents.Load()
}

// Stop stops the watcher and releases resources. Safe to call more than once.
func (h *HybridWatcher) Stop() error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.stopped {
		return nil
	}

	h.stopped = true
	close(h.stopCh)

	if h.fsWatcher != nil {
		_ = h.fsWatcher.Close()
	}
	if h.pollWatcher != nil {
		_ = h.pollWatcher.Stop()
	}

	close(h.events)
	close(h.errors)
	return nil
}

// Events returns the channel of document events.
func (h *HybridWatcher) Events() <-chan Event {
	return h.events
}

// Errors returns the channel of non-fatal watcher errors.
func (h *HybridWatcher) Errors() <-chan error {
	return h.errors
}

// WatcherType returns "fsnotify" or "polling".
func (h *HybridWatcher) WatcherType() string {
	if h.useFsnotify {
		return "fsnotify"
	}
	return "polling"
}

// RootPath returns the root path being watched.
func (h *HybridWatcher) RootPath() string {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.rootPath
}
