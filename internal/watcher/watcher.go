package watcher

import (
	"path/filepath"
	"strings"
	"time"
)

// Event is a change to one trackable document.
type Event struct {
	// Path is relative to the watched root, with forward slashes.
	Path string

	// Deleted is set when the document is gone (removed or renamed away).
	Deleted bool

	// Timestamp is when the event was detected.
	Timestamp time.Time
}

// Options configures the watcher behavior.
type Options struct {
	// PollInterval is the interval for polling mode (fallback).
	// Default: 5s
	PollInterval time.Duration

	// EventBufferSize is the size of the event channel buffer.
	// Default: 1000
	EventBufferSize int

	// IgnoreDirs are directory names skipped in addition to hidden ones.
	IgnoreDirs []string

	// Trackable decides which files produce events. Default: *.md
	Trackable func(path string) bool

	// ForcePolling skips fsnotify.
	ForcePolling bool
}

// DefaultOptions returns the default watcher options.
func DefaultOptions() Options {
	return Options{
		PollInterval:    5 * time.Second,
		EventBufferSize: 1000,
		IgnoreDirs:      []string{"node_modules"},
		Trackable:       IsMarkdown,
	}
}

// WithDefaults returns options with defaults applied for zero values.
func (o Options) WithDefaults() Options {
	defaults := DefaultOptions()
	if o.PollInterval == 0 {
		o.PollInterval = defaults.PollInterval
	}
	if o.EventBufferSize == 0 {
		o.EventBufferSize = defaults.EventBufferSize
	}
	if o.Trackable == nil {
		o.Trackable = defaults.Trackable
	}
	return o
}

// IsMarkdown reports whether path has a .md extension.
func IsMarkdown(path string) bool {
	return strings.EqualFold(filepath.Ext(path), ".md")
}

// ignoredDir reports whether relPath lies in a hidden or excluded
// directory. .obsidian, .git, .trash and .qmdsync are all hidden.
func (o Options) ignoredDir(relPath string) bool {
	for _, seg := range strings.Split(filepath.ToSlash(relPath), "/") {
		if seg == "" || seg == "." {
			continue
		}
		if strings.HasPrefix(seg, ".") {
			return true
		}
		for _, name := range o.IgnoreDirs {
			if seg == name {
				return true
			}
		}
	}
	return false
}

// tracks reports whether a file at relPath should produce events.
func (o Options) tracks(relPath string) bool {
	if relPath == "" || relPath == "." {
		return false
	}
	if o.ignoredDir(relPath) {
		return false
	}
	return o.Trackable(relPath)
}
