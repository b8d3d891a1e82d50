package autosync

import (
	"sync"
	"time"
)

// Status is an immutable snapshot of the coordinator state.
type Status struct {
	Mode         Mode      `json:"mode"`
	LastSyncTime time.Time `json:"last_sync_time,omitzero"`
	IsRunning    bool      `json:"is_running"`
	PendingCount int       `json:"pending_count"`
	LastError    string    `json:"last_error,omitempty"`
}

// HasSynced reports whether any sync has succeeded.
func (s Status) HasSynced() bool {
	return !s.LastSyncTime.IsZero()
}

// StatusTracker holds the single mutable status record.
// Only the coordinator writes; everyone else reads snapshots.
type StatusTracker struct {
	mu        sync.RWMutex
	status    Status
	listeners []func(Status)
}

// NewStatusTracker creates a tracker for the given mode.
func NewStatusTracker(mode Mode) *StatusTracker {
	return &StatusTracker{status: Status{Mode: mode}}
}

// Snapshot returns a copy of the current status.
func (t *StatusTracker) Snapshot() Status {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.status
}

// OnChange registers fn to receive every new snapshot.
// fn runs on the coordinator goroutine and must not block.
func (t *StatusTracker) OnChange(fn func(Status)) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.listeners = append(t.listeners, fn)
}

// update applies fn under the write lock, then notifies listeners.
func (t *StatusTracker) update(fn func(*Status)) {
	t.mu.Lock()
	fn(&t.status)
	snap := t.status
	listeners := make([]func(Status), len(t.listeners))
	copy(listeners, t.listeners)
	t.mu.Unlock()

	for _, l := range listeners {
		l(snap)
	}
}
