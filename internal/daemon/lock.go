package daemon

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/gofrs/flock"
)

// ErrAlreadyRunning is returned when another process holds the instance lock.
var ErrAlreadyRunning = errors.New("another qmdsync serve is already running for this vault")

// InstanceLock guarantees one serve process per vault.
// The lock file lives at <vault>/.qmdsync/serve.lock, which the
// watcher ignores as a hidden directory.
type InstanceLock struct {
	path   string
	flock  *flock.Flock
	locked bool
}

// NewInstanceLock creates the lock for vaultPath.
func NewInstanceLock(vaultPath string) *InstanceLock {
	lockPath := filepath.Join(vaultPath, ".qmdsync", "serve.lock")
	return &InstanceLock{
		path:  lockPath,
		flock: flock.New(lockPath),
	}
}

// Acquire takes the lock without blocking.
// It returns ErrAlreadyRunning if another process holds it.
func (l *InstanceLock) Acquire() error {
	if err := os.MkdirAll(filepath.Dir(l.path), 0755); err != nil {
		return fmt.Errorf("failed to create lock directory: %w", err)
	}

	acquired, err := l.flock.TryLock()
	if err != nil {
		return fmt.Errorf("failed to acquire lock: %w", err)
	}
	if !acquired {
		return ErrAlreadyRunning
	}

	l.locked = true
	return nil
}

// Release drops the lock. Safe to call more than once.
func (l *InstanceLock) Release() error {
	if !l.locked {
		return nil
	}
	l.locked = false
	if err := l.flock.Unlock(); err != nil {
		return fmt.Errorf("failed to release lock: %w", err)
	}
	return nil
}

// Path returns the path to the lock file.
func (l *InstanceLock) Path() string {
	return l.path
}

// IsLocked returns true if this process holds the lock.
func (l *InstanceLock) IsLocked() bool {
	return l.locked
}
