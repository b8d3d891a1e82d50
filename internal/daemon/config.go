// Package daemon exposes a running sync coordinator to other processes.
// The serve command owns the coordinator and the index client; CLI
// commands connect over a Unix socket so that a manual sync or a search
// goes through the same single-flight coordinator instead of racing it.
package daemon

import (
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// Config holds configuration for the daemon service.
type Config struct {
	// SocketPath is the Unix domain socket path for IPC.
	// Default: ~/.qmdsync/daemon.sock
	SocketPath string

	// PIDPath is the file path for storing the daemon's process ID.
	// Default: ~/.qmdsync/daemon.pid
	PIDPath string

	// Timeout bounds short requests (ping, status, search).
	// Default: 30s
	Timeout time.Duration

	// SyncTimeout bounds a manual sync request, which waits for the sync.
	// Default: 6m
	SyncTimeout time.Duration
}

// Dir returns the per-user state directory, ~/.qmdsync.
func Dir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		home = os.TempDir()
	}
	return filepath.Join(home, ".qmdsync")
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	dir := Dir()
	return Config{
		SocketPath:  filepath.Join(dir, "daemon.sock"),
		PIDPath:     filepath.Join(dir, "daemon.pid"),
		Timeout:     30 * time.Second,
		SyncTimeout: 6 * time.Minute,
	}
}

// Validate checks that the configuration is valid.
func (c Config) Validate() error {
	if c.SocketPath == "" {
		return fmt.Errorf("socket path cannot be empty")
	}
	if c.PIDPath == "" {
		return fmt.Errorf("PID path cannot be empty")
	}
	if c.Timeout <= 0 {
		return fmt.Errorf("timeout must be positive")
	}
	if c.SyncTimeout < c.Timeout {
		return fmt.Errorf("sync timeout must be at least the request timeout")
	}
	return nil
}

// EnsureDir creates the directories for the socket and PID files.
func (c Config) EnsureDir() error {
	socketDir := filepath.Dir(c.SocketPath)
	if err := os.MkdirAll(socketDir, 0755); err != nil {
		return fmt.Errorf("failed to create socket directory: %w", err)
	}

	pidDir := filepath.Dir(c.PIDPath)
	if pidDir != socketDir {
		if err := os.MkdirAll(pidDir, 0755); err != nil {
			return fmt.Errorf("failed to create PID directory: %w", err)
		}
	}
	return nil
}
