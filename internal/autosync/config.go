package autosync

import (
	"path/filepath"
	"strings"
	"time"
)

// Config is the coordinator's view of the settings.
type Config struct {
	Mode     Mode
	Interval time.Duration
	Debounce time.Duration

	ToolPath   string
	VaultPath  string
	Collection string

	// IncrementalTimeout bounds the update run for on-change syncs.
	IncrementalTimeout time.Duration
	// FullTimeout bounds the register-or-update step of a full sync.
	FullTimeout time.Duration
	// ProbeTimeout bounds the embedding status probe.
	ProbeTimeout time.Duration

	// Trackable filters change notifications. nil means markdown only.
	Trackable func(path string) bool
}

// DefaultConfig returns the settings used when nothing is configured.
func DefaultConfig() Config {
	return Config{
		Mode:               ModeOnStartup,
		Interval:           10 * time.Minute,
		Debounce:           5 * time.Second,
		IncrementalTimeout: 2 * time.Minute,
		FullTimeout:        5 * time.Minute,
		ProbeTimeout:       30 * time.Second,
	}
}

// IsMarkdown is the default Trackable filter.
func IsMarkdown(path string) bool {
	return strings.EqualFold(filepath.Ext(path), ".md")
}

func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.Mode == "" {
		c.Mode = ModeOff
	}
	if c.IncrementalTimeout <= 0 {
		c.IncrementalTimeout = d.IncrementalTimeout
	}
	if c.FullTimeout <= 0 {
		c.FullTimeout = d.FullTimeout
	}
	if c.ProbeTimeout <= 0 {
		c.ProbeTimeout = d.ProbeTimeout
	}
	if c.Collection == "" && c.VaultPath != "" {
		c.Collection = filepath.Base(filepath.Clean(c.VaultPath))
	}
	if c.Trackable == nil {
		c.Trackable = IsMarkdown
	}
	return c
}
