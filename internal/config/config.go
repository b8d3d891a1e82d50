// Package config loads qmdsync settings.
//
// Settings are layered in order of increasing precedence:
//  1. Hardcoded defaults
//  2. User config ($XDG_CONFIG_HOME/qmdsync/config.yaml)
//  3. Vault config (.qmdsync.yaml or .qmdsync.yml in the vault root)
//  4. A .env file in the vault root
//  5. QMDSYNC_* environment variables
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/Aman-CERP/qmdsync/internal/autosync"
	"github.com/Aman-CERP/qmdsync/internal/daemon"
	"github.com/Aman-CERP/qmdsync/internal/lookup"
	"github.com/Aman-CERP/qmdsync/internal/qmd"
)

// ProjectFileNames are the vault config files, in lookup order.
var ProjectFileNames = []string{".qmdsync.yaml", ".qmdsync.yml"}

// Config represents the complete qmdsync configuration.
type Config struct {
	Tool    ToolConfig    `yaml:"tool" json:"tool"`
	Sync    SyncConfig    `yaml:"sync" json:"sync"`
	Search  SearchConfig  `yaml:"search" json:"search"`
	Related RelatedConfig `yaml:"related" json:"related"`
	Cache   CacheConfig   `yaml:"cache" json:"cache"`
	Server  ServerConfig  `yaml:"server" json:"server"`
}

// ToolConfig locates the qmd executable and the vault it indexes.
type ToolConfig struct {
	// Path is the qmd executable, optionally with wrapper words ("bunx qmd").
	// Empty means discover it.
	Path string `yaml:"path" json:"path"`
	// Collection is the qmd collection name. Empty means the vault directory name.
	Collection string `yaml:"collection" json:"collection"`
	// VaultPath is the directory of markdown documents to keep indexed.
	VaultPath string `yaml:"vault_path" json:"vault_path"`
	// StatusFormat is "text" (default) or "json" for qmd builds with status --json.
	StatusFormat string `yaml:"status_format" json:"status_format"`
}

// SyncConfig configures the sync coordinator.
type SyncConfig struct {
	Mode               string        `yaml:"mode" json:"mode"`
	IntervalMinutes    int           `yaml:"interval_minutes" json:"interval_minutes"`
	DebounceMs         int           `yaml:"debounce_ms" json:"debounce_ms"`
	IncrementalTimeout time.Duration `yaml:"incremental_timeout" json:"incremental_timeout"`
	FullTimeout        time.Duration `yaml:"full_timeout" json:"full_timeout"`
	EmbedTimeout       time.Duration `yaml:"embed_timeout" json:"embed_timeout"`
	ProbeTimeout       time.Duration `yaml:"probe_timeout" json:"probe_timeout"`
}

// SearchConfig holds search defaults.
type SearchConfig struct {
	DefaultMode  string        `yaml:"default_mode" json:"default_mode"`
	DefaultLimit int           `yaml:"default_limit" json:"default_limit"`
	MinScore     float64       `yaml:"min_score" json:"min_score"`
	Timeout      time.Duration `yaml:"timeout" json:"timeout"`
}

// RelatedConfig configures related-document lookup.
type RelatedConfig struct {
	Enabled         bool    `yaml:"enabled" json:"enabled"`
	Limit           int     `yaml:"limit" json:"limit"`
	MinScore        float64 `yaml:"min_score" json:"min_score"`
	CacheTTLMinutes int     `yaml:"cache_ttl_minutes" json:"cache_ttl_minutes"`
}

// CacheConfig configures the search result cache.
type CacheConfig struct {
	TTLMinutes int `yaml:"ttl_minutes" json:"ttl_minutes"`
	MaxEntries int `yaml:"max_entries" json:"max_entries"`
}

// ServerConfig configures the daemon and logging.
type ServerConfig struct {
	SocketPath string `yaml:"socket_path" json:"socket_path"`
	PIDPath    string `yaml:"pid_path" json:"pid_path"`
	LogLevel   string `yaml:"log_level" json:"log_level"`
}

// Settings is the flat view of the user-facing settings.
type Settings struct {
	ToolPath            string  `json:"tool_path"`
	SyncMode            string  `json:"sync_mode"`
	SyncIntervalMinutes int     `json:"sync_interval_minutes"`
	DebounceMs          int     `json:"debounce_ms"`
	DefaultResultLimit  int     `json:"default_result_limit"`
	MinScore            float64 `json:"min_score"`
	CacheTTLMinutes     int     `json:"cache_ttl_minutes"`
}

// NewConfig creates a new Config with sensible defaults.
func NewConfig() *Config {
	timeouts := qmd.DefaultTimeouts()
	d := daemon.DefaultConfig()
	return &Config{
		Tool: ToolConfig{
			StatusFormat: string(qmd.StatusFormatText),
		},
		Sync: SyncConfig{
			Mode:               string(autosync.ModeOnStartup),
			IntervalMinutes:    10,
			DebounceMs:         5000,
			IncrementalTimeout: timeouts.Update,
			FullTimeout:        timeouts.Full,
			EmbedTimeout:       timeouts.Embed,
			ProbeTimeout:       timeouts.Probe,
		},
		Search: SearchConfig{
			DefaultMode:  string(qmd.ModeSearch),
			DefaultLimit: 10,
			MinScore:     0.3,
			Timeout:      timeouts.Search,
		},
		Related: RelatedConfig{
			Enabled:         true,
			Limit:           5,
			MinScore:        0.3,
			CacheTTLMinutes: 5,
		},
		Cache: CacheConfig{
			TTLMinutes: 5,
			MaxEntries: 10000,
		},
		Server: ServerConfig{
			SocketPath: d.SocketPath,
			PIDPath:    d.PIDPath,
			LogLevel:   "info",
		},
	}
}

// GetUserConfigPath returns the path to the user configuration file.
// It follows the XDG Base Directory specification:
//   - $XDG_CONFIG_HOME/qmdsync/config.yaml (if XDG_CONFIG_HOME is set)
//   - ~/.config/qmdsync/config.yaml (default)
func GetUserConfigPath() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "qmdsync", "config.yaml")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(os.TempDir(), ".config", "qmdsync", "config.yaml")
	}
	return filepath.Join(home, ".config", "qmdsync", "config.yaml")
}

// Load loads configuration for the vault at dir. An empty dir skips the
// vault config and .env layers.
func Load(dir string) (*Config, error) {
	cfg := NewConfig()

	if err := cfg.loadYAMLIfExists(GetUserConfigPath()); err != nil {
		return nil, fmt.Errorf("failed to load user config: %w", err)
	}

	var dotenv map[string]string
	if dir != "" {
		if err := cfg.loadFromFile(dir); err != nil {
			return nil, err
		}
		var err error
		if dotenv, err = LoadDotEnv(dir); err != nil {
			return nil, err
		}
	}

	lookupEnv := func(key string) (string, bool) {
		if v, ok := os.LookupEnv(key); ok {
			return v, true
		}
		v, ok := dotenv[key]
		return v, ok
	}
	if err := cfg.applyEnvOverrides(lookupEnv); err != nil {
		return nil, err
	}

	if cfg.Tool.VaultPath == "" && dir != "" {
		cfg.Tool.VaultPath = dir
	}
	if cfg.Tool.VaultPath != "" {
		if abs, err := filepath.Abs(expandHome(cfg.Tool.VaultPath)); err == nil {
			cfg.Tool.VaultPath = abs
		}
	}
	cfg.Tool.Path = expandHome(cfg.Tool.Path)
	if cfg.Tool.Collection == "" && cfg.Tool.VaultPath != "" {
		cfg.Tool.Collection = filepath.Base(cfg.Tool.VaultPath)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// ProjectConfigPath returns the vault config file in dir, or "" if none exists.
func ProjectConfigPath(dir string) string {
	for _, name := range ProjectFileNames {
		p := filepath.Join(dir, name)
		if fileExists(p) {
			return p
		}
	}
	return ""
}

// loadFromFile loads .qmdsync.yaml, falling back to .qmdsync.yml.
func (c *Config) loadFromFile(dir string) error {
	if p := ProjectConfigPath(dir); p != "" {
		return c.loadYAML(p)
	}
	return nil
}

func (c *Config) loadYAMLIfExists(path string) error {
	if !fileExists(path) {
		return nil
	}
	return c.loadYAML(path)
}

// loadYAML decodes a file on top of the current values, so keys absent
// from the file keep what earlier layers set. Unknown keys are rejected.
func (c *Config) loadYAML(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(c); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	return nil
}

// LoadDotEnv reads the .env file in dir without touching the process
// environment. A missing file yields an empty map.
func LoadDotEnv(dir string) (map[string]string, error) {
	path := filepath.Join(dir, ".env")
	if !fileExists(path) {
		return map[string]string{}, nil
	}
	values, err := godotenv.Read(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	return values, nil
}

// applyEnvOverrides applies QMDSYNC_* overrides from lookup.
func (c *Config) applyEnvOverrides(lookup func(string) (string, bool)) error {
	var errs []error

	str := func(key string, dst *string) {
		if v, ok := lookup(key); ok && v != "" {
			*dst = v
		}
	}
	num := func(key string, dst *int) {
		v, ok := lookup(key)
		if !ok || v == "" {
			return
		}
		n, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %q is not an integer", key, v))
			return
		}
		*dst = n
	}
	float := func(key string, dst *float64) {
		v, ok := lookup(key)
		if !ok || v == "" {
			return
		}
		f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %q is not a number", key, v))
			return
		}
		*dst = f
	}
	boolean := func(key string, dst *bool) {
		v, ok := lookup(key)
		if !ok || v == "" {
			return
		}
		b, err := strconv.ParseBool(strings.TrimSpace(v))
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %q is not a boolean", key, v))
			return
		}
		*dst = b
	}

	str("QMDSYNC_TOOL_PATH", &c.Tool.Path)
	str("QMDSYNC_COLLECTION", &c.Tool.Collection)
	str("QMDSYNC_VAULT", &c.Tool.VaultPath)
	str("QMDSYNC_STATUS_FORMAT", &c.Tool.StatusFormat)
	str("QMDSYNC_SYNC_MODE", &c.Sync.Mode)
	num("QMDSYNC_SYNC_INTERVAL_MINUTES", &c.Sync.IntervalMinutes)
	num("QMDSYNC_DEBOUNCE_MS", &c.Sync.DebounceMs)
	str("QMDSYNC_SEARCH_MODE", &c.Search.DefaultMode)
	num("QMDSYNC_DEFAULT_LIMIT", &c.Search.DefaultLimit)
	float("QMDSYNC_MIN_SCORE", &c.Search.MinScore)
	boolean("QMDSYNC_RELATED_ENABLED", &c.Related.Enabled)
	num("QMDSYNC_RELATED_LIMIT", &c.Related.Limit)
	num("QMDSYNC_CACHE_TTL_MINUTES", &c.Cache.TTLMinutes)
	str("QMDSYNC_SOCKET", &c.Server.SocketPath)
	str("QMDSYNC_LOG_LEVEL", &c.Server.LogLevel)

	return errors.Join(errs...)
}

// Validate validates the configuration and returns an error if invalid.
func (c *Config) Validate() error {
	if _, err := autosync.ParseMode(c.Sync.Mode); err != nil {
		return fmt.Errorf("sync.mode must be one of %v: %w", autosync.Modes(), err)
	}
	if c.Sync.IntervalMinutes < 0 {
		return fmt.Errorf("sync.interval_minutes must be non-negative, got %d", c.Sync.IntervalMinutes)
	}
	if mode, _ := autosync.ParseMode(c.Sync.Mode); mode == autosync.ModeScheduled && c.Sync.IntervalMinutes == 0 {
		return fmt.Errorf("sync.interval_minutes must be positive in scheduled mode")
	}
	if c.Sync.DebounceMs < 0 {
		return fmt.Errorf("sync.debounce_ms must be non-negative, got %d", c.Sync.DebounceMs)
	}
	for name, d := range map[string]time.Duration{
		"sync.incremental_timeout": c.Sync.IncrementalTimeout,
		"sync.full_timeout":        c.Sync.FullTimeout,
		"sync.embed_timeout":       c.Sync.EmbedTimeout,
		"sync.probe_timeout":       c.Sync.ProbeTimeout,
		"search.timeout":           c.Search.Timeout,
	} {
		if d < 0 {
			return fmt.Errorf("%s must be non-negative, got %s", name, d)
		}
	}

	if _, ok := qmd.ParseMode(c.Search.DefaultMode); !ok {
		return fmt.Errorf("search.default_mode must be 'search', 'vsearch' or 'query', got %s", c.Search.DefaultMode)
	}
	if c.Search.DefaultLimit < 0 {
		return fmt.Errorf("search.default_limit must be non-negative, got %d", c.Search.DefaultLimit)
	}
	if c.Search.MinScore < 0 || c.Search.MinScore > 1 {
		return fmt.Errorf("search.min_score must be between 0 and 1, got %g", c.Search.MinScore)
	}
	if c.Related.Limit < 0 {
		return fmt.Errorf("related.limit must be non-negative, got %d", c.Related.Limit)
	}
	if c.Related.MinScore < 0 || c.Related.MinScore > 1 {
		return fmt.Errorf("related.min_score must be between 0 and 1, got %g", c.Related.MinScore)
	}
	if c.Related.CacheTTLMinutes < 0 || c.Cache.TTLMinutes < 0 {
		return fmt.Errorf("cache TTLs must be non-negative")
	}
	if c.Cache.MaxEntries < 0 {
		return fmt.Errorf("cache.max_entries must be non-negative, got %d", c.Cache.MaxEntries)
	}

	switch qmd.StatusFormat(strings.ToLower(c.Tool.StatusFormat)) {
	case qmd.StatusFormatText, qmd.StatusFormatJSON, "":
	default:
		return fmt.Errorf("tool.status_format must be 'text' or 'json', got %s", c.Tool.StatusFormat)
	}

	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[strings.ToLower(c.Server.LogLevel)] {
		return fmt.Errorf("server.log_level must be 'debug', 'info', 'warn', or 'error', got %s", c.Server.LogLevel)
	}
	return nil
}

// Settings projects the configuration onto the user-facing settings.
func (c *Config) Settings() Settings {
	mode, _ := autosync.ParseMode(c.Sync.Mode)
	return Settings{
		ToolPath:            c.Tool.Path,
		SyncMode:            string(mode),
		SyncIntervalMinutes: c.Sync.IntervalMinutes,
		DebounceMs:          c.Sync.DebounceMs,
		DefaultResultLimit:  c.Search.DefaultLimit,
		MinScore:            c.Search.MinScore,
		CacheTTLMinutes:     c.Cache.TTLMinutes,
	}
}

// AutoSync returns the coordinator settings. toolPath is the resolved
// executable, which may differ from Tool.Path after discovery.
func (c *Config) AutoSync(toolPath string) autosync.Config {
	mode, _ := autosync.ParseMode(c.Sync.Mode)
	return autosync.Config{
		Mode:               mode,
		Interval:           time.Duration(c.Sync.IntervalMinutes) * time.Minute,
		Debounce:           time.Duration(c.Sync.DebounceMs) * time.Millisecond,
		ToolPath:           toolPath,
		VaultPath:          c.Tool.VaultPath,
		Collection:         c.Tool.Collection,
		IncrementalTimeout: c.Sync.IncrementalTimeout,
		FullTimeout:        c.Sync.FullTimeout,
		ProbeTimeout:       c.Sync.ProbeTimeout,
	}
}

// Lookup returns the read-side settings.
func (c *Config) Lookup() lookup.Config {
	return lookup.Config{
		Collection:      c.Tool.Collection,
		DefaultLimit:    c.Search.DefaultLimit,
		MinScore:        c.Search.MinScore,
		SearchTTL:       time.Duration(c.Cache.TTLMinutes) * time.Minute,
		MaxEntries:      c.Cache.MaxEntries,
		RelatedEnabled:  c.Related.Enabled,
		RelatedLimit:    c.Related.Limit,
		RelatedMinScore: c.Related.MinScore,
		RelatedTTL:      time.Duration(c.Related.CacheTTLMinutes) * time.Minute,
	}
}

// Timeouts returns the index client time bounds.
func (c *Config) Timeouts() qmd.Timeouts {
	return qmd.Timeouts{
		Probe:  c.Sync.ProbeTimeout,
		Search: c.Search.Timeout,
		Update: c.Sync.IncrementalTimeout,
		Full:   c.Sync.FullTimeout,
		Embed:  c.Sync.EmbedTimeout,
	}
}

// StatusFormat returns the configured status parsing strategy.
func (c *Config) StatusFormat() qmd.StatusFormat {
	if strings.EqualFold(c.Tool.StatusFormat, string(qmd.StatusFormatJSON)) {
		return qmd.StatusFormatJSON
	}
	return qmd.StatusFormatText
}

// Daemon returns the daemon settings.
func (c *Config) Daemon() daemon.Config {
	d := daemon.DefaultConfig()
	if c.Server.SocketPath != "" {
		d.SocketPath = expandHome(c.Server.SocketPath)
	}
	if c.Server.PIDPath != "" {
		d.PIDPath = expandHome(c.Server.PIDPath)
	}
	if full := c.Sync.FullTimeout + time.Minute; full > d.SyncTimeout {
		d.SyncTimeout = full
	}
	return d
}

// WriteYAML writes the configuration to a YAML file.
func (c *Config) WriteYAML(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// expandHome replaces a leading ~/ with the user's home directory.
func expandHome(p string) string {
	if p == "~" || strings.HasPrefix(p, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, strings.TrimPrefix(p, "~"))
		}
	}
	return p
}

// fileExists checks if a file exists and is not a directory.
func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}

// GetUserConfigDir returns the directory containing the user configuration.
func GetUserConfigDir() string {
	return filepath.Dir(GetUserConfigPath())
}

// UserConfigExists reports whether a user configuration file is present.
func UserConfigExists() bool {
	return fileExists(GetUserConfigPath())
}
