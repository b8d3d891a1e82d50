package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Aman-CERP/qmdsync/internal/autosync"
	"github.com/Aman-CERP/qmdsync/internal/qmd"
)

// isolate points the user config at an empty directory and clears
// QMDSYNC_* variables that would leak in from the environment.
func isolate(t *testing.T) string {
	t.Helper()
	xdg := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", xdg)
	for _, key := range []string{
		"QMDSYNC_TOOL_PATH", "QMDSYNC_COLLECTION", "QMDSYNC_VAULT", "QMDSYNC_STATUS_FORMAT",
		"QMDSYNC_SYNC_MODE", "QMDSYNC_SYNC_INTERVAL_MINUTES", "QMDSYNC_DEBOUNCE_MS",
		"QMDSYNC_SEARCH_MODE", "QMDSYNC_DEFAULT_LIMIT", "QMDSYNC_MIN_SCORE",
		"QMDSYNC_RELATED_ENABLED", "QMDSYNC_RELATED_LIMIT", "QMDSYNC_CACHE_TTL_MINUTES",
		"QMDSYNC_SOCKET", "QMDSYNC_LOG_LEVEL",
	} {
		t.Setenv(key, "")
		os.Unsetenv(key)
	}
	return xdg
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
}

func TestNewConfig_ReturnsDefaults(t *testing.T) {
	// Given: no configuration file exists
	cfg := NewConfig()

	// Then: documented defaults apply
	s := cfg.Settings()
	assert.Equal(t, "", s.ToolPath)
	assert.Equal(t, "on-startup", s.SyncMode)
	assert.Equal(t, 10, s.SyncIntervalMinutes)
	assert.Equal(t, 5000, s.DebounceMs)
	assert.Equal(t, 10, s.DefaultResultLimit)
	assert.Equal(t, 0.3, s.MinScore)
	assert.Equal(t, 5, s.CacheTTLMinutes)

	assert.True(t, cfg.Related.Enabled)
	assert.Equal(t, 5, cfg.Related.Limit)
	assert.Equal(t, "info", cfg.Server.LogLevel)
	assert.Equal(t, qmd.StatusFormatText, cfg.StatusFormat())
	assert.NoError(t, cfg.Validate())
}

func TestLoad_NoConfigFile_ReturnsDefaults(t *testing.T) {
	isolate(t)
	dir := t.TempDir()

	cfg, err := Load(dir)

	require.NoError(t, err)
	assert.Equal(t, NewConfig().Settings(), cfg.Settings())
	abs, _ := filepath.Abs(dir)
	assert.Equal(t, abs, cfg.Tool.VaultPath)
	assert.Equal(t, filepath.Base(abs), cfg.Tool.Collection, "collection defaults to the vault name")
}

func TestLoad_YamlFile_OverridesDefaults(t *testing.T) {
	isolate(t)
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, ".qmdsync.yaml"), `
tool:
  path: /opt/qmd
  collection: notes
sync:
  mode: scheduled
  interval_minutes: 30
  full_timeout: 10m
search:
  min_score: 0.5
`)

	cfg, err := Load(dir)

	require.NoError(t, err)
	assert.Equal(t, "/opt/qmd", cfg.Tool.Path)
	assert.Equal(t, "notes", cfg.Tool.Collection)
	assert.Equal(t, "scheduled", cfg.Sync.Mode)
	assert.Equal(t, 30, cfg.Sync.IntervalMinutes)
	assert.Equal(t, 10*time.Minute, cfg.Sync.FullTimeout)
	assert.Equal(t, 0.5, cfg.Search.MinScore)
	// untouched keys keep their defaults
	assert.Equal(t, 5000, cfg.Sync.DebounceMs)
	assert.Equal(t, 10, cfg.Search.DefaultLimit)
}

func TestLoad_YmlExtension_IsRecognized(t *testing.T) {
	isolate(t)
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, ".qmdsync.yml"), "sync:\n  mode: off\n")

	cfg, err := Load(dir)

	require.NoError(t, err)
	assert.Equal(t, "off", cfg.Sync.Mode)
}

func TestLoad_YamlPreferredOverYml(t *testing.T) {
	isolate(t)
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, ".qmdsync.yaml"), "sync:\n  mode: on-change\n")
	writeFile(t, filepath.Join(dir, ".qmdsync.yml"), "sync:\n  mode: off\n")

	cfg, err := Load(dir)

	require.NoError(t, err)
	assert.Equal(t, "on-change", cfg.Sync.Mode)
	assert.Equal(t, filepath.Join(dir, ".qmdsync.yaml"), ProjectConfigPath(dir))
}

func TestLoad_InvalidYaml_ReturnsError(t *testing.T) {
	isolate(t)
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, ".qmdsync.yaml"), "sync: [unclosed\n")

	_, err := Load(dir)

	assert.Error(t, err)
}

func TestLoad_UnknownKey_ReturnsError(t *testing.T) {
	isolate(t)
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, ".qmdsync.yaml"), "sync:\n  moed: off\n")

	_, err := Load(dir)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "moed")
}

func TestLoad_EmptyFile_KeepsDefaults(t *testing.T) {
	isolate(t)
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, ".qmdsync.yaml"), "")

	cfg, err := Load(dir)

	require.NoError(t, err)
	assert.Equal(t, "on-startup", cfg.Sync.Mode)
}

func TestLoad_OnSaveAlias(t *testing.T) {
	isolate(t)
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, ".qmdsync.yaml"), "sync:\n  mode: on-save\n")

	cfg, err := Load(dir)

	require.NoError(t, err)
	assert.Equal(t, "on-change", cfg.Settings().SyncMode)
	assert.Equal(t, autosync.ModeOnChange, cfg.AutoSync("qmd").Mode)
}

func TestLoad_PrecedenceLayers(t *testing.T) {
	// Given: user config, vault config, .env and a real env var all set values
	xdg := isolate(t)
	dir := t.TempDir()
	writeFile(t, filepath.Join(xdg, "qmdsync", "config.yaml"), `
sync:
  interval_minutes: 20
  debounce_ms: 1000
search:
  default_limit: 7
cache:
  ttl_minutes: 9
`)
	writeFile(t, filepath.Join(dir, ".qmdsync.yaml"), `
sync:
  debounce_ms: 2000
search:
  default_limit: 8
`)
	writeFile(t, filepath.Join(dir, ".env"), "QMDSYNC_DEFAULT_LIMIT=12\nQMDSYNC_CACHE_TTL_MINUTES=3\n")
	t.Setenv("QMDSYNC_CACHE_TTL_MINUTES", "4")

	// When: loading
	cfg, err := Load(dir)
	require.NoError(t, err)

	// Then: each key comes from the highest layer that sets it
	assert.Equal(t, 20, cfg.Sync.IntervalMinutes, "user config")
	assert.Equal(t, 2000, cfg.Sync.DebounceMs, "vault config beats user config")
	assert.Equal(t, 12, cfg.Search.DefaultLimit, ".env beats vault config")
	assert.Equal(t, 4, cfg.Cache.TTLMinutes, "process env beats .env")
}

func TestLoad_EnvVarOverrides(t *testing.T) {
	isolate(t)
	t.Setenv("QMDSYNC_TOOL_PATH", "bunx qmd")
	t.Setenv("QMDSYNC_SYNC_MODE", "on-change")
	t.Setenv("QMDSYNC_MIN_SCORE", "0.7")
	t.Setenv("QMDSYNC_RELATED_ENABLED", "false")
	t.Setenv("QMDSYNC_LOG_LEVEL", "debug")

	cfg, err := Load(t.TempDir())

	require.NoError(t, err)
	assert.Equal(t, "bunx qmd", cfg.Tool.Path)
	assert.Equal(t, "on-change", cfg.Sync.Mode)
	assert.Equal(t, 0.7, cfg.Search.MinScore)
	assert.False(t, cfg.Related.Enabled)
	assert.Equal(t, "debug", cfg.Server.LogLevel)
}

func TestLoad_EnvVarEmptyString_DoesNotOverride(t *testing.T) {
	isolate(t)
	t.Setenv("QMDSYNC_SYNC_MODE", "")

	cfg, err := Load(t.TempDir())

	require.NoError(t, err)
	assert.Equal(t, "on-startup", cfg.Sync.Mode)
}

func TestLoad_EnvVarInvalidNumber_ReturnsError(t *testing.T) {
	isolate(t)
	t.Setenv("QMDSYNC_DEBOUNCE_MS", "soon")

	_, err := Load(t.TempDir())

	require.Error(t, err)
	assert.Contains(t, err.Error(), "QMDSYNC_DEBOUNCE_MS")
}

func TestLoad_EmptyDir_SkipsVaultLayers(t *testing.T) {
	isolate(t)

	cfg, err := Load("")

	require.NoError(t, err)
	assert.Empty(t, cfg.Tool.VaultPath)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		modify  func(*Config)
		wantErr string
	}{
		{"defaults", func(*Config) {}, ""},
		{"unknown mode", func(c *Config) { c.Sync.Mode = "hourly" }, "sync.mode"},
		{"negative interval", func(c *Config) { c.Sync.IntervalMinutes = -1 }, "interval_minutes"},
		{"scheduled without interval", func(c *Config) {
			c.Sync.Mode = "scheduled"
			c.Sync.IntervalMinutes = 0
		}, "scheduled"},
		{"zero debounce allowed", func(c *Config) { c.Sync.DebounceMs = 0 }, ""},
		{"negative debounce", func(c *Config) { c.Sync.DebounceMs = -5 }, "debounce_ms"},
		{"negative timeout", func(c *Config) { c.Sync.FullTimeout = -time.Second }, "full_timeout"},
		{"bad search mode", func(c *Config) { c.Search.DefaultMode = "fuzzy" }, "default_mode"},
		{"min score above one", func(c *Config) { c.Search.MinScore = 1.5 }, "min_score"},
		{"negative limit", func(c *Config) { c.Search.DefaultLimit = -1 }, "default_limit"},
		{"related min score", func(c *Config) { c.Related.MinScore = -0.1 }, "related.min_score"},
		{"bad status format", func(c *Config) { c.Tool.StatusFormat = "xml" }, "status_format"},
		{"bad log level", func(c *Config) { c.Server.LogLevel = "loud" }, "log_level"},
		{"mixed case log level", func(c *Config) { c.Server.LogLevel = "WARN" }, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := NewConfig()
			tt.modify(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestProjections(t *testing.T) {
	cfg := NewConfig()
	cfg.Tool.Collection = "vault"
	cfg.Tool.VaultPath = "/notes"
	cfg.Sync.Mode = "scheduled"
	cfg.Sync.IntervalMinutes = 15
	cfg.Sync.DebounceMs = 250
	cfg.Cache.TTLMinutes = 2

	as := cfg.AutoSync("/usr/bin/qmd")
	assert.Equal(t, autosync.ModeScheduled, as.Mode)
	assert.Equal(t, 15*time.Minute, as.Interval)
	assert.Equal(t, 250*time.Millisecond, as.Debounce)
	assert.Equal(t, "/usr/bin/qmd", as.ToolPath)
	assert.Equal(t, "/notes", as.VaultPath)

	lk := cfg.Lookup()
	assert.Equal(t, "vault", lk.Collection)
	assert.Equal(t, 2*time.Minute, lk.SearchTTL)
	assert.Equal(t, 5*time.Minute, lk.RelatedTTL)

	to := cfg.Timeouts()
	assert.Equal(t, cfg.Sync.FullTimeout, to.Full)
	assert.Equal(t, cfg.Search.Timeout, to.Search)

	d := cfg.Daemon()
	assert.NoError(t, d.Validate())
	assert.GreaterOrEqual(t, d.SyncTimeout, cfg.Sync.FullTimeout)
}

func TestStatusFormat_JSON(t *testing.T) {
	cfg := NewConfig()
	cfg.Tool.StatusFormat = "JSON"
	assert.Equal(t, qmd.StatusFormatJSON, cfg.StatusFormat())
}

func TestGetUserConfigPath_RespectsXDGConfigHome(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", "/custom/config")
	assert.Equal(t, "/custom/config/qmdsync/config.yaml", GetUserConfigPath())
	assert.Equal(t, "/custom/config/qmdsync", GetUserConfigDir())
}

func TestGetUserConfigPath_DefaultsToHomeConfig(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", "")
	home, err := os.UserHomeDir()
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(home, ".config", "qmdsync", "config.yaml"), GetUserConfigPath())
}

func TestUserConfigExists(t *testing.T) {
	xdg := isolate(t)
	assert.False(t, UserConfigExists())
	writeFile(t, filepath.Join(xdg, "qmdsync", "config.yaml"), "sync:\n  mode: off\n")
	assert.True(t, UserConfigExists())
}

func TestWriteYAML_RoundTripsThroughLoad(t *testing.T) {
	// Given: a modified config written to a vault
	isolate(t)
	dir := t.TempDir()
	cfg := NewConfig()
	cfg.Sync.Mode = "on-change"
	cfg.Search.DefaultLimit = 25
	require.NoError(t, cfg.WriteYAML(filepath.Join(dir, ".qmdsync.yaml")))

	// When: loading the vault
	loaded, err := Load(dir)

	// Then: the written values come back
	require.NoError(t, err)
	assert.Equal(t, "on-change", loaded.Sync.Mode)
	assert.Equal(t, 25, loaded.Search.DefaultLimit)
	assert.Equal(t, cfg.Sync.FullTimeout, loaded.Sync.FullTimeout)
}

func TestExpandHome(t *testing.T) {
	home, err := os.UserHomeDir()
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(home, "bin/qmd"), expandHome("~/bin/qmd"))
	assert.Equal(t, "/abs/qmd", expandHome("/abs/qmd"))
	assert.Equal(t, "bunx qmd", expandHome("bunx qmd"))
}
