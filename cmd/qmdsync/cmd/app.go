package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/Aman-CERP/qmdsync/internal/config"
	"github.com/Aman-CERP/qmdsync/internal/daemon"
	"github.com/Aman-CERP/qmdsync/internal/qmd"
)

// runnerOverride replaces the subprocess runner in tests.
var runnerOverride qmd.Runner

// app bundles what most commands need: the loaded configuration, the
// resolved qmd executable and a daemon client.
type app struct {
	cfg      *config.Config
	vault    string
	toolPath string
	logger   *slog.Logger
}

// loadApp loads the configuration for the --vault directory.
func loadApp() (*app, error) {
	vault := vaultFlag
	if vault == "" {
		wd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("failed to get working directory: %w", err)
		}
		vault = wd
	}
	abs, err := filepath.Abs(vault)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve vault path: %w", err)
	}

	cfg, err := config.Load(abs)
	if err != nil {
		return nil, err
	}

	return &app{
		cfg:      cfg,
		vault:    cfg.Tool.VaultPath,
		toolPath: resolveToolPath(cfg.Tool.Path),
		logger:   slog.Default(),
	}, nil
}

// resolveToolPath returns the configured path, or the first qmd found in
// the usual install locations. When nothing is found the bare name is
// returned so that the first invocation reports the tool as missing.
func resolveToolPath(configured string) string {
	if configured != "" {
		return configured
	}
	if p, ok := qmd.Locate(qmd.DefaultCandidates()); ok {
		return p
	}
	return qmd.ToolName
}

// indexClient creates an index client for the app's settings.
func (a *app) indexClient() *qmd.Client {
	opts := []qmd.ClientOption{
		qmd.WithTimeouts(a.cfg.Timeouts()),
		qmd.WithStatusFormat(a.cfg.StatusFormat()),
		qmd.WithLogger(a.logger),
	}
	if runnerOverride != nil {
		opts = append(opts, qmd.WithRunner(runnerOverride))
	}
	return qmd.NewClient(a.toolPath, opts...)
}

// daemonClient returns a client for the server of this vault, or nil if
// none is running.
func (a *app) daemonClient() *daemon.Client {
	client := daemon.NewClient(a.cfg.Daemon())
	if !client.IsRunning() {
		return nil
	}
	return client
}

// probeDaemon returns the running server's status, or nil when the daemon
// is not running or serves a different vault.
func (a *app) probeDaemon(ctx context.Context) (*daemon.Client, *daemon.StatusResult) {
	client := a.daemonClient()
	if client == nil {
		return nil, nil
	}
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	st, err := client.Status(ctx)
	if err != nil {
		a.logger.Debug("daemon status failed", slog.String("error", err.Error()))
		return nil, nil
	}
	if st.VaultPath != "" && st.VaultPath != a.vault {
		a.logger.Debug("daemon serves another vault",
			slog.String("daemon_vault", st.VaultPath),
			slog.String("vault", a.vault))
		return nil, nil
	}
	return client, st
}
