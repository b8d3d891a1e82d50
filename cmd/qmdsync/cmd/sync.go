package cmd

import (
	"context"
	"log/slog"
	"time"

	"github.com/spf13/cobra"

	"github.com/Aman-CERP/qmdsync/internal/autosync"
	"github.com/Aman-CERP/qmdsync/internal/qmd"
	"github.com/Aman-CERP/qmdsync/internal/ui"
)

func newSyncCmd() *cobra.Command {
	var jsonOutput bool
	var local bool

	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Sync the vault into the qmd index now",
		Long: `Run a full sync of the vault: register it as a qmd collection (or update
it if already registered) and start embedding when vectors are missing.

If a server is running for this vault the sync runs there, so it is
serialized with automatic syncs. Otherwise qmd is invoked directly and the
command waits for any embedding it started.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runSync(cmd, jsonOutput, local)
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output the outcome as JSON")
	cmd.Flags().BoolVar(&local, "local", false, "Run in this process even if a server is running")
	return cmd
}

func runSync(cmd *cobra.Command, jsonOutput, local bool) error {
	ctx := cmd.Context()
	a, err := loadApp()
	if err != nil {
		return err
	}

	reporter := ui.NewSyncReporter(cmd.OutOrStdout(), ui.DetectOptions(cmd.OutOrStdout(), jsonOutput))

	if !local {
		if client, _ := a.probeDaemon(ctx); client != nil {
			reporter.Started(a.vault, "daemon")
			start := time.Now()
			_, err := client.Sync(ctx)
			return markReported(reporter.Finished(time.Since(start), "daemon", err))
		}
	}

	reporter.Started(a.vault, "local")
	start := time.Now()
	index := a.indexClient()
	err = syncLocal(ctx, a, index)
	if err == nil {
		waitForEmbedding(ctx, index, a.logger)
	}
	return markReported(reporter.Finished(time.Since(start), "local", err))
}

// syncLocal runs one manual sync through a short-lived coordinator so the
// CLI and the server share the same sync sequence.
func syncLocal(ctx context.Context, a *app, index *qmd.Client) error {
	cfg := a.cfg.AutoSync(a.toolPath)
	cfg.Mode = autosync.ModeOff

	coord := autosync.New(cfg, index, autosync.WithLogger(a.logger))
	runCtx, cancel := context.WithCancel(ctx)
	defer func() {
		cancel()
		<-coord.Done()
	}()
	go func() { _ = coord.Run(runCtx) }()

	return coord.ManualSync(ctx)
}

// waitForEmbedding blocks until background embedding ends or ctx is done.
func waitForEmbedding(ctx context.Context, index *qmd.Client, logger *slog.Logger) {
	done := make(chan struct{})
	go func() {
		index.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
		logger.Warn("stopped waiting for embedding", slog.String("reason", ctx.Err().Error()))
	}
}
