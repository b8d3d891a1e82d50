// Package cmd provides the CLI commands for qmdsync.
package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	qerrors "github.com/Aman-CERP/qmdsync/internal/errors"
	"github.com/Aman-CERP/qmdsync/internal/logging"
	"github.com/Aman-CERP/qmdsync/pkg/version"
)

// Persistent flags
var (
	debugMode      bool
	vaultFlag      string
	loggingCleanup func()
)

// NewRootCmd creates the root command for the qmdsync CLI.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "qmdsync",
		Short: "Keep a qmd index in sync with a notes vault",
		Long: `qmdsync watches a directory of markdown notes and keeps the qmd search
index up to date: on change, on startup, on a schedule, or on demand.

Run 'qmdsync serve' in your vault to start syncing. Other commands talk to
the running server when there is one and to qmd directly otherwise.`,
		Version:       version.Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.SetVersionTemplate("qmdsync version {{.Version}}\n")

	cmd.PersistentFlags().BoolVar(&debugMode, "debug", false, "Enable debug logging to stderr and ~/.qmdsync/logs/")
	cmd.PersistentFlags().StringVar(&vaultFlag, "vault", "", "Vault directory (default: current directory)")

	cmd.PersistentPreRunE = startLogging
	cmd.PersistentPostRunE = stopLogging

	cmd.AddCommand(newServeCmd())
	cmd.AddCommand(newSyncCmd())
	cmd.AddCommand(newStatusCmd())
	for _, mode := range searchModes {
		cmd.AddCommand(newSearchCmd(mode))
	}
	cmd.AddCommand(newRelatedCmd())
	cmd.AddCommand(newGetCmd())
	cmd.AddCommand(newCollectionsCmd())
	cmd.AddCommand(newTestCmd())
	cmd.AddCommand(newDoctorCmd())
	cmd.AddCommand(newConfigCmd())
	cmd.AddCommand(newLogsCmd())
	cmd.AddCommand(newVersionCmd())

	return cmd
}

// startLogging routes slog to the log file, and to stderr with --debug.
// serve replaces this with its own setup once the config is known.
func startLogging(_ *cobra.Command, _ []string) error {
	cfg := logging.DefaultConfig()
	if debugMode {
		cfg = logging.DebugConfig()
	}
	cleanup, err := logging.SetupDefault(cfg)
	if err != nil {
		// a read-only home must not break one-shot commands
		slog.SetDefault(logging.Discard())
		return nil
	}
	loggingCleanup = cleanup
	slog.Debug("logging enabled",
		slog.String("log_file", cfg.FilePath),
		slog.String("version", version.Version))
	return nil
}

func stopLogging(_ *cobra.Command, _ []string) error {
	if loggingCleanup != nil {
		loggingCleanup()
		loggingCleanup = nil
	}
	return nil
}

// Execute runs the root command, cancelling on SIGINT or SIGTERM.
func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	root := NewRootCmd()
	err := root.ExecuteContext(ctx)
	if err != nil && !reported(err) {
		_, _ = fmt.Fprint(root.ErrOrStderr(), qerrors.FormatForCLI(err))
	}
	_ = stopLogging(nil, nil)
	return err
}

// reportedError marks an error whose message the command already printed.
type reportedError struct{ err error }

func (e *reportedError) Error() string { return e.err.Error() }
func (e *reportedError) Unwrap() error { return e.err }

func markReported(err error) error {
	if err == nil {
		return nil
	}
	return &reportedError{err: err}
}

func reported(err error) bool {
	_, ok := err.(*reportedError)
	return ok
}
