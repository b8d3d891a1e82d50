package cmd

import (
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/Aman-CERP/qmdsync/internal/autosync"
	"github.com/Aman-CERP/qmdsync/internal/daemon"
	qerrors "github.com/Aman-CERP/qmdsync/internal/errors"
	"github.com/Aman-CERP/qmdsync/internal/ui"
)

func newStatusCmd() *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show sync and index status",
		Long: `Show the sync state and a snapshot of the qmd index for the vault.

When a server is running for the vault, its live sync status (running,
pending changes, last error) is shown. Otherwise only the index snapshot
and the configured mode are available.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := loadApp()
			if err != nil {
				return err
			}
			ctx := cmd.Context()

			_, info := a.probeDaemon(ctx)
			if info == nil {
				info = localStatus(cmd, a)
			}
			return ui.NewStatusRenderer(cmd.OutOrStdout(), ui.DetectOptions(cmd.OutOrStdout(), jsonOutput)).Render(*info)
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output status as JSON")
	return cmd
}

// localStatus builds a status report without a server.
func localStatus(cmd *cobra.Command, a *app) *daemon.StatusResult {
	mode, _ := autosync.ParseMode(a.cfg.Sync.Mode)
	info := &daemon.StatusResult{
		VaultPath: a.vault,
		ToolPath:  a.toolPath,
		Sync:      autosync.Status{Mode: mode},
	}

	idx, err := a.indexClient().Status(cmd.Context())
	if err != nil {
		a.logger.Debug("index status failed", slog.String("error", err.Error()))
		info.IndexError = qerrors.Message(err)
		return info
	}
	info.Index = idx
	return info
}
