package cmd

import (
	"fmt"
	"regexp"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/Aman-CERP/qmdsync/internal/logging"
	"github.com/Aman-CERP/qmdsync/internal/ui"
)

type logsOptions struct {
	follow  bool
	lines   int
	level   string
	filter  string
	noColor bool
	logFile string
}

func newLogsCmd() *cobra.Command {
	var opts logsOptions

	cmd := &cobra.Command{
		Use:   "logs",
		Short: "View qmdsync logs",
		Long: `View and tail the qmdsync log (~/.qmdsync/logs/sync.log).

Examples:
  qmdsync logs                  # Show last 50 lines
  qmdsync logs -f               # Follow new entries
  qmdsync logs --level warn     # Warnings and errors only
  qmdsync logs --filter sync    # Lines matching a pattern`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runLogs(cmd, opts)
		},
	}

	cmd.Flags().BoolVarP(&opts.follow, "follow", "f", false, "Follow log output (like tail -f)")
	cmd.Flags().IntVarP(&opts.lines, "lines", "n", 50, "Number of lines to show")
	cmd.Flags().StringVar(&opts.level, "level", "", "Minimum level (debug|info|warn|error)")
	cmd.Flags().StringVar(&opts.filter, "filter", "", "Filter by pattern (regex)")
	cmd.Flags().BoolVar(&opts.noColor, "no-color", false, "Disable colored output")
	cmd.Flags().StringVar(&opts.logFile, "file", "", "Path to log file")
	return cmd
}

func runLogs(cmd *cobra.Command, opts logsOptions) error {
	path, err := logging.FindLogFile(opts.logFile)
	if err != nil {
		return err
	}

	var pattern *regexp.Regexp
	if opts.filter != "" {
		pattern, err = regexp.Compile(opts.filter)
		if err != nil {
			return fmt.Errorf("invalid filter pattern: %w", err)
		}
	}

	out := cmd.OutOrStdout()
	viewer := logging.NewViewer(logging.ViewerConfig{
		Level:   opts.level,
		Pattern: pattern,
		NoColor: opts.noColor || ui.DetectOptions(out, false).NoColor,
	}, out)

	entries, err := viewer.Tail(path, opts.lines)
	if err != nil {
		return err
	}
	viewer.Print(entries)

	if !opts.follow {
		return nil
	}

	ch := make(chan logging.LogEntry, 64)
	g, ctx := errgroup.WithContext(cmd.Context())
	g.Go(func() error {
		defer close(ch)
		return viewer.Follow(ctx, path, ch)
	})
	g.Go(func() error {
		for entry := range ch {
			viewer.Print([]logging.LogEntry{entry})
		}
		return nil
	})
	return g.Wait()
}
