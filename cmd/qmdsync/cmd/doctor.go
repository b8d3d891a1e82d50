package cmd

import (
	"errors"

	"github.com/spf13/cobra"

	"github.com/Aman-CERP/qmdsync/internal/preflight"
	"github.com/Aman-CERP/qmdsync/internal/ui"
)

func newDoctorCmd() *cobra.Command {
	var jsonOutput bool
	var verbose bool

	cmd := &cobra.Command{
		Use:   "doctor",
		Short: "Check that qmdsync can run for this vault",
		Long: `Check the vault directory, qmd and the index, and report anything that
would stop 'qmdsync serve' from syncing. Exits non-zero on a critical
failure.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := loadApp()
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			checker := preflight.New(
				preflight.WithIndex(a.indexClient()),
				preflight.WithVerbose(verbose),
				preflight.WithOutput(out),
			)
			results := checker.RunAll(cmd.Context(), a.vault)

			if jsonOutput {
				if err := ui.WriteJSON(out, struct {
					Status string                  `json:"status"`
					Checks []preflight.CheckResult `json:"checks"`
				}{checker.SummaryStatus(results), results}); err != nil {
					return err
				}
			} else {
				checker.PrintResults(results)
			}

			if checker.HasCriticalFailures(results) {
				return markReported(errors.New("doctor found critical problems"))
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output results as JSON")
	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "Show details for passing checks")
	return cmd
}
