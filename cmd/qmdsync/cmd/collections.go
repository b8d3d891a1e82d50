package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Aman-CERP/qmdsync/internal/ui"
)

func newCollectionsCmd() *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "collections",
		Short: "List the collections in the qmd index",
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := loadApp()
			if err != nil {
				return err
			}
			st, err := a.indexClient().Status(cmd.Context())
			if err != nil {
				return err
			}
			return ui.NewResultsRenderer(cmd.OutOrStdout(), ui.DetectOptions(cmd.OutOrStdout(), jsonOutput)).RenderCollections(st.Collections)
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output collections as JSON")
	return cmd
}

func newTestCmd() *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "test",
		Short: "Check that qmd can be run and the index read",
		Long: `Run 'qmd status' with the configured executable and report whether it
succeeded. Exits non-zero when qmd is missing or fails.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := loadApp()
			if err != nil {
				return err
			}
			res := a.indexClient().TestConnection(cmd.Context())

			out := cmd.OutOrStdout()
			opts := ui.DetectOptions(out, jsonOutput)
			if opts.JSON {
				if err := ui.WriteJSON(out, res); err != nil {
					return err
				}
			} else {
				styles := ui.GetStyles(opts.NoColor)
				_, _ = fmt.Fprintf(out, "%s %s\n", styles.Label.Render("qmd:"), a.toolPath)
				if res.OK {
					_, _ = fmt.Fprintf(out, "%s %s\n", styles.Success.Render("OK"), res.Message)
				} else {
					_, _ = fmt.Fprintln(out, styles.Error.Render(res.Message))
				}
			}
			if !res.OK {
				return markReported(fmt.Errorf("qmd connection test failed"))
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output the result as JSON")
	return cmd
}
