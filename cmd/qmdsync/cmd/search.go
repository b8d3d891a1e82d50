package cmd

import (
	"context"
	"log/slog"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Aman-CERP/qmdsync/internal/daemon"
	"github.com/Aman-CERP/qmdsync/internal/lookup"
	"github.com/Aman-CERP/qmdsync/internal/qmd"
	"github.com/Aman-CERP/qmdsync/internal/ui"
)

// searchModes lists the search commands, one per ranking mode.
var searchModes = []qmd.Mode{qmd.ModeSearch, qmd.ModeVSearch, qmd.ModeQuery}

var searchShort = map[qmd.Mode]string{
	qmd.ModeSearch:  "Keyword search (BM25)",
	qmd.ModeVSearch: "Semantic search over embeddings",
	qmd.ModeQuery:   "Hybrid search with reranking",
}

// searchOptions holds CLI flags for the search commands.
type searchOptions struct {
	limit      int
	minScore   float64
	collection string
	full       bool
	local      bool
	jsonOutput bool
}

func newSearchCmd(mode qmd.Mode) *cobra.Command {
	var opts searchOptions

	cmd := &cobra.Command{
		Use:   string(mode) + " <query>",
		Short: searchShort[mode],
		Long: searchShort[mode] + ` over the vault's qmd index.

Results come from the running server when there is one, which answers
repeated queries from its cache until the next sync.

Examples:
  qmdsync ` + string(mode) + ` "meeting notes"
  qmdsync ` + string(mode) + ` "project roadmap" --limit 5 --min-score 0.5
  qmdsync ` + string(mode) + ` "ideas" --json`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSearch(cmd, mode, strings.Join(args, " "), opts)
		},
	}

	cmd.Flags().IntVarP(&opts.limit, "limit", "n", 0, "Maximum number of results (default: search.default_limit)")
	cmd.Flags().Float64Var(&opts.minScore, "min-score", 0, "Minimum score between 0 and 1 (default: search.min_score)")
	cmd.Flags().StringVarP(&opts.collection, "collection", "c", "", "Restrict to a collection")
	cmd.Flags().BoolVar(&opts.full, "full", false, "Include full document text")
	cmd.Flags().BoolVar(&opts.local, "local", false, "Query qmd directly even if a server is running")
	cmd.Flags().BoolVar(&opts.jsonOutput, "json", false, "Output results as JSON")
	return cmd
}

func runSearch(cmd *cobra.Command, mode qmd.Mode, query string, opts searchOptions) error {
	ctx := cmd.Context()
	a, err := loadApp()
	if err != nil {
		return err
	}

	params := daemon.SearchParams{
		Mode:       string(mode),
		Query:      query,
		Collection: opts.collection,
		Limit:      opts.limit,
		MinScore:   opts.minScore,
		Full:       opts.full,
	}
	if err := params.Validate(); err != nil {
		return err
	}

	a.logger.Info("search started", slog.String("mode", string(mode)), slog.String("query", query))
	res, err := search(ctx, a, params, opts.local)
	if err != nil {
		return err
	}
	a.logger.Info("search completed", slog.Int("results", len(res.Items)))

	return ui.NewResultsRenderer(cmd.OutOrStdout(), ui.DetectOptions(cmd.OutOrStdout(), opts.jsonOutput)).RenderSearch(res)
}

// search asks the server first and falls back to qmd on any server error.
func search(ctx context.Context, a *app, params daemon.SearchParams, local bool) (*qmd.SearchResult, error) {
	if !local {
		if client, _ := a.probeDaemon(ctx); client != nil {
			res, err := client.Search(ctx, params)
			if err == nil {
				return res, nil
			}
			a.logger.Warn("daemon search failed, falling back to local", slog.String("error", err.Error()))
		}
	}

	reads := lookup.New(a.indexClient(), a.cfg.Lookup(), a.logger)
	defer reads.Close()
	mode, _ := qmd.ParseMode(params.Mode)
	return reads.Search(ctx, mode, params.Query, params.Options())
}

func newRelatedCmd() *cobra.Command {
	var jsonOutput bool
	var local bool

	cmd := &cobra.Command{
		Use:   "related <path>",
		Short: "Find notes similar to a note",
		Long: `Find notes semantically similar to the given note. The note's title and
opening text seed a vector search; the note itself is left out.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := loadApp()
			if err != nil {
				return err
			}

			res, err := related(ctx, a, args[0], local)
			if err != nil {
				return err
			}
			return ui.NewResultsRenderer(cmd.OutOrStdout(), ui.DetectOptions(cmd.OutOrStdout(), jsonOutput)).RenderSearch(res)
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output results as JSON")
	cmd.Flags().BoolVar(&local, "local", false, "Query qmd directly even if a server is running")
	return cmd
}

func related(ctx context.Context, a *app, path string, local bool) (*qmd.SearchResult, error) {
	if !local {
		if client, _ := a.probeDaemon(ctx); client != nil {
			res, err := client.Related(ctx, daemon.RelatedParams{Path: path})
			if err == nil {
				return res, nil
			}
			a.logger.Warn("daemon related lookup failed, falling back to local", slog.String("error", err.Error()))
		}
	}

	index := a.indexClient()
	doc, err := index.Get(ctx, path)
	if err != nil {
		return nil, err
	}
	reads := lookup.New(index, a.cfg.Lookup(), a.logger)
	defer reads.Close()
	return reads.Related(ctx, path, doc.Content)
}

func newGetCmd() *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "get <path|qmd://locator|#docid>",
		Short: "Print a document from the index",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := loadApp()
			if err != nil {
				return err
			}
			doc, err := a.indexClient().Get(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return ui.NewResultsRenderer(cmd.OutOrStdout(), ui.DetectOptions(cmd.OutOrStdout(), jsonOutput)).RenderDocument(doc)
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output the document as JSON")
	return cmd
}
