package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/Aman-CERP/qmdsync/internal/autosync"
	"github.com/Aman-CERP/qmdsync/internal/daemon"
	qerrors "github.com/Aman-CERP/qmdsync/internal/errors"
	"github.com/Aman-CERP/qmdsync/internal/logging"
	"github.com/Aman-CERP/qmdsync/internal/lookup"
	"github.com/Aman-CERP/qmdsync/internal/mcp"
	"github.com/Aman-CERP/qmdsync/internal/preflight"
	"github.com/Aman-CERP/qmdsync/internal/qmd"
	"github.com/Aman-CERP/qmdsync/internal/watcher"
)

func newServeCmd() *cobra.Command {
	var withMCP bool
	var forcePolling bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Watch the vault and keep the index in sync",
		Long: `Run the sync server for the vault in the foreground.

The server watches the vault for markdown changes and syncs the qmd index
according to sync.mode. It also listens on a Unix socket so that other
qmdsync commands (sync, status, search) reuse its state and caches.

With --mcp, the server also speaks the Model Context Protocol on stdio so
an AI client can search the vault and trigger syncs. Nothing else is
written to stdout or stderr in that mode; logs go to ~/.qmdsync/logs/.

Only one server may run per vault.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd.Context(), withMCP, forcePolling)
		},
	}

	cmd.Flags().BoolVar(&withMCP, "mcp", false, "Also serve MCP over stdio")
	cmd.Flags().BoolVar(&forcePolling, "poll", false, "Poll for changes instead of using file system events")
	return cmd
}

func runServe(ctx context.Context, withMCP, forcePolling bool) error {
	a, err := loadApp()
	if err != nil {
		return err
	}

	// serve owns logging from here on
	_ = stopLogging(nil, nil)
	logCfg := logging.ServeConfig(a.cfg.Server.LogLevel, withMCP)
	if debugMode {
		logCfg.Level = "debug"
	}
	logger, cleanup, err := logging.Setup(logCfg)
	if err != nil {
		return fmt.Errorf("failed to setup logging: %w", err)
	}
	defer cleanup()
	slog.SetDefault(logger)
	a.logger = logger

	checker := preflight.New()
	for _, r := range []preflight.CheckResult{checker.CheckVault(a.vault), checker.CheckFileDescriptors()} {
		if r.IsCritical() {
			return fmt.Errorf("%s: %s", r.Name, r.Message)
		}
		if r.Status != preflight.StatusPass {
			logger.Warn("preflight check", slog.String("check", r.Name), slog.String("message", r.Message))
		}
	}

	lock := daemon.NewInstanceLock(a.vault)
	if err := lock.Acquire(); err != nil {
		return err
	}
	defer func() { _ = lock.Release() }()

	dcfg := a.cfg.Daemon()
	if err := dcfg.EnsureDir(); err != nil {
		return err
	}
	if daemon.NewClient(dcfg).IsRunning() {
		return fmt.Errorf("another qmdsync server is listening on %s; set server.socket_path to run one per vault", dcfg.SocketPath)
	}
	pidFile := daemon.NewPIDFile(dcfg.PIDPath)
	if err := pidFile.Write(); err != nil {
		return fmt.Errorf("failed to write PID file: %w", err)
	}
	defer func() { _ = pidFile.Remove() }()

	index := a.indexClient()
	reads := lookup.New(index, a.cfg.Lookup(), logger)
	defer reads.Close()

	coord := autosync.New(a.cfg.AutoSync(a.toolPath), index, autosync.WithLogger(logger))
	coord.OnStatusChange(invalidateAfterSync(reads))

	w, err := watcher.NewHybridWatcher(watcher.Options{ForcePolling: forcePolling})
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	w.SetLogger(logger)

	handler := &serveHandler{
		coord:    coord,
		reads:    reads,
		index:    index,
		vault:    a.vault,
		toolPath: a.toolPath,
	}
	server := daemon.NewServer(dcfg, handler, logger)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	g, gctx := errgroup.WithContext(ctx)

	logger.Info("qmdsync server starting",
		slog.String("vault", a.vault),
		slog.String("tool", a.toolPath),
		slog.String("mode", string(coord.Status().Mode)),
		slog.Bool("mcp", withMCP))

	g.Go(func() error {
		return ignoreCanceled(coord.Run(gctx))
	})
	g.Go(func() error {
		return ignoreCanceled(w.Start(gctx, a.vault))
	})
	g.Go(func() error {
		forwardEvents(gctx, w, coord, reads, logger)
		return nil
	})
	g.Go(func() error {
		return ignoreCanceled(server.ListenAndServe(gctx))
	})
	if withMCP {
		mcpServer, err := mcp.NewServer(reads, index, coord, logger)
		if err != nil {
			return err
		}
		g.Go(func() error {
			// the client closing stdin ends the session and the server
			defer cancel()
			return mcpServer.Serve(gctx)
		})
	}

	coord.Startup()

	err = g.Wait()
	_ = w.Stop()
	logger.Info("qmdsync server stopped")
	return err
}

// forwardEvents feeds watcher events to the coordinator and drops
// related-document cache entries for changed paths.
func forwardEvents(ctx context.Context, w *watcher.HybridWatcher, coord *autosync.Coordinator, reads *lookup.Service, logger *slog.Logger) {
	events, errs := w.Events(), w.Errors()
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-events:
			if !ok {
				return
			}
			reads.Invalidate(ev.Path)
			if ev.Deleted {
				coord.DocumentDeleted(ev.Path)
			} else {
				coord.DocumentChanged(ev.Path)
			}
		case err, ok := <-errs:
			if !ok {
				errs = nil
				continue
			}
			logger.Warn("watcher error", slog.String("error", err.Error()))
		}
	}
}

// invalidateAfterSync clears cached searches whenever a sync succeeds,
// since their results may be stale.
func invalidateAfterSync(reads *lookup.Service) func(autosync.Status) {
	var (
		mu   sync.Mutex
		last time.Time
	)
	return func(st autosync.Status) {
		mu.Lock()
		changed := st.LastSyncTime.After(last)
		if changed {
			last = st.LastSyncTime
		}
		mu.Unlock()
		if changed {
			reads.InvalidateSearches()
		}
	}
}

func ignoreCanceled(err error) error {
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

// serveHandler answers daemon requests from the running server's state.
type serveHandler struct {
	coord    *autosync.Coordinator
	reads    *lookup.Service
	index    *qmd.Client
	vault    string
	toolPath string
}

// Status implements daemon.Handler.
func (h *serveHandler) Status(ctx context.Context) daemon.StatusResult {
	result := daemon.StatusResult{
		VaultPath: h.vault,
		ToolPath:  h.index.Path(),
		Sync:      h.coord.Status(),
	}
	idx, err := h.index.Status(ctx)
	if err != nil {
		result.IndexError = qerrors.Message(err)
	} else {
		result.Index = idx
	}
	return result
}

// Sync implements daemon.Handler.
func (h *serveHandler) Sync(ctx context.Context) (daemon.SyncResult, error) {
	if err := h.coord.ManualSync(ctx); err != nil {
		return daemon.SyncResult{}, err
	}
	return daemon.SyncResult{Sync: h.coord.Status()}, nil
}

// Search implements daemon.Handler.
func (h *serveHandler) Search(ctx context.Context, params daemon.SearchParams) (*qmd.SearchResult, error) {
	mode, _ := qmd.ParseMode(params.Mode)
	return h.reads.Search(ctx, mode, params.Query, params.Options())
}

// Related implements daemon.Handler.
func (h *serveHandler) Related(ctx context.Context, params daemon.RelatedParams) (*qmd.SearchResult, error) {
	content := params.Content
	if content == "" {
		doc, err := h.index.Get(ctx, params.Path)
		if err != nil {
			return nil, err
		}
		content = doc.Content
	}
	return h.reads.Related(ctx, params.Path, content)
}
