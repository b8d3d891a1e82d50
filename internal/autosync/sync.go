package autosync

import (
	"context"
	"log/slog"
	"time"

	qerrors "github.com/Aman-CERP/qmdsync/internal/errors"
)

type syncKind string

const (
	syncFull        syncKind = "full"
	syncIncremental syncKind = "incremental"
)

type syncOutcome struct {
	kind     syncKind
	err      error
	taken    pendingSet
	reply    chan error
	finished time.Time
	elapsed  time.Duration
}

// startSync dispatches a sync unless one is running. It reports whether
// the sync was started. The pending set is handed over atomically.
func (c *Coordinator) startSync(ctx context.Context, kind syncKind, reply chan error) bool {
	if c.running {
		c.logger.Debug("sync trigger dropped, sync already running", slog.String("kind", string(kind)))
		if reply != nil {
			reply <- ErrSyncInProgress
		}
		return false
	}

	c.running = true
	taken := c.pending.take()
	cfg := c.cfg
	c.status.update(func(s *Status) {
		s.IsRunning = true
		s.PendingCount = 0
	})

	c.logger.Info("sync started",
		slog.String("kind", string(kind)),
		slog.Int("pending", taken.count()))

	c.syncs.Add(1)
	go func() {
		defer c.syncs.Done()

		start := c.now()
		var err error
		if kind == syncFull {
			err = c.fullSync(ctx, cfg)
		} else {
			err = c.incrementalSync(ctx, cfg)
		}
		finished := c.now()

		c.events <- Event{Kind: eventSyncFinished, outcome: &syncOutcome{
			kind:     kind,
			err:      err,
			taken:    taken,
			reply:    reply,
			finished: finished,
			elapsed:  finished.Sub(start),
		}}
	}()
	return true
}

// finish moves the coordinator back to idle.
func (c *Coordinator) finish(o *syncOutcome) {
	c.running = false

	if o.err != nil {
		c.pending.merge(o.taken)
		msg := qerrors.Message(o.err)
		n := c.pending.count()
		c.status.update(func(s *Status) {
			s.IsRunning = false
			s.LastError = msg
			s.PendingCount = n
		})
		c.logger.Warn("sync failed",
			slog.String("kind", string(o.kind)),
			slog.String("error", msg),
			slog.Duration("elapsed", o.elapsed))
	} else {
		n := c.pending.count()
		c.status.update(func(s *Status) {
			s.IsRunning = false
			s.LastSyncTime = o.finished
			s.LastError = ""
			s.PendingCount = n
		})
		c.logger.Info("sync finished",
			slog.String("kind", string(o.kind)),
			slog.Duration("elapsed", o.elapsed))
	}

	if o.reply != nil {
		o.reply <- o.err
	}
}

// fullSync registers the vault as a collection, falling back to an update
// when it is already registered, then starts embedding if needed.
func (c *Coordinator) fullSync(ctx context.Context, cfg Config) error {
	stepCtx, cancel := context.WithTimeout(ctx, cfg.FullTimeout)
	err := c.indexer.AddCollection(stepCtx, cfg.VaultPath, cfg.Collection)
	if err != nil && !qerrors.IsKind(err, qerrors.KindNotFound) && !qerrors.IsKind(err, qerrors.KindTimeout) {
		c.logger.Debug("collection add failed, updating instead", slog.String("error", qerrors.Message(err)))
		err = c.indexer.FullUpdate(stepCtx)
	}
	cancel()
	if err != nil {
		return err
	}

	c.startEmbeddingIfNeeded(ctx, cfg)
	return nil
}

// startEmbeddingIfNeeded probes status and launches a detached embed.
// Probe errors are ignored and the embed outcome is never observed.
// Embedding can take tens of minutes and must not hold the sync guard.
func (c *Coordinator) startEmbeddingIfNeeded(ctx context.Context, cfg Config) {
	probeCtx, cancel := context.WithTimeout(ctx, cfg.ProbeTimeout)
	defer cancel()

	need, err := c.indexer.NeedsEmbedding(probeCtx)
	if err != nil {
		c.logger.Debug("embedding probe failed", slog.String("error", qerrors.Message(err)))
		return
	}
	if need {
		c.logger.Info("starting background embedding")
		c.indexer.EmbedDetached()
	}
}

func (c *Coordinator) incrementalSync(ctx context.Context, cfg Config) error {
	ctx, cancel := context.WithTimeout(ctx, cfg.IncrementalTimeout)
	defer cancel()
	return c.indexer.Update(ctx)
}
