package autosync

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"
)

// queueSize bounds the inbound event queue.
const queueSize = 256

var (
	// ErrSyncInProgress is returned by ManualSync when a sync is already running.
	ErrSyncInProgress = errors.New("sync already in progress")
	// ErrStopped is returned once the coordinator has stopped.
	ErrStopped = errors.New("sync coordinator stopped")
)

// Indexer is the mutating side of the index client.
type Indexer interface {
	Update(ctx context.Context) error
	// FullUpdate is Update bounded by the full-sync timeout.
	FullUpdate(ctx context.Context) error
	AddCollection(ctx context.Context, dir, name string) error
	NeedsEmbedding(ctx context.Context) (bool, error)
	// EmbedDetached starts embedding generation and returns at once.
	EmbedDetached()
	SetPath(toolPath string)
}

// Option configures a Coordinator.
type Option func(*Coordinator)

// WithScheduler replaces the timer source.
func WithScheduler(s Scheduler) Option {
	return func(c *Coordinator) { c.sched = s }
}

// WithClock replaces time.Now for recorded sync times.
func WithClock(now func() time.Time) Option {
	return func(c *Coordinator) { c.now = now }
}

// WithLogger sets the logger. nil means slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(c *Coordinator) {
		if l != nil {
			c.logger = l
		}
	}
}

// Coordinator serializes syncs against one indexer.
//
// All state below the events channel is owned by the Run goroutine.
type Coordinator struct {
	indexer Indexer
	sched   Scheduler
	now     func() time.Time
	logger  *slog.Logger
	status  *StatusTracker

	events   chan Event
	stopCh   chan struct{}
	loopDone chan struct{}
	stopOnce sync.Once
	runOnce  sync.Once
	syncs    sync.WaitGroup

	cfg       Config
	debouncer *Debouncer
	tick      Timer
	tickGen   uint64
	pending   pendingSet
	running   bool
}

// New creates a coordinator. Nothing happens until Run is called.
func New(cfg Config, indexer Indexer, opts ...Option) *Coordinator {
	c := &Coordinator{
		indexer:  indexer,
		sched:    realScheduler{},
		now:      time.Now,
		logger:   slog.Default(),
		events:   make(chan Event, queueSize),
		stopCh:   make(chan struct{}),
		loopDone: make(chan struct{}),
		cfg:      cfg.withDefaults(),
		pending:  newPendingSet(),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.status = NewStatusTracker(c.cfg.Mode)
	c.debouncer = NewDebouncer(c.cfg.Debounce, c.sched, func(gen uint64) {
		c.post(Event{Kind: EventDebounceFired, gen: gen})
	})
	return c
}

// DocumentChanged reports a created or modified document.
func (c *Coordinator) DocumentChanged(path string) {
	c.post(Event{Kind: EventDocumentChanged, Path: path})
}

// DocumentDeleted reports a removed document.
func (c *Coordinator) DocumentDeleted(path string) {
	c.post(Event{Kind: EventDocumentDeleted, Path: path})
}

// Startup reports that the host has started.
func (c *Coordinator) Startup() {
	c.post(Event{Kind: EventStartup})
}

// Reconfigure applies new settings. Timers restart; a running sync is
// left alone.
func (c *Coordinator) Reconfigure(cfg Config) {
	cfg = cfg.withDefaults()
	c.post(Event{Kind: EventReconfigure, config: &cfg})
}

// ManualSync runs a full sync regardless of mode and waits for it.
// It returns ErrSyncInProgress if a sync is already running.
func (c *Coordinator) ManualSync(ctx context.Context) error {
	reply := make(chan error, 1)
	if !c.post(Event{Kind: EventManualSync, reply: reply}) {
		return ErrStopped
	}

	select {
	case err := <-reply:
		return err
	case <-ctx.Done():
		return ctx.Err()
	case <-c.loopDone:
		select {
		case err := <-reply:
			return err
		default:
			return ErrStopped
		}
	}
}

// Status returns a snapshot of the current status.
func (c *Coordinator) Status() Status {
	return c.status.Snapshot()
}

// OnStatusChange registers a listener for status snapshots.
func (c *Coordinator) OnStatusChange(fn func(Status)) {
	c.status.OnChange(fn)
}

// Stop ends Run after any in-flight sync finishes. Safe to call more than once.
func (c *Coordinator) Stop() {
	c.stopOnce.Do(func() { close(c.stopCh) })
}

// Done is closed when Run has returned.
func (c *Coordinator) Done() <-chan struct{} {
	return c.loopDone
}

// post enqueues ev. It reports false if the loop has already exited.
func (c *Coordinator) post(ev Event) bool {
	select {
	case c.events <- ev:
		return true
	case <-c.loopDone:
		return false
	}
}

// Run is the control loop. It returns when ctx is cancelled or Stop is
// called, after the in-flight sync (if any) has finished. Syncs started by
// the loop use ctx, so cancelling it also cuts their subprocesses short.
func (c *Coordinator) Run(ctx context.Context) error {
	started := false
	c.runOnce.Do(func() { started = true })
	if !started {
		return errors.New("sync coordinator already ran")
	}
	defer close(c.loopDone)

	c.logger.Info("sync coordinator started",
		slog.String("mode", string(c.cfg.Mode)),
		slog.Duration("interval", c.cfg.Interval),
		slog.Duration("debounce", c.cfg.Debounce))
	c.armTick()

	for {
		select {
		case <-ctx.Done():
			c.shutdown()
			return ctx.Err()
		case <-c.stopCh:
			c.shutdown()
			return nil
		case ev := <-c.events:
			c.handle(ctx, ev)
		}
	}
}

func (c *Coordinator) handle(ctx context.Context, ev Event) {
	switch ev.Kind {
	case EventDocumentChanged:
		if c.cfg.Mode != ModeOnChange || !c.cfg.Trackable(ev.Path) {
			return
		}
		c.pending.add(ev.Path)
		c.publishPending()
		c.onChangeTrigger(ctx)

	case EventDocumentDeleted:
		if c.cfg.Mode != ModeOnChange {
			return
		}
		c.pending.markDeleted()
		c.publishPending()
		c.onChangeTrigger(ctx)

	case EventDebounceFired:
		if c.debouncer.Expire(ev.gen) && !c.pending.empty() {
			if !c.startSync(ctx, syncIncremental, nil) {
				c.debouncer.Dropped()
			}
		}

	case EventStartup:
		if c.cfg.Mode == ModeOnStartup {
			c.startSync(ctx, syncFull, nil)
		}

	case EventTick:
		if ev.gen != c.tickGen {
			return
		}
		c.tick = nil
		c.armTick()
		c.startSync(ctx, syncFull, nil)

	case EventManualSync:
		c.startSync(ctx, syncFull, ev.reply)

	case EventReconfigure:
		c.reconfigure(*ev.config)

	case eventSyncFinished:
		c.finish(ev.outcome)
	}
}

func (c *Coordinator) onChangeTrigger(ctx context.Context) {
	if !c.debouncer.Notify() {
		return
	}
	if !c.startSync(ctx, syncIncremental, nil) {
		c.debouncer.Dropped()
	}
}

func (c *Coordinator) reconfigure(cfg Config) {
	c.stopTimers()

	if cfg.ToolPath != c.cfg.ToolPath {
		c.indexer.SetPath(cfg.ToolPath)
	}
	c.cfg = cfg
	c.debouncer.Reset(cfg.Debounce)
	c.armTick()
	c.status.update(func(s *Status) { s.Mode = cfg.Mode })

	c.logger.Info("sync coordinator reconfigured",
		slog.String("mode", string(cfg.Mode)),
		slog.Duration("interval", cfg.Interval),
		slog.Bool("sync_running", c.running))
}

func (c *Coordinator) armTick() {
	if c.cfg.Mode != ModeScheduled || c.cfg.Interval <= 0 {
		return
	}
	c.tickGen++
	gen := c.tickGen
	c.tick = c.sched.AfterFunc(c.cfg.Interval, func() {
		c.post(Event{Kind: EventTick, gen: gen})
	})
}

func (c *Coordinator) stopTimers() {
	if c.tick != nil {
		c.tick.Stop()
		c.tick = nil
	}
	c.tickGen++
	c.debouncer.Stop()
}

func (c *Coordinator) publishPending() {
	n := c.pending.count()
	c.status.update(func(s *Status) { s.PendingCount = n })
}

// shutdown stops timers and waits for the in-flight sync to report back.
func (c *Coordinator) shutdown() {
	c.stopTimers()
	for c.running {
		ev := <-c.events
		switch {
		case ev.Kind == eventSyncFinished:
			c.finish(ev.outcome)
		case ev.reply != nil:
			ev.reply <- ErrStopped
		}
	}
	c.syncs.Wait()
	c.logger.Info("sync coordinator stopped")
}
