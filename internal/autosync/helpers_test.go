package autosync

import (
	"context"
	"io"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"
)

// fakeScheduler hands out timers that only fire when the test says so.
type fakeScheduler struct {
	mu     sync.Mutex
	timers []*fakeTimer
}

type fakeTimer struct {
	s       *fakeScheduler
	d       time.Duration
	f       func()
	stopped bool
	fired   bool
}

func (t *fakeTimer) Stop() bool {
	t.s.mu.Lock()
	defer t.s.mu.Unlock()
	live := !t.stopped && !t.fired
	t.stopped = true
	return live
}

func (s *fakeScheduler) AfterFunc(d time.Duration, f func()) Timer {
	s.mu.Lock()
	defer s.mu.Unlock()
	t := &fakeTimer{s: s, d: d, f: f}
	s.timers = append(s.timers, t)
	return t
}

// latest returns the newest live timer with duration d.
func (s *fakeScheduler) latest(d time.Duration) *fakeTimer {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := len(s.timers) - 1; i >= 0; i-- {
		t := s.timers[i]
		if t.d == d && !t.stopped && !t.fired {
			return t
		}
	}
	return nil
}

// fire runs the newest live timer with duration d.
func (s *fakeScheduler) fire(d time.Duration) bool {
	t := s.latest(d)
	if t == nil {
		return false
	}
	s.mu.Lock()
	t.fired = true
	s.mu.Unlock()
	t.f()
	return true
}

// fakeIndexer records calls. Update and AddCollection block on gate when set.
type fakeIndexer struct {
	mu             sync.Mutex
	calls          []string
	path           string
	addErr         error
	updateErr      error
	probeErr       error
	needsEmbedding bool
	gate           chan struct{}
	entered        chan string
}

func newFakeIndexer() *fakeIndexer {
	return &fakeIndexer{entered: make(chan string, 100)}
}

func (f *fakeIndexer) record(op string) {
	f.mu.Lock()
	f.calls = append(f.calls, op)
	f.mu.Unlock()
	f.entered <- op
}

func (f *fakeIndexer) wait(ctx context.Context) error {
	f.mu.Lock()
	gate := f.gate
	f.mu.Unlock()
	if gate == nil {
		return nil
	}
	select {
	case <-gate:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (f *fakeIndexer) Update(ctx context.Context) error {
	f.record("update")
	if err := f.wait(ctx); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.updateErr
}

func (f *fakeIndexer) FullUpdate(ctx context.Context) error {
	f.record("full update")
	if err := f.wait(ctx); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.updateErr
}

func (f *fakeIndexer) AddCollection(ctx context.Context, dir, name string) error {
	f.record("add " + dir + " " + name)
	if err := f.wait(ctx); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.addErr
}

func (f *fakeIndexer) NeedsEmbedding(context.Context) (bool, error) {
	f.record("probe")
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.needsEmbedding, f.probeErr
}

func (f *fakeIndexer) EmbedDetached() {
	f.record("embed")
}

func (f *fakeIndexer) SetPath(p string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.path = p
}

func (f *fakeIndexer) set(fn func(f *fakeIndexer)) {
	f.mu.Lock()
	defer f.mu.Unlock()
	fn(f)
}

func (f *fakeIndexer) count(prefix string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, c := range f.calls {
		if strings.HasPrefix(c, prefix) {
			n++
		}
	}
	return n
}

func (f *fakeIndexer) Calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

func (f *fakeIndexer) Path() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.path
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// startCoordinator runs a coordinator until the test ends.
func startCoordinator(t *testing.T, cfg Config, idx Indexer, sched Scheduler, opts ...Option) *Coordinator {
	t.Helper()
	opts = append([]Option{WithScheduler(sched), WithLogger(quietLogger())}, opts...)
	c := New(cfg, idx, opts...)

	ctx, cancel := context.WithCancel(context.Background())
	go func() { _ = c.Run(ctx) }()
	t.Cleanup(func() {
		cancel()
		<-c.Done()
	})
	return c
}

func testConfig(mode Mode) Config {
	return Config{
		Mode:      mode,
		Interval:  5 * time.Minute,
		Debounce:  5 * time.Second,
		ToolPath:  "qmd",
		VaultPath: "/vault",
	}
}

const (
	waitFor = 2 * time.Second
	tick    = 5 * time.Millisecond
)
