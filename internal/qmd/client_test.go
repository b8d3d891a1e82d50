package qmd

import (
	"context"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	qerrors "github.com/Aman-CERP/qmdsync/internal/errors"
)

// stubRunner records command lines and answers from fn.
type stubRunner struct {
	mu    sync.Mutex
	lines []string
	fn    func(ctx context.Context, line string) (Output, error)
}

func (s *stubRunner) Run(ctx context.Context, line string) (Output, error) {
	s.mu.Lock()
	s.lines = append(s.lines, line)
	s.mu.Unlock()
	if s.fn == nil {
		return Output{}, nil
	}
	return s.fn(ctx, line)
}

func (s *stubRunner) Lines() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.lines...)
}

func respond(stdout string) func(context.Context, string) (Output, error) {
	return func(context.Context, string) (Output, error) {
		return Output{Stdout: []byte(stdout)}, nil
	}
}

func TestClient_SearchModesBuildCommands(t *testing.T) {
	runner := &stubRunner{fn: respond("[]")}
	c := NewClient("qmd", WithRunner(runner))
	ctx := context.Background()
	opts := SearchOptions{Collection: "notes", Limit: 5, MinScore: 0.3}

	// When: running each mode
	r1, err := c.Search(ctx, "alpha", opts)
	require.NoError(t, err)
	r2, err := c.VSearch(ctx, "beta", SearchOptions{})
	require.NoError(t, err)
	r3, err := c.Query(ctx, "gamma", SearchOptions{Full: true})
	require.NoError(t, err)

	// Then: each maps to its subcommand and reports its mode
	assert.Equal(t, []string{
		`"qmd" search "alpha" --json -c "notes" -n 5 --min-score 0.3`,
		`"qmd" vsearch "beta" --json`,
		`"qmd" query "gamma" --json --full`,
	}, runner.Lines())
	assert.Equal(t, "search", r1.Mode)
	assert.Equal(t, "vsearch", r2.Mode)
	assert.Equal(t, "query", r3.Mode)
	assert.Equal(t, "alpha", r1.Query)
	assert.Empty(t, r1.Items)
}

func TestClient_EmptyQueryRejected(t *testing.T) {
	runner := &stubRunner{}
	c := NewClient("qmd", WithRunner(runner))

	_, err := c.Search(context.Background(), "   ", SearchOptions{})

	require.Error(t, err)
	assert.Equal(t, qerrors.ErrCodeQueryEmpty, qerrors.GetCode(err))
	assert.Empty(t, runner.Lines())
}

func TestClient_Get(t *testing.T) {
	runner := &stubRunner{fn: respond(`{"docid":"#1","path":"qmd://notes/a/b.md","content":"body text"}`)}
	c := NewClient("qmd", WithRunner(runner))

	doc, err := c.Get(context.Background(), "a/b.md")

	require.NoError(t, err)
	assert.Equal(t, `"qmd" get "a/b.md" --json`, runner.Lines()[0])
	assert.Equal(t, &Document{
		DocumentID:   "#1",
		Path:         "a/b.md",
		AbsolutePath: "a/b.md",
		Title:        "b",
		Content:      "body text",
		Collection:   "notes",
	}, doc)
}

func TestClient_StatusCoalescesConcurrentProbes(t *testing.T) {
	// Given: a status probe that blocks until released
	release := make(chan struct{})
	var calls atomic.Int32
	runner := &stubRunner{fn: func(context.Context, string) (Output, error) {
		calls.Add(1)
		<-release
		return Output{Stdout: []byte(sampleStatus)}, nil
	}}
	c := NewClient("qmd", WithRunner(runner))

	// When: five callers ask at once
	var wg sync.WaitGroup
	results := make([]*IndexStatus, 5)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			s, err := c.Status(context.Background())
			assert.NoError(t, err)
			results[i] = s
		}(i)
	}
	time.Sleep(100 * time.Millisecond)
	close(release)
	wg.Wait()

	// Then: one subprocess served everyone and each got its own copy
	assert.Equal(t, int32(1), calls.Load())
	results[0].Collections[0].Name = "mutated"
	assert.Equal(t, "notes", results[1].Collections[0].Name)
}

func TestClient_StatusSharedProbeOutlivesCancelledCaller(t *testing.T) {
	// Given: a status probe that blocks until released
	entered := make(chan struct{})
	release := make(chan struct{})
	var calls atomic.Int32
	runner := &stubRunner{fn: func(ctx context.Context, _ string) (Output, error) {
		if calls.Add(1) == 1 {
			close(entered)
		}
		select {
		case <-release:
			return Output{Stdout: []byte(sampleStatus)}, nil
		case <-ctx.Done():
			return Output{}, ctx.Err()
		}
	}}
	c := NewClient("qmd", WithRunner(runner))

	// And: a first caller with a cancellable context starts the probe
	ctxA, cancelA := context.WithCancel(context.Background())
	errA := make(chan error, 1)
	go func() {
		_, err := c.Status(ctxA)
		errA <- err
	}()
	<-entered

	// And: a second caller joins it with a live context
	type result struct {
		status *IndexStatus
		err    error
	}
	resB := make(chan result, 1)
	go func() {
		s, err := c.Status(context.Background())
		resB <- result{s, err}
	}()
	time.Sleep(50 * time.Millisecond)

	// When: the first caller gives up
	cancelA()

	// Then: only the first caller sees the cancellation
	select {
	case err := <-errA:
		require.Error(t, err)
		assert.Equal(t, qerrors.KindUnknown, qerrors.KindOf(err))
		assert.Contains(t, err.Error(), "status cancelled")
	case <-time.After(2 * time.Second):
		t.Fatal("cancelled caller kept waiting")
	}

	// And: the second caller gets the shared result once qmd answers
	close(release)
	select {
	case r := <-resB:
		require.NoError(t, r.err)
		assert.Equal(t, "notes", r.status.Collections[0].Name)
	case <-time.After(2 * time.Second):
		t.Fatal("second caller never got a result")
	}
	assert.Equal(t, int32(1), calls.Load())
}

func TestClient_StatusJSONFormat(t *testing.T) {
	runner := &stubRunner{fn: respond(`{"indexPath":"/i","totalDocuments":1}`)}
	c := NewClient("qmd", WithRunner(runner), WithStatusFormat(StatusFormatJSON))

	s, err := c.Status(context.Background())

	require.NoError(t, err)
	assert.Equal(t, `"qmd" status --json`, runner.Lines()[0])
	assert.Equal(t, 1, s.TotalDocuments)
}

func TestClient_TestConnection(t *testing.T) {
	t.Run("ok carries the status", func(t *testing.T) {
		c := NewClient("qmd", WithRunner(&stubRunner{fn: respond(sampleStatus)}))

		res := c.TestConnection(context.Background())

		assert.True(t, res.OK)
		require.NotNil(t, res.Status)
		assert.Equal(t, 42, res.Status.TotalDocuments)
	})

	t.Run("failure is data, not an error", func(t *testing.T) {
		c := NewClient("")

		res := c.TestConnection(context.Background())

		assert.False(t, res.OK)
		assert.Contains(t, res.Message, "qmd not found")
		assert.Nil(t, res.Status)
	})
}

func TestClient_Collections(t *testing.T) {
	c := NewClient("qmd", WithRunner(&stubRunner{fn: respond(sampleStatus)}))

	names, err := c.Collections(context.Background())

	require.NoError(t, err)
	assert.Equal(t, []string{"notes", "work"}, names)
}

func TestClient_MutatingCommands(t *testing.T) {
	runner := &stubRunner{}
	c := NewClient("bunx qmd", WithRunner(runner))
	ctx := context.Background()

	require.NoError(t, c.AddCollection(ctx, "/my vault", "my vault"))
	require.NoError(t, c.Update(ctx))
	require.NoError(t, c.Embed(ctx))

	assert.Equal(t, []string{
		`"bunx" "qmd" collection add "/my vault" --name "my vault"`,
		`"bunx" "qmd" update`,
		`"bunx" "qmd" embed`,
	}, runner.Lines())
}

func TestClient_FullUpdateUsesFullSyncBound(t *testing.T) {
	// Given: a runner that records how long each command may run
	var mu sync.Mutex
	budgets := map[string]time.Duration{}
	runner := &stubRunner{}
	c := NewClient("qmd", WithRunner(runner), WithTimeouts(Timeouts{Update: time.Second, Full: time.Hour}))
	runner.fn = func(ctx context.Context, _ string) (Output, error) {
		deadline, ok := ctx.Deadline()
		require.True(t, ok)
		mu.Lock()
		budgets[strings.Join(runner.Lines(), ";")] = time.Until(deadline)
		mu.Unlock()
		return Output{}, nil
	}
	ctx := context.Background()

	// When: running an incremental update, then the full-sync fallback
	require.NoError(t, c.Update(ctx))
	require.NoError(t, c.FullUpdate(ctx))

	// Then: both run qmd update, each under its own bound
	assert.Equal(t, []string{`"qmd" update`, `"qmd" update`}, runner.Lines())
	assert.LessOrEqual(t, budgets[`"qmd" update`], time.Second)
	assert.Greater(t, budgets[`"qmd" update;"qmd" update`], 30*time.Minute)
}

func TestClient_NeedsEmbedding(t *testing.T) {
	c := NewClient("qmd", WithRunner(&stubRunner{fn: respond(sampleStatus)}))
	need, err := c.NeedsEmbedding(context.Background())
	require.NoError(t, err)
	assert.True(t, need)

	c = NewClient("qmd", WithRunner(&stubRunner{fn: respond("Index: /x\n  Vectors: 3 embedded\n")}))
	need, err = c.NeedsEmbedding(context.Background())
	require.NoError(t, err)
	assert.False(t, need)
}

func TestClient_EmbedDetachedRunsInBackground(t *testing.T) {
	// Given: an embed that only succeeds if its context is alive
	runner := &stubRunner{fn: func(ctx context.Context, line string) (Output, error) {
		if strings.HasSuffix(line, "embed") {
			time.Sleep(20 * time.Millisecond)
			return Output{}, ctx.Err()
		}
		return Output{}, nil
	}}
	c := NewClient("qmd", WithRunner(runner))

	// When: starting the detached embed and waiting for it
	c.EmbedDetached()
	c.Wait()

	// Then: it ran once
	assert.Equal(t, []string{`"qmd" embed`}, runner.Lines())
}

func TestClient_SetPath(t *testing.T) {
	runner := &stubRunner{}
	c := NewClient("old", WithRunner(runner))

	c.SetPath("/new/qmd")
	require.NoError(t, c.Update(context.Background()))

	assert.Equal(t, "/new/qmd", c.Path())
	assert.Equal(t, `"/new/qmd" update`, runner.Lines()[0])
}

func TestClient_TimeoutsApplyDefaults(t *testing.T) {
	c := NewClient("qmd", WithTimeouts(Timeouts{Update: time.Second}))

	got := c.Timeouts()
	assert.Equal(t, time.Second, got.Update)
	assert.Equal(t, DefaultTimeouts().Embed, got.Embed)
}
