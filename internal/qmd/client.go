package qmd

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	qerrors "github.com/Aman-CERP/qmdsync/internal/errors"
)

// Timeouts bounds each class of invocation.
type Timeouts struct {
	Probe  time.Duration
	Search time.Duration
	Update time.Duration
	Full   time.Duration
	Embed  time.Duration
}

// DefaultTimeouts returns the bounds used when none are configured.
func DefaultTimeouts() Timeouts {
	return Timeouts{
		Probe:  30 * time.Second,
		Search: 5 * time.Minute,
		Update: 2 * time.Minute,
		Full:   5 * time.Minute,
		Embed:  30 * time.Minute,
	}
}

func (t Timeouts) withDefaults() Timeouts {
	d := DefaultTimeouts()
	if t.Probe <= 0 {
		t.Probe = d.Probe
	}
	if t.Search <= 0 {
		t.Search = d.Search
	}
	if t.Update <= 0 {
		t.Update = d.Update
	}
	if t.Full <= 0 {
		t.Full = d.Full
	}
	if t.Embed <= 0 {
		t.Embed = d.Embed
	}
	return t
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithRunner replaces the subprocess runner.
func WithRunner(r Runner) ClientOption {
	return func(c *Client) { c.runner = r }
}

// WithTimeouts sets per-operation bounds. Zero fields keep their defaults.
func WithTimeouts(t Timeouts) ClientOption {
	return func(c *Client) { c.timeouts = t.withDefaults() }
}

// WithStatusFormat selects text or JSON status parsing.
func WithStatusFormat(f StatusFormat) ClientOption {
	return func(c *Client) { c.statusFormat = f }
}

// WithLogger sets the logger. nil means slog.Default().
func WithLogger(l *slog.Logger) ClientOption {
	return func(c *Client) {
		if l != nil {
			c.logger = l
		}
	}
}

// Client runs qmd subcommands. It is safe for concurrent use.
type Client struct {
	mu       sync.RWMutex
	toolPath string

	runner       Runner
	timeouts     Timeouts
	statusFormat StatusFormat
	logger       *slog.Logger

	// status probes from the coordinator, the daemon and MCP often overlap
	group singleflight.Group

	wg sync.WaitGroup
}

// NewClient creates a client for the tool at toolPath.
func NewClient(toolPath string, opts ...ClientOption) *Client {
	c := &Client{
		toolPath:     toolPath,
		runner:       &ShellRunner{},
		timeouts:     DefaultTimeouts(),
		statusFormat: StatusFormatText,
		logger:       slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Path returns the configured tool path.
func (c *Client) Path() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.toolPath
}

// SetPath changes the tool path used by subsequent invocations.
func (c *Client) SetPath(toolPath string) {
	c.mu.Lock()
	c.toolPath = toolPath
	c.mu.Unlock()
}

// Timeouts returns the effective bounds.
func (c *Client) Timeouts() Timeouts {
	return c.timeouts
}

// Search runs BM25 keyword search.
func (c *Client) Search(ctx context.Context, query string, opts SearchOptions) (*SearchResult, error) {
	return c.Find(ctx, ModeSearch, query, opts)
}

// VSearch runs vector semantic search.
func (c *Client) VSearch(ctx context.Context, query string, opts SearchOptions) (*SearchResult, error) {
	return c.Find(ctx, ModeVSearch, query, opts)
}

// Query runs hybrid search with reranking.
func (c *Client) Query(ctx context.Context, query string, opts SearchOptions) (*SearchResult, error) {
	return c.Find(ctx, ModeQuery, query, opts)
}

// Find runs the subcommand for mode and normalizes its output.
func (c *Client) Find(ctx context.Context, mode Mode, query string, opts SearchOptions) (*SearchResult, error) {
	if strings.TrimSpace(query) == "" {
		return nil, qerrors.New(qerrors.ErrCodeQueryEmpty, "query must not be empty", nil)
	}
	if _, ok := ParseMode(string(mode)); !ok {
		return nil, qerrors.ValidationError(fmt.Sprintf("unknown search mode %q", mode), nil)
	}

	start := time.Now()
	out, err := c.run(ctx, string(mode), c.timeouts.Search, BuildSearchArgs(mode, query, opts)...)
	if err != nil {
		return nil, err
	}
	if out.Truncated {
		c.logger.Warn("search output truncated",
			slog.String("mode", string(mode)),
			slog.Int("captured_bytes", len(out.Stdout)))
	}

	result, err := Normalize(out.Stdout)
	if err != nil {
		return nil, err
	}
	result.Mode = string(mode)
	if result.Query == "" {
		result.Query = query
	}
	if result.ElapsedMs == 0 {
		result.ElapsedMs = float64(time.Since(start).Microseconds()) / 1000
	}

	return result, nil
}

// Get fetches one document by path or document id.
func (c *Client) Get(ctx context.Context, pathOrID string) (*Document, error) {
	if strings.TrimSpace(pathOrID) == "" {
		return nil, qerrors.ValidationError("document path or id must not be empty", nil)
	}

	out, err := c.run(ctx, "get", c.timeouts.Probe, "get", QuoteArg(pathOrID), "--json")
	if err != nil {
		return nil, err
	}

	var data map[string]any
	if err := json.Unmarshal(out.Stdout, &data); err != nil {
		return nil, qerrors.ParseError(err.Error(), err)
	}
	return normalizeDocument(data), nil
}

// Status returns the index status. Concurrent calls share one subprocess,
// which runs detached from any single caller's cancellation and is bounded
// by the probe timeout. Each caller still stops waiting when its own ctx ends.
func (c *Client) Status(ctx context.Context) (*IndexStatus, error) {
	shared := context.WithoutCancel(ctx)
	ch := c.group.DoChan("status", func() (any, error) {
		if c.statusFormat == StatusFormatJSON {
			out, err := c.run(shared, "status", c.timeouts.Probe, "status", "--json")
			if err != nil {
				return nil, err
			}
			return ParseStatusJSON(out.Stdout)
		}

		out, err := c.run(shared, "status", c.timeouts.Probe, "status")
		if err != nil {
			return nil, err
		}
		return ParseStatusText(string(out.Stdout)), nil
	})

	var res singleflight.Result
	select {
	case res = <-ch:
	case <-ctx.Done():
		return nil, classify(ctx, "status", c.Path(), Output{}, ctx.Err())
	}
	if res.Err != nil {
		return nil, res.Err
	}
	v := res.Val

	// Callers may mutate their copy.
	s := *v.(*IndexStatus)
	s.Collections = append([]CollectionInfo(nil), s.Collections...)
	return &s, nil
}

// TestConnection probes the tool and reports the outcome as data.
func (c *Client) TestConnection(ctx context.Context) ConnectionResult {
	status, err := c.Status(ctx)
	if err != nil {
		return ConnectionResult{OK: false, Message: qerrors.FormatForUser(err, false)}
	}
	return ConnectionResult{
		OK:      true,
		Message: fmt.Sprintf("connected: %d documents, %d embeddings", status.TotalDocuments, status.TotalEmbeddings),
		Status:  status,
	}
}

// Collections lists collection names.
func (c *Client) Collections(ctx context.Context) ([]string, error) {
	status, err := c.Status(ctx)
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(status.Collections))
	for _, col := range status.Collections {
		names = append(names, col.Name)
	}
	return names, nil
}

// Update re-indexes every registered collection.
func (c *Client) Update(ctx context.Context) error {
	_, err := c.run(ctx, "update", c.timeouts.Update, "update")
	return err
}

// FullUpdate re-indexes every collection under the full-sync bound.
// It is the fallback when the vault is already registered.
func (c *Client) FullUpdate(ctx context.Context) error {
	_, err := c.run(ctx, "update", c.timeouts.Full, "update")
	return err
}

// AddCollection registers dir under name.
func (c *Client) AddCollection(ctx context.Context, dir, name string) error {
	_, err := c.run(ctx, "collection add", c.timeouts.Full, "collection", "add", QuoteArg(dir), "--name", QuoteArg(name))
	return err
}

// NeedsEmbedding reports whether the status probe mentions documents without vectors.
func (c *Client) NeedsEmbedding(ctx context.Context) (bool, error) {
	status, err := c.Status(ctx)
	if err != nil {
		return false, err
	}
	return status.NeedsEmbedding, nil
}

// Embed generates missing vectors and blocks until done.
func (c *Client) Embed(ctx context.Context) error {
	_, err := c.run(ctx, "embed", c.timeouts.Embed, "embed")
	return err
}

// EmbedDetached starts Embed in the background, unbound to any caller
// context. Failures are logged at debug level only.
func (c *Client) EmbedDetached() {
	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		if err := c.Embed(context.Background()); err != nil {
			c.logger.Debug("background embed failed", slog.String("error", err.Error()))
			return
		}
		c.logger.Debug("background embed finished")
	}()
}

// Wait blocks until detached work started by this client has finished.
func (c *Client) Wait() {
	c.wg.Wait()
}

func (c *Client) run(ctx context.Context, op string, timeout time.Duration, args ...string) (Output, error) {
	toolPath := c.Path()
	if strings.TrimSpace(toolPath) == "" {
		return Output{}, qerrors.ToolNotFound(toolPath, nil)
	}

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	line := CommandLine(toolPath, args...)
	c.logger.Debug("running qmd", slog.String("op", op), slog.String("command", line))

	start := time.Now()
	out, err := c.runner.Run(ctx, line)
	if err != nil {
		cerr := classify(ctx, op, toolPath, out, err)
		c.logger.Debug("qmd failed",
			slog.String("op", op),
			slog.String("kind", string(cerr.Kind)),
			slog.Duration("elapsed", time.Since(start)))
		return out, cerr
	}

	if stderr := strings.TrimSpace(string(out.Stderr)); stderr != "" {
		c.logger.Warn("qmd stderr", slog.String("op", op), slog.String("stderr", stderr))
	}
	return out, nil
}
