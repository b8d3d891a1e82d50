package lookup

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Aman-CERP/qmdsync/internal/qmd"
)

type searchCall struct {
	mode  qmd.Mode
	query string
	opts  qmd.SearchOptions
}

type fakeSearcher struct {
	mu    sync.Mutex
	calls []searchCall
	items []qmd.ResultItem
	err   error
}

func (f *fakeSearcher) Find(_ context.Context, mode qmd.Mode, query string, opts qmd.SearchOptions) (*qmd.SearchResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, searchCall{mode, query, opts})
	if f.err != nil {
		return nil, f.err
	}
	return &qmd.SearchResult{Items: append([]qmd.ResultItem(nil), f.items...), Query: query, Mode: string(mode)}, nil
}

func (f *fakeSearcher) Calls() []searchCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]searchCall(nil), f.calls...)
}

func newService(t *testing.T, f *fakeSearcher, mutate func(*Config)) *Service {
	t.Helper()
	cfg := DefaultConfig()
	if mutate != nil {
		mutate(&cfg)
	}
	s := New(f, cfg, slog.New(slog.NewTextHandler(io.Discard, nil)))
	t.Cleanup(s.Close)
	return s
}

func TestSearch_MemoizesByFingerprint(t *testing.T) {
	f := &fakeSearcher{items: []qmd.ResultItem{{Path: "a.md", Score: 0.9}}}
	s := newService(t, f, nil)
	ctx := context.Background()

	// When: the same search runs twice and a different one once
	first, err := s.Search(ctx, qmd.ModeSearch, "go", qmd.SearchOptions{})
	require.NoError(t, err)
	second, err := s.Search(ctx, qmd.ModeSearch, "go", qmd.SearchOptions{})
	require.NoError(t, err)
	_, err = s.Search(ctx, qmd.ModeVSearch, "go", qmd.SearchOptions{})
	require.NoError(t, err)

	// Then: only distinct fingerprints reach the tool
	assert.Len(t, f.Calls(), 2)
	assert.Equal(t, first, second)

	// And: defaults were applied
	assert.Equal(t, 10, f.Calls()[0].opts.Limit)
	assert.Equal(t, 0.3, f.Calls()[0].opts.MinScore)
}

func TestSearch_ReturnsCopies(t *testing.T) {
	f := &fakeSearcher{items: []qmd.ResultItem{{Path: "a.md"}}}
	s := newService(t, f, nil)

	first, err := s.Search(context.Background(), qmd.ModeSearch, "q", qmd.SearchOptions{})
	require.NoError(t, err)
	first.Items[0].Path = "mutated"

	second, err := s.Search(context.Background(), qmd.ModeSearch, "q", qmd.SearchOptions{})
	require.NoError(t, err)
	assert.Equal(t, "a.md", second.Items[0].Path)
}

func TestSearch_ErrorsAreNotCached(t *testing.T) {
	f := &fakeSearcher{err: errors.New("boom")}
	s := newService(t, f, nil)

	_, err := s.Search(context.Background(), qmd.ModeSearch, "q", qmd.SearchOptions{})
	require.Error(t, err)

	f.mu.Lock()
	f.err = nil
	f.mu.Unlock()
	_, err = s.Search(context.Background(), qmd.ModeSearch, "q", qmd.SearchOptions{})

	require.NoError(t, err)
	assert.Len(t, f.Calls(), 2)
}

func TestSearch_InvalidateSearches(t *testing.T) {
	f := &fakeSearcher{}
	s := newService(t, f, nil)

	_, _ = s.Search(context.Background(), qmd.ModeSearch, "q", qmd.SearchOptions{})
	s.InvalidateSearches()
	_, _ = s.Search(context.Background(), qmd.ModeSearch, "q", qmd.SearchOptions{})

	assert.Len(t, f.Calls(), 2)
}

func TestRelated_ExcludesSourceAndLimits(t *testing.T) {
	// Given: results that include the source document
	f := &fakeSearcher{items: []qmd.ResultItem{
		{Path: "notes/source.md", Score: 1},
		{Path: "a.md", Score: 0.9},
		{Path: "b.md", Score: 0.8},
		{Path: "c.md", Score: 0.7},
	}}
	s := newService(t, f, func(c *Config) { c.RelatedLimit = 2 })

	// When: looking up related documents
	res, err := s.Related(context.Background(), "notes/source.md", strings.Repeat("body ", 100))

	// Then: the source is gone and the limit applies
	require.NoError(t, err)
	paths := []string{}
	for _, it := range res.Items {
		paths = append(paths, it.Path)
	}
	assert.Equal(t, []string{"a.md", "b.md"}, paths)

	// And: the query is a vector search seeded by title and excerpt
	call := f.Calls()[0]
	assert.Equal(t, qmd.ModeVSearch, call.mode)
	assert.Equal(t, 3, call.opts.Limit)
	assert.True(t, strings.HasPrefix(call.query, "source body"))
	assert.LessOrEqual(t, len([]rune(call.query)), len("source ")+relatedExcerpt)
}

func TestRelated_CachedPerPathAndInvalidated(t *testing.T) {
	f := &fakeSearcher{items: []qmd.ResultItem{{Path: "a.md"}}}
	s := newService(t, f, nil)
	ctx := context.Background()

	_, err := s.Related(ctx, "x.md", "text")
	require.NoError(t, err)
	_, err = s.Related(ctx, "x.md", "text")
	require.NoError(t, err)
	assert.Len(t, f.Calls(), 1)

	s.Invalidate("x.md")
	_, err = s.Related(ctx, "x.md", "text")
	require.NoError(t, err)
	assert.Len(t, f.Calls(), 2)

	searches, related := s.Stats()
	assert.Equal(t, 0, searches)
	assert.Equal(t, 1, related)
}

func TestRelated_Disabled(t *testing.T) {
	f := &fakeSearcher{}
	s := newService(t, f, func(c *Config) { c.RelatedEnabled = false })

	_, err := s.Related(context.Background(), "x.md", "")

	assert.ErrorIs(t, err, ErrRelatedDisabled)
	assert.Empty(t, f.Calls())
}

func TestReconfigure_StartsEmpty(t *testing.T) {
	f := &fakeSearcher{}
	s := newService(t, f, nil)
	_, _ = s.Search(context.Background(), qmd.ModeSearch, "q", qmd.SearchOptions{})

	cfg := DefaultConfig()
	cfg.DefaultLimit = 3
	s.Reconfigure(cfg)
	_, _ = s.Search(context.Background(), qmd.ModeSearch, "q", qmd.SearchOptions{})

	calls := f.Calls()
	require.Len(t, calls, 2)
	assert.Equal(t, 3, calls[1].opts.Limit)
}

func TestFingerprint(t *testing.T) {
	a := Fingerprint(qmd.ModeSearch, "q", qmd.SearchOptions{Limit: 5, MinScore: 0.3})
	b := Fingerprint(qmd.ModeSearch, "q", qmd.SearchOptions{Limit: 5, MinScore: 0.3, Collection: "c"})
	assert.Equal(t, "search|q||5|0.3|false", a)
	assert.NotEqual(t, a, b)
}
