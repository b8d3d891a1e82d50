// Package lookup is the read side: memoized search and related-document
// lookup on top of the index client.
package lookup

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/Aman-CERP/qmdsync/internal/cache"
	"github.com/Aman-CERP/qmdsync/internal/qmd"
)

// ErrRelatedDisabled is returned by Related when the feature is off.
var ErrRelatedDisabled = errors.New("related documents are disabled")

// relatedExcerpt is how much of the source document seeds the related query.
const relatedExcerpt = 300

// Searcher runs one search. *qmd.Client satisfies it.
type Searcher interface {
	Find(ctx context.Context, mode qmd.Mode, query string, opts qmd.SearchOptions) (*qmd.SearchResult, error)
}

// Config holds read-side settings.
type Config struct {
	Collection   string
	DefaultLimit int
	MinScore     float64
	SearchTTL    time.Duration
	MaxEntries   int

	RelatedEnabled  bool
	RelatedLimit    int
	RelatedMinScore float64
	RelatedTTL      time.Duration
}

// DefaultConfig returns the defaults.
func DefaultConfig() Config {
	return Config{
		DefaultLimit:    10,
		MinScore:        0.3,
		SearchTTL:       5 * time.Minute,
		MaxEntries:      cache.DefaultMaxEntries,
		RelatedEnabled:  true,
		RelatedLimit:    5,
		RelatedMinScore: 0.3,
		RelatedTTL:      5 * time.Minute,
	}
}

// Service memoizes searches and related lookups. Each purpose has its own
// cache so keys never collide.
type Service struct {
	searcher Searcher
	logger   *slog.Logger

	mu      sync.RWMutex
	cfg     Config
	results *cache.Store[*qmd.SearchResult]
	related *cache.Store[*qmd.SearchResult]
}

// New creates a service. logger may be nil.
func New(searcher Searcher, cfg Config, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Service{searcher: searcher, logger: logger}
	s.apply(cfg)
	return s
}

func (s *Service) apply(cfg Config) {
	opts := []cache.Option{}
	if cfg.MaxEntries > 0 {
		opts = append(opts, cache.WithMaxEntries(cfg.MaxEntries))
	}
	s.cfg = cfg
	s.results = cache.New[*qmd.SearchResult](cfg.SearchTTL, opts...)
	s.related = cache.New[*qmd.SearchResult](cfg.RelatedTTL, opts...)
}

// Reconfigure replaces the settings and starts with empty caches.
func (s *Service) Reconfigure(cfg Config) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.results.Destroy()
	s.related.Destroy()
	s.apply(cfg)
}

// Search runs a search, answering repeats from the cache.
// Zero limit and min score take the configured defaults.
func (s *Service) Search(ctx context.Context, mode qmd.Mode, query string, opts qmd.SearchOptions) (*qmd.SearchResult, error) {
	s.mu.RLock()
	cfg := s.cfg
	results := s.results
	s.mu.RUnlock()

	if opts.Limit <= 0 {
		opts.Limit = cfg.DefaultLimit
	}
	if opts.MinScore <= 0 {
		opts.MinScore = cfg.MinScore
	}
	if opts.Collection == "" {
		opts.Collection = cfg.Collection
	}

	key := Fingerprint(mode, query, opts)
	if hit, ok := results.Get(key); ok {
		s.logger.Debug("search cache hit", slog.String("mode", string(mode)))
		return cloneResult(hit), nil
	}

	res, err := s.searcher.Find(ctx, mode, query, opts)
	if err != nil {
		return nil, err
	}
	results.Set(key, res)
	return cloneResult(res), nil
}

// Related finds documents similar to the one at path. content is the
// document body; its opening seeds a vector search. The source document
// is never part of the answer.
func (s *Service) Related(ctx context.Context, path, content string) (*qmd.SearchResult, error) {
	s.mu.RLock()
	cfg := s.cfg
	related := s.related
	s.mu.RUnlock()

	if !cfg.RelatedEnabled {
		return nil, ErrRelatedDisabled
	}
	if hit, ok := related.Get(path); ok {
		return cloneResult(hit), nil
	}

	query := strings.TrimSpace(qmd.TitleFromPath(path) + " " + excerpt(content, relatedExcerpt))
	res, err := s.searcher.Find(ctx, qmd.ModeVSearch, query, qmd.SearchOptions{
		Collection: cfg.Collection,
		Limit:      cfg.RelatedLimit + 1,
		MinScore:   cfg.RelatedMinScore,
	})
	if err != nil {
		return nil, err
	}

	items := make([]qmd.ResultItem, 0, len(res.Items))
	for _, it := range res.Items {
		if it.Path == path || it.AbsolutePath == path {
			continue
		}
		items = append(items, it)
	}
	if cfg.RelatedLimit > 0 && len(items) > cfg.RelatedLimit {
		items = items[:cfg.RelatedLimit]
	}

	out := *res
	out.Items = items
	related.Set(path, &out)
	return cloneResult(&out), nil
}

// Invalidate forgets the related documents of path.
func (s *Service) Invalidate(path string) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	s.related.Delete(path)
}

// InvalidateSearches drops memoized searches, typically after a sync.
func (s *Service) InvalidateSearches() {
	s.mu.RLock()
	defer s.mu.RUnlock()
	s.results.Clear()
}

// Reset drops everything.
func (s *Service) Reset() {
	s.mu.RLock()
	defer s.mu.RUnlock()
	s.results.Clear()
	s.related.Clear()
}

// Stats reports cache sizes.
func (s *Service) Stats() (searches, related int) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.results.Len(), s.related.Len()
}

// Close stops the cache sweepers.
func (s *Service) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.results.Destroy()
	s.related.Destroy()
}

// Fingerprint is the cache key of a search.
func Fingerprint(mode qmd.Mode, query string, opts qmd.SearchOptions) string {
	return fmt.Sprintf("%s|%s|%s|%d|%s|%t",
		mode, query, opts.Collection, opts.Limit,
		strconv.FormatFloat(opts.MinScore, 'f', -1, 64), opts.Full)
}

func cloneResult(r *qmd.SearchResult) *qmd.SearchResult {
	c := *r
	c.Items = append([]qmd.ResultItem(nil), r.Items...)
	if c.Items == nil {
		c.Items = []qmd.ResultItem{}
	}
	return &c
}

func excerpt(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
