// Package cache provides a generic time-to-live cache used by read-side
// callers to memoize expensive index lookups.
package cache

import (
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
)

const (
	// DefaultTTL is used when New is given a non-positive ttl.
	DefaultTTL = 5 * time.Minute

	// DefaultSweepInterval is the cadence of the background expiry sweep.
	DefaultSweepInterval = time.Minute

	// DefaultMaxEntries bounds memory when nothing expires for a long time.
	DefaultMaxEntries = 10000
)

// entry is never handed out; callers only ever see the value.
type entry[T any] struct {
	value     T
	expiresAt time.Time
}

// Store maps opaque string keys to values of type T with per-entry expiry.
//
// Expiry is checked lazily on every read, so an expired entry is never
// returned even if the background sweep has not run yet. The sweep only
// bounds memory. Each logical purpose should use its own Store to avoid
// key collisions.
type Store[T any] struct {
	ttl     time.Duration
	now     func() time.Time
	entries *lru.Cache[string, *entry[T]]

	mu        sync.Mutex
	stopCh    chan struct{}
	doneCh    chan struct{}
	destroyed bool
}

// Option configures a Store.
type Option func(*options)

type options struct {
	maxEntries    int
	sweepInterval time.Duration
	now           func() time.Time
}

// WithMaxEntries bounds the number of entries; the least recently used
// entry is evicted when the bound is exceeded.
func WithMaxEntries(n int) Option {
	return func(o *options) {
		o.maxEntries = n
	}
}

// WithSweepInterval overrides the background sweep cadence.
// A non-positive interval disables the sweep.
func WithSweepInterval(d time.Duration) Option {
	return func(o *options) {
		o.sweepInterval = d
	}
}

// WithClock injects the time source (tests).
func WithClock(now func() time.Time) Option {
	return func(o *options) {
		o.now = now
	}
}

// New creates a Store whose entries live for ttl unless SetWithTTL says otherwise.
// The background sweep starts immediately; call Destroy to stop it.
func New[T any](ttl time.Duration, opts ...Option) *Store[T] {
	o := options{
		maxEntries:    DefaultMaxEntries,
		sweepInterval: DefaultSweepInterval,
		now:           time.Now,
	}
	for _, opt := range opts {
		opt(&o)
	}
	if o.maxEntries <= 0 {
		o.maxEntries = DefaultMaxEntries
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}

	// lru.New only fails for a non-positive size, which is ruled out above.
	entries, _ := lru.New[string, *entry[T]](o.maxEntries)

	s := &Store[T]{
		ttl:     ttl,
		now:     o.now,
		entries: entries,
	}

	if o.sweepInterval > 0 {
		s.stopCh = make(chan struct{})
		s.doneCh = make(chan struct{})
		go s.sweepLoop(o.sweepInterval)
	}

	return s
}

// TTL returns the default time-to-live.
func (s *Store[T]) TTL() time.Duration {
	return s.ttl
}

// Get returns the value for key. An expired entry is deleted and reported absent.
func (s *Store[T]) Get(key string) (T, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var zero T
	e, ok := s.entries.Get(key)
	if !ok {
		return zero, false
	}
	if s.now().After(e.expiresAt) {
		s.entries.Remove(key)
		return zero, false
	}
	return e.value, true
}

// Set stores value under key with the default ttl, overwriting any existing entry.
func (s *Store[T]) Set(key string, value T) {
	s.SetWithTTL(key, value, s.ttl)
}

// SetWithTTL stores value under key with a custom ttl.
func (s *Store[T]) SetWithTTL(key string, value T, ttl time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.entries.Add(key, &entry[T]{
		value:     value,
		expiresAt: s.now().Add(ttl),
	})
}

// Has reports whether key holds an unexpired value.
func (s *Store[T]) Has(key string) bool {
	_, ok := s.Get(key)
	return ok
}

// Delete removes key and reports whether it was present.
func (s *Store[T]) Delete(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.entries.Remove(key)
}

// Clear removes every entry.
func (s *Store[T]) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.entries.Purge()
}

// Len returns the number of stored entries, including expired entries the
// sweep has not reached yet.
func (s *Store[T]) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.entries.Len()
}

// Touch resets the expiry of key to now plus the default ttl without
// changing its value. Returns whether the key existed.
func (s *Store[T]) Touch(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries.Peek(key)
	if !ok {
		return false
	}
	now := s.now()
	if now.After(e.expiresAt) {
		s.entries.Remove(key)
		return false
	}
	e.expiresAt = now.Add(s.ttl)
	return true
}

// Sweep removes all expired entries and returns how many were removed.
func (s *Store[T]) Sweep() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	removed := 0
	for _, key := range s.entries.Keys() {
		e, ok := s.entries.Peek(key)
		if ok && now.After(e.expiresAt) {
			s.entries.Remove(key)
			removed++
		}
	}
	return removed
}

// Destroy stops the background sweep and clears all entries.
// The Store must not be used afterwards. Safe to call multiple times.
func (s *Store[T]) Destroy() {
	s.mu.Lock()
	if s.destroyed {
		s.mu.Unlock()
		return
	}
	s.destroyed = true
	s.entries.Purge()
	s.mu.Unlock()

	if s.stopCh != nil {
		close(s.stopCh)
		<-s.doneCh
	}
}

func (s *Store[T]) sweepLoop(interval time.Duration) {
	defer close(s.doneCh)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-s.stopCh:
			return
		case <-ticker.C:
			s.Sweep()
		}
	}
}
