// Package cache holds the short-lived in-memory membership structures of the
// reply pipeline: the webhook dedup cache and the pending action claims.
//
// Both are bounded LRU sets whose entries expire after a fixed TTL. Expiry is
// lazy: every call first drops expired entries, oldest first, before
// answering. All methods are safe for concurrent use; a check and the insert
// that follows it happen under one lock, so two concurrent deliveries of the
// same key cannot both observe "absent".
package cache

import (
	"fmt"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
)

// Option configures a cache.
type Option func(*options)

type options struct {
	now func() time.Time
}

// WithClock overrides the time source (tests).
func WithClock(now func() time.Time) Option {
	return func(o *options) {
		if now != nil {
			o.now = now
		}
	}
}

func buildOptions(opts []Option) options {
	o := options{now: time.Now}
	for _, fn := range opts {
		fn(&o)
	}
	return o
}

type ttlSet[K comparable] struct {
	mu      sync.Mutex
	entries *lru.Cache[K, time.Time]
	ttl     time.Duration
	now     func() time.Time
}

func newTTLSet[K comparable](ttl time.Duration, size int, o options) (*ttlSet[K], error) {
	if ttl <= 0 {
		return nil, fmt.Errorf("cache ttl must be positive, got %s", ttl)
	}
	entries, err := lru.New[K, time.Time](size)
	if err != nil {
		return nil, fmt.Errorf("cache init: %w", err)
	}
	return &ttlSet[K]{entries: entries, ttl: ttl, now: o.now}, nil
}

// sweepLocked drops expired entries. Entries are only ever added when absent,
// so LRU order is insertion order and the walk stops at the first live entry.
func (s *ttlSet[K]) sweepLocked(now time.Time) {
	for {
		k, at, ok := s.entries.GetOldest()
		if !ok || now.Sub(at) <= s.ttl {
			return
		}
		s.entries.Remove(k)
	}
}

// addIfAbsent records k and reports true when k was not already live.
func (s *ttlSet[K]) addIfAbsent(k K) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	s.sweepLocked(now)
	if s.entries.Contains(k) {
		return false
	}
	s.entries.Add(k, now)
	return true
}

func (s *ttlSet[K]) contains(k K) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.sweepLocked(s.now())
	return s.entries.Contains(k)
}

func (s *ttlSet[K]) remove(k K) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.entries.Remove(k)
	s.sweepLocked(s.now())
}

func (s *ttlSet[K]) len() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.sweepLocked(s.now())
	return s.entries.Len()
}
