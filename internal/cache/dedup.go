package cache

import (
	"time"

	"github.com/tbourn/go-cast-agent/internal/domain"
)

// DefaultDedupTTL is the default lifetime of a dedup entry.
const DefaultDedupTTL = 60 * time.Second

// Entry is the identity of a delivery. Two deliveries are the same only when
// hash, author handle and text all match, so a reused hash carrying
// different content is not suppressed.
type Entry struct {
	Hash         string
	AuthorHandle string
	Text         string
}

// EntryOf returns the dedup identity of a webhook event.
func EntryOf(ev *domain.WebhookEvent) Entry {
	if ev == nil || ev.Cast == nil {
		return Entry{}
	}
	e := Entry{Hash: ev.Cast.Hash, Text: ev.Cast.Text}
	if ev.Cast.Author != nil {
		e.AuthorHandle = ev.Cast.Author.Handle
	}
	return e
}

// DedupCache detects re-delivery of the same webhook event within a TTL.
type DedupCache struct {
	set *ttlSet[Entry]
}

// NewDedupCache returns a cache holding at most maxEntries live deliveries.
func NewDedupCache(ttl time.Duration, maxEntries int, opts ...Option) (*DedupCache, error) {
	set, err := newTTLSet[Entry](ttl, maxEntries, buildOptions(opts))
	if err != nil {
		return nil, err
	}
	return &DedupCache{set: set}, nil
}

// IsDuplicate reports whether ev was already seen within the TTL. When it
// was not, the delivery is recorded and false is returned.
func (c *DedupCache) IsDuplicate(ev *domain.WebhookEvent) bool {
	e := EntryOf(ev)
	if e.Hash == "" {
		return false
	}
	return !c.set.addIfAbsent(e)
}

// Len returns the number of live entries.
func (c *DedupCache) Len() int { return c.set.len() }
