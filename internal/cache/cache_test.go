package cache

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"go.uber.org/goleak"

	"github.com/tbourn/go-cast-agent/internal/domain"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func event(hash, handle, text string) *domain.WebhookEvent {
	return &domain.WebhookEvent{
		Type: domain.EventCastCreated,
		Cast: &domain.Cast{Hash: hash, Text: text, Author: &domain.Author{FID: 1, Handle: handle}},
	}
}

func TestNewCaches_ValidateParams(t *testing.T) {
	if _, err := NewDedupCache(0, 10); err == nil {
		t.Fatalf("expected error for zero ttl")
	}
	if _, err := NewDedupCache(time.Second, 0); err == nil {
		t.Fatalf("expected error for zero size")
	}
	if _, err := NewClaimCache(-time.Second); err == nil {
		t.Fatalf("expected error for negative ttl")
	}
}

func TestDedupCache_WithinTTL_IsDuplicate(t *testing.T) {
	clk := newFakeClock()
	c, err := NewDedupCache(DefaultDedupTTL, 16, WithClock(clk.Now))
	if err != nil {
		t.Fatalf("NewDedupCache: %v", err)
	}
	ev := event("0xabc", "alice", "hello")

	if c.IsDuplicate(ev) {
		t.Fatalf("first delivery must not be duplicate")
	}
	clk.Advance(time.Second)
	if !c.IsDuplicate(ev) {
		t.Fatalf("second delivery within TTL must be duplicate")
	}
	clk.Advance(DefaultDedupTTL - time.Second)
	if !c.IsDuplicate(ev) {
		t.Fatalf("delivery exactly at TTL is still duplicate")
	}
}

func TestDedupCache_ExpiredEntry_IsSweptAndRecordedAgain(t *testing.T) {
	clk := newFakeClock()
	c, _ := NewDedupCache(time.Minute, 16, WithClock(clk.Now))
	ev := event("0xabc", "alice", "hello")

	c.IsDuplicate(ev)
	c.IsDuplicate(event("0xdef", "bob", "yo"))
	clk.Advance(time.Minute + time.Millisecond)

	if c.Len() != 0 {
		t.Fatalf("expected expired entries to be swept, len=%d", c.Len())
	}
	if c.IsDuplicate(ev) {
		t.Fatalf("delivery after TTL must not be duplicate")
	}
	if !c.IsDuplicate(ev) {
		t.Fatalf("re-recorded delivery should be duplicate again")
	}
}

func TestDedupCache_KeyIsTriple(t *testing.T) {
	c, _ := NewDedupCache(time.Minute, 16)
	c.IsDuplicate(event("0xabc", "alice", "hello"))

	if c.IsDuplicate(event("0xabc", "alice", "edited")) {
		t.Fatalf("same hash with different text must not be duplicate")
	}
	if c.IsDuplicate(event("0xabc", "mallory", "hello")) {
		t.Fatalf("same hash with different author must not be duplicate")
	}
	if !c.IsDuplicate(event("0xabc", "alice", "hello")) {
		t.Fatalf("identical triple must be duplicate")
	}
}

func TestDedupCache_IgnoresMissingHash(t *testing.T) {
	c, _ := NewDedupCache(time.Minute, 16)
	for i := 0; i < 2; i++ {
		if c.IsDuplicate(&domain.WebhookEvent{}) || c.IsDuplicate(nil) {
			t.Fatalf("events without a cast hash are never duplicates")
		}
	}
	if c.Len() != 0 {
		t.Fatalf("nothing should be recorded, len=%d", c.Len())
	}
}

func TestDedupCache_Bounded(t *testing.T) {
	c, _ := NewDedupCache(time.Hour, 2)
	c.IsDuplicate(event("a", "x", "1"))
	c.IsDuplicate(event("b", "x", "2"))
	c.IsDuplicate(event("c", "x", "3"))
	if c.Len() != 2 {
		t.Fatalf("expected capacity bound of 2, got %d", c.Len())
	}
	if c.IsDuplicate(event("a", "x", "1")) {
		t.Fatalf("oldest entry should have been evicted")
	}
}

func TestDedupCache_ConcurrentDeliveries_OneWinner(t *testing.T) {
	c, _ := NewDedupCache(time.Minute, 64)
	ev := event("0xabc", "alice", "hello")

	var (
		wg    sync.WaitGroup
		fresh atomic.Int32
	)
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if !c.IsDuplicate(ev) {
				fresh.Add(1)
			}
		}()
	}
	wg.Wait()
	if fresh.Load() != 1 {
		t.Fatalf("exactly one delivery should pass, got %d", fresh.Load())
	}
}

func TestClaimCache_ClaimReleaseAndTTL(t *testing.T) {
	clk := newFakeClock()
	c, err := NewClaimCache(DefaultClaimTTL, WithClock(clk.Now))
	if err != nil {
		t.Fatalf("NewClaimCache: %v", err)
	}

	if c.IsClaimed("0xabc") {
		t.Fatalf("fresh cache has no claims")
	}
	if !c.Claim("0xabc") {
		t.Fatalf("first claim should succeed")
	}
	if c.Claim("0xabc") {
		t.Fatalf("second live claim should fail")
	}
	if !c.IsClaimed("0xabc") {
		t.Fatalf("claim should be visible")
	}

	c.Release("0xabc")
	if c.IsClaimed("0xabc") {
		t.Fatalf("released claim should be gone")
	}

	c.Claim("0xabc")
	clk.Advance(DefaultClaimTTL + time.Millisecond)
	if c.IsClaimed("0xabc") {
		t.Fatalf("claim should expire after TTL")
	}
	if c.Claim("") || c.IsClaimed("") {
		t.Fatalf("empty hash is never claimable")
	}
}
