// Package middleware contains shared Gin middleware used by the HTTP layer.
//
// This file implements an in-memory token-bucket rate limiter with one bucket
// per identity. Buckets live in a bounded LRU so memory stays flat under a
// large number of distinct clients; an evicted identity simply starts over
// with a full bucket.
//
// The limiter is process-local. It protects the webhook endpoint and the
// operator API from bursts; it is not an authorization mechanism.
package middleware

import (
	"net/http"
	"sync"

	"github.com/gin-gonic/gin"
	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/time/rate"
)

// defaultMaxVisitors bounds the number of tracked identities.
const defaultMaxVisitors = 10000

// KeyFunc selects the identity used to key a rate-limit bucket.
type KeyFunc func(*gin.Context) string

// KeyByIP keys buckets by client IP.
func KeyByIP() KeyFunc {
	return func(c *gin.Context) string { return "ip:" + c.ClientIP() }
}

// KeyByRoute keys buckets by route only, so all callers of a route share one
// bucket. Used for the webhook, whose sender is a single upstream service.
func KeyByRoute() KeyFunc {
	return func(c *gin.Context) string {
		if p := c.FullPath(); p != "" {
			return "route:" + p
		}
		return "route:" + c.Request.URL.Path
	}
}

// RateLimiter implements a per-key token-bucket rate limiter. It is safe for
// concurrent use.
type RateLimiter struct {
	rps   rate.Limit
	burst int
	keyFn KeyFunc

	mu       sync.Mutex
	visitors *lru.Cache[string, *rate.Limiter]
}

// NewRateLimiter constructs a RateLimiter with the given tokens-per-second and
// burst size, keyed by keyFn. Burst values <= 0 are coerced to 1.
func NewRateLimiter(rps float64, burst int, keyFn KeyFunc) *RateLimiter {
	if burst <= 0 {
		burst = 1
	}
	if keyFn == nil {
		keyFn = KeyByIP()
	}
	visitors, _ := lru.New[string, *rate.Limiter](defaultMaxVisitors)
	return &RateLimiter{
		rps:      rate.Limit(rps),
		burst:    burst,
		keyFn:    keyFn,
		visitors: visitors,
	}
}

// limiter returns the bucket for key, creating it if absent.
func (rl *RateLimiter) limiter(key string) *rate.Limiter {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	if lim, ok := rl.visitors.Get(key); ok {
		return lim
	}
	lim := rate.NewLimiter(rl.rps, rl.burst)
	rl.visitors.Add(key, lim)
	return lim
}

// Handler returns a Gin middleware that enforces per-key limits. Rejected
// requests get 429 with Retry-After: 1 and the standard error envelope.
func (rl *RateLimiter) Handler() gin.HandlerFunc {
	return func(c *gin.Context) {
		if rl.limiter(rl.keyFn(c)).Allow() {
			c.Next()
			return
		}
		c.Header("Retry-After", "1")
		c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
			"request_id": c.Writer.Header().Get(requestIDHeader),
			"code":       "too_many_requests",
			"message":    "rate limit exceeded",
		})
	}
}
