package cache

import "time"

// DefaultClaimTTL is the default lifetime of a pending action claim.
const DefaultClaimTTL = 5 * time.Second

const maxClaims = 1024

// ClaimCache records which cast hashes an action has already answered.
type ClaimCache struct {
	set *ttlSet[string]
}

// NewClaimCache returns an empty claim cache.
func NewClaimCache(ttl time.Duration, opts ...Option) (*ClaimCache, error) {
	set, err := newTTLSet[string](ttl, maxClaims, buildOptions(opts))
	if err != nil {
		return nil, err
	}
	return &ClaimCache{set: set}, nil
}

// Claim records a claim for castHash. It reports false when a live claim
// already exists.
func (c *ClaimCache) Claim(castHash string) bool {
	if castHash == "" {
		return false
	}
	return c.set.addIfAbsent(castHash)
}

// IsClaimed reports whether castHash holds a live claim.
func (c *ClaimCache) IsClaimed(castHash string) bool {
	return castHash != "" && c.set.contains(castHash)
}

// Release drops the claim for castHash.
func (c *ClaimCache) Release(castHash string) { c.set.remove(castHash) }
