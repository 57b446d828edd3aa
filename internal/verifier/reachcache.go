package verifier

import (
	"github.com/ivoronin/verifyio/internal/cache"
	"github.com/ivoronin/verifyio/internal/types"
)

// ReachabilityCache adapts the byte-oriented cache.Cache to the verifier's
// (node, node, algorithm, semantics) -> bool lookups.
type ReachabilityCache struct {
	c *cache.Cache
}

// NewReachabilityCache wraps an opened cache.Cache for use by a Verifier.
// Passing a nil c disables caching.
func NewReachabilityCache(c *cache.Cache) *ReachabilityCache {
	return &ReachabilityCache{c: c}
}

// Get looks up a previously computed reachability decision for (v1, v2)
// under algorithm/semantics.
func (rc *ReachabilityCache) Get(v1, v2 *types.Node, algorithm Algorithm, semantics Semantics) (result, found bool) {
	if rc == nil || rc.c == nil {
		return false, false
	}
	return rc.c.Lookup(v1.Key(), v2.Key(), int(algorithm), string(semantics))
}

// Put records a reachability decision for (v1, v2) under algorithm/semantics.
func (rc *ReachabilityCache) Put(v1, v2 *types.Node, algorithm Algorithm, semantics Semantics, result bool) {
	if rc == nil || rc.c == nil {
		return
	}
	_ = rc.c.Store(v1.Key(), v2.Key(), int(algorithm), string(semantics), result)
}
