// Package ristretto implements the liveness probe cache on
// dgraph-io/ristretto. The mock backend keys probe verdicts by agent id
// so that listing with check_liveness does not re-probe every endpoint
// on every request.
package ristretto

import (
	"time"

	"github.com/dgraph-io/ristretto/v2"
)

// LivenessCache caches per-agent liveness verdicts with a TTL.
type LivenessCache struct {
	c   *ristretto.Cache[string, bool]
	ttl time.Duration
}

// NewLivenessCache creates a cache holding up to maxEntries verdicts,
// each expiring after ttl.
func NewLivenessCache(maxEntries int64, ttl time.Duration) (*LivenessCache, error) {
	c, err := ristretto.NewCache(&ristretto.Config[string, bool]{
		NumCounters: maxEntries * 10, // ~10x expected items
		MaxCost:     maxEntries,
		BufferItems: 64,
	})
	if err != nil {
		return nil, err
	}
	return &LivenessCache{c: c, ttl: ttl}, nil
}

// Get retrieves the cached verdict for an agent.
func (lc *LivenessCache) Get(agentID string) (live bool, ok bool) {
	return lc.c.Get(agentID)
}

// Set stores a verdict. Every entry costs 1 toward MaxCost.
func (lc *LivenessCache) Set(agentID string, live bool) {
	lc.c.SetWithTTL(agentID, live, 1, lc.ttl)
	lc.c.Wait()
}

// Invalidate removes an agent's verdict, forcing the next probe.
func (lc *LivenessCache) Invalidate(agentID string) {
	lc.c.Del(agentID)
}

// Close shuts down the cache and releases resources.
func (lc *LivenessCache) Close() {
	lc.c.Close()
}
