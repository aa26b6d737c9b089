package scanner

import (
	"context"
	"sync"
	"time"
)

// ReportCache stores group reports between scans. Implementations must
// be safe for concurrent use. The scanner core never requires a cache;
// it produces identical output for identical input, which is what makes
// caching outside it safe.
type ReportCache interface {
	Get(ctx context.Context, asset string) (*GroupReport, bool)
	Set(ctx context.Context, asset string, report *GroupReport)
}

type cachedReport struct {
	report    *GroupReport
	expiresAt time.Time
}

// MemoryCache is an in-process ReportCache with per-entry TTL and a
// capacity bound. When full, the entry closest to expiry is evicted.
type MemoryCache struct {
	mu         sync.RWMutex
	entries    map[string]cachedReport
	ttl        time.Duration
	maxEntries int
}

// NewMemoryCache creates a cache holding up to maxEntries reports for
// ttl each.
func NewMemoryCache(ttl time.Duration, maxEntries int) *MemoryCache {
	if maxEntries <= 0 {
		maxEntries = 16
	}
	return &MemoryCache{
		entries:    make(map[string]cachedReport),
		ttl:        ttl,
		maxEntries: maxEntries,
	}
}

// Get returns the cached report for an asset if present and fresh.
func (c *MemoryCache) Get(_ context.Context, asset string) (*GroupReport, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	entry, ok := c.entries[asset]
	if !ok || time.Now().After(entry.expiresAt) {
		return nil, false
	}
	return entry.report, true
}

// Set stores a report with the cache TTL, evicting the stalest entry
// when at capacity.
func (c *MemoryCache) Set(_ context.Context, asset string, report *GroupReport) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.entries[asset]; !exists && len(c.entries) >= c.maxEntries {
		c.evictStalest()
	}

	c.entries[asset] = cachedReport{
		report:    report,
		expiresAt: time.Now().Add(c.ttl),
	}
}

// Clear drops all cached reports.
func (c *MemoryCache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]cachedReport)
}

// evictStalest removes the entry with the earliest expiry. Caller holds
// the write lock.
func (c *MemoryCache) evictStalest() {
	var stalest string
	var stalestAt time.Time
	for asset, entry := range c.entries {
		if stalest == "" || entry.expiresAt.Before(stalestAt) {
			stalest = asset
			stalestAt = entry.expiresAt
		}
	}
	if stalest != "" {
		delete(c.entries, stalest)
	}
}
