package econ

import (
	"sync"
	"time"

	"github.com/corpgame/econ-engine/internal/market"
	"github.com/corpgame/econ-engine/internal/model"
)

// DefaultTTL bounds how long a cached result is served.
const DefaultTTL = time.Minute

type cacheEntry struct {
	result         Result
	snapshotID     string
	catalogVersion string
	storedAt       time.Time
}

// Cache memoizes results by unit type and sector. An entry is only served
// for the snapshot and catalog version it was computed from, so a price
// refresh or catalog change can never return stale economics. Override
// snapshots bypass the cache in both directions.
type Cache struct {
	mu      sync.RWMutex
	entries map[string]cacheEntry
	ttl     time.Duration
	now     func() time.Time
}

// NewCache creates a cache. A nil clock uses time.Now.
func NewCache(ttl time.Duration, now func() time.Time) *Cache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if now == nil {
		now = time.Now
	}
	return &Cache{entries: make(map[string]cacheEntry), ttl: ttl, now: now}
}

func cacheKey(t model.UnitType, s model.Sector) string {
	return string(t) + ":" + string(s)
}

// Compute returns calc's result for (t, s) under snap, serving and filling
// the cache when snap is not an override. The bool reports a cache hit.
func (c *Cache) Compute(calc *Calculator, t model.UnitType, s model.Sector, snap *market.PriceSnapshot) (Result, bool) {
	if snap.Override {
		return calc.Compute(t, s, snap), false
	}

	key := cacheKey(t, s)
	version := calc.Catalog().Version
	c.mu.RLock()
	e, ok := c.entries[key]
	c.mu.RUnlock()
	if ok && e.snapshotID == snap.ID && e.catalogVersion == version && c.now().Sub(e.storedAt) < c.ttl {
		return e.result, true
	}

	res := calc.Compute(t, s, snap)
	c.mu.Lock()
	c.entries[key] = cacheEntry{result: res, snapshotID: snap.ID, catalogVersion: version, storedAt: c.now()}
	c.mu.Unlock()
	return res, false
}

// Invalidate drops every entry.
func (c *Cache) Invalidate() {
	c.mu.Lock()
	c.entries = make(map[string]cacheEntry)
	c.mu.Unlock()
}

// Len returns the number of stored entries, fresh or not.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}
