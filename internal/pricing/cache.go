package pricing

import (
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/corpgame/econ-engine/internal/catalog"
	"github.com/corpgame/econ-engine/internal/model"
)

// DefaultTTL is how long a cached price stays valid.
const DefaultTTL = time.Minute

type cachedPrice struct {
	price   decimal.Decimal
	expires time.Time
}

// CommodityCache memoises live commodity prices keyed by
// "resource:supply:demand". It is safe for concurrent use.
type CommodityCache struct {
	mu      sync.RWMutex
	entries map[string]cachedPrice
	ttl     time.Duration
	now     func() time.Time
}

// NewCommodityCache creates a cache. A nil clock uses time.Now.
func NewCommodityCache(ttl time.Duration, now func() time.Time) *CommodityCache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if now == nil {
		now = time.Now
	}
	return &CommodityCache{
		entries: make(map[string]cachedPrice),
		ttl:     ttl,
		now:     now,
	}
}

// Price returns the live price of r, computing and caching it on a miss.
func (c *CommodityCache) Price(r model.Resource, spec catalog.ResourceSpec, supply, demand decimal.Decimal) (decimal.Decimal, bool) {
	key := commodityKey(r, supply, demand)
	now := c.now()

	c.mu.RLock()
	e, ok := c.entries[key]
	c.mu.RUnlock()
	if ok && now.Before(e.expires) {
		return e.price, true
	}

	price := LivePrice(spec.BasePrice, spec.MinPrice, supply, demand)

	c.mu.Lock()
	c.entries[key] = cachedPrice{price: price, expires: now.Add(c.ttl)}
	c.mu.Unlock()
	return price, false
}

// Purge drops expired entries.
func (c *CommodityCache) Purge() {
	now := c.now()
	c.mu.Lock()
	defer c.mu.Unlock()
	for k, e := range c.entries {
		if !now.Before(e.expires) {
			delete(c.entries, k)
		}
	}
}

// Invalidate drops every entry.
func (c *CommodityCache) Invalidate() {
	c.mu.Lock()
	c.entries = make(map[string]cachedPrice)
	c.mu.Unlock()
}

// Len reports the number of cached entries.
func (c *CommodityCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

func commodityKey(r model.Resource, supply, demand decimal.Decimal) string {
	return string(r) + ":" + supply.String() + ":" + demand.String()
}
