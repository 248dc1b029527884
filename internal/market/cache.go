package market

import (
	"context"
	"sync/atomic"
	"time"

	"golang.org/x/sync/singleflight"
)

// DefaultSnapshotTTL is how long a computed snapshot is served from cache.
const DefaultSnapshotTTL = time.Minute

// Loader computes a fresh snapshot.
type Loader func(ctx context.Context) (*PriceSnapshot, error)

type snapshotEntry struct {
	snap      *PriceSnapshot
	fetchedAt time.Time
}

// SnapshotCache holds the single current price snapshot. The entry is
// swapped atomically, so readers see either the old or the new snapshot
// and never a mix. Concurrent misses share one load.
type SnapshotCache struct {
	current atomic.Pointer[snapshotEntry]
	ttl     time.Duration
	now     func() time.Time
	group   singleflight.Group
}

// NewSnapshotCache creates a cache. A nil clock uses time.Now.
func NewSnapshotCache(ttl time.Duration, now func() time.Time) *SnapshotCache {
	if ttl <= 0 {
		ttl = DefaultSnapshotTTL
	}
	if now == nil {
		now = time.Now
	}
	return &SnapshotCache{ttl: ttl, now: now}
}

// Get returns the cached snapshot while fresh, otherwise loads one. The
// bool reports a cache hit.
func (c *SnapshotCache) Get(ctx context.Context, load Loader) (*PriceSnapshot, bool, error) {
	if e := c.current.Load(); e != nil && c.now().Sub(e.fetchedAt) < c.ttl {
		return e.snap, true, nil
	}
	snap, err := c.load(ctx, load)
	return snap, false, err
}

// Refresh loads a new snapshot regardless of freshness.
func (c *SnapshotCache) Refresh(ctx context.Context, load Loader) (*PriceSnapshot, error) {
	return c.load(ctx, load)
}

func (c *SnapshotCache) load(ctx context.Context, load Loader) (*PriceSnapshot, error) {
	v, err, _ := c.group.Do("snapshot", func() (any, error) {
		snap, err := load(ctx)
		if err != nil {
			return nil, err
		}
		c.Store(snap)
		return snap, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*PriceSnapshot), nil
}

// Store installs snap as the current snapshot. Override snapshots are
// ignored.
func (c *SnapshotCache) Store(snap *PriceSnapshot) {
	if snap == nil || snap.Override {
		return
	}
	c.current.Store(&snapshotEntry{snap: snap, fetchedAt: c.now()})
}

// Peek returns the current snapshot without checking freshness.
func (c *SnapshotCache) Peek() *PriceSnapshot {
	if e := c.current.Load(); e != nil {
		return e.snap
	}
	return nil
}

// Invalidate forgets the current snapshot.
func (c *SnapshotCache) Invalidate() {
	c.current.Store(nil)
}
