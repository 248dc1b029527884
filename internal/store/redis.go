package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"

	"github.com/corpgame/econ-engine/internal/model"
)

// CachedStore wraps a primary Store (PostgreSQL) with a Redis read-through
// cache. Writes go to the primary store and invalidate the cache; reads
// check Redis first then fall back to the primary.
type CachedStore struct {
	primary Store
	rdb     *redis.Client
	ttl     time.Duration
}

// NewCachedStore creates a cached wrapper around a primary store.
func NewCachedStore(primary Store, rdb *redis.Client, ttl time.Duration) *CachedStore {
	return &CachedStore{
		primary: primary,
		rdb:     rdb,
		ttl:     ttl,
	}
}

// --- Write-through (write to primary, invalidate cache) ---

func (s *CachedStore) UpdateSharePrice(ctx context.Context, id string, price decimal.Decimal) error {
	if err := s.primary.UpdateSharePrice(ctx, id, price); err != nil {
		return err
	}
	// Invalidate cache; next read will re-populate.
	s.rdb.Del(ctx, corporationKey(id))
	return nil
}

func (s *CachedStore) AppendPriceHistory(ctx context.Context, recs []model.PriceRecord) error {
	return s.primary.AppendPriceHistory(ctx, recs)
}

// --- Read-through (check cache first) ---

func (s *CachedStore) SectorUnitTotals(ctx context.Context) (map[model.Sector]model.UnitCounts, error) {
	var totals map[model.Sector]model.UnitCounts
	if s.getJSON(ctx, unitTotalsKey, &totals) {
		return totals, nil
	}

	totals, err := s.primary.SectorUnitTotals(ctx)
	if err != nil {
		return nil, err
	}
	s.setJSON(ctx, unitTotalsKey, totals)
	return totals, nil
}

func (s *CachedStore) MarketEntries(ctx context.Context, corporationID string) ([]model.MarketEntry, error) {
	var entries []model.MarketEntry
	if s.getJSON(ctx, entriesKey(corporationID), &entries) {
		return entries, nil
	}

	entries, err := s.primary.MarketEntries(ctx, corporationID)
	if err != nil {
		return nil, err
	}
	s.setJSON(ctx, entriesKey(corporationID), entries)
	return entries, nil
}

func (s *CachedStore) Corporation(ctx context.Context, id string) (*model.Corporation, error) {
	var c model.Corporation
	if s.getJSON(ctx, corporationKey(id), &c) {
		return &c, nil
	}

	corp, err := s.primary.Corporation(ctx, id)
	if err != nil {
		return nil, err
	}
	s.setJSON(ctx, corporationKey(id), corp)
	return corp, nil
}

// --- Passthrough (not cached) ---

func (s *CachedStore) ListCorporationIDs(ctx context.Context) ([]string, error) {
	return s.primary.ListCorporationIDs(ctx)
}

func (s *CachedStore) RecentTransactions(ctx context.Context, corporationID string, since time.Time) ([]model.ShareTransaction, error) {
	return s.primary.RecentTransactions(ctx, corporationID, since)
}

func (s *CachedStore) PriceHistory(ctx context.Context, kind model.PriceKind, name string, limit int) ([]model.PriceRecord, error) {
	return s.primary.PriceHistory(ctx, kind, name, limit)
}

// --- Cache helpers ---

func (s *CachedStore) getJSON(ctx context.Context, key string, dst any) bool {
	data, err := s.rdb.Get(ctx, key).Bytes()
	if err != nil {
		return false
	}
	return json.Unmarshal(data, dst) == nil
}

func (s *CachedStore) setJSON(ctx context.Context, key string, v any) {
	if data, err := json.Marshal(v); err == nil {
		s.rdb.Set(ctx, key, data, s.ttl)
	}
}

const unitTotalsKey = "units:totals"

func corporationKey(id string) string { return fmt.Sprintf("corporation:%s", id) }
func entriesKey(id string) string     { return fmt.Sprintf("entries:%s", id) }
