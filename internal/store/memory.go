package store

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/corpgame/econ-engine/internal/model"
)

// MemoryStore implements Store with in-memory maps. Used for testing
// and development. Not suitable for production (no persistence).
type MemoryStore struct {
	mu      sync.RWMutex
	corps   map[string]*model.Corporation
	entries []model.MarketEntry
	trades  []model.ShareTransaction
	history []model.PriceRecord
	now     func() time.Time
}

// NewMemoryStore creates a new in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		corps: make(map[string]*model.Corporation),
		now:   time.Now,
	}
}

// PutCorporation inserts or replaces a corporation.
func (s *MemoryStore) PutCorporation(c *model.Corporation) {
	s.mu.Lock()
	defer s.mu.Unlock()

	// Store a copy to avoid external mutation.
	cp := *c
	s.corps[c.ID] = &cp
}

// AddUnits adds units to a corporation's (region, sector) entry, creating
// it if needed.
func (s *MemoryStore) AddUnits(corporationID string, region model.Region, sector model.Sector, units model.UnitCounts) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i, e := range s.entries {
		if e.CorporationID == corporationID && e.Region == region && e.Sector == sector {
			s.entries[i].Units = e.Units.Add(units)
			return
		}
	}
	s.entries = append(s.entries, model.MarketEntry{
		CorporationID: corporationID,
		Region:        region,
		Sector:        sector,
		Units:         units,
	})
}

// RecordTrade appends a share transaction.
func (s *MemoryStore) RecordTrade(tx model.ShareTransaction) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.trades = append(s.trades, tx)
}

func (s *MemoryStore) SectorUnitTotals(_ context.Context) (map[model.Sector]model.UnitCounts, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	totals := make(map[model.Sector]model.UnitCounts)
	for _, e := range s.entries {
		totals[e.Sector] = totals[e.Sector].Add(e.Units)
	}
	return totals, nil
}

func (s *MemoryStore) MarketEntries(_ context.Context, corporationID string) ([]model.MarketEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []model.MarketEntry
	for _, e := range s.entries {
		if e.CorporationID == corporationID {
			result = append(result, e)
		}
	}
	return result, nil
}

func (s *MemoryStore) Corporation(_ context.Context, id string) (*model.Corporation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	c, ok := s.corps[id]
	if !ok {
		return nil, fmt.Errorf("corporation %s: %w", id, ErrCorporationNotFound)
	}
	cp := *c
	return &cp, nil
}

func (s *MemoryStore) ListCorporationIDs(_ context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := make([]string, 0, len(s.corps))
	for id := range s.corps {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids, nil
}

func (s *MemoryStore) UpdateSharePrice(_ context.Context, id string, price decimal.Decimal) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.corps[id]
	if !ok {
		return fmt.Errorf("corporation %s: %w", id, ErrCorporationNotFound)
	}
	c.SharePrice = price
	c.UpdatedAt = s.now()
	return nil
}

func (s *MemoryStore) RecentTransactions(_ context.Context, corporationID string, since time.Time) ([]model.ShareTransaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []model.ShareTransaction
	for _, tx := range s.trades {
		if tx.CorporationID == corporationID && !tx.Timestamp.Before(since) {
			result = append(result, tx)
		}
	}
	return result, nil
}

func (s *MemoryStore) AppendPriceHistory(_ context.Context, recs []model.PriceRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.history = append(s.history, recs...)
	return nil
}

func (s *MemoryStore) PriceHistory(_ context.Context, kind model.PriceKind, name string, limit int) ([]model.PriceRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []model.PriceRecord
	for i := len(s.history) - 1; i >= 0; i-- {
		r := s.history[i]
		if r.Kind != kind || r.Name != name {
			continue
		}
		result = append(result, r)
		if limit > 0 && len(result) == limit {
			break
		}
	}
	return result, nil
}
