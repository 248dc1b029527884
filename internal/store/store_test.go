package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/corpgame/econ-engine/internal/model"
)

func d(f float64) decimal.Decimal { return decimal.NewFromFloat(f) }

// --- MemoryStore ---

func TestMemoryStore_UnitTotalsAcrossCorporations(t *testing.T) {
	s := NewMemoryStore()
	s.AddUnits("a", "Texas", model.SectorEnergy, model.UnitCounts{Production: 10, Extraction: 2})
	s.AddUnits("b", "Ohio", model.SectorEnergy, model.UnitCounts{Production: 5})
	s.AddUnits("a", "Texas", model.SectorEnergy, model.UnitCounts{Retail: 1})
	s.AddUnits("a", "Ohio", model.SectorMining, model.UnitCounts{Extraction: 4})

	totals, err := s.SectorUnitTotals(context.Background())
	require.NoError(t, err)
	assert.Equal(t, model.UnitCounts{Production: 15, Extraction: 2, Retail: 1}, totals[model.SectorEnergy])
	assert.Equal(t, model.UnitCounts{Extraction: 4}, totals[model.SectorMining])

	entries, err := s.MarketEntries(context.Background(), "a")
	require.NoError(t, err)
	assert.Len(t, entries, 2, "repeated adds merge into one entry")
}

func TestMemoryStore_CorporationNotFound(t *testing.T) {
	s := NewMemoryStore()
	_, err := s.Corporation(context.Background(), "ghost")
	assert.ErrorIs(t, err, ErrCorporationNotFound)
	assert.ErrorIs(t, s.UpdateSharePrice(context.Background(), "ghost", d(1)), ErrCorporationNotFound)
}

func TestMemoryStore_UpdateSharePriceDoesNotLeakCopies(t *testing.T) {
	s := NewMemoryStore()
	corp := &model.Corporation{ID: "a", Shares: 100, SharePrice: d(5)}
	s.PutCorporation(corp)
	corp.SharePrice = d(999)

	require.NoError(t, s.UpdateSharePrice(context.Background(), "a", d(12.34)))
	got, err := s.Corporation(context.Background(), "a")
	require.NoError(t, err)
	assert.True(t, got.SharePrice.Equal(d(12.34)))

	got.SharePrice = d(0)
	again, _ := s.Corporation(context.Background(), "a")
	assert.True(t, again.SharePrice.Equal(d(12.34)))
}

func TestMemoryStore_RecentTransactions(t *testing.T) {
	s := NewMemoryStore()
	now := time.Now()
	s.RecordTrade(model.ShareTransaction{CorporationID: "a", Shares: 1, Timestamp: now.Add(-200 * time.Hour)})
	s.RecordTrade(model.ShareTransaction{CorporationID: "a", Shares: 2, Timestamp: now.Add(-time.Hour)})
	s.RecordTrade(model.ShareTransaction{CorporationID: "b", Shares: 3, Timestamp: now})

	txs, err := s.RecentTransactions(context.Background(), "a", now.Add(-168*time.Hour))
	require.NoError(t, err)
	require.Len(t, txs, 1)
	assert.Equal(t, int64(2), txs[0].Shares)
}

func TestMemoryStore_ListCorporationIDsSorted(t *testing.T) {
	s := NewMemoryStore()
	for _, id := range []string{"c", "a", "b"} {
		s.PutCorporation(&model.Corporation{ID: id})
	}
	ids, err := s.ListCorporationIDs(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b", "c"}, ids)
}

// --- History implementations ---

func historyContract(t *testing.T, h History) {
	t.Helper()
	ctx := context.Background()
	base := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)

	var recs []model.PriceRecord
	for i := 0; i < 3; i++ {
		recs = append(recs,
			model.PriceRecord{
				ID: "oil-" + string(rune('0'+i)), Kind: model.PriceKindResource, Name: "Oil",
				Price: d(75 + float64(i)), Supply: d(5000), Demand: d(5000.5), RecordedAt: base.Add(time.Duration(i) * time.Hour),
			},
			model.PriceRecord{
				ID: "elec-" + string(rune('0'+i)), Kind: model.PriceKindProduct, Name: "Electricity",
				Price: d(150), Supply: d(10), Demand: d(4.2), RecordedAt: base.Add(time.Duration(i) * time.Hour),
			},
		)
	}
	require.NoError(t, h.AppendPriceHistory(ctx, recs))

	got, err := h.PriceHistory(ctx, model.PriceKindResource, "Oil", 2)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.True(t, got[0].Price.Equal(d(77)), "newest first, got %s", got[0].Price)
	assert.True(t, got[1].Price.Equal(d(76)))
	assert.True(t, got[0].Demand.Equal(d(5000.5)))
	assert.Equal(t, model.PriceKindResource, got[0].Kind)

	all, err := h.PriceHistory(ctx, model.PriceKindProduct, "Electricity", 0)
	require.NoError(t, err)
	assert.Len(t, all, 3)

	none, err := h.PriceHistory(ctx, model.PriceKindProduct, "Oil", 0)
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestMemoryStore_History(t *testing.T) {
	historyContract(t, NewMemoryStore())
}

func TestSQLiteHistory(t *testing.T) {
	h, err := OpenSQLiteHistory(filepath.Join(t.TempDir(), "history.db"))
	require.NoError(t, err)
	defer h.Close()
	historyContract(t, h)
}

// --- Fixture ---

func TestParseFixture_SeedsMemoryStore(t *testing.T) {
	raw := []byte(`
corporations:
  - id: acme
    name: Acme Power
    cash: 50000
    shares: 1000
    dividend_pct: "12.5"
holdings:
  - corporation_id: acme
    region: TX
    sector: Energy
    units: {production: 10, extraction: 2}
  - corporation_id: acme
    region: TX
    sector: Energy
    units: {retail: 1}
trades:
  - id: t1
    corporation_id: acme
    shares: 100
    price_per_share: 40
    timestamp: "2025-06-01T11:00:00Z"
`)
	f, err := ParseFixture(raw)
	require.NoError(t, err)

	s := NewMemoryStore()
	s.Seed(f)

	corp, err := s.Corporation(context.Background(), "acme")
	require.NoError(t, err)
	assert.True(t, corp.Cash.Equal(d(50000)))
	assert.True(t, corp.DividendPct.Equal(d(12.5)))

	entries, err := s.MarketEntries(context.Background(), "acme")
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, model.UnitCounts{Production: 10, Extraction: 2, Retail: 1}, entries[0].Units)

	txs, err := s.RecentTransactions(context.Background(), "acme", time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	require.Len(t, txs, 1)
	assert.True(t, txs[0].PricePerShare.Equal(d(40)))
}

func TestParseFixture_Rejects(t *testing.T) {
	_, err := ParseFixture([]byte("holdings:\n  - region: TX\n"))
	assert.Error(t, err)

	_, err = ParseFixture([]byte("corporations: [unterminated"))
	assert.Error(t, err)
}

// --- PostgresStore ---

func TestParseNumerics(t *testing.T) {
	var cash, price decimal.Decimal
	require.NoError(t, parseNumerics(
		numeric{"cash", "50000.25", &cash},
		numeric{"share_price", "7", &price},
	))
	assert.True(t, cash.Equal(d(50000.25)))
	assert.True(t, price.Equal(d(7)))

	cash = d(1)
	err := parseNumerics(numeric{"cash", "not-a-number", &cash})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "cash")
	assert.True(t, cash.Equal(d(1)), "field left untouched on failure")
}
