package market

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/corpgame/econ-engine/internal/catalog"
	"github.com/corpgame/econ-engine/internal/model"
)

func d(f float64) decimal.Decimal { return decimal.NewFromFloat(f) }

func assertDec(t *testing.T, want float64, got decimal.Decimal, msg string) {
	t.Helper()
	assert.True(t, got.Equal(d(want)), "%s: want %v, got %s", msg, want, got)
}

func TestAggregate_Contributions(t *testing.T) {
	cat := catalog.Default()
	bal := Aggregate(cat, map[model.Sector]model.UnitCounts{
		model.SectorEnergy:       {Production: 10},
		model.SectorMining:       {Extraction: 4},
		model.SectorConstruction: {Production: 10},
		model.SectorTechnology:   {Service: 10},
		model.SectorRetail:       {Retail: 5},
		"Nonexistent":            {Production: 99, Extraction: 99},
	})

	assertDec(t, 5, bal.CommodityDemand[model.ResourceOil], "oil demand")
	assertDec(t, 3, bal.CommodityDemand[model.ResourceLumber], "construction lumber input")
	assertDec(t, 2, bal.CommodityDemand[model.ResourceSteel], "construction steel input")
	for _, r := range cat.ExtractableOf(model.SectorMining) {
		assertDec(t, 8, bal.CommoditySupply[r], "mining supply of "+string(r))
	}

	assertDec(t, 10, bal.ProductSupply[model.ProductElectricity], "energy output")
	assertDec(t, 10, bal.ProductSupply[model.ProductConstruction], "construction output")
	assertDec(t, 1, bal.ProductDemand[model.ProductLogistics], "energy extra input")

	// Retail: 5 units × 2 per demanded product.
	assertDec(t, 10, bal.ProductDemand[model.ProductFood], "retail food")
	// Technology service (10 × 0.5) + retail (5 × 2).
	assertDec(t, 15, bal.ProductDemand[model.ProductTechnology], "technology demand")
	// Manufactured goods: retail 10 + construction production extra 1
	// + mining extraction extra 4 × 0.1.
	assertDec(t, 11.4, bal.ProductDemand[model.ProductManufactured], "manufactured demand")

	// Electricity: tech service 10 × 0.2 + production draw (10 + 10) × 0.1
	// + mining extraction 4 × 0.05.
	assertDec(t, 4.2, bal.ProductDemand[model.ProductElectricity], "electricity demand")
}

func TestAggregate_UnknownSectorIsInert(t *testing.T) {
	cat := catalog.Default()
	bal := Aggregate(cat, map[model.Sector]model.UnitCounts{
		"Nonexistent": {Production: 100, Extraction: 100, Retail: 100, Service: 100},
	})
	for r := range cat.Resources {
		assert.True(t, bal.CommoditySupply[r].IsZero(), "supply of %s", r)
		assert.True(t, bal.CommodityDemand[r].IsZero(), "demand for %s", r)
	}
	for p := range cat.Products {
		assert.True(t, bal.ProductSupply[p].IsZero(), "supply of %s", p)
		assert.True(t, bal.ProductDemand[p].IsZero(), "demand for %s", p)
	}
}

func TestAggregate_ServiceDemandMatchesUnitConsumption(t *testing.T) {
	cat := catalog.Default()
	bal := Aggregate(cat, map[model.Sector]model.UnitCounts{
		model.SectorHealthcare:    {Service: 10},
		model.SectorRealEstate:    {Service: 10},
		model.SectorDefense:       {Service: 10},
		model.SectorManufacturing: {Service: 10},
	})

	// Healthcare: pharma 10 × 0.5 plus the technology extra 10 × 0.5.
	assertDec(t, 5, bal.ProductDemand[model.ProductPharma], "healthcare pharma")
	assertDec(t, 5, bal.ProductDemand[model.ProductTechnology], "healthcare technology extra")
	assertDec(t, 2, bal.ProductDemand[model.ProductElectricity], "healthcare electricity")
	// Real Estate: construction 10 × 0.5 plus logistics extra 10 × 0.5.
	assertDec(t, 5, bal.ProductDemand[model.ProductConstruction], "real estate construction")
	assertDec(t, 5, bal.ProductDemand[model.ProductLogistics], "real estate logistics extra")
	// Per-sector service rates.
	assertDec(t, 1, bal.ProductDemand[model.ProductDefense], "defense at 0.1")
	assertDec(t, 2.5, bal.ProductDemand[model.ProductManufactured], "manufacturing at 0.25")
}

func TestAggregate_ExtractionDrawOnlyInExtractingSectors(t *testing.T) {
	cat := catalog.Default()
	bal := Aggregate(cat, map[model.Sector]model.UnitCounts{
		model.SectorFinance: {Extraction: 100},
	})
	assertDec(t, 0, bal.ProductDemand[model.ProductElectricity], "finance cannot extract")
}

func TestAggregate_ZeroUnitNeutrality(t *testing.T) {
	cat := catalog.Default()
	totals := make(map[model.Sector]model.UnitCounts)
	for _, s := range cat.SectorList() {
		totals[s] = model.UnitCounts{}
	}
	bal := Aggregate(cat, totals)
	for r := range cat.Resources {
		assert.True(t, bal.CommoditySupply[r].IsZero())
		assert.True(t, bal.CommodityDemand[r].IsZero())
	}
	for p := range cat.Products {
		assert.True(t, bal.ProductSupply[p].IsZero())
		assert.True(t, bal.ProductDemand[p].IsZero())
	}

	snap := Build(cat, bal, nil, time.Now())
	for r, spec := range cat.Resources {
		assert.True(t, snap.CommodityPrice(r).Equal(model.Floor(spec.BasePrice, spec.MinPrice)), "resource %s", r)
	}
	for p, spec := range cat.Products {
		assert.True(t, snap.ProductPrice(p).Equal(model.Floor(spec.ReferenceValue, spec.MinPrice)), "product %s", p)
	}
}

func TestBuild_OilAtBalance(t *testing.T) {
	cat := catalog.Default()
	bal := newBalance(cat)
	bal.CommoditySupply[model.ResourceOil] = d(5000)
	bal.CommodityDemand[model.ResourceOil] = d(5000)

	snap := Build(cat, bal, nil, time.Now())
	assertDec(t, 75, snap.CommodityPrice(model.ResourceOil), "oil")
	assert.Equal(t, cat.Version, snap.CatalogVersion)
	assert.False(t, snap.Override)
	assert.Len(t, snap.Records(), len(cat.Resources)+len(cat.Products))
}

func TestStaticSnapshot(t *testing.T) {
	cat := catalog.Default()
	snap := Static(cat, time.Now())
	for r := range cat.Resources {
		assert.True(t, snap.CommodityPrice(r).GreaterThanOrEqual(cat.Resources[r].MinPrice))
	}
	assertDec(t, 600, snap.ProductPrice(model.ProductTechnology), "technology at reference")
}

func TestWithOverrides(t *testing.T) {
	cat := catalog.Default()
	base := Build(cat, newBalance(cat), nil, time.Now())
	snap := WithOverrides(base, map[model.Resource]decimal.Decimal{model.ResourceOil: d(500)}, nil)

	assert.True(t, snap.Override)
	assertDec(t, 500, snap.CommodityPrice(model.ResourceOil), "overridden oil")
	assertDec(t, 75, base.CommodityPrice(model.ResourceOil), "base untouched")
	assert.True(t, snap.ProductPrice(model.ProductElectricity).Equal(base.ProductPrice(model.ProductElectricity)))
}

// --- SnapshotCache ---

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(dur time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(dur)
	c.mu.Unlock()
}

func countingLoader(n *atomic.Int64) Loader {
	return func(context.Context) (*PriceSnapshot, error) {
		v := n.Add(1)
		return &PriceSnapshot{
			ID:        "gen",
			Commodity: map[model.Resource]decimal.Decimal{model.ResourceOil: decimal.NewFromInt(v)},
			Product:   map[model.Product]decimal.Decimal{model.ProductElectricity: decimal.NewFromInt(v)},
		}, nil
	}
}

func TestSnapshotCache_TTL(t *testing.T) {
	clk := &fakeClock{t: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)}
	cache := NewSnapshotCache(time.Minute, clk.Now)
	var loads atomic.Int64
	load := countingLoader(&loads)
	ctx := context.Background()

	_, hit, err := cache.Get(ctx, load)
	require.NoError(t, err)
	assert.False(t, hit)

	clk.Advance(30 * time.Second)
	_, hit, _ = cache.Get(ctx, load)
	assert.True(t, hit)
	assert.Equal(t, int64(1), loads.Load())

	clk.Advance(31 * time.Second)
	snap, hit, _ := cache.Get(ctx, load)
	assert.False(t, hit)
	assert.Equal(t, int64(2), loads.Load())
	assertDec(t, 2, snap.CommodityPrice(model.ResourceOil), "second generation")

	cache.Invalidate()
	assert.Nil(t, cache.Peek())
}

func TestSnapshotCache_LoaderErrorKeepsPrevious(t *testing.T) {
	cache := NewSnapshotCache(time.Minute, nil)
	var loads atomic.Int64
	ctx := context.Background()
	first, err := cache.Refresh(ctx, countingLoader(&loads))
	require.NoError(t, err)

	boom := errors.New("db down")
	_, err = cache.Refresh(ctx, func(context.Context) (*PriceSnapshot, error) { return nil, boom })
	assert.ErrorIs(t, err, boom)
	assert.Same(t, first, cache.Peek())
}

func TestSnapshotCache_IgnoresOverrides(t *testing.T) {
	cache := NewSnapshotCache(time.Minute, nil)
	cache.Store(NewOverride(nil, nil))
	assert.Nil(t, cache.Peek())
}

func TestSnapshotCache_ReadersNeverSeeMixedSnapshot(t *testing.T) {
	clk := &fakeClock{t: time.Now()}
	cache := NewSnapshotCache(time.Nanosecond, clk.Now)
	var loads atomic.Int64
	load := countingLoader(&loads)
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 200; j++ {
				clk.Advance(time.Millisecond)
				snap, _, err := cache.Get(ctx, load)
				if err != nil {
					t.Error(err)
					return
				}
				if !snap.CommodityPrice(model.ResourceOil).Equal(snap.ProductPrice(model.ProductElectricity)) {
					t.Errorf("mixed snapshot: oil=%s electricity=%s",
						snap.CommodityPrice(model.ResourceOil), snap.ProductPrice(model.ProductElectricity))
					return
				}
			}
		}()
	}
	wg.Wait()
	assert.Greater(t, loads.Load(), int64(1))
}
