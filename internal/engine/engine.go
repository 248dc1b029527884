// Package engine wires the catalog, market, pricing, economics, finance
// and valuation packages to the persistence layer. It owns the shared
// caches and is the only place that writes share prices.
package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"sync"
	"sync/atomic"
	"time"

	"github.com/shopspring/decimal"

	"github.com/corpgame/econ-engine/internal/catalog"
	"github.com/corpgame/econ-engine/internal/econ"
	"github.com/corpgame/econ-engine/internal/finance"
	"github.com/corpgame/econ-engine/internal/market"
	"github.com/corpgame/econ-engine/internal/metrics"
	"github.com/corpgame/econ-engine/internal/model"
	"github.com/corpgame/econ-engine/internal/pricing"
	"github.com/corpgame/econ-engine/internal/store"
	"github.com/corpgame/econ-engine/internal/valuation"
)

// ErrCorporationNotFound is returned when valuing an unknown corporation.
var ErrCorporationNotFound = store.ErrCorporationNotFound

// Broadcaster receives engine events for live clients.
type Broadcaster interface {
	Broadcast(msgType string, payload any)
}

// Options configure an Engine. Zero values select defaults.
type Options struct {
	SnapshotTTL  time.Duration
	EconomicsTTL time.Duration
	CommodityTTL time.Duration

	// Workers bounds concurrent corporation valuations per tick.
	Workers int

	// Variation is the half-width of the hourly random price multiplier.
	Variation float64

	// NoVariation turns the hourly multiplier off even when a tick or
	// valuation asks for it.
	NoVariation bool

	// StaticFallback prices commodities from the regional pool when unit
	// totals cannot be read. Without it such a refresh fails.
	StaticFallback bool

	// Archive receives a copy of every price history write.
	Archive store.History

	Broadcaster Broadcaster
	Now         func() time.Time
	Rand        *rand.Rand
}

type catalogState struct {
	cat  *catalog.Catalog
	calc *econ.Calculator
}

// Engine is safe for concurrent use.
type Engine struct {
	source catalog.Source
	store  store.Store
	opts   Options

	state       atomic.Pointer[catalogState]
	snapshots   *market.SnapshotCache
	economics   *econ.Cache
	commodities *pricing.CommodityCache

	rngMu sync.Mutex
	rng   *rand.Rand
}

// New loads the catalog and returns a ready engine.
func New(ctx context.Context, source catalog.Source, st store.Store, opts Options) (*Engine, error) {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Workers <= 0 {
		opts.Workers = 8
	}
	if opts.Variation <= 0 {
		opts.Variation = valuation.DefaultVariation
	}
	if opts.Rand == nil {
		opts.Rand = rand.New(rand.NewPCG(uint64(opts.Now().UnixNano()), 0x5eed))
	}

	e := &Engine{
		source:      source,
		store:       st,
		opts:        opts,
		snapshots:   market.NewSnapshotCache(opts.SnapshotTTL, opts.Now),
		economics:   econ.NewCache(opts.EconomicsTTL, opts.Now),
		commodities: pricing.NewCommodityCache(opts.CommodityTTL, opts.Now),
		rng:         opts.Rand,
	}

	cat, err := source.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("load catalog: %w", err)
	}
	e.state.Store(&catalogState{cat: cat, calc: econ.NewCalculator(cat)})
	slog.Info("engine ready", "catalog_version", cat.Version, "sectors", len(cat.Sectors))
	return e, nil
}

// Catalog returns the catalog currently in force.
func (e *Engine) Catalog() *catalog.Catalog {
	return e.state.Load().cat
}

// ReloadCatalog re-reads the catalog source. A new version replaces the
// catalog and drops every cache.
func (e *Engine) ReloadCatalog(ctx context.Context) (bool, error) {
	cat, err := e.source.Load(ctx)
	if err != nil {
		return false, fmt.Errorf("reload catalog: %w", err)
	}
	prev := e.state.Load()
	if prev.cat.Version == cat.Version {
		return false, nil
	}

	e.state.Store(&catalogState{cat: cat, calc: econ.NewCalculator(cat)})
	e.snapshots.Invalidate()
	e.economics.Invalidate()
	e.commodities.Invalidate()
	metrics.CatalogReloads.Inc()

	slog.Info("catalog version changed, caches invalidated",
		"from", prev.cat.Version,
		"to", cat.Version,
	)
	return true, nil
}

// --- Price snapshot ---

// CurrentSnapshot returns the cached snapshot, computing it if stale.
func (e *Engine) CurrentSnapshot(ctx context.Context) (*market.PriceSnapshot, error) {
	snap, hit, err := e.snapshots.Get(ctx, e.computeSnapshot)
	if err != nil {
		return nil, err
	}
	metrics.CacheResult("snapshot", hit)
	return snap, nil
}

// RefreshSnapshot recomputes the snapshot now and installs it.
func (e *Engine) RefreshSnapshot(ctx context.Context) (*market.PriceSnapshot, error) {
	if _, err := e.ReloadCatalog(ctx); err != nil {
		slog.Warn("keeping current catalog", "err", err)
	}
	snap, err := e.snapshots.Refresh(ctx, e.computeSnapshot)
	if err != nil {
		return nil, err
	}
	if e.opts.Broadcaster != nil {
		e.opts.Broadcaster.Broadcast("prices", snap)
	}
	return snap, nil
}

func (e *Engine) computeSnapshot(ctx context.Context) (*market.PriceSnapshot, error) {
	cat := e.Catalog()
	totals, err := e.store.SectorUnitTotals(ctx)
	if err != nil {
		if !e.opts.StaticFallback {
			return nil, fmt.Errorf("read unit totals: %w", err)
		}
		slog.Warn("unit totals unavailable, pricing from regional pool", "err", err)
		metrics.SnapshotRefreshes.WithLabelValues("static").Inc()
		return market.Static(cat, e.opts.Now()), nil
	}

	e.commodities.Purge()
	bal := market.Aggregate(cat, totals)
	snap := market.Build(cat, bal, e.commodities, e.opts.Now())
	metrics.SnapshotRefreshes.WithLabelValues("live").Inc()
	metrics.CacheEntries.WithLabelValues("commodity").Set(float64(e.commodities.Len()))
	metrics.CacheEntries.WithLabelValues("economics").Set(float64(e.economics.Len()))
	for r, p := range snap.Commodity {
		metrics.Price.WithLabelValues(string(model.PriceKindResource), string(r)).Set(p.InexactFloat64())
	}
	for p, v := range snap.Product {
		metrics.Price.WithLabelValues(string(model.PriceKindProduct), string(p)).Set(v.InexactFloat64())
	}

	slog.Debug("price snapshot computed",
		"id", snap.ID,
		"catalog_version", snap.CatalogVersion,
		"sectors", len(totals),
	)
	return snap, nil
}

// WithOverrides derives an override snapshot from the current one.
func (e *Engine) WithOverrides(ctx context.Context, commodity map[model.Resource]decimal.Decimal, product map[model.Product]decimal.Decimal) (*market.PriceSnapshot, error) {
	base, err := e.CurrentSnapshot(ctx)
	if err != nil {
		return nil, err
	}
	return market.WithOverrides(base, commodity, product), nil
}

// --- Unit economics ---

func (e *Engine) economicsFor(snap *market.PriceSnapshot) finance.EconomicsFunc {
	calc := e.calculatorFor(snap)
	return func(t model.UnitType, s model.Sector) econ.Result {
		res, hit := e.economics.Compute(calc, t, s, snap)
		if !snap.Override {
			metrics.CacheResult("economics", hit)
		}
		return res
	}
}

// calculatorFor returns a calculator over the catalog snap was priced
// under, so a reload during a tick does not mix catalogs.
func (e *Engine) calculatorFor(snap *market.PriceSnapshot) *econ.Calculator {
	st := e.state.Load()
	if snap.Catalog == nil || snap.Catalog == st.cat {
		return st.calc
	}
	return econ.NewCalculator(snap.Catalog)
}

// UnitEconomics returns per-unit economics against override, or against
// the current snapshot when override is nil.
func (e *Engine) UnitEconomics(ctx context.Context, t model.UnitType, s model.Sector, override *market.PriceSnapshot) (econ.Result, error) {
	snap, err := e.pick(ctx, override)
	if err != nil {
		return econ.Result{}, err
	}
	return e.economicsFor(snap)(t, s), nil
}

func (e *Engine) pick(ctx context.Context, override *market.PriceSnapshot) (*market.PriceSnapshot, error) {
	if override != nil {
		return override, nil
	}
	return e.CurrentSnapshot(ctx)
}

// --- Finances ---

// CalculateFinances rolls up a corporation's holdings. With withParams the
// corporation record is read and an income statement is attached; an
// unknown corporation then yields ErrCorporationNotFound.
func (e *Engine) CalculateFinances(ctx context.Context, corporationID string, override *market.PriceSnapshot, withParams bool) (finance.Finances, error) {
	snap, err := e.pick(ctx, override)
	if err != nil {
		return finance.Finances{}, err
	}

	var params *finance.Params
	if withParams {
		corp, err := e.store.Corporation(ctx, corporationID)
		if err != nil {
			return finance.Finances{}, err
		}
		params = finance.ParamsOf(corp)
	}

	entries, err := e.store.MarketEntries(ctx, corporationID)
	if err != nil {
		return finance.Finances{}, fmt.Errorf("market entries %s: %w", corporationID, err)
	}
	return finance.Calculate(corporationID, entries, e.economicsFor(snap), params), nil
}

// --- Valuation ---

// ValuationOptions select the optional parts of CalculateStockPrice.
type ValuationOptions struct {
	// Override prices the corporation against explicit prices.
	Override *market.PriceSnapshot
	// Variation applies the random hourly multiplier.
	Variation bool
	// DryRun skips the share price write.
	DryRun bool
}

// CalculateStockPrice values a corporation and persists its share price.
func (e *Engine) CalculateStockPrice(ctx context.Context, corporationID string, opts ValuationOptions) (valuation.Valuation, error) {
	snap, err := e.pick(ctx, opts.Override)
	if err != nil {
		return valuation.Valuation{}, err
	}
	v, err := e.value(ctx, corporationID, snap, opts.Variation)
	if err != nil {
		return valuation.Valuation{}, err
	}
	if opts.DryRun {
		return v, nil
	}
	if err := e.persist(ctx, v); err != nil {
		return valuation.Valuation{}, err
	}
	return v, nil
}

func (e *Engine) value(ctx context.Context, corporationID string, snap *market.PriceSnapshot, variation bool) (valuation.Valuation, error) {
	corp, err := e.store.Corporation(ctx, corporationID)
	if err != nil {
		if errors.Is(err, ErrCorporationNotFound) {
			return valuation.Valuation{}, err
		}
		return valuation.Valuation{}, fmt.Errorf("read corporation %s: %w", corporationID, err)
	}
	entries, err := e.store.MarketEntries(ctx, corporationID)
	if err != nil {
		return valuation.Valuation{}, fmt.Errorf("market entries %s: %w", corporationID, err)
	}

	now := e.opts.Now()
	trades, err := e.store.RecentTransactions(ctx, corporationID, now.Add(-valuation.TradeLookback))
	if err != nil {
		return valuation.Valuation{}, fmt.Errorf("recent transactions %s: %w", corporationID, err)
	}

	economics := e.economicsFor(snap)
	fin := finance.Calculate(corporationID, entries, economics, nil)
	v := valuation.Value(valuation.Inputs{
		CorporationID: corporationID,
		Cash:          corp.Cash,
		Shares:        corp.Shares,
		AssetValue:    valuation.AssetValue(entries, economics),
		HourlyProfit:  fin.HourlyProfit,
		Trades:        trades,
		Now:           now,
	})

	if variation && !e.opts.NoVariation {
		e.rngMu.Lock()
		v.CalculatedPrice = valuation.ApplyVariation(v.CalculatedPrice, e.rng, e.opts.Variation)
		e.rngMu.Unlock()
		v.Varied = true
	}
	return v, nil
}

func (e *Engine) persist(ctx context.Context, v valuation.Valuation) error {
	if err := e.store.UpdateSharePrice(ctx, v.CorporationID, v.CalculatedPrice); err != nil {
		return fmt.Errorf("update share price %s: %w", v.CorporationID, err)
	}
	metrics.SharePrice.WithLabelValues(v.CorporationID).Set(v.CalculatedPrice.InexactFloat64())
	return nil
}
