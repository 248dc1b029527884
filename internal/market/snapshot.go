package market

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/corpgame/econ-engine/internal/catalog"
	"github.com/corpgame/econ-engine/internal/model"
	"github.com/corpgame/econ-engine/internal/pricing"
)

// PriceSnapshot is the set of commodity and product prices valid for one
// pricing cycle. It is never mutated after construction.
type PriceSnapshot struct {
	ID             string                             `json:"id"`
	CatalogVersion string                             `json:"catalog_version"`
	ComputedAt     time.Time                          `json:"computed_at"`
	Commodity      map[model.Resource]decimal.Decimal `json:"commodity_prices"`
	Product        map[model.Product]decimal.Decimal  `json:"product_prices"`
	Balance        *Balance                           `json:"balance,omitempty"`

	// Catalog is the catalog the prices were computed under. Economics for
	// this snapshot read sector profiles from it, not from a newer reload.
	Catalog *catalog.Catalog `json:"-"`

	// Override marks caller-supplied prices. Override snapshots are never
	// cached and never read from a cache.
	Override bool `json:"override"`
}

// CommodityPrice returns the price of r, zero if unpriced.
func (s *PriceSnapshot) CommodityPrice(r model.Resource) decimal.Decimal {
	return s.Commodity[r]
}

// ProductPrice returns the price of p, zero if unpriced.
func (s *PriceSnapshot) ProductPrice(p model.Product) decimal.Decimal {
	return s.Product[p]
}

// Build prices every catalog item from a live balance. A nil cache prices
// commodities directly.
func Build(cat *catalog.Catalog, bal *Balance, cache *pricing.CommodityCache, now time.Time) *PriceSnapshot {
	snap := &PriceSnapshot{
		ID:             uuid.New().String(),
		CatalogVersion: cat.Version,
		ComputedAt:     now,
		Commodity:      make(map[model.Resource]decimal.Decimal, len(cat.Resources)),
		Product:        make(map[model.Product]decimal.Decimal, len(cat.Products)),
		Balance:        bal,
		Catalog:        cat,
	}
	for r, spec := range cat.Resources {
		supply, demand := bal.CommoditySupply[r], bal.CommodityDemand[r]
		if cache != nil {
			snap.Commodity[r], _ = cache.Price(r, spec, supply, demand)
		} else {
			snap.Commodity[r] = pricing.LivePrice(spec.BasePrice, spec.MinPrice, supply, demand)
		}
	}
	for p, spec := range cat.Products {
		snap.Product[p] = pricing.LivePrice(spec.ReferenceValue, spec.MinPrice, bal.ProductSupply[p], bal.ProductDemand[p])
	}
	return snap
}

// Static prices commodities from the fixed regional pool and products at
// their reference value, for hosts without live unit counts.
func Static(cat *catalog.Catalog, now time.Time) *PriceSnapshot {
	snap := &PriceSnapshot{
		ID:             uuid.New().String(),
		CatalogVersion: cat.Version,
		ComputedAt:     now,
		Commodity:      make(map[model.Resource]decimal.Decimal, len(cat.Resources)),
		Product:        make(map[model.Product]decimal.Decimal, len(cat.Products)),
		Catalog:        cat,
	}
	for r, spec := range cat.Resources {
		snap.Commodity[r] = pricing.StaticCommodityPrice(spec, cat.NationalTotal(r))
	}
	for p, spec := range cat.Products {
		snap.Product[p] = model.Floor(model.RoundCents(spec.ReferenceValue), spec.MinPrice)
	}
	return snap
}

// NewOverride builds an override snapshot from explicit prices. Items not
// listed are unpriced.
func NewOverride(commodity map[model.Resource]decimal.Decimal, product map[model.Product]decimal.Decimal) *PriceSnapshot {
	return WithOverrides(nil, commodity, product)
}

// WithOverrides copies base (may be nil) and replaces the listed prices.
func WithOverrides(base *PriceSnapshot, commodity map[model.Resource]decimal.Decimal, product map[model.Product]decimal.Decimal) *PriceSnapshot {
	snap := &PriceSnapshot{
		ID:         uuid.New().String(),
		ComputedAt: time.Now(),
		Commodity:  make(map[model.Resource]decimal.Decimal),
		Product:    make(map[model.Product]decimal.Decimal),
		Override:   true,
	}
	if base != nil {
		snap.CatalogVersion = base.CatalogVersion
		snap.Catalog = base.Catalog
		for k, v := range base.Commodity {
			snap.Commodity[k] = v
		}
		for k, v := range base.Product {
			snap.Product[k] = v
		}
	}
	for k, v := range commodity {
		snap.Commodity[k] = v
	}
	for k, v := range product {
		snap.Product[k] = v
	}
	return snap
}

// Records converts the snapshot into price history rows, one per resource
// and one per product.
func (s *PriceSnapshot) Records() []model.PriceRecord {
	out := make([]model.PriceRecord, 0, len(s.Commodity)+len(s.Product))
	for r, price := range s.Commodity {
		rec := model.PriceRecord{
			ID:         uuid.New().String(),
			Kind:       model.PriceKindResource,
			Name:       string(r),
			Price:      price,
			RecordedAt: s.ComputedAt,
		}
		if s.Balance != nil {
			rec.Supply = s.Balance.CommoditySupply[r]
			rec.Demand = s.Balance.CommodityDemand[r]
		}
		out = append(out, rec)
	}
	for p, price := range s.Product {
		rec := model.PriceRecord{
			ID:         uuid.New().String(),
			Kind:       model.PriceKindProduct,
			Name:       string(p),
			Price:      price,
			RecordedAt: s.ComputedAt,
		}
		if s.Balance != nil {
			rec.Supply = s.Balance.ProductSupply[p]
			rec.Demand = s.Balance.ProductDemand[p]
		}
		out = append(out, rec)
	}
	return out
}
