// Package market aggregates national supply and demand from unit holdings
// and turns it into an immutable price snapshot.
package market

import (
	"github.com/shopspring/decimal"

	"github.com/corpgame/econ-engine/internal/catalog"
	"github.com/corpgame/econ-engine/internal/model"
)

// Balance is national supply and demand per resource and product, in
// units per hour. Every catalog item is present, zero when idle.
type Balance struct {
	CommoditySupply map[model.Resource]decimal.Decimal `json:"commodity_supply"`
	CommodityDemand map[model.Resource]decimal.Decimal `json:"commodity_demand"`
	ProductSupply   map[model.Product]decimal.Decimal  `json:"product_supply"`
	ProductDemand   map[model.Product]decimal.Decimal  `json:"product_demand"`
}

func newBalance(cat *catalog.Catalog) *Balance {
	b := &Balance{
		CommoditySupply: make(map[model.Resource]decimal.Decimal, len(cat.Resources)),
		CommodityDemand: make(map[model.Resource]decimal.Decimal, len(cat.Resources)),
		ProductSupply:   make(map[model.Product]decimal.Decimal, len(cat.Products)),
		ProductDemand:   make(map[model.Product]decimal.Decimal, len(cat.Products)),
	}
	for r := range cat.Resources {
		b.CommoditySupply[r] = decimal.Zero
		b.CommodityDemand[r] = decimal.Zero
	}
	for p := range cat.Products {
		b.ProductSupply[p] = decimal.Zero
		b.ProductDemand[p] = decimal.Zero
	}
	return b
}

// Aggregate sums supply and demand over the nationwide unit totals per
// sector. Every product a unit is charged for in its economics is counted
// as demand here. Sectors and names missing from the catalog are ignored.
func Aggregate(cat *catalog.Catalog, totals map[model.Sector]model.UnitCounts) *Balance {
	b := newBalance(cat)

	for sector, units := range totals {
		prof, ok := cat.Sectors[sector]
		if !ok {
			continue
		}
		extraction := decimal.NewFromInt(units.Extraction)
		production := decimal.NewFromInt(units.Production)
		retail := decimal.NewFromInt(units.Retail)
		service := decimal.NewFromInt(units.Service)

		for _, r := range prof.Extractable {
			b.addCommoditySupply(r, extraction.Mul(catalog.ExtractionOutputRate))
		}
		for _, in := range prof.ProductionInputs {
			b.addCommodityDemand(in.Resource, production.Mul(in.Rate))
		}
		if prof.Produces != "" {
			b.addProductSupply(prof.Produces, production.Mul(catalog.ProductionOutputRate))
		}

		for _, in := range prof.ExtraInputs[model.UnitProduction] {
			b.addProductDemand(in.Product, production.Mul(in.Rate))
		}
		for _, p := range prof.RetailDemands {
			b.addProductDemand(p, retail.Mul(catalog.RetailProductConsumption))
		}
		for _, in := range cat.ServiceInputsOf(sector) {
			b.addProductDemand(in.Product, service.Mul(in.Rate))
		}

		draw := production.Mul(catalog.ProductionElectricityConsumption)
		if len(prof.Extractable) > 0 {
			draw = draw.Add(extraction.Mul(catalog.ExtractionElectricityConsumption))
			for _, in := range prof.ExtraInputs[model.UnitExtraction] {
				b.addProductDemand(in.Product, extraction.Mul(in.Rate))
			}
		}
		b.addProductDemand(model.ProductElectricity, draw)
	}
	return b
}

func (b *Balance) addCommoditySupply(r model.Resource, v decimal.Decimal) {
	if cur, ok := b.CommoditySupply[r]; ok {
		b.CommoditySupply[r] = cur.Add(v)
	}
}

func (b *Balance) addCommodityDemand(r model.Resource, v decimal.Decimal) {
	if cur, ok := b.CommodityDemand[r]; ok {
		b.CommodityDemand[r] = cur.Add(v)
	}
}

func (b *Balance) addProductSupply(p model.Product, v decimal.Decimal) {
	if cur, ok := b.ProductSupply[p]; ok {
		b.ProductSupply[p] = cur.Add(v)
	}
}

func (b *Balance) addProductDemand(p model.Product, v decimal.Decimal) {
	if cur, ok := b.ProductDemand[p]; ok {
		b.ProductDemand[p] = cur.Add(v)
	}
}
