// Package econ computes the hourly economics of one operating unit of a
// given type in a given sector, against a price snapshot.
package econ

import (
	"github.com/shopspring/decimal"

	"github.com/corpgame/econ-engine/internal/catalog"
	"github.com/corpgame/econ-engine/internal/market"
	"github.com/corpgame/econ-engine/internal/model"
)

// ResourceFlow is an hourly quantity of a resource.
type ResourceFlow struct {
	Resource model.Resource  `json:"resource"`
	Quantity decimal.Decimal `json:"quantity"`
}

// ProductFlow is an hourly quantity of a product.
type ProductFlow struct {
	Product  model.Product   `json:"product"`
	Quantity decimal.Decimal `json:"quantity"`
}

// Output is what a unit puts on the market each hour. Exactly one of
// Resource and Product is set when Quantity is non-zero.
type Output struct {
	Resource model.Resource  `json:"resource,omitempty"`
	Product  model.Product   `json:"product,omitempty"`
	Quantity decimal.Decimal `json:"quantity"`
}

// Result is the per-unit hourly economics of one (unit type, sector).
type Result struct {
	UnitType model.UnitType `json:"unit_type"`
	Sector   model.Sector   `json:"sector"`

	HourlyRevenue decimal.Decimal `json:"hourly_revenue"`
	HourlyCost    decimal.Decimal `json:"hourly_cost"`
	HourlyProfit  decimal.Decimal `json:"hourly_profit"`

	LaborCost    decimal.Decimal `json:"labor_cost"`
	ResourceCost decimal.Decimal `json:"resource_cost"`
	ProductCost  decimal.Decimal `json:"product_cost"`

	ResourcesConsumed []ResourceFlow `json:"resources_consumed,omitempty"`
	ProductsConsumed  []ProductFlow  `json:"products_consumed,omitempty"`
	Produced          Output         `json:"produced"`

	// Disabled is set when the sector declares nothing for a retail or
	// service unit to sell. Such results carry the loss sentinel.
	Disabled bool `json:"disabled,omitempty"`
}

func zeroResult(t model.UnitType, s model.Sector) Result {
	return Result{
		UnitType:      t,
		Sector:        s,
		HourlyRevenue: decimal.Zero,
		HourlyCost:    decimal.Zero,
		HourlyProfit:  decimal.Zero,
		LaborCost:     decimal.Zero,
		ResourceCost:  decimal.Zero,
		ProductCost:   decimal.Zero,
		Produced:      Output{Quantity: decimal.Zero},
	}
}

func disabledResult(t model.UnitType, s model.Sector) Result {
	r := zeroResult(t, s)
	r.Disabled = true
	r.HourlyCost = catalog.DisabledUnitCost
	r.HourlyProfit = catalog.DisabledUnitCost.Neg()
	return r
}

// Calculator evaluates unit economics against one catalog. It holds no
// mutable state and is safe for concurrent use.
type Calculator struct {
	cat *catalog.Catalog
}

// NewCalculator returns a calculator bound to cat.
func NewCalculator(cat *catalog.Catalog) *Calculator {
	return &Calculator{cat: cat}
}

// Catalog returns the catalog the calculator reads.
func (c *Calculator) Catalog() *catalog.Catalog { return c.cat }

// Compute returns the hourly economics of one unit. Unknown sectors and
// unit types yield zero economics.
func (c *Calculator) Compute(t model.UnitType, s model.Sector, snap *market.PriceSnapshot) Result {
	prof, ok := c.cat.Sectors[s]
	if !ok {
		return zeroResult(t, s)
	}

	var r Result
	switch t {
	case model.UnitExtraction:
		r = c.extraction(s, prof, snap)
	case model.UnitProduction:
		r = c.production(s, prof, snap)
	case model.UnitRetail:
		r = c.retail(s, prof, snap)
	case model.UnitService:
		r = c.service(s, prof, snap)
	default:
		return zeroResult(t, s)
	}
	if !r.Disabled {
		r.HourlyCost = r.LaborCost.Add(r.ResourceCost).Add(r.ProductCost)
		r.HourlyProfit = r.HourlyRevenue.Sub(r.HourlyCost)
	}
	return r
}

func (c *Calculator) extraction(s model.Sector, prof catalog.SectorProfile, snap *market.PriceSnapshot) Result {
	r := zeroResult(model.UnitExtraction, s)
	if len(prof.Extractable) == 0 {
		return r
	}
	res := prof.Extractable[0]
	r.HourlyRevenue = catalog.ExtractionOutputRate.Mul(snap.CommodityPrice(res))
	r.Produced = Output{Resource: res, Quantity: catalog.ExtractionOutputRate}
	r.LaborCost = catalog.LaborExtraction

	r.consumeProduct(model.ProductElectricity, catalog.ExtractionElectricityConsumption, snap)
	for _, in := range prof.ExtraInputs[model.UnitExtraction] {
		r.consumeProduct(in.Product, in.Rate, snap)
	}
	return r
}

func (c *Calculator) production(s model.Sector, prof catalog.SectorProfile, snap *market.PriceSnapshot) Result {
	r := zeroResult(model.UnitProduction, s)
	r.LaborCost = catalog.LaborProduction

	for _, in := range prof.ProductionInputs {
		cost := in.Rate.Mul(snap.CommodityPrice(in.Resource))
		r.ResourceCost = r.ResourceCost.Add(cost)
		r.ResourcesConsumed = append(r.ResourcesConsumed, ResourceFlow{Resource: in.Resource, Quantity: in.Rate})
	}

	if prof.Produces != "" {
		r.HourlyRevenue = catalog.ProductionOutputRate.Mul(snap.ProductPrice(prof.Produces))
		r.Produced = Output{Product: prof.Produces, Quantity: catalog.ProductionOutputRate}
	} else {
		r.HourlyRevenue = catalog.ProductionBaseRevenue
	}

	r.consumeProduct(model.ProductElectricity, catalog.ProductionElectricityConsumption, snap)
	for _, in := range prof.ExtraInputs[model.UnitProduction] {
		r.consumeProduct(in.Product, in.Rate, snap)
	}
	return r
}

func (c *Calculator) retail(s model.Sector, prof catalog.SectorProfile, snap *market.PriceSnapshot) Result {
	if len(prof.RetailDemands) == 0 {
		return disabledResult(model.UnitRetail, s)
	}
	inputs := make([]catalog.ProductInput, 0, len(prof.RetailDemands))
	for _, p := range prof.RetailDemands {
		inputs = append(inputs, catalog.ProductInput{Product: p, Rate: catalog.RetailProductConsumption})
	}

	r := zeroResult(model.UnitRetail, s)
	r.LaborCost = catalog.LaborRetail
	atMarket := r.resell(inputs, snap)
	if prof.RetailRevenue == catalog.RevenueMarkupOnCost {
		r.HourlyRevenue = r.ProductCost.Mul(prof.RevenueMultiplier)
	} else {
		r.HourlyRevenue = atMarket
	}
	r.applyMarginFloor()
	return r
}

func (c *Calculator) service(s model.Sector, prof catalog.SectorProfile, snap *market.PriceSnapshot) Result {
	inputs := c.cat.ServiceInputsOf(s)
	if len(inputs) == 0 {
		return disabledResult(model.UnitService, s)
	}

	r := zeroResult(model.UnitService, s)
	r.LaborCost = catalog.LaborService
	r.HourlyRevenue = r.resell(inputs, snap)
	r.applyMarginFloor()
	return r
}

// resell books the wholesale cost of each input and returns the market
// value of the same quantities.
func (r *Result) resell(inputs []catalog.ProductInput, snap *market.PriceSnapshot) decimal.Decimal {
	revenue := decimal.Zero
	for _, in := range inputs {
		value := snap.ProductPrice(in.Product).Mul(in.Rate)
		r.ProductCost = r.ProductCost.Add(value.Mul(catalog.WholesaleDiscount))
		r.ProductsConsumed = append(r.ProductsConsumed, ProductFlow{Product: in.Product, Quantity: in.Rate})
		revenue = revenue.Add(value)
	}
	return revenue
}

func (r *Result) consumeProduct(p model.Product, rate decimal.Decimal, snap *market.PriceSnapshot) {
	r.ProductCost = r.ProductCost.Add(rate.Mul(snap.ProductPrice(p)))
	r.ProductsConsumed = append(r.ProductsConsumed, ProductFlow{Product: p, Quantity: rate})
}

// applyMarginFloor raises revenue to at least cost × (1 + minimum margin).
func (r *Result) applyMarginFloor() {
	cost := r.LaborCost.Add(r.ResourceCost).Add(r.ProductCost)
	floor := cost.Mul(decimal.NewFromInt(1).Add(catalog.MinGrossMarginPct))
	if r.HourlyRevenue.LessThan(floor) {
		r.HourlyRevenue = floor
	}
}
