// Package catalog holds the sector, resource and product tables the engine
// prices against, and the regional resource pool.
//
// Sector behaviour is declarative: every special case (multi-resource
// production inputs, extra product inputs, service rate overrides, retail
// markup-on-cost) is a field of SectorProfile, read generically by the
// economics calculator. Unknown sectors resolve to the zero profile and are
// inert.
package catalog

import (
	"errors"
	"fmt"
	"sort"

	"github.com/shopspring/decimal"

	"github.com/corpgame/econ-engine/internal/model"
)

// ErrInvalidCatalog is returned by Validate.
var ErrInvalidCatalog = errors.New("catalog: invalid catalog")

// ResourceSpec prices one raw commodity.
type ResourceSpec struct {
	BasePrice         decimal.Decimal `json:"base_price" yaml:"base_price"`
	MinPrice          decimal.Decimal `json:"min_price" yaml:"min_price"`
	ReferencePoolSize int64           `json:"reference_pool_size" yaml:"reference_pool_size"`
}

// ProductSpec prices one manufactured good.
type ProductSpec struct {
	ReferenceValue decimal.Decimal `json:"reference_value" yaml:"reference_value"`
	MinPrice       decimal.Decimal `json:"min_price" yaml:"min_price"`
}

// ResourceInput is a resource consumed at a per-unit hourly rate.
type ResourceInput struct {
	Resource model.Resource  `json:"resource" yaml:"resource"`
	Rate     decimal.Decimal `json:"rate" yaml:"rate"`
}

// ProductInput is a product consumed at a per-unit hourly rate.
type ProductInput struct {
	Product model.Product   `json:"product" yaml:"product"`
	Rate    decimal.Decimal `json:"rate" yaml:"rate"`
}

// RevenueRule selects how retail revenue is derived.
type RevenueRule string

const (
	// RevenueMarket resells at market price × consumption rate.
	RevenueMarket RevenueRule = "market"
	// RevenueMarkupOnCost earns product cost × RevenueMultiplier.
	RevenueMarkupOnCost RevenueRule = "markup_on_cost"
)

// SectorProfile declares what a sector's units extract, consume and make.
type SectorProfile struct {
	Extractable      []model.Resource `json:"extractable,omitempty" yaml:"extractable,omitempty"`
	ProductionInputs []ResourceInput  `json:"production_inputs,omitempty" yaml:"production_inputs,omitempty"`
	Produces         model.Product    `json:"produces,omitempty" yaml:"produces,omitempty"`
	RetailDemands    []model.Product  `json:"retail_demands,omitempty" yaml:"retail_demands,omitempty"`
	ServiceDemands   []model.Product  `json:"service_demands,omitempty" yaml:"service_demands,omitempty"`

	// ExtraInputs are sector-specific product inputs added on top of the
	// declared demands, keyed by unit type.
	ExtraInputs map[model.UnitType][]ProductInput `json:"extra_inputs,omitempty" yaml:"extra_inputs,omitempty"`

	// ServiceRate replaces ServiceProductConsumption for declared service
	// demands other than electricity.
	ServiceRate *decimal.Decimal `json:"service_rate,omitempty" yaml:"service_rate,omitempty"`

	RetailRevenue     RevenueRule     `json:"retail_revenue,omitempty" yaml:"retail_revenue,omitempty"`
	RevenueMultiplier decimal.Decimal `json:"revenue_multiplier,omitempty" yaml:"revenue_multiplier,omitempty"`
}

// Catalog is immutable once built; share it by pointer.
type Catalog struct {
	Version   string                                    `json:"version" yaml:"version"`
	Resources map[model.Resource]ResourceSpec           `json:"resources" yaml:"resources"`
	Products  map[model.Product]ProductSpec             `json:"products" yaml:"products"`
	Sectors   map[model.Sector]SectorProfile            `json:"sectors" yaml:"sectors"`
	Pool      map[model.Region]map[model.Resource]int64 `json:"pool,omitempty" yaml:"pool,omitempty"`
}

// Profile returns the sector's profile, or the inert zero profile.
func (c *Catalog) Profile(s model.Sector) SectorProfile {
	return c.Sectors[s]
}

// ResourceDemandOf returns the primary production input of a sector.
func (c *Catalog) ResourceDemandOf(s model.Sector) (model.Resource, bool) {
	in := c.Sectors[s].ProductionInputs
	if len(in) == 0 {
		return "", false
	}
	return in[0].Resource, true
}

// ProductionInputsOf returns every resource a production unit consumes.
func (c *Catalog) ProductionInputsOf(s model.Sector) []ResourceInput {
	return c.Sectors[s].ProductionInputs
}

// ExtractableOf returns the resources a sector can extract, in order.
func (c *Catalog) ExtractableOf(s model.Sector) []model.Resource {
	return c.Sectors[s].Extractable
}

// CanExtract reports whether extraction units are meaningful in s.
func (c *Catalog) CanExtract(s model.Sector) bool {
	return len(c.Sectors[s].Extractable) > 0
}

// ProducedProductOf returns the product a sector manufactures.
func (c *Catalog) ProducedProductOf(s model.Sector) (model.Product, bool) {
	p := c.Sectors[s].Produces
	return p, p != ""
}

// ProductDemandsOf returns the declared products a unit type consumes.
// Production and extraction demands come from the extra-input table;
// retail and service from the declared demand lists.
func (c *Catalog) ProductDemandsOf(s model.Sector, t model.UnitType) []model.Product {
	prof := c.Sectors[s]
	switch t {
	case model.UnitRetail:
		return prof.RetailDemands
	case model.UnitService:
		return prof.ServiceDemands
	case model.UnitProduction, model.UnitExtraction:
		var out []model.Product
		for _, in := range prof.ExtraInputs[t] {
			out = append(out, in.Product)
		}
		return out
	}
	return nil
}

// ExtraInputsOf returns the sector-specific product inputs of a unit type.
func (c *Catalog) ExtraInputsOf(s model.Sector, t model.UnitType) []ProductInput {
	return c.Sectors[s].ExtraInputs[t]
}

// ServiceRateFor is the hourly rate at which a service unit in s consumes p.
func (c *Catalog) ServiceRateFor(s model.Sector, p model.Product) decimal.Decimal {
	if p == model.ProductElectricity {
		return ServiceElectricityConsumption
	}
	if r := c.Sectors[s].ServiceRate; r != nil {
		return *r
	}
	return ServiceProductConsumption
}

// ServiceInputsOf returns every product a service unit in s consumes: the
// declared demands at their service rate, then the sector's extra inputs.
func (c *Catalog) ServiceInputsOf(s model.Sector) []ProductInput {
	prof := c.Sectors[s]
	extras := prof.ExtraInputs[model.UnitService]
	out := make([]ProductInput, 0, len(prof.ServiceDemands)+len(extras))
	for _, p := range prof.ServiceDemands {
		out = append(out, ProductInput{Product: p, Rate: c.ServiceRateFor(s, p)})
	}
	return append(out, extras...)
}

// SectorList returns all sectors sorted by name.
func (c *Catalog) SectorList() []model.Sector {
	out := make([]model.Sector, 0, len(c.Sectors))
	for s := range c.Sectors {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// ResourceList returns all resources sorted by name.
func (c *Catalog) ResourceList() []model.Resource {
	out := make([]model.Resource, 0, len(c.Resources))
	for r := range c.Resources {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// ProductList returns all products sorted by name.
func (c *Catalog) ProductList() []model.Product {
	out := make([]model.Product, 0, len(c.Products))
	for p := range c.Products {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Validate checks prices are sane and every sector references known
// resources and products.
func (c *Catalog) Validate() error {
	if c.Version == "" {
		return fmt.Errorf("%w: empty version", ErrInvalidCatalog)
	}
	for r, spec := range c.Resources {
		if !spec.BasePrice.IsPositive() || spec.MinPrice.IsNegative() {
			return fmt.Errorf("%w: resource %q has non-positive base or negative min price", ErrInvalidCatalog, r)
		}
		if spec.ReferencePoolSize < 0 {
			return fmt.Errorf("%w: resource %q has negative reference pool", ErrInvalidCatalog, r)
		}
	}
	for p, spec := range c.Products {
		if !spec.ReferenceValue.IsPositive() || spec.MinPrice.IsNegative() {
			return fmt.Errorf("%w: product %q has non-positive reference or negative min price", ErrInvalidCatalog, p)
		}
	}
	for s, prof := range c.Sectors {
		for _, r := range prof.Extractable {
			if _, ok := c.Resources[r]; !ok {
				return fmt.Errorf("%w: sector %q extracts unknown resource %q", ErrInvalidCatalog, s, r)
			}
		}
		for _, in := range prof.ProductionInputs {
			if _, ok := c.Resources[in.Resource]; !ok {
				return fmt.Errorf("%w: sector %q consumes unknown resource %q", ErrInvalidCatalog, s, in.Resource)
			}
			if in.Rate.IsNegative() {
				return fmt.Errorf("%w: sector %q has negative rate for %q", ErrInvalidCatalog, s, in.Resource)
			}
		}
		products := append(append([]model.Product{}, prof.RetailDemands...), prof.ServiceDemands...)
		if prof.Produces != "" {
			products = append(products, prof.Produces)
		}
		for _, ins := range prof.ExtraInputs {
			for _, in := range ins {
				if in.Rate.IsNegative() {
					return fmt.Errorf("%w: sector %q has negative rate for %q", ErrInvalidCatalog, s, in.Product)
				}
				products = append(products, in.Product)
			}
		}
		for _, p := range products {
			if _, ok := c.Products[p]; !ok {
				return fmt.Errorf("%w: sector %q references unknown product %q", ErrInvalidCatalog, s, p)
			}
		}
		switch prof.RetailRevenue {
		case "", RevenueMarket:
		case RevenueMarkupOnCost:
			if !prof.RevenueMultiplier.IsPositive() {
				return fmt.Errorf("%w: sector %q needs a positive revenue multiplier", ErrInvalidCatalog, s)
			}
		default:
			return fmt.Errorf("%w: sector %q has unknown revenue rule %q", ErrInvalidCatalog, s, prof.RetailRevenue)
		}
	}
	for region, pools := range c.Pool {
		for r, n := range pools {
			if n < 0 {
				return fmt.Errorf("%w: region %q has negative pool for %q", ErrInvalidCatalog, region, r)
			}
		}
	}
	return nil
}
