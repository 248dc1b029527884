package catalog

import (
	"sort"

	"github.com/shopspring/decimal"

	"github.com/corpgame/econ-engine/internal/model"
)

// DefaultPool is the static raw-resource unit count per state.
func DefaultPool() map[model.Region]map[model.Resource]int64 {
	return map[model.Region]map[model.Resource]int64{
		"TX": {model.ResourceOil: 18_000, model.ResourceFertileLand: 9_000, model.ResourceChemicalCompounds: 6_000},
		"AK": {model.ResourceOil: 9_000, model.ResourceLumber: 6_000, model.ResourceCopper: 2_500},
		"ND": {model.ResourceOil: 7_500, model.ResourceFertileLand: 6_000},
		"OK": {model.ResourceOil: 5_500, model.ResourceFertileLand: 3_500},
		"CA": {model.ResourceFertileLand: 10_000, model.ResourceRareEarth: 2_000, model.ResourceLumber: 5_000},
		"IA": {model.ResourceFertileLand: 11_000},
		"NE": {model.ResourceFertileLand: 7_000},
		"AZ": {model.ResourceCopper: 14_000, model.ResourceRareEarth: 600},
		"UT": {model.ResourceCopper: 6_000, model.ResourceSteel: 3_000},
		"MN": {model.ResourceSteel: 16_000, model.ResourceLumber: 4_000},
		"MI": {model.ResourceSteel: 8_000, model.ResourceLumber: 5_000},
		"PA": {model.ResourceSteel: 6_000, model.ResourceChemicalCompounds: 5_000},
		"WY": {model.ResourceRareEarth: 2_400, model.ResourceOil: 4_000},
		"OR": {model.ResourceLumber: 12_000},
		"WA": {model.ResourceLumber: 11_000, model.ResourceFertileLand: 5_000},
		"LA": {model.ResourceChemicalCompounds: 9_000, model.ResourceOil: 6_000},
		"NJ": {model.ResourceChemicalCompounds: 4_000},
	}
}

// Regions returns every region in the pool, sorted.
func (c *Catalog) Regions() []model.Region {
	out := make([]model.Region, 0, len(c.Pool))
	for r := range c.Pool {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// RegionalPool returns the units of r available in region.
func (c *Catalog) RegionalPool(region model.Region, r model.Resource) int64 {
	return c.Pool[region][r]
}

// NationalTotal sums a resource's pool over every region.
func (c *Catalog) NationalTotal(r model.Resource) int64 {
	var total int64
	for _, pools := range c.Pool {
		total += pools[r]
	}
	return total
}

// RegionalEfficiency is a region's pool of r divided by the mean pool of
// the regions that hold any r. Regions without the resource, and
// resources no region holds, report zero.
func (c *Catalog) RegionalEfficiency(region model.Region, r model.Resource) decimal.Decimal {
	own := c.Pool[region][r]
	if own <= 0 {
		return decimal.Zero
	}
	var total, holders int64
	for _, pools := range c.Pool {
		if n := pools[r]; n > 0 {
			total += n
			holders++
		}
	}
	mean := decimal.NewFromInt(total).Div(decimal.NewFromInt(holders))
	return decimal.NewFromInt(own).Div(mean).Round(4)
}
