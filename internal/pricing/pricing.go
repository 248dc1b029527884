// Package pricing implements the scarcity pricing function.
//
// A price is base × scarcity, rounded to cents and floored at the item's
// minimum price. Scarcity is demand over supply, with supply floored at
// Epsilon so an empty market never divides by zero, and a neutral 1.0 when
// nothing is supplied or demanded. Scarcity has no upper bound.
//
// Two named paths share the floor/round step: LivePrice for live supply and
// demand, StaticCommodityPrice for the legacy fixed-pool fallback. Callers
// choose one explicitly.
package pricing

import (
	"github.com/shopspring/decimal"

	"github.com/corpgame/econ-engine/internal/catalog"
	"github.com/corpgame/econ-engine/internal/model"
)

var (
	// Epsilon is the smallest supply used as a divisor.
	Epsilon = decimal.NewFromFloat(0.01)

	// DivisionPrecision bounds the scale of scarcity ratios.
	DivisionPrecision int32 = 16
)

// Scarcity returns demand / max(supply, Epsilon), or 1 when both are zero.
func Scarcity(supply, demand decimal.Decimal) decimal.Decimal {
	if supply.IsZero() && demand.IsZero() {
		return decimal.NewFromInt(1)
	}
	divisor := supply
	if divisor.LessThan(Epsilon) {
		divisor = Epsilon
	}
	return demand.DivRound(divisor, DivisionPrecision)
}

// LivePrice prices an item from live supply and demand.
func LivePrice(base, min, supply, demand decimal.Decimal) decimal.Decimal {
	return finalize(base, min, Scarcity(supply, demand))
}

// StaticCommodityPrice prices a resource from the fixed national pool
// instead of live unit counts: scarcity = referencePoolSize / pool.
func StaticCommodityPrice(spec catalog.ResourceSpec, nationalPool int64) decimal.Decimal {
	ref := decimal.NewFromInt(spec.ReferencePoolSize)
	pool := decimal.NewFromInt(nationalPool)
	return finalize(spec.BasePrice, spec.MinPrice, Scarcity(pool, ref))
}

func finalize(base, min, scarcity decimal.Decimal) decimal.Decimal {
	raw := model.RoundCents(base.Mul(scarcity))
	return model.Floor(raw, min)
}
