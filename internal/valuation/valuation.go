// Package valuation turns a corporation's balance sheet, earnings and
// recent trades into a share price.
package valuation

import (
	"math"
	"math/rand/v2"
	"sort"
	"time"

	"github.com/shopspring/decimal"
	"gonum.org/v1/gonum/stat"

	"github.com/corpgame/econ-engine/internal/finance"
	"github.com/corpgame/econ-engine/internal/model"
)

// Valuation constants.
var (
	BasisCostPerUnit = decimal.NewFromInt(10_000)
	DiscountRate     = decimal.NewFromFloat(0.20)
	HoursPerYear     = decimal.NewFromInt(8760)
	PriceEarnings    = decimal.NewFromInt(15)
	MinSharePrice    = decimal.NewFromFloat(0.01)

	WeightBookValue = decimal.NewFromFloat(0.40)
	WeightEarnings  = decimal.NewFromFloat(0.35)
	WeightCash      = decimal.NewFromFloat(0.05)

	// Blend of the fundamental and the trade signal when trades exist.
	WeightFundamentalWithTrades = decimal.NewFromFloat(0.80)
	WeightTrades                = decimal.NewFromFloat(0.20)
)

const (
	// TradeLookback bounds the trades that feed the trade-weighted price.
	TradeLookback = 168 * time.Hour
	// RecencyDecay is the weight multiplier per step back in trade order.
	RecencyDecay = 0.9
	// DefaultVariation is the half-width of the hourly random multiplier.
	DefaultVariation = 0.05
)

// UnitAssetValue capitalizes one unit: basis cost plus annualized profit
// over the discount rate, with losses contributing nothing.
func UnitAssetValue(hourlyProfit decimal.Decimal) decimal.Decimal {
	npv := hourlyProfit.Mul(HoursPerYear).Div(DiscountRate)
	return BasisCostPerUnit.Add(model.NonNegative(npv))
}

// AssetValue sums UnitAssetValue over every held unit.
func AssetValue(entries []model.MarketEntry, economics finance.EconomicsFunc) decimal.Decimal {
	total := decimal.Zero
	for _, e := range entries {
		for _, t := range model.UnitTypes {
			n := e.Units.Of(t)
			if n <= 0 {
				continue
			}
			per := UnitAssetValue(economics(t, e.Sector).HourlyProfit)
			total = total.Add(per.Mul(decimal.NewFromInt(n)))
		}
	}
	return total
}

// BalanceSheet has no liabilities; equity equals total assets.
type BalanceSheet struct {
	Cash              decimal.Decimal `json:"cash"`
	AssetValue        decimal.Decimal `json:"asset_value"`
	TotalAssets       decimal.Decimal `json:"total_assets"`
	Liabilities       decimal.Decimal `json:"liabilities"`
	Equity            decimal.Decimal `json:"equity"`
	BookValuePerShare decimal.Decimal `json:"book_value_per_share"`
}

// NewBalanceSheet builds a balance sheet. Zero or negative shares give a
// zero book value per share.
func NewBalanceSheet(cash, assetValue decimal.Decimal, shares int64) BalanceSheet {
	total := cash.Add(assetValue)
	return BalanceSheet{
		Cash:              cash,
		AssetValue:        assetValue,
		TotalAssets:       total,
		Liabilities:       decimal.Zero,
		Equity:            total,
		BookValuePerShare: perShare(total, shares),
	}
}

func perShare(v decimal.Decimal, shares int64) decimal.Decimal {
	if shares <= 0 {
		return decimal.Zero
	}
	return v.Div(decimal.NewFromInt(shares))
}

// TradeWeightedPrice averages trades from the lookback window before now,
// newest first, weighting trade i by RecencyDecay^i × sqrt(shares). It
// reports false when there is no usable trade.
func TradeWeightedPrice(trades []model.ShareTransaction, now time.Time) (decimal.Decimal, bool) {
	cutoff := now.Add(-TradeLookback)
	recent := make([]model.ShareTransaction, 0, len(trades))
	for _, tx := range trades {
		if tx.Shares > 0 && !tx.Timestamp.Before(cutoff) && !tx.Timestamp.After(now) {
			recent = append(recent, tx)
		}
	}
	if len(recent) == 0 {
		return decimal.Zero, false
	}
	sort.SliceStable(recent, func(i, j int) bool { return recent[i].Timestamp.After(recent[j].Timestamp) })

	prices := make([]float64, len(recent))
	weights := make([]float64, len(recent))
	for i, tx := range recent {
		prices[i] = tx.PricePerShare.InexactFloat64()
		weights[i] = math.Pow(RecencyDecay, float64(i)) * math.Sqrt(float64(tx.Shares))
	}
	return decimal.NewFromFloat(stat.Mean(prices, weights)), true
}

// Inputs are everything Value needs for one corporation.
type Inputs struct {
	CorporationID string
	Cash          decimal.Decimal
	Shares        int64
	AssetValue    decimal.Decimal
	// HourlyProfit is the corporation-wide figure from the finance roll-up.
	HourlyProfit decimal.Decimal
	Trades       []model.ShareTransaction
	Now          time.Time
}

// Valuation is the outcome of one share price computation.
type Valuation struct {
	CorporationID string       `json:"corporation_id"`
	Balance       BalanceSheet `json:"balance_sheet"`

	AnnualProfit     decimal.Decimal `json:"annual_profit"`
	EarningsPerShare decimal.Decimal `json:"earnings_per_share"`
	EarningsValue    decimal.Decimal `json:"earnings_value"`
	CashPerShare     decimal.Decimal `json:"cash_per_share"`

	TradeWeightedPrice decimal.Decimal `json:"trade_weighted_price"`
	HasTradeSignal     bool            `json:"has_trade_signal"`

	Fundamental     decimal.Decimal `json:"fundamental"`
	CalculatedPrice decimal.Decimal `json:"calculated_price"`
	Varied          bool            `json:"varied,omitempty"`
	ComputedAt      time.Time       `json:"computed_at"`
}

// Value computes the deterministic share price.
func Value(in Inputs) Valuation {
	v := Valuation{
		CorporationID: in.CorporationID,
		Balance:       NewBalanceSheet(in.Cash, in.AssetValue, in.Shares),
		AnnualProfit:  in.HourlyProfit.Mul(HoursPerYear),
		CashPerShare:  perShare(in.Cash, in.Shares),
		ComputedAt:    in.Now,
	}
	v.EarningsPerShare = perShare(v.AnnualProfit, in.Shares)
	v.EarningsValue = model.NonNegative(v.EarningsPerShare).Mul(PriceEarnings)

	v.Fundamental = v.Balance.BookValuePerShare.Mul(WeightBookValue).
		Add(v.EarningsValue.Mul(WeightEarnings)).
		Add(v.CashPerShare.Mul(WeightCash))

	price := v.Fundamental
	if twp, ok := TradeWeightedPrice(in.Trades, in.Now); ok {
		v.TradeWeightedPrice = twp
		v.HasTradeSignal = true
		price = v.Fundamental.Mul(WeightFundamentalWithTrades).Add(twp.Mul(WeightTrades))
	}
	v.CalculatedPrice = finalize(price)
	return v
}

// ApplyVariation scales price by a uniform multiplier in
// [1-variation, 1+variation], then floors and rounds again.
func ApplyVariation(price decimal.Decimal, rng *rand.Rand, variation float64) decimal.Decimal {
	mult := 1 - variation + rng.Float64()*2*variation
	return finalize(price.Mul(decimal.NewFromFloat(mult)))
}

func finalize(price decimal.Decimal) decimal.Decimal {
	return model.RoundCents(model.Floor(price, MinSharePrice))
}
