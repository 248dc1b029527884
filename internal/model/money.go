package model

import "github.com/shopspring/decimal"

// CurrencyScale is the number of decimal places money is rounded to.
const CurrencyScale int32 = 2

// RoundCents rounds to currency precision (half away from zero).
func RoundCents(v decimal.Decimal) decimal.Decimal {
	return v.Round(CurrencyScale)
}

// Floor returns max(v, min).
func Floor(v, min decimal.Decimal) decimal.Decimal {
	if v.LessThan(min) {
		return min
	}
	return v
}

// NonNegative returns max(v, 0).
func NonNegative(v decimal.Decimal) decimal.Decimal {
	return Floor(v, decimal.Zero)
}
