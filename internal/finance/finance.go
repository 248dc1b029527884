// Package finance rolls a corporation's unit holdings up into hourly and
// period cash flow and a period income statement.
package finance

import (
	"sort"

	"github.com/shopspring/decimal"

	"github.com/corpgame/econ-engine/internal/catalog"
	"github.com/corpgame/econ-engine/internal/econ"
	"github.com/corpgame/econ-engine/internal/model"
)

var periodHours = decimal.NewFromInt(catalog.DisplayPeriodHours)

// EconomicsFunc returns per-unit economics for a unit type in a sector,
// priced against a single snapshot for the whole roll-up.
type EconomicsFunc func(t model.UnitType, s model.Sector) econ.Result

// Params are the corporation-level inputs of the income statement.
type Params struct {
	CEOSalary96h decimal.Decimal
	DividendPct  decimal.Decimal
	Shares       int64
}

// ParamsOf reads statement parameters off a corporation record.
func ParamsOf(c *model.Corporation) *Params {
	return &Params{
		CEOSalary96h: c.CEOSalary96h,
		DividendPct:  c.DividendPct,
		Shares:       c.Shares,
	}
}

// IncomeStatement covers one display period.
type IncomeStatement struct {
	GrossProfit96h      decimal.Decimal `json:"gross_profit_96h"`
	CEOSalary96h        decimal.Decimal `json:"ceo_salary_96h"`
	OperatingIncome96h  decimal.Decimal `json:"operating_income_96h"`
	DividendPayout96h   decimal.Decimal `json:"dividend_payout_96h"`
	NetIncome96h        decimal.Decimal `json:"net_income_96h"`
	DividendPerShare96h decimal.Decimal `json:"dividend_per_share_96h"`
}

// SectorLine is one sector's contribution to a corporation's cash flow.
type SectorLine struct {
	Sector        model.Sector     `json:"sector"`
	Units         model.UnitCounts `json:"units"`
	HourlyRevenue decimal.Decimal  `json:"hourly_revenue"`
	HourlyCost    decimal.Decimal  `json:"hourly_cost"`
	HourlyProfit  decimal.Decimal  `json:"hourly_profit"`
}

// Finances is a corporation's cash flow for one pricing cycle.
type Finances struct {
	CorporationID string           `json:"corporation_id"`
	Units         model.UnitCounts `json:"units"`

	HourlyRevenue decimal.Decimal `json:"hourly_revenue"`
	HourlyCost    decimal.Decimal `json:"hourly_cost"`
	HourlyProfit  decimal.Decimal `json:"hourly_profit"`

	Revenue96h decimal.Decimal `json:"revenue_96h"`
	Cost96h    decimal.Decimal `json:"cost_96h"`
	Profit96h  decimal.Decimal `json:"profit_96h"`

	Sectors []SectorLine `json:"sectors"`

	// Statement is nil unless Params were supplied.
	Statement *IncomeStatement `json:"income_statement,omitempty"`
}

// Calculate sums per-unit economics over every held unit. Each unit type
// present in an entry is evaluated once and scaled by its count.
func Calculate(corporationID string, entries []model.MarketEntry, economics EconomicsFunc, params *Params) Finances {
	f := Finances{
		CorporationID: corporationID,
		HourlyRevenue: decimal.Zero,
		HourlyCost:    decimal.Zero,
	}
	lines := make(map[model.Sector]*SectorLine)

	for _, e := range entries {
		line, ok := lines[e.Sector]
		if !ok {
			line = &SectorLine{Sector: e.Sector, HourlyRevenue: decimal.Zero, HourlyCost: decimal.Zero}
			lines[e.Sector] = line
		}
		line.Units = line.Units.Add(e.Units)
		f.Units = f.Units.Add(e.Units)

		for _, t := range model.UnitTypes {
			n := e.Units.Of(t)
			if n <= 0 {
				continue
			}
			r := economics(t, e.Sector)
			count := decimal.NewFromInt(n)
			line.HourlyRevenue = line.HourlyRevenue.Add(r.HourlyRevenue.Mul(count))
			line.HourlyCost = line.HourlyCost.Add(r.HourlyCost.Mul(count))
		}
	}

	for _, line := range lines {
		line.HourlyProfit = line.HourlyRevenue.Sub(line.HourlyCost)
		f.HourlyRevenue = f.HourlyRevenue.Add(line.HourlyRevenue)
		f.HourlyCost = f.HourlyCost.Add(line.HourlyCost)
		f.Sectors = append(f.Sectors, *line)
	}
	sort.Slice(f.Sectors, func(i, j int) bool { return f.Sectors[i].Sector < f.Sectors[j].Sector })

	f.HourlyProfit = f.HourlyRevenue.Sub(f.HourlyCost)
	f.Revenue96h = f.HourlyRevenue.Mul(periodHours)
	f.Cost96h = f.HourlyCost.Mul(periodHours)
	f.Profit96h = f.HourlyProfit.Mul(periodHours)

	if params != nil {
		st := Statement(f.HourlyProfit, *params)
		f.Statement = &st
	}
	return f
}

// Statement derives the period income statement from hourly profit.
// Dividends are only paid out of positive operating income.
func Statement(hourlyProfit decimal.Decimal, p Params) IncomeStatement {
	st := IncomeStatement{
		GrossProfit96h:      hourlyProfit.Mul(periodHours),
		CEOSalary96h:        p.CEOSalary96h,
		DividendPayout96h:   decimal.Zero,
		DividendPerShare96h: decimal.Zero,
	}
	st.OperatingIncome96h = st.GrossProfit96h.Sub(p.CEOSalary96h)
	if st.OperatingIncome96h.IsPositive() {
		st.DividendPayout96h = st.OperatingIncome96h.Mul(p.DividendPct).Div(decimal.NewFromInt(100))
	}
	st.NetIncome96h = st.OperatingIncome96h.Sub(st.DividendPayout96h)
	if p.Shares > 0 && st.DividendPayout96h.IsPositive() {
		st.DividendPerShare96h = st.DividendPayout96h.Div(decimal.NewFromInt(p.Shares))
	}
	return st
}
