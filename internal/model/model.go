// Package model defines the core domain types shared across the economic
// engine. All monetary values use shopspring/decimal; never float64 for money.
package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Resource is a raw commodity extracted by extraction units.
type Resource string

const (
	ResourceOil               Resource = "Oil"
	ResourceSteel             Resource = "Steel"
	ResourceRareEarth         Resource = "Rare Earth"
	ResourceCopper            Resource = "Copper"
	ResourceFertileLand       Resource = "Fertile Land"
	ResourceLumber            Resource = "Lumber"
	ResourceChemicalCompounds Resource = "Chemical Compounds"
)

// Product is a manufactured good produced by production units.
type Product string

const (
	ProductTechnology   Product = "Technology Products"
	ProductManufactured Product = "Manufactured Goods"
	ProductElectricity  Product = "Electricity"
	ProductFood         Product = "Food Products"
	ProductConstruction Product = "Construction Capacity"
	ProductPharma       Product = "Pharmaceutical Products"
	ProductDefense      Product = "Defense Equipment"
	ProductLogistics    Product = "Logistics Capacity"
)

// Sector is an industry category.
type Sector string

const (
	SectorTechnology         Sector = "Technology"
	SectorFinance            Sector = "Finance"
	SectorHealthcare         Sector = "Healthcare"
	SectorManufacturing      Sector = "Manufacturing"
	SectorEnergy             Sector = "Energy"
	SectorRetail             Sector = "Retail"
	SectorRealEstate         Sector = "Real Estate"
	SectorTransportation     Sector = "Transportation"
	SectorMedia              Sector = "Media"
	SectorTelecommunications Sector = "Telecommunications"
	SectorAgriculture        Sector = "Agriculture"
	SectorDefense            Sector = "Defense"
	SectorHospitality        Sector = "Hospitality"
	SectorConstruction       Sector = "Construction"
	SectorPharmaceuticals    Sector = "Pharmaceuticals"
	SectorMining             Sector = "Mining"
)

// Region is a US state code ("TX", "CA", ...).
type Region string

// UnitType is the operational role of an economic unit.
type UnitType string

const (
	UnitExtraction UnitType = "extraction"
	UnitProduction UnitType = "production"
	UnitRetail     UnitType = "retail"
	UnitService    UnitType = "service"
)

// UnitTypes lists every unit type in a stable order.
var UnitTypes = []UnitType{UnitRetail, UnitProduction, UnitService, UnitExtraction}

// ParseUnitType is lenient: unknown names report ok=false and callers
// treat the unit as inert.
func ParseUnitType(s string) (UnitType, bool) {
	switch UnitType(s) {
	case UnitExtraction, UnitProduction, UnitRetail, UnitService:
		return UnitType(s), true
	}
	return "", false
}

// UnitCounts holds the number of operating units of each type.
type UnitCounts struct {
	Retail     int64 `json:"retail" db:"retail"`
	Production int64 `json:"production" db:"production"`
	Service    int64 `json:"service" db:"service"`
	Extraction int64 `json:"extraction" db:"extraction"`
}

// Of returns the count for one unit type (0 for unknown types).
func (u UnitCounts) Of(t UnitType) int64 {
	switch t {
	case UnitRetail:
		return u.Retail
	case UnitProduction:
		return u.Production
	case UnitService:
		return u.Service
	case UnitExtraction:
		return u.Extraction
	}
	return 0
}

// Add returns the element-wise sum of two counts.
func (u UnitCounts) Add(o UnitCounts) UnitCounts {
	return UnitCounts{
		Retail:     u.Retail + o.Retail,
		Production: u.Production + o.Production,
		Service:    u.Service + o.Service,
		Extraction: u.Extraction + o.Extraction,
	}
}

// Total is the number of units of any type.
func (u UnitCounts) Total() int64 {
	return u.Retail + u.Production + u.Service + u.Extraction
}

// MarketEntry is a corporation's presence in one (region, sector).
type MarketEntry struct {
	CorporationID string     `json:"corporation_id" db:"corporation_id"`
	Region        Region     `json:"region" db:"region"`
	Sector        Sector     `json:"sector" db:"sector"`
	Units         UnitCounts `json:"units"`
}

// Corporation carries the corporation-level parameters the engine reads
// and the share price it writes back.
type Corporation struct {
	ID                        string          `json:"id" db:"id"`
	Name                      string          `json:"name" db:"name"`
	Cash                      decimal.Decimal `json:"cash" db:"cash"`
	Shares                    int64           `json:"shares" db:"shares"`
	CEOSalary96h              decimal.Decimal `json:"ceo_salary_96h" db:"ceo_salary_96h"`
	DividendPct               decimal.Decimal `json:"dividend_pct" db:"dividend_pct"`
	SharePrice                decimal.Decimal `json:"share_price" db:"share_price"`
	LastSpecialDividendAt     *time.Time      `json:"last_special_dividend_at,omitempty" db:"last_special_dividend_at"`
	LastSpecialDividendAmount decimal.Decimal `json:"last_special_dividend_amount" db:"last_special_dividend_amount"`
	UpdatedAt                 time.Time       `json:"updated_at" db:"updated_at"`
}

// ShareTransaction is one executed trade in a corporation's shares.
type ShareTransaction struct {
	ID            string          `json:"id" db:"id"`
	CorporationID string          `json:"corporation_id" db:"corporation_id"`
	Shares        int64           `json:"shares" db:"shares"`
	PricePerShare decimal.Decimal `json:"price_per_share" db:"price_per_share"`
	Timestamp     time.Time       `json:"timestamp" db:"timestamp"`
}

// PriceKind distinguishes resource and product rows in the price history.
type PriceKind string

const (
	PriceKindResource PriceKind = "resource"
	PriceKindProduct  PriceKind = "product"
)

// PriceRecord is one row of the append-only price time series.
type PriceRecord struct {
	ID         string          `json:"id" db:"id"`
	Kind       PriceKind       `json:"kind" db:"kind"`
	Name       string          `json:"name" db:"name"`
	Price      decimal.Decimal `json:"price" db:"price"`
	Supply     decimal.Decimal `json:"supply" db:"supply"`
	Demand     decimal.Decimal `json:"demand" db:"demand"`
	RecordedAt time.Time       `json:"recorded_at" db:"recorded_at"`
}
