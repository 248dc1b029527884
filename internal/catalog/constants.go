package catalog

import "github.com/shopspring/decimal"

// Engine-wide rates. Quantities are per unit per hour.
var (
	ExtractionOutputRate          = decimal.NewFromInt(2)
	ProductionResourceConsumption = decimal.NewFromFloat(0.5)
	ProductionOutputRate          = decimal.NewFromInt(1)
	RetailProductConsumption      = decimal.NewFromInt(2)
	ServiceProductConsumption     = decimal.NewFromFloat(0.5)
	ServiceElectricityConsumption = decimal.NewFromFloat(0.2)

	// Flat electricity draw of every production unit and of every
	// extraction unit in a sector that can extract.
	ProductionElectricityConsumption = decimal.NewFromFloat(0.1)
	ExtractionElectricityConsumption = decimal.NewFromFloat(0.05)

	LaborExtraction = decimal.NewFromInt(10)
	LaborProduction = decimal.NewFromInt(20)
	LaborRetail     = decimal.NewFromInt(15)
	LaborService    = decimal.NewFromInt(10)

	// Retail and service buy their goods below market price.
	WholesaleDiscount = decimal.NewFromFloat(0.7)

	// Retail/service revenue never drops below cost × (1 + MinGrossMarginPct).
	MinGrossMarginPct = decimal.NewFromFloat(0.1)

	// Reported cost of a unit type the sector cannot run.
	DisabledUnitCost = decimal.NewFromInt(999999)

	// Revenue of a production unit whose sector declares no product.
	ProductionBaseRevenue = decimal.NewFromInt(100)
)

// DisplayPeriodHours is the length of the reporting period.
const DisplayPeriodHours = 96
