package catalog

import (
	"github.com/shopspring/decimal"

	"github.com/corpgame/econ-engine/internal/model"
)

// StaticVersion is the version token of the built-in catalog.
const StaticVersion = "static-v1"

func dec(f float64) decimal.Decimal { return decimal.NewFromFloat(f) }

func primary(r model.Resource) []ResourceInput {
	return []ResourceInput{{Resource: r, Rate: ProductionResourceConsumption}}
}

func extra(p model.Product, rate float64) []ProductInput {
	return []ProductInput{{Product: p, Rate: dec(rate)}}
}

// Default returns the built-in catalog.
func Default() *Catalog {
	defenseServiceRate := dec(0.1)
	manufacturingServiceRate := dec(0.25)

	return &Catalog{
		Version: StaticVersion,
		Resources: map[model.Resource]ResourceSpec{
			model.ResourceOil:               {BasePrice: dec(75), MinPrice: dec(10), ReferencePoolSize: 50_000},
			model.ResourceSteel:             {BasePrice: dec(120), MinPrice: dec(15), ReferencePoolSize: 40_000},
			model.ResourceRareEarth:         {BasePrice: dec(400), MinPrice: dec(50), ReferencePoolSize: 8_000},
			model.ResourceCopper:            {BasePrice: dec(95), MinPrice: dec(12), ReferencePoolSize: 30_000},
			model.ResourceFertileLand:       {BasePrice: dec(50), MinPrice: dec(8), ReferencePoolSize: 60_000},
			model.ResourceLumber:            {BasePrice: dec(40), MinPrice: dec(6), ReferencePoolSize: 45_000},
			model.ResourceChemicalCompounds: {BasePrice: dec(110), MinPrice: dec(15), ReferencePoolSize: 25_000},
		},
		Products: map[model.Product]ProductSpec{
			model.ProductTechnology:   {ReferenceValue: dec(600), MinPrice: dec(60)},
			model.ProductManufactured: {ReferenceValue: dec(200), MinPrice: dec(20)},
			model.ProductElectricity:  {ReferenceValue: dec(150), MinPrice: dec(15)},
			model.ProductFood:         {ReferenceValue: dec(80), MinPrice: dec(8)},
			model.ProductConstruction: {ReferenceValue: dec(300), MinPrice: dec(30)},
			model.ProductPharma:       {ReferenceValue: dec(900), MinPrice: dec(90)},
			model.ProductDefense:      {ReferenceValue: dec(1500), MinPrice: dec(150)},
			model.ProductLogistics:    {ReferenceValue: dec(120), MinPrice: dec(12)},
		},
		Sectors: map[model.Sector]SectorProfile{
			model.SectorTechnology: {
				ProductionInputs: primary(model.ResourceRareEarth),
				Produces:         model.ProductTechnology,
				RetailDemands:    []model.Product{model.ProductTechnology},
				ServiceDemands:   []model.Product{model.ProductTechnology, model.ProductElectricity},
			},
			model.SectorFinance: {
				ServiceDemands: []model.Product{model.ProductTechnology},
			},
			model.SectorHealthcare: {
				RetailDemands:  []model.Product{model.ProductPharma},
				ServiceDemands: []model.Product{model.ProductPharma, model.ProductElectricity},
				ExtraInputs: map[model.UnitType][]ProductInput{
					model.UnitService: extra(model.ProductTechnology, 0.5),
				},
			},
			model.SectorManufacturing: {
				ProductionInputs: primary(model.ResourceSteel),
				Produces:         model.ProductManufactured,
				RetailDemands:    []model.Product{model.ProductManufactured},
				ServiceDemands:   []model.Product{model.ProductManufactured},
				ServiceRate:      &manufacturingServiceRate,
				ExtraInputs: map[model.UnitType][]ProductInput{
					model.UnitProduction: extra(model.ProductLogistics, 0.1),
				},
			},
			model.SectorEnergy: {
				Extractable:      []model.Resource{model.ResourceOil},
				ProductionInputs: primary(model.ResourceOil),
				Produces:         model.ProductElectricity,
				ServiceDemands:   []model.Product{model.ProductElectricity},
				ExtraInputs: map[model.UnitType][]ProductInput{
					model.UnitProduction: extra(model.ProductLogistics, 0.1),
				},
			},
			model.SectorRetail: {
				RetailDemands:  []model.Product{model.ProductFood, model.ProductManufactured, model.ProductTechnology},
				ServiceDemands: []model.Product{model.ProductManufactured},
				ExtraInputs: map[model.UnitType][]ProductInput{
					model.UnitService: extra(model.ProductLogistics, 0.5),
				},
			},
			model.SectorRealEstate: {
				ServiceDemands: []model.Product{model.ProductConstruction},
				ExtraInputs: map[model.UnitType][]ProductInput{
					model.UnitService: extra(model.ProductLogistics, 0.5),
				},
			},
			model.SectorTransportation: {
				ProductionInputs: primary(model.ResourceOil),
				Produces:         model.ProductLogistics,
				ServiceDemands:   []model.Product{model.ProductLogistics},
			},
			model.SectorMedia: {
				RetailDemands:  []model.Product{model.ProductTechnology},
				ServiceDemands: []model.Product{model.ProductTechnology},
			},
			model.SectorTelecommunications: {
				ServiceDemands: []model.Product{model.ProductTechnology, model.ProductElectricity},
			},
			model.SectorAgriculture: {
				Extractable:      []model.Resource{model.ResourceFertileLand},
				ProductionInputs: primary(model.ResourceFertileLand),
				Produces:         model.ProductFood,
				RetailDemands:    []model.Product{model.ProductFood},
				ExtraInputs: map[model.UnitType][]ProductInput{
					model.UnitProduction: extra(model.ProductManufactured, 0.1),
				},
			},
			model.SectorDefense: {
				ProductionInputs:  primary(model.ResourceSteel),
				Produces:          model.ProductDefense,
				RetailDemands:     []model.Product{model.ProductDefense},
				ServiceDemands:    []model.Product{model.ProductDefense},
				ServiceRate:       &defenseServiceRate,
				RetailRevenue:     RevenueMarkupOnCost,
				RevenueMultiplier: dec(1.4),
				ExtraInputs: map[model.UnitType][]ProductInput{
					model.UnitProduction: extra(model.ProductTechnology, 0.1),
				},
			},
			model.SectorHospitality: {
				RetailDemands:  []model.Product{model.ProductFood},
				ServiceDemands: []model.Product{model.ProductFood, model.ProductElectricity},
			},
			model.SectorConstruction: {
				Extractable: []model.Resource{model.ResourceLumber},
				ProductionInputs: []ResourceInput{
					{Resource: model.ResourceLumber, Rate: dec(0.3)},
					{Resource: model.ResourceSteel, Rate: dec(0.2)},
				},
				Produces:       model.ProductConstruction,
				ServiceDemands: []model.Product{model.ProductConstruction},
				ExtraInputs: map[model.UnitType][]ProductInput{
					model.UnitProduction: extra(model.ProductManufactured, 0.1),
				},
			},
			model.SectorPharmaceuticals: {
				ProductionInputs: primary(model.ResourceChemicalCompounds),
				Produces:         model.ProductPharma,
				RetailDemands:    []model.Product{model.ProductPharma},
				ExtraInputs: map[model.UnitType][]ProductInput{
					model.UnitProduction: extra(model.ProductTechnology, 0.1),
				},
			},
			model.SectorMining: {
				Extractable: []model.Resource{
					model.ResourceSteel,
					model.ResourceCopper,
					model.ResourceRareEarth,
					model.ResourceChemicalCompounds,
				},
				ExtraInputs: map[model.UnitType][]ProductInput{
					model.UnitExtraction: extra(model.ProductManufactured, 0.1),
				},
			},
		},
		Pool: DefaultPool(),
	}
}
