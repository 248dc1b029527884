package catalog

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/corpgame/econ-engine/internal/model"
)

func TestDefaultCatalogIsValid(t *testing.T) {
	cat := Default()
	require.NoError(t, cat.Validate())
	assert.Equal(t, StaticVersion, cat.Version)
	assert.Len(t, cat.SectorList(), 16)
}

func TestCapabilityInvariants(t *testing.T) {
	cat := Default()
	for _, s := range cat.SectorList() {
		prof := cat.Profile(s)
		if prof.Produces == "" {
			assert.Empty(t, prof.ProductionInputs, "sector %s consumes resources but makes nothing", s)
		}
	}
}

func TestLookups(t *testing.T) {
	cat := Default()

	r, ok := cat.ResourceDemandOf(model.SectorEnergy)
	require.True(t, ok)
	assert.Equal(t, model.ResourceOil, r)

	p, ok := cat.ProducedProductOf(model.SectorEnergy)
	require.True(t, ok)
	assert.Equal(t, model.ProductElectricity, p)

	assert.Equal(t, []model.Resource{model.ResourceOil}, cat.ExtractableOf(model.SectorEnergy))
	assert.Len(t, cat.ProductionInputsOf(model.SectorConstruction), 2)
	assert.Equal(t, []model.Product{model.ProductLogistics}, cat.ProductDemandsOf(model.SectorEnergy, model.UnitProduction))
	assert.Equal(t, []model.Product{model.ProductManufactured}, cat.ProductDemandsOf(model.SectorMining, model.UnitExtraction))
}

func TestUnknownSectorIsInert(t *testing.T) {
	cat := Default()
	s := model.Sector("Underwater Basket Weaving")

	_, ok := cat.ResourceDemandOf(s)
	assert.False(t, ok)
	_, ok = cat.ProducedProductOf(s)
	assert.False(t, ok)
	assert.False(t, cat.CanExtract(s))
	for _, ut := range model.UnitTypes {
		assert.Empty(t, cat.ProductDemandsOf(s, ut))
	}
}

func TestServiceRateFor(t *testing.T) {
	cat := Default()
	assert.True(t, cat.ServiceRateFor(model.SectorDefense, model.ProductDefense).Equal(dec(0.1)))
	assert.True(t, cat.ServiceRateFor(model.SectorManufacturing, model.ProductManufactured).Equal(dec(0.25)))
	assert.True(t, cat.ServiceRateFor(model.SectorMedia, model.ProductTechnology).Equal(ServiceProductConsumption))
	assert.True(t, cat.ServiceRateFor(model.SectorTechnology, model.ProductElectricity).Equal(ServiceElectricityConsumption))
}

func TestValidateRejectsUnknownReferences(t *testing.T) {
	cat := Default()
	cat.Sectors["Broken"] = SectorProfile{Produces: "Unobtainium"}
	err := cat.Validate()
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrInvalidCatalog))
}

func TestValidateRejectsMarkupWithoutMultiplier(t *testing.T) {
	cat := Default()
	cat.Sectors["Broken"] = SectorProfile{RetailRevenue: RevenueMarkupOnCost}
	assert.ErrorIs(t, cat.Validate(), ErrInvalidCatalog)
}

func TestNationalTotalAndEfficiency(t *testing.T) {
	cat := &Catalog{Pool: map[model.Region]map[model.Resource]int64{
		"TX": {model.ResourceOil: 300},
		"OK": {model.ResourceOil: 100},
		"IA": {model.ResourceFertileLand: 50},
	}}
	assert.Equal(t, int64(400), cat.NationalTotal(model.ResourceOil))
	assert.True(t, cat.RegionalEfficiency("TX", model.ResourceOil).Equal(decimal.NewFromFloat(1.5)))
	assert.True(t, cat.RegionalEfficiency("OK", model.ResourceOil).Equal(decimal.NewFromFloat(0.5)))
	assert.True(t, cat.RegionalEfficiency("IA", model.ResourceOil).IsZero())
	assert.True(t, cat.RegionalEfficiency("TX", model.ResourceCopper).IsZero())
	assert.Equal(t, []model.Region{"IA", "OK", "TX"}, cat.Regions())
}

const sampleYAML = `
resources:
  Oil: {base_price: 75, min_price: 10, reference_pool_size: 1000}
products:
  Electricity: {reference_value: "150", min_price: 15}
sectors:
  Energy:
    extractable: [Oil]
    production_inputs:
      - {resource: Oil, rate: 0.5}
    produces: Electricity
`

func TestParseYAMLDerivesVersion(t *testing.T) {
	cat, err := ParseYAML([]byte(sampleYAML))
	require.NoError(t, err)
	assert.Equal(t, ContentVersion([]byte(sampleYAML)), cat.Version)
	assert.True(t, cat.Resources[model.ResourceOil].BasePrice.Equal(dec(75)))
	assert.True(t, cat.Products[model.ProductElectricity].ReferenceValue.Equal(dec(150)))
	assert.True(t, cat.ProductionInputsOf(model.SectorEnergy)[0].Rate.Equal(dec(0.5)))
	assert.NotEmpty(t, cat.Pool)
}

func TestFileSourceReloadsOnChange(t *testing.T) {
	path := filepath.Join(t.TempDir(), "catalog.yaml")
	require.NoError(t, os.WriteFile(path, []byte(sampleYAML), 0o600))

	src := &FileSource{Path: path}
	first, err := src.Load(context.Background())
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(path, []byte("version: v2\n"+sampleYAML), 0o600))
	second, err := src.Load(context.Background())
	require.NoError(t, err)

	assert.NotEqual(t, first.Version, second.Version)
	assert.Equal(t, "v2", second.Version)
}

func TestParseYAMLRejectsInvalid(t *testing.T) {
	_, err := ParseYAML([]byte("resources:\n  Oil: {base_price: -1}\n"))
	assert.ErrorIs(t, err, ErrInvalidCatalog)
}
