package app

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/corpgame/econ-engine/internal/catalog"
	"github.com/corpgame/econ-engine/internal/config"
	"github.com/corpgame/econ-engine/internal/engine"
	"github.com/corpgame/econ-engine/internal/model"
)

const fixture = `
corporations:
  - {id: acme, name: Acme Power, cash: 50000, shares: 1000}
holdings:
  - {corporation_id: acme, region: TX, sector: Energy, units: {production: 10}}
`

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "fixture.yaml")
	require.NoError(t, os.WriteFile(path, []byte(fixture), 0o600))
	return &config.Config{
		Port:                 8080,
		LogLevel:             "info",
		FixtureFile:          path,
		HistorySQLitePath:    filepath.Join(dir, "history.db"),
		TickSchedule:         "@hourly",
		PriceRefreshSchedule: "@every 1m",
		SnapshotTTL:          time.Minute,
		RedisTTL:             30 * time.Second,
		ValuationWorkers:     2,
		HourlyVariation:      0.05,
	}
}

func TestOpen_MemoryWithFixtureAndArchive(t *testing.T) {
	ctx := context.Background()
	a, err := Open(ctx, testConfig(t), Options{})
	require.NoError(t, err)
	defer a.Close()

	require.NotNil(t, a.Memory)
	require.NotNil(t, a.Archive)
	assert.Equal(t, catalog.StaticVersion, a.Engine.Catalog().Version)

	report, err := a.Engine.RunTick(ctx, engine.TickOptions{})
	require.NoError(t, err)
	assert.Equal(t, 1, report.Valued())

	archived, err := a.Archive.PriceHistory(ctx, model.PriceKindProduct, string(model.ProductElectricity), 0)
	require.NoError(t, err)
	assert.Len(t, archived, 1)
}

func TestOpen_CatalogFile(t *testing.T) {
	cfg := testConfig(t)
	cfg.HistorySQLitePath = ""
	cfg.CatalogFile = filepath.Join(t.TempDir(), "missing.yaml")

	_, err := Open(context.Background(), cfg, Options{})
	assert.Error(t, err, "an unreadable catalog file fails startup")
}

func TestOpen_BadFixture(t *testing.T) {
	cfg := testConfig(t)
	require.NoError(t, os.WriteFile(cfg.FixtureFile, []byte("holdings:\n  - region: TX\n"), 0o600))

	_, err := Open(context.Background(), cfg, Options{})
	assert.Error(t, err)
}

func TestOpen_ZeroVariationDisablesMultiplier(t *testing.T) {
	ctx := context.Background()
	cfg := testConfig(t)
	cfg.HourlyVariation = 0
	a, err := Open(ctx, cfg, Options{})
	require.NoError(t, err)
	defer a.Close()

	base, err := a.Engine.CalculateStockPrice(ctx, "acme", engine.ValuationOptions{DryRun: true})
	require.NoError(t, err)

	report, err := a.Engine.RunTick(ctx, engine.TickOptions{Variation: true})
	require.NoError(t, err)
	assert.True(t, report.Prices["acme"].Equal(base.CalculatedPrice), "got %s, want %s", report.Prices["acme"], base.CalculatedPrice)
}
