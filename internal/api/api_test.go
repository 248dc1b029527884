package api_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/corpgame/econ-engine/internal/api"
	"github.com/corpgame/econ-engine/internal/catalog"
	"github.com/corpgame/econ-engine/internal/econ"
	"github.com/corpgame/econ-engine/internal/engine"
	"github.com/corpgame/econ-engine/internal/finance"
	"github.com/corpgame/econ-engine/internal/market"
	"github.com/corpgame/econ-engine/internal/model"
	"github.com/corpgame/econ-engine/internal/store"
	"github.com/corpgame/econ-engine/internal/valuation"
)

func d(f float64) decimal.Decimal { return decimal.NewFromFloat(f) }

var fixedNow = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

type testEnv struct {
	store  *store.MemoryStore
	engine *engine.Engine
	hub    *api.Hub
	router http.Handler
}

// newTestEnv wires an engine over a seeded in-memory store.
func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	ms := store.NewMemoryStore()
	ms.PutCorporation(&model.Corporation{
		ID: "acme", Name: "Acme Power", Cash: d(50_000), Shares: 1000,
		CEOSalary96h: d(1000), DividendPct: d(10), SharePrice: d(7),
	})
	ms.AddUnits("acme", "Texas", model.SectorEnergy, model.UnitCounts{Production: 10})

	hub := api.NewHub()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go hub.Run(ctx)

	eng, err := engine.New(ctx, catalog.NewStaticSource(nil), ms, engine.Options{
		Now:         func() time.Time { return fixedNow },
		Broadcaster: hub,
	})
	require.NoError(t, err)

	return &testEnv{
		store:  ms,
		engine: eng,
		hub:    hub,
		router: api.NewServer(eng, ms, hub).Router(),
	}
}

func (e *testEnv) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v), w.Body.String())
	return v
}

func TestHealth(t *testing.T) {
	env := newTestEnv(t)
	w := env.do(t, "GET", "/health", nil)
	require.Equal(t, http.StatusOK, w.Code)
	body := decode[map[string]string](t, w)
	assert.Equal(t, "ok", body["status"])
	assert.Equal(t, catalog.StaticVersion, body["catalog_version"])
}

func TestGetPrices(t *testing.T) {
	env := newTestEnv(t)
	w := env.do(t, "GET", "/api/v1/prices", nil)
	require.Equal(t, http.StatusOK, w.Code)

	snap := decode[market.PriceSnapshot](t, w)
	assert.NotEmpty(t, snap.ID)
	assert.False(t, snap.Override)
	assert.Contains(t, snap.Commodity, model.ResourceOil)
	assert.Contains(t, snap.Product, model.ProductElectricity)
}

func TestGetPriceHistory(t *testing.T) {
	env := newTestEnv(t)
	_, err := env.engine.RunTick(context.Background(), engine.TickOptions{})
	require.NoError(t, err)

	w := env.do(t, "GET", "/api/v1/prices/history?name=Oil", nil)
	require.Equal(t, http.StatusOK, w.Code)
	recs := decode[[]model.PriceRecord](t, w)
	require.Len(t, recs, 1)
	assert.Equal(t, model.PriceKindResource, recs[0].Kind)

	w = env.do(t, "GET", "/api/v1/prices/history?kind=product&name=Electricity&limit=5", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode[[]model.PriceRecord](t, w), 1)

	w = env.do(t, "GET", "/api/v1/prices/history?name=Unobtainium", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, "[]", w.Body.String())
}

func TestGetPriceHistory_BadRequests(t *testing.T) {
	env := newTestEnv(t)
	for _, path := range []string{
		"/api/v1/prices/history",
		"/api/v1/prices/history?name=Oil&kind=futures",
		"/api/v1/prices/history?name=Oil&limit=0",
		"/api/v1/prices/history?name=Oil&limit=ten",
	} {
		w := env.do(t, "GET", path, nil)
		assert.Equal(t, http.StatusBadRequest, w.Code, path)
	}
}

func TestGetUnitEconomics(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(t, "GET", "/api/v1/economics/production/Energy", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	res := decode[econ.Result](t, w)
	assert.Equal(t, model.UnitProduction, res.UnitType)
	assert.Equal(t, model.SectorEnergy, res.Sector)
	assert.True(t, res.HourlyProfit.Equal(res.HourlyRevenue.Sub(res.HourlyCost)))

	w = env.do(t, "GET", "/api/v1/economics/retail/Real%20Estate", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, model.SectorRealEstate, decode[econ.Result](t, w).Sector)

	assert.Equal(t, http.StatusBadRequest, env.do(t, "GET", "/api/v1/economics/warehouse/Energy", nil).Code)
	assert.Equal(t, http.StatusNotFound, env.do(t, "GET", "/api/v1/economics/production/Alchemy", nil).Code)
}

func TestQuoteUnitEconomics(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(t, "POST", "/api/v1/economics/quote", api.QuoteRequest{
		UnitType:        "production",
		Sector:          "Energy",
		CommodityPrices: map[string]decimal.Decimal{"Oil": d(75)},
		ProductPrices: map[string]decimal.Decimal{
			"Electricity":        d(150),
			"Logistics Capacity": d(120),
		},
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	res := decode[econ.Result](t, w)
	assert.True(t, res.HourlyRevenue.Equal(d(150)), "revenue %s", res.HourlyRevenue)
	assert.True(t, res.HourlyCost.Equal(d(84.5)), "cost %s", res.HourlyCost)
	assert.True(t, res.HourlyProfit.Equal(d(65.5)), "profit %s", res.HourlyProfit)

	// The quote leaves the shared snapshot untouched.
	snap, err := env.engine.CurrentSnapshot(context.Background())
	require.NoError(t, err)
	assert.False(t, snap.Override)
}

func TestQuoteUnitEconomics_Rejects(t *testing.T) {
	env := newTestEnv(t)

	tests := []struct {
		name string
		body any
	}{
		{"malformed body", "not an object"},
		{"missing unit type", api.QuoteRequest{Sector: "Energy"}},
		{"unknown unit type", api.QuoteRequest{UnitType: "warehouse", Sector: "Energy"}},
		{"unknown sector", api.QuoteRequest{UnitType: "production", Sector: "Alchemy"}},
		{"negative price", api.QuoteRequest{
			UnitType: "production", Sector: "Energy",
			CommodityPrices: map[string]decimal.Decimal{"Oil": d(-1)},
		}},
		{"unknown resource", api.QuoteRequest{
			UnitType: "production", Sector: "Energy",
			CommodityPrices: map[string]decimal.Decimal{"Unobtainium": d(1)},
		}},
		{"unknown product", api.QuoteRequest{
			UnitType: "production", Sector: "Energy",
			ProductPrices: map[string]decimal.Decimal{"Widgets": d(1)},
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := env.do(t, "POST", "/api/v1/economics/quote", tt.body)
			assert.Equal(t, http.StatusBadRequest, w.Code, w.Body.String())
			assert.Contains(t, decode[map[string]string](t, w), "error")
		})
	}
}

func TestGetFinances(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(t, "GET", "/api/v1/corporations/acme/finances", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	fin := decode[finance.Finances](t, w)
	assert.Equal(t, "acme", fin.CorporationID)
	assert.Equal(t, int64(10), fin.Units.Production)
	require.NotNil(t, fin.Statement)

	w = env.do(t, "GET", "/api/v1/corporations/ghost/finances", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "corporation not found", decode[map[string]string](t, w)["error"])
}

func TestGetValuation_DoesNotPersist(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(t, "GET", "/api/v1/corporations/acme/valuation", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	v := decode[valuation.Valuation](t, w)
	assert.Equal(t, "acme", v.CorporationID)
	assert.True(t, v.CalculatedPrice.GreaterThanOrEqual(valuation.MinSharePrice))
	assert.False(t, v.Varied)

	corp, err := env.store.Corporation(context.Background(), "acme")
	require.NoError(t, err)
	assert.True(t, corp.SharePrice.Equal(d(7)), "share price was written: %s", corp.SharePrice)

	assert.Equal(t, http.StatusNotFound, env.do(t, "GET", "/api/v1/corporations/ghost/valuation", nil).Code)
}

func TestWebSocket_ReceivesSnapshotEvents(t *testing.T) {
	env := newTestEnv(t)
	srv := httptest.NewServer(env.router)
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/api/v1/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()

	require.Eventually(t, func() bool { return env.hub.Clients() == 1 }, 2*time.Second, 10*time.Millisecond)

	_, err = env.engine.RefreshSnapshot(context.Background())
	require.NoError(t, err)

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, raw, err := conn.ReadMessage()
	require.NoError(t, err)

	var msg struct {
		Type string               `json:"type"`
		Data market.PriceSnapshot `json:"data"`
	}
	require.NoError(t, json.Unmarshal(raw, &msg))
	assert.Equal(t, "prices", msg.Type)
	assert.NotEmpty(t, msg.Data.ID)
	assert.Contains(t, msg.Data.Commodity, model.ResourceOil)
}

func TestRegions(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(t, "GET", "/api/v1/regions", nil)
	require.Equal(t, http.StatusOK, w.Code)
	all := decode[[]api.RegionPool](t, w)
	assert.Len(t, all, len(catalog.DefaultPool()))

	w = env.do(t, "GET", "/api/v1/regions/tx", nil)
	require.Equal(t, http.StatusOK, w.Code)
	tx := decode[api.RegionPool](t, w)
	assert.Equal(t, model.Region("TX"), tx.Region)

	cat := env.engine.Catalog()
	var oil *api.ResourcePool
	for i := range tx.Resources {
		if tx.Resources[i].Resource == model.ResourceOil {
			oil = &tx.Resources[i]
		}
	}
	require.NotNil(t, oil)
	assert.Equal(t, int64(18_000), oil.Units)
	assert.Equal(t, cat.NationalTotal(model.ResourceOil), oil.NationalTotal)
	assert.True(t, oil.Efficiency.Equal(cat.RegionalEfficiency("TX", model.ResourceOil)))

	assert.Equal(t, http.StatusNotFound, env.do(t, "GET", "/api/v1/regions/ZZ", nil).Code)
}
