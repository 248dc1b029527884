// Package api serves the engine's read surface over HTTP: prices, price
// history, unit economics, corporation finances and dry-run valuations,
// plus a WebSocket feed of snapshot and tick events.
package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"github.com/corpgame/econ-engine/internal/catalog"
	"github.com/corpgame/econ-engine/internal/engine"
	"github.com/corpgame/econ-engine/internal/metrics"
	"github.com/corpgame/econ-engine/internal/model"
	"github.com/corpgame/econ-engine/internal/store"
)

const (
	defaultHistoryLimit = 100
	maxHistoryLimit     = 1000
)

// Server handles the read API. The hub may be nil.
type Server struct {
	engine   *engine.Engine
	history  store.History
	hub      *Hub
	validate *validator.Validate
}

// NewServer creates a read API server.
func NewServer(eng *engine.Engine, history store.History, hub *Hub) *Server {
	v := validator.New()
	v.RegisterCustomTypeFunc(func(f reflect.Value) any {
		if d, ok := f.Interface().(decimal.Decimal); ok {
			return d.InexactFloat64()
		}
		return nil
	}, decimal.Decimal{})
	return &Server{engine: eng, history: history, hub: hub, validate: v}
}

// Router returns the complete HTTP handler: middleware, /health, /metrics
// and the /api/v1 routes.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(metrics.Middleware)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{
			"status":          "ok",
			"service":         "econ-engine",
			"catalog_version": s.engine.Catalog().Version,
		})
	})
	r.Handle("/metrics", metrics.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		if s.hub != nil {
			r.Get("/ws", s.hub.HandleWS)
		}

		r.Group(func(r chi.Router) {
			r.Use(middleware.Timeout(30 * time.Second))

			r.Get("/catalog", s.GetCatalog)
			r.Get("/regions", s.ListRegions)
			r.Get("/regions/{region}", s.GetRegion)
			r.Get("/prices", s.GetPrices)
			r.Get("/prices/history", s.GetPriceHistory)
			r.Get("/economics/{unitType}/{sector}", s.GetUnitEconomics)
			r.Post("/economics/quote", s.QuoteUnitEconomics)
			r.Get("/corporations/{id}/finances", s.GetFinances)
			r.Get("/corporations/{id}/valuation", s.GetValuation)
		})
	})
	return r
}

// --- Request types ---

// QuoteRequest is the JSON body for POST /economics/quote. Prices left out
// of the maps come from the current snapshot.
type QuoteRequest struct {
	UnitType        string                     `json:"unit_type" validate:"required,oneof=extraction production retail service"`
	Sector          string                     `json:"sector" validate:"required"`
	CommodityPrices map[string]decimal.Decimal `json:"commodity_prices" validate:"omitempty,dive,keys,required,endkeys,gte=0"`
	ProductPrices   map[string]decimal.Decimal `json:"product_prices" validate:"omitempty,dive,keys,required,endkeys,gte=0"`
}

// RegionPool is one region's raw-resource endowment.
type RegionPool struct {
	Region    model.Region   `json:"region"`
	Resources []ResourcePool `json:"resources"`
}

// ResourcePool is a region's pool of one resource. Efficiency is the pool
// relative to the mean of the regions that hold the resource.
type ResourcePool struct {
	Resource      model.Resource  `json:"resource"`
	Units         int64           `json:"units"`
	NationalTotal int64           `json:"national_total"`
	Efficiency    decimal.Decimal `json:"efficiency"`
}

// --- Handlers ---

// GetCatalog handles GET /api/v1/catalog
func (s *Server) GetCatalog(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.engine.Catalog())
}

// ListRegions handles GET /api/v1/regions
func (s *Server) ListRegions(w http.ResponseWriter, r *http.Request) {
	cat := s.engine.Catalog()
	regions := cat.Regions()
	out := make([]RegionPool, 0, len(regions))
	for _, region := range regions {
		out = append(out, regionPool(cat, region))
	}
	writeJSON(w, http.StatusOK, out)
}

// GetRegion handles GET /api/v1/regions/{region}
func (s *Server) GetRegion(w http.ResponseWriter, r *http.Request) {
	cat := s.engine.Catalog()
	region := model.Region(strings.ToUpper(chi.URLParam(r, "region")))
	if _, ok := cat.Pool[region]; !ok {
		writeError(w, "region not found", http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, regionPool(cat, region))
}

func regionPool(cat *catalog.Catalog, region model.Region) RegionPool {
	rp := RegionPool{Region: region, Resources: []ResourcePool{}}
	for _, res := range cat.ResourceList() {
		units := cat.RegionalPool(region, res)
		if units == 0 {
			continue
		}
		rp.Resources = append(rp.Resources, ResourcePool{
			Resource:      res,
			Units:         units,
			NationalTotal: cat.NationalTotal(res),
			Efficiency:    cat.RegionalEfficiency(region, res),
		})
	}
	return rp
}

// GetPrices handles GET /api/v1/prices
func (s *Server) GetPrices(w http.ResponseWriter, r *http.Request) {
	snap, err := s.engine.CurrentSnapshot(r.Context())
	if err != nil {
		slog.Error("price snapshot failed", "err", err)
		writeError(w, "prices unavailable", http.StatusServiceUnavailable)
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

// GetPriceHistory handles GET /api/v1/prices/history?kind=&name=&limit=
// Rows are newest first.
func (s *Server) GetPriceHistory(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	name := q.Get("name")
	if name == "" {
		writeError(w, "name is required", http.StatusBadRequest)
		return
	}

	kind := model.PriceKind(q.Get("kind"))
	switch kind {
	case "":
		kind = model.PriceKindResource
	case model.PriceKindResource, model.PriceKindProduct:
	default:
		writeError(w, "kind must be resource or product", http.StatusBadRequest)
		return
	}

	limit := defaultHistoryLimit
	if raw := q.Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			writeError(w, "limit must be a positive integer", http.StatusBadRequest)
			return
		}
		limit = min(n, maxHistoryLimit)
	}

	recs, err := s.history.PriceHistory(r.Context(), kind, name, limit)
	if err != nil {
		slog.Error("price history read failed", "name", name, "err", err)
		writeError(w, "failed to get price history", http.StatusInternalServerError)
		return
	}
	if recs == nil {
		recs = []model.PriceRecord{}
	}
	writeJSON(w, http.StatusOK, recs)
}

// GetUnitEconomics handles GET /api/v1/economics/{unitType}/{sector}
func (s *Server) GetUnitEconomics(w http.ResponseWriter, r *http.Request) {
	t, ok := model.ParseUnitType(chi.URLParam(r, "unitType"))
	if !ok {
		writeError(w, "unknown unit type", http.StatusBadRequest)
		return
	}
	sector, ok := s.sectorParam(r)
	if !ok {
		writeError(w, "unknown sector", http.StatusNotFound)
		return
	}

	res, err := s.engine.UnitEconomics(r.Context(), t, sector, nil)
	if err != nil {
		slog.Error("unit economics failed", "unit_type", t, "sector", sector, "err", err)
		writeError(w, "prices unavailable", http.StatusServiceUnavailable)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// QuoteUnitEconomics handles POST /api/v1/economics/quote
// Computes per-unit economics against caller-supplied prices.
func (s *Server) QuoteUnitEconomics(w http.ResponseWriter, r *http.Request) {
	var req QuoteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if err := s.validate.Struct(req); err != nil {
		writeError(w, err.Error(), http.StatusBadRequest)
		return
	}

	cat := s.engine.Catalog()
	sector := model.Sector(req.Sector)
	if _, ok := cat.Sectors[sector]; !ok {
		writeError(w, "unknown sector", http.StatusBadRequest)
		return
	}
	commodity := make(map[model.Resource]decimal.Decimal, len(req.CommodityPrices))
	for name, p := range req.CommodityPrices {
		if _, ok := cat.Resources[model.Resource(name)]; !ok {
			writeError(w, "unknown resource: "+name, http.StatusBadRequest)
			return
		}
		commodity[model.Resource(name)] = p
	}
	product := make(map[model.Product]decimal.Decimal, len(req.ProductPrices))
	for name, p := range req.ProductPrices {
		if _, ok := cat.Products[model.Product(name)]; !ok {
			writeError(w, "unknown product: "+name, http.StatusBadRequest)
			return
		}
		product[model.Product(name)] = p
	}

	snap, err := s.engine.WithOverrides(r.Context(), commodity, product)
	if err != nil {
		slog.Error("override snapshot failed", "err", err)
		writeError(w, "prices unavailable", http.StatusServiceUnavailable)
		return
	}
	res, err := s.engine.UnitEconomics(r.Context(), model.UnitType(req.UnitType), sector, snap)
	if err != nil {
		writeError(w, "failed to compute economics", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// GetFinances handles GET /api/v1/corporations/{id}/finances
func (s *Server) GetFinances(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	fin, err := s.engine.CalculateFinances(r.Context(), id, nil, true)
	if err != nil {
		s.corporationError(w, id, err)
		return
	}
	writeJSON(w, http.StatusOK, fin)
}

// GetValuation handles GET /api/v1/corporations/{id}/valuation
// The valuation is computed but not persisted.
func (s *Server) GetValuation(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	v, err := s.engine.CalculateStockPrice(r.Context(), id, engine.ValuationOptions{DryRun: true})
	if err != nil {
		s.corporationError(w, id, err)
		return
	}
	writeJSON(w, http.StatusOK, v)
}

// --- Helpers ---

func (s *Server) sectorParam(r *http.Request) (model.Sector, bool) {
	raw := chi.URLParam(r, "sector")
	if unescaped, err := url.PathUnescape(raw); err == nil {
		raw = unescaped
	}
	sector := model.Sector(raw)
	_, ok := s.engine.Catalog().Sectors[sector]
	return sector, ok
}

func (s *Server) corporationError(w http.ResponseWriter, id string, err error) {
	if errors.Is(err, engine.ErrCorporationNotFound) {
		writeError(w, "corporation not found", http.StatusNotFound)
		return
	}
	slog.Error("corporation read failed", "corporation_id", id, "err", err)
	writeError(w, "failed to compute corporation figures", http.StatusInternalServerError)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, message string, status int) {
	writeJSON(w, status, map[string]string{"error": message})
}
