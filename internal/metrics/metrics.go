// Package metrics provides Prometheus instrumentation for the economics
// engine.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// CacheLookups counts cache lookups by cache and result (hit/miss).
	CacheLookups = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "econ_cache_lookups_total",
		Help: "Cache lookups by cache and result",
	}, []string{"cache", "result"})

	// SnapshotRefreshes counts computed price snapshots by source.
	SnapshotRefreshes = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "econ_snapshot_refreshes_total",
		Help: "Price snapshots computed, by source (live/static)",
	}, []string{"source"})

	// CatalogReloads counts catalog version changes picked up by the engine.
	CatalogReloads = promauto.NewCounter(prometheus.CounterOpts{
		Name: "econ_catalog_version_changes_total",
		Help: "Catalog version changes that invalidated caches",
	})

	// TickDuration tracks end-to-end tick latency.
	TickDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "econ_tick_duration_seconds",
		Help:    "Valuation tick duration in seconds",
		Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
	})

	// TickCorporations counts per-corporation tick outcomes.
	TickCorporations = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "econ_tick_corporations_total",
		Help: "Corporations processed by ticks, by outcome (valued/skipped/canceled)",
	}, []string{"outcome"})

	// SharePrice tracks the last written share price per corporation.
	SharePrice = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "econ_share_price",
		Help: "Last persisted share price",
	}, []string{"corporation_id"})

	// Price tracks the latest snapshot price of every resource and product.
	Price = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "econ_price",
		Help: "Current snapshot price by kind (resource/product) and name",
	}, []string{"kind", "name"})

	// CacheEntries tracks the number of entries held per in-process cache.
	CacheEntries = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "econ_cache_entries",
		Help: "Entries held by each in-process cache",
	}, []string{"cache"})

	// WebSocketClients tracks connected WebSocket clients.
	WebSocketClients = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "econ_websocket_clients",
		Help: "Number of connected WebSocket clients",
	})

	// HTTPRequestsTotal counts HTTP requests by method, path, and status.
	HTTPRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "econ_http_requests_total",
		Help: "Total HTTP requests",
	}, []string{"method", "path", "status"})

	// HTTPRequestDuration tracks request duration by method and path.
	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "econ_http_request_duration_seconds",
		Help:    "HTTP request duration in seconds",
		Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0},
	}, []string{"method", "path"})
)

// CacheResult records one cache lookup.
func CacheResult(cache string, hit bool) {
	result := "miss"
	if hit {
		result = "hit"
	}
	CacheLookups.WithLabelValues(cache, result).Inc()
}

// Handler returns the Prometheus metrics HTTP handler.
func Handler() http.Handler {
	return promhttp.Handler()
}

// Middleware returns an HTTP middleware that records request metrics.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		// The wrapper keeps Hijacker and Flusher so WebSocket upgrades pass through.
		wrapped := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(wrapped, r)
		status := wrapped.Status()
		if status == 0 {
			status = http.StatusOK
		}
		duration := time.Since(start).Seconds()

		// Use the route pattern for path label to avoid high cardinality.
		path := r.URL.Path
		if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
			path = rctx.RoutePattern()
		}
		HTTPRequestsTotal.WithLabelValues(r.Method, path, strconv.Itoa(status)).Inc()
		HTTPRequestDuration.WithLabelValues(r.Method, path).Observe(duration)
	})
}
