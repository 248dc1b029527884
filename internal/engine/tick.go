package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"github.com/corpgame/econ-engine/internal/market"
	"github.com/corpgame/econ-engine/internal/metrics"
)

// TickOptions select the optional parts of a tick.
type TickOptions struct {
	// Variation applies the random hourly multiplier to every price.
	Variation bool
}

// TickReport summarizes one tick.
type TickReport struct {
	SnapshotID     string                     `json:"snapshot_id"`
	CatalogVersion string                     `json:"catalog_version"`
	StartedAt      time.Time                  `json:"started_at"`
	Duration       time.Duration              `json:"duration"`
	Prices         map[string]decimal.Decimal `json:"prices"`
	Skipped        map[string]string          `json:"skipped,omitempty"`
	Canceled       int                        `json:"canceled"`
	HistoryRows    int                        `json:"history_rows"`
}

// Valued returns how many corporations got a new price.
func (r TickReport) Valued() int { return len(r.Prices) }

// RunTick prices the market once and revalues every corporation against
// that single snapshot. A corporation whose reads fail keeps its previous
// price and the tick continues. Once ctx is done no further price is
// written; the report is returned together with ctx's error.
func (e *Engine) RunTick(ctx context.Context, opts TickOptions) (report TickReport, err error) {
	start := e.opts.Now()
	report = TickReport{
		StartedAt: start,
		Prices:    make(map[string]decimal.Decimal),
		Skipped:   make(map[string]string),
	}
	defer func() {
		report.Duration = e.opts.Now().Sub(start)
		metrics.TickDuration.Observe(report.Duration.Seconds())
	}()

	snap, err := e.RefreshSnapshot(ctx)
	if err != nil {
		return report, fmt.Errorf("refresh snapshot: %w", err)
	}
	report.SnapshotID = snap.ID
	report.CatalogVersion = snap.CatalogVersion
	report.HistoryRows = e.recordHistory(ctx, snap)

	ids, err := e.store.ListCorporationIDs(ctx)
	if err != nil {
		return report, fmt.Errorf("list corporations: %w", err)
	}

	var mu sync.Mutex
	g := new(errgroup.Group)
	g.SetLimit(e.opts.Workers)

	for _, id := range ids {
		if ctx.Err() != nil {
			mu.Lock()
			report.Canceled++
			mu.Unlock()
			metrics.TickCorporations.WithLabelValues("canceled").Inc()
			continue
		}
		g.Go(func() error {
			price, err := e.tickOne(ctx, id, snap, opts)

			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				report.Prices[id] = price
				metrics.TickCorporations.WithLabelValues("valued").Inc()
			case ctx.Err() != nil:
				report.Canceled++
				metrics.TickCorporations.WithLabelValues("canceled").Inc()
			default:
				report.Skipped[id] = err.Error()
				metrics.TickCorporations.WithLabelValues("skipped").Inc()
				slog.Warn("corporation skipped this tick", "corporation_id", id, "err", err)
			}
			return nil
		})
	}
	_ = g.Wait()

	slog.Info("tick complete",
		"snapshot_id", report.SnapshotID,
		"valued", report.Valued(),
		"skipped", len(report.Skipped),
		"canceled", report.Canceled,
	)
	if e.opts.Broadcaster != nil {
		e.opts.Broadcaster.Broadcast("tick", report)
	}
	return report, ctx.Err()
}

func (e *Engine) tickOne(ctx context.Context, id string, snap *market.PriceSnapshot, opts TickOptions) (decimal.Decimal, error) {
	if err := ctx.Err(); err != nil {
		return decimal.Zero, err
	}
	v, err := e.value(ctx, id, snap, opts.Variation)
	if err != nil {
		return decimal.Zero, err
	}
	// A corporation finished after cancellation is dropped, not written.
	if err := ctx.Err(); err != nil {
		return decimal.Zero, err
	}
	if err := e.persist(ctx, v); err != nil {
		return decimal.Zero, err
	}
	return v.CalculatedPrice, nil
}

// recordHistory writes one row per resource and product. Failures are
// logged and do not fail the tick.
func (e *Engine) recordHistory(ctx context.Context, snap *market.PriceSnapshot) int {
	recs := snap.Records()
	if err := e.store.AppendPriceHistory(ctx, recs); err != nil {
		slog.Error("append price history", "err", err)
		return 0
	}
	if e.opts.Archive != nil {
		if err := e.opts.Archive.AppendPriceHistory(ctx, recs); err != nil && !errors.Is(err, context.Canceled) {
			slog.Warn("archive price history", "err", err)
		}
	}
	return len(recs)
}
