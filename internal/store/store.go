// Package store defines the persistence collaborators of the economics
// engine. Implementations include PostgreSQL (source of truth), Redis
// (read-through cache), SQLite (local price history archive) and
// in-memory (for testing).
package store

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"

	"github.com/corpgame/econ-engine/internal/model"
)

// ErrCorporationNotFound is returned when a corporation does not exist.
var ErrCorporationNotFound = errors.New("corporation not found")

// History is the append-only price time series.
type History interface {
	// AppendPriceHistory writes one row per record.
	AppendPriceHistory(ctx context.Context, recs []model.PriceRecord) error

	// PriceHistory returns the newest rows for one resource or product,
	// newest first. limit <= 0 means no limit.
	PriceHistory(ctx context.Context, kind model.PriceKind, name string, limit int) ([]model.PriceRecord, error)
}

// Store is the persistence interface. PostgreSQL is the source of truth;
// Redis provides a read-through cache layer.
type Store interface {
	History

	// --- Unit holdings ---

	// SectorUnitTotals returns nationwide unit counts per sector in one
	// bulk aggregation.
	SectorUnitTotals(ctx context.Context) (map[model.Sector]model.UnitCounts, error)

	// MarketEntries returns every (region, sector) holding of a corporation.
	MarketEntries(ctx context.Context, corporationID string) ([]model.MarketEntry, error)

	// --- Corporations ---

	// Corporation returns ErrCorporationNotFound for unknown IDs.
	Corporation(ctx context.Context, id string) (*model.Corporation, error)

	// ListCorporationIDs returns every corporation ID in a stable order.
	ListCorporationIDs(ctx context.Context) ([]string, error)

	// UpdateSharePrice persists a new share price.
	UpdateSharePrice(ctx context.Context, id string, price decimal.Decimal) error

	// --- Share trades ---

	// RecentTransactions returns a corporation's trades at or after since.
	RecentTransactions(ctx context.Context, corporationID string, since time.Time) ([]model.ShareTransaction, error)
}
