package store

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"github.com/corpgame/econ-engine/internal/model"
)

// SQLiteHistory keeps a local archive of the price time series. Money is
// stored as TEXT and scanned back through decimal's sql.Scanner.
type SQLiteHistory struct {
	conn *sqlx.DB
}

// OpenSQLiteHistory opens or creates the archive at path.
func OpenSQLiteHistory(path string) (*SQLiteHistory, error) {
	conn, err := sqlx.Open("sqlite", path+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open history db: %w", err)
	}

	h := &SQLiteHistory{conn: conn}
	if err := h.migrate(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("migrate history db: %w", err)
	}
	return h, nil
}

// Close closes the database connection.
func (h *SQLiteHistory) Close() error {
	return h.conn.Close()
}

func (h *SQLiteHistory) migrate() error {
	_, err := h.conn.Exec(`
	CREATE TABLE IF NOT EXISTS price_history (
		id TEXT PRIMARY KEY,
		kind TEXT NOT NULL,
		name TEXT NOT NULL,
		price TEXT NOT NULL,
		supply TEXT NOT NULL,
		demand TEXT NOT NULL,
		recorded_at TIMESTAMP NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_price_history_item ON price_history(kind, name, recorded_at);
	`)
	return err
}

func (h *SQLiteHistory) AppendPriceHistory(ctx context.Context, recs []model.PriceRecord) error {
	if len(recs) == 0 {
		return nil
	}
	tx, err := h.conn.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for _, r := range recs {
		r.RecordedAt = r.RecordedAt.UTC()
		if _, err := tx.NamedExecContext(ctx,
			`INSERT INTO price_history (id, kind, name, price, supply, demand, recorded_at)
			 VALUES (:id, :kind, :name, :price, :supply, :demand, :recorded_at)`, r); err != nil {
			return fmt.Errorf("insert price record %s: %w", r.Name, err)
		}
	}
	return tx.Commit()
}

func (h *SQLiteHistory) PriceHistory(ctx context.Context, kind model.PriceKind, name string, limit int) ([]model.PriceRecord, error) {
	if limit <= 0 {
		limit = -1
	}
	var recs []model.PriceRecord
	err := h.conn.SelectContext(ctx, &recs,
		`SELECT id, kind, name, price, supply, demand, recorded_at
		 FROM price_history WHERE kind = ? AND name = ?
		 ORDER BY recorded_at DESC, rowid DESC LIMIT ?`,
		string(kind), name, limit,
	)
	return recs, err
}
