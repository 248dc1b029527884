package store

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/corpgame/econ-engine/internal/catalog"
	"github.com/corpgame/econ-engine/internal/model"
)

//go:embed schema.sql
var schema string

// PostgresStore implements Store using PostgreSQL as the source of truth.
// All monetary values are stored as NUMERIC for exact decimal precision.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore creates a new PostgreSQL-backed store.
func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

// Migrate creates missing tables and indexes.
func (s *PostgresStore) Migrate(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	return nil
}

func (s *PostgresStore) SectorUnitTotals(ctx context.Context) (map[model.Sector]model.UnitCounts, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT sector,
		        COALESCE(SUM(retail_units), 0)::BIGINT,
		        COALESCE(SUM(production_units), 0)::BIGINT,
		        COALESCE(SUM(service_units), 0)::BIGINT,
		        COALESCE(SUM(extraction_units), 0)::BIGINT
		 FROM market_entries GROUP BY sector`)
	if err != nil {
		return nil, fmt.Errorf("sector unit totals: %w", err)
	}
	defer rows.Close()

	totals := make(map[model.Sector]model.UnitCounts)
	for rows.Next() {
		var sector string
		var u model.UnitCounts
		if err := rows.Scan(&sector, &u.Retail, &u.Production, &u.Service, &u.Extraction); err != nil {
			return nil, err
		}
		totals[model.Sector(sector)] = u
	}
	return totals, rows.Err()
}

func (s *PostgresStore) MarketEntries(ctx context.Context, corporationID string) ([]model.MarketEntry, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT corporation_id, region, sector,
		        retail_units, production_units, service_units, extraction_units
		 FROM market_entries WHERE corporation_id = $1
		 ORDER BY region, sector`, corporationID)
	if err != nil {
		return nil, fmt.Errorf("market entries %s: %w", corporationID, err)
	}
	defer rows.Close()

	var entries []model.MarketEntry
	for rows.Next() {
		var e model.MarketEntry
		var region, sector string
		if err := rows.Scan(&e.CorporationID, &region, &sector,
			&e.Units.Retail, &e.Units.Production, &e.Units.Service, &e.Units.Extraction); err != nil {
			return nil, err
		}
		e.Region = model.Region(region)
		e.Sector = model.Sector(sector)
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

func (s *PostgresStore) Corporation(ctx context.Context, id string) (*model.Corporation, error) {
	var c model.Corporation
	var cash, salary, divPct, price, specialAmt string

	err := s.pool.QueryRow(ctx,
		`SELECT id, name, cash::TEXT, shares, ceo_salary_96h::TEXT, dividend_pct::TEXT,
		        share_price::TEXT, last_special_dividend_at,
		        last_special_dividend_amount::TEXT, updated_at
		 FROM corporations WHERE id = $1`, id).
		Scan(&c.ID, &c.Name, &cash, &c.Shares, &salary, &divPct,
			&price, &c.LastSpecialDividendAt,
			&specialAmt, &c.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("corporation %s: %w", id, ErrCorporationNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get corporation %s: %w", id, err)
	}

	if err := parseNumerics(
		numeric{"cash", cash, &c.Cash},
		numeric{"ceo_salary_96h", salary, &c.CEOSalary96h},
		numeric{"dividend_pct", divPct, &c.DividendPct},
		numeric{"share_price", price, &c.SharePrice},
		numeric{"last_special_dividend_amount", specialAmt, &c.LastSpecialDividendAmount},
	); err != nil {
		return nil, fmt.Errorf("corporation %s: %w", id, err)
	}

	return &c, nil
}

func (s *PostgresStore) ListCorporationIDs(ctx context.Context) ([]string, error) {
	rows, err := s.pool.Query(ctx, `SELECT id FROM corporations ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (s *PostgresStore) UpdateSharePrice(ctx context.Context, id string, price decimal.Decimal) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE corporations SET share_price = $2::NUMERIC, updated_at = now() WHERE id = $1`,
		id, price.String(),
	)
	if err != nil {
		return fmt.Errorf("update share price %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("corporation %s: %w", id, ErrCorporationNotFound)
	}
	return nil
}

func (s *PostgresStore) RecentTransactions(ctx context.Context, corporationID string, since time.Time) ([]model.ShareTransaction, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, corporation_id, shares, price_per_share::TEXT, timestamp
		 FROM share_transactions
		 WHERE corporation_id = $1 AND timestamp >= $2
		 ORDER BY timestamp DESC`, corporationID, since)
	if err != nil {
		return nil, fmt.Errorf("recent transactions %s: %w", corporationID, err)
	}
	defer rows.Close()

	var txs []model.ShareTransaction
	for rows.Next() {
		var tx model.ShareTransaction
		var priceS string
		if err := rows.Scan(&tx.ID, &tx.CorporationID, &tx.Shares, &priceS, &tx.Timestamp); err != nil {
			return nil, err
		}
		if err := parseNumerics(numeric{"price_per_share", priceS, &tx.PricePerShare}); err != nil {
			return nil, fmt.Errorf("transaction %s: %w", tx.ID, err)
		}
		txs = append(txs, tx)
	}
	return txs, rows.Err()
}

func (s *PostgresStore) AppendPriceHistory(ctx context.Context, recs []model.PriceRecord) error {
	if len(recs) == 0 {
		return nil
	}
	batch := &pgx.Batch{}
	for _, r := range recs {
		batch.Queue(
			`INSERT INTO price_history (id, kind, name, price, supply, demand, recorded_at)
			 VALUES ($1, $2, $3, $4::NUMERIC, $5::NUMERIC, $6::NUMERIC, $7)`,
			r.ID, string(r.Kind), r.Name,
			r.Price.String(), r.Supply.String(), r.Demand.String(),
			r.RecordedAt,
		)
	}
	br := s.pool.SendBatch(ctx, batch)
	defer br.Close()
	for range recs {
		if _, err := br.Exec(); err != nil {
			return fmt.Errorf("append price history: %w", err)
		}
	}
	return nil
}

func (s *PostgresStore) PriceHistory(ctx context.Context, kind model.PriceKind, name string, limit int) ([]model.PriceRecord, error) {
	q := `SELECT id, kind, name, price::TEXT, supply::TEXT, demand::TEXT, recorded_at
	      FROM price_history WHERE kind = $1 AND name = $2
	      ORDER BY recorded_at DESC`
	args := []any{string(kind), name}
	if limit > 0 {
		q += ` LIMIT $3`
		args = append(args, limit)
	}
	rows, err := s.pool.Query(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("price history %s/%s: %w", kind, name, err)
	}
	defer rows.Close()

	var recs []model.PriceRecord
	for rows.Next() {
		var r model.PriceRecord
		var kindS, priceS, supplyS, demandS string
		if err := rows.Scan(&r.ID, &kindS, &r.Name, &priceS, &supplyS, &demandS, &r.RecordedAt); err != nil {
			return nil, err
		}
		r.Kind = model.PriceKind(kindS)
		if err := parseNumerics(
			numeric{"price", priceS, &r.Price},
			numeric{"supply", supplyS, &r.Supply},
			numeric{"demand", demandS, &r.Demand},
		); err != nil {
			return nil, fmt.Errorf("price record %s: %w", r.ID, err)
		}
		recs = append(recs, r)
	}
	return recs, rows.Err()
}

// CatalogSource returns a catalog source reading the sector_catalog row.
func (s *PostgresStore) CatalogSource() *PostgresCatalogSource {
	return &PostgresCatalogSource{pool: s.pool}
}

// PostgresCatalogSource loads the admin-editable catalog document. The
// row's version column, when set, overrides the document's version.
type PostgresCatalogSource struct {
	pool *pgxpool.Pool
}

func (s *PostgresCatalogSource) Load(ctx context.Context) (*catalog.Catalog, error) {
	var version string
	var doc []byte
	err := s.pool.QueryRow(ctx,
		`SELECT version, document::TEXT FROM sector_catalog WHERE id = 1`).
		Scan(&version, &doc)
	if err != nil {
		return nil, fmt.Errorf("load sector catalog: %w", err)
	}
	cat, err := catalog.ParseJSON(doc)
	if err != nil {
		return nil, err
	}
	if version != "" {
		cat.Version = version
	}
	return cat, nil
}

// SaveCatalog replaces the stored catalog document.
func (s *PostgresStore) SaveCatalog(ctx context.Context, doc []byte, version string) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO sector_catalog (id, version, document, updated_at)
		 VALUES (1, $1, $2::JSONB, now())
		 ON CONFLICT (id) DO UPDATE
		 SET version = EXCLUDED.version, document = EXCLUDED.document, updated_at = now()`,
		version, string(doc),
	)
	return err
}

// numeric is a NUMERIC column read as text and the field it parses into.
type numeric struct {
	column string
	raw    string
	dst    *decimal.Decimal
}

// parseNumerics parses every column or returns the first failure. A
// corrupt value is an error, never a silent zero.
func parseNumerics(cols ...numeric) error {
	for _, c := range cols {
		v, err := decimal.NewFromString(c.raw)
		if err != nil {
			return fmt.Errorf("parse %s %q: %w", c.column, c.raw, err)
		}
		*c.dst = v
	}
	return nil
}
