// Package app assembles the store, catalog source, archive and engine from
// a Config. Both binaries share it.
package app

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/corpgame/econ-engine/internal/catalog"
	"github.com/corpgame/econ-engine/internal/config"
	"github.com/corpgame/econ-engine/internal/engine"
	"github.com/corpgame/econ-engine/internal/store"
)

// App holds the wired components. Call Close when done.
type App struct {
	Config   *config.Config
	Store    store.Store
	Memory   *store.MemoryStore // set when no DATABASE_URL is configured
	Postgres *store.PostgresStore
	Archive  *store.SQLiteHistory
	Catalog  catalog.Source
	Engine   *engine.Engine

	cleanup []func()
}

// Options are passed through to the engine; store, catalog and archive
// fields are filled in by Open.
type Options = engine.Options

// Open connects the configured backends and builds the engine.
func Open(ctx context.Context, cfg *config.Config, opts Options) (*App, error) {
	a := &App{Config: cfg}

	if cfg.DatabaseURL != "" {
		pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("database connection: %w", err)
		}
		a.cleanup = append(a.cleanup, pool.Close)
		a.Postgres = store.NewPostgresStore(pool)
		if err := a.Postgres.Migrate(ctx); err != nil {
			a.Close()
			return nil, err
		}
		a.Store = a.Postgres
		slog.Info("connected to PostgreSQL")

		// Wrap with Redis read-through cache if configured.
		if cfg.RedisURL != "" {
			opt, err := redis.ParseURL(cfg.RedisURL)
			if err != nil {
				a.Close()
				return nil, fmt.Errorf("invalid REDIS_URL: %w", err)
			}
			rdb := redis.NewClient(opt)
			a.cleanup = append(a.cleanup, func() { rdb.Close() })
			a.Store = store.NewCachedStore(a.Store, rdb, cfg.RedisTTL)
			slog.Info("Redis cache enabled", "ttl", cfg.RedisTTL)
		}
	} else {
		slog.Warn("DATABASE_URL not set, using in-memory store (data will not persist)")
		a.Memory = store.NewMemoryStore()
		a.Store = a.Memory
		if cfg.FixtureFile != "" {
			raw, err := os.ReadFile(cfg.FixtureFile)
			if err != nil {
				return nil, fmt.Errorf("read fixture: %w", err)
			}
			f, err := store.ParseFixture(raw)
			if err != nil {
				return nil, err
			}
			a.Memory.Seed(f)
			slog.Info("in-memory store seeded", "path", cfg.FixtureFile, "corporations", len(f.Corporations))
		}
	}

	switch {
	case cfg.CatalogFile != "":
		a.Catalog = &catalog.FileSource{Path: cfg.CatalogFile}
		slog.Info("catalog source", "kind", "file", "path", cfg.CatalogFile)
	case a.Postgres != nil:
		a.Catalog = a.Postgres.CatalogSource()
		slog.Info("catalog source", "kind", "postgres")
	default:
		a.Catalog = catalog.NewStaticSource(nil)
		slog.Info("catalog source", "kind", "static")
	}

	if cfg.HistorySQLitePath != "" {
		h, err := store.OpenSQLiteHistory(cfg.HistorySQLitePath)
		if err != nil {
			a.Close()
			return nil, err
		}
		a.cleanup = append(a.cleanup, func() { h.Close() })
		a.Archive = h
		opts.Archive = h
		slog.Info("price history archive enabled", "path", cfg.HistorySQLitePath)
	}

	opts.SnapshotTTL = cfg.SnapshotTTL
	opts.EconomicsTTL = cfg.EconomicsTTL
	opts.Workers = cfg.ValuationWorkers
	opts.Variation = cfg.HourlyVariation
	opts.NoVariation = cfg.HourlyVariation == 0
	opts.StaticFallback = cfg.StaticFallback

	eng, err := engine.New(ctx, a.Catalog, a.Store, opts)
	if err != nil {
		a.Close()
		return nil, err
	}
	a.Engine = eng
	return a, nil
}

// Close releases connections in reverse order of opening.
func (a *App) Close() {
	for i := len(a.cleanup) - 1; i >= 0; i-- {
		a.cleanup[i]()
	}
	a.cleanup = nil
}
