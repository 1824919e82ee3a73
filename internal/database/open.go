package database

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/rickgao/pricetables/internal/config"
	"github.com/rickgao/pricetables/internal/docstore"
)

// Connect creates a single connection pool.
func Connect(ctx context.Context, cfg config.DBConfig) (*pgxpool.Pool, error) {
	connStr := BuildConnString(cfg)

	poolCfg, err := pgxpool.ParseConfig(connStr)
	if err != nil {
		return nil, fmt.Errorf("parse connection string: %w", err)
	}

	poolCfg.MinConns = int32(cfg.MinConns)
	poolCfg.MaxConns = int32(cfg.MaxConns)

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	return pool, nil
}

// OpenStore opens the document store selected by cfg.Driver. The returned
// close function releases every resource the store holds.
func OpenStore(ctx context.Context, cfg config.StoreConfig, logger *slog.Logger) (docstore.Store, func(), error) {
	if logger == nil {
		logger = slog.Default()
	}

	switch cfg.Driver {
	case config.DriverPostgres:
		pool, err := Connect(ctx, cfg.Postgres)
		if err != nil {
			return nil, nil, fmt.Errorf("connect postgres: %w", err)
		}
		store := docstore.NewPostgresStore(pool)
		if err := store.Migrate(ctx); err != nil {
			pool.Close()
			return nil, nil, err
		}
		logger.Info("document store opened",
			"driver", cfg.Driver,
			"host", cfg.Postgres.Host,
			"database", cfg.Postgres.Name,
		)
		return store, pool.Close, nil

	case config.DriverSQLite:
		store, err := docstore.OpenSQLite(cfg.SQLite.Path)
		if err != nil {
			return nil, nil, err
		}
		logger.Info("document store opened", "driver", cfg.Driver, "path", cfg.SQLite.Path)
		return store, func() { store.Close() }, nil

	case config.DriverMemory:
		logger.Warn("using in-memory document store; data is lost on exit")
		return docstore.NewMemoryStore(), func() {}, nil
	}

	return nil, nil, fmt.Errorf("unknown store driver %q", cfg.Driver)
}
