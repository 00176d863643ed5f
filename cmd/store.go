package main

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/quadrant-invest/geointel/internal/catalog"
)

// initStore opens the configured catalog backend. The returned closer
// releases the connection pool as well as the store itself.
func initStore(ctx context.Context) (catalog.Store, func(), error) {
	switch cfg.Store.Driver {
	case "memory":
		s := catalog.NewMemory()
		return s, func() {}, nil

	case "sqlite":
		dsn := cfg.Store.DatabaseURL
		if dsn == "" {
			dsn = "geointel.db"
		}
		s, err := catalog.NewSQLite(dsn)
		if err != nil {
			return nil, nil, err
		}
		return s, func() { _ = s.Close() }, nil

	case "postgres":
		pool, err := pgxpool.New(ctx, cfg.Store.DatabaseURL)
		if err != nil {
			return nil, nil, eris.Wrap(err, "open postgres pool")
		}
		return catalog.NewPostgres(pool), pool.Close, nil

	default:
		return nil, nil, eris.Errorf("unsupported store driver: %s", cfg.Store.Driver)
	}
}
