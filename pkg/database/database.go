package database

import (
	"context"
	"fmt"
	"time"

	"github.com/diagnosis/bookfair-stalls/pkg/config"
	"github.com/jackc/pgx/v5/pgxpool"
)

func Connect(ctx context.Context, cfg config.DatabaseConfig) (*pgxpool.Pool, error) {
	poolCfg, err := pgxpool.ParseConfig(cfg.URL)
	if err != nil {
		return nil, err
	}

	poolCfg.MinConns = int32(cfg.MinConns)
	poolCfg.MaxConns = int32(cfg.MaxConns)
	poolCfg.MaxConnLifetime = cfg.MaxLifetime
	poolCfg.HealthCheckPeriod = 30 * time.Second

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, err
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return pool, nil
}

const schema = `
CREATE TABLE IF NOT EXISTS users (
	id            UUID PRIMARY KEY,
	email         TEXT NOT NULL UNIQUE,
	name          TEXT NOT NULL,
	role          TEXT NOT NULL,
	password_hash TEXT NOT NULL,
	created_at    TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS stalls (
	id             TEXT PRIMARY KEY,
	size           TEXT NOT NULL,
	reserved       BOOLEAN NOT NULL DEFAULT false,
	reserved_by    TEXT NOT NULL DEFAULT '',
	publisher_name TEXT NOT NULL DEFAULT '',
	version        BIGINT NOT NULL DEFAULT 0,
	updated_at     TIMESTAMPTZ NOT NULL DEFAULT now(),
	CHECK (reserved = (reserved_by <> ''))
);

CREATE TABLE IF NOT EXISTS reservations (
	id             TEXT PRIMARY KEY,
	email          TEXT NOT NULL,
	publisher_name TEXT NOT NULL DEFAULT '',
	stalls         TEXT[] NOT NULL,
	status         TEXT NOT NULL,
	current_step   TEXT NOT NULL DEFAULT '',
	qr_url         TEXT NOT NULL DEFAULT '',
	qr_object      TEXT NOT NULL DEFAULT '',
	errors         TEXT[] NOT NULL DEFAULT '{}',
	created_at     TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at     TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_reservations_email ON reservations(lower(email));
`

// Migrate creates the tables the services need. Statements are idempotent.
func Migrate(ctx context.Context, pool *pgxpool.Pool) error {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	if _, err := pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("migrate schema: %w", err)
	}
	return nil
}
