// Package postgres opens the two PostgreSQL handles the server uses: a
// database/sql pool over lib/pq for the transfer store and a pgx pool for the
// nonce registry.
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	_ "github.com/lib/pq"
)

// DB bundles both handles onto one database.
type DB struct {
	SQL  *sql.DB
	Pool *pgxpool.Pool
}

// Open connects both handles to url and pings them.
func Open(ctx context.Context, url string) (*DB, error) {
	if url == "" {
		return nil, errors.New("database url is required")
	}
	sqlDB, err := sql.Open("postgres", url)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	if err := sqlDB.PingContext(ctx); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	pool, err := pgxpool.New(ctx, url)
	if err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("create pgx pool: %w", err)
	}
	return &DB{SQL: sqlDB, Pool: pool}, nil
}

// Health pings the database through the pgx pool.
func (d *DB) Health(ctx context.Context) error {
	return d.Pool.Ping(ctx)
}

func (d *DB) Close() error {
	d.Pool.Close()
	return d.SQL.Close()
}
