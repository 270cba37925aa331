package nonce

import (
	"context"
	"fmt"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/jackc/pgx/v5/pgconn"
)

// Schema creates the table used by PostgresRegistry.
const Schema = `
CREATE TABLE IF NOT EXISTS used_nonces (
	token       TEXT PRIMARY KEY,
	recorded_at TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS used_nonces_recorded_at_idx ON used_nonces (recorded_at);
`

// Execer is the subset of pgxpool.Pool the registry needs.
type Execer interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// PostgresRegistry keeps consumed nonces in PostgreSQL so replay protection
// survives restarts. The primary key makes the insert the atomic check.
type PostgresRegistry struct {
	db    Execer
	clock clock.Clock
}

func NewPostgresRegistry(db Execer, c clock.Clock) *PostgresRegistry {
	if c == nil {
		c = clock.New()
	}
	return &PostgresRegistry{db: db, clock: c}
}

// Migrate applies Schema.
func (r *PostgresRegistry) Migrate(ctx context.Context) error {
	if _, err := r.db.Exec(ctx, Schema); err != nil {
		return fmt.Errorf("migrate used_nonces: %w", err)
	}
	return nil
}

func (r *PostgresRegistry) CheckAndConsume(ctx context.Context, token string) (bool, error) {
	tag, err := r.db.Exec(ctx,
		`INSERT INTO used_nonces (token, recorded_at) VALUES ($1, $2) ON CONFLICT (token) DO NOTHING`,
		token, r.clock.Now().UTC())
	if err != nil {
		return false, fmt.Errorf("record nonce: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

func (r *PostgresRegistry) Sweep(ctx context.Context, now time.Time, window time.Duration) (int, error) {
	if window <= 0 {
		return 0, fmt.Errorf("sweep window must be positive, got %s", window)
	}
	tag, err := r.db.Exec(ctx, `DELETE FROM used_nonces WHERE recorded_at < $1`, now.Add(-window).UTC())
	if err != nil {
		return 0, fmt.Errorf("sweep used_nonces: %w", err)
	}
	return int(tag.RowsAffected()), nil
}

var (
	_ Registry  = (*PostgresRegistry)(nil)
	_ Sweepable = (*PostgresRegistry)(nil)
)
