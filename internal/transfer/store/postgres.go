package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"securetransfer/internal/transfer"
	"securetransfer/pkg/platform/sentinel"
)

// Schema creates the transfers table.
const Schema = `
CREATE TABLE IF NOT EXISTS transfers (
	id                 UUID PRIMARY KEY,
	sender             TEXT NOT NULL,
	receiver           TEXT NOT NULL,
	original_file_name TEXT NOT NULL,
	stored_ref         TEXT NOT NULL,
	decrypted_ref      TEXT NOT NULL DEFAULT '',
	status             TEXT NOT NULL,
	failure_kind       TEXT NOT NULL DEFAULT '',
	failure_reason     TEXT NOT NULL DEFAULT '',
	created_at         TIMESTAMPTZ NOT NULL,
	completed_at       TIMESTAMPTZ
);
CREATE INDEX IF NOT EXISTS transfers_sender_idx ON transfers (sender);
CREATE INDEX IF NOT EXISTS transfers_receiver_idx ON transfers (receiver);
`

const uniqueViolation = "23505"

// PostgresStore persists transfers in PostgreSQL.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// Migrate applies Schema.
func (s *PostgresStore) Migrate(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, Schema); err != nil {
		return fmt.Errorf("migrate transfers: %w", err)
	}
	return nil
}

// Create inserts a new transfer and fails with sentinel.ErrConflict if the id exists.
func (s *PostgresStore) Create(ctx context.Context, t *transfer.Transfer) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO transfers (id, sender, receiver, original_file_name, stored_ref,
			decrypted_ref, status, failure_kind, failure_reason, created_at, completed_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		t.ID, t.Sender, t.Receiver, t.OriginalFileName, t.StoredRef,
		t.DecryptedRef, string(t.Status), string(t.FailureKind), t.FailureReason, t.CreatedAt, nullTime(t.CompletedAt))
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
			return fmt.Errorf("create transfer %s: %w", t.ID, sentinel.ErrConflict)
		}
		return fmt.Errorf("create transfer: %w", err)
	}
	return nil
}

// Save upserts t. A terminal row is never overwritten: the update only
// applies while the stored status is still PENDING.
func (s *PostgresStore) Save(ctx context.Context, t *transfer.Transfer) error {
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO transfers (id, sender, receiver, original_file_name, stored_ref,
			decrypted_ref, status, failure_kind, failure_reason, created_at, completed_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		ON CONFLICT (id) DO UPDATE SET
			decrypted_ref  = EXCLUDED.decrypted_ref,
			status         = EXCLUDED.status,
			failure_kind   = EXCLUDED.failure_kind,
			failure_reason = EXCLUDED.failure_reason,
			completed_at   = EXCLUDED.completed_at
		WHERE transfers.status = 'PENDING'`,
		t.ID, t.Sender, t.Receiver, t.OriginalFileName, t.StoredRef,
		t.DecryptedRef, string(t.Status), string(t.FailureKind), t.FailureReason, t.CreatedAt, nullTime(t.CompletedAt))
	if err != nil {
		return fmt.Errorf("save transfer: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("save transfer: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("save transfer %s: %w", t.ID, sentinel.ErrInvalidState)
	}
	return nil
}

func (s *PostgresStore) FindByID(ctx context.Context, id uuid.UUID) (*transfer.Transfer, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, sender, receiver, original_file_name, stored_ref, decrypted_ref,
			status, failure_kind, failure_reason, created_at, completed_at
		FROM transfers WHERE id = $1`, id)

	var (
		t           transfer.Transfer
		status      string
		kind        string
		completedAt sql.NullTime
	)
	err := row.Scan(&t.ID, &t.Sender, &t.Receiver, &t.OriginalFileName, &t.StoredRef, &t.DecryptedRef,
		&status, &kind, &t.FailureReason, &t.CreatedAt, &completedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("transfer %s not found: %w", id, sentinel.ErrNotFound)
		}
		return nil, fmt.Errorf("get transfer: %w", err)
	}
	t.Status = transfer.Status(status)
	t.FailureKind = transfer.FailureKind(kind)
	if completedAt.Valid {
		at := completedAt.Time
		t.CompletedAt = &at
	}
	return &t, nil
}

func nullTime(value *time.Time) sql.NullTime {
	if value == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *value, Valid: true}
}

var _ transfer.TransferStore = (*PostgresStore)(nil)
