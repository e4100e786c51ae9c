package outbox

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"astres/internal/adapters/storage"
	domain "astres/internal/domain/outbox"
)

// PostgresStore implements the outbox Store interface using PostgreSQL.
type PostgresStore struct {
	db storage.PgxDB
}

// NewPostgresStore creates a new outbox store backed by a pgx pool.
func NewPostgresStore(db storage.PgxDB) *PostgresStore {
	return &PostgresStore{db: db}
}

// GetByID retrieves an outbox entry by its ID.
func (s *PostgresStore) GetByID(ctx context.Context, id string) (domain.Entry, error) {
	e, err := scanPgEntry(s.db.QueryRow(ctx, "SELECT "+entryColumns+" FROM outbox WHERE id = $1", id))
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Entry{}, domain.ErrNotFound
	}
	return e, err
}

// Save persists an outbox entry to the database.
func (s *PostgresStore) Save(ctx context.Context, e domain.Entry) error {
	var lastAttemptedAt *time.Time
	if !e.LastAttemptedAt.IsZero() {
		lastAttemptedAt = &e.LastAttemptedAt
	}
	_, err := s.db.Exec(ctx,
		`INSERT INTO outbox (`+entryColumns+`)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		 ON CONFLICT (id) DO UPDATE SET
		   status = EXCLUDED.status, attempts = EXCLUDED.attempts, max_attempts = EXCLUDED.max_attempts,
		   last_attempted_at = EXCLUDED.last_attempted_at, external_id = EXCLUDED.external_id,
		   error_message = EXCLUDED.error_message`,
		e.ID, e.ActionType, e.Payload, e.Status, e.Attempts, e.MaxAttempts,
		lastAttemptedAt, e.CreatedAt, e.ExternalID, e.ErrorMessage)
	if err != nil {
		return fmt.Errorf("save outbox entry: %w", err)
	}
	return nil
}

// ListPending returns entries that need to be processed (pending or retrying).
func (s *PostgresStore) ListPending(ctx context.Context, limit int) ([]domain.Entry, error) {
	return s.list(ctx,
		"SELECT "+entryColumns+" FROM outbox WHERE status IN ($1, $2) ORDER BY created_at ASC LIMIT $3",
		domain.StatusPending, domain.StatusRetrying, limit)
}

// ListFailed returns entries that have permanently failed.
func (s *PostgresStore) ListFailed(ctx context.Context, limit int) ([]domain.Entry, error) {
	return s.list(ctx,
		"SELECT "+entryColumns+" FROM outbox WHERE status = $1 ORDER BY last_attempted_at DESC NULLS LAST LIMIT $2",
		domain.StatusFailed, limit)
}

// Delete removes an outbox entry.
func (s *PostgresStore) Delete(ctx context.Context, id string) error {
	_, err := s.db.Exec(ctx, "DELETE FROM outbox WHERE id = $1", id)
	return err
}

func (s *PostgresStore) list(ctx context.Context, query string, args ...any) ([]domain.Entry, error) {
	rows, err := s.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list outbox: %w", err)
	}
	defer rows.Close()
	var entries []domain.Entry
	for rows.Next() {
		e, err := scanPgEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

func scanPgEntry(row pgx.Row) (domain.Entry, error) {
	var e domain.Entry
	var lastAttemptedAt *time.Time
	err := row.Scan(&e.ID, &e.ActionType, &e.Payload, &e.Status, &e.Attempts, &e.MaxAttempts,
		&lastAttemptedAt, &e.CreatedAt, &e.ExternalID, &e.ErrorMessage)
	if err != nil {
		return domain.Entry{}, err
	}
	if lastAttemptedAt != nil {
		e.LastAttemptedAt = *lastAttemptedAt
	}
	return e, nil
}
