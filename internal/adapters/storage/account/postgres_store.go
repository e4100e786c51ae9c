package account

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"astres/internal/adapters/storage"
	domain "astres/internal/domain/account"
)

// PostgresStore implements Store using PostgreSQL.
type PostgresStore struct {
	db storage.PgxDB
}

// NewPostgresStore creates a new account store backed by a pgx pool.
func NewPostgresStore(db storage.PgxDB) *PostgresStore {
	return &PostgresStore{db: db}
}

// GetByID retrieves an Account by its ID.
func (s *PostgresStore) GetByID(ctx context.Context, id string) (domain.Account, error) {
	return scanPgAccount(s.db.QueryRow(ctx, "SELECT "+accountColumns+" FROM account WHERE id = $1", id))
}

// GetByEmail retrieves an Account by email.
func (s *PostgresStore) GetByEmail(ctx context.Context, email string) (domain.Account, error) {
	return scanPgAccount(s.db.QueryRow(ctx, "SELECT "+accountColumns+" FROM account WHERE email = $1", email))
}

// Save persists an Account to the database.
func (s *PostgresStore) Save(ctx context.Context, a domain.Account) error {
	var lockedUntil *time.Time
	if !a.LockedUntil.IsZero() {
		lockedUntil = &a.LockedUntil
	}
	_, err := s.db.Exec(ctx,
		`INSERT INTO account (`+accountColumns+`) VALUES ($1, $2, $3, $4, $5, $6, $7)
		 ON CONFLICT (id) DO UPDATE SET
		   email = EXCLUDED.email, password_hash = EXCLUDED.password_hash, role = EXCLUDED.role,
		   failed_logins = EXCLUDED.failed_logins, locked_until = EXCLUDED.locked_until`,
		a.ID, a.Email, a.PasswordHash, a.Role, a.CreatedAt, a.FailedLogins, lockedUntil)
	if err != nil {
		return fmt.Errorf("save account: %w", err)
	}
	return nil
}

// Count returns the total number of accounts.
func (s *PostgresStore) Count(ctx context.Context) (int, error) {
	var count int
	err := s.db.QueryRow(ctx, "SELECT COUNT(*) FROM account").Scan(&count)
	return count, err
}

func scanPgAccount(row pgx.Row) (domain.Account, error) {
	var a domain.Account
	var lockedUntil *time.Time
	err := row.Scan(&a.ID, &a.Email, &a.PasswordHash, &a.Role, &a.CreatedAt, &a.FailedLogins, &lockedUntil)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Account{}, domain.ErrNotFound
	}
	if err != nil {
		return domain.Account{}, fmt.Errorf("scan account: %w", err)
	}
	if lockedUntil != nil {
		a.LockedUntil = *lockedUntil
	}
	return a, nil
}
