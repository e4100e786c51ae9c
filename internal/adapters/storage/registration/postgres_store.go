package registration

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"astres/internal/adapters/storage"
	eventdomain "astres/internal/domain/event"
	domain "astres/internal/domain/registration"
)

// PostgresStore implements Store using PostgreSQL.
type PostgresStore struct {
	db storage.PgxDB
}

// NewPostgresStore creates a new registration store backed by a pgx pool.
func NewPostgresStore(db storage.PgxDB) *PostgresStore {
	return &PostgresStore{db: db}
}

// Create locks the event row, counts its registrations and inserts inside
// one transaction. Concurrent creates for the same event queue on the lock.
// PRE: entity has been normalized and validated
// POST: Row inserted, or a domain error explaining why not
func (s *PostgresStore) Create(ctx context.Context, r domain.Registration) error {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin registration: %w", err)
	}
	defer tx.Rollback(ctx)

	var capacity int
	err = tx.QueryRow(ctx, "SELECT max_participants FROM event WHERE id = $1 FOR UPDATE", r.EventID).Scan(&capacity)
	if errors.Is(err, pgx.ErrNoRows) {
		return eventdomain.ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("lock event: %w", err)
	}

	var count int
	if err := tx.QueryRow(ctx, "SELECT COUNT(*) FROM registration WHERE event_id = $1", r.EventID).Scan(&count); err != nil {
		return fmt.Errorf("count registrations: %w", err)
	}
	if count >= capacity {
		return domain.ErrEventFull
	}

	_, err = tx.Exec(ctx,
		`INSERT INTO registration (id, event_id, name, email, phone, message, created_at)
		 VALUES ($1, $2, $3, $4, NULLIF($5, ''), NULLIF($6, ''), $7)`,
		r.ID, r.EventID, r.Name, r.Email, r.Phone, r.Message, r.CreatedAt)
	if err != nil {
		if storage.IsUniqueViolation(err) {
			return domain.ErrDuplicate
		}
		return fmt.Errorf("insert registration: %w", err)
	}
	return tx.Commit(ctx)
}

// GetByID finds a registration by id.
func (s *PostgresStore) GetByID(ctx context.Context, id string) (domain.Registration, error) {
	return s.getOne(ctx, "id = $1", id)
}

// GetByEventAndEmail finds the registration of email for an event.
func (s *PostgresStore) GetByEventAndEmail(ctx context.Context, eventID, email string) (domain.Registration, error) {
	return s.getOne(ctx, "event_id = $1 AND email = $2", eventID, email)
}

func (s *PostgresStore) getOne(ctx context.Context, where string, args ...any) (domain.Registration, error) {
	var r domain.Registration
	err := s.db.QueryRow(ctx,
		`SELECT id, event_id, name, email, coalesce(phone, ''), coalesce(message, ''), created_at
		 FROM registration WHERE `+where, args...).
		Scan(&r.ID, &r.EventID, &r.Name, &r.Email, &r.Phone, &r.Message, &r.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Registration{}, domain.ErrNotFound
	}
	if err != nil {
		return domain.Registration{}, fmt.Errorf("get registration: %w", err)
	}
	return r, nil
}

// Delete removes a registration.
func (s *PostgresStore) Delete(ctx context.Context, id string) error {
	tag, err := s.db.Exec(ctx, "DELETE FROM registration WHERE id = $1", id)
	if err != nil {
		return fmt.Errorf("delete registration: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// List returns registrations joined with their event, newest first.
func (s *PostgresStore) List(ctx context.Context, filter ListFilter) ([]domain.Listing, error) {
	query := `SELECT r.id, r.event_id, r.name, r.email, coalesce(r.phone, ''), coalesce(r.message, ''), r.created_at, e.title, e.event_date
		FROM registration r
		LEFT JOIN event e ON e.id = r.event_id`
	var args []any
	if filter.EventID != "" {
		query += " WHERE r.event_id = $1"
		args = append(args, filter.EventID)
	}
	query += " ORDER BY r.created_at DESC"

	rows, err := s.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list registrations: %w", err)
	}
	defer rows.Close()

	var results []domain.Listing
	for rows.Next() {
		var l domain.Listing
		var title *string
		var date *time.Time
		if err := rows.Scan(&l.ID, &l.EventID, &l.Name, &l.Email, &l.Phone, &l.Message, &l.CreatedAt, &title, &date); err != nil {
			return nil, err
		}
		if title != nil {
			l.EventKnown = true
			l.EventTitle = *title
			if date != nil {
				l.EventDate = eventdomain.CivilDate(*date)
			}
		}
		results = append(results, l)
	}
	return results, rows.Err()
}
