package registration

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"astres/internal/adapters/storage"
	eventdomain "astres/internal/domain/event"
	domain "astres/internal/domain/registration"
)

// SQLiteStore implements Store using SQLite.
type SQLiteStore struct {
	db storage.SQLDB
}

// NewSQLiteStore creates a new registration store.
func NewSQLiteStore(db storage.SQLDB) *SQLiteStore {
	return &SQLiteStore{db: db}
}

// Create inserts the registration only while the event has fewer
// registrations than its capacity. The count and the insert are one
// statement, so SQLite's write lock makes the check atomic.
// PRE: entity has been normalized and validated
// POST: Row inserted, or a domain error explaining why not
func (s *SQLiteStore) Create(ctx context.Context, r domain.Registration) error {
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO registration (id, event_id, name, email, phone, message, created_at)
		 SELECT ?, e.id, ?, ?, ?, ?, ?
		 FROM event e
		 WHERE e.id = ?
		   AND (SELECT COUNT(*) FROM registration WHERE event_id = e.id) < e.max_participants`,
		r.ID, r.Name, r.Email, nullString(r.Phone), nullString(r.Message), storage.FormatTime(r.CreatedAt),
		r.EventID)
	if err != nil {
		if storage.IsUniqueViolation(err) {
			return domain.ErrDuplicate
		}
		return fmt.Errorf("insert registration: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("insert registration: %w", err)
	}
	if n == 1 {
		return nil
	}

	var exists int
	err = s.db.QueryRowContext(ctx, "SELECT 1 FROM event WHERE id = ?", r.EventID).Scan(&exists)
	if errors.Is(err, sql.ErrNoRows) {
		return eventdomain.ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("check event: %w", err)
	}
	return domain.ErrEventFull
}

// GetByID finds a registration by id.
// POST: Returns the registration or domain.ErrNotFound
func (s *SQLiteStore) GetByID(ctx context.Context, id string) (domain.Registration, error) {
	return s.getOne(ctx, "id = ?", id)
}

// GetByEventAndEmail finds the registration of email for an event.
// POST: Returns the registration or domain.ErrNotFound
func (s *SQLiteStore) GetByEventAndEmail(ctx context.Context, eventID, email string) (domain.Registration, error) {
	return s.getOne(ctx, "event_id = ? AND email = ?", eventID, email)
}

func (s *SQLiteStore) getOne(ctx context.Context, where string, args ...any) (domain.Registration, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, event_id, name, email, phone, message, created_at
		 FROM registration WHERE `+where, args...)

	var r domain.Registration
	var phone, message sql.NullString
	var createdAt string
	err := row.Scan(&r.ID, &r.EventID, &r.Name, &r.Email, &phone, &message, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Registration{}, domain.ErrNotFound
	}
	if err != nil {
		return domain.Registration{}, fmt.Errorf("get registration: %w", err)
	}
	r.Phone, r.Message = phone.String, message.String
	r.CreatedAt, _ = storage.ParseTime(createdAt)
	return r, nil
}

// Delete removes a registration.
// PRE: id is non-empty
// POST: Row removed, or domain.ErrNotFound
func (s *SQLiteStore) Delete(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, "DELETE FROM registration WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("delete registration: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// List returns registrations joined with their event, newest first.
// PRE: none
// POST: Returns matching listings (possibly empty)
func (s *SQLiteStore) List(ctx context.Context, filter ListFilter) ([]domain.Listing, error) {
	query := `SELECT r.id, r.event_id, r.name, r.email, r.phone, r.message, r.created_at, e.title, e.event_date
		FROM registration r
		LEFT JOIN event e ON e.id = r.event_id`
	var args []any
	if filter.EventID != "" {
		query += " WHERE r.event_id = ?"
		args = append(args, filter.EventID)
	}
	query += " ORDER BY r.created_at DESC"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list registrations: %w", err)
	}
	defer rows.Close()

	var results []domain.Listing
	for rows.Next() {
		var l domain.Listing
		var phone, message, title, date sql.NullString
		var createdAt string
		if err := rows.Scan(&l.ID, &l.EventID, &l.Name, &l.Email, &phone, &message, &createdAt, &title, &date); err != nil {
			return nil, err
		}
		l.Phone, l.Message = phone.String, message.String
		l.CreatedAt, _ = storage.ParseTime(createdAt)
		if title.Valid {
			l.EventKnown = true
			l.EventTitle = title.String
			l.EventDate, _ = eventdomain.ParseDate(date.String)
		}
		results = append(results, l)
	}
	return results, rows.Err()
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
