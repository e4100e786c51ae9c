package event

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"astres/internal/adapters/storage"
	domain "astres/internal/domain/event"
)

const summaryColumns = "id, title, event_date, event_time, location, max_participants, min_price, is_active, description, created_at, registration_count"

// SQLiteStore implements Store using SQLite.
type SQLiteStore struct {
	db storage.SQLDB
}

// NewSQLiteStore creates a new event store.
func NewSQLiteStore(db storage.SQLDB) *SQLiteStore {
	return &SQLiteStore{db: db}
}

// GetByID retrieves an Event by its ID.
// PRE: id is non-empty
// POST: Returns the entity or domain.ErrNotFound
func (s *SQLiteStore) GetByID(ctx context.Context, id string) (domain.Event, error) {
	sum, err := s.GetSummary(ctx, id)
	return sum.Event, err
}

// GetSummary retrieves an Event with its registration count.
// PRE: id is non-empty
// POST: Returns the summary or domain.ErrNotFound
func (s *SQLiteStore) GetSummary(ctx context.Context, id string) (domain.Summary, error) {
	row := s.db.QueryRowContext(ctx, "SELECT "+summaryColumns+" FROM event_summary WHERE id = ?", id)
	sum, err := scanSummary(row.Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Summary{}, domain.ErrNotFound
	}
	return sum, err
}

// Create inserts a new Event.
// PRE: entity has been normalized and validated
// POST: Entity is persisted
func (s *SQLiteStore) Create(ctx context.Context, e domain.Event) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO event (id, title, event_date, event_time, location, max_participants, min_price, is_active, description, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.ID, e.Title, e.Date.Format(domain.DateLayout), e.Time, e.Location,
		e.MaxParticipants, e.MinPrice, e.Active, nullString(e.Description), storage.FormatTime(e.CreatedAt))
	if err != nil {
		return fmt.Errorf("insert event: %w", err)
	}
	return nil
}

// Update overwrites the editable fields of an existing Event.
// PRE: entity has been normalized and validated
// POST: Entity is updated, or domain.ErrNotFound if no row matched
func (s *SQLiteStore) Update(ctx context.Context, e domain.Event) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE event SET title = ?, event_date = ?, event_time = ?, location = ?,
		   max_participants = ?, min_price = ?, is_active = ?, description = ?
		 WHERE id = ?`,
		e.Title, e.Date.Format(domain.DateLayout), e.Time, e.Location,
		e.MaxParticipants, e.MinPrice, e.Active, nullString(e.Description), e.ID)
	if err != nil {
		return fmt.Errorf("update event: %w", err)
	}
	return requireRow(res)
}

// Delete removes an Event; its registrations go with it.
// PRE: id is non-empty
// POST: Event and registrations removed, or domain.ErrNotFound
func (s *SQLiteStore) Delete(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, "DELETE FROM event WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("delete event: %w", err)
	}
	return requireRow(res)
}

// ListSummaries returns events with registration counts, ordered by date then time.
// PRE: none
// POST: Returns matching summaries (possibly empty)
func (s *SQLiteStore) ListSummaries(ctx context.Context, filter ListFilter) ([]domain.Summary, error) {
	var queryBuilder strings.Builder
	var conditions []string
	var args []any

	queryBuilder.WriteString("SELECT " + summaryColumns + " FROM event_summary")
	if filter.ActiveOnly {
		conditions = append(conditions, "is_active = 1")
	}
	if !filter.From.IsZero() {
		conditions = append(conditions, "event_date >= ?")
		args = append(args, filter.From.Format(domain.DateLayout))
	}
	if len(conditions) > 0 {
		queryBuilder.WriteString(" WHERE " + strings.Join(conditions, " AND "))
	}
	queryBuilder.WriteString(" ORDER BY event_date ASC, event_time ASC")

	rows, err := s.db.QueryContext(ctx, queryBuilder.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	defer rows.Close()

	var results []domain.Summary
	for rows.Next() {
		sum, err := scanSummary(rows.Scan)
		if err != nil {
			return nil, err
		}
		results = append(results, sum)
	}
	return results, rows.Err()
}

// scanSummary extracts a Summary from a row scanner function.
func scanSummary(scan func(dest ...any) error) (domain.Summary, error) {
	var sum domain.Summary
	var date, createdAt string
	var description sql.NullString
	err := scan(
		&sum.ID,
		&sum.Title,
		&date,
		&sum.Time,
		&sum.Location,
		&sum.MaxParticipants,
		&sum.MinPrice,
		&sum.Active,
		&description,
		&createdAt,
		&sum.RegistrationCount,
	)
	if err != nil {
		return domain.Summary{}, err
	}
	sum.Description = description.String
	if sum.Date, err = domain.ParseDate(date); err != nil {
		return domain.Summary{}, err
	}
	sum.CreatedAt, _ = storage.ParseTime(createdAt)
	sum.Normalize()
	return sum, nil
}

func requireRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
