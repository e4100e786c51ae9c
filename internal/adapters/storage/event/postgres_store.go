package event

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"astres/internal/adapters/storage"
	domain "astres/internal/domain/event"
)

const pgSummaryColumns = "id, title, event_date, to_char(event_time, 'HH24:MI'), location, max_participants, min_price::float8, is_active, coalesce(description, ''), created_at, registration_count"

// PostgresStore implements Store using PostgreSQL.
type PostgresStore struct {
	db storage.PgxDB
}

// NewPostgresStore creates a new event store backed by a pgx pool.
func NewPostgresStore(db storage.PgxDB) *PostgresStore {
	return &PostgresStore{db: db}
}

// GetByID retrieves an Event by its ID.
func (s *PostgresStore) GetByID(ctx context.Context, id string) (domain.Event, error) {
	sum, err := s.GetSummary(ctx, id)
	return sum.Event, err
}

// GetSummary retrieves an Event with its registration count.
func (s *PostgresStore) GetSummary(ctx context.Context, id string) (domain.Summary, error) {
	row := s.db.QueryRow(ctx, "SELECT "+pgSummaryColumns+" FROM event_summary WHERE id = $1", id)
	sum, err := scanPgSummary(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Summary{}, domain.ErrNotFound
	}
	return sum, err
}

// Create inserts a new Event.
func (s *PostgresStore) Create(ctx context.Context, e domain.Event) error {
	_, err := s.db.Exec(ctx,
		`INSERT INTO event (id, title, event_date, event_time, location, max_participants, min_price, is_active, description, created_at)
		 VALUES ($1, $2, $3, $4::time, $5, $6, $7, $8, NULLIF($9, ''), $10)`,
		e.ID, e.Title, e.Date, e.Time, e.Location,
		e.MaxParticipants, e.MinPrice, e.Active, e.Description, e.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert event: %w", err)
	}
	return nil
}

// Update overwrites the editable fields of an existing Event.
func (s *PostgresStore) Update(ctx context.Context, e domain.Event) error {
	tag, err := s.db.Exec(ctx,
		`UPDATE event SET title = $1, event_date = $2, event_time = $3::time, location = $4,
		   max_participants = $5, min_price = $6, is_active = $7, description = NULLIF($8, '')
		 WHERE id = $9`,
		e.Title, e.Date, e.Time, e.Location,
		e.MaxParticipants, e.MinPrice, e.Active, e.Description, e.ID)
	if err != nil {
		return fmt.Errorf("update event: %w", err)
	}
	return requireTag(tag)
}

// Delete removes an Event; its registrations go with it.
func (s *PostgresStore) Delete(ctx context.Context, id string) error {
	tag, err := s.db.Exec(ctx, "DELETE FROM event WHERE id = $1", id)
	if err != nil {
		return fmt.Errorf("delete event: %w", err)
	}
	return requireTag(tag)
}

// ListSummaries returns events with registration counts, ordered by date then time.
func (s *PostgresStore) ListSummaries(ctx context.Context, filter ListFilter) ([]domain.Summary, error) {
	var queryBuilder strings.Builder
	var conditions []string
	var args []any

	queryBuilder.WriteString("SELECT " + pgSummaryColumns + " FROM event_summary")
	if filter.ActiveOnly {
		conditions = append(conditions, "is_active")
	}
	if !filter.From.IsZero() {
		args = append(args, domain.CivilDate(filter.From))
		conditions = append(conditions, fmt.Sprintf("event_date >= $%d", len(args)))
	}
	if len(conditions) > 0 {
		queryBuilder.WriteString(" WHERE " + strings.Join(conditions, " AND "))
	}
	queryBuilder.WriteString(" ORDER BY event_date ASC, event_time ASC")

	rows, err := s.db.Query(ctx, queryBuilder.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	defer rows.Close()

	var results []domain.Summary
	for rows.Next() {
		sum, err := scanPgSummary(rows)
		if err != nil {
			return nil, err
		}
		results = append(results, sum)
	}
	return results, rows.Err()
}

func scanPgSummary(row pgx.Row) (domain.Summary, error) {
	var sum domain.Summary
	err := row.Scan(
		&sum.ID,
		&sum.Title,
		&sum.Date,
		&sum.Time,
		&sum.Location,
		&sum.MaxParticipants,
		&sum.MinPrice,
		&sum.Active,
		&sum.Description,
		&sum.CreatedAt,
		&sum.RegistrationCount,
	)
	if err != nil {
		return domain.Summary{}, err
	}
	sum.Normalize()
	return sum, nil
}

func requireTag(tag pgconn.CommandTag) error {
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}
