package event

import (
	"context"
	"time"

	domain "astres/internal/domain/event"
)

// Store persists Event state and reads events with their registration counts.
type Store interface {
	GetByID(ctx context.Context, id string) (domain.Event, error)
	GetSummary(ctx context.Context, id string) (domain.Summary, error)
	Create(ctx context.Context, value domain.Event) error
	Update(ctx context.Context, value domain.Event) error
	Delete(ctx context.Context, id string) error
	ListSummaries(ctx context.Context, filter ListFilter) ([]domain.Summary, error)
}

// ListFilter carries filtering parameters for ListSummaries.
// Results are always ordered by date, then start time.
type ListFilter struct {
	From       time.Time // zero means no lower bound; compared on civil date
	ActiveOnly bool
}
