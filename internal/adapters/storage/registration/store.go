package registration

import (
	"context"

	domain "astres/internal/domain/registration"
)

// Store persists registrations.
//
// INVARIANT: Create never stores more registrations for an event than its
// max_participants, and never two registrations with the same (event, email),
// whatever the interleaving of concurrent calls.
type Store interface {
	// Create inserts a registration if the event still has a free spot.
	// POST: nil, or event.ErrNotFound, domain.ErrEventFull, domain.ErrDuplicate,
	// or a wrapped driver error for anything else
	Create(ctx context.Context, value domain.Registration) error
	GetByID(ctx context.Context, id string) (domain.Registration, error)
	GetByEventAndEmail(ctx context.Context, eventID, email string) (domain.Registration, error)
	Delete(ctx context.Context, id string) error
	// List returns registrations joined with their event, newest first.
	List(ctx context.Context, filter ListFilter) ([]domain.Listing, error)
}

// ListFilter carries filtering parameters for List.
type ListFilter struct {
	EventID string // empty means all events
}
