package projections

import (
	"context"

	"astres/internal/adapters/storage/event"
	"astres/internal/adapters/storage/registration"
	domainEvent "astres/internal/domain/event"
	domainOutbox "astres/internal/domain/outbox"
	domainRegistration "astres/internal/domain/registration"
)

// EventStore interface for event queries.
type EventStore interface {
	ListSummaries(ctx context.Context, filter event.ListFilter) ([]domainEvent.Summary, error)
}

// RegistrationStore interface for registration queries.
type RegistrationStore interface {
	List(ctx context.Context, filter registration.ListFilter) ([]domainRegistration.Listing, error)
}

// OutboxStore interface for outbox queries.
type OutboxStore interface {
	ListPending(ctx context.Context, limit int) ([]domainOutbox.Entry, error)
	ListFailed(ctx context.Context, limit int) ([]domainOutbox.Entry, error)
}
