package projections

import (
	"context"
	"fmt"

	"astres/internal/adapters/storage/event"
	"astres/internal/adapters/storage/registration"
	domainEvent "astres/internal/domain/event"
	domainRegistration "astres/internal/domain/registration"
)

// ListRegistrationsQuery carries query parameters.
type ListRegistrationsQuery struct {
	EventID string // empty means all events
}

// ListRegistrationsResult carries the query result.
type ListRegistrationsResult struct {
	Registrations []domainRegistration.Listing
	// EventOptions feeds the filter dropdown.
	EventOptions []domainEvent.Summary
	EventID      string
}

// ListRegistrationsDeps holds dependencies for ListRegistrations.
type ListRegistrationsDeps struct {
	RegistrationStore RegistrationStore
	EventStore        EventStore
}

// QueryListRegistrations lists registrations, newest first, optionally for
// one event, along with the events offered by the filter.
// PRE: none
// POST: EventID echoes the selected filter
func QueryListRegistrations(ctx context.Context, query ListRegistrationsQuery, deps ListRegistrationsDeps) (ListRegistrationsResult, error) {
	listings, err := deps.RegistrationStore.List(ctx, registration.ListFilter{EventID: query.EventID})
	if err != nil {
		return ListRegistrationsResult{}, fmt.Errorf("list registrations: %w", err)
	}
	options, err := deps.EventStore.ListSummaries(ctx, event.ListFilter{})
	if err != nil {
		return ListRegistrationsResult{}, fmt.Errorf("list filter events: %w", err)
	}
	return ListRegistrationsResult{
		Registrations: listings,
		EventOptions:  options,
		EventID:       query.EventID,
	}, nil
}
