package projections

import (
	"context"
	"fmt"
	"time"

	"astres/internal/adapters/storage/event"
	domainEvent "astres/internal/domain/event"
)

// ListAdminEventsQuery carries query parameters.
type ListAdminEventsQuery struct {
	Today time.Time // civil date used for the "Passé" badge
}

// AdminEvent is one card of the admin event list.
type AdminEvent struct {
	domainEvent.Summary
	Past bool
}

// ListAdminEventsResult carries the query result.
type ListAdminEventsResult struct {
	Events []AdminEvent
}

// ListEventsDeps holds dependencies for the event list projections.
type ListEventsDeps struct {
	EventStore EventStore
}

// QueryListAdminEvents lists every event, inactive and past ones included.
// PRE: none
// POST: Events ordered by date then time ascending
func QueryListAdminEvents(ctx context.Context, query ListAdminEventsQuery, deps ListEventsDeps) (ListAdminEventsResult, error) {
	summaries, err := deps.EventStore.ListSummaries(ctx, event.ListFilter{})
	if err != nil {
		return ListAdminEventsResult{}, fmt.Errorf("list events: %w", err)
	}
	events := make([]AdminEvent, 0, len(summaries))
	for _, s := range summaries {
		events = append(events, AdminEvent{Summary: s, Past: s.IsPast(query.Today)})
	}
	return ListAdminEventsResult{Events: events}, nil
}

// ListPublicEventsQuery carries query parameters.
type ListPublicEventsQuery struct {
	Today time.Time // in the site time zone
}

// ListPublicEventsResult carries the query result.
type ListPublicEventsResult struct {
	Events []domainEvent.Summary
}

// QueryListPublicEvents lists the catalogue shown to visitors.
// PRE: none
// POST: Only active events dated today or later, ordered by date then time
// INVARIANT: an event happening today is still listed
func QueryListPublicEvents(ctx context.Context, query ListPublicEventsQuery, deps ListEventsDeps) (ListPublicEventsResult, error) {
	summaries, err := deps.EventStore.ListSummaries(ctx, event.ListFilter{
		From:       domainEvent.CivilDate(query.Today),
		ActiveOnly: true,
	})
	if err != nil {
		return ListPublicEventsResult{}, fmt.Errorf("list public events: %w", err)
	}
	return ListPublicEventsResult{Events: summaries}, nil
}
