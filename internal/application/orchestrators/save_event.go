package orchestrators

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"astres/internal/domain/event"
)

// EventStoreForSave defines the store interface needed by SaveEvent.
type EventStoreForSave interface {
	GetByID(ctx context.Context, id string) (event.Event, error)
	Create(ctx context.Context, e event.Event) error
	Update(ctx context.Context, e event.Event) error
}

// SaveEventInput carries the raw admin form. An empty ID creates an event,
// a non-empty one updates it.
type SaveEventInput struct {
	ID              string
	Title           string
	Date            string // YYYY-MM-DD
	Time            string // HH:MM
	Location        string
	MaxParticipants string
	MinPrice        string
	Description     string
	Active          bool
}

// SaveEventDeps holds dependencies for SaveEvent.
type SaveEventDeps struct {
	EventStore EventStoreForSave
	GenerateID func() string
	Now        func() time.Time
}

// ExecuteSaveEvent coerces the form, applies defaults, validates and
// inserts or updates the event.
// PRE: none; every field may be blank or malformed
// POST: Event persisted, or a domain validation error / store error returned
// INVARIANT: blank location becomes event.DefaultLocation; blank or
// malformed price becomes 0
func ExecuteSaveEvent(ctx context.Context, input SaveEventInput, deps SaveEventDeps) (event.Event, error) {
	e := event.Event{
		ID:          strings.TrimSpace(input.ID),
		Title:       input.Title,
		Time:        input.Time,
		Location:    input.Location,
		MinPrice:    parsePrice(input.MinPrice),
		Active:      input.Active,
		Description: input.Description,
	}
	if strings.TrimSpace(input.Date) != "" {
		d, err := event.ParseDate(input.Date)
		if err != nil {
			return e, event.ErrMissingDate
		}
		e.Date = d
	}
	if n, err := strconv.Atoi(strings.TrimSpace(input.MaxParticipants)); err == nil {
		e.MaxParticipants = n
	}

	e.Normalize()
	if err := e.Validate(); err != nil {
		return e, err
	}

	if e.ID == "" {
		e.ID = deps.GenerateID()
		e.CreatedAt = deps.Now()
		if err := deps.EventStore.Create(ctx, e); err != nil {
			return e, err
		}
		slog.Info("admin_event", "event", "event_created", "event_id", e.ID, "title", e.Title)
		return e, nil
	}

	existing, err := deps.EventStore.GetByID(ctx, e.ID)
	if err != nil {
		return e, fmt.Errorf("load event %s: %w", e.ID, err)
	}
	e.CreatedAt = existing.CreatedAt
	if err := deps.EventStore.Update(ctx, e); err != nil {
		return e, err
	}
	slog.Info("admin_event", "event", "event_updated", "event_id", e.ID, "title", e.Title)
	return e, nil
}

// parsePrice accepts "15", "12.5" and "12,5"; anything else is 0.
func parsePrice(s string) float64 {
	s = strings.ReplaceAll(strings.TrimSpace(s), ",", ".")
	p, err := strconv.ParseFloat(s, 64)
	if err != nil || p < 0 {
		return event.DefaultMinPrice
	}
	return p
}
