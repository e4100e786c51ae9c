package orchestrators

import (
	"context"
	"log/slog"
)

// EventStoreForDelete defines the store interface needed by DeleteEvent.
type EventStoreForDelete interface {
	Delete(ctx context.Context, id string) error
}

// DeleteEventInput carries input for DeleteEvent.
type DeleteEventInput struct {
	EventID string
}

// DeleteEventDeps holds dependencies for DeleteEvent.
type DeleteEventDeps struct {
	EventStore EventStoreForDelete
}

// ExecuteDeleteEvent removes an event. Its registrations are removed by
// the storage cascade.
// PRE: EventID is non-empty
// POST: Event and its registrations no longer exist
func ExecuteDeleteEvent(ctx context.Context, input DeleteEventInput, deps DeleteEventDeps) error {
	if err := deps.EventStore.Delete(ctx, input.EventID); err != nil {
		return err
	}
	slog.Info("admin_event", "event", "event_deleted", "event_id", input.EventID)
	return nil
}

// RegistrationStoreForDelete defines the store interface needed by DeleteRegistration.
type RegistrationStoreForDelete interface {
	Delete(ctx context.Context, id string) error
}

// DeleteRegistrationInput carries input for DeleteRegistration.
type DeleteRegistrationInput struct {
	RegistrationID string
}

// DeleteRegistrationDeps holds dependencies for DeleteRegistration.
type DeleteRegistrationDeps struct {
	RegistrationStore RegistrationStoreForDelete
}

// ExecuteDeleteRegistration removes one registration, freeing its spot.
// PRE: RegistrationID is non-empty
// POST: Registration no longer exists
func ExecuteDeleteRegistration(ctx context.Context, input DeleteRegistrationInput, deps DeleteRegistrationDeps) error {
	if err := deps.RegistrationStore.Delete(ctx, input.RegistrationID); err != nil {
		return err
	}
	slog.Info("admin_event", "event", "registration_deleted", "registration_id", input.RegistrationID)
	return nil
}
