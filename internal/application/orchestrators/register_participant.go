package orchestrators

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"astres/internal/domain/event"
	"astres/internal/domain/outbox"
	"astres/internal/domain/registration"
)

// EventReaderForRegister defines the event lookup needed by RegisterParticipant.
type EventReaderForRegister interface {
	GetSummary(ctx context.Context, id string) (event.Summary, error)
}

// RegistrationStoreForRegister defines the store interface needed by RegisterParticipant.
type RegistrationStoreForRegister interface {
	GetByEventAndEmail(ctx context.Context, eventID, email string) (registration.Registration, error)
	Create(ctx context.Context, r registration.Registration) error
}

// OutboxWriter queues side effects for the outbox worker.
type OutboxWriter interface {
	Save(ctx context.Context, e outbox.Entry) error
}

// RegisterParticipantInput carries the public registration form.
type RegisterParticipantInput struct {
	EventID string
	Name    string
	Email   string
	Phone   string
	Message string
}

// RegisterParticipantDeps holds dependencies for RegisterParticipant.
type RegisterParticipantDeps struct {
	EventStore        EventReaderForRegister
	RegistrationStore RegistrationStoreForRegister
	OutboxStore       OutboxWriter
	GenerateID        func() string
	Now               func() time.Time
}

// RegisterParticipantResult carries the stored registration and the event
// as it was checked.
type RegisterParticipantResult struct {
	Registration registration.Registration
	Event        event.Summary
}

// RegistrationEmailPayload is the outbox payload of the confirmation email.
type RegistrationEmailPayload struct {
	To         string  `json:"to"`
	Name       string  `json:"name"`
	EventID    string  `json:"event_id"`
	EventTitle string  `json:"event_title"`
	EventDate  string  `json:"event_date"`
	EventTime  string  `json:"event_time"`
	Location   string  `json:"location"`
	MinPrice   float64 `json:"min_price"`
}

// OperatorNoticePayload is the outbox payload of the operator notification.
type OperatorNoticePayload struct {
	Name       string    `json:"name"`
	Email      string    `json:"email"`
	Phone      string    `json:"phone,omitempty"`
	Message    string    `json:"message,omitempty"`
	EventTitle string    `json:"event_title"`
	EventDate  string    `json:"event_date"`
	EventTime  string    `json:"event_time"`
	Count      int       `json:"count"`
	Max        int       `json:"max"`
	At         time.Time `json:"at"`
}

// ExecuteRegisterParticipant registers someone for an event in three
// sequential steps: spot check, duplicate check, insert. The first two are
// shortcuts for a friendly message; the store enforces both rules on insert.
// PRE: none; the input is validated here
// POST: registration stored and side effects queued, or one of
// registration.ErrEventFull, registration.ErrDuplicate, event.ErrNotFound,
// a validation error, or a wrapped unexpected error
func ExecuteRegisterParticipant(ctx context.Context, input RegisterParticipantInput, deps RegisterParticipantDeps) (RegisterParticipantResult, error) {
	reg := registration.Registration{
		EventID: input.EventID,
		Name:    input.Name,
		Email:   input.Email,
		Phone:   input.Phone,
		Message: input.Message,
	}
	reg.Normalize()
	if err := reg.Validate(); err != nil {
		return RegisterParticipantResult{}, err
	}

	// (a) spots
	summary, err := deps.EventStore.GetSummary(ctx, reg.EventID)
	if err != nil {
		if errors.Is(err, event.ErrNotFound) {
			return RegisterParticipantResult{}, err
		}
		return RegisterParticipantResult{}, fmt.Errorf("load event: %w", err)
	}
	if summary.IsFull() {
		slog.Info("registration_event", "event", "rejected_full", "event_id", reg.EventID, "step", "precheck")
		return RegisterParticipantResult{Event: summary}, registration.ErrEventFull
	}

	// (b) duplicate
	_, err = deps.RegistrationStore.GetByEventAndEmail(ctx, reg.EventID, reg.Email)
	switch {
	case err == nil:
		slog.Info("registration_event", "event", "rejected_duplicate", "event_id", reg.EventID, "step", "precheck")
		return RegisterParticipantResult{Event: summary}, registration.ErrDuplicate
	case !errors.Is(err, registration.ErrNotFound):
		return RegisterParticipantResult{Event: summary}, fmt.Errorf("check existing registration: %w", err)
	}

	// (c) insert
	reg.ID = deps.GenerateID()
	reg.CreatedAt = deps.Now()
	if err := deps.RegistrationStore.Create(ctx, reg); err != nil {
		if errors.Is(err, registration.ErrDuplicate) || errors.Is(err, registration.ErrEventFull) || errors.Is(err, event.ErrNotFound) {
			slog.Info("registration_event", "event", "rejected_on_insert", "event_id", reg.EventID, "reason", err.Error())
			return RegisterParticipantResult{Event: summary}, err
		}
		return RegisterParticipantResult{Event: summary}, fmt.Errorf("insert registration: %w", err)
	}
	summary.RegistrationCount++

	slog.Info("registration_event", "event", "registered", "event_id", reg.EventID, "registration_id", reg.ID,
		"count", summary.RegistrationCount, "max", summary.MaxParticipants)

	queueRegistrationSideEffects(ctx, deps, reg, summary)
	return RegisterParticipantResult{Registration: reg, Event: summary}, nil
}

// queueRegistrationSideEffects writes the confirmation email and operator
// notice to the outbox. The registration already succeeded, so failures
// are logged and not returned.
func queueRegistrationSideEffects(ctx context.Context, deps RegisterParticipantDeps, reg registration.Registration, summary event.Summary) {
	if deps.OutboxStore == nil {
		return
	}
	date := summary.Date.Format(event.DateLayout)
	payloads := []struct {
		action  string
		payload any
	}{
		{outbox.ActionTypeRegistrationEmail, RegistrationEmailPayload{
			To: reg.Email, Name: reg.Name, EventID: summary.ID, EventTitle: summary.Title,
			EventDate: date, EventTime: summary.Time, Location: summary.Location, MinPrice: summary.MinPrice,
		}},
		{outbox.ActionTypeOperatorNotice, OperatorNoticePayload{
			Name: reg.Name, Email: reg.Email, Phone: reg.Phone, Message: reg.Message,
			EventTitle: summary.Title, EventDate: date, EventTime: summary.Time,
			Count: summary.RegistrationCount, Max: summary.MaxParticipants, At: reg.CreatedAt,
		}},
	}
	for _, p := range payloads {
		entry, err := outbox.NewEntry(deps.GenerateID(), p.action, p.payload, reg.CreatedAt)
		if err == nil {
			err = deps.OutboxStore.Save(ctx, entry)
		}
		if err != nil {
			slog.Error("outbox_enqueue_failed", "action_type", p.action, "registration_id", reg.ID, "error", err)
		}
	}
}
