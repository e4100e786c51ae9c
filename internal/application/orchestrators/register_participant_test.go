package orchestrators

import (
	"context"
	"errors"
	"testing"

	"astres/internal/domain/event"
	"astres/internal/domain/outbox"
	"astres/internal/domain/registration"
)

func registrationFixture(id, eventID, email string) registration.Registration {
	return registration.Registration{ID: id, EventID: eventID, Name: "Alice", Email: email, CreatedAt: fixedTime}
}

type registerFixture struct {
	events  *mockEventStore
	regs    *mockRegistrationStore
	outbox  *mockOutboxStore
	deps    RegisterParticipantDeps
	eventID string
}

func newRegisterFixture(capacity, registered int) *registerFixture {
	f := &registerFixture{
		events:  newMockEventStore(),
		regs:    newMockRegistrationStore(),
		outbox:  newMockOutboxStore(),
		eventID: "ev-1",
	}
	f.events.events["ev-1"] = event.Event{
		ID: "ev-1", Title: "Bain sonore", Date: fixedTime, Time: "19:30",
		Location: "Saint-Zacharie", MaxParticipants: capacity, MinPrice: 15, Active: true,
	}
	f.events.counts["ev-1"] = registered
	f.deps = RegisterParticipantDeps{
		EventStore:        f.events,
		RegistrationStore: f.regs,
		OutboxStore:       f.outbox,
		GenerateID:        sequentialIDs(),
		Now:               fixedNow,
	}
	return f
}

func TestExecuteRegisterParticipant_Success(t *testing.T) {
	f := newRegisterFixture(10, 3)
	res, err := ExecuteRegisterParticipant(context.Background(), RegisterParticipantInput{
		EventID: "ev-1", Name: " Alice ", Email: "Alice@Example.com", Phone: "0600000000",
	}, f.deps)
	if err != nil {
		t.Fatalf("ExecuteRegisterParticipant() error = %v", err)
	}
	if res.Registration.Email != "alice@example.com" || res.Registration.Name != "Alice" {
		t.Errorf("registration not normalized: %+v", res.Registration)
	}
	if res.Event.RegistrationCount != 4 {
		t.Errorf("RegistrationCount = %d, want 4", res.Event.RegistrationCount)
	}
	if f.regs.creates != 1 {
		t.Errorf("creates = %d, want 1", f.regs.creates)
	}

	emails := f.outbox.byAction(outbox.ActionTypeRegistrationEmail)
	notices := f.outbox.byAction(outbox.ActionTypeOperatorNotice)
	if len(emails) != 1 || len(notices) != 1 {
		t.Fatalf("queued emails=%d notices=%d, want 1 each", len(emails), len(notices))
	}
	var p RegistrationEmailPayload
	if err := emails[0].DecodePayload(&p); err != nil {
		t.Fatalf("decode payload: %v", err)
	}
	if p.To != "alice@example.com" || p.EventTitle != "Bain sonore" || p.EventDate != "2026-03-01" || p.MinPrice != 15 {
		t.Errorf("unexpected email payload: %+v", p)
	}
	var n OperatorNoticePayload
	if err := notices[0].DecodePayload(&n); err != nil {
		t.Fatalf("decode notice: %v", err)
	}
	if n.Count != 4 || n.Max != 10 || n.Phone != "0600000000" {
		t.Errorf("unexpected notice payload: %+v", n)
	}
}

func TestExecuteRegisterParticipant_Rejections(t *testing.T) {
	tests := []struct {
		name        string
		capacity    int
		registered  int
		setup       func(*registerFixture)
		input       RegisterParticipantInput
		wantErr     error
		wantCreates int
	}{
		{
			name: "full at precheck", capacity: 2, registered: 2,
			input:   RegisterParticipantInput{EventID: "ev-1", Name: "Bob", Email: "bob@example.com"},
			wantErr: registration.ErrEventFull,
		},
		{
			name: "duplicate at precheck", capacity: 10,
			setup: func(f *registerFixture) {
				f.regs.regs["r0"] = registrationFixture("r0", "ev-1", "bob@example.com")
			},
			input:   RegisterParticipantInput{EventID: "ev-1", Name: "Bob", Email: "BOB@example.com"},
			wantErr: registration.ErrDuplicate,
		},
		{
			name: "unknown event", capacity: 10,
			input:   RegisterParticipantInput{EventID: "nope", Name: "Bob", Email: "bob@example.com"},
			wantErr: event.ErrNotFound,
		},
		{
			name: "invalid email", capacity: 10,
			input:   RegisterParticipantInput{EventID: "ev-1", Name: "Bob", Email: "bob"},
			wantErr: registration.ErrInvalidEmail,
		},
		{
			name: "missing name", capacity: 10,
			input:   RegisterParticipantInput{EventID: "ev-1", Email: "bob@example.com"},
			wantErr: registration.ErrEmptyName,
		},
		{
			// Lost the race: the store refuses the insert after prechecks passed.
			name: "full on insert", capacity: 10,
			setup:   func(f *registerFixture) { f.regs.createErr = registration.ErrEventFull },
			input:   RegisterParticipantInput{EventID: "ev-1", Name: "Bob", Email: "bob@example.com"},
			wantErr: registration.ErrEventFull,
		},
		{
			name: "duplicate on insert", capacity: 10,
			setup:   func(f *registerFixture) { f.regs.createErr = registration.ErrDuplicate },
			input:   RegisterParticipantInput{EventID: "ev-1", Name: "Bob", Email: "bob@example.com"},
			wantErr: registration.ErrDuplicate,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newRegisterFixture(tt.capacity, tt.registered)
			if tt.setup != nil {
				tt.setup(f)
			}
			_, err := ExecuteRegisterParticipant(context.Background(), tt.input, f.deps)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("error = %v, want %v", err, tt.wantErr)
			}
			if f.regs.creates != tt.wantCreates {
				t.Errorf("creates = %d, want %d", f.regs.creates, tt.wantCreates)
			}
			if len(f.outbox.entries) != 0 {
				t.Errorf("a rejected registration must not queue side effects, got %d", len(f.outbox.entries))
			}
		})
	}
}

// TestExecuteRegisterParticipant_UnknownStoreError checks that an error the
// store does not classify is wrapped and never mistaken for a known conflict.
func TestExecuteRegisterParticipant_UnknownStoreError(t *testing.T) {
	for _, step := range []string{"lookup", "insert"} {
		t.Run(step, func(t *testing.T) {
			f := newRegisterFixture(10, 0)
			if step == "lookup" {
				f.regs.lookupErr = errBoom
			} else {
				f.regs.createErr = errBoom
			}
			_, err := ExecuteRegisterParticipant(context.Background(), RegisterParticipantInput{EventID: "ev-1", Name: "Bob", Email: "bob@example.com"}, f.deps)
			if !errors.Is(err, errBoom) {
				t.Fatalf("error = %v, want wrapped errBoom", err)
			}
			if errors.Is(err, registration.ErrDuplicate) || errors.Is(err, registration.ErrEventFull) {
				t.Error("unknown error classified as a conflict")
			}
		})
	}
}

// TestExecuteRegisterParticipant_OutboxFailure checks that a failing outbox
// does not undo a stored registration.
func TestExecuteRegisterParticipant_OutboxFailure(t *testing.T) {
	f := newRegisterFixture(10, 0)
	f.outbox.saveErr = errBoom
	if _, err := ExecuteRegisterParticipant(context.Background(), RegisterParticipantInput{EventID: "ev-1", Name: "Bob", Email: "bob@example.com"}, f.deps); err != nil {
		t.Fatalf("error = %v, want nil", err)
	}
	if f.regs.creates != 1 {
		t.Error("registration should be stored")
	}
}
