package projections

import (
	"context"
	"errors"
	"testing"
	"time"

	"astres/internal/adapters/storage/event"
	"astres/internal/adapters/storage/registration"
	domainEvent "astres/internal/domain/event"
	domainOutbox "astres/internal/domain/outbox"
	domainRegistration "astres/internal/domain/registration"
)

type mockEventStore struct {
	summaries []domainEvent.Summary
	filters   []event.ListFilter
	err       error
}

// ListSummaries applies the filter like the storage adapters do.
func (m *mockEventStore) ListSummaries(_ context.Context, f event.ListFilter) ([]domainEvent.Summary, error) {
	m.filters = append(m.filters, f)
	if m.err != nil {
		return nil, m.err
	}
	var out []domainEvent.Summary
	for _, s := range m.summaries {
		if f.ActiveOnly && !s.Active {
			continue
		}
		if !f.From.IsZero() && s.Date.Before(f.From) {
			continue
		}
		out = append(out, s)
	}
	return out, nil
}

type mockRegistrationStore struct {
	listings []domainRegistration.Listing
	err      error
}

func (m *mockRegistrationStore) List(_ context.Context, f registration.ListFilter) ([]domainRegistration.Listing, error) {
	if m.err != nil {
		return nil, m.err
	}
	var out []domainRegistration.Listing
	for _, l := range m.listings {
		if f.EventID == "" || l.EventID == f.EventID {
			out = append(out, l)
		}
	}
	return out, nil
}

type mockOutboxStore struct {
	pending, failed []domainOutbox.Entry
	err             error
}

func (m *mockOutboxStore) ListPending(_ context.Context, _ int) ([]domainOutbox.Entry, error) {
	return m.pending, m.err
}

func (m *mockOutboxStore) ListFailed(_ context.Context, _ int) ([]domainOutbox.Entry, error) {
	return m.failed, m.err
}

func day(d int) time.Time { return time.Date(2026, 3, d, 0, 0, 0, 0, time.UTC) }

func summary(id string, date time.Time, active bool) domainEvent.Summary {
	return domainEvent.Summary{Event: domainEvent.Event{ID: id, Title: id, Date: date, Time: "19:00", MaxParticipants: 10, Active: active}}
}

func TestQueryListPublicEvents(t *testing.T) {
	store := &mockEventStore{summaries: []domainEvent.Summary{
		summary("yesterday", day(9), true),
		summary("today", day(10), true),
		summary("inactive", day(11), false),
		summary("later", day(12), true),
	}}
	// 23:30 in Paris is still the 10th.
	paris, err := time.LoadLocation("Europe/Paris")
	if err != nil {
		t.Skipf("tzdata unavailable: %v", err)
	}
	today := time.Date(2026, 3, 10, 23, 30, 0, 0, paris)

	res, err := QueryListPublicEvents(context.Background(), ListPublicEventsQuery{Today: today}, ListEventsDeps{EventStore: store})
	if err != nil {
		t.Fatalf("QueryListPublicEvents() error = %v", err)
	}
	var ids []string
	for _, e := range res.Events {
		ids = append(ids, e.ID)
	}
	if len(ids) != 2 || ids[0] != "today" || ids[1] != "later" {
		t.Errorf("events = %v, want [today later]", ids)
	}
	if f := store.filters[0]; !f.ActiveOnly || !f.From.Equal(day(10)) {
		t.Errorf("filter = %+v", f)
	}
}

func TestQueryListAdminEvents(t *testing.T) {
	store := &mockEventStore{summaries: []domainEvent.Summary{
		summary("past", day(1), true),
		summary("today", day(10), false),
	}}
	res, err := QueryListAdminEvents(context.Background(), ListAdminEventsQuery{Today: day(10)}, ListEventsDeps{EventStore: store})
	if err != nil {
		t.Fatalf("QueryListAdminEvents() error = %v", err)
	}
	if len(res.Events) != 2 {
		t.Fatalf("events = %d, want 2 (inactive included)", len(res.Events))
	}
	if !res.Events[0].Past || res.Events[1].Past {
		t.Errorf("past flags = %v, %v; want true, false", res.Events[0].Past, res.Events[1].Past)
	}

	store.err = errors.New("db down")
	if _, err := QueryListAdminEvents(context.Background(), ListAdminEventsQuery{Today: day(10)}, ListEventsDeps{EventStore: store}); !errors.Is(err, store.err) {
		t.Errorf("error = %v, want wrapped store error", err)
	}
}

func TestQueryListRegistrations(t *testing.T) {
	regs := &mockRegistrationStore{listings: []domainRegistration.Listing{
		{Registration: domainRegistration.Registration{ID: "r1", EventID: "a"}, EventKnown: true},
		{Registration: domainRegistration.Registration{ID: "r2", EventID: "b"}, EventKnown: true},
	}}
	events := &mockEventStore{summaries: []domainEvent.Summary{summary("a", day(1), true), summary("b", day(2), false)}}
	deps := ListRegistrationsDeps{RegistrationStore: regs, EventStore: events}

	tests := []struct {
		name    string
		eventID string
		want    int
	}{
		{"all", "", 2},
		{"filtered", "b", 1},
		{"unknown event", "zzz", 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := QueryListRegistrations(context.Background(), ListRegistrationsQuery{EventID: tt.eventID}, deps)
			if err != nil {
				t.Fatalf("error = %v", err)
			}
			if len(res.Registrations) != tt.want {
				t.Errorf("registrations = %d, want %d", len(res.Registrations), tt.want)
			}
			if len(res.EventOptions) != 2 || res.EventID != tt.eventID {
				t.Errorf("options = %d, selected = %q", len(res.EventOptions), res.EventID)
			}
		})
	}

	regs.err = errors.New("db down")
	if _, err := QueryListRegistrations(context.Background(), ListRegistrationsQuery{}, deps); err == nil {
		t.Error("expected error")
	}
}

func TestQueryListOutbox(t *testing.T) {
	store := &mockOutboxStore{
		pending: []domainOutbox.Entry{{ID: "p1"}},
		failed:  []domainOutbox.Entry{{ID: "f1"}, {ID: "f2"}},
	}
	res, err := QueryListOutbox(context.Background(), ListOutboxDeps{OutboxStore: store})
	if err != nil {
		t.Fatalf("error = %v", err)
	}
	if len(res.Pending) != 1 || len(res.Failed) != 2 {
		t.Errorf("pending=%d failed=%d", len(res.Pending), len(res.Failed))
	}
}
