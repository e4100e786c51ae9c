package orchestrators

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	emailAdapter "astres/internal/adapters/email"
	"astres/internal/adapters/notify"
	"astres/internal/domain/account"
	"astres/internal/domain/contact"
	"astres/internal/domain/event"
	"astres/internal/domain/outbox"
	"astres/internal/domain/registration"
)

var fixedTime = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func fixedNow() time.Time { return fixedTime }

func fixedID() string { return "test-id-001" }

// sequentialIDs returns a generator yielding id-1, id-2, ...
func sequentialIDs() func() string {
	n := 0
	return func() string {
		n++
		return fmt.Sprintf("id-%d", n)
	}
}

var errBoom = errors.New("boom")

// --- accounts ---

type mockAccountStore struct {
	accounts map[string]account.Account // by email
	getErr   error
	saveErr  error
	saves    int
}

func newMockAccountStore() *mockAccountStore {
	return &mockAccountStore{accounts: make(map[string]account.Account)}
}

func (m *mockAccountStore) GetByEmail(_ context.Context, email string) (account.Account, error) {
	if m.getErr != nil {
		return account.Account{}, m.getErr
	}
	a, ok := m.accounts[email]
	if !ok {
		return account.Account{}, account.ErrNotFound
	}
	return a, nil
}

func (m *mockAccountStore) Save(_ context.Context, a account.Account) error {
	if m.saveErr != nil {
		return m.saveErr
	}
	m.saves++
	m.accounts[a.Email] = a
	return nil
}

func (m *mockAccountStore) Count(_ context.Context) (int, error) {
	return len(m.accounts), m.getErr
}

// --- events ---

type mockEventStore struct {
	events    map[string]event.Event
	counts    map[string]int
	getErr    error
	createErr error
	deleteErr error
}

func newMockEventStore() *mockEventStore {
	return &mockEventStore{events: make(map[string]event.Event), counts: make(map[string]int)}
}

func (m *mockEventStore) GetByID(_ context.Context, id string) (event.Event, error) {
	if m.getErr != nil {
		return event.Event{}, m.getErr
	}
	e, ok := m.events[id]
	if !ok {
		return event.Event{}, event.ErrNotFound
	}
	return e, nil
}

func (m *mockEventStore) GetSummary(ctx context.Context, id string) (event.Summary, error) {
	e, err := m.GetByID(ctx, id)
	if err != nil {
		return event.Summary{}, err
	}
	return event.Summary{Event: e, RegistrationCount: m.counts[id]}, nil
}

func (m *mockEventStore) Create(_ context.Context, e event.Event) error {
	if m.createErr != nil {
		return m.createErr
	}
	m.events[e.ID] = e
	return nil
}

func (m *mockEventStore) Update(_ context.Context, e event.Event) error {
	if _, ok := m.events[e.ID]; !ok {
		return event.ErrNotFound
	}
	m.events[e.ID] = e
	return nil
}

func (m *mockEventStore) Delete(_ context.Context, id string) error {
	if m.deleteErr != nil {
		return m.deleteErr
	}
	if _, ok := m.events[id]; !ok {
		return event.ErrNotFound
	}
	delete(m.events, id)
	return nil
}

// --- registrations ---

type mockRegistrationStore struct {
	regs      map[string]registration.Registration
	lookupErr error
	createErr error
	creates   int
}

func newMockRegistrationStore() *mockRegistrationStore {
	return &mockRegistrationStore{regs: make(map[string]registration.Registration)}
}

func (m *mockRegistrationStore) GetByEventAndEmail(_ context.Context, eventID, email string) (registration.Registration, error) {
	if m.lookupErr != nil {
		return registration.Registration{}, m.lookupErr
	}
	for _, r := range m.regs {
		if r.EventID == eventID && r.Email == email {
			return r, nil
		}
	}
	return registration.Registration{}, registration.ErrNotFound
}

func (m *mockRegistrationStore) Create(_ context.Context, r registration.Registration) error {
	if m.createErr != nil {
		return m.createErr
	}
	m.creates++
	m.regs[r.ID] = r
	return nil
}

func (m *mockRegistrationStore) Delete(_ context.Context, id string) error {
	if _, ok := m.regs[id]; !ok {
		return registration.ErrNotFound
	}
	delete(m.regs, id)
	return nil
}

// --- outbox ---

type mockOutboxStore struct {
	mu      sync.Mutex
	entries map[string]outbox.Entry
	saveErr error
}

func newMockOutboxStore() *mockOutboxStore {
	return &mockOutboxStore{entries: make(map[string]outbox.Entry)}
}

func (m *mockOutboxStore) GetByID(_ context.Context, id string) (outbox.Entry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.entries[id]
	if !ok {
		return outbox.Entry{}, outbox.ErrNotFound
	}
	return e, nil
}

func (m *mockOutboxStore) Save(_ context.Context, e outbox.Entry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.saveErr != nil {
		return m.saveErr
	}
	m.entries[e.ID] = e
	return nil
}

func (m *mockOutboxStore) ListPending(_ context.Context, limit int) ([]outbox.Entry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []outbox.Entry
	for _, e := range m.entries {
		if e.Status == outbox.StatusPending || e.Status == outbox.StatusRetrying {
			out = append(out, e)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *mockOutboxStore) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.entries[id]; !ok {
		return outbox.ErrNotFound
	}
	delete(m.entries, id)
	return nil
}

func (m *mockOutboxStore) byAction(action string) []outbox.Entry {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []outbox.Entry
	for _, e := range m.entries {
		if e.ActionType == action {
			out = append(out, e)
		}
	}
	return out
}

// --- adapters ---

type mockSender struct {
	configured bool
	err        error
	sent       []emailAdapter.SendRequest
}

func (m *mockSender) Send(_ context.Context, req emailAdapter.SendRequest) (emailAdapter.SendResult, error) {
	if m.err != nil {
		return emailAdapter.SendResult{}, m.err
	}
	m.sent = append(m.sent, req)
	return emailAdapter.SendResult{MessageID: fmt.Sprintf("msg-%d", len(m.sent)), SentAt: fixedTime}, nil
}

func (m *mockSender) Configured() bool { return m.configured }

type mockNotifier struct {
	err     error
	notices []notify.Notice
}

func (m *mockNotifier) Notify(_ context.Context, n notify.Notice) (string, error) {
	if m.err != nil {
		return "", m.err
	}
	m.notices = append(m.notices, n)
	return "discord-1", nil
}

type mockRelay struct {
	err      error
	messages []contact.Message
}

func (m *mockRelay) Relay(_ context.Context, msg contact.Message) error {
	if m.err != nil {
		return m.err
	}
	m.messages = append(m.messages, msg)
	return nil
}

// mockCatalog renders "key|k=v,..." so assertions can see which message
// was chosen and with what data.
type mockCatalog struct{}

func (mockCatalog) T(key string, data map[string]any) string {
	if len(data) == 0 {
		return key
	}
	keys := make([]string, 0, len(data))
	for k := range data {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s=%v", k, data[k]))
	}
	return key + "|" + strings.Join(parts, ",")
}

func (mockCatalog) LongDate(d time.Time) string { return d.Format("2006-01-02") }
