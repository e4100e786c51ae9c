package web

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"astres/internal/adapters/http/middleware"
	"astres/internal/adapters/http/perf"
	"astres/internal/adapters/i18n"
	"astres/internal/adapters/storage"
	accountStore "astres/internal/adapters/storage/account"
	eventStore "astres/internal/adapters/storage/event"
	outboxStore "astres/internal/adapters/storage/outbox"
	registrationStore "astres/internal/adapters/storage/registration"
	"astres/internal/application/orchestrators"
	"astres/internal/domain/account"
	"astres/internal/domain/event"
	"astres/internal/domain/registration"
)

// fixedNow is Sunday 1 March 2026, 10:00 UTC.
var fixedNow = time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

const testSiteEmail = "contact@example.com"

var errBoom = errors.New("boom")

// testEnv is a server over a migrated in-memory SQLite database.
type testEnv struct {
	srv     *Server
	stores  *Stores
	handler http.Handler
}

func newTestMessages(t *testing.T) *i18n.Translator {
	t.Helper()
	tr, err := i18n.NewTranslator("fr")
	if err != nil {
		t.Fatalf("NewTranslator: %v", err)
	}
	return tr
}

func newTestStores(t *testing.T) *Stores {
	t.Helper()
	db, err := storage.OpenSQLite(":memory:")
	if err != nil {
		t.Fatalf("OpenSQLite: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	if err := storage.MigrateDB(db); err != nil {
		t.Fatalf("MigrateDB: %v", err)
	}
	return &Stores{
		EventStore:        eventStore.NewSQLiteStore(db),
		RegistrationStore: registrationStore.NewSQLiteStore(db),
		AccountStore:      accountStore.NewSQLiteStore(db),
		OutboxStore:       outboxStore.NewSQLiteStore(db),
	}
}

// newTestEnv builds a server without CSRF or rate limiting so handlers can
// be driven with plain form posts. deps may override any default.
func newTestEnv(t *testing.T, configure func(*Deps)) *testEnv {
	t.Helper()
	var ids int
	deps := Deps{
		Stores:    newTestStores(t),
		Messages:  newTestMessages(t),
		Collector: perf.NewCollector(100),
		Now:       func() time.Time { return fixedNow },
		GenerateID: func() string {
			ids++
			return fmt.Sprintf("id-%d", ids)
		},
	}
	if configure != nil {
		configure(&deps)
	}
	srv, err := NewServer(Config{SiteEmail: testSiteEmail, Location: time.UTC}, deps)
	if err != nil {
		t.Fatalf("NewServer: %v", err)
	}
	return &testEnv{
		srv:     srv,
		stores:  deps.Stores,
		handler: middleware.Chain(srv.routes(), middleware.Auth(srv.sessions)),
	}
}

func (e *testEnv) seedEvent(t *testing.T, id, title, date string, max int, active bool) {
	t.Helper()
	d, err := event.ParseDate(date)
	if err != nil {
		t.Fatalf("ParseDate: %v", err)
	}
	ev := event.Event{
		ID: id, Title: title, Date: d, Time: "19:30", Location: event.DefaultLocation,
		MaxParticipants: max, Active: active, CreatedAt: fixedNow,
	}
	if err := e.stores.EventStore.Create(context.Background(), ev); err != nil {
		t.Fatalf("seed event %s: %v", id, err)
	}
}

func (e *testEnv) seedRegistration(t *testing.T, id, eventID, name, email string) {
	t.Helper()
	r := registration.Registration{ID: id, EventID: eventID, Name: name, Email: email, CreatedAt: fixedNow}
	if err := e.stores.RegistrationStore.Create(context.Background(), r); err != nil {
		t.Fatalf("seed registration %s: %v", id, err)
	}
}

// adminCookie opens an admin session and returns its cookie.
func (e *testEnv) adminCookie(t *testing.T) *http.Cookie {
	t.Helper()
	token, err := e.srv.sessions.Create("acct-1", "admin@example.com", account.RoleAdmin)
	if err != nil {
		t.Fatalf("sessions.Create: %v", err)
	}
	return &http.Cookie{Name: middleware.SessionCookieName, Value: token}
}

func (e *testEnv) get(t *testing.T, target string, cookie *http.Cookie) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, target, nil)
	if cookie != nil {
		req.AddCookie(cookie)
	}
	rec := httptest.NewRecorder()
	e.handler.ServeHTTP(rec, req)
	return rec
}

func (e *testEnv) post(t *testing.T, target string, form url.Values, cookie *http.Cookie) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, target, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	if cookie != nil {
		req.AddCookie(cookie)
	}
	rec := httptest.NewRecorder()
	e.handler.ServeHTTP(rec, req)
	return rec
}

func assertStatus(t *testing.T, rec *httptest.ResponseRecorder, want int) {
	t.Helper()
	if rec.Code != want {
		t.Fatalf("status = %d, want %d; body:\n%s", rec.Code, want, rec.Body.String())
	}
}

func assertRedirect(t *testing.T, rec *httptest.ResponseRecorder, want string) {
	t.Helper()
	assertStatus(t, rec, http.StatusSeeOther)
	if got := rec.Header().Get("Location"); got != want {
		t.Fatalf("Location = %q, want %q", got, want)
	}
}

func assertContains(t *testing.T, body string, wants ...string) {
	t.Helper()
	for _, want := range wants {
		if !strings.Contains(body, want) {
			t.Errorf("body does not contain %q", want)
		}
	}
}

func assertNotContains(t *testing.T, body string, unwanted ...string) {
	t.Helper()
	for _, u := range unwanted {
		if strings.Contains(body, u) {
			t.Errorf("body unexpectedly contains %q", u)
		}
	}
}

// failingEventStore fails every call, for the storage error paths.
type failingEventStore struct{}

func (failingEventStore) GetByID(context.Context, string) (event.Event, error) {
	return event.Event{}, errBoom
}
func (failingEventStore) GetSummary(context.Context, string) (event.Summary, error) {
	return event.Summary{}, errBoom
}
func (failingEventStore) Create(context.Context, event.Event) error { return errBoom }
func (failingEventStore) Update(context.Context, event.Event) error { return errBoom }
func (failingEventStore) Delete(context.Context, string) error      { return errBoom }
func (failingEventStore) ListSummaries(context.Context, eventStore.ListFilter) ([]event.Summary, error) {
	return nil, errBoom
}

// failingRegistrationStore fails every call.
type failingRegistrationStore struct{}

func (failingRegistrationStore) Create(context.Context, registration.Registration) error {
	return errBoom
}
func (failingRegistrationStore) GetByID(context.Context, string) (registration.Registration, error) {
	return registration.Registration{}, errBoom
}
func (failingRegistrationStore) GetByEventAndEmail(context.Context, string, string) (registration.Registration, error) {
	return registration.Registration{}, errBoom
}
func (failingRegistrationStore) Delete(context.Context, string) error { return errBoom }
func (failingRegistrationStore) List(context.Context, registrationStore.ListFilter) ([]registration.Listing, error) {
	return nil, errBoom
}

var _ registrationStore.Store = failingRegistrationStore{}

func TestNewServer_RequiresMessages(t *testing.T) {
	if _, err := NewServer(Config{}, Deps{}); err == nil {
		t.Fatal("expected an error without a message catalogue")
	}
}

func TestNewServer_ParsesEveryPage(t *testing.T) {
	env := newTestEnv(t, nil)
	for _, name := range pageTemplates {
		if _, ok := env.srv.pages[name]; !ok {
			t.Errorf("page %s not parsed", name)
		}
	}
}

func TestHandler_SecurityAndCSRF(t *testing.T) {
	key := []byte("0123456789abcdef0123456789abcdef")
	srv, err := NewServer(Config{CSRFKey: key, SiteEmail: testSiteEmail, RateLimitPerSecond: 100}, Deps{
		Messages: newTestMessages(t),
		Now:      func() time.Time { return fixedNow },
	})
	if err != nil {
		t.Fatalf("NewServer: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	h := srv.Handler(ctx)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assertStatus(t, rec, http.StatusOK)
	if csp := rec.Header().Get("Content-Security-Policy"); !strings.Contains(csp, "script-src 'self'") {
		t.Errorf("CSP = %q", csp)
	}
	assertContains(t, rec.Body.String(), `name="gorilla.csrf.Token"`)

	form := url.Values{"name": {"Alice"}, "email": {"alice@example.com"}, "message": {"Bonjour"}}
	req := httptest.NewRequest(http.MethodPost, "/contact", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assertStatus(t, rec, http.StatusForbidden)
}

func TestHealthAndStatic(t *testing.T) {
	env := newTestEnv(t, nil)

	rec := env.get(t, "/healthz", nil)
	assertStatus(t, rec, http.StatusOK)
	if rec.Body.String() != "ok" {
		t.Errorf("healthz body = %q", rec.Body.String())
	}

	rec = env.get(t, "/static/js/site.js", nil)
	assertStatus(t, rec, http.StatusOK)
	assertContains(t, rec.Body.String(), "IntersectionObserver", "threshold: 0.1")

	rec = env.get(t, "/static/css/site.css", nil)
	assertStatus(t, rec, http.StatusOK)
}

func TestWithError(t *testing.T) {
	tests := []struct {
		target, code, want string
	}{
		{"/admin", "delete", "/admin?error=delete"},
		{"/admin?event=e1", "delete", "/admin?error=delete&event=e1"},
		{"/admin/system", "retry", "/admin/system?error=retry"},
	}
	for _, tt := range tests {
		if got := withError(tt.target, tt.code); got != tt.want {
			t.Errorf("withError(%q, %q) = %q, want %q", tt.target, tt.code, got, tt.want)
		}
	}
}

func TestDict(t *testing.T) {
	m, err := dict("a", 1, "b", "two")
	if err != nil || m["a"] != 1 || m["b"] != "two" {
		t.Errorf("dict() = %v, %v", m, err)
	}
	if _, err := dict("a"); err == nil {
		t.Error("odd arguments must fail")
	}
	if _, err := dict(1, 2); err == nil {
		t.Error("non-string key must fail")
	}
}

func TestRenderMarkdown_EscapesRawHTML(t *testing.T) {
	got := string(renderMarkdown("**Bols** <script>alert(1)</script>"))
	if !strings.Contains(got, "<strong>Bols</strong>") {
		t.Errorf("markdown not rendered: %s", got)
	}
	if strings.Contains(got, "<script>") {
		t.Errorf("raw HTML must not pass through: %s", got)
	}
}

var _ orchestrators.ContactRelay = (*stubRelay)(nil)
