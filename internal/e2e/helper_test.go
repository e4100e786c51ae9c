// Package e2e_test drives the real server in a headless browser.
package e2e_test

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net"
	"net/http"
	"path/filepath"
	"testing"
	"time"

	"github.com/playwright-community/playwright-go"

	web "astres/internal/adapters/http"
	"astres/internal/adapters/http/perf"
	"astres/internal/adapters/i18n"
	"astres/internal/adapters/storage"
	accountStore "astres/internal/adapters/storage/account"
	eventStore "astres/internal/adapters/storage/event"
	outboxStore "astres/internal/adapters/storage/outbox"
	registrationStore "astres/internal/adapters/storage/registration"
	"astres/internal/application/orchestrators"
	"astres/internal/domain/event"
)

const (
	adminEmail    = "admin@test.com"
	adminPassword = "TestPass123!-long"
)

// testApp holds the running test server and Playwright handles.
type testApp struct {
	BaseURL string
	Stores  *web.Stores
	Browser playwright.Browser
}

// newTestApp starts a fully wired server on a temp SQLite file. The test is
// skipped in short mode or when Playwright's browsers are not installed.
func newTestApp(t *testing.T) *testApp {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping browser test in short mode")
	}

	db, err := storage.OpenSQLite(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("failed to open test DB: %v", err)
	}
	if err := storage.MigrateDB(db); err != nil {
		t.Fatalf("failed to migrate test DB: %v", err)
	}
	stores := &web.Stores{
		EventStore:        eventStore.NewSQLiteStore(db),
		RegistrationStore: registrationStore.NewSQLiteStore(db),
		AccountStore:      accountStore.NewSQLiteStore(db),
		OutboxStore:       outboxStore.NewSQLiteStore(db),
	}

	ctx := context.Background()
	if _, err := orchestrators.ExecuteCreateAccount(ctx, orchestrators.CreateAccountInput{
		Email:    adminEmail,
		Password: adminPassword,
	}, orchestrators.CreateAccountDeps{
		AccountStore: stores.AccountStore,
		GenerateID:   func() string { return "admin-1" },
		Now:          time.Now,
	}); err != nil {
		t.Fatalf("failed to create admin: %v", err)
	}

	// Find a free port
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("failed to find free port: %v", err)
	}
	port := listener.Addr().(*net.TCPAddr).Port
	listener.Close()

	messages, err := i18n.NewTranslator("fr")
	if err != nil {
		t.Fatalf("failed to load messages: %v", err)
	}
	server, err := web.NewServer(web.Config{
		CSRFKey:            []byte("0123456789abcdef0123456789abcdef"),
		TrustedOrigins:     []string{fmt.Sprintf("127.0.0.1:%d", port), fmt.Sprintf("localhost:%d", port)},
		SiteEmail:          "contact@test.com",
		Location:           time.UTC,
		RateLimitPerSecond: 1000,
	}, web.Deps{
		Stores:    stores,
		Messages:  messages,
		Collector: perf.NewCollector(1000),
	})
	if err != nil {
		t.Fatalf("failed to build server: %v", err)
	}

	srvCtx, cancel := context.WithCancel(ctx)
	srv := &http.Server{
		Addr:    fmt.Sprintf("127.0.0.1:%d", port),
		Handler: server.Handler(srvCtx),
	}
	go func() {
		if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			log.Printf("test server error: %v", err)
		}
	}()

	// Wait for server to be ready
	baseURL := fmt.Sprintf("http://127.0.0.1:%d", port)
	for i := 0; i < 50; i++ {
		resp, err := http.Get(baseURL + "/healthz")
		if err == nil {
			resp.Body.Close()
			break
		}
		time.Sleep(100 * time.Millisecond)
	}

	pw, err := playwright.Run()
	if err != nil {
		cancel()
		srv.Close()
		db.Close()
		t.Skipf("Playwright not available: %v", err)
	}
	browser, err := pw.Chromium.Launch(playwright.BrowserTypeLaunchOptions{
		Headless: playwright.Bool(true),
	})
	if err != nil {
		pw.Stop()
		cancel()
		srv.Close()
		db.Close()
		t.Skipf("Chromium not available: %v", err)
	}

	t.Cleanup(func() {
		browser.Close()
		pw.Stop()
		cancel()
		srv.Close()
		db.Close()
	})

	return &testApp{BaseURL: baseURL, Stores: stores, Browser: browser}
}

// newPage creates a new browser page (tab).
func (a *testApp) newPage(t *testing.T) playwright.Page {
	t.Helper()
	page, err := a.Browser.NewPage()
	if err != nil {
		t.Fatalf("failed to create page: %v", err)
	}
	t.Cleanup(func() { page.Close() })
	return page
}

// seedEvent stores an active event days from today.
func (a *testApp) seedEvent(t *testing.T, id, title string, days, max int) {
	t.Helper()
	e := event.Event{
		ID:              id,
		Title:           title,
		Date:            event.CivilDate(time.Now().UTC().AddDate(0, 0, days)),
		Time:            "19:30",
		Location:        event.DefaultLocation,
		MaxParticipants: max,
		Active:          true,
		CreatedAt:       time.Now(),
	}
	if err := a.Stores.EventStore.Create(context.Background(), e); err != nil {
		t.Fatalf("failed to seed event: %v", err)
	}
}

// login signs in through the admin form.
func (a *testApp) login(t *testing.T, page playwright.Page) {
	t.Helper()
	if _, err := page.Goto(a.BaseURL + "/admin"); err != nil {
		t.Fatalf("failed to navigate to admin: %v", err)
	}
	fill(t, page, "#login-form input[name=email]", adminEmail)
	fill(t, page, "#login-form input[name=password]", adminPassword)
	click(t, page, "#login-form button[type=submit]")
	waitForSelector(t, page, "#events-list")
}

func fill(t *testing.T, page playwright.Page, selector, value string) {
	t.Helper()
	if err := page.Locator(selector).Fill(value); err != nil {
		t.Fatalf("failed to fill %s: %v", selector, err)
	}
}

func click(t *testing.T, page playwright.Page, selector string) {
	t.Helper()
	if err := page.Locator(selector).First().Click(); err != nil {
		t.Fatalf("failed to click %s: %v", selector, err)
	}
}

func waitForSelector(t *testing.T, page playwright.Page, selector string) {
	t.Helper()
	if err := page.Locator(selector).First().WaitFor(playwright.LocatorWaitForOptions{
		Timeout: playwright.Float(10000),
	}); err != nil {
		t.Fatalf("%s never appeared: %v", selector, err)
	}
}

func text(t *testing.T, page playwright.Page, selector string) string {
	t.Helper()
	s, err := page.Locator(selector).First().TextContent()
	if err != nil {
		t.Fatalf("failed to read %s: %v", selector, err)
	}
	return s
}
