package web

import (
	"context"
	"errors"
	"fmt"
	"html/template"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"astres/internal/adapters/email"
	"astres/internal/adapters/http/middleware"
	"astres/internal/adapters/http/perf"
	"astres/internal/adapters/i18n"
	accountStore "astres/internal/adapters/storage/account"
	eventStore "astres/internal/adapters/storage/event"
	outboxStore "astres/internal/adapters/storage/outbox"
	registrationStore "astres/internal/adapters/storage/registration"
	"astres/internal/application/dialog"
	"astres/internal/application/orchestrators"
)

// Stores holds all storage dependencies.
type Stores struct {
	EventStore        eventStore.Store
	RegistrationStore registrationStore.Store
	AccountStore      accountStore.Store
	OutboxStore       outboxStore.Store
}

// Config holds the HTTP-facing settings.
type Config struct {
	CSRFKey            []byte // 32 bytes
	SecureCookies      bool
	TrustedOrigins     []string
	SiteEmail          string
	Location           *time.Location // site time zone for "today"
	RateLimitPerSecond int
}

// Deps holds the collaborators of a Server. Stores is nil when no database
// is configured; Relay is nil when no form relay is configured.
type Deps struct {
	Stores     *Stores
	Messages   *i18n.Translator
	Sender     email.Sender
	Relay      orchestrators.ContactRelay
	Outbox     *orchestrators.OutboxProcessor
	Collector  *perf.Collector
	Now        func() time.Time
	GenerateID func() string
}

// Server serves the public site and the admin area. It owns the admin
// sessions and their pending confirm dialogs.
type Server struct {
	cfg       Config
	stores    *Stores
	messages  *i18n.Translator
	sender    email.Sender
	relay     orchestrators.ContactRelay
	outbox    *orchestrators.OutboxProcessor
	collector *perf.Collector
	sessions  *middleware.SessionStore
	dialogs   *dialog.Controller
	validate  *validator.Validate
	pages     map[string]*template.Template
	now       func() time.Time
	newID     func() string
	started   time.Time
}

// NewServer builds a Server and parses its templates.
// PRE: deps.Messages is non-nil
// POST: Returns a ready server or the template parse error
func NewServer(cfg Config, deps Deps) (*Server, error) {
	if deps.Messages == nil {
		return nil, errors.New("web: message catalogue is required")
	}
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	if cfg.RateLimitPerSecond <= 0 {
		cfg.RateLimitPerSecond = 10
	}
	s := &Server{
		cfg:       cfg,
		stores:    deps.Stores,
		messages:  deps.Messages,
		sender:    deps.Sender,
		relay:     deps.Relay,
		outbox:    deps.Outbox,
		collector: deps.Collector,
		dialogs:   dialog.NewController(),
		validate:  validator.New(),
		now:       deps.Now,
		newID:     deps.GenerateID,
	}
	if s.sender == nil {
		s.sender = email.NewNoopSender()
	}
	if s.now == nil {
		s.now = time.Now
	}
	if s.newID == nil {
		s.newID = func() string { return uuid.New().String() }
	}
	s.started = s.now()

	// A session that times out takes its pending confirm dialog with it.
	s.sessions = middleware.NewSessionStore(s.now)
	s.sessions.OnExpire(func(token string) {
		if _, ok := s.dialogs.Cancel(token); ok {
			slog.Info("dialog_expired", "reason", "session_expired")
		}
	})

	pages, err := parsePages(s.funcMap())
	if err != nil {
		return nil, fmt.Errorf("parse templates: %w", err)
	}
	s.pages = pages
	return s, nil
}

// configured reports whether a storage backend is available.
func (s *Server) configured() bool {
	return s.stores != nil
}

// today is the current civil date in the site time zone.
func (s *Server) today() time.Time {
	return s.now().In(s.cfg.Location)
}

// routes registers every handler on a new mux. Admin pages other than the
// login screen require an admin session.
func (s *Server) routes() *http.ServeMux {
	mux := http.NewServeMux()
	admin := middleware.RequireAdmin("/admin")
	protect := func(h http.HandlerFunc) http.Handler { return admin(h) }

	mux.Handle("GET /static/", staticHandler())
	mux.HandleFunc("GET /healthz", s.handleHealth)

	mux.HandleFunc("GET /{$}", s.handleHome)
	mux.HandleFunc("GET /api/events", s.handleEventsAPI)
	mux.HandleFunc("GET /events/{id}/register", s.handleRegisterForm)
	mux.HandleFunc("POST /events/{id}/register", s.handleRegister)
	mux.HandleFunc("GET /events/{id}/calendar.ics", s.handleCalendar)
	mux.HandleFunc("POST /contact", s.handleContact)

	mux.HandleFunc("GET /admin", s.handleAdmin)
	mux.HandleFunc("POST /admin/login", s.handleLogin)
	mux.HandleFunc("POST /admin/logout", s.handleLogout)
	mux.Handle("GET /admin/events/new", protect(s.handleEventForm))
	mux.Handle("GET /admin/events/{id}/edit", protect(s.handleEventForm))
	mux.Handle("POST /admin/events/save", protect(s.handleSaveEvent))
	mux.Handle("POST /admin/events/{id}/delete", protect(s.handleDeleteEvent))
	mux.Handle("POST /admin/registrations/{id}/delete", protect(s.handleDeleteRegistration))
	mux.Handle("GET /admin/confirm", protect(s.handleConfirmPage))
	mux.Handle("POST /admin/confirm", protect(s.handleConfirm))
	mux.Handle("POST /admin/cancel", protect(s.handleCancel))
	mux.Handle("GET /admin/system", protect(s.handleAdminSystem))
	mux.Handle("POST /admin/outbox/{id}/retry", protect(s.handleOutboxRetry))
	mux.Handle("POST /admin/outbox/{id}/abandon", protect(s.handleOutboxAbandon))
	mux.Handle("POST /admin/outbox/{id}/purge", protect(s.handleOutboxPurge))
	return mux
}

// sessionSweepInterval is how often expired admin sessions are dropped.
const sessionSweepInterval = 10 * time.Minute

// sweepSessions drops expired sessions until ctx is done.
func (s *Server) sweepSessions(ctx context.Context) {
	ticker := time.NewTicker(sessionSweepInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			if n := s.sessions.Sweep(); n > 0 {
				slog.Debug("sessions_swept", "count", n)
			}
		case <-ctx.Done():
			return
		}
	}
}

// Handler wires the routes behind the middleware stack. ctx bounds the
// rate limiter's and the session store's background sweeps.
func (s *Server) Handler(ctx context.Context) http.Handler {
	limiter := middleware.NewRateLimiter(ctx, s.cfg.RateLimitPerSecond, time.Second)
	go s.sweepSessions(ctx)

	// Apply middleware: Timing -> RateLimit -> Auth -> CSRF -> SecurityHeaders -> Mux
	return middleware.Chain(s.routes(),
		middleware.SecurityHeaders,
		middleware.CSRF(s.cfg.CSRFKey, s.cfg.SecureCookies, s.cfg.TrustedOrigins),
		middleware.Auth(s.sessions),
		middleware.RateLimit(limiter),
		middleware.Timing(s.collector),
	)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Write([]byte("ok"))
}
