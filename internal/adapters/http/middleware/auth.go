package middleware

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"log/slog"
	"net/http"
	"sync"
	"time"

	domainAccount "astres/internal/domain/account"
)

// contextKey is an unexported type for context keys in this package.
type contextKey string

const sessionContextKey contextKey = "session"

// SessionTTL is how long an admin session stays valid.
const SessionTTL = 24 * time.Hour

// Session represents an authenticated admin session.
type Session struct {
	Token     string
	AccountID string
	Email     string
	Role      string
	CreatedAt time.Time
}

// SessionStore is an in-memory session store.
type SessionStore struct {
	mu       sync.Mutex
	sessions map[string]Session
	now      func() time.Time
	onExpire func(token string)
}

// NewSessionStore creates a new in-memory session store. A nil now uses
// time.Now.
func NewSessionStore(now func() time.Time) *SessionStore {
	if now == nil {
		now = time.Now
	}
	return &SessionStore{
		sessions: make(map[string]Session),
		now:      now,
	}
}

// OnExpire registers fn to run, outside the store lock, for every session
// dropped because it outlived SessionTTL. Logout (Delete) does not call it.
func (ss *SessionStore) OnExpire(fn func(token string)) {
	ss.mu.Lock()
	ss.onExpire = fn
	ss.mu.Unlock()
}

func (ss *SessionStore) expired(s Session) bool {
	return ss.now().Sub(s.CreatedAt) > SessionTTL
}

func (ss *SessionStore) notifyExpired(fn func(string), tokens []string) {
	if fn == nil {
		return
	}
	for _, token := range tokens {
		fn(token)
	}
}

// Create stores a new session and returns the token.
// PRE: accountID, email, role are non-empty
// POST: Session is stored, token is returned
func (ss *SessionStore) Create(accountID, email, role string) (string, error) {
	token, err := generateToken()
	if err != nil {
		return "", err
	}
	ss.mu.Lock()
	defer ss.mu.Unlock()
	ss.sessions[token] = Session{
		Token:     token,
		AccountID: accountID,
		Email:     email,
		Role:      role,
		CreatedAt: ss.now(),
	}
	return token, nil
}

// Get retrieves a session by token.
// PRE: token is non-empty
// POST: Returns session if valid and not expired; expired ones are dropped
func (ss *SessionStore) Get(token string) (Session, bool) {
	ss.mu.Lock()
	session, ok := ss.sessions[token]
	if !ok {
		ss.mu.Unlock()
		return Session{}, false
	}
	if ss.expired(session) {
		delete(ss.sessions, token)
		fn := ss.onExpire
		ss.mu.Unlock()
		ss.notifyExpired(fn, []string{token})
		return Session{}, false
	}
	ss.mu.Unlock()
	return session, true
}

// Sweep drops every expired session and returns how many it removed.
// POST: OnExpire ran once per removed session
func (ss *SessionStore) Sweep() int {
	ss.mu.Lock()
	var dropped []string
	for token, session := range ss.sessions {
		if ss.expired(session) {
			delete(ss.sessions, token)
			dropped = append(dropped, token)
		}
	}
	fn := ss.onExpire
	ss.mu.Unlock()
	ss.notifyExpired(fn, dropped)
	return len(dropped)
}

// Delete removes a session by token.
// PRE: token is non-empty
// POST: Session with given token is removed
func (ss *SessionStore) Delete(token string) {
	ss.mu.Lock()
	defer ss.mu.Unlock()
	delete(ss.sessions, token)
}

// Len returns the number of stored sessions, expired ones included.
func (ss *SessionStore) Len() int {
	ss.mu.Lock()
	defer ss.mu.Unlock()
	return len(ss.sessions)
}

// SessionCookieName is the cookie carrying the session token.
const SessionCookieName = "astres_session"

// Auth returns middleware that extracts the session from the cookie and sets it in context.
// It does NOT block unauthenticated requests; use RequireAdmin for that.
func Auth(sessions *SessionStore) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			cookie, err := r.Cookie(SessionCookieName)
			if err == nil && cookie.Value != "" {
				if session, ok := sessions.Get(cookie.Value); ok {
					r = r.WithContext(ContextWithSession(r.Context(), session))
				}
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RequireAdmin returns middleware that sends requests without an admin
// session to loginPath.
func RequireAdmin(loginPath string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			session, ok := GetSessionFromContext(r.Context())
			if !ok {
				slog.Warn("auth_denied", "path", r.URL.Path, "reason", "no session")
				http.Redirect(w, r, loginPath, http.StatusSeeOther)
				return
			}
			if session.Role != domainAccount.RoleAdmin {
				slog.Warn("auth_denied", "path", r.URL.Path, "account_id", session.AccountID, "role", session.Role)
				http.Error(w, "Forbidden", http.StatusForbidden)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// GetSessionFromContext extracts the session from the request context.
func GetSessionFromContext(ctx context.Context) (Session, bool) {
	session, ok := ctx.Value(sessionContextKey).(Session)
	return session, ok
}

// ContextWithSession returns a context with the given session set.
func ContextWithSession(ctx context.Context, sess Session) context.Context {
	return context.WithValue(ctx, sessionContextKey, sess)
}

// SetSessionCookie sets the session cookie on the response.
// secure is false only for local HTTP development.
func SetSessionCookie(w http.ResponseWriter, token string, secure bool) {
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookieName,
		Value:    token,
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteStrictMode,
		Path:     "/",
		MaxAge:   int(SessionTTL / time.Second),
	})
}

// ClearSessionCookie removes the session cookie.
func ClearSessionCookie(w http.ResponseWriter, secure bool) {
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookieName,
		Value:    "",
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteStrictMode,
		Path:     "/",
		MaxAge:   -1,
	})
}

func generateToken() (string, error) {
	bytes := make([]byte, 32)
	if _, err := rand.Read(bytes); err != nil {
		return "", err
	}
	return hex.EncodeToString(bytes), nil
}
