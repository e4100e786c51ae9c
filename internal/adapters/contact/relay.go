// Package contact forwards contact form messages to a form-relay service
// such as Formspree.
package contact

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	domain "astres/internal/domain/contact"
)

// ErrRelayRejected is returned when the relay answers with a non-2xx status.
var ErrRelayRejected = errors.New("contact relay rejected the message")

// FormRelay posts messages as a URL-encoded form.
type FormRelay struct {
	endpoint string
	client   *http.Client
}

// NewFormRelay creates a relay for endpoint. A nil client gets a 15s timeout.
// PRE: endpoint is an absolute http(s) URL
func NewFormRelay(endpoint string, client *http.Client) (*FormRelay, error) {
	u, err := url.Parse(endpoint)
	if err != nil || (u.Scheme != "https" && u.Scheme != "http") || u.Host == "" {
		return nil, fmt.Errorf("invalid contact relay url %q", endpoint)
	}
	if client == nil {
		client = &http.Client{Timeout: 15 * time.Second}
	}
	return &FormRelay{endpoint: endpoint, client: client}, nil
}

// Relay posts the message fields name, email, message and _subject.
// POST: nil only when the relay answered 2xx
func (r *FormRelay) Relay(ctx context.Context, m domain.Message) error {
	form := url.Values{
		"name":     {m.Name},
		"email":    {m.Email},
		"message":  {m.Body},
		"_subject": {m.Subject()},
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("build relay request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")

	resp, err := r.client.Do(req)
	if err != nil {
		return fmt.Errorf("contact relay request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("%w: status %d: %s", ErrRelayRejected, resp.StatusCode, strings.TrimSpace(string(body)))
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}
