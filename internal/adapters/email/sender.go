package email

import (
	"context"
	"time"
)

// SendRequest contains the data needed to send an email via an external provider.
type SendRequest struct {
	To      []string
	From    string // empty means the sender's default, e.g. "Son et Astres <contact@sonetastres.fr>"
	Subject string
	HTML    string
	Text    string // plain-text alternative; used alone when HTML is empty
	ReplyTo string
}

// SendResult contains the response from the email provider.
type SendResult struct {
	MessageID string
	SentAt    time.Time
}

// Sender is the interface for sending emails via an external provider.
type Sender interface {
	Send(ctx context.Context, req SendRequest) (SendResult, error)
	// Configured reports whether messages actually leave the process.
	Configured() bool
}
