package orchestrators

import (
	"context"
	"fmt"
	"log/slog"

	emailAdapter "astres/internal/adapters/email"
	"astres/internal/domain/contact"
)

// ContactRelay forwards a contact message to a form-relay service.
type ContactRelay interface {
	Relay(ctx context.Context, m contact.Message) error
}

// ContactOutcome says how a contact message left the site.
type ContactOutcome int

const (
	// ContactDelivered means the relay or the email provider accepted it.
	ContactDelivered ContactOutcome = iota + 1
	// ContactMailto means the visitor must send it from their own mail client.
	ContactMailto
)

// SendContactInput carries the contact form.
type SendContactInput struct {
	Name    string
	Email   string
	Message string
}

// SendContactDeps holds dependencies for SendContact. Relay may be nil.
type SendContactDeps struct {
	Relay     ContactRelay
	Sender    emailAdapter.Sender
	SiteEmail string
}

// SendContactResult tells the caller what happened.
type SendContactResult struct {
	Outcome   ContactOutcome
	MailtoURL string // set when Outcome is ContactMailto
}

// ExecuteSendContact delivers a contact message through the first available
// channel: relay, then email provider, then a mailto link.
// PRE: SiteEmail is set
// POST: message delivered, or a mailto URL returned, or an error
func ExecuteSendContact(ctx context.Context, input SendContactInput, deps SendContactDeps) (SendContactResult, error) {
	msg := contact.Message{Name: input.Name, Email: input.Email, Body: input.Message}
	if err := msg.Validate(); err != nil {
		return SendContactResult{}, err
	}

	if deps.Relay != nil {
		if err := deps.Relay.Relay(ctx, msg); err != nil {
			return SendContactResult{}, fmt.Errorf("relay contact message: %w", err)
		}
		slog.Info("contact_event", "event", "relayed", "email", msg.Email)
		return SendContactResult{Outcome: ContactDelivered}, nil
	}

	if deps.Sender != nil && deps.Sender.Configured() {
		_, err := deps.Sender.Send(ctx, emailAdapter.SendRequest{
			To:      []string{deps.SiteEmail},
			Subject: msg.Subject(),
			Text:    msg.PlainBody(),
			ReplyTo: msg.Email,
		})
		if err != nil {
			return SendContactResult{}, fmt.Errorf("email contact message: %w", err)
		}
		slog.Info("contact_event", "event", "emailed", "email", msg.Email)
		return SendContactResult{Outcome: ContactDelivered}, nil
	}

	slog.Info("contact_event", "event", "mailto_fallback", "email", msg.Email)
	return SendContactResult{Outcome: ContactMailto, MailtoURL: msg.MailtoURL(deps.SiteEmail)}, nil
}
