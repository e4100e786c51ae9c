package contact

import (
	"errors"
	"fmt"
	"net/mail"
	"net/url"
	"strings"
	"unicode/utf8"
)

// MaxBodyLength bounds the free-text message.
const MaxBodyLength = 5000

// Domain errors
var (
	ErrEmptyName    = errors.New("name cannot be empty")
	ErrInvalidEmail = errors.New("email is not a valid address")
	ErrEmptyBody    = errors.New("message cannot be empty")
	ErrBodyTooLong  = errors.New("message cannot exceed 5000 characters")
)

// Message is a visitor's contact form submission.
type Message struct {
	Name  string
	Email string
	Body  string
}

// Validate checks if the Message has valid data.
// PRE: Message struct is populated
// POST: Returns nil if valid, error otherwise
func (m *Message) Validate() error {
	m.Name = strings.TrimSpace(m.Name)
	m.Email = strings.TrimSpace(m.Email)
	m.Body = strings.TrimSpace(m.Body)
	if m.Name == "" {
		return ErrEmptyName
	}
	if _, err := mail.ParseAddress(m.Email); err != nil {
		return ErrInvalidEmail
	}
	if m.Body == "" {
		return ErrEmptyBody
	}
	if utf8.RuneCountInString(m.Body) > MaxBodyLength {
		return ErrBodyTooLong
	}
	return nil
}

// Subject is the subject line used for both email delivery and mailto links.
func (m Message) Subject() string {
	return "Message de " + m.Name
}

// PlainBody is the text body used for mailto links and plain-text delivery.
func (m Message) PlainBody() string {
	return fmt.Sprintf("De: %s\nEmail: %s\n\n%s", m.Name, m.Email, m.Body)
}

// MailtoURL builds a mailto link that opens the visitor's mail client with
// the message prefilled.
func (m Message) MailtoURL(to string) string {
	return "mailto:" + to +
		"?subject=" + encodeComponent(m.Subject()) +
		"&body=" + encodeComponent(m.PlainBody())
}

// encodeComponent percent-encodes like a URI component (spaces as %20).
func encodeComponent(s string) string {
	return strings.ReplaceAll(url.QueryEscape(s), "+", "%20")
}
