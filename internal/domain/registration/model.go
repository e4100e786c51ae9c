package registration

import (
	"errors"
	"net/mail"
	"strings"
	"time"
	"unicode/utf8"
)

// Max length constants for user-editable fields.
const (
	MaxNameLength    = 120
	MaxEmailLength   = 254
	MaxPhoneLength   = 40
	MaxMessageLength = 2000
)

// Domain errors
var (
	ErrNotFound = errors.New("registration not found")
	// ErrDuplicate is returned when the email is already registered for the event.
	ErrDuplicate = errors.New("email already registered for this event")
	// ErrEventFull is returned when the event has no remaining spot.
	ErrEventFull = errors.New("event is full")

	ErrEmptyEventID   = errors.New("event id is required")
	ErrEmptyName      = errors.New("name cannot be empty")
	ErrNameTooLong    = errors.New("name cannot exceed 120 characters")
	ErrEmptyEmail     = errors.New("email cannot be empty")
	ErrInvalidEmail   = errors.New("email is not a valid address")
	ErrPhoneTooLong   = errors.New("phone cannot exceed 40 characters")
	ErrMessageTooLong = errors.New("message cannot exceed 2000 characters")
)

// Registration records one person signing up for one event.
type Registration struct {
	ID        string
	EventID   string
	Name      string
	Email     string
	Phone     string // optional
	Message   string // optional
	CreatedAt time.Time
}

// Normalize trims fields and lower-cases the email so (event, email) is
// compared case-insensitively.
func (r *Registration) Normalize() {
	r.EventID = strings.TrimSpace(r.EventID)
	r.Name = strings.TrimSpace(r.Name)
	r.Email = NormalizeEmail(r.Email)
	r.Phone = strings.TrimSpace(r.Phone)
	r.Message = strings.TrimSpace(r.Message)
}

// Validate checks if the Registration has valid data.
// PRE: Normalize has been called
// POST: Returns nil if valid, error otherwise
func (r *Registration) Validate() error {
	if r.EventID == "" {
		return ErrEmptyEventID
	}
	if r.Name == "" {
		return ErrEmptyName
	}
	if utf8.RuneCountInString(r.Name) > MaxNameLength {
		return ErrNameTooLong
	}
	if r.Email == "" {
		return ErrEmptyEmail
	}
	if len(r.Email) > MaxEmailLength {
		return ErrInvalidEmail
	}
	if addr, err := mail.ParseAddress(r.Email); err != nil || addr.Address != r.Email {
		return ErrInvalidEmail
	}
	if utf8.RuneCountInString(r.Phone) > MaxPhoneLength {
		return ErrPhoneTooLong
	}
	if utf8.RuneCountInString(r.Message) > MaxMessageLength {
		return ErrMessageTooLong
	}
	return nil
}

// NormalizeEmail trims and lower-cases an address.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Listing is a registration joined with its parent event for the admin list.
// EventKnown is false when the parent row could not be joined.
type Listing struct {
	Registration
	EventTitle string
	EventDate  time.Time
	EventKnown bool
}
