package event

import (
	"errors"
	"fmt"
	"math"
	"strings"
	"time"
	"unicode/utf8"
)

// Defaults applied when the admin form leaves a field blank.
const (
	DefaultLocation = "Saint-Zacharie"
	DefaultMinPrice = 0
)

// Layouts for the civil date and start time of an event.
const (
	DateLayout = "2006-01-02"
	TimeLayout = "15:04"
)

// Max length constants for user-editable fields.
const (
	MaxTitleLength       = 200
	MaxLocationLength    = 200
	MaxDescriptionLength = 5000
)

// LowSpotsThreshold is the remaining-spot count at or below which the public
// card highlights scarcity.
const LowSpotsThreshold = 2

// Domain errors
var (
	ErrNotFound           = errors.New("event not found")
	ErrEmptyTitle         = errors.New("title cannot be empty")
	ErrTitleTooLong       = errors.New("title cannot exceed 200 characters")
	ErrLocationTooLong    = errors.New("location cannot exceed 200 characters")
	ErrDescriptionTooLong = errors.New("description cannot exceed 5000 characters")
	ErrMissingDate        = errors.New("event date is required")
	ErrInvalidTime        = errors.New("event time must be HH:MM")
	ErrInvalidCapacity    = errors.New("max participants must be at least 1")
	ErrNegativePrice      = errors.New("minimum price cannot be negative")
)

// Event is a scheduled session people can register for.
type Event struct {
	ID              string
	Title           string
	Date            time.Time // civil date at midnight UTC
	Time            string    // HH:MM
	Location        string
	MaxParticipants int
	MinPrice        float64 // 0 means free participation
	Active          bool
	Description     string // markdown, optional
	CreatedAt       time.Time
}

// Normalize trims text fields and fills defaults for blank optional fields.
// POST: Location is never empty; Time is HH:MM when it parsed
func (e *Event) Normalize() {
	e.Title = strings.TrimSpace(e.Title)
	e.Location = strings.TrimSpace(e.Location)
	e.Description = strings.TrimSpace(e.Description)
	e.Time = strings.TrimSpace(e.Time)
	if e.Location == "" {
		e.Location = DefaultLocation
	}
	if e.MinPrice < 0 || math.IsNaN(e.MinPrice) {
		e.MinPrice = DefaultMinPrice
	}
	// Storage may hand back HH:MM:SS.
	if len(e.Time) == len("15:04:05") {
		if t, err := time.Parse("15:04:05", e.Time); err == nil {
			e.Time = t.Format(TimeLayout)
		}
	}
	if !e.Date.IsZero() {
		e.Date = CivilDate(e.Date)
	}
}

// Validate checks if the Event has valid data.
// PRE: Event struct is populated
// POST: Returns nil if valid, error otherwise
func (e *Event) Validate() error {
	if strings.TrimSpace(e.Title) == "" {
		return ErrEmptyTitle
	}
	if utf8.RuneCountInString(e.Title) > MaxTitleLength {
		return ErrTitleTooLong
	}
	if utf8.RuneCountInString(e.Location) > MaxLocationLength {
		return ErrLocationTooLong
	}
	if utf8.RuneCountInString(e.Description) > MaxDescriptionLength {
		return ErrDescriptionTooLong
	}
	if e.Date.IsZero() {
		return ErrMissingDate
	}
	if _, err := time.Parse(TimeLayout, e.Time); err != nil {
		return ErrInvalidTime
	}
	if e.MaxParticipants < 1 {
		return ErrInvalidCapacity
	}
	if e.MinPrice < 0 {
		return ErrNegativePrice
	}
	return nil
}

// IsFree reports whether the event has no minimum price.
// INVARIANT: Event fields are not mutated
func (e Event) IsFree() bool {
	return e.MinPrice <= 0
}

// IsPast reports whether the event date is strictly before today's civil date.
// An event happening today is not past.
func (e Event) IsPast(today time.Time) bool {
	return CivilDate(e.Date).Before(CivilDate(today))
}

// StartsAt combines the civil date and start time in the given location.
// PRE: Time is HH:MM
func (e Event) StartsAt(loc *time.Location) (time.Time, error) {
	clock, err := time.Parse(TimeLayout, e.Time)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse event time %q: %w", e.Time, err)
	}
	if loc == nil {
		loc = time.UTC
	}
	d := CivilDate(e.Date)
	return time.Date(d.Year(), d.Month(), d.Day(), clock.Hour(), clock.Minute(), 0, 0, loc), nil
}

// Summary is an event with its current registration count.
type Summary struct {
	Event
	RegistrationCount int
}

// SpotsRemaining is capacity minus registrations. It can go negative if
// capacity was lowered after people registered.
func (s Summary) SpotsRemaining() int {
	return s.MaxParticipants - s.RegistrationCount
}

// IsFull reports whether no spot is left.
func (s Summary) IsFull() bool {
	return s.SpotsRemaining() <= 0
}

// SpotsLow reports whether few spots are left but the event is not full.
func (s Summary) SpotsLow() bool {
	return !s.IsFull() && s.SpotsRemaining() <= LowSpotsThreshold
}

// ParseDate parses a YYYY-MM-DD civil date.
func ParseDate(s string) (time.Time, error) {
	t, err := time.Parse(DateLayout, strings.TrimSpace(s))
	if err != nil {
		return time.Time{}, fmt.Errorf("parse event date %q: %w", s, err)
	}
	return t, nil
}

// CivilDate returns the calendar day of t (in t's own location) at midnight UTC.
func CivilDate(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
