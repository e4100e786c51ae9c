package web

import (
	"strconv"
	"time"

	"astres/internal/adapters/i18n"
	"astres/internal/application/projections"
	"astres/internal/domain/event"
	"astres/internal/domain/outbox"
	"astres/internal/domain/registration"
)

// --- public ---

type eventCard struct {
	ID          string
	Title       string
	Day         int
	Month       string
	Time        string
	Location    string
	Description string
	Price       string
	Spots       string
	Full        bool
	SpotsLow    bool
}

// catalogView is the events section. Placeholder is set instead of Events
// when there is nothing to list.
type catalogView struct {
	Placeholder string
	Hint        string
	Events      []eventCard
}

type contactView struct {
	Form      contactForm
	Notice    string
	Error     string
	MailtoURL string
}

type homeView struct {
	Catalog catalogView
	Contact contactView
}

type registerView struct {
	EventID string
	Title   string
	When    string
	Full    bool
	Form    registrationForm
	Error   string
	Success string
}

// apiEvent is the JSON shape of GET /api/events.
type apiEvent struct {
	ID              string  `json:"id"`
	Title           string  `json:"title"`
	EventDate       string  `json:"event_date"`
	EventTime       string  `json:"event_time"`
	Location        string  `json:"location"`
	Description     string  `json:"description,omitempty"`
	MinPrice        float64 `json:"min_price"`
	MaxParticipants int     `json:"max_participants"`
	SpotsRemaining  int     `json:"spots_remaining"`
}

func (s *Server) publicCard(e event.Summary) eventCard {
	card := eventCard{
		ID:          e.ID,
		Title:       e.Title,
		Day:         e.Date.Day(),
		Month:       s.messages.MonthName(e.Date),
		Time:        e.Time,
		Location:    e.Location,
		Description: e.Description,
		Price:       s.publicPrice(e.MinPrice),
		Full:        e.IsFull(),
		SpotsLow:    e.SpotsLow(),
	}
	if card.Full {
		card.Spots = s.messages.T("event_full", nil)
	} else {
		card.Spots = s.messages.Plural("event_spots_remaining", e.SpotsRemaining(), nil)
	}
	return card
}

func (s *Server) publicPrice(p float64) string {
	if p <= 0 {
		return s.messages.T("event_price_free", nil)
	}
	return s.messages.T("event_price_from", map[string]any{"Price": i18n.Price(p)})
}

// when renders "3 mars 2026 à 19:30".
func (s *Server) when(e event.Event) string {
	return s.messages.T("event_when", map[string]any{"Date": s.messages.DayMonthYear(e.Date), "Time": e.Time})
}

func toAPIEvent(e event.Summary) apiEvent {
	return apiEvent{
		ID:              e.ID,
		Title:           e.Title,
		EventDate:       e.Date.Format(event.DateLayout),
		EventTime:       e.Time,
		Location:        e.Location,
		Description:     e.Description,
		MinPrice:        e.MinPrice,
		MaxParticipants: e.MaxParticipants,
		SpotsRemaining:  e.SpotsRemaining(),
	}
}

// --- admin ---

type loginView struct {
	Email    string
	Error    string
	Disabled bool
}

type adminEventCard struct {
	ID          string
	Title       string
	Date        string
	Time        string
	Location    string
	Description string
	Stats       string
	Price       string
	Full        bool
	Inactive    bool
	Past        bool
}

type registrationCard struct {
	ID           string
	Name         string
	Email        string
	Phone        string
	Message      string
	Event        string
	RegisteredOn string
}

type eventOption struct {
	ID       string
	Label    string
	Selected bool
}

type dashboardView struct {
	Flash                string
	Events               []adminEventCard
	EventsMessage        string
	Registrations        []registrationCard
	RegistrationsMessage string
	Options              []eventOption
	FilterID             string
}

type eventFormView struct {
	Heading string
	Form    eventForm
	Error   string
}

type confirmView struct {
	ID      string
	Title   string
	Message string
}

func (s *Server) adminCard(e projections.AdminEvent) adminEventCard {
	card := adminEventCard{
		ID:          e.ID,
		Title:       e.Title,
		Date:        s.messages.LongDate(e.Date),
		Time:        e.Time,
		Location:    e.Location,
		Description: e.Description,
		Full:        e.IsFull(),
		Inactive:    !e.Active,
		Past:        e.Past,
	}
	data := map[string]any{"Count": e.RegistrationCount, "Max": e.MaxParticipants, "Remaining": e.SpotsRemaining()}
	if card.Full {
		card.Stats = s.messages.T("admin_stats_full", data)
	} else {
		card.Stats = s.messages.T("admin_stats_open", data)
	}
	if e.MinPrice > 0 {
		card.Price = s.messages.T("admin_price_min", map[string]any{"Price": i18n.Price(e.MinPrice)})
	} else {
		card.Price = s.messages.T("admin_price_free", nil)
	}
	return card
}

func (s *Server) registrationCard(l registration.Listing) registrationCard {
	card := registrationCard{
		ID:           l.ID,
		Name:         l.Name,
		Email:        l.Email,
		Phone:        l.Phone,
		Message:      l.Message,
		RegisteredOn: s.messages.T("admin_registered_on", map[string]any{"When": s.messages.DateTime(l.CreatedAt, s.cfg.Location)}),
	}
	if l.EventKnown {
		card.Event = l.EventTitle + " - " + s.messages.DayMonth(l.EventDate)
	} else {
		card.Event = s.messages.T("admin_registration_unknown_event", nil)
	}
	return card
}

func (s *Server) eventOptions(events []event.Summary, selected string) []eventOption {
	opts := make([]eventOption, 0, len(events))
	for _, e := range events {
		opts = append(opts, eventOption{
			ID:       e.ID,
			Label:    e.Title + " (" + s.messages.ShortDayMonth(e.Date) + ")",
			Selected: e.ID == selected,
		})
	}
	return opts
}

func formFromEvent(e event.Event) eventForm {
	f := eventForm{
		ID:              e.ID,
		Title:           e.Title,
		Date:            e.Date.Format(event.DateLayout),
		Time:            e.Time,
		Location:        e.Location,
		MaxParticipants: strconv.Itoa(e.MaxParticipants),
		Description:     e.Description,
		Active:          e.Active,
	}
	if e.MinPrice > 0 {
		f.MinPrice = i18n.Price(e.MinPrice)
	}
	return f
}

// --- system ---

type outboxRow struct {
	ID          string
	ActionType  string
	Status      string
	Attempts    int
	MaxAttempts int
	LastAttempt string
	Error       string
	Purgeable   bool
}

type pathRow struct {
	Path  string
	Count int
	AvgMs float64
	MaxMs float64
}

type systemView struct {
	Flash          string
	Configured     bool
	OutboxFailed   bool
	Pending        []outboxRow
	Failed         []outboxRow
	Uptime         string
	Requests       int
	Queries        int
	QueryP95Ms     float64
	ServerErrors   int
	P50Ms          float64
	P95Ms          float64
	SlowestPaths   []pathRow
	SlowestQueries []pathRow
}

func (s *Server) outboxRows(entries []outbox.Entry) []outboxRow {
	rows := make([]outboxRow, 0, len(entries))
	for _, e := range entries {
		row := outboxRow{
			ID:          e.ID,
			ActionType:  e.ActionType,
			Status:      e.Status,
			Attempts:    e.Attempts,
			MaxAttempts: e.MaxAttempts,
			Error:       e.ErrorMessage,
			Purgeable:   e.IsTerminal(),
		}
		if !e.LastAttemptedAt.IsZero() {
			row.LastAttempt = s.messages.DateTime(e.LastAttemptedAt, s.cfg.Location)
		}
		rows = append(rows, row)
	}
	return rows
}

func uptime(since, now time.Time) string {
	return now.Sub(since).Truncate(time.Second).String()
}
