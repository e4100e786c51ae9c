package orchestrators

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"html/template"
	"log/slog"
	"time"

	emailAdapter "astres/internal/adapters/email"
	"astres/internal/adapters/i18n"
	"astres/internal/adapters/notify"
	"astres/internal/domain/event"
	domain "astres/internal/domain/outbox"
)

// OutboxStoreForProcessor defines the store interface needed by OutboxProcessor.
type OutboxStoreForProcessor interface {
	GetByID(ctx context.Context, id string) (domain.Entry, error)
	Save(ctx context.Context, e domain.Entry) error
	ListPending(ctx context.Context, limit int) ([]domain.Entry, error)
}

// ActionExecutor executes a specific type of external action.
type ActionExecutor interface {
	// Execute runs the external action with the given JSON payload and
	// returns the provider's id for it.
	Execute(ctx context.Context, payload string) (string, error)
}

// MessageCatalog renders user-facing text for outgoing messages.
type MessageCatalog interface {
	T(key string, data map[string]any) string
	LongDate(d time.Time) string
}

// OutboxProcessor delivers queued side effects with exponential backoff.
type OutboxProcessor struct {
	store     OutboxStoreForProcessor
	executors map[string]ActionExecutor
	now       func() time.Time
	baseDelay time.Duration
	maxDelay  time.Duration
	batchSize int
}

// ErrNoExecutor is recorded on entries whose action type has no executor.
var ErrNoExecutor = errors.New("no executor registered for action type")

// ErrOutboxEntryLive is returned when purging an entry that may still be attempted.
var ErrOutboxEntryLive = errors.New("outbox entry is still pending")

// NewOutboxProcessor creates a new outbox processor.
func NewOutboxProcessor(store OutboxStoreForProcessor, executors map[string]ActionExecutor, now func() time.Time) *OutboxProcessor {
	if now == nil {
		now = time.Now
	}
	return &OutboxProcessor{
		store:     store,
		executors: executors,
		now:       now,
		baseDelay: 30 * time.Second,
		maxDelay:  1 * time.Hour,
		batchSize: 20,
	}
}

// ProcessPending attempts every due entry once.
// PRE: Context is valid
// POST: Due entries attempted; each one saved with its new state
func (p *OutboxProcessor) ProcessPending(ctx context.Context) error {
	entries, err := p.store.ListPending(ctx, p.batchSize)
	if err != nil {
		return fmt.Errorf("list pending outbox entries: %w", err)
	}
	now := p.now()
	for _, entry := range entries {
		if now.Before(entry.DueAt(p.baseDelay, p.maxDelay)) {
			continue
		}
		if err := p.attempt(ctx, entry); err != nil {
			slog.Error("outbox_process_failed", "entry_id", entry.ID, "action_type", entry.ActionType, "error", err)
		}
	}
	return nil
}

// ProcessSingle attempts one entry now, ignoring backoff (admin retry).
// A failed entry gets one extra attempt.
// PRE: entryID is non-empty
// POST: Entry attempted and saved, or domain.ErrTerminal
func (p *OutboxProcessor) ProcessSingle(ctx context.Context, entryID string) error {
	entry, err := p.store.GetByID(ctx, entryID)
	if err != nil {
		return fmt.Errorf("get outbox entry: %w", err)
	}
	switch entry.Status {
	case domain.StatusDone, domain.StatusAbandoned:
		return domain.ErrTerminal
	case domain.StatusFailed:
		entry.MaxAttempts = entry.Attempts + 1
	}
	return p.attempt(ctx, entry)
}

// AbandonEntry stops further attempts on an entry.
// POST: Entry status is abandoned
func (p *OutboxProcessor) AbandonEntry(ctx context.Context, entryID string) error {
	entry, err := p.store.GetByID(ctx, entryID)
	if err != nil {
		return fmt.Errorf("get outbox entry: %w", err)
	}
	entry.MarkAbandoned()
	slog.Info("outbox_abandoned", "entry_id", entry.ID, "action_type", entry.ActionType)
	return p.store.Save(ctx, entry)
}

// OutboxStoreForPurge defines the store interface needed by PurgeOutboxEntry.
type OutboxStoreForPurge interface {
	GetByID(ctx context.Context, id string) (domain.Entry, error)
	Delete(ctx context.Context, id string) error
}

// ExecutePurgeOutboxEntry removes an entry that will never be attempted again.
// PRE: entryID is non-empty
// POST: Entry deleted, or domain.ErrNotFound, or ErrOutboxEntryLive
func ExecutePurgeOutboxEntry(ctx context.Context, store OutboxStoreForPurge, entryID string) error {
	entry, err := store.GetByID(ctx, entryID)
	if err != nil {
		return fmt.Errorf("get outbox entry: %w", err)
	}
	if !entry.IsTerminal() {
		return ErrOutboxEntryLive
	}
	if err := store.Delete(ctx, entry.ID); err != nil {
		return fmt.Errorf("delete outbox entry: %w", err)
	}
	slog.Info("outbox_purged", "entry_id", entry.ID, "action_type", entry.ActionType, "status", entry.Status)
	return nil
}

func (p *OutboxProcessor) attempt(ctx context.Context, entry domain.Entry) error {
	entry.MarkAttempt(p.now())

	executor, ok := p.executors[entry.ActionType]
	if !ok {
		entry.MarkFailed(fmt.Errorf("%w: %s", ErrNoExecutor, entry.ActionType))
		return p.store.Save(ctx, entry)
	}

	externalID, err := executor.Execute(ctx, entry.Payload)
	if err != nil {
		entry.MarkFailed(err)
		slog.Warn("outbox_action_failed", "entry_id", entry.ID, "action_type", entry.ActionType, "attempt", entry.Attempts, "status", entry.Status, "error", err)
	} else {
		entry.MarkSuccess(externalID)
		slog.Info("outbox_action_succeeded", "entry_id", entry.ID, "action_type", entry.ActionType, "external_id", externalID)
	}
	return p.store.Save(ctx, entry)
}

// --- Registration email executor ---

var registrationEmailHTML = template.Must(template.New("registration_email").Parse(`<p>Bonjour {{.Name}},</p>
<p>{{.Confirmed}}</p>
<ul>
<li><strong>{{.Title}}</strong></li>
<li>{{.When}}</li>
<li>{{.Location}}</li>
<li>{{.Price}}</li>
</ul>
<p>À très bientôt,<br>Son et Astres</p>`))

// RegistrationEmailExecutor sends the participant's confirmation email.
type RegistrationEmailExecutor struct {
	Sender   emailAdapter.Sender
	Messages MessageCatalog
}

// Execute sends the email described by a RegistrationEmailPayload.
// PRE: payload is valid JSON matching RegistrationEmailPayload
// POST: email accepted by the provider; returns its message id
func (e *RegistrationEmailExecutor) Execute(ctx context.Context, payload string) (string, error) {
	var p RegistrationEmailPayload
	if err := (domain.Entry{ActionType: domain.ActionTypeRegistrationEmail, Payload: payload}).DecodePayload(&p); err != nil {
		return "", err
	}
	date, err := event.ParseDate(p.EventDate)
	if err != nil {
		return "", err
	}

	price := e.Messages.T("event_price_free", nil)
	if p.MinPrice > 0 {
		price = e.Messages.T("event_price_from", map[string]any{"Price": i18n.Price(p.MinPrice)})
	}
	view := map[string]string{
		"Name":      p.Name,
		"Title":     p.EventTitle,
		"When":      e.Messages.T("event_when", map[string]any{"Date": e.Messages.LongDate(date), "Time": p.EventTime}),
		"Location":  p.Location,
		"Price":     price,
		"Confirmed": e.Messages.T("registration_success", map[string]any{"Name": p.Name, "Title": p.EventTitle}),
	}
	var html bytes.Buffer
	if err := registrationEmailHTML.Execute(&html, view); err != nil {
		return "", fmt.Errorf("render registration email: %w", err)
	}

	res, err := e.Sender.Send(ctx, emailAdapter.SendRequest{
		To:      []string{p.To},
		Subject: e.Messages.T("registration_email_subject", map[string]any{"Title": p.EventTitle}),
		HTML:    html.String(),
		Text:    fmt.Sprintf("%s\n\n%s\n%s\n%s", view["Confirmed"], view["When"], view["Location"], view["Price"]),
	})
	if err != nil {
		return "", err
	}
	return res.MessageID, nil
}

// --- Operator notice executor ---

// OperatorNoticeExecutor tells the operator about a new registration.
type OperatorNoticeExecutor struct {
	Notifier notify.Notifier
	Messages MessageCatalog
}

// Execute posts the notice described by an OperatorNoticePayload.
// PRE: payload is valid JSON matching OperatorNoticePayload
// POST: notice delivered; returns the provider message id
func (e *OperatorNoticeExecutor) Execute(ctx context.Context, payload string) (string, error) {
	var p OperatorNoticePayload
	if err := (domain.Entry{ActionType: domain.ActionTypeOperatorNotice, Payload: payload}).DecodePayload(&p); err != nil {
		return "", err
	}
	date, err := event.ParseDate(p.EventDate)
	if err != nil {
		return "", err
	}
	when := e.Messages.T("event_when", map[string]any{"Date": e.Messages.LongDate(date), "Time": p.EventTime})
	return e.Notifier.Notify(ctx, notify.Notice{
		Title: p.EventTitle,
		Body: e.Messages.T("operator_notice", map[string]any{
			"Name": p.Name, "Email": p.Email, "Title": p.EventTitle, "When": when, "Count": p.Count, "Max": p.Max,
		}),
		Fields: []notify.Field{
			{Name: "Email", Value: p.Email},
			{Name: "Téléphone", Value: p.Phone},
			{Name: "Message", Value: p.Message},
		},
		Timestamp: p.At,
	})
}

// --- Background Worker ---

// StartBackgroundWorker starts a goroutine that processes pending outbox
// entries every interval.
// PRE: stopCh is provided to signal shutdown
// POST: Worker runs until stopCh is closed
func StartBackgroundWorker(processor *OutboxProcessor, interval time.Duration, stopCh <-chan struct{}) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
				if err := processor.ProcessPending(ctx); err != nil {
					slog.Error("outbox_background_process_failed", "error", err)
				}
				cancel()
			case <-stopCh:
				slog.Info("outbox_background_worker_stopped")
				return
			}
		}
	}()
}
