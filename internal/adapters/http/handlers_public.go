package web

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"net/http"

	"astres/internal/adapters/calendar"
	"astres/internal/application/orchestrators"
	"astres/internal/application/projections"
	"astres/internal/domain/event"
	"astres/internal/domain/registration"
)

// handleHome renders the marketing page with the events catalogue.
func (s *Server) handleHome(w http.ResponseWriter, r *http.Request) {
	view := homeView{Catalog: s.loadCatalog(r.Context())}
	if r.URL.Query().Get("contact") == "sent" {
		view.Contact.Notice = s.messages.T("contact_sent", nil)
	}
	s.render(w, r, http.StatusOK, "home.html", page{Data: view})
}

// loadCatalog never fails: the three unhappy states become placeholders.
func (s *Server) loadCatalog(ctx context.Context) catalogView {
	if !s.configured() {
		return catalogView{
			Placeholder: s.messages.T("events_not_configured", nil),
			Hint:        s.messages.T("events_not_configured_hint", nil),
		}
	}
	result, err := projections.QueryListPublicEvents(ctx, projections.ListPublicEventsQuery{Today: s.today()}, projections.ListEventsDeps{
		EventStore: s.stores.EventStore,
	})
	if err != nil {
		slog.Error("events_load_failed", "scope", "public", "error", err)
		return catalogView{
			Placeholder: s.messages.T("events_error", nil),
			Hint:        s.messages.T("events_error_hint", nil),
		}
	}
	if len(result.Events) == 0 {
		return catalogView{
			Placeholder: s.messages.T("events_empty", nil),
			Hint:        s.messages.T("events_empty_hint", nil),
		}
	}
	cards := make([]eventCard, 0, len(result.Events))
	for _, e := range result.Events {
		cards = append(cards, s.publicCard(e))
	}
	return catalogView{Events: cards}
}

// handleEventsAPI serves the public catalogue as JSON.
func (s *Server) handleEventsAPI(w http.ResponseWriter, r *http.Request) {
	if !s.configured() {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": "events are not configured"})
		return
	}
	result, err := projections.QueryListPublicEvents(r.Context(), projections.ListPublicEventsQuery{Today: s.today()}, projections.ListEventsDeps{
		EventStore: s.stores.EventStore,
	})
	if err != nil {
		internalError(w, err)
		return
	}
	out := make([]apiEvent, 0, len(result.Events))
	for _, e := range result.Events {
		out = append(out, toAPIEvent(e))
	}
	writeJSON(w, http.StatusOK, out)
}

// openEvent loads an event visitors may register for. It writes the
// response itself when the event is not available.
func (s *Server) openEvent(w http.ResponseWriter, r *http.Request) (event.Summary, bool) {
	if !s.configured() {
		http.NotFound(w, r)
		return event.Summary{}, false
	}
	summary, err := s.stores.EventStore.GetSummary(r.Context(), r.PathValue("id"))
	if err != nil {
		if errors.Is(err, event.ErrNotFound) {
			http.NotFound(w, r)
		} else {
			internalError(w, err)
		}
		return event.Summary{}, false
	}
	if !summary.Active || summary.IsPast(s.today()) {
		http.NotFound(w, r)
		return event.Summary{}, false
	}
	return summary, true
}

func (s *Server) registerView(e event.Summary) registerView {
	return registerView{
		EventID: e.ID,
		Title:   e.Title,
		When:    s.when(e.Event),
		Full:    e.IsFull(),
	}
}

// handleRegisterForm shows the registration dialog for one event.
func (s *Server) handleRegisterForm(w http.ResponseWriter, r *http.Request) {
	summary, ok := s.openEvent(w, r)
	if !ok {
		return
	}
	s.render(w, r, http.StatusOK, "register.html", page{Title: summary.Title, Data: s.registerView(summary)})
}

// handleRegister handles POST /events/{id}/register.
func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	summary, ok := s.openEvent(w, r)
	if !ok {
		return
	}
	if err := r.ParseForm(); err != nil {
		http.Error(w, "Invalid form submission", http.StatusBadRequest)
		return
	}
	form := parseRegistrationForm(r)
	view := s.registerView(summary)
	view.Form = form

	if err := s.validate.Struct(form); err != nil {
		view.Error = s.messages.T("registration_invalid", nil)
		s.render(w, r, http.StatusUnprocessableEntity, "register.html", page{Title: summary.Title, Data: view})
		return
	}

	result, err := orchestrators.ExecuteRegisterParticipant(r.Context(), orchestrators.RegisterParticipantInput{
		EventID: summary.ID,
		Name:    form.Name,
		Email:   form.Email,
		Phone:   form.Phone,
		Message: form.Message,
	}, orchestrators.RegisterParticipantDeps{
		EventStore:        s.stores.EventStore,
		RegistrationStore: s.stores.RegistrationStore,
		OutboxStore:       s.stores.OutboxStore,
		GenerateID:        s.newID,
		Now:               s.now,
	})

	status := http.StatusOK
	switch {
	case err == nil:
		view.Success = s.messages.T("registration_success", map[string]any{"Name": result.Registration.Name, "Title": result.Event.Title})
		view.Form = registrationForm{}
		s.render(w, r, status, "register.html", page{Title: summary.Title, RefreshHome: true, Data: view})
		return
	case errors.Is(err, registration.ErrEventFull):
		status = http.StatusConflict
		view.Full = true
		view.Error = s.messages.T("registration_full", nil)
	case errors.Is(err, registration.ErrDuplicate):
		status = http.StatusConflict
		view.Error = s.messages.T("registration_duplicate", nil)
	case errors.Is(err, event.ErrNotFound):
		http.NotFound(w, r)
		return
	case isRegistrationInvalid(err):
		status = http.StatusUnprocessableEntity
		view.Error = s.messages.T("registration_invalid", nil)
	default:
		slog.Error("registration_failed", "event_id", summary.ID, "error", err)
		status = http.StatusInternalServerError
		view.Error = s.messages.T("registration_error", nil)
	}
	s.render(w, r, status, "register.html", page{Title: summary.Title, Data: view})
}

// handleCalendar serves GET /events/{id}/calendar.ics.
func (s *Server) handleCalendar(w http.ResponseWriter, r *http.Request) {
	summary, ok := s.openEvent(w, r)
	if !ok {
		return
	}
	var buf bytes.Buffer
	if err := calendar.WriteEvent(&buf, summary.Event, s.cfg.Location, s.now()); err != nil {
		internalError(w, err)
		return
	}
	w.Header().Set("Content-Type", "text/calendar; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="`+calendar.FileName(summary.Event)+`"`)
	buf.WriteTo(w)
}

// handleContact handles POST /contact: relay, then email, then mailto.
func (s *Server) handleContact(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "Invalid form submission", http.StatusBadRequest)
		return
	}
	form := parseContactForm(r)
	view := homeView{Contact: contactView{Form: form}}

	render := func(status int) {
		view.Catalog = s.loadCatalog(r.Context())
		s.render(w, r, status, "home.html", page{Data: view})
	}

	if err := s.validate.Struct(form); err != nil {
		view.Contact.Error = s.messages.T("contact_invalid", nil)
		render(http.StatusUnprocessableEntity)
		return
	}

	result, err := orchestrators.ExecuteSendContact(r.Context(), orchestrators.SendContactInput{
		Name:    form.Name,
		Email:   form.Email,
		Message: form.Message,
	}, orchestrators.SendContactDeps{
		Relay:     s.relay,
		Sender:    s.sender,
		SiteEmail: s.cfg.SiteEmail,
	})
	switch {
	case err == nil && result.Outcome == orchestrators.ContactMailto:
		view.Contact.Notice = s.messages.T("contact_mailto", nil)
		view.Contact.MailtoURL = result.MailtoURL
		render(http.StatusOK)
	case err == nil:
		http.Redirect(w, r, "/?contact=sent#contact", http.StatusSeeOther)
	case isContactInvalid(err):
		view.Contact.Error = s.messages.T("contact_invalid", nil)
		render(http.StatusUnprocessableEntity)
	default:
		slog.Error("contact_failed", "error", err)
		view.Contact.Error = s.messages.T("contact_error", map[string]any{"Email": s.cfg.SiteEmail})
		render(http.StatusBadGateway)
	}
}
