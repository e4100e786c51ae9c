package web

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"

	"golang.org/x/sync/errgroup"

	"astres/internal/adapters/http/middleware"
	"astres/internal/application/dialog"
	"astres/internal/application/orchestrators"
	"astres/internal/application/projections"
	"astres/internal/domain/event"
	"astres/internal/domain/registration"
)

// dashboardErrors whitelists the ?error= codes the dashboard can display.
var dashboardErrors = map[string]string{
	"delete":     "admin_delete_error",
	"load_event": "admin_event_load_error",
	"expired":    "confirm_expired",
	"retry":      "outbox_retry_error",
}

// withError appends an error code to a local redirect target.
func withError(target, code string) string {
	u, err := url.Parse(target)
	if err != nil {
		return "/admin?error=" + url.QueryEscape(code)
	}
	q := u.Query()
	q.Set("error", code)
	u.RawQuery = q.Encode()
	return u.String()
}

// handleAdmin shows the dashboard to an admin and the login form to anyone else.
func (s *Server) handleAdmin(w http.ResponseWriter, r *http.Request) {
	if !s.configured() {
		s.renderLogin(w, r, http.StatusServiceUnavailable, loginView{Error: s.messages.T("login_not_configured", nil), Disabled: true})
		return
	}
	if _, ok := middleware.GetSessionFromContext(r.Context()); !ok {
		s.renderLogin(w, r, http.StatusOK, loginView{})
		return
	}
	s.renderDashboard(w, r)
}

func (s *Server) renderLogin(w http.ResponseWriter, r *http.Request, status int, view loginView) {
	s.render(w, r, status, "admin_login.html", page{Title: "Administration", Admin: true, Data: view})
}

// renderDashboard loads both lists concurrently. Each list keeps its own
// error for its own message; the group is not context-bound, so one failing
// load never cancels the other.
func (s *Server) renderDashboard(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	filterID := r.URL.Query().Get("event")
	view := dashboardView{FilterID: filterID}
	if key, ok := dashboardErrors[r.URL.Query().Get("error")]; ok {
		view.Flash = s.messages.T(key, nil)
	}

	var (
		g         errgroup.Group
		events    projections.ListAdminEventsResult
		regs      projections.ListRegistrationsResult
		eventsErr error
		regsErr   error
	)
	g.Go(func() error {
		events, eventsErr = projections.QueryListAdminEvents(ctx, projections.ListAdminEventsQuery{Today: s.today()}, projections.ListEventsDeps{
			EventStore: s.stores.EventStore,
		})
		if eventsErr != nil {
			return fmt.Errorf("events: %w", eventsErr)
		}
		return nil
	})
	g.Go(func() error {
		regs, regsErr = projections.QueryListRegistrations(ctx, projections.ListRegistrationsQuery{EventID: filterID}, projections.ListRegistrationsDeps{
			RegistrationStore: s.stores.RegistrationStore,
			EventStore:        s.stores.EventStore,
		})
		if regsErr != nil {
			return fmt.Errorf("registrations (filter %q): %w", filterID, regsErr)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		slog.Error("dashboard_load_failed", "error", err, "events_failed", eventsErr != nil, "registrations_failed", regsErr != nil)
	}

	switch {
	case eventsErr != nil:
		view.EventsMessage = s.messages.T("admin_events_error", nil)
	case len(events.Events) == 0:
		view.EventsMessage = s.messages.T("admin_events_empty", nil)
	default:
		for _, e := range events.Events {
			view.Events = append(view.Events, s.adminCard(e))
		}
	}

	switch {
	case regsErr != nil:
		view.RegistrationsMessage = s.messages.T("admin_registrations_error", nil)
	default:
		view.Options = s.eventOptions(regs.EventOptions, filterID)
		if len(regs.Registrations) == 0 {
			view.RegistrationsMessage = s.messages.T("admin_registrations_empty", nil)
		}
		for _, l := range regs.Registrations {
			view.Registrations = append(view.Registrations, s.registrationCard(l))
		}
	}

	s.render(w, r, http.StatusOK, "admin_dashboard.html", page{Title: "Administration", Admin: true, Data: view})
}

// handleLogin handles POST /admin/login.
func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	if !s.configured() {
		s.renderLogin(w, r, http.StatusServiceUnavailable, loginView{Error: s.messages.T("login_not_configured", nil), Disabled: true})
		return
	}
	if err := r.ParseForm(); err != nil {
		http.Error(w, "Invalid form submission", http.StatusBadRequest)
		return
	}
	input := orchestrators.LoginInput{
		Email:    formValue(r, "email"),
		Password: r.PostFormValue("password"),
	}
	result, err := orchestrators.ExecuteLogin(r.Context(), input, orchestrators.LoginDeps{
		AccountStore: s.stores.AccountStore,
		Now:          s.now,
	})
	if err != nil {
		view := loginView{Email: input.Email}
		status := http.StatusUnauthorized
		switch {
		case errors.Is(err, orchestrators.ErrInvalidCredentials):
			view.Error = s.messages.T("login_invalid_credentials", nil)
		case errors.Is(err, orchestrators.ErrAccountLocked):
			status = http.StatusTooManyRequests
			view.Error = s.messages.T("login_locked", nil)
		default:
			slog.Error("login_failed", "error", err)
			status = http.StatusInternalServerError
			view.Error = s.messages.T("login_error", nil)
		}
		s.renderLogin(w, r, status, view)
		return
	}

	token, err := s.sessions.Create(result.AccountID, result.Email, result.Role)
	if err != nil {
		internalError(w, err)
		return
	}
	middleware.SetSessionCookie(w, token, s.cfg.SecureCookies)
	http.Redirect(w, r, "/admin", http.StatusSeeOther)
}

// handleLogout ends the session and drops its pending dialog.
func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	if cookie, err := r.Cookie(middleware.SessionCookieName); err == nil && cookie.Value != "" {
		s.dialogs.Cancel(cookie.Value)
		s.sessions.Delete(cookie.Value)
		slog.Info("auth_event", "event", "logout")
	}
	middleware.ClearSessionCookie(w, s.cfg.SecureCookies)
	http.Redirect(w, r, "/admin", http.StatusSeeOther)
}

// handleEventForm serves the create form, or the edit form when the route
// carries an id.
func (s *Server) handleEventForm(w http.ResponseWriter, r *http.Request) {
	if !s.configured() {
		http.Redirect(w, r, "/admin", http.StatusSeeOther)
		return
	}
	id := r.PathValue("id")
	if id == "" {
		view := eventFormView{
			Heading: s.messages.T("admin_event_form_new", nil),
			Form:    eventForm{Active: true},
		}
		s.render(w, r, http.StatusOK, "admin_event_form.html", page{Title: view.Heading, Admin: true, Data: view})
		return
	}

	e, err := s.stores.EventStore.GetByID(r.Context(), id)
	if err != nil {
		if !errors.Is(err, event.ErrNotFound) {
			slog.Error("event_load_failed", "event_id", id, "error", err)
		}
		http.Redirect(w, r, withError("/admin", "load_event"), http.StatusSeeOther)
		return
	}
	view := eventFormView{
		Heading: s.messages.T("admin_event_form_edit", nil),
		Form:    formFromEvent(e),
	}
	s.render(w, r, http.StatusOK, "admin_event_form.html", page{Title: view.Heading, Admin: true, Data: view})
}

// handleSaveEvent handles POST /admin/events/save for both create and update.
func (s *Server) handleSaveEvent(w http.ResponseWriter, r *http.Request) {
	if !s.configured() {
		http.Redirect(w, r, "/admin", http.StatusSeeOther)
		return
	}
	if err := r.ParseForm(); err != nil {
		http.Error(w, "Invalid form submission", http.StatusBadRequest)
		return
	}
	form := parseEventForm(r)
	view := eventFormView{Heading: s.messages.T("admin_event_form_new", nil), Form: form}
	if form.ID != "" {
		view.Heading = s.messages.T("admin_event_form_edit", nil)
	}

	if key := s.eventValidationKey(form); key != "" {
		view.Error = s.messages.T(key, nil)
		s.render(w, r, http.StatusUnprocessableEntity, "admin_event_form.html", page{Title: view.Heading, Admin: true, Data: view})
		return
	}

	_, err := orchestrators.ExecuteSaveEvent(r.Context(), orchestrators.SaveEventInput{
		ID:              form.ID,
		Title:           form.Title,
		Date:            form.Date,
		Time:            form.Time,
		Location:        form.Location,
		MaxParticipants: form.MaxParticipants,
		MinPrice:        form.MinPrice,
		Description:     form.Description,
		Active:          form.Active,
	}, orchestrators.SaveEventDeps{
		EventStore: s.stores.EventStore,
		GenerateID: s.newID,
		Now:        s.now,
	})
	if err != nil {
		status := http.StatusUnprocessableEntity
		key := eventErrorKey(err)
		if key == "" {
			slog.Error("event_save_failed", "event_id", form.ID, "error", err)
			status = http.StatusInternalServerError
			key = "admin_event_save_error"
		}
		view.Error = s.messages.T(key, nil)
		s.render(w, r, status, "admin_event_form.html", page{Title: view.Heading, Admin: true, Data: view})
		return
	}
	http.Redirect(w, r, "/admin", http.StatusSeeOther)
}

// handleDeleteEvent opens the confirm dialog for deleting an event.
func (s *Server) handleDeleteEvent(w http.ResponseWriter, r *http.Request) {
	sess, _ := middleware.GetSessionFromContext(r.Context())
	if !s.configured() {
		http.Redirect(w, r, "/admin", http.StatusSeeOther)
		return
	}
	e, err := s.stores.EventStore.GetByID(r.Context(), r.PathValue("id"))
	if err != nil {
		if !errors.Is(err, event.ErrNotFound) {
			slog.Error("event_load_failed", "event_id", r.PathValue("id"), "error", err)
		}
		http.Redirect(w, r, withError("/admin", "delete"), http.StatusSeeOther)
		return
	}

	eventID := e.ID
	s.dialogs.Open(sess.Token, dialog.Dialog{
		Title:    s.messages.T("confirm_delete_event_title", nil),
		Message:  s.messages.T("confirm_delete_event_message", map[string]any{"Title": e.Title}),
		ReturnTo: "/admin",
		Action: func(ctx context.Context) error {
			return orchestrators.ExecuteDeleteEvent(ctx, orchestrators.DeleteEventInput{EventID: eventID}, orchestrators.DeleteEventDeps{
				EventStore: s.stores.EventStore,
			})
		},
	})
	http.Redirect(w, r, "/admin/confirm", http.StatusSeeOther)
}

// handleDeleteRegistration opens the confirm dialog for deleting a
// registration. The name shown comes from storage, not from the form.
func (s *Server) handleDeleteRegistration(w http.ResponseWriter, r *http.Request) {
	sess, _ := middleware.GetSessionFromContext(r.Context())
	if !s.configured() {
		http.Redirect(w, r, "/admin", http.StatusSeeOther)
		return
	}
	if err := r.ParseForm(); err != nil {
		http.Error(w, "Invalid form submission", http.StatusBadRequest)
		return
	}
	returnTo := "/admin"
	if filter := formValue(r, "event"); filter != "" {
		returnTo += "?event=" + url.QueryEscape(filter)
	}

	reg, err := s.stores.RegistrationStore.GetByID(r.Context(), r.PathValue("id"))
	if err != nil {
		if !errors.Is(err, registration.ErrNotFound) {
			slog.Error("registration_load_failed", "registration_id", r.PathValue("id"), "error", err)
		}
		http.Redirect(w, r, withError(returnTo, "delete"), http.StatusSeeOther)
		return
	}

	regID := reg.ID
	s.dialogs.Open(sess.Token, dialog.Dialog{
		Title:    s.messages.T("confirm_delete_registration_title", nil),
		Message:  s.messages.T("confirm_delete_registration_message", map[string]any{"Name": reg.Name}),
		ReturnTo: returnTo,
		Action: func(ctx context.Context) error {
			return orchestrators.ExecuteDeleteRegistration(ctx, orchestrators.DeleteRegistrationInput{RegistrationID: regID}, orchestrators.DeleteRegistrationDeps{
				RegistrationStore: s.stores.RegistrationStore,
			})
		},
	})
	http.Redirect(w, r, "/admin/confirm", http.StatusSeeOther)
}

// handleConfirmPage shows the session's pending dialog.
func (s *Server) handleConfirmPage(w http.ResponseWriter, r *http.Request) {
	sess, _ := middleware.GetSessionFromContext(r.Context())
	d, ok := s.dialogs.Pending(sess.Token)
	if !ok {
		http.Redirect(w, r, "/admin", http.StatusSeeOther)
		return
	}
	view := confirmView{ID: d.ID, Title: d.Title, Message: d.Message}
	s.render(w, r, http.StatusOK, "confirm.html", page{Title: d.Title, Admin: true, Data: view})
}

// handleConfirm runs the pending dialog's action once. The dialog is
// closed whatever the outcome.
func (s *Server) handleConfirm(w http.ResponseWriter, r *http.Request) {
	sess, _ := middleware.GetSessionFromContext(r.Context())
	if err := r.ParseForm(); err != nil {
		http.Error(w, "Invalid form submission", http.StatusBadRequest)
		return
	}
	d, err := s.dialogs.Confirm(r.Context(), sess.Token, r.PostFormValue("id"))
	switch {
	case errors.Is(err, dialog.ErrNoPendingDialog):
		http.Redirect(w, r, withError("/admin", "expired"), http.StatusSeeOther)
	case err != nil:
		slog.Error("confirm_action_failed", "dialog", d.Title, "error", err)
		http.Redirect(w, r, withError(d.ReturnTo, "delete"), http.StatusSeeOther)
	default:
		http.Redirect(w, r, d.ReturnTo, http.StatusSeeOther)
	}
}

// handleCancel closes the pending dialog without running it.
func (s *Server) handleCancel(w http.ResponseWriter, r *http.Request) {
	sess, _ := middleware.GetSessionFromContext(r.Context())
	target := "/admin"
	if d, ok := s.dialogs.Cancel(sess.Token); ok && d.ReturnTo != "" {
		target = d.ReturnTo
	}
	http.Redirect(w, r, target, http.StatusSeeOther)
}
