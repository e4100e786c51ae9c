package web

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"astres/internal/application/orchestrators"
	"astres/internal/application/projections"
	"astres/internal/domain/outbox"
)

// perfWindow is how far back the system page aggregates timings.
const perfWindow = time.Hour

// handleAdminSystem shows queued side effects and request timings.
func (s *Server) handleAdminSystem(w http.ResponseWriter, r *http.Request) {
	view := systemView{
		Configured: s.configured(),
		Uptime:     uptime(s.started, s.now()),
	}
	if key, ok := dashboardErrors[r.URL.Query().Get("error")]; ok {
		view.Flash = s.messages.T(key, nil)
	}

	if s.configured() {
		result, err := projections.QueryListOutbox(r.Context(), projections.ListOutboxDeps{OutboxStore: s.stores.OutboxStore})
		if err != nil {
			slog.Error("outbox_load_failed", "error", err)
			view.OutboxFailed = true
		} else {
			view.Pending = s.outboxRows(result.Pending)
			view.Failed = s.outboxRows(result.Failed)
		}
	}

	if s.collector != nil {
		snap := s.collector.Snapshot(s.now().Add(-perfWindow), 10)
		view.Requests = snap.Requests
		view.Queries = snap.Queries
		view.QueryP95Ms = snap.QueryP95Ms
		view.ServerErrors = snap.ServerErrors
		view.P50Ms = snap.RequestP50Ms
		view.P95Ms = snap.RequestP95Ms
		for _, p := range snap.SlowestPaths {
			view.SlowestPaths = append(view.SlowestPaths, pathRow{Path: p.Path, Count: p.Count, AvgMs: p.AvgMs, MaxMs: p.MaxMs})
		}
		for _, p := range snap.SlowestQueries {
			view.SlowestQueries = append(view.SlowestQueries, pathRow{Path: p.Path, Count: p.Count, AvgMs: p.AvgMs, MaxMs: p.MaxMs})
		}
	}

	s.render(w, r, http.StatusOK, "admin_system.html", page{Title: "Système", Admin: true, Data: view})
}

// handleOutboxRetry attempts one entry now (POST /admin/outbox/{id}/retry).
func (s *Server) handleOutboxRetry(w http.ResponseWriter, r *http.Request) {
	if s.outbox == nil {
		http.Redirect(w, r, withError("/admin/system", "retry"), http.StatusSeeOther)
		return
	}
	id := r.PathValue("id")
	if err := s.outbox.ProcessSingle(r.Context(), id); err != nil {
		slog.Warn("outbox_retry_failed", "entry_id", id, "error", err)
		http.Redirect(w, r, withError("/admin/system", "retry"), http.StatusSeeOther)
		return
	}
	http.Redirect(w, r, "/admin/system", http.StatusSeeOther)
}

// handleOutboxAbandon stops further attempts (POST /admin/outbox/{id}/abandon).
func (s *Server) handleOutboxAbandon(w http.ResponseWriter, r *http.Request) {
	if s.outbox == nil {
		http.Redirect(w, r, withError("/admin/system", "retry"), http.StatusSeeOther)
		return
	}
	id := r.PathValue("id")
	if err := s.outbox.AbandonEntry(r.Context(), id); err != nil {
		slog.Warn("outbox_abandon_failed", "entry_id", id, "error", err)
		http.Redirect(w, r, withError("/admin/system", "retry"), http.StatusSeeOther)
		return
	}
	http.Redirect(w, r, "/admin/system", http.StatusSeeOther)
}

// handleOutboxPurge deletes a terminal entry (POST /admin/outbox/{id}/purge).
func (s *Server) handleOutboxPurge(w http.ResponseWriter, r *http.Request) {
	if !s.configured() {
		http.Redirect(w, r, "/admin/system", http.StatusSeeOther)
		return
	}
	id := r.PathValue("id")
	err := orchestrators.ExecutePurgeOutboxEntry(r.Context(), s.stores.OutboxStore, id)
	switch {
	case err == nil, errors.Is(err, outbox.ErrNotFound):
		http.Redirect(w, r, "/admin/system", http.StatusSeeOther)
	default:
		slog.Warn("outbox_purge_failed", "entry_id", id, "error", err)
		http.Redirect(w, r, withError("/admin/system", "delete"), http.StatusSeeOther)
	}
}
