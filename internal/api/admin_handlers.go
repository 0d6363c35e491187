package api

import (
	"net/http"
	"strconv"

	"github.com/rs/zerolog/log"

	"github.com/vantagehq/vantage/internal/api/presenter"
	"github.com/vantagehq/vantage/internal/audit"
)

// handleAdminAuditEvents serves the raw security event stream with optional
// field filters. Unlike the audit-logs resource this is an operator view:
// it exposes server-side error detail and metadata.
func (s *Server) handleAdminAuditEvents(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := log.Ctx(ctx)

	if s.auditLog == nil {
		presenter.Error(w, r, "audit event queries are not available with the configured auditor", http.StatusServiceUnavailable)
		return
	}

	q := r.URL.Query()
	filterKind := q.Get("kind")
	filterActor := q.Get("actor")
	filterEmail := q.Get("email")
	filterCorrelationID := q.Get("correlation_id")

	limit := 50
	if v := q.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			logger.Warn().Str("limit", v).Msg("invalid limit parameter")
			presenter.Error(w, r, "invalid limit parameter", http.StatusBadRequest)
			return
		}
		limit = n
	}

	var events []audit.Event
	var err error

	if filterKind != "" || filterActor != "" || filterEmail != "" || filterCorrelationID != "" {
		events, err = s.auditLog.Find(func(ev audit.Event) bool {
			if filterKind != "" && ev.Kind != filterKind {
				return false
			}
			if filterActor != "" && ev.Actor != filterActor {
				return false
			}
			if filterEmail != "" && ev.Email != filterEmail {
				return false
			}
			if filterCorrelationID != "" && ev.ID != filterCorrelationID {
				return false
			}
			return true
		}, limit)
	} else {
		events, err = s.auditLog.GetRecent(limit)
	}

	if err != nil {
		logger.Error().Err(err).Msg("failed to retrieve audit events")
		presenter.Error(w, r, "failed to retrieve audit events", http.StatusInternalServerError)
		return
	}

	presenter.JSON(w, r, events, http.StatusOK)
}

type sessionCountResponse struct {
	ActiveSessions int `json:"active_sessions"`
}

// handleAdminSessions reports how many refresh tokens are live right now.
func (s *Server) handleAdminSessions(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	count, err := s.auth.Tokens().ActiveSessions(ctx)
	if err != nil {
		log.Ctx(ctx).Error().Err(err).Msg("failed to count active sessions")
		presenter.Error(w, r, "failed to count active sessions", http.StatusInternalServerError)
		return
	}
	presenter.JSON(w, r, sessionCountResponse{ActiveSessions: count}, http.StatusOK)
}
