package web

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/emiliopalmerini/agentsync/internal/api"
	"github.com/emiliopalmerini/agentsync/internal/domain"
)

func (s *Server) handleListSessions(w http.ResponseWriter, r *http.Request) {
	status := domain.SessionStatus(r.URL.Query().Get("status"))
	if status != "" && !status.Valid() {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": "unknown status: " + string(status)})
		return
	}

	sessions, err := s.sessions.List(r.Context(), status)
	if err != nil {
		s.writeError(w, "list sessions", err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"sessions": sessions})
}

func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	session, err := s.sessions.Get(r.Context(), id)
	if err != nil {
		s.writeError(w, "get session", err)
		return
	}

	writeJSON(w, http.StatusOK, session)
}

func (s *Server) handleListNotifications(w http.ResponseWriter, r *http.Request) {
	unreadOnly := r.URL.Query().Get("unread") == "true"

	notifications, err := s.notifications.List(r.Context(), unreadOnly)
	if err != nil {
		s.writeError(w, "list notifications", err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"notifications": notifications})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	stats := s.store.Stats()

	writeJSON(w, http.StatusOK, map[string]any{
		"connection":         string(s.sync.ConnState()),
		"pending_keys":       s.sync.PendingKeys(),
		"session_lists":      stats.SessionLists,
		"session_details":    stats.SessionDetails,
		"notification_lists": stats.NotificationLists,
	})
}

func (s *Server) handleRetry(w http.ResponseWriter, r *http.Request) {
	s.sync.Retry()
	writeJSON(w, http.StatusAccepted, map[string]any{"connection": s.sync.ConnState()})
}

// writeError maps upstream failures onto this API's status codes. Not-found
// and auth errors pass through; everything else upstream is a bad gateway.
func (s *Server) writeError(w http.ResponseWriter, operation string, err error) {
	s.logger.Error("request failed", "operation", operation, "error", err)

	var apiErr *api.Error
	if errors.As(err, &apiErr) {
		switch apiErr.StatusCode {
		case http.StatusNotFound, http.StatusUnauthorized, http.StatusForbidden:
			writeJSON(w, apiErr.StatusCode, map[string]any{"error": apiErr.Error()})
		default:
			writeJSON(w, http.StatusBadGateway, map[string]any{"error": apiErr.Error()})
		}
		return
	}

	var valErr *api.ValidationError
	if errors.As(err, &valErr) {
		writeJSON(w, http.StatusBadGateway, map[string]any{"error": valErr.Error()})
		return
	}

	writeJSON(w, http.StatusInternalServerError, map[string]any{"error": err.Error()})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
