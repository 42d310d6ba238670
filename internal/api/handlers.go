package api

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/modkit/espclean/internal/clean"
	"github.com/modkit/espclean/internal/events"
)

// HealthzResponse is the GET /healthz payload.
type HealthzResponse struct {
	Status        string `json:"status"`
	UptimeSeconds int64  `json:"uptime_seconds"`
}

// StatusResponse is the GET /v1/status payload.
type StatusResponse struct {
	Game    string `json:"game"`
	Running bool   `json:"running"`
}

// EventsResponse is the GET /v1/events payload.
type EventsResponse struct {
	Events []events.Event `json:"events"`
}

// ErrorResponse is the error payload for all endpoints.
type ErrorResponse struct {
	Error string `json:"error"`
}

// handleHealthz handles GET /healthz (no auth).
func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, HealthzResponse{
		Status:        "ok",
		UptimeSeconds: int64(time.Since(s.startedAt).Seconds()),
	})
}

// handleStatus handles GET /v1/status.
func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, StatusResponse{
		Game:    s.config.Game,
		Running: s.status.Running(),
	})
}

// handleEvents handles GET /v1/events?since=<id>: buffered run events with
// ID greater than since, oldest-first.
func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	var since int64
	if raw := r.URL.Query().Get("since"); raw != "" {
		parsed, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || parsed < 0 {
			s.writeError(w, http.StatusBadRequest, "invalid since parameter")
			return
		}
		since = parsed
	}

	respondJSON(w, http.StatusOK, EventsResponse{Events: s.hub.SnapshotSince(since)})
}

// handleSummary handles GET /v1/summary: the most recent run's summary.
func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	summary, err := clean.LastRun(r.Context(), s.db)
	if err != nil {
		s.logger.Error("failed to load last run", "error", err)
		s.writeError(w, http.StatusInternalServerError, "failed to load last run")
		return
	}
	if summary == nil {
		s.writeError(w, http.StatusNotFound, "no runs recorded")
		return
	}
	respondJSON(w, http.StatusOK, summary)
}

func (s *Server) writeError(w http.ResponseWriter, statusCode int, message string) {
	respondJSON(w, statusCode, ErrorResponse{Error: message})
}

func respondJSON(w http.ResponseWriter, statusCode int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(v)
}
