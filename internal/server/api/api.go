// Package api provides HTTP API handlers over the session store.
package api

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/ayusman/handtimer/internal/store"
)

type errorResponse struct {
	Error string `json:"error"`
}

type sessionResponse struct {
	ID        string `json:"id"`
	Source    string `json:"source"`
	StartedAt string `json:"started_at"`
	EndedAt   string `json:"ended_at,omitempty"`
	Frames    int    `json:"frames"`
	Open      bool   `json:"open"`
}

type movementsResponse struct {
	Session   string            `json:"session"`
	Movements []*store.Movement `json:"movements"`
	Summary   store.Summary     `json:"summary"`
}

// toSessionResponse converts a store.Session to a sessionResponse.
func toSessionResponse(s *store.Session) sessionResponse {
	resp := sessionResponse{
		ID:        s.ID,
		Source:    s.Source,
		StartedAt: s.StartedAt.Format(time.RFC3339Nano),
		Frames:    s.Frames,
		Open:      s.EndedAt == nil,
	}
	if s.EndedAt != nil {
		resp.EndedAt = s.EndedAt.Format(time.RFC3339Nano)
	}
	return resp
}

// loadMovements builds the movement listing of one session.
func loadMovements(s *store.Store, sessionID string) (movementsResponse, error) {
	movements, err := s.Movements().ListBySession(sessionID)
	if err != nil {
		return movementsResponse{}, err
	}
	summary, err := s.Movements().Summarize(sessionID)
	if err != nil {
		return movementsResponse{}, err
	}
	return movementsResponse{Session: sessionID, Movements: movements, Summary: summary}, nil
}

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		json.NewEncoder(w).Encode(data)
	}
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorResponse{Error: message})
}
