package api

import (
	"net/http"

	"github.com/ayusman/handtimer/internal/store"
)

// MovementHandler serves the movements of the running session, or of the
// session named by the "session" query parameter.
type MovementHandler struct {
	store   *store.Store
	current func() string
}

// NewMovementHandler creates a MovementHandler. current returns the ID of
// the running session and may be nil when there is none.
func NewMovementHandler(s *store.Store, current func() string) *MovementHandler {
	return &MovementHandler{store: s, current: current}
}

// ServeHTTP handles GET /api/movements.
func (h *MovementHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	sessionID := r.URL.Query().Get("session")
	if sessionID == "" && h.current != nil {
		sessionID = h.current()
	}
	if sessionID == "" {
		writeError(w, http.StatusBadRequest, "No session given and none running")
		return
	}

	response, err := loadMovements(h.store, sessionID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list movements")
		return
	}

	writeJSON(w, http.StatusOK, response)
}
