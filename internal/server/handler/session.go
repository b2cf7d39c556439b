package handler

import (
	"net/http"
	"time"

	"github.com/alanyoungcy/seerbot/internal/domain"
	"github.com/alanyoungcy/seerbot/internal/history"
)

// defaultHandlerTimeout bounds handler calls that reach a remote service.
const defaultHandlerTimeout = 10 * time.Second

// SessionHandler serves session history and analytics.
type SessionHandler struct {
	store domain.SessionStore
}

// NewSessionHandler creates a session handler over the given store.
func NewSessionHandler(store domain.SessionStore) *SessionHandler {
	return &SessionHandler{store: store}
}

// ListSessions returns sessions in insertion order, optionally narrowed by
// query-string filters (status, category, author, text, from, to, minTrades,
// maxTrades, minConfidence).
// GET /api/sessions
func (h *SessionHandler) ListSessions(w http.ResponseWriter, r *http.Request) {
	f := parseSessionFilter(r)
	writeJSON(w, http.StatusOK, h.store.Filter(f))
}

// GetSession returns one session by ID.
// GET /api/sessions/{id}
func (h *SessionHandler) GetSession(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	session, ok := h.store.Get(id)
	if !ok {
		writeError(w, http.StatusNotFound, "session not found")
		return
	}
	writeJSON(w, http.StatusOK, session)
}

// GetAnalytics returns a fresh aggregate over the whole session history.
// GET /api/analytics
func (h *SessionHandler) GetAnalytics(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, history.Compute(h.store.All()))
}
