package gateway

import (
	"encoding/json"
	"net/http"

	"github.com/google/uuid"
	"github.com/mcdev12/timekeep/go/internal/rpcutil"
	"github.com/rs/zerolog/log"
)

// WebSocketHandler serves /ws/clock.
type WebSocketHandler struct {
	connectionManager *ConnectionManager
}

// NewWebSocketHandler creates a new WebSocket handler
func NewWebSocketHandler(cm *ConnectionManager) *WebSocketHandler {
	return &WebSocketHandler{connectionManager: cm}
}

// HandleClockConnection streams the caller's advisory clock events. Browsers
// cannot set headers on a WebSocket handshake, so the actor may also come in
// the user_id query parameter.
func (h *WebSocketHandler) HandleClockConnection(w http.ResponseWriter, r *http.Request) {
	userID, err := rpcutil.ActorFromHeader(r.Header)
	if err != nil {
		raw := r.URL.Query().Get("user_id")
		if raw == "" {
			http.Error(w, "user is required", http.StatusUnauthorized)
			return
		}
		if userID, err = uuid.Parse(raw); err != nil {
			http.Error(w, "invalid user_id format", http.StatusBadRequest)
			return
		}
	}

	if err := h.connectionManager.UpgradeConnection(w, r, userID); err != nil {
		// the upgrader has already written the HTTP error
		log.Error().Err(err).Str("user_id", userID.String()).Msg("failed to upgrade WebSocket connection")
	}
}

// HandleConnectionStats returns statistics about active connections
func (h *WebSocketHandler) HandleConnectionStats(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(h.connectionManager.GetConnectionStats()); err != nil {
		log.Error().Err(err).Msg("failed to write connection stats")
	}
}

// RegisterRoutes registers WebSocket routes with an HTTP mux
func (h *WebSocketHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/ws/clock", h.HandleClockConnection)
	mux.HandleFunc("/ws/stats", h.HandleConnectionStats)
}
