package api

import (
	"encoding/json"
	"net/http"

	"github.com/pbxops/acdboard/internal/store"
	"github.com/rs/zerolog"
)

// RostersHandler serves the reconciled view over plain REST for dashboards
// that poll instead of holding a WebSocket.
type RostersHandler struct {
	store  *store.Store
	logger zerolog.Logger
}

// NewRostersHandler creates a new RostersHandler
func NewRostersHandler(st *store.Store, logger zerolog.Logger) *RostersHandler {
	return &RostersHandler{
		store:  st,
		logger: logger.With().Str("component", "rosters_handler").Logger(),
	}
}

// GetRosters returns the full snapshot
// GET /api/rosters
func (h *RostersHandler) GetRosters(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(h.store.SnapshotMessage())
}

// GetQueues returns the ordered queue list with header counts
// GET /api/queues
func (h *RostersHandler) GetQueues(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"queues": h.store.Queues(),
		"counts": h.store.Counts(),
	})
}
