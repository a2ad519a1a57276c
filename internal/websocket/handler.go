package websocket

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/websocket"
	"github.com/pbxops/acdboard/internal/config"
	"github.com/pbxops/acdboard/internal/store"
	"github.com/rs/zerolog"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		// Origins are enforced by the CORS layer in front of the mux.
		return true
	},
}

// Handler handles WebSocket upgrade requests and primes every new dashboard
// with the current snapshot before live patches start flowing.
type Handler struct {
	hub    *Hub
	store  *store.Store
	config *config.Config
	logger zerolog.Logger
}

// NewHandler creates a new WebSocket handler
func NewHandler(hub *Hub, st *store.Store, cfg *config.Config, logger zerolog.Logger) *Handler {
	return &Handler{
		hub:    hub,
		store:  st,
		config: cfg,
		logger: logger,
	}
}

// ServeHTTP handles WebSocket upgrade requests
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Error().Err(err).Msg("failed to upgrade connection")
		return
	}

	client := NewClient(h.hub, conn, h.config, h.logger)

	// Queue the snapshot first so it is the first frame the dashboard sees.
	snapshot, err := json.Marshal(h.store.SnapshotMessage())
	if err != nil {
		h.logger.Error().Err(err).Msg("failed to marshal snapshot")
		conn.Close()
		return
	}
	client.Enqueue(snapshot)

	h.hub.register <- client
	client.Start()
}
