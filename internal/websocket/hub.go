package websocket

import (
	"encoding/json"
	"sync"

	"github.com/rs/zerolog"
)

// Hub maintains the set of connected dashboards and fans messages out to
// them. Every dashboard sees the same stream; there is no per-client view.
type Hub struct {
	// Registered clients
	clients map[*Client]bool

	// Outbound messages to fan out
	broadcast chan []byte

	// Register requests from the clients
	register chan *Client

	// Unregister requests from clients
	unregister chan *Client

	// Mutex to protect clients map
	mu sync.RWMutex

	// Logger
	logger zerolog.Logger
}

// NewHub creates a new Hub
func NewHub(logger zerolog.Logger) *Hub {
	return &Hub{
		broadcast:  make(chan []byte, 256),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		clients:    make(map[*Client]bool),
		logger:     logger,
	}
}

// Run starts the hub's main loop
func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = true
			h.mu.Unlock()
			h.logger.Info().
				Str("client_id", client.id).
				Int("total_clients", len(h.clients)).
				Msg("dashboard connected")

		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.send)
				h.logger.Info().
					Str("client_id", client.id).
					Int("total_clients", len(h.clients)).
					Msg("dashboard disconnected")
			}
			h.mu.Unlock()

		case message := <-h.broadcast:
			h.broadcastRaw(message)
		}
	}
}

// Broadcast marshals a message and sends it to every connected dashboard.
func (h *Hub) Broadcast(v any) {
	data, err := json.Marshal(v)
	if err != nil {
		h.logger.Error().Err(err).Msg("failed to marshal broadcast message")
		return
	}
	h.broadcast <- data
}

// ClientCount returns the number of connected clients
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// broadcastRaw sends a raw message to all clients
func (h *Hub) broadcastRaw(message []byte) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for client := range h.clients {
		select {
		case client.send <- message:
		default:
			// Client's send buffer is full, close and remove it
			close(client.send)
			delete(h.clients, client)
			h.logger.Warn().
				Str("client_id", client.id).
				Msg("client send buffer full, closing connection")
		}
	}
}
