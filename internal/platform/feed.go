package platform

import (
	"context"
	"encoding/json"
	"net/url"
	"strings"
	"time"

	"github.com/gorilla/websocket"
	"github.com/pbxops/acdboard/internal/metrics"
	"github.com/pbxops/acdboard/internal/types"
	"github.com/rs/zerolog"
)

const (
	initialReconnectDelay = 1 * time.Second
	maxReconnectDelay     = 30 * time.Second
	feedWriteTimeout      = 10 * time.Second

	// Close code the platform sends when the auth token behind the feed has
	// expired. Reconnecting with the same token would loop forever, so this
	// is surfaced instead of retried.
	sessionExpiredCloseCode = 4003
)

// Feed maintains the WebSocket connection to the platform event bus. After
// each connect it performs the subscribe/start handshake, then delivers
// decoded events on Events. Connection loss triggers reconnection with
// exponential backoff; an expired session stops the feed permanently and
// signals SessionExpired.
type Feed struct {
	url     string
	events  chan types.Event
	expired chan struct{}
	dialer  *websocket.Dialer
	logger  zerolog.Logger
}

// NewFeed creates a feed client for the given stack base URL and token.
func NewFeed(baseURL, token string, logger zerolog.Logger) *Feed {
	wsURL := baseURL
	if strings.HasPrefix(wsURL, "http") {
		wsURL = "ws" + wsURL[len("http"):]
	}
	wsURL = strings.TrimSuffix(wsURL, "/") +
		"/api/websocketd/1.0/events?version=2&token=" + url.QueryEscape(token)

	return &Feed{
		url:     wsURL,
		events:  make(chan types.Event, 256),
		expired: make(chan struct{}),
		dialer:  websocket.DefaultDialer,
		logger:  logger.With().Str("component", "feed").Logger(),
	}
}

// Events returns the channel on which decoded platform events arrive.
func (f *Feed) Events() <-chan types.Event { return f.events }

// SessionExpired is closed when the platform refuses the token; the owner
// must re-authenticate and build a fresh feed.
func (f *Feed) SessionExpired() <-chan struct{} { return f.expired }

// Run connects and keeps the feed alive until the context is cancelled or the
// session expires.
func (f *Feed) Run(ctx context.Context) {
	reconnectDelay := initialReconnectDelay

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		conn, err := f.connect(ctx)
		if err != nil {
			f.logger.Warn().Err(err).Dur("retry_in", reconnectDelay).Msg("feed connection failed, retrying")
			select {
			case <-ctx.Done():
				return
			case <-time.After(reconnectDelay):
			}
			reconnectDelay *= 2
			if reconnectDelay > maxReconnectDelay {
				reconnectDelay = maxReconnectDelay
			}
			metrics.Get().RecordFeedReconnect()
			continue
		}

		reconnectDelay = initialReconnectDelay
		f.logger.Info().Msg("feed connected")

		sessionDead := f.readLoop(ctx, conn)
		conn.Close()
		if sessionDead {
			f.logger.Error().Msg("feed session expired, giving up reconnects")
			close(f.expired)
			return
		}
		f.logger.Warn().Msg("feed disconnected")
	}
}

// connect dials the feed and performs the subscribe/start handshake.
func (f *Feed) connect(ctx context.Context) (*websocket.Conn, error) {
	conn, _, err := f.dialer.DialContext(ctx, f.url, nil)
	if err != nil {
		return nil, err
	}

	handshake := []map[string]any{
		{"op": "subscribe", "data": map[string]string{"event_name": "*"}},
		{"op": "start"},
	}
	for _, msg := range handshake {
		conn.SetWriteDeadline(time.Now().Add(feedWriteTimeout))
		if err := conn.WriteJSON(msg); err != nil {
			conn.Close()
			return nil, err
		}
	}
	return conn, nil
}

// readLoop consumes frames until the connection drops. It reports whether the
// close was a session expiry.
func (f *Feed) readLoop(ctx context.Context, conn *websocket.Conn) bool {
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			conn.Close()
		case <-done:
		}
	}()

	for {
		_, message, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsCloseError(err, sessionExpiredCloseCode) {
				return true
			}
			return false
		}
		f.handleFrame(message)
	}
}

// handleFrame decodes one protocol frame and forwards event frames.
func (f *Feed) handleFrame(message []byte) {
	var frame struct {
		Op   string          `json:"op"`
		Code int             `json:"code"`
		Data json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(message, &frame); err != nil {
		f.logger.Debug().Err(err).Msg("undecodable feed frame")
		return
	}

	switch frame.Op {
	case "event":
		var envelope struct {
			Name string          `json:"name"`
			Data json.RawMessage `json:"data"`
		}
		if err := json.Unmarshal(frame.Data, &envelope); err != nil {
			f.logger.Debug().Err(err).Msg("undecodable event envelope")
			return
		}
		metrics.Get().RecordFeedEvent()
		select {
		case f.events <- types.Event{Name: envelope.Name, Data: envelope.Data}:
		default:
			f.logger.Warn().Str("event", envelope.Name).Msg("event buffer full, dropping")
		}
	case "subscribe", "start", "init":
		// Handshake acknowledgements.
	default:
		f.logger.Debug().Str("op", frame.Op).Int("code", frame.Code).Msg("ignoring feed frame")
	}
}
