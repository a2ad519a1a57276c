package metrics

import (
	"net/http"
	"strconv"
	"sync"
	"time"
)

// Metrics holds all application counters.
type Metrics struct {
	mu sync.RWMutex

	// Platform REST metrics
	platformRequests map[string]map[int]int64 // method -> status -> count

	// Feed metrics
	FeedEventsTotal     int64
	FeedReconnectsTotal int64

	// Reconciliation metrics
	PatchesBroadcastTotal int64
	FullReloadsTotal      int64
	EventsIgnoredTotal    int64

	// Intent metrics
	intents map[string]map[string]int64 // kind -> outcome -> count

	// Dashboard WebSocket metrics
	WSConnectionsTotal    int64
	WSDisconnectionsTotal int64
	activeConnections     int64

	// Timing
	startTime time.Time
}

// Global metrics instance
var instance *Metrics
var once sync.Once

// Get returns the singleton metrics instance.
func Get() *Metrics {
	once.Do(func() {
		instance = &Metrics{
			platformRequests: make(map[string]map[int]int64),
			intents:          make(map[string]map[string]int64),
			startTime:        time.Now(),
		}
	})
	return instance
}

// RecordPlatformRequest counts one platform REST call. Status 0 means the
// request never got a response.
func (m *Metrics) RecordPlatformRequest(method string, status int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.platformRequests[method] == nil {
		m.platformRequests[method] = make(map[int]int64)
	}
	m.platformRequests[method][status]++
}

// RecordFeedEvent counts one event delivered by the platform feed.
func (m *Metrics) RecordFeedEvent() {
	m.mu.Lock()
	m.FeedEventsTotal++
	m.mu.Unlock()
}

// RecordFeedReconnect counts one feed reconnect attempt.
func (m *Metrics) RecordFeedReconnect() {
	m.mu.Lock()
	m.FeedReconnectsTotal++
	m.mu.Unlock()
}

// RecordPatchBroadcast counts one targeted patch pushed to dashboards.
func (m *Metrics) RecordPatchBroadcast() {
	m.mu.Lock()
	m.PatchesBroadcastTotal++
	m.mu.Unlock()
}

// RecordFullReload counts one full load-and-regroup cycle.
func (m *Metrics) RecordFullReload() {
	m.mu.Lock()
	m.FullReloadsTotal++
	m.mu.Unlock()
}

// RecordEventIgnored counts one unrecognized feed event.
func (m *Metrics) RecordEventIgnored() {
	m.mu.Lock()
	m.EventsIgnoredTotal++
	m.mu.Unlock()
}

// RecordIntent counts one dispatched intent by kind and outcome
// ("ok" or "rolled_back").
func (m *Metrics) RecordIntent(kind, outcome string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.intents[kind] == nil {
		m.intents[kind] = make(map[string]int64)
	}
	m.intents[kind][outcome]++
}

// RecordWSConnect increments dashboard connection counters.
func (m *Metrics) RecordWSConnect() {
	m.mu.Lock()
	m.WSConnectionsTotal++
	m.activeConnections++
	m.mu.Unlock()
}

// RecordWSDisconnect increments the disconnection counter.
func (m *Metrics) RecordWSDisconnect() {
	m.mu.Lock()
	m.WSDisconnectionsTotal++
	m.activeConnections--
	m.mu.Unlock()
}

// GetActiveConnections returns current dashboard WebSocket connections.
func (m *Metrics) GetActiveConnections() int64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.activeConnections
}

// Handler returns an HTTP handler for the /metrics endpoint.
func (m *Metrics) Handler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		m.mu.RLock()
		defer m.mu.RUnlock()

		w.Header().Set("Content-Type", "text/plain; charset=utf-8")

		write := func(name string, value interface{}, labels ...string) {
			labelStr := ""
			if len(labels) > 0 {
				labelStr = "{"
				for i := 0; i < len(labels); i += 2 {
					if i > 0 {
						labelStr += ","
					}
					labelStr += labels[i] + "=\"" + labels[i+1] + "\""
				}
				labelStr += "}"
			}

			switch v := value.(type) {
			case int:
				w.Write([]byte(name + labelStr + " " + strconv.Itoa(v) + "\n"))
			case int64:
				w.Write([]byte(name + labelStr + " " + strconv.FormatInt(v, 10) + "\n"))
			case float64:
				w.Write([]byte(name + labelStr + " " + strconv.FormatFloat(v, 'f', 6, 64) + "\n"))
			}
		}

		write("acdboard_uptime_seconds", time.Since(m.startTime).Seconds())

		for method, statuses := range m.platformRequests {
			for status, count := range statuses {
				write("acdboard_platform_requests_total", count,
					"method", method, "status", strconv.Itoa(status))
			}
		}

		write("acdboard_feed_events_total", m.FeedEventsTotal)
		write("acdboard_feed_reconnects_total", m.FeedReconnectsTotal)

		write("acdboard_patches_broadcast_total", m.PatchesBroadcastTotal)
		write("acdboard_full_reloads_total", m.FullReloadsTotal)
		write("acdboard_events_ignored_total", m.EventsIgnoredTotal)

		for kind, outcomes := range m.intents {
			for outcome, count := range outcomes {
				write("acdboard_intents_total", count, "kind", kind, "outcome", outcome)
			}
		}

		write("acdboard_ws_connections_total", m.WSConnectionsTotal)
		write("acdboard_ws_disconnections_total", m.WSDisconnectionsTotal)
		write("acdboard_ws_active_connections", m.activeConnections)
	}
}
