package types

import (
	"encoding/json"
	"time"
)

// Message types pushed to dashboard clients.
const (
	MessageSnapshot   = "snapshot"
	MessageRowPatch   = "row_patch"
	MessageUserPatch  = "user_patch"
	MessageQueueStats = "queue_stats"
	MessageAlerts     = "alerts"
	MessageStatus     = "status"
)

// SnapshotMessage is the full reconciled view, sent to every dashboard on
// connect and after each full reload.
type SnapshotMessage struct {
	Type      string                    `json:"type"` // "snapshot"
	Timestamp time.Time                 `json:"timestamp"`
	Queues    []QueueMeta               `json:"queues"`
	Rosters   map[string][]RosterRow    `json:"rosters"`
	Counts    map[string]RosterCounts   `json:"counts"`
	Presences map[string]Presence       `json:"presences,omitempty"`
	Sessions  map[string]bool           `json:"sessions,omitempty"`
	DND       map[string]DNDSetting     `json:"dnd,omitempty"`
	Forwards  map[string]ForwardSetting `json:"forwards,omitempty"`
	Calls     map[string]CallInfo       `json:"calls,omitempty"`
	Stats     map[int]QueueStats        `json:"stats,omitempty"`
}

// RowPatchMessage carries the updated projections of a single entity after a
// state change, one row per roster the entity appears in. Counts are the
// refreshed header counts for every roster.
type RowPatchMessage struct {
	Type   string                  `json:"type"` // "row_patch"
	Key    Key                     `json:"key"`
	Rows   []RosterRow             `json:"rows"`
	Counts map[string]RosterCounts `json:"counts,omitempty"`
}

// UserPatchMessage carries a point update to one user's service maps.
// Only the changed field is populated.
type UserPatchMessage struct {
	Type      string          `json:"type"` // "user_patch"
	UserUUID  string          `json:"userUuid"`
	Presence  *Presence       `json:"presence,omitempty"`
	Session   *bool           `json:"session,omitempty"`
	DND       *DNDSetting     `json:"dnd,omitempty"`
	Forward   *ForwardSetting `json:"forward,omitempty"`
	Call      *CallInfo       `json:"call,omitempty"`
	CallEnded bool            `json:"callEnded,omitempty"`
}

// QueueStatsMessage refreshes the per-queue statistics window.
type QueueStatsMessage struct {
	Type  string             `json:"type"` // "queue_stats"
	Stats map[int]QueueStats `json:"stats"`
}

// AlertsMessage carries the current queue coverage alerts.
type AlertsMessage struct {
	Type   string       `json:"type"` // "alerts"
	Alerts []QueueAlert `json:"alerts"`
}

// StatusMessage is the operator-facing status banner.
type StatusMessage struct {
	Type    string `json:"type"`  // "status"
	Level   string `json:"level"` // "info", "success", "error"
	Message string `json:"message"`
}

// Event is one message from the platform event feed. Name selects the handler
// family; Data keeps the family-specific payload undecoded until then.
type Event struct {
	Name string          `json:"name"`
	Data json.RawMessage `json:"data"`
}

// AgentStatusEvent reports an agent logging in or out.
type AgentStatusEvent struct {
	AgentID     int    `json:"agent_id"`
	AgentNumber string `json:"agent_number"`
	Status      string `json:"status"` // "logged_in" / "logged_out"
}

// AgentPauseEvent reports an agent pausing or resuming.
type AgentPauseEvent struct {
	AgentID     int    `json:"agent_id"`
	AgentNumber string `json:"agent_number"`
	Paused      bool   `json:"paused"`
}

// DNDEvent reports a change to a user's DND service.
type DNDEvent struct {
	UserUUID string `json:"user_uuid"`
	Enabled  bool   `json:"enabled"`
}

// ForwardEvent reports a change to a user's unconditional forward.
type ForwardEvent struct {
	UserUUID    string `json:"user_uuid"`
	Enabled     bool   `json:"enabled"`
	Destination string `json:"destination"`
}

// PresenceEvent reports a chat-presence change.
type PresenceEvent struct {
	UserUUID string `json:"uuid"`
	State    string `json:"state"`
}

// SessionEvent reports an authenticated session opening or closing.
type SessionEvent struct {
	UserUUID  string `json:"user_uuid"`
	SessionID string `json:"uuid"`
}
