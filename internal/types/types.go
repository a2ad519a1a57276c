package types

import "time"

// Key identifies an entity across every per-user map and every rendered roster
// row. AgentID is the ACD identity (login/pause mutations), UserUUID the
// directory identity (DND, forward, presence, session, call). Either side may
// be empty: a queue member with no ACD binding has AgentID 0, an agent with no
// directory user has an empty UserUUID.
type Key struct {
	AgentID  int    `json:"agentId,omitempty"`
	UserUUID string `json:"userUuid,omitempty"`
}

// Matches reports whether the key refers to the same underlying entity.
// Identity is established by whichever side is populated on both keys.
func (k Key) Matches(other Key) bool {
	if k.AgentID != 0 && k.AgentID == other.AgentID {
		return true
	}
	if k.UserUUID != "" && k.UserUUID == other.UserUUID {
		return true
	}
	return false
}

// AgentInfo is the canonical agent directory entry.
type AgentInfo struct {
	ID        int    `json:"id"`
	UUID      string `json:"uuid,omitempty"`
	Number    string `json:"number,omitempty"`
	Extension string `json:"extension,omitempty"`
	Name      string `json:"name,omitempty"`
	Logged    bool   `json:"logged"`
	Paused    bool   `json:"paused"`

	// Login target resolved through the extension lookup on first login,
	// cached afterwards.
	LoginExtension string `json:"-"`
	LoginContext   string `json:"-"`
}

// UserInfo is a directory user entry.
type UserInfo struct {
	UUID      string `json:"uuid"`
	Name      string `json:"name"`
	Extension string `json:"extension,omitempty"`
}

// QueueMeta carries the two independent axes of queue identity: the numeric id
// keys mutating operations and statistics, the label keys grouping and display.
type QueueMeta struct {
	ID    int    `json:"id,omitempty"` // 0 for the synthetic outside roster
	Label string `json:"label"`
}

// RosterRow is the projection of one agent or directory user into one queue's
// roster. The same underlying entity appears once per queue it belongs to,
// plus once in the synthetic outside roster.
type RosterRow struct {
	AgentID    int    `json:"agentId,omitempty"`
	UserUUID   string `json:"userUuid,omitempty"`
	Name       string `json:"name"`
	Extension  string `json:"extension,omitempty"`
	Number     string `json:"number,omitempty"`
	Logged     bool   `json:"logged"`
	Paused     bool   `json:"paused"`
	QueueID    int    `json:"queueId,omitempty"` // 0 for the outside roster
	QueueLabel string `json:"queueLabel"`
}

// Key returns the identity key shared by every row rendered for this entity.
func (r RosterRow) Key() Key {
	return Key{AgentID: r.AgentID, UserUUID: r.UserUUID}
}

// Presence is the raw chat-presence state of a directory user, independent of
// agent login state.
type Presence string

const (
	PresenceAvailable Presence = "available"
	PresenceAway      Presence = "away"
	PresenceBusy      Presence = "busy"
	PresenceInvisible Presence = "invisible"
)

// DNDSetting is the per-user Do Not Disturb service toggle.
type DNDSetting struct {
	Enabled bool `json:"enabled"`
}

// ForwardSetting is the per-user unconditional call-forward rule.
type ForwardSetting struct {
	Enabled     bool   `json:"enabled"`
	Destination string `json:"destination,omitempty"`
}

// CallInfo is one in-progress answered call for a user, enough to drive a
// live duration display and the "on call" status override.
type CallInfo struct {
	Number    string    `json:"number"`
	Name      string    `json:"name,omitempty"` // directory-enriched caller ID
	Direction string    `json:"direction"`
	StartedAt time.Time `json:"startedAt"`
}

// QueueStats are call statistics for one queue over the configured window.
type QueueStats struct {
	QueueID   int     `json:"queueId"`
	Received  int     `json:"received"`
	Answered  int     `json:"answered"`
	Abandoned int     `json:"abandoned"`
	AvgWait   float64 `json:"avgWaitSeconds"`
}

// RosterCounts are the header counts displayed above each roster.
type RosterCounts struct {
	Total   int `json:"total"`
	Logged  int `json:"logged"`
	Paused  int `json:"paused"`
	Offline int `json:"offline"`
}

// CountRoster computes header counts for one roster.
func CountRoster(rows []RosterRow) RosterCounts {
	c := RosterCounts{Total: len(rows)}
	for _, r := range rows {
		if r.Logged {
			c.Logged++
			if r.Paused {
				c.Paused++
			}
		}
	}
	c.Offline = c.Total - c.Logged
	return c
}

// AlertSeverity grades a queue coverage alert.
type AlertSeverity string

const (
	SeverityWarning  AlertSeverity = "warning"
	SeverityCritical AlertSeverity = "critical"
)

// QueueAlert flags a roster-level coverage problem.
type QueueAlert struct {
	QueueLabel string        `json:"queueLabel"`
	Rule       string        `json:"rule"`
	Severity   AlertSeverity `json:"severity"`
	Message    string        `json:"message"`
}
