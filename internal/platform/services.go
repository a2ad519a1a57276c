package platform

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"time"

	"github.com/pbxops/acdboard/internal/types"
)

// ActiveCall is one in-progress call as reported by calld.
type ActiveCall struct {
	UserUUID     string `json:"user_uuid"`
	PeerNumber   string `json:"peer_caller_id_number"`
	PeerName     string `json:"peer_caller_id_name"`
	Status       string `json:"status"` // "Up" once answered
	IsCaller     bool   `json:"is_caller"`
	CreationTime string `json:"creation_time"`
	AnswerTime   string `json:"answer_time"`
}

// Answered reports whether the call has been picked up.
func (c ActiveCall) Answered() bool { return c.Status == "Up" }

// Direction derives the call direction from the caller flag.
func (c ActiveCall) Direction() string {
	if c.IsCaller {
		return "outbound"
	}
	return "inbound"
}

// StartedAt returns the answer time when known, otherwise the creation time.
func (c ActiveCall) StartedAt() time.Time {
	for _, raw := range []string{c.AnswerTime, c.CreationTime} {
		if raw == "" {
			continue
		}
		if t, err := time.Parse(time.RFC3339, raw); err == nil {
			return t
		}
	}
	return time.Time{}
}

// ListCalls fetches every in-progress call on the stack.
func (c *Client) ListCalls(ctx context.Context) ([]ActiveCall, error) {
	raw, err := c.get(ctx, "/api/calld/1.0/calls")
	if err != nil {
		return nil, err
	}
	return decodeCollection[ActiveCall](raw), nil
}

// Originate places a call from the authenticated supervisor to the given
// extension. Supervision (listen/whisper/barge) dials a service prefix plus
// the target agent's extension.
func (c *Client) Originate(ctx context.Context, extension string) error {
	body := map[string]string{"extension": extension}
	_, err := c.post(ctx, "/api/calld/1.0/users/me/calls", body)
	return err
}

// presencePayload is one chatd presence record.
type presencePayload struct {
	UUID  string `json:"uuid"`
	State string `json:"state"`
}

// ListPresences fetches the chat presence of every user, keyed by user uuid.
func (c *Client) ListPresences(ctx context.Context) (map[string]types.Presence, error) {
	raw, err := c.get(ctx, "/api/chatd/1.0/users/presences")
	if err != nil {
		return nil, err
	}
	presences := make(map[string]types.Presence)
	for _, p := range decodeCollection[presencePayload](raw) {
		if p.UUID != "" {
			presences[p.UUID] = types.Presence(p.State)
		}
	}
	return presences, nil
}

// HasSession reports whether the user has any active authenticated session.
// A 404 means the user is unknown to the auth service, which is a normal
// empty answer, not a failure.
func (c *Client) HasSession(ctx context.Context, userUUID string) (bool, error) {
	raw, err := c.get(ctx, "/api/auth/0.1/users/"+url.PathEscape(userUUID)+"/sessions")
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return false, nil
		}
		return false, err
	}
	return len(Collection(raw)) > 0, nil
}

// queueStatsPayload is one statistics row from call-logd. Rows are per
// interval; totals are summed client-side.
type queueStatsPayload struct {
	QueueID   int     `json:"queue_id"`
	Received  int     `json:"received"`
	Answered  int     `json:"answered"`
	Abandoned int     `json:"abandoned"`
	AvgWait   float64 `json:"average_waiting_time"`
}

// QueueStatistics fetches call statistics for one queue over a time window.
func (c *Client) QueueStatistics(ctx context.Context, queueID int, from, until time.Time) (types.QueueStats, error) {
	path := fmt.Sprintf("/api/call-logd/1.0/queues/%d/statistics?from=%s&until=%s",
		queueID,
		url.QueryEscape(from.Format(time.RFC3339)),
		url.QueryEscape(until.Format(time.RFC3339)))

	raw, err := c.get(ctx, path)
	if err != nil {
		return types.QueueStats{}, err
	}

	stats := types.QueueStats{QueueID: queueID}
	rows := decodeCollection[queueStatsPayload](raw)
	var waitSum float64
	for _, row := range rows {
		stats.Received += row.Received
		stats.Answered += row.Answered
		stats.Abandoned += row.Abandoned
		waitSum += row.AvgWait
	}
	if len(rows) > 0 {
		stats.AvgWait = waitSum / float64(len(rows))
	}
	return stats, nil
}

// dirdResult is one directory lookup result.
type dirdResult struct {
	Column []json.RawMessage `json:"column_values"`
}

// LookupContact asks the directory service for a display name matching the
// given number, used to enrich caller IDs on in-progress calls. Returns an
// empty string when nothing matches.
func (c *Client) LookupContact(ctx context.Context, number string) (string, error) {
	path := "/api/dird/0.1/directories/lookup/default?term=" + url.QueryEscape(number)
	raw, err := c.get(ctx, path)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return "", nil
		}
		return "", err
	}

	var payload struct {
		Results []dirdResult `json:"results"`
	}
	if err := json.Unmarshal(raw, &payload); err != nil || len(payload.Results) == 0 {
		return "", nil
	}
	// The first column of the default profile is the display name.
	cols := payload.Results[0].Column
	if len(cols) == 0 {
		return "", nil
	}
	var name string
	if err := json.Unmarshal(cols[0], &name); err != nil {
		return "", nil
	}
	return name, nil
}
