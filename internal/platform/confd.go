package platform

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/pbxops/acdboard/internal/types"
)

// QueueMember is one membership reference inside a queue definition. The
// reference may point into the user space (uuid/id) or the agent space
// (agent_uuid/agent_id), and may carry nothing but a bare number.
type QueueMember struct {
	UUID      string `json:"uuid"`
	ID        int    `json:"id"`
	AgentUUID string `json:"agent_uuid"`
	AgentID   int    `json:"agent_id"`
	Number    string `json:"number"`
}

// Queue is one ACD queue definition with its membership lists.
type Queue struct {
	ID          int    `json:"id"`
	QueueID     int    `json:"queue_id"`
	Name        string `json:"name"`
	Label       string `json:"label"`
	DisplayName string `json:"display_name"`
	Members     struct {
		Users  []QueueMember `json:"users"`
		Agents []QueueMember `json:"agents"`
	} `json:"members"`
}

// NumericID returns the id used by mutating operations and statistics.
func (q Queue) NumericID() int {
	if q.QueueID != 0 {
		return q.QueueID
	}
	return q.ID
}

// DisplayLabel returns the label used as the grouping and rendering key.
func (q Queue) DisplayLabel() string {
	switch {
	case q.DisplayName != "":
		return q.DisplayName
	case q.Label != "":
		return q.Label
	case q.Name != "":
		return q.Name
	}
	return "Queue"
}

// UserExtension is one extension bound to a user line.
type UserExtension struct {
	Exten   string `json:"exten"`
	Context string `json:"context"`
}

// UserLine is one line of a directory user.
type UserLine struct {
	Extensions []UserExtension `json:"extensions"`
}

// User is one directory user entry.
type User struct {
	UUID        string     `json:"uuid"`
	ID          int        `json:"id"`
	Firstname   string     `json:"firstname"`
	Lastname    string     `json:"lastname"`
	DisplayName string     `json:"display_name"`
	Username    string     `json:"username"`
	Email       string     `json:"email"`
	Lines       []UserLine `json:"lines"`
}

// Key returns the identity key of the user record, preferring the uuid.
func (u User) Key() string {
	if u.UUID != "" {
		return u.UUID
	}
	if u.ID != 0 {
		return strconv.Itoa(u.ID)
	}
	return ""
}

// Name assembles the friendliest display name the record offers.
func (u User) Name() string {
	full := strings.TrimSpace(u.Firstname + " " + u.Lastname)
	switch {
	case full != "":
		return full
	case u.DisplayName != "":
		return u.DisplayName
	case u.Username != "":
		return u.Username
	case u.Email != "":
		return u.Email
	}
	return "User " + u.Key()
}

// PrimaryExtension returns the first extension of the first line carrying
// one, the only bridge between the user and agent identity spaces.
func (u User) PrimaryExtension() string {
	for _, line := range u.Lines {
		for _, ext := range line.Extensions {
			if ext.Exten != "" {
				return ext.Exten
			}
		}
	}
	return ""
}

// ListQueues fetches every queue definition with membership lists.
func (c *Client) ListQueues(ctx context.Context) ([]Queue, error) {
	raw, err := c.get(ctx, "/api/confd/1.1/queues?recurse=true")
	if err != nil {
		return nil, err
	}
	return decodeCollection[Queue](raw), nil
}

// ListUsers fetches the full user directory with lines and extensions.
func (c *Client) ListUsers(ctx context.Context) ([]User, error) {
	raw, err := c.get(ctx, "/api/confd/1.1/users?recurse=true")
	if err != nil {
		return nil, err
	}
	return decodeCollection[User](raw), nil
}

// LookupExtension resolves an extension number to its dial context, needed to
// build an agent login target. Returns ErrNotFound when the extension does
// not exist.
func (c *Client) LookupExtension(ctx context.Context, exten string) (UserExtension, error) {
	path := "/api/confd/1.1/extensions?recurse=true&exten=" + url.QueryEscape(exten)
	raw, err := c.get(ctx, path)
	if err != nil {
		return UserExtension{}, err
	}
	for _, item := range Collection(raw) {
		var ext UserExtension
		if err := json.Unmarshal(item, &ext); err != nil {
			continue
		}
		if ext.Exten != "" && ext.Context != "" {
			return ext, nil
		}
	}
	return UserExtension{}, fmt.Errorf("extension %q: %w", exten, ErrNotFound)
}

// GetDND fetches a user's DND service toggle.
func (c *Client) GetDND(ctx context.Context, userUUID string) (types.DNDSetting, error) {
	raw, err := c.get(ctx, "/api/confd/1.1/users/"+url.PathEscape(userUUID)+"/services/dnd")
	if err != nil {
		return types.DNDSetting{}, err
	}
	var dnd types.DNDSetting
	if err := json.Unmarshal(raw, &dnd); err != nil {
		return types.DNDSetting{}, fmt.Errorf("decode dnd for %s: %w", userUUID, err)
	}
	return dnd, nil
}

// SetDND toggles a user's DND service.
func (c *Client) SetDND(ctx context.Context, userUUID string, enabled bool) error {
	body := map[string]bool{"enabled": enabled}
	_, err := c.put(ctx, "/api/confd/1.1/users/"+url.PathEscape(userUUID)+"/services/dnd", body)
	return err
}

// GetForward fetches a user's unconditional forward rule.
func (c *Client) GetForward(ctx context.Context, userUUID string) (types.ForwardSetting, error) {
	raw, err := c.get(ctx, "/api/confd/1.1/users/"+url.PathEscape(userUUID)+"/forwards/unconditional")
	if err != nil {
		return types.ForwardSetting{}, err
	}
	var fwd types.ForwardSetting
	if err := json.Unmarshal(raw, &fwd); err != nil {
		return types.ForwardSetting{}, fmt.Errorf("decode forward for %s: %w", userUUID, err)
	}
	return fwd, nil
}

// SetForward updates a user's unconditional forward rule.
func (c *Client) SetForward(ctx context.Context, userUUID string, fwd types.ForwardSetting) error {
	_, err := c.put(ctx, "/api/confd/1.1/users/"+url.PathEscape(userUUID)+"/forwards/unconditional", fwd)
	return err
}
