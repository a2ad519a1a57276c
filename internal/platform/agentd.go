package platform

import (
	"context"
	"fmt"
	"net/url"
	"strings"
)

// Agent is one agent directory entry as returned by agentd. The listing mixes
// identity (id/uuid), addressing (number/extension) and live ACD state
// (logged/paused) in one record.
type Agent struct {
	ID          int    `json:"id"`
	UUID        string `json:"uuid"`
	Number      string `json:"number"`
	Extension   string `json:"extension"`
	Firstname   string `json:"firstname"`
	Lastname    string `json:"lastname"`
	DisplayName string `json:"display_name"`
	Logged      bool   `json:"logged"`
	Paused      bool   `json:"paused"`
}

// Ext returns the agent's extension, falling back to its number. The two
// fields are filled inconsistently across platform versions.
func (a Agent) Ext() string {
	if a.Extension != "" {
		return a.Extension
	}
	return a.Number
}

// Name returns the best display name the agent record itself can offer.
func (a Agent) Name() string {
	if a.DisplayName != "" {
		return a.DisplayName
	}
	full := strings.TrimSpace(a.Firstname + " " + a.Lastname)
	if full != "" {
		return full
	}
	if ext := a.Ext(); ext != "" {
		return "Agent " + ext
	}
	return fmt.Sprintf("Agent %d", a.ID)
}

// ListAgents fetches the full agent directory with live login/pause state.
func (c *Client) ListAgents(ctx context.Context) ([]Agent, error) {
	raw, err := c.get(ctx, "/api/agentd/1.0/agents?recurse=true")
	if err != nil {
		return nil, err
	}
	return decodeCollection[Agent](raw), nil
}

// LoginAgent logs an agent in on the given extension and context.
func (c *Client) LoginAgent(ctx context.Context, agentID int, extension, dialContext string) error {
	body := map[string]string{"extension": extension, "context": dialContext}
	_, err := c.post(ctx, fmt.Sprintf("/api/agentd/1.0/agents/by-id/%d/login", agentID), body)
	return err
}

// LogoffAgent logs an agent out.
func (c *Client) LogoffAgent(ctx context.Context, agentID int) error {
	_, err := c.post(ctx, fmt.Sprintf("/api/agentd/1.0/agents/by-id/%d/logoff", agentID), nil)
	return err
}

// PauseAgent pauses an agent by number, with a reason recorded platform-side.
func (c *Client) PauseAgent(ctx context.Context, number, reason string) error {
	path := fmt.Sprintf("/api/agentd/1.0/agents/by-number/%s/pause", url.PathEscape(number))
	_, err := c.post(ctx, path, map[string]string{"reason": reason})
	return err
}

// UnpauseAgent resumes an agent by number. No body on unpause.
func (c *Client) UnpauseAgent(ctx context.Context, number string) error {
	path := fmt.Sprintf("/api/agentd/1.0/agents/by-number/%s/unpause", url.PathEscape(number))
	_, err := c.post(ctx, path, nil)
	return err
}

// AddAgentToQueue adds an agent to a queue by numeric queue id.
func (c *Client) AddAgentToQueue(ctx context.Context, agentID, queueID int) error {
	body := map[string]int{"queue_id": queueID}
	_, err := c.post(ctx, fmt.Sprintf("/api/agentd/1.0/agents/by-id/%d/add", agentID), body)
	return err
}

// RemoveAgentFromQueue removes an agent from a queue by numeric queue id.
func (c *Client) RemoveAgentFromQueue(ctx context.Context, agentID, queueID int) error {
	body := map[string]int{"queue_id": queueID}
	_, err := c.post(ctx, fmt.Sprintf("/api/agentd/1.0/agents/by-id/%d/remove", agentID), body)
	return err
}
