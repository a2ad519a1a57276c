package platform

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/pbxops/acdboard/internal/metrics"
	"github.com/rs/zerolog"
)

// Failure taxonomy for platform calls. Handlers match these with errors.Is to
// pick the operator-facing message and the recovery path.
var (
	// ErrPermission covers 401/403 responses that are not an expired token.
	ErrPermission = errors.New("platform: permission denied")
	// ErrTokenExpired is raised when a 401/403 body hints at an expired
	// token; the only recovery is a full re-authentication cycle.
	ErrTokenExpired = errors.New("platform: auth token expired")
	// ErrNotFound covers 404 on lookups where absence is a normal answer.
	ErrNotFound = errors.New("platform: not found")
)

// Client is the REST client for the telephony platform. Every request carries
// the auth token in the X-Auth-Token header; those are platform contracts, not
// design choices.
type Client struct {
	baseURL string
	token   string
	http    *http.Client
	logger  zerolog.Logger
}

// NewClient creates a platform client for the given stack base URL and token.
func NewClient(baseURL, token string, logger zerolog.Logger) *Client {
	return &Client{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		token:   token,
		http:    &http.Client{Timeout: 15 * time.Second},
		logger:  logger.With().Str("component", "platform").Logger(),
	}
}

// BaseURL returns the configured stack base URL.
func (c *Client) BaseURL() string { return c.baseURL }

// Token returns the auth token used for REST and feed authentication.
func (c *Client) Token() string { return c.token }

// get issues a GET and returns the raw response body.
func (c *Client) get(ctx context.Context, path string) ([]byte, error) {
	return c.do(ctx, http.MethodGet, path, nil)
}

// post issues a POST with an optional JSON body.
func (c *Client) post(ctx context.Context, path string, body any) ([]byte, error) {
	return c.do(ctx, http.MethodPost, path, body)
}

// put issues a PUT with a JSON body.
func (c *Client) put(ctx context.Context, path string, body any) ([]byte, error) {
	return c.do(ctx, http.MethodPut, path, body)
}

func (c *Client) do(ctx context.Context, method, path string, body any) ([]byte, error) {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("marshal request body: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", method, path, err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Auth-Token", c.token)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	c.logger.Debug().Str("method", method).Str("path", path).Msg("platform request")

	res, err := c.http.Do(req)
	if err != nil {
		metrics.Get().RecordPlatformRequest(method, 0)
		return nil, fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer res.Body.Close()

	data, readErr := io.ReadAll(res.Body)
	metrics.Get().RecordPlatformRequest(method, res.StatusCode)

	switch {
	case res.StatusCode == http.StatusUnauthorized || res.StatusCode == http.StatusForbidden:
		if bytes.Contains(bytes.ToLower(data), []byte("expired")) {
			return nil, fmt.Errorf("%s %s: status %d: %w", method, path, res.StatusCode, ErrTokenExpired)
		}
		return nil, fmt.Errorf("%s %s: status %d: %w", method, path, res.StatusCode, ErrPermission)
	case res.StatusCode == http.StatusNotFound:
		return nil, fmt.Errorf("%s %s: %w", method, path, ErrNotFound)
	case res.StatusCode >= 400:
		return nil, fmt.Errorf("%s %s: status %d: %s", method, path, res.StatusCode, strings.TrimSpace(string(data)))
	}

	if readErr != nil {
		return nil, fmt.Errorf("%s %s: read body: %w", method, path, readErr)
	}
	if res.StatusCode == http.StatusNoContent {
		return nil, nil
	}
	return data, nil
}
