// Package client is a small HTTP client for the activities API.
package client

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"example.com/activities/internal/api"
)

// APIError is returned for any non-2xx response.
type APIError struct {
	Status int
	Type   string
	Detail string
}

func (e *APIError) Error() string {
	if e.Type == "" {
		return fmt.Sprintf("activities api: status %d: %s", e.Status, e.Detail)
	}
	return fmt.Sprintf("activities api: %s: %s", e.Type, e.Detail)
}

// Client talks to the activities HTTP API.
type Client struct {
	Base string
	HTTP *http.Client
}

// New returns a Client with a bounded request timeout.
func New(base string) *Client {
	return &Client{
		Base: strings.TrimRight(base, "/"),
		HTTP: &http.Client{Timeout: 10 * time.Second},
	}
}

// List returns every activity keyed by name.
func (c *Client) List(ctx context.Context) (map[string]api.ActivityView, error) {
	var out map[string]api.ActivityView
	if err := c.do(ctx, http.MethodGet, "/activities", &out); err != nil {
		return nil, err
	}
	return out, nil
}

// SignUp enrolls email in activity and returns the confirmation message.
func (c *Client) SignUp(ctx context.Context, activity, email string) (string, error) {
	return c.rosterAction(ctx, activity, "signup", email)
}

// Unregister withdraws email from activity and returns the confirmation message.
func (c *Client) Unregister(ctx context.Context, activity, email string) (string, error) {
	return c.rosterAction(ctx, activity, "unregister", email)
}

func (c *Client) rosterAction(ctx context.Context, activity, action, email string) (string, error) {
	path := fmt.Sprintf("/activities/%s/%s?email=%s", url.PathEscape(activity), action, url.QueryEscape(email))
	var out api.MessageResponse
	if err := c.do(ctx, http.MethodPost, path, &out); err != nil {
		return "", err
	}
	return out.Message, nil
}

func (c *Client) do(ctx context.Context, method, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, method, c.Base+path, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
		apiErr := &APIError{Status: resp.StatusCode}
		var payload api.ErrorResponse
		if json.Unmarshal(body, &payload) == nil && payload.Type != "" {
			apiErr.Type, apiErr.Detail = payload.Type, payload.Detail
		} else {
			apiErr.Detail = strings.TrimSpace(string(body))
		}
		return apiErr
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
