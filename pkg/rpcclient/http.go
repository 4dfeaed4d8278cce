package rpcclient

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
)

type envelope struct {
	Result *struct {
		Data json.RawMessage `json:"data"`
	} `json:"result"`
	Error *Error `json:"error"`
}

// HTTPClient calls procedures through GET /api/rpc/<name>.
type HTTPClient struct {
	client *resty.Client
}

// NewHTTPClient creates a client for the service at baseURL, e.g. http://localhost:8080.
func NewHTTPClient(baseURL string, timeout time.Duration) *HTTPClient {
	client := resty.New().
		SetBaseURL(strings.TrimRight(baseURL, "/")).
		SetTimeout(timeout).
		SetHeader("Accept", "application/json")
	return &HTTPClient{client: client}
}

// GetUsers calls the getUsers procedure.
func (c *HTTPClient) GetUsers(ctx context.Context) ([]User, error) {
	var users []User
	if err := c.query(ctx, "getUsers", &users); err != nil {
		return nil, err
	}
	if users == nil {
		users = []User{}
	}
	return users, nil
}

func (c *HTTPClient) query(ctx context.Context, procedure string, out any) error {
	resp, err := c.client.R().
		SetContext(ctx).
		SetPathParam("procedure", procedure).
		Get("/api/rpc/{procedure}")
	if err != nil {
		return fmt.Errorf("failed to call %s: %w", procedure, err)
	}

	var env envelope
	if err := json.Unmarshal(resp.Body(), &env); err != nil {
		return fmt.Errorf("unexpected response from %s (status %d): %w", procedure, resp.StatusCode(), err)
	}
	if env.Error != nil {
		return env.Error
	}
	if env.Result == nil {
		return fmt.Errorf("empty response from %s (status %d)", procedure, resp.StatusCode())
	}

	if err := json.Unmarshal(env.Result.Data, out); err != nil {
		return fmt.Errorf("failed to decode %s result: %w", procedure, err)
	}
	return nil
}

// Close is a no-op; resty reuses the default transport.
func (c *HTTPClient) Close() error {
	return nil
}
