package probe

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/okian/runtrack/internal/domain/types"
)

// HTTPClient reads the tracker outputs.
type HTTPClient struct {
	client  *http.Client
	baseURL string
}

// newHTTPClient creates a new HTTP client with timeout
func newHTTPClient(baseURL string, timeout time.Duration) *HTTPClient {
	return &HTTPClient{
		client:  &http.Client{Timeout: timeout},
		baseURL: baseURL,
	}
}

// Get performs a GET request and returns the body of a 200 response.
func (c *HTTPClient) Get(ctx context.Context, path string) ([]byte, error) {
	target := c.baseURL + path
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("GET %s: %w", target, err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", target, err)
	}
	if resp.StatusCode != http.StatusOK {
		return body, &StatusError{URL: target, StatusCode: resp.StatusCode}
	}
	return body, nil
}

func (c *HTTPClient) getJSON(ctx context.Context, path string, v any) error {
	body, err := c.Get(ctx, path)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(body, v); err != nil {
		return fmt.Errorf("decode %s: %w", path, err)
	}
	return nil
}

// View samples GET /view.
func (c *HTTPClient) View(ctx context.Context) (types.View, error) {
	var v types.View
	err := c.getJSON(ctx, "/view", &v)
	return v, err
}

// Rank reads GET /rank/{runner_id}.
func (c *HTTPClient) Rank(ctx context.Context, runnerID string) (types.Entry, error) {
	var e types.Entry
	err := c.getJSON(ctx, "/rank/"+url.PathEscape(runnerID), &e)
	return e, err
}
