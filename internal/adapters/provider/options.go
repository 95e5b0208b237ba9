package provider

import (
	"net/http"
	"time"
)

// Option applies a configuration option to the Client.
type Option func(*Client)

// WithSnapshotPath sets the path of the participant snapshot endpoint.
func WithSnapshotPath(path string) Option {
	return func(c *Client) {
		if path != "" {
			c.snapshotPath = path
		}
	}
}

// WithRoutesPath sets the path of the route endpoint.
func WithRoutesPath(path string) Option {
	return func(c *Client) {
		if path != "" {
			c.routesPath = path
		}
	}
}

// WithTimeout bounds every request. Zero disables the client-side timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d >= 0 {
			c.timeout = d
		}
	}
}

// WithHTTPClient sets the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}
