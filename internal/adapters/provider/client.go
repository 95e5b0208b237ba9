// Package provider is the HTTP client of the tracking data provider.
package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/okian/runtrack/internal/domain/model"
	"github.com/okian/runtrack/pkg/metrics"
)

// Default provider endpoints and limits.
const (
	DefaultSnapshotPath = "/dados"
	DefaultRoutesPath   = "/rutas"
	DefaultTimeout      = 10 * time.Second

	maxBodyBytes = 32 << 20
)

// Endpoint labels used for metrics.
const (
	EndpointSnapshot = "snapshot"
	EndpointRoutes   = "routes"
)

// Snapshot is one decoded participant snapshot with its raw payload.
type Snapshot struct {
	Participants []model.Participant
	Raw          json.RawMessage
}

type snapshotPayload struct {
	Participants []model.Participant `json:"participantes"`
}

type routesPayload struct {
	Routes []model.Route `json:"rutas"`
}

// Client fetches snapshots and routes from the provider.
type Client struct {
	baseURL      string
	snapshotPath string
	routesPath   string
	timeout      time.Duration
	httpClient   *http.Client
}

// New creates a client for the provider at baseURL.
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:      strings.TrimRight(baseURL, "/"),
		snapshotPath: DefaultSnapshotPath,
		routesPath:   DefaultRoutesPath,
		timeout:      DefaultTimeout,
		httpClient:   http.DefaultClient,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// FetchSnapshot GETs the participant snapshot. A payload without the
// participant list decodes to an empty snapshot.
func (c *Client) FetchSnapshot(ctx context.Context) (Snapshot, error) {
	start := time.Now()
	body, err := c.get(ctx, c.snapshotPath)
	if err != nil {
		metrics.RecordFetch(EndpointSnapshot, metrics.OutcomeFailure, time.Since(start))
		return Snapshot{}, err
	}

	var payload snapshotPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		metrics.RecordFetch(EndpointSnapshot, metrics.OutcomeFailure, time.Since(start))
		return Snapshot{}, fmt.Errorf("%w: %s: %w", ErrDecode, c.snapshotPath, err)
	}
	if payload.Participants == nil {
		payload.Participants = []model.Participant{}
	}

	metrics.RecordFetch(EndpointSnapshot, metrics.OutcomeSuccess, time.Since(start))
	return Snapshot{Participants: payload.Participants, Raw: body}, nil
}

// FetchParticipants GETs the participant snapshot and returns its list.
func (c *Client) FetchParticipants(ctx context.Context) ([]model.Participant, error) {
	s, err := c.FetchSnapshot(ctx)
	if err != nil {
		return nil, err
	}
	return s.Participants, nil
}

// FetchRoutes GETs the static route list. A payload without the route list
// decodes to no routes.
func (c *Client) FetchRoutes(ctx context.Context) ([]model.Route, error) {
	start := time.Now()
	body, err := c.get(ctx, c.routesPath)
	if err != nil {
		metrics.RecordFetch(EndpointRoutes, metrics.OutcomeFailure, time.Since(start))
		return nil, err
	}

	var payload routesPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		metrics.RecordFetch(EndpointRoutes, metrics.OutcomeFailure, time.Since(start))
		return nil, fmt.Errorf("%w: %s: %w", ErrDecode, c.routesPath, err)
	}
	if payload.Routes == nil {
		payload.Routes = []model.Route{}
	}

	metrics.RecordFetch(EndpointRoutes, metrics.OutcomeSuccess, time.Since(start))
	return payload.Routes, nil
}

// get performs a GET request bounded by the client timeout.
func (c *Client) get(ctx context.Context, path string) ([]byte, error) {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: create request: %w", ErrTransport, err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrTransport, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxBodyBytes))
		return nil, &StatusError{StatusCode: resp.StatusCode, Path: path}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("%w: read %s: %w", ErrTransport, path, err)
	}
	return body, nil
}
