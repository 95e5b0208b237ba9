// Package config defines service configuration structures and loading hooks.
//
// Conventions:
// - Provide New() to build a Config with defaults.
// - Loaders accept context.Context as the first parameter.
// - External errors are wrapped with this package's sentinel errors.
package config

import (
	"fmt"
	"strconv"
	"time"

	"github.com/okian/runtrack/internal/domain/types"
)

// Offset is a per-route visual offset in degrees.
type Offset struct {
	Lat float64 `koanf:"lat" validate:"gte=-1,lte=1"`
	Lon float64 `koanf:"lon" validate:"gte=-1,lte=1"`
}

// MapConfig controls the position to coordinate transform.
type MapConfig struct {
	BaseLat float64 `koanf:"base_lat" validate:"gte=-90,lte=90"`
	BaseLon float64 `koanf:"base_lon" validate:"gte=-180,lte=180"`
	Scale   float64 `koanf:"scale" validate:"gt=0"`

	// RouteOffsets is keyed by route id. Routes not listed get no offset.
	RouteOffsets map[string]Offset `koanf:"route_offsets" validate:"dive,keys,numeric,endkeys"`
}

// MetricsConfig shapes the Prometheus collectors.
type MetricsConfig struct {
	// Namespace and Subsystem prefix every metric name.
	Namespace string `koanf:"namespace" validate:"required,metricname"`
	Subsystem string `koanf:"subsystem" validate:"omitempty,metricname"`

	// FetchEnabled toggles the provider fetch counters and latency histogram.
	FetchEnabled bool `koanf:"fetch_enabled"`

	// RefreshIntervalMS is the period of the runtime gauges.
	RefreshIntervalMS int `koanf:"refresh_interval_ms" validate:"gt=0"`

	// Labels are attached to every metric as constant labels.
	Labels map[string]string `koanf:"labels" validate:"dive,keys,metricname,endkeys"`
}

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level" validate:"oneof=debug info warn warning error"`

	// LogFormat selects the log encoding: text or json.
	LogFormat string `koanf:"log_format" validate:"oneof=text json"`

	// Addr configures the HTTP listen address, e.g. ":8080".
	Addr string `koanf:"addr" validate:"required"`

	// ProviderURL is the base URL of the tracking data provider.
	ProviderURL string `koanf:"provider_url" validate:"required,url"`

	// SnapshotPath and RoutesPath are the provider endpoints.
	SnapshotPath string `koanf:"snapshot_path" validate:"required,startswith=/"`
	RoutesPath   string `koanf:"routes_path" validate:"required,startswith=/"`

	// PollIntervalMS is the time between two snapshot requests.
	PollIntervalMS int `koanf:"poll_interval_ms" validate:"gt=0"`

	// RequestTimeoutMS bounds every provider request; 0 disables the bound.
	RequestTimeoutMS int `koanf:"request_timeout_ms" validate:"gte=0"`

	// EventQueueSize bounds the session event queue.
	EventQueueSize int `koanf:"event_queue_size" validate:"gt=0"`

	// DefaultSegments is assumed for routes the catalog does not describe.
	DefaultSegments int `koanf:"default_segments" validate:"gt=0"`

	// SpeedTopN is the length of the overall speed leaderboard.
	SpeedTopN int `koanf:"speed_top_n" validate:"gt=0"`

	// MaxLeaderboardLimit caps GET /leaderboard?limit.
	MaxLeaderboardLimit int `koanf:"max_leaderboard_limit" validate:"gt=0"`

	Map MapConfig `koanf:"map"`

	Metrics MetricsConfig `koanf:"metrics"`
}

// New creates a Config holding the defaults.
func New() *Config {
	return &Config{
		LogLevel:            "info",
		LogFormat:           "text",
		Addr:                ":9080",
		ProviderURL:         "http://localhost:8000",
		SnapshotPath:        "/dados",
		RoutesPath:          "/rutas",
		PollIntervalMS:      2000,
		RequestTimeoutMS:    10000,
		EventQueueSize:      64,
		DefaultSegments:     3,
		SpeedTopN:           10,
		MaxLeaderboardLimit: 100,
		Map: MapConfig{
			BaseLat: 38.7138,
			BaseLon: -9.1396,
			Scale:   0.02,
			RouteOffsets: map[string]Offset{
				"1": {Lat: 0, Lon: 0},
				"2": {Lat: 0.005, Lon: 0.005},
				"3": {Lat: -0.005, Lon: 0.005},
			},
		},
		Metrics: MetricsConfig{
			Namespace:         "runtrack",
			Subsystem:         "client",
			FetchEnabled:      true,
			RefreshIntervalMS: 10000,
		},
	}
}

// PollInterval returns PollIntervalMS as a duration.
func (c *Config) PollInterval() time.Duration {
	return time.Duration(c.PollIntervalMS) * time.Millisecond
}

// RequestTimeout returns RequestTimeoutMS as a duration.
func (c *Config) RequestTimeout() time.Duration {
	return time.Duration(c.RequestTimeoutMS) * time.Millisecond
}

// RefreshInterval returns Metrics.RefreshIntervalMS as a duration.
func (c *Config) RefreshInterval() time.Duration {
	return time.Duration(c.Metrics.RefreshIntervalMS) * time.Millisecond
}

// Offsets returns the route offset table keyed by numeric route id.
func (c *Config) Offsets() (map[int]types.LatLon, error) {
	out := make(map[int]types.LatLon, len(c.Map.RouteOffsets))
	for k, off := range c.Map.RouteOffsets {
		id, err := strconv.Atoi(k)
		if err != nil {
			return nil, fmt.Errorf("%w: map.route_offsets key %q is not a route id", ErrInvalidConfig, k)
		}
		out[id] = types.LatLon{Lat: off.Lat, Lon: off.Lon}
	}
	return out, nil
}
