// Package metrics provides Prometheus metrics for the runtrack client.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Default metrics configuration constants.
const (
	defaultRefreshInterval = 10 * time.Second
)

// Fetch outcomes used as label values.
const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
	OutcomeStale   = "stale"
)

// Manager manages all Prometheus metrics for the tracker.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	enabled          bool
	refreshInterval  time.Duration
	customLabels     map[string]string
	registry         prometheus.Registerer

	// Fetcher
	fetchTotal    *prometheus.CounterVec
	fetchLatency  *prometheus.HistogramVec
	fetchInFlight prometheus.Gauge
	lastAppliedTS prometheus.Gauge

	// Session event loop
	eventsHandled *prometheus.CounterVec
	eventsDropped prometheus.Counter
	queueDepth    prometheus.Gauge
	renderLatency prometheus.Histogram

	// Reconciliation and views
	recordsCollapsed       prometheus.Counter
	participantsReconciled prometheus.Gauge
	markersRendered        prometheus.Gauge
	leaderboardRows        *prometheus.GaugeVec
	routesLoaded           prometheus.Gauge

	// HTTP
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	// Errors
	errorsByComponent *prometheus.CounterVec

	// System
	memoryUsage    prometheus.Gauge
	goroutineCount prometheus.Gauge
	gcPauseTime    prometheus.Histogram
}

// Global metrics manager instance.
var globalManager *Manager //nolint:gochecknoglobals // intentional global for singleton metrics manager

// Custom registry to avoid default Go metrics.
var customRegistry = prometheus.NewRegistry() //nolint:gochecknoglobals // intentional global for metrics registry

func init() { //nolint:gochecknoinits // intentional init for global metrics setup
	globalManager = NewManager(WithPrometheusRegistry(customRegistry))
}

// Configure replaces the global manager with one built from opts on a fresh
// registry. Call it once at startup, before any metric is recorded.
func Configure(opts ...Option) {
	registry := prometheus.NewRegistry()
	globalManager = NewManager(append(opts, WithPrometheusRegistry(registry))...)
	customRegistry = registry
}

// NewManager creates a new metrics manager with default configuration.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "runtrack",
		subsystem:        "client",
		histogramBuckets: prometheus.DefBuckets,
		enabled:          true,
		refreshInterval:  defaultRefreshInterval,
		customLabels:     make(map[string]string),
		registry:         prometheus.DefaultRegisterer,
	}

	for _, opt := range opts {
		opt(m)
	}

	m.initializeMetrics()

	return m
}

// GetRegistry returns the registry backing the global manager.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}

// Enabled reports whether the manager records observations.
func (m *Manager) Enabled() bool { return m.enabled }

// RefreshInterval returns the interval used by gauge refreshers.
func (m *Manager) RefreshInterval() time.Duration { return m.refreshInterval }

func (m *Manager) initializeMetrics() { //nolint:funlen // one place for every collector
	auto := promauto.With(m.registry)
	constLabels := prometheus.Labels(m.customLabels)

	m.fetchTotal = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "fetch_total",
		Help:        "Provider fetches by endpoint and outcome",
		ConstLabels: constLabels,
	}, []string{"endpoint", "outcome"})

	m.fetchLatency = auto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "fetch_latency_milliseconds",
		Help:        "Provider fetch latency in milliseconds",
		Buckets:     m.histogramBuckets,
		ConstLabels: constLabels,
	}, []string{"endpoint"})

	m.fetchInFlight = auto.NewGauge(prometheus.GaugeOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "fetch_in_flight",
		Help:        "Snapshot fetches currently in flight (overlapping polls)",
		ConstLabels: constLabels,
	})

	m.lastAppliedTS = auto.NewGauge(prometheus.GaugeOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "last_applied_snapshot_unix",
		Help:        "Unix time of the last applied snapshot",
		ConstLabels: constLabels,
	})

	m.eventsHandled = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "session_events_total",
		Help:        "Session events handled by kind",
		ConstLabels: constLabels,
	}, []string{"kind"})

	m.eventsDropped = auto.NewCounter(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "session_events_dropped_total",
		Help:        "Session events dropped because the queue was full or closed",
		ConstLabels: constLabels,
	})

	m.queueDepth = auto.NewGauge(prometheus.GaugeOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "event_queue_depth",
		Help:        "Session events waiting for the event loop",
		ConstLabels: constLabels,
	})

	m.renderLatency = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "render_latency_milliseconds",
		Help:        "Full render pass latency in milliseconds",
		Buckets:     m.histogramBuckets,
		ConstLabels: constLabels,
	})

	m.recordsCollapsed = auto.NewCounter(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "records_collapsed_total",
		Help:        "Raw participant records collapsed by reconciliation",
		ConstLabels: constLabels,
	})

	m.participantsReconciled = auto.NewGauge(prometheus.GaugeOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "participants_reconciled",
		Help:        "Participants in the current reconciled set",
		ConstLabels: constLabels,
	})

	m.markersRendered = auto.NewGauge(prometheus.GaugeOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "markers_rendered",
		Help:        "Markers in the current (filtered) map view",
		ConstLabels: constLabels,
	})

	m.leaderboardRows = auto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "leaderboard_rows",
		Help:        "Ranked rows per leaderboard",
		ConstLabels: constLabels,
	}, []string{"route"})

	m.routesLoaded = auto.NewGauge(prometheus.GaugeOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "routes_loaded",
		Help:        "Routes held by the catalog",
		ConstLabels: constLabels,
	})

	m.httpRequests = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "http_requests_total",
		Help:        "Total number of HTTP requests by endpoint and method",
		ConstLabels: constLabels,
	}, []string{"endpoint", "method", "status_code"})

	m.httpRequestDuration = auto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "http_request_duration_milliseconds",
		Help:        "HTTP request duration in milliseconds",
		Buckets:     m.histogramBuckets,
		ConstLabels: constLabels,
	}, []string{"endpoint", "method", "status_code"})

	m.errorsByComponent = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "errors_total",
		Help:        "Errors by component and type",
		ConstLabels: constLabels,
	}, []string{"component", "error_type"})

	m.memoryUsage = auto.NewGauge(prometheus.GaugeOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "system_memory_bytes",
		Help:        "Allocated heap bytes",
		ConstLabels: constLabels,
	})

	m.goroutineCount = auto.NewGauge(prometheus.GaugeOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "system_goroutines",
		Help:        "Number of goroutines",
		ConstLabels: constLabels,
	})

	m.gcPauseTime = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "system_gc_pause_milliseconds",
		Help:        "Average GC pause in milliseconds",
		Buckets:     m.histogramBuckets,
		ConstLabels: constLabels,
	})
}

// RefreshInterval returns the gauge refresh interval of the global manager.
func RefreshInterval() time.Duration { return globalManager.refreshInterval }

// RecordFetch counts a provider fetch and observes its latency.
func RecordFetch(endpoint, outcome string, latency time.Duration) {
	if !globalManager.enabled {
		return
	}
	globalManager.fetchTotal.WithLabelValues(endpoint, outcome).Inc()
	if outcome != OutcomeStale {
		globalManager.fetchLatency.WithLabelValues(endpoint).Observe(float64(latency.Milliseconds()))
	}
}

// FetchStarted increments the in-flight gauge.
func FetchStarted() { globalManager.fetchInFlight.Inc() }

// FetchFinished decrements the in-flight gauge.
func FetchFinished() { globalManager.fetchInFlight.Dec() }

// MarkSnapshotApplied records the time a snapshot was applied.
func MarkSnapshotApplied(t time.Time) {
	globalManager.lastAppliedTS.Set(float64(t.Unix()))
}

// RecordSessionEvent counts a handled session event.
func RecordSessionEvent(kind string) {
	globalManager.eventsHandled.WithLabelValues(kind).Inc()
}

// RecordEventDropped counts an event that never reached the session.
func RecordEventDropped() {
	globalManager.eventsDropped.Inc()
}

// UpdateQueueDepth sets the number of queued session events.
func UpdateQueueDepth(n int) {
	globalManager.queueDepth.Set(float64(n))
}

// RecordRenderLatency observes the duration of a render pass.
func RecordRenderLatency(d time.Duration) {
	globalManager.renderLatency.Observe(float64(d.Microseconds()) / 1000)
}

// RecordCollapsed adds the number of raw records folded into existing runners.
func RecordCollapsed(n int) {
	if n > 0 {
		globalManager.recordsCollapsed.Add(float64(n))
	}
}

// UpdateParticipants sets the reconciled participants gauge.
func UpdateParticipants(n int) {
	globalManager.participantsReconciled.Set(float64(n))
}

// UpdateMarkers sets the rendered markers gauge.
func UpdateMarkers(n int) {
	globalManager.markersRendered.Set(float64(n))
}

// UpdateLeaderboardRows sets the ranked row count for one leaderboard.
func UpdateLeaderboardRows(route string, n int) {
	globalManager.leaderboardRows.WithLabelValues(route).Set(float64(n))
}

// UpdateRoutesLoaded sets the catalog size gauge.
func UpdateRoutesLoaded(n int) {
	globalManager.routesLoaded.Set(float64(n))
}

// RecordHTTPRequest records an HTTP request metric.
func RecordHTTPRequest(endpoint, method, statusCode string) {
	globalManager.httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
}

// RecordHTTPRequestDuration records HTTP request duration.
func RecordHTTPRequestDuration(endpoint, method, statusCode string, duration float64) {
	globalManager.httpRequestDuration.WithLabelValues(endpoint, method, statusCode).Observe(duration)
}

// RecordErrorByComponent records an error for a component.
func RecordErrorByComponent(component, errorType string) {
	globalManager.errorsByComponent.WithLabelValues(component, errorType).Inc()
}

// UpdateSystemMemoryUsage sets the allocated heap bytes.
func UpdateSystemMemoryUsage(bytes uint64) {
	globalManager.memoryUsage.Set(float64(bytes))
}

// UpdateSystemGoroutineCount sets the goroutine gauge.
func UpdateSystemGoroutineCount(n int) {
	globalManager.goroutineCount.Set(float64(n))
}

// RecordSystemGCPauseTime observes an average GC pause in milliseconds.
func RecordSystemGCPauseTime(ms float64) {
	globalManager.gcPauseTime.Observe(ms)
}
