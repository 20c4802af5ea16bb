package monitoring

import (
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics
type Metrics struct {
	registry *prometheus.Registry

	// HTTP metrics
	RequestsTotal   *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec

	// Bridge call metrics
	BridgeCalls    *prometheus.CounterVec
	BridgeDuration *prometheus.HistogramVec

	// Resolution metrics
	ResolvedBytes    prometheus.Histogram
	DerivedResources prometheus.Gauge

	// Upgrade metrics
	Upgrades         *prometheus.CounterVec
	UpgradesInFlight prometheus.Gauge
	MutationBatches  prometheus.Counter

	// Snapshot for JSON API - track current values
	snapshot Snapshot

	mu sync.RWMutex
}

// Snapshot holds current metric values for JSON API
type Snapshot struct {
	TotalCalls       int64 `json:"total_calls"`
	FailedCalls      int64 `json:"failed_calls"`
	UpgradesOK       int64 `json:"upgrades_ok"`
	UpgradesFailed   int64 `json:"upgrades_failed"`
	DerivedResources int64 `json:"derived_resources"`
	MutationBatches  int64 `json:"mutation_batches"`
}

// NewMetrics creates a metrics collector backed by its own registry, so
// several shells (and tests) can coexist in one process.
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,

		RequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "kui_http_requests_total",
				Help: "Total number of debug HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		RequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "kui_http_request_duration_seconds",
				Help:    "Debug HTTP request duration in seconds",
				Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5},
			},
			[]string{"method", "path"},
		),

		BridgeCalls: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "kui_bridge_calls_total",
				Help: "Total number of host binding calls",
			},
			[]string{"binding", "status"},
		),
		BridgeDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "kui_bridge_call_duration_seconds",
				Help:    "Host binding call duration in seconds",
				Buckets: []float64{.0001, .0005, .001, .005, .01, .05, .1, .5, 1, 5},
			},
			[]string{"binding"},
		),

		ResolvedBytes: factory.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "kui_resolved_bytes",
				Help:    "Decoded size of resolved resources in bytes",
				Buckets: prometheus.ExponentialBuckets(64, 4, 10),
			},
		),
		DerivedResources: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "kui_derived_resources",
				Help: "Number of live derived resources",
			},
		),

		Upgrades: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "kui_upgrades_total",
				Help: "Total number of placeholder upgrades",
			},
			[]string{"attribute", "outcome"},
		),
		UpgradesInFlight: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "kui_upgrades_in_flight",
				Help: "Number of pending placeholder upgrades",
			},
		),
		MutationBatches: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "kui_mutation_batches_total",
				Help: "Total number of mutation batches processed",
			},
		),
	}
}

// Registry exposes the underlying registry for custom collectors.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// RecordHTTPRequest records a debug HTTP request
func (m *Metrics) RecordHTTPRequest(method, path, status string, duration time.Duration) {
	if m == nil {
		return
	}
	m.RequestsTotal.WithLabelValues(method, path, status).Inc()
	m.RequestDuration.WithLabelValues(method, path).Observe(duration.Seconds())
}

// RecordCall records a host binding call
func (m *Metrics) RecordCall(binding, status string, duration time.Duration) {
	if m == nil {
		return
	}
	m.BridgeCalls.WithLabelValues(binding, status).Inc()
	m.BridgeDuration.WithLabelValues(binding).Observe(duration.Seconds())

	m.mu.Lock()
	m.snapshot.TotalCalls++
	if status != StatusOK {
		m.snapshot.FailedCalls++
	}
	m.mu.Unlock()
}

// RecordResolved records the decoded size of a resolved resource
func (m *Metrics) RecordResolved(size int) {
	if m == nil {
		return
	}
	m.ResolvedBytes.Observe(float64(size))
}

// SetDerivedResources sets the number of live derived resources
func (m *Metrics) SetDerivedResources(count int) {
	if m == nil {
		return
	}
	m.DerivedResources.Set(float64(count))
	m.mu.Lock()
	m.snapshot.DerivedResources = int64(count)
	m.mu.Unlock()
}

// UpgradeStarted marks a pending upgrade
func (m *Metrics) UpgradeStarted() {
	if m == nil {
		return
	}
	m.UpgradesInFlight.Inc()
}

// UpgradeFinished records the outcome of a pending upgrade
func (m *Metrics) UpgradeFinished(attribute, outcome string) {
	if m == nil {
		return
	}
	m.UpgradesInFlight.Dec()
	m.Upgrades.WithLabelValues(attribute, outcome).Inc()

	m.mu.Lock()
	if outcome == StatusOK {
		m.snapshot.UpgradesOK++
	} else {
		m.snapshot.UpgradesFailed++
	}
	m.mu.Unlock()
}

// IncMutationBatches counts a processed mutation batch
func (m *Metrics) IncMutationBatches() {
	if m == nil {
		return
	}
	m.MutationBatches.Inc()
	m.mu.Lock()
	m.snapshot.MutationBatches++
	m.mu.Unlock()
}

// Snapshot returns a copy of the current counters
func (m *Metrics) Snapshot() Snapshot {
	if m == nil {
		return Snapshot{}
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.snapshot
}

// Status labels shared by recorders.
const (
	StatusOK    = "ok"
	StatusError = "error"
)
