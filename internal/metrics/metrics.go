// Package metrics records request and pipeline counters for one CLI run and
// writes them in the Prometheus text format for a node_exporter textfile
// collector.
package metrics

import (
	"fmt"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics owns a private registry. A nil *Metrics is valid and records nothing.
type Metrics struct {
	registry *prometheus.Registry
	requests *prometheus.CounterVec
	duration *prometheus.HistogramVec
	files    *prometheus.CounterVec
}

// New registers the flow-watcher collectors on a fresh registry.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		requests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "flow_watcher_api_requests_total",
				Help: "Remote API requests by service, status code and method.",
			},
			[]string{"service", "code", "method"},
		),
		duration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "flow_watcher_api_request_duration_seconds",
				Help:    "Remote API request latency by service and method.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"service", "method"},
		),
		files: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "flow_watcher_sync_files_total",
				Help: "Drive files handled by the sync pipeline by outcome.",
			},
			[]string{"outcome"},
		),
	}
	m.registry.MustRegister(m.requests, m.duration, m.files)
	return m
}

// Registry exposes the underlying registry for tests and custom exporters.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// InstrumentClient returns a shallow copy of c whose transport counts and
// times every request under the given service label.
func (m *Metrics) InstrumentClient(service string, c *http.Client) *http.Client {
	if m == nil || c == nil {
		return c
	}
	next := c.Transport
	if next == nil {
		next = http.DefaultTransport
	}
	labels := prometheus.Labels{"service": service}
	rt := promhttp.InstrumentRoundTripperCounter(m.requests.MustCurryWith(labels),
		promhttp.InstrumentRoundTripperDuration(m.duration.MustCurryWith(labels), next))

	instrumented := *c
	instrumented.Transport = rt
	return &instrumented
}

// ObserveFile counts one pipeline outcome (downloaded, transcribed,
// published, skipped, failed).
func (m *Metrics) ObserveFile(outcome string) {
	if m == nil {
		return
	}
	m.files.WithLabelValues(outcome).Inc()
}

// WriteTextfile writes all collected samples to path atomically.
func (m *Metrics) WriteTextfile(path string) error {
	if m == nil || path == "" {
		return nil
	}
	if err := prometheus.WriteToTextfile(path, m.registry); err != nil {
		return fmt.Errorf("writing metrics to %s: %w", path, err)
	}
	return nil
}
