// Package metrics exposes Prometheus collectors for repository operations.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const (
	OutcomeOK      = "ok"
	OutcomeInvalid = "invalid"
	OutcomeError   = "error"
)

// Recorder counts repository operations by outcome and times them.
// A nil *Recorder records nothing.
type Recorder struct {
	registry   *prometheus.Registry
	operations *prometheus.CounterVec
	duration   *prometheus.HistogramVec
	scanned    prometheus.Counter
}

// New registers the collectors on a fresh registry.
func New() *Recorder {
	r := &Recorder{
		registry: prometheus.NewRegistry(),
		operations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "medshelf",
			Name:      "repository_operations_total",
			Help:      "Repository operations by name and outcome.",
		}, []string{"op", "outcome"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "medshelf",
			Name:      "repository_operation_duration_seconds",
			Help:      "Repository operation latency.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"op"}),
		scanned: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "medshelf",
			Name:      "repository_records_scanned_total",
			Help:      "Records visited by list scans.",
		}),
	}
	r.registry.MustRegister(r.operations, r.duration, r.scanned)
	return r
}

// Observe records one finished operation.
func (r *Recorder) Observe(op, outcome string, started time.Time) {
	if r == nil {
		return
	}
	r.operations.WithLabelValues(op, outcome).Inc()
	r.duration.WithLabelValues(op).Observe(time.Since(started).Seconds())
}

// Scanned adds n visited records.
func (r *Recorder) Scanned(n int) {
	if r == nil || n <= 0 {
		return
	}
	r.scanned.Add(float64(n))
}

// Registry returns the registry the collectors live in.
func (r *Recorder) Registry() *prometheus.Registry {
	return r.registry
}

// Handler serves the collected metrics in the Prometheus text format.
func (r *Recorder) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{})
}
