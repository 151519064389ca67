package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the EOL resolution module.
type Metrics struct {
	// Full resolution latencies by outcome
	ResolveLatency *prometheus.HistogramVec

	// Resolutions served by lifecycle status and contributing source
	ResolutionStatus *prometheus.CounterVec

	// Queries per batch request
	BatchSize prometheus.Histogram
}

// New creates a new Metrics instance with all resolution module metrics registered.
func New() *Metrics {
	return &Metrics{
		ResolveLatency: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "sunset_eol_resolve_duration_seconds",
			Help:    "Duration of full EOL resolutions including cache reads and source passes",
			Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		}, []string{"outcome"}), // outcome: "ok", "error"

		ResolutionStatus: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "sunset_eol_resolutions_total",
			Help: "Total resolutions served by lifecycle status and contributing source",
		}, []string{"status", "source"}),

		BatchSize: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "sunset_eol_batch_size",
			Help:    "Number of queries per batch resolution request",
			Buckets: []float64{1, 5, 10, 25, 50, 100, 250},
		}),
	}
}

// ObserveResolveLatency records the duration of a full resolution.
func (m *Metrics) ObserveResolveLatency(outcome string, d time.Duration) {
	if m != nil {
		m.ResolveLatency.WithLabelValues(outcome).Observe(d.Seconds())
	}
}

// IncrementResolution records a served resolution.
func (m *Metrics) IncrementResolution(status, source string) {
	if m != nil {
		m.ResolutionStatus.WithLabelValues(status, source).Inc()
	}
}

// ObserveBatchSize records the query count of a batch request.
func (m *Metrics) ObserveBatchSize(n int) {
	if m != nil {
		m.BatchSize.Observe(float64(n))
	}
}
