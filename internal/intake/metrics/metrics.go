// Package metrics exposes Prometheus metrics for the intake pipeline.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Record outcome label values.
const (
	RecordAccepted = "accepted"
	RecordSkipped  = "skipped"
)

// Metrics holds the intake pipeline metrics.
type Metrics struct {
	BatchRecords prometheus.Histogram
	Records      *prometheus.CounterVec
	Published    prometheus.Counter
}

// New creates and registers the intake metrics.
func New() *Metrics {
	return &Metrics{
		BatchRecords: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "sunset_intake_batch_records",
			Help:    "Number of inventory records per poll batch",
			Buckets: []float64{1, 5, 10, 25, 50, 100, 250, 500},
		}),
		Records: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "sunset_intake_records_total",
			Help: "Inventory records consumed, by outcome",
		}, []string{"outcome"}),
		Published: promauto.NewCounter(prometheus.CounterOpts{
			Name: "sunset_intake_published_total",
			Help: "Status-change events published to the results topic",
		}),
	}
}

// ObserveBatchRecords records the size of one poll batch.
func (m *Metrics) ObserveBatchRecords(n int) {
	if m == nil {
		return
	}
	m.BatchRecords.Observe(float64(n))
}

// IncrementRecord counts one consumed record by outcome.
func (m *Metrics) IncrementRecord(outcome string) {
	if m == nil {
		return
	}
	m.Records.WithLabelValues(outcome).Inc()
}

// IncrementPublished counts one published status-change event.
func (m *Metrics) IncrementPublished() {
	if m == nil {
		return
	}
	m.Published.Inc()
}
