package resolver

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	lookupDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "sunset_resolver_lookup_duration_seconds",
		Help:    "Latency of source lookups by source and outcome",
		Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
	}, []string{"source", "outcome"})
)

// Lookup outcomes recorded on the duration histogram.
const (
	outcomeOK          = "ok"
	outcomeNoCandidate = "no_candidate"
	outcomeTimeout     = "timeout"
	outcomeError       = "error"
)
