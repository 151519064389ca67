package cache

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	metricHits = promauto.NewCounter(prometheus.CounterOpts{
		Name: "sunset_cache_hits_total",
		Help: "Resolutions served from a cache tier",
	})
	metricMisses = promauto.NewCounter(prometheus.CounterOpts{
		Name: "sunset_cache_misses_total",
		Help: "Resolutions that required a resolver pass",
	})
	metricInFlight = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "sunset_cache_in_flight_resolutions",
		Help: "Resolutions currently being computed",
	})
	metricDurableFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "sunset_cache_durable_failures_total",
		Help: "Durable tier operations that failed",
	}, []string{"op"})
)
