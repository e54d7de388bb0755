package server

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const metricsNamespace = "zerver"

type metrics struct {
	requests      *prometheus.CounterVec
	buildDuration prometheus.Gauge
	entries       prometheus.Gauge
	rebuilds      *prometheus.CounterVec
}

func newMetrics(reg prometheus.Registerer) *metrics {
	factory := promauto.With(reg)

	return &metrics{
		requests: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "requests_total",
			Help:      "Static requests by result (hit, missing, not_modified, error)",
		}, []string{"result"}),

		buildDuration: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Name:      "build_duration_seconds",
			Help:      "Duration of the last cache build",
		}),

		entries: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Name:      "cache_entries",
			Help:      "Number of logical paths in the cache",
		}),

		rebuilds: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "rebuilds_total",
			Help:      "Cache rebuilds triggered by source changes",
		}, []string{"status"}),
	}
}
