// Package metrics exposes the engine's Prometheus instrumentation.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the engine's collectors. A single instance is shared by the
// service layer and the event listener.
type Metrics struct {
	RefreshTotal     *prometheus.CounterVec
	RefreshDuration  prometheus.Histogram
	RefreshCoalesced prometheus.Counter
	GroupFetchTotal  *prometheus.CounterVec
	RecordsSkipped   prometheus.Counter
}

// New registers the engine collectors on the given registerer. Pass
// prometheus.DefaultRegisterer in production; tests use a fresh registry to
// avoid duplicate registration.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		RefreshTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "deudacero_refresh_total",
			Help: "Completed refresh attempts by result.",
		}, []string{"result"}),
		RefreshDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "deudacero_refresh_duration_seconds",
			Help:    "Wall time of a full refresh pull.",
			Buckets: prometheus.DefBuckets,
		}),
		RefreshCoalesced: factory.NewCounter(prometheus.CounterOpts{
			Name: "deudacero_refresh_coalesced_total",
			Help: "Refresh triggers folded into an already queued run.",
		}),
		GroupFetchTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "deudacero_group_fetch_total",
			Help: "Per-group detail fetches by result.",
		}, []string{"result"}),
		RecordsSkipped: factory.NewCounter(prometheus.CounterOpts{
			Name: "deudacero_records_skipped_total",
			Help: "Raw records dropped during normalization.",
		}),
	}
}
