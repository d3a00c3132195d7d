// Package metrics exports registry activity as Prometheus metrics.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/rickhohler/biographical/internal/core/domain"
	"github.com/rickhohler/biographical/internal/core/ports/driven"
)

// Ensure Observer implements the interface.
var _ driven.RegistryObserver = (*Observer)(nil)

// Observer counts registry mutations and resolver hits, and times index
// rebuilds.
type Observer struct {
	Mutations    *prometheus.CounterVec
	Matches      *prometheus.CounterVec
	RecordCount  *prometheus.GaugeVec
	RebuildTimes *prometheus.HistogramVec
}

// New registers the registry metrics with reg. A nil reg uses the default
// Prometheus registerer.
func New(reg prometheus.Registerer) *Observer {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	f := promauto.With(reg)
	return &Observer{
		Mutations: f.NewCounterVec(prometheus.CounterOpts{
			Name: "biographical_registry_mutations_total",
			Help: "Committed registry mutations by kind and operation",
		}, []string{"kind", "op"}),
		Matches: f.NewCounterVec(prometheus.CounterOpts{
			Name: "biographical_resolver_matches_total",
			Help: "Resolver hits by kind and match type",
		}, []string{"kind", "match_type"}),
		RecordCount: f.NewGaugeVec(prometheus.GaugeOpts{
			Name: "biographical_registry_records",
			Help: "Records held by each registry after the last rebuild",
		}, []string{"kind"}),
		RebuildTimes: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "biographical_index_rebuild_duration_seconds",
			Help:    "Duration of full index rebuilds",
			Buckets: []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1},
		}, []string{"kind"}),
	}
}

// Mutated records a committed mutation.
func (o *Observer) Mutated(kind, op string) {
	o.Mutations.WithLabelValues(kind, op).Inc()
}

// Rebuilt records an index rebuild.
func (o *Observer) Rebuilt(kind string, size int, took time.Duration) {
	o.RecordCount.WithLabelValues(kind).Set(float64(size))
	o.RebuildTimes.WithLabelValues(kind).Observe(took.Seconds())
}

// Resolved records a resolver hit.
func (o *Observer) Resolved(kind string, matchType domain.MatchType) {
	o.Matches.WithLabelValues(kind, string(matchType)).Inc()
}
