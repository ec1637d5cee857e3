// Package metrics exposes Prometheus counters for event publishes and
// participant version reconciliation.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "studyevents"

// Metrics records service outcomes. A nil *Metrics is a no-op recorder.
type Metrics struct {
	registry        *prometheus.Registry
	publishOutcomes *prometheus.CounterVec
	versionOutcomes *prometheus.CounterVec
}

// New creates the collectors on a fresh registry that also carries the Go
// runtime and process collectors.
func New() *Metrics {
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return NewWithRegistry(registry)
}

// NewWithRegistry registers the service collectors on registry.
func NewWithRegistry(registry *prometheus.Registry) *Metrics {
	m := &Metrics{
		registry: registry,
		publishOutcomes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "event_publish_total",
			Help:      "Activity event publishes by outcome.",
		}, []string{"outcome"}),
		versionOutcomes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "participant_version_total",
			Help:      "Participant version reconciliations by outcome.",
		}, []string{"outcome"}),
	}
	registry.MustRegister(m.publishOutcomes, m.versionOutcomes)
	return m
}

// PublishOutcome counts one event publish.
func (m *Metrics) PublishOutcome(outcome string) {
	if m == nil {
		return
	}
	m.publishOutcomes.WithLabelValues(outcome).Inc()
}

// VersionOutcome counts one reconciliation.
func (m *Metrics) VersionOutcome(outcome string) {
	if m == nil {
		return
	}
	m.versionOutcomes.WithLabelValues(outcome).Inc()
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}
