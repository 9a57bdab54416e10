package observability

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Request outcomes reported on the chat counter.
const (
	OutcomeAnswered  = "answered"
	OutcomeRejected  = "rejected"
	OutcomeClarified = "clarified"
	OutcomeError     = "error"
)

// Metrics holds the service's Prometheus instruments on a private registry so
// parallel test instances never collide on registration.
type Metrics struct {
	registry *prometheus.Registry

	ActiveSessions    prometheus.GaugeFunc
	ChatRequests      *prometheus.CounterVec
	GateDecisions     *prometheus.CounterVec
	ProviderErrors    *prometheus.CounterVec
	GenerationSeconds prometheus.Histogram
}

// NewMetrics builds the instrument set. activeSessions is sampled on scrape.
func NewMetrics(namespace string, activeSessions func() float64) *Metrics {
	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector())
	factory := promauto.With(registry)

	if activeSessions == nil {
		activeSessions = func() float64 { return 0 }
	}

	return &Metrics{
		registry: registry,
		ActiveSessions: factory.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "active_sessions",
			Help:      "Number of live chat sessions.",
		}, activeSessions),
		ChatRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "chat_requests_total",
			Help:      "Chat requests by outcome.",
		}, []string{"outcome"}),
		GateDecisions: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "gate_decisions_total",
			Help:      "Relevance gate decisions by stage and verdict.",
		}, []string{"stage", "verdict"}),
		ProviderErrors: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "provider_errors_total",
			Help:      "Upstream provider failures by provider.",
		}, []string{"provider"}),
		GenerationSeconds: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "generation_duration_seconds",
			Help:      "Answer generation latency.",
			Buckets:   prometheus.ExponentialBuckets(0.1, 2, 10),
		}),
	}
}

// Handler serves the registry in Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
