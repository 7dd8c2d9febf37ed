// Package metrics holds the Prometheus collectors for formula generation
// and billing.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "formula"

// Webhook outcomes recorded on stripe_webhook_events_total.
const (
	OutcomeApplied   = "applied"
	OutcomeIgnored   = "ignored"
	OutcomeDuplicate = "duplicate"
	OutcomeRejected  = "rejected"
	OutcomeFailed    = "failed"
)

type Metrics struct {
	registry *prometheus.Registry

	generations        *prometheus.CounterVec
	denials            *prometheus.CounterVec
	completionFailures prometheus.Counter
	completionSeconds  prometheus.Histogram
	webhookEvents      *prometheus.CounterVec
}

// New registers every collector on a private registry, so tests and
// multiple routers in one process never collide.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		generations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "generations_total",
				Help:      "Formula generations served, by caller tier",
			},
			[]string{"tier"},
		),
		denials: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "denials_total",
				Help:      "Generation requests refused because the tier quota was used up",
			},
			[]string{"tier"},
		),
		completionFailures: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "completion_failures_total",
				Help:      "Completion service calls that failed or returned unusable output",
			},
		),
		completionSeconds: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "completion_seconds",
				Help:      "Latency of completion service calls",
				Buckets:   []float64{0.25, 0.5, 1, 2, 4, 8, 16, 32, 60},
			},
		),
		webhookEvents: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "stripe_webhook_events_total",
				Help: "Stripe webhook deliveries by event type and outcome",
			},
			[]string{"type", "outcome"},
		),
	}

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.generations,
		m.denials,
		m.completionFailures,
		m.completionSeconds,
		m.webhookEvents,
	)
	return m
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

func (m *Metrics) Generation(tier string) {
	m.generations.WithLabelValues(tier).Inc()
}

func (m *Metrics) Denial(tier string) {
	m.denials.WithLabelValues(tier).Inc()
}

// ObserveCompletion records one completion call; failed calls also count
// towards completion_failures_total.
func (m *Metrics) ObserveCompletion(elapsed time.Duration, failed bool) {
	m.completionSeconds.Observe(elapsed.Seconds())
	if failed {
		m.completionFailures.Inc()
	}
}

func (m *Metrics) WebhookEvent(eventType, outcome string) {
	if eventType == "" {
		eventType = "unknown"
	}
	m.webhookEvents.WithLabelValues(eventType, outcome).Inc()
}
