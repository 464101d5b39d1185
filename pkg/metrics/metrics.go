package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics exposes the relay's Prometheus collectors on a private registry.
type Metrics struct {
	registry   *prometheus.Registry
	deliveries *prometheus.CounterVec
	rejected   *prometheus.CounterVec
	duration   prometheus.Histogram
}

// New returns a Metrics collector with every series registered.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		deliveries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "relay_deliveries_total",
			Help: "Delivery attempts by classified outcome.",
		}, []string{"outcome"}),
		rejected: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "relay_rejected_requests_total",
			Help: "Requests rejected before a delivery attempt, by reason.",
		}, []string{"reason"}),
		duration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "relay_delivery_duration_seconds",
			Help:    "Latency of the upstream push call.",
			Buckets: prometheus.DefBuckets,
		}),
	}
	m.registry.MustRegister(m.deliveries, m.rejected, m.duration)
	return m
}

// ObserveDelivery records one attempt. outcome is an OutcomeKind string.
func (m *Metrics) ObserveDelivery(outcome string, took time.Duration) {
	m.deliveries.WithLabelValues(outcome).Inc()
	if took > 0 {
		m.duration.Observe(took.Seconds())
	}
}

func (m *Metrics) IncRejected(reason string) { m.rejected.WithLabelValues(reason).Inc() }

// Deliveries is exposed for tests.
func (m *Metrics) Deliveries(outcome string) prometheus.Counter {
	return m.deliveries.WithLabelValues(outcome)
}

// Rejected is exposed for tests.
func (m *Metrics) Rejected(reason string) prometheus.Counter {
	return m.rejected.WithLabelValues(reason)
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
