package edge

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds Prometheus metrics for the remote consent bridge. All
// methods are safe on a nil receiver.
type Metrics struct {
	Forwarded           prometheus.Counter
	Dropped             *prometheus.CounterVec
	PublishFailures     prometheus.Counter
	CircuitBreakerState prometheus.Gauge
	AcksReceived        *prometheus.CounterVec
}

// NewMetrics creates bridge metrics registered on reg. A nil reg registers on
// the default registry.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)
	return &Metrics{
		Forwarded: factory.NewCounter(prometheus.CounterOpts{
			Name: "consentd_edge_updates_forwarded_total",
			Help: "Consent update requests published to the remote consent service",
		}),
		Dropped: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "consentd_edge_updates_dropped_total",
			Help: "Consent update requests dropped before publishing, by reason",
		}, []string{"reason"}),
		PublishFailures: factory.NewCounter(prometheus.CounterOpts{
			Name: "consentd_edge_publish_failures_total",
			Help: "Failed attempts to publish consent update requests",
		}),
		CircuitBreakerState: factory.NewGauge(prometheus.GaugeOpts{
			Name: "consentd_edge_circuit_breaker_state",
			Help: "Current circuit breaker state (0=closed/healthy, 1=open/unhealthy)",
		}),
		AcksReceived: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "consentd_edge_acks_received_total",
			Help: "Consent preference handles received from the remote consent service, by outcome",
		}, []string{"outcome"}),
	}
}

func (m *Metrics) IncForwarded() {
	if m != nil {
		m.Forwarded.Inc()
	}
}

func (m *Metrics) IncDropped(reason string) {
	if m != nil {
		m.Dropped.WithLabelValues(reason).Inc()
	}
}

func (m *Metrics) IncPublishFailures() {
	if m != nil {
		m.PublishFailures.Inc()
	}
}

// SetCircuitOpen sets the circuit breaker state gauge.
func (m *Metrics) SetCircuitOpen(open bool) {
	if m == nil {
		return
	}
	if open {
		m.CircuitBreakerState.Set(1)
		return
	}
	m.CircuitBreakerState.Set(0)
}

func (m *Metrics) IncAcks(outcome string) {
	if m != nil {
		m.AcksReceived.WithLabelValues(outcome).Inc()
	}
}
