package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Handler label values.
const (
	HandlerUpdate        = "update"
	HandlerRemoteAck     = "remote_ack"
	HandlerQuery         = "query"
	HandlerConfiguration = "configuration"
)

// Metrics provides observability for the consent module. All methods are
// safe on a nil receiver so tests can omit metrics.
type Metrics struct {
	// Events processed by handler and outcome (applied, dropped, skipped)
	EventsHandled *prometheus.CounterVec

	// Echoed remote acknowledgements suppressed by change detection
	EchoesSuppressed prometheus.Counter

	// Persistence failures by operation (load, save, remove)
	PersistenceFailures *prometheus.CounterVec

	// Consent preference notifications published
	NotificationsPublished prometheus.Counter

	// Handler latency by handler
	HandleLatency *prometheus.HistogramVec
}

// New creates consent metrics registered on reg. A nil reg registers on the
// default registry.
func New(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)
	return &Metrics{
		EventsHandled: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "consentd_events_handled_total",
			Help: "Consent events handled by handler and outcome",
		}, []string{"handler", "outcome"}),

		EchoesSuppressed: factory.NewCounter(prometheus.CounterOpts{
			Name: "consentd_remote_echoes_suppressed_total",
			Help: "Remote consent acknowledgements skipped because they matched current consents",
		}),

		PersistenceFailures: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "consentd_persistence_failures_total",
			Help: "Consent persistence failures by operation",
		}, []string{"operation"}),

		NotificationsPublished: factory.NewCounter(prometheus.CounterOpts{
			Name: "consentd_notifications_published_total",
			Help: "Consent preferences updated notifications published",
		}),

		HandleLatency: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "consentd_handle_duration_seconds",
			Help:    "Duration of consent event handling",
			Buckets: []float64{0.0005, 0.001, 0.0025, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25},
		}, []string{"handler"}),
	}
}

// IncrementHandled records an event outcome for a handler.
func (m *Metrics) IncrementHandled(handler, outcome string) {
	if m != nil {
		m.EventsHandled.WithLabelValues(handler, outcome).Inc()
	}
}

// IncrementEchoSuppressed records a suppressed remote echo.
func (m *Metrics) IncrementEchoSuppressed() {
	if m != nil {
		m.EchoesSuppressed.Inc()
	}
}

// IncrementPersistenceFailure records a failed store operation.
func (m *Metrics) IncrementPersistenceFailure(operation string) {
	if m != nil {
		m.PersistenceFailures.WithLabelValues(operation).Inc()
	}
}

// IncrementNotifications records a published consent notification.
func (m *Metrics) IncrementNotifications() {
	if m != nil {
		m.NotificationsPublished.Inc()
	}
}

// ObserveHandleLatency records how long a handler took.
func (m *Metrics) ObserveHandleLatency(handler string, d time.Duration) {
	if m != nil {
		m.HandleLatency.WithLabelValues(handler).Observe(d.Seconds())
	}
}
