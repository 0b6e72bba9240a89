package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the process-level Prometheus metrics shared by transports.
type Metrics struct {
	// HTTP request latency by method and chi route pattern
	RequestDuration *prometheus.HistogramVec

	// Constant 1, labelled with the extension name and version
	BuildInfo *prometheus.GaugeVec
}

// New creates and registers process metrics on reg.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		RequestDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "consentd_http_request_duration_seconds",
			Help:    "HTTP request latency by method and route",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "route"}),
		BuildInfo: factory.NewGaugeVec(prometheus.GaugeOpts{
			Name: "consentd_build_info",
			Help: "Extension name and version of the running process",
		}, []string{"extension", "version"}),
	}
}

// SetBuildInfo records the running extension name and version.
func (m *Metrics) SetBuildInfo(extension, version string) {
	m.BuildInfo.WithLabelValues(extension, version).Set(1)
}
