package httptransport

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"consentd/internal/consent/extension"
	"consentd/internal/platform/metrics"
	"consentd/internal/platform/middleware"
	"consentd/pkg/platform/httputil"
)

const healthCheckTimeout = 2 * time.Second

// HealthCheck reports whether a dependency is reachable.
type HealthCheck struct {
	Name  string
	Check func(ctx context.Context) error
}

// Routes registers a group of endpoints.
type Routes interface {
	Register(r chi.Router)
}

// Dependencies are the collaborators the router wires together.
type Dependencies struct {
	Logger   *slog.Logger
	Registry *prometheus.Registry
	Consent  Routes
	Checks   []HealthCheck
}

type healthResponse struct {
	Status    string            `json:"status"`
	Extension string            `json:"extension"`
	Version   string            `json:"version"`
	Checks    map[string]string `json:"checks,omitempty"`
}

// NewRouter wires all public endpoints. Handlers stay thin and delegate to
// the event hub.
func NewRouter(deps Dependencies) http.Handler {
	m := metrics.New(deps.Registry)
	m.SetBuildInfo(extension.Name, extension.Version)

	r := chi.NewRouter()
	r.Use(middleware.Recovery(deps.Logger))
	r.Use(middleware.RequestID)
	r.Use(middleware.RequestTime)
	r.Use(middleware.ClientIP)
	r.Use(middleware.Logger(deps.Logger))
	r.Use(middleware.Latency(m.RequestDuration))

	r.Get("/healthz", health(deps.Checks))
	r.Handle("/metrics", promhttp.HandlerFor(deps.Registry, promhttp.HandlerOpts{}))

	r.Group(func(r chi.Router) {
		r.Use(middleware.ContentTypeJSON)
		deps.Consent.Register(r)
	})
	return r
}

func health(checks []HealthCheck) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), healthCheckTimeout)
		defer cancel()

		resp := healthResponse{
			Status:    "ok",
			Extension: extension.Name,
			Version:   extension.Version,
		}
		status := http.StatusOK
		if len(checks) > 0 {
			resp.Checks = make(map[string]string, len(checks))
		}
		for _, c := range checks {
			if err := c.Check(ctx); err != nil {
				resp.Checks[c.Name] = err.Error()
				resp.Status = "degraded"
				status = http.StatusServiceUnavailable
				continue
			}
			resp.Checks[c.Name] = "ok"
		}
		httputil.WriteJSON(w, status, resp)
	}
}
