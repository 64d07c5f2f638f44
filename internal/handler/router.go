package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/boddenberg/pos-dashboard-bfa/internal/domain"
	"github.com/boddenberg/pos-dashboard-bfa/internal/infra/observability"
	"github.com/boddenberg/pos-dashboard-bfa/internal/port"
	"github.com/boddenberg/pos-dashboard-bfa/internal/service"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.uber.org/zap"
)

var tracer = otel.Tracer("handler")

// Dependency is a backing service checked by /healthz and /readyz.
type Dependency struct {
	Name string
	Ping func(ctx context.Context) error
}

// Deps bundles what the router serves.
type Deps struct {
	Registry     *service.Registry
	Settings     *service.Settings
	Verifier     *service.TokenVerifier
	Auth         port.Authenticator
	Dependencies []Dependency
	Metrics      *observability.Metrics
}

// NewRouter creates the HTTP router with all routes and middleware.
func NewRouter(deps Deps, logger *zap.Logger) http.Handler {
	r := chi.NewRouter()

	// --- Middleware ---
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(observability.ZapLoggerMiddleware(logger))
	r.Use(observability.TracingMiddleware)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Heartbeat("/ping"))

	// --- Operational endpoints ---
	r.Get("/healthz", healthzHandler(deps.Dependencies))
	r.Get("/readyz", readyzHandler(deps.Dependencies))
	r.Handle("/metrics", promhttp.HandlerFor(deps.Metrics.Registry, promhttp.HandlerOpts{}))

	// --- API v1 ---
	r.Route("/v1", func(r chi.Router) {
		r.Post("/auth/login", authLoginHandler(deps.Auth, logger))
		r.Get("/metrics/pipeline", pipelineMetricsHandler(deps.Metrics, logger))

		r.Group(func(r chi.Router) {
			r.Use(JWTAuthMiddleware(deps.Verifier, logger))

			// GET    /v1/dashboard/metrics?force=
			// POST   /v1/dashboard/refresh
			// DELETE /v1/dashboard/refresh
			// GET    /v1/dashboard/status
			r.Get("/dashboard/metrics", dashboardMetricsHandler(deps.Registry, deps.Metrics, false, logger))
			r.Post("/dashboard/refresh", dashboardMetricsHandler(deps.Registry, deps.Metrics, true, logger))
			r.Delete("/dashboard/refresh", dashboardCancelHandler(deps.Registry, logger))
			r.Get("/dashboard/status", dashboardStatusHandler(deps.Registry, logger))

			r.Get("/settings/low-stock-threshold", getLowStockHandler(deps.Settings, logger))
			r.Put("/settings/low-stock-threshold", putLowStockHandler(deps.Settings, deps.Registry, logger))
		})
	})

	return r
}

// ============================================================
// Health
// ============================================================

func checkDependencies(ctx context.Context, deps []Dependency) domain.HealthStatus {
	now := time.Now().Format(time.RFC3339)
	services := []domain.ServiceHealth{
		{Name: "bfa-api", Status: "healthy", LatencyMs: 0, LastChecked: now},
	}

	for _, d := range deps {
		pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
		start := time.Now()
		err := d.Ping(pingCtx)
		cancel()

		status := "healthy"
		if err != nil {
			status = "degraded"
		}
		services = append(services, domain.ServiceHealth{
			Name:        d.Name,
			Status:      status,
			LatencyMs:   time.Since(start).Milliseconds(),
			LastChecked: now,
		})
	}

	overall := "healthy"
	for _, s := range services {
		if s.Status == "unhealthy" {
			overall = "unhealthy"
			break
		}
		if s.Status == "degraded" {
			overall = "degraded"
		}
	}
	return domain.HealthStatus{Status: overall, Services: services}
}

func healthzHandler(deps []Dependency) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, checkDependencies(r.Context(), deps))
	}
}

func readyzHandler(deps []Dependency) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		health := checkDependencies(r.Context(), deps)
		if health.Status != "healthy" {
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "not ready"})
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
	}
}
