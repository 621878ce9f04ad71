package handler

import (
	"net/http"

	"github.com/boddenberg/ledger-insights-go/internal/infra/observability"
	"github.com/boddenberg/ledger-insights-go/internal/port"
	"github.com/boddenberg/ledger-insights-go/internal/service"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.uber.org/zap"
)

var tracer = otel.Tracer("handler")

// NewRouter creates the HTTP router with all routes and middleware.
// A nil svc leaves only the operational endpoints mounted.
func NewRouter(
	svc *service.LedgerService,
	verifier *service.TokenVerifier,
	checkers []port.HealthChecker,
	metrics *observability.Metrics,
	logger *zap.Logger,
) http.Handler {
	r := chi.NewRouter()

	// --- Middleware ---
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(observability.ZapLoggerMiddleware(logger))
	r.Use(observability.TracingMiddleware)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Heartbeat("/ping"))

	// --- Operational endpoints ---
	r.Get("/healthz", healthzHandler(checkers, logger))
	r.Get("/readyz", readyzHandler())
	r.Handle("/metrics", promhttp.HandlerFor(metrics.Registry, promhttp.HandlerOpts{Registry: metrics.Registry}))
	r.Get("/v1/metrics/engine", engineMetricsHandler(metrics))

	if svc == nil {
		return r
	}

	// --- Ledger API (bearer token required) ---
	r.Route("/api", func(r chi.Router) {
		r.Use(JWTAuthMiddleware(verifier, logger))

		r.Get("/dashboard/stats", dashboardStatsHandler(svc, logger))
		r.Get("/reports/financial", financialReportHandler(svc, logger))
		r.Get("/transactions", listTransactionsHandler(svc, logger))
	})

	return r
}
