package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/boddenberg/ledger-insights-go/internal/domain"
	"github.com/boddenberg/ledger-insights-go/internal/infra/observability"
	"github.com/boddenberg/ledger-insights-go/internal/port"

	"go.uber.org/zap"
)

const healthCheckTimeout = 2 * time.Second

func healthzHandler(checkers []port.HealthChecker, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), healthCheckTimeout)
		defer cancel()

		now := time.Now().Format(time.RFC3339)

		services := []domain.ServiceHealth{
			{Name: observability.ServiceName, Status: "healthy", LastChecked: now},
		}

		for _, c := range checkers {
			start := time.Now()
			err := c.Ping(ctx)
			s := domain.ServiceHealth{
				Name:        c.Name(),
				Status:      "healthy",
				LatencyMs:   time.Since(start).Milliseconds(),
				LastChecked: now,
			}
			if err != nil {
				logger.Warn("health check failed", zap.String("dependency", c.Name()), zap.Error(err))
				s.Status = "degraded"
				s.Error = err.Error()
			}
			services = append(services, s)
		}

		overallStatus := "healthy"
		for _, s := range services {
			if s.Status == "unhealthy" {
				overallStatus = "unhealthy"
				break
			}
			if s.Status == "degraded" {
				overallStatus = "degraded"
			}
		}

		writeJSON(w, http.StatusOK, domain.HealthStatus{
			Status:   overallStatus,
			Services: services,
		})
	}
}

func readyzHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
	}
}

func engineMetricsHandler(metrics *observability.Metrics) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, metrics.GetEngineSnapshot())
	}
}
