package handler

import (
	"context"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/boddenberg/shop-advisor-go/internal/domain"
	"github.com/boddenberg/shop-advisor-go/internal/infra/observability"
)

// HealthCheck probes one dependency (store, cache, broker).
type HealthCheck struct {
	Name string
	// Critical checks make /readyz fail; the others only degrade /healthz.
	Critical bool
	Check    func(ctx context.Context) error
}

const healthCheckTimeout = 2 * time.Second

func runChecks(ctx context.Context, checks []HealthCheck) ([]domain.ServiceHealth, bool) {
	now := time.Now().UTC().Format(time.RFC3339)
	services := []domain.ServiceHealth{{Name: "advisor-api", Status: "healthy", LastChecked: now}}
	ready := true

	for _, hc := range checks {
		cctx, cancel := context.WithTimeout(ctx, healthCheckTimeout)
		start := time.Now()
		err := hc.Check(cctx)
		cancel()

		status := "healthy"
		if err != nil {
			status = "degraded"
			if hc.Critical {
				status = "unhealthy"
				ready = false
			}
		}
		services = append(services, domain.ServiceHealth{
			Name:        hc.Name,
			Status:      status,
			LatencyMs:   time.Since(start).Milliseconds(),
			LastChecked: now,
		})
	}
	return services, ready
}

func healthzHandler(checks []HealthCheck, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		services, _ := runChecks(r.Context(), checks)

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
		if overallStatus != "healthy" {
			logger.Warn("health check not healthy", zap.String("status", overallStatus))
		}

		writeJSON(w, http.StatusOK, domain.HealthStatus{
			Status:   overallStatus,
			Services: services,
		})
	}
}

func readyzHandler(checks []HealthCheck) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if _, ready := runChecks(r.Context(), checks); !ready {
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "not ready"})
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
	}
}

func leadMetricsHandler(metrics *observability.Metrics) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, metrics.GetLeadSnapshot())
	}
}
