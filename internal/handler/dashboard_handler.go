package handler

import (
	"context"
	"errors"
	"net/http"

	"github.com/boddenberg/pos-dashboard-bfa/internal/domain"
	"github.com/boddenberg/pos-dashboard-bfa/internal/infra/observability"
	"github.com/boddenberg/pos-dashboard-bfa/internal/service"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

// ============================================================
// Dashboard
// ============================================================

// dashboardMetricsHandler serves the store snapshot. With force it always
// fetches; otherwise ?force=true asks for the same.
func dashboardMetricsHandler(registry *service.Registry, metrics *observability.Metrics, force bool, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), r.Method+" "+r.URL.Path)
		defer span.End()

		session := SessionFromContext(ctx)
		forced := force || parseBool(r, "force")
		span.SetAttributes(
			attribute.String("store.id", session.StoreID),
			attribute.Bool("dashboard.force", forced),
		)

		snap, err := registry.ForSession(session).Refresh(ctx, forced)
		if err != nil {
			if errors.Is(err, context.Canceled) && r.Context().Err() != nil {
				logger.Debug("client went away before the dashboard was ready", zap.String("store_id", session.StoreID))
				return
			}
			if snap != nil {
				// Keep showing the last good numbers with the failure attached.
				metrics.IncrRequest("stale")
				writeJSON(w, http.StatusOK, domain.DashboardResponse{
					Metrics:   &snap.Metrics,
					FetchedAt: snap.FetchedAt,
					Stale:     true,
					Error:     err.Error(),
				})
				return
			}
			metrics.IncrRequest("error")
			handleServiceError(w, err, logger)
			return
		}

		if snap == nil {
			// Run was cancelled before any snapshot existed.
			metrics.IncrRequest("cancelled")
			w.WriteHeader(http.StatusNoContent)
			return
		}

		metrics.IncrRequest("success")
		writeJSON(w, http.StatusOK, domain.DashboardResponse{
			Metrics:   &snap.Metrics,
			FetchedAt: snap.FetchedAt,
		})
	}
}

func dashboardStatusHandler(registry *service.Registry, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		session := SessionFromContext(r.Context())
		d, ok := registry.Lookup(session.StoreID)
		if !ok {
			writeJSON(w, http.StatusOK, domain.DashboardStatus{State: domain.FetchIdle})
			return
		}
		writeJSON(w, http.StatusOK, d.Status())
	}
}

func dashboardCancelHandler(registry *service.Registry, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		session := SessionFromContext(r.Context())
		d, ok := registry.Lookup(session.StoreID)
		if !ok {
			writeJSON(w, http.StatusAccepted, domain.DashboardStatus{State: domain.FetchIdle})
			return
		}

		d.Cancel()
		logger.Info("dashboard fetch cancelled",
			zap.String("store_id", session.StoreID),
			zap.String("user_id", session.UserID),
		)
		writeJSON(w, http.StatusAccepted, d.Status())
	}
}

func pipelineMetricsHandler(metrics *observability.Metrics, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, metrics.GetPipelineSnapshot())
	}
}
