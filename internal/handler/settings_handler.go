package handler

import (
	"encoding/json"
	"net/http"

	"github.com/boddenberg/pos-dashboard-bfa/internal/service"

	"go.uber.org/zap"
)

// ============================================================
// Settings
// ============================================================

type lowStockRequest struct {
	Threshold *int `json:"threshold"`
}

func getLowStockHandler(settings *service.Settings, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/settings/low-stock-threshold")
		defer span.End()

		session := SessionFromContext(ctx)
		setting, err := settings.LowStock(ctx, session.StoreID)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, setting)
	}
}

func putLowStockHandler(settings *service.Settings, registry *service.Registry, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "PUT /v1/settings/low-stock-threshold")
		defer span.End()

		var req lowStockRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Threshold == nil {
			writeError(w, http.StatusBadRequest, "body must be {\"threshold\": <int>}")
			return
		}

		session := SessionFromContext(ctx)
		setting, err := settings.SetLowStock(ctx, session.StoreID, *req.Threshold)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}

		// Low-stock items depend on the threshold; the next read must refetch.
		if d, ok := registry.Lookup(session.StoreID); ok {
			d.Invalidate()
		}
		writeJSON(w, http.StatusOK, setting)
	}
}
