package handler

import (
	"encoding/json"
	"net/http"

	"github.com/boddenberg/pos-dashboard-bfa/internal/domain"
	"github.com/boddenberg/pos-dashboard-bfa/internal/port"

	"go.uber.org/zap"
)

// ============================================================
// Authentication
// ============================================================

func authLoginHandler(auth port.Authenticator, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /v1/auth/login")
		defer span.End()

		if auth == nil {
			writeError(w, http.StatusServiceUnavailable, "authentication is not configured")
			return
		}

		var req domain.LoginRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}

		resp, err := auth.SignIn(ctx, &req)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}

		writeJSON(w, http.StatusOK, resp)
	}
}
