package supabase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/boddenberg/pos-dashboard-bfa/internal/domain"
)

// ============================================================
// Authenticator implementation: Supabase Auth (GoTrue)
// ============================================================

// SignIn exchanges email and password for a session token pair.
func (c *Client) SignIn(ctx context.Context, req *domain.LoginRequest) (*domain.LoginResponse, error) {
	ctx, span := tracer.Start(ctx, "Supabase.SignIn")
	defer span.End()

	if req.Email == "" || req.Password == "" {
		return nil, &domain.ErrValidation{Field: "email", Message: "email and password are required"}
	}

	body, err := c.doAuthPost(ctx, "token?grant_type=password", req)
	if err != nil {
		var se *statusError
		if errors.As(err, &se) && (se.Status == http.StatusBadRequest || se.Status == http.StatusUnauthorized) {
			return nil, &domain.ErrUnauthorized{Message: "invalid login credentials"}
		}
		return nil, wrapExternal("supabase/auth", err)
	}

	var resp domain.LoginResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("decode auth token: %w", err)
	}
	if resp.AccessToken == "" {
		return nil, &domain.ErrUnauthorized{Message: "auth service returned no access token"}
	}
	return &resp, nil
}
