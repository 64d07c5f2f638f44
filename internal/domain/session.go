package domain

import "time"

// Session is an authenticated console session scoped to one store.
type Session struct {
	UserID    string    `json:"user_id"`
	StoreID   string    `json:"store_id"`
	Role      string    `json:"role,omitempty"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Active reports whether the session is still valid at now.
// A zero ExpiresAt never expires.
func (s *Session) Active(now time.Time) bool {
	if s == nil {
		return false
	}
	return s.ExpiresAt.IsZero() || now.Before(s.ExpiresAt)
}

// LoginRequest is the password grant sent to the auth service.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// LoginResponse is the token pair issued by the auth service.
type LoginResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int    `json:"expires_in"`
	TokenType    string `json:"token_type"`
}
