package service

import (
	"fmt"
	"time"

	"github.com/boddenberg/pos-dashboard-bfa/internal/domain"
	"github.com/boddenberg/pos-dashboard-bfa/internal/port"

	"github.com/golang-jwt/jwt/v5"
)

// SupabaseClaims are the claims of a Supabase Auth access token. The store
// scope comes from a top-level store_id claim or from app_metadata.
type SupabaseClaims struct {
	Role        string      `json:"role,omitempty"`
	StoreID     string      `json:"store_id,omitempty"`
	AppMetadata appMetadata `json:"app_metadata"`
	jwt.RegisteredClaims
}

type appMetadata struct {
	StoreID string `json:"store_id,omitempty"`
}

// TokenVerifier turns Supabase access tokens into sessions.
type TokenVerifier struct {
	secret       []byte
	defaultStore string
	clock        port.Clock
}

// NewTokenVerifier creates a verifier for HS256 tokens signed with secret.
// defaultStore scopes tokens that carry no store claim.
func NewTokenVerifier(secret, defaultStore string, clock port.Clock) *TokenVerifier {
	if clock == nil {
		clock = time.Now
	}
	return &TokenVerifier{secret: []byte(secret), defaultStore: defaultStore, clock: clock}
}

// Verify checks signature and expiry and returns the token's session.
func (v *TokenVerifier) Verify(tokenString string) (*domain.Session, error) {
	if len(v.secret) == 0 {
		return nil, &domain.ErrUnauthorized{Message: "token verification is not configured"}
	}

	claims := &SupabaseClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return v.secret, nil
	}, jwt.WithTimeFunc(v.clock), jwt.WithExpirationRequired())
	if err != nil || !token.Valid {
		return nil, &domain.ErrUnauthorized{Message: "invalid or expired token"}
	}

	return sessionFromClaims(claims, v.defaultStore)
}

// ReadSession extracts the session of a token without verifying its
// signature. Only for tokens just received from the auth service.
func ReadSession(tokenString, defaultStore string) (*domain.Session, error) {
	claims := &SupabaseClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(tokenString, claims); err != nil {
		return nil, &domain.ErrUnauthorized{Message: "malformed token"}
	}
	return sessionFromClaims(claims, defaultStore)
}

func sessionFromClaims(claims *SupabaseClaims, defaultStore string) (*domain.Session, error) {
	if claims.Subject == "" {
		return nil, &domain.ErrUnauthorized{Message: "token has no subject"}
	}

	storeID := claims.StoreID
	if storeID == "" {
		storeID = claims.AppMetadata.StoreID
	}
	if storeID == "" {
		storeID = defaultStore
	}
	if storeID == "" {
		return nil, &domain.ErrForbidden{Action: "token is not scoped to a store"}
	}

	session := &domain.Session{
		UserID:  claims.Subject,
		StoreID: storeID,
		Role:    claims.Role,
	}
	if claims.ExpiresAt != nil {
		session.ExpiresAt = claims.ExpiresAt.Time
	}
	return session, nil
}
