package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/edvin/oportunia/internal/api/response"
	"github.com/edvin/oportunia/internal/model"
)

type contextKey string

const claimsKey contextKey = "claims"

// TokenValidator validates a bearer token.
type TokenValidator interface {
	ValidateToken(token string) (*model.JWTClaims, error)
}

// Auth returns middleware that validates JWT Bearer tokens and injects claims into context.
func Auth(validator TokenValidator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				response.WriteError(w, http.StatusUnauthorized, "missing authorization header")
				return
			}

			token := strings.TrimPrefix(authHeader, "Bearer ")
			if token == authHeader {
				response.WriteError(w, http.StatusUnauthorized, "invalid authorization format")
				return
			}

			claims, err := validator.ValidateToken(token)
			if err != nil {
				response.WriteError(w, http.StatusUnauthorized, "invalid token")
				return
			}

			next.ServeHTTP(w, r.WithContext(WithClaims(r.Context(), claims)))
		})
	}
}

// RequireRole rejects requests whose claims do not carry role.
func RequireRole(role string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims := GetClaims(r.Context())
			if claims == nil || claims.Role != role {
				response.WriteError(w, http.StatusForbidden, "insufficient role")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func WithClaims(ctx context.Context, claims *model.JWTClaims) context.Context {
	return context.WithValue(ctx, claimsKey, claims)
}

// GetClaims extracts JWT claims from the request context.
func GetClaims(ctx context.Context) *model.JWTClaims {
	claims, _ := ctx.Value(claimsKey).(*model.JWTClaims)
	return claims
}
