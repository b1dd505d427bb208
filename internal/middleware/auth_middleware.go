package middleware

import (
	"context"
	"net/http"
	"strings"

	"lifeshare/internal/auth"
	"lifeshare/internal/models"

	"github.com/gorilla/mux"
)

// contextKey is a private type for context values to avoid key collisions.
type contextKey string

const (
	// UserIDKey stores the authenticated user's id in the request context.
	UserIDKey contextKey = "userID"
	// RoleKey stores the authenticated user's role in the request context.
	RoleKey contextKey = "role"
	// ClaimsKey stores the full token claims (used by logout for the jti).
	ClaimsKey contextKey = "claims"
)

// AuthMiddleware validates the bearer token (including the revocation check)
// and stores the caller's identity and role in the request context.
func AuthMiddleware(jwtKey string, blacklist auth.TokenBlacklist) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				http.Error(w, "missing authorization token", http.StatusUnauthorized)
				return
			}

			headerParts := strings.Split(authHeader, " ")
			if len(headerParts) != 2 || strings.ToLower(headerParts[0]) != "bearer" {
				http.Error(w, "invalid authorization header, expected Bearer {token}", http.StatusUnauthorized)
				return
			}

			claims, err := auth.ValidateToken(r.Context(), headerParts[1], jwtKey, blacklist)
			if err != nil {
				http.Error(w, "invalid token", http.StatusUnauthorized)
				return
			}

			ctx := context.WithValue(r.Context(), UserIDKey, claims.UserID)
			ctx = context.WithValue(ctx, RoleKey, claims.Role)
			ctx = context.WithValue(ctx, ClaimsKey, claims)

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// GetUserIDFromContext returns the authenticated user id, if present.
func GetUserIDFromContext(ctx context.Context) (uint, bool) {
	userID, ok := ctx.Value(UserIDKey).(uint)
	return userID, ok
}

// GetRoleFromContext returns the authenticated user's role, if present.
func GetRoleFromContext(ctx context.Context) (models.UserRole, bool) {
	role, ok := ctx.Value(RoleKey).(models.UserRole)
	return role, ok
}

// GetClaimsFromContext returns the full token claims, if present.
func GetClaimsFromContext(ctx context.Context) (*auth.Claims, bool) {
	claims, ok := ctx.Value(ClaimsKey).(*auth.Claims)
	return claims, ok
}
