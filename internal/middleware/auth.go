package middleware

import (
	"context"
	"net/http"
	"strings"

	"ppcp-backend/internal/auth"
)

type contextKey string

const UsernameKey contextKey = "username"

const usernameHolderKey contextKey = "username_holder"

// usernameHolder lets an outer middleware learn who an inner Authenticate admitted
type usernameHolder struct {
	username string
}

func withUsernameHolder(ctx context.Context, h *usernameHolder) context.Context {
	return context.WithValue(ctx, usernameHolderKey, h)
}

type AuthMiddleware struct {
	jwtManager *auth.JWTManager
}

func NewAuthMiddleware(jwtManager *auth.JWTManager) *AuthMiddleware {
	return &AuthMiddleware{jwtManager: jwtManager}
}

// Authenticate is a middleware that validates Bearer tokens
func (m *AuthMiddleware) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		authHeader := r.Header.Get("Authorization")
		if authHeader == "" {
			http.Error(w, "Authorization header required", http.StatusUnauthorized)
			return
		}

		// Extract token from "Bearer <token>"
		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || parts[0] != "Bearer" {
			http.Error(w, "Invalid authorization format", http.StatusUnauthorized)
			return
		}

		claims, err := m.jwtManager.ValidateToken(parts[1])
		if err != nil {
			http.Error(w, "Invalid or expired token", http.StatusUnauthorized)
			return
		}

		if holder, ok := r.Context().Value(usernameHolderKey).(*usernameHolder); ok {
			holder.username = claims.Username
		}
		ctx := context.WithValue(r.Context(), UsernameKey, claims.Username)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// GetUsernameFromContext extracts the session username from request context
func GetUsernameFromContext(ctx context.Context) (string, bool) {
	username, ok := ctx.Value(UsernameKey).(string)
	return username, ok
}
