package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
)

// JWTValidator validates admin bearer tokens.
type JWTValidator interface {
	ValidateToken(tokenString string) (*JWTClaims, error)
}

// JWTClaims is the subset of claims the middleware cares about.
type JWTClaims struct {
	Subject string
	Role    string
}

type contextKeyAdminSubject struct{}

// ContextKeyAdminSubject is exported for handler tests.
var ContextKeyAdminSubject = contextKeyAdminSubject{}

// GetAdminSubject retrieves the authenticated admin subject from the context.
func GetAdminSubject(ctx context.Context) string {
	subject, ok := ctx.Value(ContextKeyAdminSubject).(string)
	if !ok {
		return ""
	}
	return subject
}

// RequireAdmin guards administrative routes with a bearer JWT. The public
// badge flow never passes through here; sponsor apps authenticate with their
// own credentials inside the protocol.
func RequireAdmin(validator JWTValidator, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			token, ok := strings.CutPrefix(authHeader, "Bearer ")
			if !ok || token == "" {
				unauthorized(w)
				return
			}
			claims, err := validator.ValidateToken(token)
			if err != nil {
				logger.WarnContext(r.Context(), "unauthorized admin access",
					"error", err,
					"request_id", GetRequestID(r.Context()),
				)
				unauthorized(w)
				return
			}
			ctx := context.WithValue(r.Context(), ContextKeyAdminSubject, claims.Subject)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func unauthorized(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	_, _ = w.Write([]byte(`{"error":"unauthorized","error_description":"Invalid or expired token"}`))
}
