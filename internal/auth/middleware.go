// internal/auth/middleware.go
package auth

import (
	"context"
	"encoding/json"
	"net/http"
)

type contextKey string

const TenantIDKey contextKey = "tenant_id"

// RequireSession admits only requests carrying a valid session cookie and
// injects the tenant id into the request context.
func RequireSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		cookie, err := r.Cookie(CookieName)
		if err != nil || cookie.Value == "" {
			unauthorized(w)
			return
		}

		claims, err := ValidateToken(cookie.Value)
		if err != nil {
			unauthorized(w)
			return
		}

		ctx := context.WithValue(r.Context(), TenantIDKey, claims.TenantID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func unauthorized(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": "Unauthorized"})
}

// GetTenantID extracts tenant_id from context
func GetTenantID(r *http.Request) string {
	if val := r.Context().Value(TenantIDKey); val != nil {
		return val.(string)
	}
	return ""
}
