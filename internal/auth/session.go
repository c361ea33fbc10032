// internal/auth/session.go
package auth

import (
	"errors"
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// CookieName is the session cookie set on login and cleared on logout.
const CookieName = "session"

const sessionTTL = 24 * time.Hour

var sessionSecret []byte

// SetSecret sets the session signing key (e.g., from config)
func SetSecret(secret string) {
	sessionSecret = []byte(secret)
}

// Claims represents the session payload
type Claims struct {
	TenantID      string `json:"tenant_id"`
	Authenticated bool   `json:"authenticated"`
	jwt.RegisteredClaims
}

// GenerateToken creates a signed session token for the given tenant
func GenerateToken(tenantID string) (string, error) {
	if len(sessionSecret) == 0 {
		return "", errors.New("session secret not set")
	}

	claims := Claims{
		TenantID:      tenantID,
		Authenticated: true,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(sessionTTL)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(sessionSecret)
}

// ValidateToken parses and verifies a session token string
func ValidateToken(tokenStr string) (*Claims, error) {
	if len(sessionSecret) == 0 {
		return nil, errors.New("session secret not set")
	}

	token, err := jwt.ParseWithClaims(tokenStr, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		return sessionSecret, nil
	})
	if err != nil || !token.Valid {
		return nil, errors.New("invalid or expired token")
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !claims.Authenticated {
		return nil, errors.New("invalid claims")
	}

	return claims, nil
}

// SetSessionCookie issues the httpOnly session cookie.
func SetSessionCookie(w http.ResponseWriter, token string) {
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    token,
		Path:     "/",
		MaxAge:   int(sessionTTL.Seconds()),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}

// ClearSessionCookie expires the session cookie.
func ClearSessionCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}
