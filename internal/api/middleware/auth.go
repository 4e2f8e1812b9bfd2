// Package middleware provides HTTP middleware components.
package middleware

import (
	"crypto/subtle"
	"net/http"
	"os"

	"github.com/rs/zerolog"

	"github.com/discord-terminal/engine/internal/api/responses"
)

const (
	// CookieName is the name of the authentication cookie.
	CookieName = "api_key"
	// CookieMaxAge is the cookie lifetime in seconds (7 days).
	CookieMaxAge = 7 * 24 * 60 * 60
)

// Auth provides optional API key authentication. An empty configured key
// disables the gate entirely: Protect/ProtectHandler pass every request
// through, and Check reports authenticated=true, auth_required=false.
type Auth struct {
	apiKey string
	logger zerolog.Logger
}

// NewAuth creates a new auth middleware, reading API_KEY from the
// environment. An unset API_KEY leaves auth disabled rather than erroring,
// so a local single-user deployment doesn't need one configured.
func NewAuth(logger zerolog.Logger) *Auth {
	return &Auth{
		apiKey: os.Getenv("API_KEY"),
		logger: logger.With().Str("middleware", "auth").Logger(),
	}
}

// IsEnabled returns true if API key authentication is configured.
func (m *Auth) IsEnabled() bool {
	return m.apiKey != ""
}

// ValidateKey checks if the provided key matches the configured API key.
func (m *Auth) ValidateKey(key string) bool {
	return subtle.ConstantTimeCompare([]byte(key), []byte(m.apiKey)) == 1
}

// Protect wraps a handler to require a valid API key cookie, when enabled.
func (m *Auth) Protect(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !m.IsEnabled() {
			next(w, r)
			return
		}

		cookie, err := r.Cookie(CookieName)
		if err != nil || !m.ValidateKey(cookie.Value) {
			responses.Error(w, http.StatusUnauthorized, "unauthorized", "Valid API key required")
			return
		}

		next(w, r)
	}
}

// ProtectHandler wraps an http.Handler to require a valid API key cookie,
// when enabled.
func (m *Auth) ProtectHandler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !m.IsEnabled() {
			next.ServeHTTP(w, r)
			return
		}

		cookie, err := r.Cookie(CookieName)
		if err != nil || !m.ValidateKey(cookie.Value) {
			responses.Error(w, http.StatusUnauthorized, "unauthorized", "Valid API key required")
			return
		}

		next.ServeHTTP(w, r)
	})
}
