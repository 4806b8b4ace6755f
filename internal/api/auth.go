// SPDX-License-Identifier: MIT

package api

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/kkin1995/healthkit/internal/log"
)

// extractToken pulls the bearer token from the Authorization header.
func extractToken(r *http.Request) string {
	h := r.Header.Get("Authorization")
	if h == "" {
		return ""
	}
	const prefix = "Bearer "
	if !strings.HasPrefix(h, prefix) {
		return ""
	}
	return strings.TrimSpace(h[len(prefix):])
}

// authorizeToken compares tokens in constant time to prevent timing attacks.
func authorizeToken(got, want string) bool {
	return subtle.ConstantTimeCompare([]byte(got), []byte(want)) == 1
}

// authMiddleware enforces API token authentication on mutating endpoints.
// An empty configured token disables auth entirely.
func (s *Server) authMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := s.cfg.Token
		if token == "" {
			next.ServeHTTP(w, r)
			return
		}

		logger := log.WithComponentFromContext(r.Context(), "auth")

		reqToken := extractToken(r)
		if reqToken == "" {
			logger.Warn().Str("event", "auth.missing_header").Msg("authorization header missing")
			writeUnauthorized(w)
			return
		}

		if !authorizeToken(reqToken, token) {
			logger.Warn().Str("event", "auth.invalid_token").Msg("invalid api token")
			writeUnauthorized(w)
			return
		}

		next.ServeHTTP(w, r)
	})
}
