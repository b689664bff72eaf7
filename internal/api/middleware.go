package api

// This file contains the middleware protecting the local API. Session
// management proper lives outside this service; the dashboard gateway hands
// browsers a static API token.

import (
	"crypto/subtle"
	"net/http"
	"strings"
)

// AuthMiddleware verifies the bearer token on /api routes. An empty
// configured token disables the check (e.g. behind an authenticating
// reverse proxy, and in tests).
func (s *Server) AuthMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		expected := s.app.Config.Auth.APIToken
		if expected == "" {
			next.ServeHTTP(w, r)
			return
		}

		header := r.Header.Get("Authorization")
		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok {
			RespondWithError(w, http.StatusUnauthorized, "Unauthorized: No bearer token")
			return
		}
		if subtle.ConstantTimeCompare([]byte(token), []byte(expected)) != 1 {
			RespondWithError(w, http.StatusUnauthorized, "Unauthorized: Invalid token")
			return
		}

		next.ServeHTTP(w, r)
	})
}
