package api

import (
	"crypto/subtle"
	"net/http"
	"strings"
)

// adminAuth requires a valid admin bearer token on every request.
// Cookie/session authentication for the dashboard itself lives in front of
// this service; the insights API is consumed server-to-server.
func (s *Server) adminAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.adminToken == "" {
			respondError(w, http.StatusServiceUnavailable, "Admin API not configured")
			return
		}

		auth := r.Header.Get("Authorization")
		token, ok := strings.CutPrefix(auth, "Bearer ")
		if !ok || token == "" {
			respondError(w, http.StatusUnauthorized, "Authentication required")
			return
		}

		if subtle.ConstantTimeCompare([]byte(token), []byte(s.adminToken)) != 1 {
			respondError(w, http.StatusUnauthorized, "Invalid token")
			return
		}

		next.ServeHTTP(w, r)
	})
}
