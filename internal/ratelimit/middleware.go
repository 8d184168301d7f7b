package ratelimit

import (
	"net"
	"net/http"

	"github.com/helicityai/steward/internal/logger"
)

// Middleware creates an HTTP middleware that applies per-client rate limiting.
// Keys on the client IP as resolved by chi's RealIP middleware, which must
// run earlier in the chain.
func Middleware(limiter RateLimiter) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := clientKey(r)

			if !limiter.Allow(r.Context(), key) {
				logger.Ctx(r.Context()).Warn("rate limit exceeded", "key", key, "path", r.URL.Path)
				http.Error(w, "Rate limit exceeded. Please try again later.", http.StatusTooManyRequests)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// clientKey extracts the rate limit key from the request.
// RemoteAddr has already been rewritten by RealIP when proxy headers exist.
func clientKey(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
