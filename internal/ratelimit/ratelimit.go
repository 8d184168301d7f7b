package ratelimit

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// RateLimiter defines the interface for rate limiting.
// The abstraction allows swapping between in-memory and distributed
// implementations without touching the middleware.
type RateLimiter interface {
	// Allow checks if a request from the given key (IP, user ID, etc.) is allowed.
	Allow(ctx context.Context, key string) bool
}

// InMemoryRateLimiter implements rate limiting using per-key token buckets.
// Suitable for single-instance deployments.
type InMemoryRateLimiter struct {
	rate  rate.Limit
	burst int

	// limiters stores per-key rate limiters
	limiters sync.Map // map[string]*rate.Limiter

	// lastAccess tracks when each limiter was last used
	lastAccess sync.Map // map[string]time.Time

	cleanupInterval time.Duration
	maxAge          time.Duration
	stopCleanup     chan struct{}
}

// NewInMemoryRateLimiter creates a new in-memory rate limiter.
// rps: requests per second; burst: maximum burst size.
func NewInMemoryRateLimiter(rps float64, burst int) *InMemoryRateLimiter {
	limiter := &InMemoryRateLimiter{
		rate:            rate.Limit(rps),
		burst:           burst,
		cleanupInterval: 5 * time.Minute,
		maxAge:          10 * time.Minute,
		stopCleanup:     make(chan struct{}),
	}

	go limiter.cleanup()

	return limiter
}

// Allow checks if a single request is allowed for the key.
func (l *InMemoryRateLimiter) Allow(ctx context.Context, key string) bool {
	limiter := l.getLimiter(key)
	l.lastAccess.Store(key, time.Now().UTC())
	return limiter.Allow()
}

// Stop terminates the cleanup goroutine.
func (l *InMemoryRateLimiter) Stop() {
	close(l.stopCleanup)
}

func (l *InMemoryRateLimiter) getLimiter(key string) *rate.Limiter {
	if existing, ok := l.limiters.Load(key); ok {
		return existing.(*rate.Limiter)
	}
	limiter := rate.NewLimiter(l.rate, l.burst)
	actual, _ := l.limiters.LoadOrStore(key, limiter)
	return actual.(*rate.Limiter)
}

// cleanup periodically removes limiters that have not been used recently
// so idle keys do not accumulate forever.
func (l *InMemoryRateLimiter) cleanup() {
	ticker := time.NewTicker(l.cleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-l.stopCleanup:
			return
		case <-ticker.C:
			cutoff := time.Now().UTC().Add(-l.maxAge)
			l.lastAccess.Range(func(key, value any) bool {
				if lastUsed, ok := value.(time.Time); ok && lastUsed.Before(cutoff) {
					l.limiters.Delete(key)
					l.lastAccess.Delete(key)
				}
				return true
			})
		}
	}
}
