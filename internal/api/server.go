package api

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/helicityai/steward/internal/cache"
	"github.com/helicityai/steward/internal/db"
	"github.com/helicityai/steward/internal/insights"
	"github.com/helicityai/steward/internal/logger"
	"github.com/helicityai/steward/internal/ratelimit"
)

// Server holds dependencies for API handlers
type Server struct {
	db             *db.DB
	insights       *insights.Service
	cache          cache.Cache
	cacheTTL       time.Duration
	limiter        ratelimit.RateLimiter
	adminToken     string
	allowedOrigins []string
	version        string
}

// Options configures a Server.
type Options struct {
	DB             *db.DB
	Insights       *insights.Service
	Cache          cache.Cache
	CacheTTL       time.Duration
	Limiter        ratelimit.RateLimiter
	AdminToken     string
	AllowedOrigins []string
	Version        string
}

// NewServer creates a new API server
func NewServer(opts Options) *Server {
	c := opts.Cache
	if c == nil {
		c = cache.None{}
	}
	return &Server{
		db:             opts.DB,
		insights:       opts.Insights,
		cache:          c,
		cacheTTL:       opts.CacheTTL,
		limiter:        opts.Limiter,
		adminToken:     opts.AdminToken,
		allowedOrigins: opts.AllowedOrigins,
		version:        opts.Version,
	}
}

// SetupRoutes configures HTTP routes
func (s *Server) SetupRoutes() http.Handler {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(logger.Middleware)
	r.Use(middleware.Recoverer)

	if len(s.allowedOrigins) > 0 {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins:   s.allowedOrigins,
			AllowedMethods:   []string{"GET", "OPTIONS"},
			AllowedHeaders:   []string{"Authorization", "Content-Type"},
			AllowCredentials: true,
			MaxAge:           300,
		}))
	}

	// Health check
	r.Get("/health", s.handleHealth)
	r.Get("/", s.handleRoot)

	// API v1 routes
	r.Route("/api/v1", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			r.Use(s.adminAuth)
			if s.limiter != nil {
				r.Use(ratelimit.Middleware(s.limiter))
			}

			r.Get("/insights/usage", s.handleUsageReport)
			r.Get("/insights/leaderboard", s.handleLeaderboard)
		})
	})

	return r
}

// handleHealth returns server health status
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{
		"status": "ok",
	})
}

// handleRoot returns API info
func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{
		"service": "steward-backend",
		"version": s.version,
	})
}

// respondJSON writes a JSON response
func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// respondError writes an error JSON response
func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{
		"error": message,
	})
}
