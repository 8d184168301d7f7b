package api

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/helicityai/steward/internal/insights"
	"github.com/helicityai/steward/internal/logger"
)

// unavailableResponse is the placeholder envelope returned while the
// telemetry store is not configured. Distinct from a query failure so the
// dashboard renders an empty state instead of an error banner.
type unavailableResponse struct {
	Available bool   `json:"available"`
	Reason    string `json:"reason"`
}

// handleUsageReport returns the analytics view for a window.
//
// Query parameters:
//   - window: aggregation range, one of 7d, 30d, 90d (default 30d)
func (s *Server) handleUsageReport(w http.ResponseWriter, r *http.Request) {
	log := logger.Ctx(r.Context())

	window, err := insights.ParseWindow(r.URL.Query().Get("window"))
	if err != nil {
		respondError(w, http.StatusBadRequest, "Invalid window")
		return
	}

	cacheKey := fmt.Sprintf("insights:usage:%dd", window.Days())
	if cached, ok := s.cache.Get(cacheKey); ok {
		respondJSON(w, http.StatusOK, cached)
		return
	}

	report, err := s.insights.UsageReport(r.Context(), window)
	if err != nil {
		if errors.Is(err, insights.ErrNotConfigured) {
			respondJSON(w, http.StatusOK, unavailableResponse{
				Available: false,
				Reason:    "usage telemetry is not configured yet",
			})
			return
		}
		log.Error("Failed to build usage report", "window_days", window.Days(), "error", err)
		respondError(w, http.StatusServiceUnavailable, "Usage analytics temporarily unavailable")
		return
	}

	s.cache.Set(cacheKey, report, s.cacheTTL)
	respondJSON(w, http.StatusOK, report)
}

// handleLeaderboard returns the cross-team leaderboard view for a window.
//
// Query parameters:
//   - window: aggregation range, one of 7d, 30d, 90d (default 30d)
func (s *Server) handleLeaderboard(w http.ResponseWriter, r *http.Request) {
	log := logger.Ctx(r.Context())

	window, err := insights.ParseWindow(r.URL.Query().Get("window"))
	if err != nil {
		respondError(w, http.StatusBadRequest, "Invalid window")
		return
	}

	cacheKey := fmt.Sprintf("insights:leaderboard:%dd", window.Days())
	if cached, ok := s.cache.Get(cacheKey); ok {
		respondJSON(w, http.StatusOK, cached)
		return
	}

	report, err := s.insights.Leaderboard(r.Context(), window)
	if err != nil {
		if errors.Is(err, insights.ErrNotConfigured) {
			respondJSON(w, http.StatusOK, unavailableResponse{
				Available: false,
				Reason:    "usage telemetry is not configured yet",
			})
			return
		}
		log.Error("Failed to build leaderboard", "window_days", window.Days(), "error", err)
		respondError(w, http.StatusServiceUnavailable, "Leaderboard temporarily unavailable")
		return
	}

	s.cache.Set(cacheKey, report, s.cacheTTL)
	respondJSON(w, http.StatusOK, report)
}
