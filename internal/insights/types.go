package insights

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// Window is the aggregation range for usage queries, in days.
type Window int

const (
	Window7d  Window = 7
	Window30d Window = 30
	Window90d Window = 90
)

// ParseWindow parses a window query parameter like "7d", "30d" or "90d".
// An empty string defaults to 30 days.
func ParseWindow(s string) (Window, error) {
	switch s {
	case "", "30d":
		return Window30d, nil
	case "7d":
		return Window7d, nil
	case "90d":
		return Window90d, nil
	}
	return 0, fmt.Errorf("invalid window %q (want 7d, 30d or 90d)", s)
}

// Days returns the window length in days.
func (w Window) Days() int { return int(w) }

// UsageRow is one windowed usage aggregate delivered by the telemetry store,
// keyed by the opaque tracking identifier. Email is the address attached to
// the raw usage events, when the client agent reported one; it may be empty.
type UsageRow struct {
	TrackingID      string
	Email           string
	InputTokens     int64
	OutputTokens    int64
	CacheReadTokens int64
	CostUSD         decimal.Decimal
	RequestCount    int64
}

// TotalTokens returns the token volume attributed to this row
// (input + output + cache reads).
func (u UsageRow) TotalTokens() int64 {
	return u.InputTokens + u.OutputTokens + u.CacheReadTokens
}

// BehaviorRow carries the behavioral signals derived from session traces.
// Rows are sparse per tracking identifier; absent rows mean the scorer's
// neutral defaults apply.
type BehaviorRow struct {
	TrackingID        string
	RetryDensity      float64
	ContextGrowthRate float64
}

// CorrelationRow is one observation linking a tracking identifier to an
// email and/or an external directory identifier. The same identifier may be
// observed many times with different values; the resolver keeps the most
// recent observation.
type CorrelationRow struct {
	TrackingID string
	Email      string
	LinkedID   string
	ObservedAt time.Time
}

// EfficiencyResult holds the four bounded sub-scores and the composite.
// Sub-scores are in [0,1]; Score is in [0,100].
type EfficiencyResult struct {
	WorkQuality       float64 `json:"work_quality"`
	ContextEfficiency float64 `json:"context_efficiency"`
	CacheEfficiency   float64 `json:"cache_efficiency"`
	CostEfficiency    float64 `json:"cost_efficiency"`
	Score             int     `json:"score"`
}

// LeaderboardEntry is one ranked row in a top-N list. Rank is 1-based and
// assigned by position after sorting and truncation.
type LeaderboardEntry struct {
	Rank           int     `json:"rank"`
	DisplayName    string  `json:"display_name"`
	Value          float64 `json:"value"`
	FormattedValue string  `json:"formatted_value"`
}

// =============================================================================
// Read models
// =============================================================================

// UsageReport is the analytics view: summary totals plus one scored row per user.
type UsageReport struct {
	ComputedAt time.Time    `json:"computed_at"`
	WindowDays int          `json:"window_days"`
	Summary    UsageSummary `json:"summary"`
	Users      []UserUsage  `json:"users"`
}

// UsageSummary contains org-wide totals for the window.
type UsageSummary struct {
	TotalTokens  int64  `json:"total_tokens"`
	TotalCostUSD string `json:"total_cost_usd"`
	CacheHitRate string `json:"cache_hit_rate"`
	RequestCount int64  `json:"request_count"`
	ActiveUsers  int    `json:"active_users"`
}

// UserUsage is one per-user row in the analytics view.
type UserUsage struct {
	TrackingID      string           `json:"tracking_id"`
	DisplayName     string           `json:"display_name"`
	InputTokens     int64            `json:"input_tokens"`
	OutputTokens    int64            `json:"output_tokens"`
	CacheReadTokens int64            `json:"cache_read_tokens"`
	TotalCostUSD    string           `json:"total_cost_usd"`
	RequestCount    int64            `json:"request_count"`
	Efficiency      EfficiencyResult `json:"efficiency"`
	Tips            []string         `json:"tips"`
}

// LeaderboardReport is the cross-team leaderboard view: three top-N lists
// plus the skill adoption summary.
type LeaderboardReport struct {
	ComputedAt    time.Time          `json:"computed_at"`
	WindowDays    int                `json:"window_days"`
	TopTokens     []LeaderboardEntry `json:"top_tokens"`
	TopEfficiency []LeaderboardEntry `json:"top_efficiency"`
	TopSkills     []LeaderboardEntry `json:"top_skills"`
	SkillAdoption SkillAdoption      `json:"skill_adoption"`
}

// SkillAdoption summarizes how many active users invoked at least one skill.
type SkillAdoption struct {
	SkillUsers int    `json:"skill_users"`
	TotalUsers int    `json:"total_users"`
	Rate       string `json:"rate"`
}
