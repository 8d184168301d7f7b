package insights

// Tip thresholds. Each category has a "good" bound and a stricter "warning"
// bound; crossing the warning bound gets the stronger-worded tip.
const (
	cacheHitGood = 0.85
	cacheHitWarn = 0.60

	contextGrowthGood = 2.0
	contextGrowthWarn = 5.0

	retryDensityGood = 0.10
	retryDensityWarn = 0.20
)

// GenerateTips returns short recommendations for one user, at most one per
// metric category, in fixed order: cache hygiene first, then context growth,
// then retry quality (the scoring weight order, highest-weight concern first).
//
// The cache hit rate here is cacheReadTokens/inputTokens, a display-layer
// quantity distinct from the CacheEfficiency sub-score, which divides by
// cache reads plus output.
func GenerateTips(m Metrics) []string {
	var tips []string

	// Cache hygiene. No input tokens means no evidence, so no tip.
	if m.InputTokens > 0 {
		hitRate := float64(m.CacheReadTokens) / float64(m.InputTokens)
		switch {
		case hitRate < cacheHitWarn:
			tips = append(tips, "Cache hit rate is below 60%. Resume existing sessions instead of starting fresh ones; every restart throws away cached context and rereads it at full price.")
		case hitRate < cacheHitGood:
			tips = append(tips, "Cache hit rate is below 85%. Longer-lived sessions reuse cached context and cut per-request cost.")
		}
	}

	// Context growth. Higher is worse past the good bound.
	switch {
	case m.ContextGrowthRate > contextGrowthWarn:
		tips = append(tips, "Context is growing more than 5x per session. Break large tasks into smaller sessions or compact early; oversized context slows responses and inflates cost.")
	case m.ContextGrowthRate > contextGrowthGood:
		tips = append(tips, "Context is growing faster than expected. Trim stale files from the working set before it compounds.")
	}

	// Retry quality. Higher is worse past the good bound.
	switch {
	case m.RetryDensity > retryDensityWarn:
		tips = append(tips, "More than 20% of interactions are retries. Invest in clearer prompts with concrete acceptance criteria; rework is the most expensive token spend.")
	case m.RetryDensity > retryDensityGood:
		tips = append(tips, "Retry rate is above 10%. Adding examples or constraints to prompts usually gets it right the first time.")
	}

	return tips
}
