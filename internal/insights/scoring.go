package insights

import "math"

// Scoring targets. The composite weights sum to 100 so a perfect set of
// sub-scores maps exactly onto the 0-100 scale.
const (
	// Neutral defaults applied when no behavioral row exists for a tracking id.
	defaultRetryDensity      = 0.10
	defaultContextGrowthRate = 2.0

	// Cost efficiency targets: 50 requests per dollar, 100k cache-weighted
	// tokens per dollar.
	requestsPerDollarTarget = 50.0
	cacheWeightedTarget     = 100_000.0

	// Composite weights.
	weightWorkQuality       = 10.0
	weightContextEfficiency = 20.0
	weightCacheEfficiency   = 35.0
	weightCostEfficiency    = 35.0
)

// Metrics bundles the windowed usage aggregate and behavioral signals for a
// single tracking identifier. Construct via MetricsFor so the behavioral
// defaults are applied consistently.
type Metrics struct {
	UsageRow
	RetryDensity      float64
	ContextGrowthRate float64
}

// MetricsFor merges a usage row with its behavioral row, substituting the
// neutral defaults when no behavioral row was computed for the identifier.
// Missing rows never null-propagate into the score.
func MetricsFor(usage UsageRow, behavior *BehaviorRow) Metrics {
	m := Metrics{
		UsageRow:          usage,
		RetryDensity:      defaultRetryDensity,
		ContextGrowthRate: defaultContextGrowthRate,
	}
	if behavior != nil {
		m.RetryDensity = behavior.RetryDensity
		m.ContextGrowthRate = behavior.ContextGrowthRate
	}
	return m
}

// ScoreEfficiency computes the four bounded sub-scores and the composite
// 0-100 efficiency score. It is a pure function: no I/O, deterministic, and
// total. Adversarial inputs (negative tokens, zero counts, NaN ratios)
// clamp into the documented ranges instead of propagating.
func ScoreEfficiency(m Metrics) EfficiencyResult {
	outputTokens := nonNegative(m.OutputTokens)
	cacheReadTokens := nonNegative(m.CacheReadTokens)
	requestCount := nonNegative(m.RequestCount)

	workQuality := clamp01(1 - m.RetryDensity)
	contextEfficiency := scoreContextGrowth(m.ContextGrowthRate)
	cacheEfficiency := scoreCacheUse(cacheReadTokens, outputTokens)
	costEfficiency := scoreCost(m.CostUSD.InexactFloat64(), requestCount, cacheReadTokens, outputTokens)

	composite := weightWorkQuality*workQuality +
		weightContextEfficiency*contextEfficiency +
		weightCacheEfficiency*cacheEfficiency +
		weightCostEfficiency*costEfficiency

	score := int(math.Round(composite))
	if score < 0 {
		score = 0
	}
	if score > 100 {
		score = 100
	}

	return EfficiencyResult{
		WorkQuality:       workQuality,
		ContextEfficiency: contextEfficiency,
		CacheEfficiency:   cacheEfficiency,
		CostEfficiency:    costEfficiency,
		Score:             score,
	}
}

// scoreContextGrowth applies a U-shaped penalty over the context growth rate:
// shrinkage (the user is not reusing prior work) and runaway accumulation are
// both penalized, only the moderate band [0.5, 2.0] scores perfectly.
func scoreContextGrowth(g float64) float64 {
	switch {
	case math.IsNaN(g) || g < 0:
		return 0
	case g < 0.5:
		return clamp01(g * 2)
	case g <= 2.0:
		return 1.0
	default:
		return clamp01(2.0 / g)
	}
}

// scoreCacheUse is the share of cache reads among cache reads plus output.
// With no tokens on either side there is no evidence, so it scores neutral
// rather than zero.
func scoreCacheUse(cacheReadTokens, outputTokens int64) float64 {
	total := cacheReadTokens + outputTokens
	if total == 0 {
		return 0.5
	}
	return clamp01(float64(cacheReadTokens) / float64(total))
}

// scoreCost blends two independent per-dollar estimates: request throughput
// (60%) and cache-weighted token volume (40%, output counted double since it
// is the expensive token class). Zero or unknown cost scores neutral.
func scoreCost(costUSD float64, requestCount, cacheReadTokens, outputTokens int64) float64 {
	if math.IsNaN(costUSD) || costUSD <= 0 {
		return 0.5
	}

	requestsScore := clamp01((float64(requestCount) / costUSD) / requestsPerDollarTarget)

	cacheWeighted := float64(cacheReadTokens)*1.0 + float64(outputTokens)*2.0
	cacheWeightedScore := clamp01((cacheWeighted / costUSD) / cacheWeightedTarget)

	return clamp01(0.6*requestsScore + 0.4*cacheWeightedScore)
}

func clamp01(v float64) float64 {
	if math.IsNaN(v) || v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

func nonNegative(v int64) int64 {
	if v < 0 {
		return 0
	}
	return v
}
