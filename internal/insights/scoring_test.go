package insights

import (
	"math"
	"testing"

	"github.com/shopspring/decimal"
)

func almostEqual(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func metricsFromValues(retry, growth float64, input, output, cacheRead int64, cost float64, requests int64) Metrics {
	return Metrics{
		UsageRow: UsageRow{
			TrackingID:      "trk_test",
			InputTokens:     input,
			OutputTokens:    output,
			CacheReadTokens: cacheRead,
			CostUSD:         decimal.NewFromFloat(cost),
			RequestCount:    requests,
		},
		RetryDensity:      retry,
		ContextGrowthRate: growth,
	}
}

func TestScoreEfficiency_WorkedScenario(t *testing.T) {
	// retryDensity=0.05, contextGrowthRate=1.5, outputTokens=10000,
	// cacheReadTokens=90000, costUsd=2.00, requestCount=100
	m := metricsFromValues(0.05, 1.5, 100000, 10000, 90000, 2.00, 100)
	result := ScoreEfficiency(m)

	if !almostEqual(result.WorkQuality, 0.95) {
		t.Errorf("WorkQuality = %v, want 0.95", result.WorkQuality)
	}
	if !almostEqual(result.ContextEfficiency, 1.0) {
		t.Errorf("ContextEfficiency = %v, want 1.0", result.ContextEfficiency)
	}
	if !almostEqual(result.CacheEfficiency, 0.9) {
		t.Errorf("CacheEfficiency = %v, want 0.9", result.CacheEfficiency)
	}
	// requestsScore = min(1, (100/2)/50) = 1.0
	// cacheWeightedScore = min(1, ((90000 + 20000)/2)/100000) = 0.55
	// costEfficiency = 0.6 + 0.22 = 0.82
	if !almostEqual(result.CostEfficiency, 0.82) {
		t.Errorf("CostEfficiency = %v, want 0.82", result.CostEfficiency)
	}
	// round(9.5 + 20 + 31.5 + 28.7) = 90
	if result.Score != 90 {
		t.Errorf("Score = %d, want 90", result.Score)
	}
}

func TestScoreContextGrowth_PiecewiseBoundaries(t *testing.T) {
	tests := []struct {
		growth   float64
		expected float64
	}{
		{0.25, 0.5}, // linear ramp below the band
		{0.5, 1.0},  // band lower edge
		{1.0, 1.0},
		{2.0, 1.0}, // band upper edge
		{4.0, 0.5}, // inverse decay above the band
		{0.0, 0.0},
		{8.0, 0.25},
	}

	for _, tt := range tests {
		got := scoreContextGrowth(tt.growth)
		if !almostEqual(got, tt.expected) {
			t.Errorf("scoreContextGrowth(%v) = %v, want %v", tt.growth, got, tt.expected)
		}
	}
}

func TestScoreEfficiency_NeutralDefaults(t *testing.T) {
	// No cache reads and no output tokens: cache sub-score is neutral, not zero
	m := metricsFromValues(0.10, 2.0, 1000, 0, 0, 1.00, 5)
	result := ScoreEfficiency(m)
	if !almostEqual(result.CacheEfficiency, 0.5) {
		t.Errorf("CacheEfficiency with no evidence = %v, want 0.5", result.CacheEfficiency)
	}

	// Zero cost: cost sub-score is neutral
	m = metricsFromValues(0.10, 2.0, 1000, 500, 500, 0, 5)
	result = ScoreEfficiency(m)
	if !almostEqual(result.CostEfficiency, 0.5) {
		t.Errorf("CostEfficiency with zero cost = %v, want 0.5", result.CostEfficiency)
	}
}

func TestScoreEfficiency_Bounds(t *testing.T) {
	cases := []Metrics{
		metricsFromValues(0, 0, 0, 0, 0, 0, 0),
		metricsFromValues(1, 100, 1e12, 1e12, 1e12, 0.0001, 1e9),
		metricsFromValues(5, -3, -100, -100, -100, -50, -10), // adversarial
		metricsFromValues(math.NaN(), math.NaN(), 0, 0, 0, 0, 0),
		metricsFromValues(-1, 0.0001, 1, 1, 1, 1000000, 1),
	}

	for i, m := range cases {
		result := ScoreEfficiency(m)
		for name, v := range map[string]float64{
			"WorkQuality":       result.WorkQuality,
			"ContextEfficiency": result.ContextEfficiency,
			"CacheEfficiency":   result.CacheEfficiency,
			"CostEfficiency":    result.CostEfficiency,
		} {
			if math.IsNaN(v) || v < 0 || v > 1 {
				t.Errorf("case %d: %s = %v, want in [0,1]", i, name, v)
			}
		}
		if result.Score < 0 || result.Score > 100 {
			t.Errorf("case %d: Score = %d, want in [0,100]", i, result.Score)
		}
	}
}

func TestScoreEfficiency_Monotonicity(t *testing.T) {
	// Increasing retry density never increases work quality
	prev := math.Inf(1)
	for _, retry := range []float64{0, 0.05, 0.1, 0.2, 0.5, 0.9, 1.0, 1.5} {
		result := ScoreEfficiency(metricsFromValues(retry, 2.0, 1000, 500, 500, 1, 10))
		if result.WorkQuality > prev {
			t.Errorf("WorkQuality increased to %v at retryDensity %v", result.WorkQuality, retry)
		}
		prev = result.WorkQuality
	}

	// Increasing cache reads (others fixed) never decreases cache efficiency
	prev = math.Inf(-1)
	for _, cacheRead := range []int64{0, 100, 1000, 10000, 100000, 1000000} {
		result := ScoreEfficiency(metricsFromValues(0.1, 2.0, 1000, 500, cacheRead, 1, 10))
		if result.CacheEfficiency < prev {
			t.Errorf("CacheEfficiency decreased to %v at cacheReadTokens %d", result.CacheEfficiency, cacheRead)
		}
		prev = result.CacheEfficiency
	}
}

func TestScoreEfficiency_PerfectScore(t *testing.T) {
	// All sub-scores at 1.0 must map exactly onto 100
	m := metricsFromValues(0, 1.0, 1000000, 0, 1000000, 0.1, 1000)
	result := ScoreEfficiency(m)
	if result.Score != 100 {
		t.Errorf("Score = %d, want 100", result.Score)
	}
}

func TestMetricsFor_Defaults(t *testing.T) {
	usage := UsageRow{TrackingID: "trk_a", RequestCount: 5}

	m := MetricsFor(usage, nil)
	if m.RetryDensity != 0.10 {
		t.Errorf("default RetryDensity = %v, want 0.10", m.RetryDensity)
	}
	if m.ContextGrowthRate != 2.0 {
		t.Errorf("default ContextGrowthRate = %v, want 2.0", m.ContextGrowthRate)
	}

	m = MetricsFor(usage, &BehaviorRow{TrackingID: "trk_a", RetryDensity: 0.3, ContextGrowthRate: 6})
	if m.RetryDensity != 0.3 || m.ContextGrowthRate != 6 {
		t.Errorf("behavioral row not applied: retry=%v growth=%v", m.RetryDensity, m.ContextGrowthRate)
	}
}
