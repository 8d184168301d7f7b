package insights

import (
	"strings"
	"testing"

	"github.com/shopspring/decimal"
)

func tipsMetrics(retry, growth float64, input, cacheRead int64) Metrics {
	return Metrics{
		UsageRow: UsageRow{
			TrackingID:      "trk_tips",
			InputTokens:     input,
			CacheReadTokens: cacheRead,
			CostUSD:         decimal.NewFromInt(1),
			RequestCount:    10,
		},
		RetryDensity:      retry,
		ContextGrowthRate: growth,
	}
}

func TestGenerateTips_AllHealthy(t *testing.T) {
	// cache hit 90%, growth in band, retries at the good bound
	tips := GenerateTips(tipsMetrics(0.10, 1.5, 100000, 90000))
	if len(tips) != 0 {
		t.Errorf("tips = %v, want none for healthy metrics", tips)
	}
}

func TestGenerateTips_TwoTierThresholds(t *testing.T) {
	tests := []struct {
		name       string
		m          Metrics
		wantCount  int
		wantSubstr string
	}{
		{
			name:       "cache below warning gets strong tip",
			m:          tipsMetrics(0.05, 1.5, 100000, 50000), // 50% hit rate
			wantCount:  1,
			wantSubstr: "below 60%",
		},
		{
			name:       "cache between warning and good gets soft tip",
			m:          tipsMetrics(0.05, 1.5, 100000, 70000), // 70% hit rate
			wantCount:  1,
			wantSubstr: "below 85%",
		},
		{
			name:       "growth above warning gets strong tip",
			m:          tipsMetrics(0.05, 6.0, 100000, 90000),
			wantCount:  1,
			wantSubstr: "more than 5x",
		},
		{
			name:       "growth between good and warning gets soft tip",
			m:          tipsMetrics(0.05, 3.0, 100000, 90000),
			wantCount:  1,
			wantSubstr: "faster than expected",
		},
		{
			name:       "retries above warning get strong tip",
			m:          tipsMetrics(0.25, 1.5, 100000, 90000),
			wantCount:  1,
			wantSubstr: "More than 20%",
		},
		{
			name:       "retries between good and warning get soft tip",
			m:          tipsMetrics(0.15, 1.5, 100000, 90000),
			wantCount:  1,
			wantSubstr: "above 10%",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tips := GenerateTips(tt.m)
			if len(tips) != tt.wantCount {
				t.Fatalf("got %d tips %v, want %d", len(tips), tips, tt.wantCount)
			}
			if !strings.Contains(tips[0], tt.wantSubstr) {
				t.Errorf("tip = %q, want substring %q", tips[0], tt.wantSubstr)
			}
		})
	}
}

func TestGenerateTips_FixedCategoryOrder(t *testing.T) {
	// Everything unhealthy: expect exactly one tip per category, cache first,
	// then context growth, then retries.
	tips := GenerateTips(tipsMetrics(0.30, 8.0, 100000, 10000))
	if len(tips) != 3 {
		t.Fatalf("got %d tips %v, want 3", len(tips), tips)
	}
	if !strings.Contains(tips[0], "Cache hit rate") {
		t.Errorf("tips[0] = %q, want cache tip first", tips[0])
	}
	if !strings.Contains(tips[1], "Context") {
		t.Errorf("tips[1] = %q, want context tip second", tips[1])
	}
	if !strings.Contains(tips[2], "retries") {
		t.Errorf("tips[2] = %q, want retry tip third", tips[2])
	}
}

func TestGenerateTips_NoInputTokensSkipsCacheCategory(t *testing.T) {
	tips := GenerateTips(tipsMetrics(0.05, 1.5, 0, 0))
	for _, tip := range tips {
		if strings.Contains(tip, "Cache") {
			t.Errorf("got cache tip %q with zero input tokens", tip)
		}
	}
}
