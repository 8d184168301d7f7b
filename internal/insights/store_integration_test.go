package insights_test

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/helicityai/steward/internal/insights"
	"github.com/helicityai/steward/internal/testutil"
)

func TestStoreQueries(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	env := testutil.SetupTestEnvironment(t)
	store := insights.NewStore(env.DB.Conn())

	t.Run("UsageAggregates sums rows and keeps the latest email", func(t *testing.T) {
		env.CleanDB(t)

		id := testutil.NewTrackingID()
		now := time.Now().UTC()

		testutil.InsertUsageEvent(t, env, testutil.UsageEventFixture{
			TrackingID:      id,
			Email:           "old@corp.test",
			InputTokens:     1000,
			OutputTokens:    100,
			CacheReadTokens: 500,
			CostUSD:         decimal.NewFromFloat(0.25),
			RequestCount:    3,
			OccurredAt:      now.Add(-48 * time.Hour),
		})
		testutil.InsertUsageEvent(t, env, testutil.UsageEventFixture{
			TrackingID:      id,
			Email:           "new@corp.test",
			InputTokens:     2000,
			OutputTokens:    200,
			CacheReadTokens: 1500,
			CostUSD:         decimal.NewFromFloat(0.75),
			RequestCount:    7,
			OccurredAt:      now.Add(-1 * time.Hour),
		})
		// A row with no email must not clobber the latest known one
		testutil.InsertUsageEvent(t, env, testutil.UsageEventFixture{
			TrackingID:   id,
			InputTokens:  500,
			RequestCount: 1,
			CostUSD:      decimal.NewFromFloat(0.10),
			OccurredAt:   now.Add(-30 * time.Minute),
		})

		rows, err := store.UsageAggregates(env.Ctx, insights.Window7d)
		if err != nil {
			t.Fatalf("UsageAggregates failed: %v", err)
		}
		if len(rows) != 1 {
			t.Fatalf("got %d rows, want 1", len(rows))
		}

		row := rows[0]
		if row.TrackingID != id {
			t.Errorf("TrackingID = %q, want %q", row.TrackingID, id)
		}
		if row.Email != "new@corp.test" {
			t.Errorf("Email = %q, want new@corp.test (most recent non-null)", row.Email)
		}
		if row.InputTokens != 3500 {
			t.Errorf("InputTokens = %d, want 3500", row.InputTokens)
		}
		if row.OutputTokens != 300 {
			t.Errorf("OutputTokens = %d, want 300", row.OutputTokens)
		}
		if row.CacheReadTokens != 2000 {
			t.Errorf("CacheReadTokens = %d, want 2000", row.CacheReadTokens)
		}
		if row.RequestCount != 11 {
			t.Errorf("RequestCount = %d, want 11", row.RequestCount)
		}
		want := decimal.NewFromFloat(1.10)
		if !row.CostUSD.Equal(want) {
			t.Errorf("CostUSD = %s, want %s", row.CostUSD, want)
		}
	})

	t.Run("UsageAggregates respects the window boundary", func(t *testing.T) {
		env.CleanDB(t)

		inWindow := testutil.NewTrackingID()
		outOfWindow := testutil.NewTrackingID()
		now := time.Now().UTC()

		testutil.InsertUsageEvent(t, env, testutil.UsageEventFixture{
			TrackingID: inWindow, InputTokens: 100, RequestCount: 1,
			CostUSD: decimal.NewFromFloat(0.01), OccurredAt: now.Add(-6 * 24 * time.Hour),
		})
		testutil.InsertUsageEvent(t, env, testutil.UsageEventFixture{
			TrackingID: outOfWindow, InputTokens: 100, RequestCount: 1,
			CostUSD: decimal.NewFromFloat(0.01), OccurredAt: now.Add(-8 * 24 * time.Hour),
		})

		rows, err := store.UsageAggregates(env.Ctx, insights.Window7d)
		if err != nil {
			t.Fatalf("UsageAggregates failed: %v", err)
		}
		if len(rows) != 1 {
			t.Fatalf("got %d rows, want 1 (8-day-old event excluded)", len(rows))
		}
		if rows[0].TrackingID != inWindow {
			t.Errorf("TrackingID = %q, want %q", rows[0].TrackingID, inWindow)
		}

		// The wider window picks both up
		rows, err = store.UsageAggregates(env.Ctx, insights.Window30d)
		if err != nil {
			t.Fatalf("UsageAggregates failed: %v", err)
		}
		if len(rows) != 2 {
			t.Errorf("got %d rows in 30d window, want 2", len(rows))
		}
	})

	t.Run("BehavioralMetrics keeps only the latest row per identifier", func(t *testing.T) {
		env.CleanDB(t)

		id := testutil.NewTrackingID()
		now := time.Now().UTC()

		testutil.InsertBehavior(t, env, id, 0.30, 4.0, now.Add(-24*time.Hour))
		testutil.InsertBehavior(t, env, id, 0.05, 1.5, now.Add(-1*time.Hour))

		rows, err := store.BehavioralMetrics(env.Ctx, insights.Window7d)
		if err != nil {
			t.Fatalf("BehavioralMetrics failed: %v", err)
		}
		if len(rows) != 1 {
			t.Fatalf("got %d rows, want 1", len(rows))
		}
		if rows[0].RetryDensity != 0.05 || rows[0].ContextGrowthRate != 1.5 {
			t.Errorf("got retry=%v growth=%v, want the latest row (0.05, 1.5)",
				rows[0].RetryDensity, rows[0].ContextGrowthRate)
		}
	})

	t.Run("IdentityObservations ignores the window", func(t *testing.T) {
		env.CleanDB(t)

		id := testutil.NewTrackingID()
		ancient := time.Now().UTC().Add(-365 * 24 * time.Hour)
		testutil.InsertIdentityObservation(t, env, id, "keep@corp.test", "sso-keep", ancient)

		rows, err := store.IdentityObservations(env.Ctx)
		if err != nil {
			t.Fatalf("IdentityObservations failed: %v", err)
		}
		if len(rows) != 1 {
			t.Fatalf("got %d rows, want 1 (year-old links still count)", len(rows))
		}
		if rows[0].Email != "keep@corp.test" || rows[0].LinkedID != "sso-keep" {
			t.Errorf("got %+v, want keep@corp.test / sso-keep", rows[0])
		}
	})

	t.Run("SkillInvocations counts per identifier within the window", func(t *testing.T) {
		env.CleanDB(t)

		heavy := testutil.NewTrackingID()
		light := testutil.NewTrackingID()
		now := time.Now().UTC()

		for i := 0; i < 3; i++ {
			testutil.InsertSkillInvocation(t, env, heavy, "code-review", now.Add(-time.Duration(i)*time.Hour))
		}
		testutil.InsertSkillInvocation(t, env, light, "summarize", now.Add(-1*time.Hour))
		testutil.InsertSkillInvocation(t, env, light, "summarize", now.Add(-10*24*time.Hour))

		counts, err := store.SkillInvocations(env.Ctx, insights.Window7d)
		if err != nil {
			t.Fatalf("SkillInvocations failed: %v", err)
		}
		if counts[heavy] != 3 {
			t.Errorf("counts[heavy] = %d, want 3", counts[heavy])
		}
		if counts[light] != 1 {
			t.Errorf("counts[light] = %d, want 1 (10-day-old invocation excluded)", counts[light])
		}
	})

	t.Run("Empty tables produce empty results", func(t *testing.T) {
		env.CleanDB(t)

		rows, err := store.UsageAggregates(env.Ctx, insights.Window30d)
		if err != nil {
			t.Fatalf("UsageAggregates failed: %v", err)
		}
		if len(rows) != 0 {
			t.Errorf("got %d usage rows, want 0", len(rows))
		}

		counts, err := store.SkillInvocations(env.Ctx, insights.Window30d)
		if err != nil {
			t.Fatalf("SkillInvocations failed: %v", err)
		}
		if len(counts) != 0 {
			t.Errorf("got %d skill counts, want 0", len(counts))
		}
	})
}
