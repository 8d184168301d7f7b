package insights

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/helicityai/steward/internal/logger"
	"github.com/helicityai/steward/internal/models"
)

// UsageSource delivers the windowed telemetry rows the engine consumes.
// *Store implements it; tests substitute fakes.
type UsageSource interface {
	UsageAggregates(ctx context.Context, w Window) ([]UsageRow, error)
	BehavioralMetrics(ctx context.Context, w Window) ([]BehaviorRow, error)
	IdentityObservations(ctx context.Context) ([]CorrelationRow, error)
	SkillInvocations(ctx context.Context, w Window) (map[string]int64, error)
}

// DirectorySource supplies the human directory snapshot used for identity
// resolution. *db.DB implements it.
type DirectorySource interface {
	DirectoryEntries(ctx context.Context) ([]models.DirectoryEntry, error)
}

// Service assembles the two insight read-models. It holds no mutable state;
// every invocation is a fresh transformation of freshly fetched rows, so it
// is safe to call concurrently.
type Service struct {
	usage     UsageSource
	directory DirectorySource
}

// NewService creates an insights service. usage may be nil when the
// telemetry store is not configured; every report call then returns
// ErrNotConfigured.
func NewService(usage UsageSource, directory DirectorySource) *Service {
	return &Service{usage: usage, directory: directory}
}

// inputs holds the joined results of the fan-out fetches.
type inputs struct {
	usage        []UsageRow
	behavior     []BehaviorRow
	observations []CorrelationRow
	skills       map[string]int64
	directory    []models.DirectoryEntry
}

// fetchInputs issues the independent aggregate fetches concurrently and joins
// the results. The four telemetry/directory queries never depend on one
// another, so they all start at once. A directory failure is non-fatal:
// identity resolution degrades to emails and raw identifiers instead.
func (s *Service) fetchInputs(ctx context.Context, w Window, withSkills bool) (*inputs, error) {
	in := &inputs{}
	var mu sync.Mutex
	var wg sync.WaitGroup
	errs := make(chan error, 4)

	runFetch := func(name string, fn func() error) {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := fn(); err != nil {
				errs <- fmt.Errorf("%s: %w", name, err)
			}
		}()
	}

	runFetch("usage_aggregates", func() error {
		rows, err := s.usage.UsageAggregates(ctx, w)
		if err != nil {
			return err
		}
		mu.Lock()
		in.usage = rows
		mu.Unlock()
		return nil
	})

	runFetch("behavioral_metrics", func() error {
		rows, err := s.usage.BehavioralMetrics(ctx, w)
		if err != nil {
			return err
		}
		mu.Lock()
		in.behavior = rows
		mu.Unlock()
		return nil
	})

	runFetch("identity_observations", func() error {
		rows, err := s.usage.IdentityObservations(ctx)
		if err != nil {
			return err
		}
		mu.Lock()
		in.observations = rows
		mu.Unlock()
		return nil
	})

	if withSkills {
		runFetch("skill_invocations", func() error {
			counts, err := s.usage.SkillInvocations(ctx, w)
			if err != nil {
				return err
			}
			mu.Lock()
			in.skills = counts
			mu.Unlock()
			return nil
		})
	}

	// Directory lookup failures must never fail the whole request.
	wg.Add(1)
	go func() {
		defer wg.Done()
		entries, err := s.directory.DirectoryEntries(ctx)
		if err != nil {
			logger.Ctx(ctx).Warn("directory lookup failed, identity resolution degraded", "error", err)
			return
		}
		mu.Lock()
		in.directory = entries
		mu.Unlock()
	}()

	wg.Wait()
	close(errs)

	if err := <-errs; err != nil {
		return nil, err
	}
	return in, nil
}

// UsageReport builds the analytics view: org-wide summary totals plus one
// scored, tip-annotated row per tracking identifier in the window.
func (s *Service) UsageReport(ctx context.Context, w Window) (*UsageReport, error) {
	if s.usage == nil {
		return nil, ErrNotConfigured
	}

	ctx, span := tracer.Start(ctx, "insights.usage_report",
		trace.WithAttributes(attribute.Int("window.days", w.Days())))
	defer span.End()

	in, err := s.fetchInputs(ctx, w, false)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	names := ResolveDisplayNames(trackingIDs(in.usage), usageEmails(in.usage), in.observations, in.directory)
	behaviorByID := behaviorIndex(in.behavior)

	var (
		totalInput, totalCacheRead, totalTokens, totalRequests int64
		totalCost                                              decimal.Decimal
	)
	users := make([]UserUsage, 0, len(in.usage))
	for _, row := range in.usage {
		m := MetricsFor(row, behaviorByID[row.TrackingID])
		tips := GenerateTips(m)
		if tips == nil {
			tips = []string{}
		}

		users = append(users, UserUsage{
			TrackingID:      row.TrackingID,
			DisplayName:     names[row.TrackingID],
			InputTokens:     row.InputTokens,
			OutputTokens:    row.OutputTokens,
			CacheReadTokens: row.CacheReadTokens,
			TotalCostUSD:    FormatUSD(row.CostUSD),
			RequestCount:    row.RequestCount,
			Efficiency:      ScoreEfficiency(m),
			Tips:            tips,
		})

		totalInput += row.InputTokens
		totalCacheRead += row.CacheReadTokens
		totalTokens += row.TotalTokens()
		totalRequests += row.RequestCount
		totalCost = totalCost.Add(row.CostUSD)
	}

	sort.Slice(users, func(i, j int) bool {
		if users[i].DisplayName != users[j].DisplayName {
			return users[i].DisplayName < users[j].DisplayName
		}
		return users[i].TrackingID < users[j].TrackingID
	})

	cacheHitRate := 0.0
	if totalInput > 0 {
		cacheHitRate = float64(totalCacheRead) / float64(totalInput)
	}

	return &UsageReport{
		ComputedAt: time.Now().UTC(),
		WindowDays: w.Days(),
		Summary: UsageSummary{
			TotalTokens:  totalTokens,
			TotalCostUSD: FormatUSD(totalCost),
			CacheHitRate: FormatPercent(cacheHitRate),
			RequestCount: totalRequests,
			ActiveUsers:  len(users),
		},
		Users: users,
	}, nil
}

// Leaderboard builds the cross-team leaderboard view: top-N by token volume,
// by efficiency score (with the activity floor), and by skill invocations,
// plus the skill adoption summary.
func (s *Service) Leaderboard(ctx context.Context, w Window) (*LeaderboardReport, error) {
	if s.usage == nil {
		return nil, ErrNotConfigured
	}

	ctx, span := tracer.Start(ctx, "insights.leaderboard",
		trace.WithAttributes(attribute.Int("window.days", w.Days())))
	defer span.End()

	in, err := s.fetchInputs(ctx, w, true)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	// Resolve names over the union of identifiers seen in usage and skill
	// invocations so no board row falls back to a raw id unnecessarily.
	ids := trackingIDs(in.usage)
	seen := make(map[string]bool, len(ids))
	for _, id := range ids {
		seen[id] = true
	}
	for id := range in.skills {
		if !seen[id] {
			ids = append(ids, id)
		}
	}
	names := ResolveDisplayNames(ids, usageEmails(in.usage), in.observations, in.directory)
	behaviorByID := behaviorIndex(in.behavior)

	tokenCands := make([]Candidate, 0, len(in.usage))
	effCands := make([]Candidate, 0, len(in.usage))
	requestCounts := make(map[string]int64, len(in.usage))
	for _, row := range in.usage {
		tokenCands = append(tokenCands, Candidate{TrackingID: row.TrackingID, Value: float64(row.TotalTokens())})
		result := ScoreEfficiency(MetricsFor(row, behaviorByID[row.TrackingID]))
		effCands = append(effCands, Candidate{TrackingID: row.TrackingID, Value: float64(result.Score)})
		requestCounts[row.TrackingID] = row.RequestCount
	}

	skillCands := make([]Candidate, 0, len(in.skills))
	for id, count := range in.skills {
		skillCands = append(skillCands, Candidate{TrackingID: id, Value: float64(count)})
	}

	adoptionRate := 0.0
	if len(in.usage) > 0 {
		adoptionRate = float64(len(in.skills)) / float64(len(in.usage))
	}

	return &LeaderboardReport{
		ComputedAt: time.Now().UTC(),
		WindowDays: w.Days(),
		TopTokens: Rank(tokenCands, names, RankOptions{
			Format: FormatTokenCount,
		}),
		TopEfficiency: Rank(effCands, names, RankOptions{
			Format: FormatScore,
			Qualify: func(c Candidate) bool {
				return requestCounts[c.TrackingID] >= MinRequestsToQualify
			},
		}),
		TopSkills: Rank(skillCands, names, RankOptions{
			Format: FormatCount,
		}),
		SkillAdoption: SkillAdoption{
			SkillUsers: len(in.skills),
			TotalUsers: len(in.usage),
			Rate:       FormatPercent(adoptionRate),
		},
	}, nil
}

func trackingIDs(usage []UsageRow) []string {
	ids := make([]string, 0, len(usage))
	for _, row := range usage {
		ids = append(ids, row.TrackingID)
	}
	return ids
}

func usageEmails(usage []UsageRow) map[string]string {
	emails := make(map[string]string, len(usage))
	for _, row := range usage {
		if row.Email != "" {
			emails[row.TrackingID] = row.Email
		}
	}
	return emails
}

func behaviorIndex(rows []BehaviorRow) map[string]*BehaviorRow {
	idx := make(map[string]*BehaviorRow, len(rows))
	for i := range rows {
		idx[rows[i].TrackingID] = &rows[i]
	}
	return idx
}
