package insights

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

var tracer = otel.Tracer("steward/insights")

// Store reads windowed aggregates from the telemetry database. It delivers
// the row shapes the engine consumes; how the rows were produced (ingest,
// rollup jobs, trace analysis) is the telemetry pipeline's concern.
type Store struct {
	db *sql.DB
}

// NewStore creates a telemetry store over an open connection.
func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

// UsageAggregates returns one summed usage row per tracking identifier seen
// in the window. The email attached to a row is the most recently observed
// non-null email on that identifier's raw events, or empty.
func (s *Store) UsageAggregates(ctx context.Context, w Window) ([]UsageRow, error) {
	ctx, span := tracer.Start(ctx, "insights.usage_aggregates",
		trace.WithAttributes(attribute.Int("window.days", w.Days())))
	defer span.End()

	query := `
		SELECT
			tracking_id,
			COALESCE((array_agg(email ORDER BY occurred_at DESC) FILTER (WHERE email IS NOT NULL))[1], ''),
			COALESCE(SUM(input_tokens), 0),
			COALESCE(SUM(output_tokens), 0),
			COALESCE(SUM(cache_read_tokens), 0),
			COALESCE(SUM(cost_usd), 0)::numeric,
			COALESCE(SUM(request_count), 0)
		FROM usage_events
		WHERE occurred_at >= NOW() - make_interval(days => $1)
		GROUP BY tracking_id
		ORDER BY tracking_id`

	rows, err := s.db.QueryContext(ctx, query, w.Days())
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("failed to query usage aggregates: %w", err)
	}
	defer rows.Close()

	var result []UsageRow
	for rows.Next() {
		var (
			row  UsageRow
			cost decimal.Decimal
		)
		if err := rows.Scan(
			&row.TrackingID,
			&row.Email,
			&row.InputTokens,
			&row.OutputTokens,
			&row.CacheReadTokens,
			&cost,
			&row.RequestCount,
		); err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			return nil, fmt.Errorf("failed to scan usage row: %w", err)
		}
		row.CostUSD = cost
		result = append(result, row)
	}

	if err := rows.Err(); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("error iterating usage rows: %w", err)
	}

	span.SetAttributes(attribute.Int("usage.rows", len(result)))
	return result, nil
}

// BehavioralMetrics returns the latest behavioral row per tracking identifier
// computed within the window. Rows are sparse; identifiers without one get
// the scorer's neutral defaults.
func (s *Store) BehavioralMetrics(ctx context.Context, w Window) ([]BehaviorRow, error) {
	ctx, span := tracer.Start(ctx, "insights.behavioral_metrics",
		trace.WithAttributes(attribute.Int("window.days", w.Days())))
	defer span.End()

	query := `
		SELECT DISTINCT ON (tracking_id)
			tracking_id, retry_density, context_growth_rate
		FROM session_behavior
		WHERE computed_at >= NOW() - make_interval(days => $1)
		ORDER BY tracking_id, computed_at DESC`

	rows, err := s.db.QueryContext(ctx, query, w.Days())
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("failed to query behavioral metrics: %w", err)
	}
	defer rows.Close()

	var result []BehaviorRow
	for rows.Next() {
		var row BehaviorRow
		if err := rows.Scan(&row.TrackingID, &row.RetryDensity, &row.ContextGrowthRate); err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			return nil, fmt.Errorf("failed to scan behavioral row: %w", err)
		}
		result = append(result, row)
	}

	if err := rows.Err(); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("error iterating behavioral rows: %w", err)
	}

	span.SetAttributes(attribute.Int("behavior.rows", len(result)))
	return result, nil
}

// IdentityObservations returns every correlation observation on record.
// Observations are intentionally not windowed: an identity link learned
// months ago still holds, and the resolver keeps only the most recent
// observation per identifier anyway.
func (s *Store) IdentityObservations(ctx context.Context) ([]CorrelationRow, error) {
	ctx, span := tracer.Start(ctx, "insights.identity_observations")
	defer span.End()

	query := `
		SELECT tracking_id, COALESCE(email, ''), COALESCE(linked_id, ''), observed_at
		FROM identity_observations
		ORDER BY tracking_id, observed_at`

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("failed to query identity observations: %w", err)
	}
	defer rows.Close()

	var result []CorrelationRow
	for rows.Next() {
		var row CorrelationRow
		if err := rows.Scan(&row.TrackingID, &row.Email, &row.LinkedID, &row.ObservedAt); err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			return nil, fmt.Errorf("failed to scan identity observation: %w", err)
		}
		result = append(result, row)
	}

	if err := rows.Err(); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("error iterating identity observations: %w", err)
	}

	span.SetAttributes(attribute.Int("observations.rows", len(result)))
	return result, nil
}

// SkillInvocations returns the number of skill invocations per tracking
// identifier within the window.
func (s *Store) SkillInvocations(ctx context.Context, w Window) (map[string]int64, error) {
	ctx, span := tracer.Start(ctx, "insights.skill_invocations",
		trace.WithAttributes(attribute.Int("window.days", w.Days())))
	defer span.End()

	query := `
		SELECT tracking_id, COUNT(*)
		FROM skill_invocations
		WHERE invoked_at >= NOW() - make_interval(days => $1)
		GROUP BY tracking_id`

	rows, err := s.db.QueryContext(ctx, query, w.Days())
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("failed to query skill invocations: %w", err)
	}
	defer rows.Close()

	result := make(map[string]int64)
	for rows.Next() {
		var (
			trackingID string
			count      int64
		)
		if err := rows.Scan(&trackingID, &count); err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			return nil, fmt.Errorf("failed to scan skill invocation count: %w", err)
		}
		result[trackingID] = count
	}

	if err := rows.Err(); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("error iterating skill invocations: %w", err)
	}

	span.SetAttributes(attribute.Int("skills.users", len(result)))
	return result, nil
}
