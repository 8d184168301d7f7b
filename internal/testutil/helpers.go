package testutil

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/helicityai/steward/internal/models"
)

// NewTrackingID returns a fresh opaque tracking identifier for fixtures.
func NewTrackingID() string {
	return "trk_" + uuid.NewString()
}

// CreateTestUser inserts an active directory user and returns it.
// Empty name/externalID are stored as NULL, matching users provisioned
// before an SSO link or profile sync.
func CreateTestUser(t *testing.T, env *TestEnvironment, email, name, externalID string) *models.User {
	t.Helper()

	var nameVal, extID any
	if name != "" {
		nameVal = name
	}
	if externalID != "" {
		extID = externalID
	}

	var user models.User
	err := env.DB.Conn().QueryRowContext(env.Ctx, `
		INSERT INTO users (email, name, external_id, status)
		VALUES ($1, $2, $3, 'active')
		RETURNING id, email, name, external_id, team, role, status, created_at, updated_at`,
		email, nameVal, extID,
	).Scan(
		&user.ID,
		&user.Email,
		&user.Name,
		&user.ExternalID,
		&user.Team,
		&user.Role,
		&user.Status,
		&user.CreatedAt,
		&user.UpdatedAt,
	)
	if err != nil {
		t.Fatalf("Failed to create test user %s: %v", email, err)
	}
	return &user
}

// UsageEventFixture describes one usage_events row for InsertUsageEvent.
type UsageEventFixture struct {
	TrackingID      string
	Email           string
	InputTokens     int64
	OutputTokens    int64
	CacheReadTokens int64
	CostUSD         decimal.Decimal
	RequestCount    int64
	OccurredAt      time.Time
}

// InsertUsageEvent inserts one raw usage row into the telemetry schema.
// A zero OccurredAt defaults to now.
func InsertUsageEvent(t *testing.T, env *TestEnvironment, f UsageEventFixture) {
	t.Helper()

	occurredAt := f.OccurredAt
	if occurredAt.IsZero() {
		occurredAt = time.Now().UTC()
	}

	var email any
	if f.Email != "" {
		email = f.Email
	}

	_, err := env.DB.Conn().ExecContext(env.Ctx, `
		INSERT INTO usage_events (tracking_id, email, input_tokens, output_tokens, cache_read_tokens, cost_usd, request_count, occurred_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		f.TrackingID, email, f.InputTokens, f.OutputTokens, f.CacheReadTokens, f.CostUSD, f.RequestCount, occurredAt,
	)
	if err != nil {
		t.Fatalf("Failed to insert usage event for %s: %v", f.TrackingID, err)
	}
}

// InsertBehavior inserts one derived behavioral row.
func InsertBehavior(t *testing.T, env *TestEnvironment, trackingID string, retryDensity, contextGrowthRate float64, computedAt time.Time) {
	t.Helper()

	if computedAt.IsZero() {
		computedAt = time.Now().UTC()
	}
	_, err := env.DB.Conn().ExecContext(env.Ctx, `
		INSERT INTO session_behavior (tracking_id, retry_density, context_growth_rate, computed_at)
		VALUES ($1, $2, $3, $4)`,
		trackingID, retryDensity, contextGrowthRate, computedAt,
	)
	if err != nil {
		t.Fatalf("Failed to insert behavior row for %s: %v", trackingID, err)
	}
}

// InsertIdentityObservation inserts one correlation row. Empty email/linkedID
// are stored as NULL.
func InsertIdentityObservation(t *testing.T, env *TestEnvironment, trackingID, email, linkedID string, observedAt time.Time) {
	t.Helper()

	if observedAt.IsZero() {
		observedAt = time.Now().UTC()
	}

	var emailVal, linkedVal any
	if email != "" {
		emailVal = email
	}
	if linkedID != "" {
		linkedVal = linkedID
	}

	_, err := env.DB.Conn().ExecContext(env.Ctx, `
		INSERT INTO identity_observations (tracking_id, email, linked_id, observed_at)
		VALUES ($1, $2, $3, $4)`,
		trackingID, emailVal, linkedVal, observedAt,
	)
	if err != nil {
		t.Fatalf("Failed to insert identity observation for %s: %v", trackingID, err)
	}
}

// InsertSkillInvocation inserts one skill invocation row.
func InsertSkillInvocation(t *testing.T, env *TestEnvironment, trackingID, skillName string, invokedAt time.Time) {
	t.Helper()

	if invokedAt.IsZero() {
		invokedAt = time.Now().UTC()
	}
	_, err := env.DB.Conn().ExecContext(env.Ctx, `
		INSERT INTO skill_invocations (tracking_id, skill_name, invoked_at)
		VALUES ($1, $2, $3)`,
		trackingID, skillName, invokedAt,
	)
	if err != nil {
		t.Fatalf("Failed to insert skill invocation for %s: %v", trackingID, err)
	}
}
