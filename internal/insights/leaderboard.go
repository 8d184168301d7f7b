package insights

import "sort"

// DefaultTopN is the leaderboard size when RankOptions.TopN is unset.
const DefaultTopN = 10

// MinRequestsToQualify is the activity floor for the efficiency ranking.
// Identifiers with fewer requests in the window are excluded regardless of
// score, to avoid small-sample distortion. Token and skill rankings have no
// floor.
const MinRequestsToQualify = 10

// Candidate is one unranked leaderboard input.
type Candidate struct {
	TrackingID string
	Value      float64
}

// RankOptions controls filtering, truncation and display formatting.
type RankOptions struct {
	TopN    int                  // 0 means DefaultTopN
	Format  func(float64) string // nil means FormatCount
	Qualify func(Candidate) bool // nil means no qualification floor
}

// Rank applies the qualification predicate, sorts descending by value,
// truncates to top-N and assigns dense 1-based ranks by final position.
// Equal values are ordered by tracking identifier ascending so repeated
// calls over the same inputs produce the same board.
func Rank(candidates []Candidate, names map[string]string, opts RankOptions) []LeaderboardEntry {
	topN := opts.TopN
	if topN <= 0 {
		topN = DefaultTopN
	}
	format := opts.Format
	if format == nil {
		format = FormatCount
	}

	qualified := make([]Candidate, 0, len(candidates))
	for _, c := range candidates {
		if opts.Qualify != nil && !opts.Qualify(c) {
			continue
		}
		qualified = append(qualified, c)
	}

	sort.Slice(qualified, func(i, j int) bool {
		if qualified[i].Value != qualified[j].Value {
			return qualified[i].Value > qualified[j].Value
		}
		return qualified[i].TrackingID < qualified[j].TrackingID
	})

	if len(qualified) > topN {
		qualified = qualified[:topN]
	}

	entries := make([]LeaderboardEntry, 0, len(qualified))
	for i, c := range qualified {
		name := names[c.TrackingID]
		if name == "" {
			name = c.TrackingID
		}
		entries = append(entries, LeaderboardEntry{
			Rank:           i + 1,
			DisplayName:    name,
			Value:          c.Value,
			FormattedValue: format(c.Value),
		})
	}
	return entries
}
