package insights

import (
	"fmt"
	"math"

	"github.com/shopspring/decimal"
)

// FormatTokenCount renders a token count with a compact magnitude suffix:
// 1_234_000_000 -> "1.2B", 5_600_000 -> "5.6M", 12_300 -> "12.3K".
// Counts below one thousand render as a plain integer.
func FormatTokenCount(v float64) string {
	if math.IsNaN(v) || v < 0 {
		v = 0
	}
	switch {
	case v >= 1e9:
		return fmt.Sprintf("%.1fB", v/1e9)
	case v >= 1e6:
		return fmt.Sprintf("%.1fM", v/1e6)
	case v >= 1e3:
		return fmt.Sprintf("%.1fK", v/1e3)
	default:
		return fmt.Sprintf("%.0f", v)
	}
}

// FormatUSD renders a dollar amount with two decimal places.
func FormatUSD(d decimal.Decimal) string {
	return "$" + d.StringFixed(2)
}

// FormatPercent renders a ratio as a rounded percentage. It accepts either a
// 0-1 ratio or an already-scaled 0-100 value: anything above 1 is treated as
// pre-scaled.
func FormatPercent(v float64) string {
	if math.IsNaN(v) || v < 0 {
		v = 0
	}
	if v <= 1 {
		v *= 100
	}
	return fmt.Sprintf("%.0f%%", v)
}

// FormatScore renders a composite efficiency score for leaderboard display.
func FormatScore(v float64) string {
	return fmt.Sprintf("%.0f pts", v)
}

// FormatCount renders a plain invocation count.
func FormatCount(v float64) string {
	return fmt.Sprintf("%.0f", v)
}
