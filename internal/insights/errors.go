package insights

import "errors"

// ErrNotConfigured indicates the telemetry store has not been set up yet.
// Callers render an empty/placeholder state for it, as opposed to query
// failures which are retryable service errors.
var ErrNotConfigured = errors.New("telemetry store not configured")
