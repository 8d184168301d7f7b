package insights

import (
	"github.com/helicityai/steward/internal/models"
)

// UnknownDisplayName is the placeholder used when nothing at all is known
// about a tracking identifier.
const UnknownDisplayName = "Unknown"

// ResolveDisplayNames produces a total map trackingID -> displayName for every
// identifier in trackingIDs. Resolution works through two keyed inputs:
// correlation observations (tracking id -> email / linked directory id,
// deduplicated to the most recent observation) and the directory snapshot
// (linked id / email -> human name). usageEmails carries the email attached
// directly to an identifier's usage rows, when the telemetry source had one.
//
// The display-name priority chain, first match wins:
//
//	directory name (via linked id, then via email) > any email > raw tracking id > "Unknown"
//
// Resolution failures are non-fatal: a miss at any step degrades to the next
// step, never to an absent entry. Given identical inputs in any order the
// output map is identical.
func ResolveDisplayNames(
	trackingIDs []string,
	usageEmails map[string]string,
	observations []CorrelationRow,
	directory []models.DirectoryEntry,
) map[string]string {
	latest := dedupeObservations(observations)

	nameByLinkedID := make(map[string]string, len(directory))
	nameByEmail := make(map[string]string, len(directory))
	for _, e := range directory {
		if e.Name == "" {
			continue
		}
		if e.LinkedID != "" {
			nameByLinkedID[e.LinkedID] = e.Name
		}
		if e.Email != "" {
			nameByEmail[e.Email] = e.Name
		}
	}

	names := make(map[string]string, len(trackingIDs))
	for _, id := range trackingIDs {
		obs := latest[id]

		// Candidate emails in priority order: correlation row first, then the
		// email carried on the usage rows themselves.
		emails := make([]string, 0, 2)
		if obs.Email != "" {
			emails = append(emails, obs.Email)
		}
		if e := usageEmails[id]; e != "" {
			emails = append(emails, e)
		}

		names[id] = displayName(obs.LinkedID, emails, id, nameByLinkedID, nameByEmail)
	}
	return names
}

// dedupeObservations collapses repeated observations of the same tracking id
// to a single row. The most recent ObservedAt wins; exact timestamp ties are
// broken by comparing the row contents so the result does not depend on input
// order.
func dedupeObservations(observations []CorrelationRow) map[string]CorrelationRow {
	latest := make(map[string]CorrelationRow, len(observations))
	for _, row := range observations {
		cur, ok := latest[row.TrackingID]
		if !ok || observationAfter(row, cur) {
			latest[row.TrackingID] = row
		}
	}
	return latest
}

// observationAfter reports whether a should replace b as the kept observation.
func observationAfter(a, b CorrelationRow) bool {
	if !a.ObservedAt.Equal(b.ObservedAt) {
		return a.ObservedAt.After(b.ObservedAt)
	}
	if a.LinkedID != b.LinkedID {
		return a.LinkedID > b.LinkedID
	}
	return a.Email > b.Email
}

// displayName walks the priority chain for one identifier.
func displayName(linkedID string, emails []string, trackingID string, nameByLinkedID, nameByEmail map[string]string) string {
	if linkedID != "" {
		if name, ok := nameByLinkedID[linkedID]; ok {
			return name
		}
	}
	for _, email := range emails {
		if name, ok := nameByEmail[email]; ok {
			return name
		}
	}
	if len(emails) > 0 {
		return emails[0]
	}
	if trackingID != "" {
		return trackingID
	}
	return UnknownDisplayName
}
