// Package correlate links frontend error events to backend log entries. Each
// event is resolved through two tiers: an exact search on its harvested
// request identifiers, then a time-window search for failure-shaped backend
// entries when identifiers are missing or find nothing. Every event yields at
// least one record, even if only a placeholder marking that nothing matched.
package correlate

import (
	"github.com/sekai-app/bug-analysis-agent/internal/backend"
	"github.com/sekai-app/bug-analysis-agent/internal/common"
)

// Method records how a backend entry was linked to an event.
type Method string

const (
	// MethodExact means the backend entry was found by request identifier.
	MethodExact Method = "exact_identifier"

	// MethodTimeWindow means the entry was found by scanning a time window
	// around the event for failure-shaped backend entries.
	MethodTimeWindow Method = "time_window_pattern"

	// MethodNone marks a placeholder record for an event with no backend
	// match.
	MethodNone Method = "none"
)

// Record links one frontend event to one backend entry. Backend is nil when
// Method is MethodNone.
type Record struct {
	Event             *common.ErrorEvent `json:"event"`
	Backend           *backend.Entry     `json:"backend,omitempty"`
	MatchedIdentifier string             `json:"matched_identifier,omitempty"`
	Method            Method             `json:"method"`
	TimeOffsetSeconds float64            `json:"time_offset_seconds,omitempty"`
	HasTimeOffset     bool               `json:"-"`
}

// Result is the outcome of correlating a batch of events.
type Result struct {
	// Records holds the correlation records in event order; records for
	// one event are contiguous and sorted by time proximity.
	Records []*Record `json:"records"`

	// Events is the number of events correlated.
	Events int `json:"events"`

	// Degraded counts events whose backend searches failed. Those events
	// carry a placeholder record instead of failing the batch.
	Degraded int `json:"degraded,omitempty"`

	// SuppressedDuplicates counts records dropped by global
	// deduplication.
	SuppressedDuplicates int `json:"suppressed_duplicates,omitempty"`
}
