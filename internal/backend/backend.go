// Package backend resolves frontend error events to backend log entries. A
// Searcher exposes the two query tiers correlation needs: exact identifier
// lookup and time-window scanning. Adapters exist for OpenSearch and for an
// in-memory store used in tests and offline runs.
package backend

import (
	"context"
	"time"

	"github.com/sekai-app/bug-analysis-agent/internal/common"
)

// Entry is one backend log record returned by a search.
type Entry struct {
	Timestamp  time.Time `json:"timestamp"`
	Message    string    `json:"message"`
	LogGroup   string    `json:"log_group,omitempty"`
	LogStream  string    `json:"log_stream,omitempty"`
	Identifier string    `json:"request_id,omitempty"`
}

// DedupKey is the normalized distilled message. Two entries with the same key
// describe the same backend failure and collapse during deduplication.
func (e *Entry) DedupKey() string {
	return common.NormalizeMessage(DistillMessage(e.Message))
}

// Searcher is the query surface a backend log store must provide.
//
// FindByIdentifiers returns entries mentioning any of the given request
// identifiers. FindByWindow returns entries within radius of center whose
// message matches any of the patterns; stores may truncate window results at
// an implementation-defined limit. Both return entries in a deterministic
// order for identical inputs.
type Searcher interface {
	FindByIdentifiers(ctx context.Context, ids []string) ([]*Entry, error)
	FindByWindow(ctx context.Context, center time.Time, radius time.Duration, patterns []string) ([]*Entry, error)
}

// DefaultWindowPatterns filter time-window searches down to failure-shaped
// entries when the caller supplies no patterns of its own.
var DefaultWindowPatterns = []string{
	"error", "exception", "fail", "timeout", "fatal", "panic",
}
