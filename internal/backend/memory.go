package backend

import (
	"context"
	"strings"
	"time"
)

// MemorySearcher serves searches from a fixed entry slice. It backs offline
// runs against exported log dumps and the correlation tests. Entries are
// returned in insertion order, so identical inputs always produce identical
// results.
type MemorySearcher struct {
	entries     []*Entry
	windowLimit int
}

// NewMemorySearcher creates a searcher over the given entries. windowLimit
// caps FindByWindow results; zero or negative means no cap.
func NewMemorySearcher(entries []*Entry, windowLimit int) *MemorySearcher {
	return &MemorySearcher{entries: entries, windowLimit: windowLimit}
}

// FindByIdentifiers returns entries tagged with, or mentioning, any of the
// given identifiers.
func (m *MemorySearcher) FindByIdentifiers(ctx context.Context, ids []string) ([]*Entry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return nil, nil
	}

	var matches []*Entry
	for _, e := range m.entries {
		for _, id := range ids {
			if e.Identifier == id || strings.Contains(e.Message, id) {
				matches = append(matches, e)
				break
			}
		}
	}
	return matches, nil
}

// FindByWindow returns entries within radius of center whose message contains
// any of the patterns, case-insensitively. Empty patterns fall back to
// DefaultWindowPatterns. Results beyond the window limit are dropped.
func (m *MemorySearcher) FindByWindow(ctx context.Context, center time.Time, radius time.Duration, patterns []string) ([]*Entry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if len(patterns) == 0 {
		patterns = DefaultWindowPatterns
	}

	var matches []*Entry
	for _, e := range m.entries {
		if e.Timestamp.Before(center.Add(-radius)) || e.Timestamp.After(center.Add(radius)) {
			continue
		}
		lower := strings.ToLower(e.Message)
		for _, p := range patterns {
			if strings.Contains(lower, strings.ToLower(p)) {
				matches = append(matches, e)
				break
			}
		}
		if m.windowLimit > 0 && len(matches) >= m.windowLimit {
			break
		}
	}
	return matches, nil
}
