package correlate

import (
	"fmt"
	"time"
)

// Options control correlation behavior. Start from DefaultOptions and
// override fields as needed; NewEngine validates the final values.
type Options struct {
	// TimeWindow is the radius of the fallback search window around an
	// event's timestamp.
	TimeWindow time.Duration

	// MaxFallbackMatches caps how many time-window records one event may
	// produce. The closest matches are kept.
	MaxFallbackMatches int

	// FallbackAfterExactMiss also runs the time-window tier when an event
	// has identifiers but the exact search finds nothing. When false the
	// fallback only covers events without identifiers.
	FallbackAfterExactMiss bool

	// GlobalDedup suppresses repeat records for the same backend message
	// across the whole batch.
	GlobalDedup bool

	// WindowPatterns filter the fallback search. Empty means the backend
	// default failure patterns.
	WindowPatterns []string

	// Concurrency is the number of events correlated in parallel.
	Concurrency int
}

// DefaultOptions returns the standard correlation settings.
func DefaultOptions() Options {
	return Options{
		TimeWindow:             2 * time.Minute,
		MaxFallbackMatches:     3,
		FallbackAfterExactMiss: true,
		GlobalDedup:            true,
		Concurrency:            4,
	}
}

// Validate checks the options for values the engine cannot run with.
func (o *Options) Validate() error {
	if o.TimeWindow <= 0 {
		return fmt.Errorf("time window must be positive, got %v", o.TimeWindow)
	}
	if o.MaxFallbackMatches < 0 {
		return fmt.Errorf("max fallback matches cannot be negative, got %d", o.MaxFallbackMatches)
	}
	if o.Concurrency <= 0 {
		return fmt.Errorf("concurrency must be positive, got %d", o.Concurrency)
	}
	return nil
}
