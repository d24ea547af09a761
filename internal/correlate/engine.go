package correlate

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/sekai-app/bug-analysis-agent/internal/backend"
	"github.com/sekai-app/bug-analysis-agent/internal/common"
)

// Engine correlates frontend events against a backend log store.
type Engine struct {
	searcher backend.Searcher
	opts     Options
}

// NewEngine creates an engine over the given searcher.
func NewEngine(searcher backend.Searcher, opts Options) (*Engine, error) {
	if searcher == nil {
		return nil, fmt.Errorf("searcher is required")
	}
	if err := opts.Validate(); err != nil {
		return nil, fmt.Errorf("invalid options: %w", err)
	}
	return &Engine{searcher: searcher, opts: opts}, nil
}

type eventOutcome struct {
	records  []*Record
	degraded bool
}

// Correlate resolves each event to backend records. Events are processed
// concurrently, but the result lists records in event order, with one event's
// records contiguous and sorted by time proximity.
//
// Backend search failures degrade the affected event to a placeholder record
// instead of failing the batch. Context cancellation stops the run and
// returns the records completed so far alongside the context error.
func (e *Engine) Correlate(ctx context.Context, events []*common.ErrorEvent) (*Result, error) {
	outcomes := make([]eventOutcome, len(events))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.opts.Concurrency)
	for i, event := range events {
		g.Go(func() error {
			out, err := e.correlateEvent(gctx, event)
			if err != nil {
				return err
			}
			outcomes[i] = out
			return nil
		})
	}
	waitErr := g.Wait()

	result := &Result{Events: len(events)}
	seen := make(map[string]bool)

	for i := range outcomes {
		out := outcomes[i]
		if out.degraded {
			result.Degraded++
		}

		records := out.records
		if len(records) == 0 {
			if waitErr != nil {
				// event never ran before cancellation
				continue
			}
			records = []*Record{placeholder(events[i])}
		}

		if e.opts.GlobalDedup {
			records = e.dedupGlobal(records, seen, result)
		}
		result.Records = append(result.Records, records...)
	}

	if waitErr != nil {
		return result, waitErr
	}
	return result, nil
}

// dedupGlobal drops records whose backend message was already emitted for an
// earlier record in the batch. An event whose records are all suppressed
// keeps a placeholder so it still appears in the output.
func (e *Engine) dedupGlobal(records []*Record, seen map[string]bool, result *Result) []*Record {
	kept := make([]*Record, 0, len(records))
	for _, r := range records {
		if r.Backend == nil {
			kept = append(kept, r)
			continue
		}
		key := r.Backend.DedupKey()
		if seen[key] {
			result.SuppressedDuplicates++
			continue
		}
		seen[key] = true
		kept = append(kept, r)
	}
	if len(kept) == 0 {
		kept = append(kept, placeholder(records[0].Event))
	}
	return kept
}

// correlateEvent runs both search tiers for one event. The returned error is
// only ever a context error; backend failures are reported as degraded.
func (e *Engine) correlateEvent(ctx context.Context, event *common.ErrorEvent) (eventOutcome, error) {
	var out eventOutcome

	if len(event.Identifiers) > 0 {
		entries, err := e.searcher.FindByIdentifiers(ctx, event.Identifiers)
		if err != nil {
			if ctx.Err() != nil {
				return eventOutcome{}, ctx.Err()
			}
			out.degraded = true
			out.records = []*Record{placeholder(event)}
			return out, nil
		}
		out.records = e.buildRecords(event, entries, MethodExact)
	}

	needFallback := len(event.Identifiers) == 0 ||
		(len(out.records) == 0 && e.opts.FallbackAfterExactMiss)

	if needFallback && event.HasTime() && e.opts.MaxFallbackMatches > 0 {
		entries, err := e.searcher.FindByWindow(ctx, event.Time, e.opts.TimeWindow, e.opts.WindowPatterns)
		if err != nil {
			if ctx.Err() != nil {
				return eventOutcome{}, ctx.Err()
			}
			out.degraded = true
		} else {
			records := e.buildRecords(event, entries, MethodTimeWindow)
			if len(records) > e.opts.MaxFallbackMatches {
				records = records[:e.opts.MaxFallbackMatches]
			}
			out.records = append(out.records, records...)
		}
	}

	if len(out.records) == 0 {
		out.records = []*Record{placeholder(event)}
	}
	return out, nil
}

// buildRecords turns backend entries into records for one event, sorted by
// time proximity and collapsed on duplicate message+timestamp pairs.
func (e *Engine) buildRecords(event *common.ErrorEvent, entries []*backend.Entry, method Method) []*Record {
	records := make([]*Record, 0, len(entries))
	for _, entry := range entries {
		r := &Record{Event: event, Backend: entry, Method: method}
		if method == MethodExact {
			r.MatchedIdentifier = matchedIdentifier(event, entry)
		}
		if event.HasTime() && !entry.Timestamp.IsZero() {
			r.TimeOffsetSeconds = entry.Timestamp.Sub(event.Time).Seconds()
			r.HasTimeOffset = true
		}
		records = append(records, r)
	}

	// closest first; records with no computable offset sort last
	sort.SliceStable(records, func(i, j int) bool {
		ri, rj := records[i], records[j]
		if ri.HasTimeOffset != rj.HasTimeOffset {
			return ri.HasTimeOffset
		}
		if ri.HasTimeOffset {
			ai, aj := math.Abs(ri.TimeOffsetSeconds), math.Abs(rj.TimeOffsetSeconds)
			if ai != aj {
				return ai < aj
			}
		}
		return ri.Backend.Timestamp.Before(rj.Backend.Timestamp)
	})

	seen := make(map[string]bool, len(records))
	kept := records[:0]
	for _, r := range records {
		key := r.Backend.DedupKey() + "|" + r.Backend.Timestamp.UTC().Format(time.RFC3339Nano)
		if seen[key] {
			continue
		}
		seen[key] = true
		kept = append(kept, r)
	}
	return kept
}

// matchedIdentifier finds which of the event's identifiers linked the entry.
func matchedIdentifier(event *common.ErrorEvent, entry *backend.Entry) string {
	for _, id := range event.Identifiers {
		if entry.Identifier == id || strings.Contains(entry.Message, id) {
			return id
		}
	}
	return ""
}

func placeholder(event *common.ErrorEvent) *Record {
	return &Record{Event: event, Method: MethodNone}
}
