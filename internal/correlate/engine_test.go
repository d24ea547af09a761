package correlate

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/sekai-app/bug-analysis-agent/internal/backend"
	"github.com/sekai-app/bug-analysis-agent/internal/common"
)

var baseTime = time.Date(2024, 3, 10, 8, 0, 0, 0, time.UTC)

func newTestEngine(t *testing.T, s backend.Searcher, opts Options) *Engine {
	t.Helper()
	e, err := NewEngine(s, opts)
	if err != nil {
		t.Fatalf("NewEngine: %v", err)
	}
	return e
}

func TestCorrelateExactIdentifier(t *testing.T) {
	searcher := backend.NewMemorySearcher([]*backend.Entry{
		{Timestamp: baseTime.Add(5 * time.Second), Message: "db write failed for req=efb9a61e"},
		{Timestamp: baseTime, Message: "unrelated backend entry"},
	}, 0)
	e := newTestEngine(t, searcher, DefaultOptions())

	event := &common.ErrorEvent{
		LineNumber:  7045,
		Kind:        "EXPLICIT_ERROR",
		Message:     "7045 [E] AudioDownloadManager Error req=efb9a61e",
		Identifiers: []string{"efb9a61e"},
		Time:        baseTime,
	}

	result, err := e.Correlate(context.Background(), []*common.ErrorEvent{event})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(result.Records) != 1 {
		t.Fatalf("expected 1 record, got %d", len(result.Records))
	}

	r := result.Records[0]
	if r.Method != MethodExact {
		t.Errorf("expected method %s, got %s", MethodExact, r.Method)
	}
	if r.MatchedIdentifier != "efb9a61e" {
		t.Errorf("expected matched identifier efb9a61e, got %q", r.MatchedIdentifier)
	}
	if !r.HasTimeOffset || r.TimeOffsetSeconds != 5 {
		t.Errorf("expected offset of 5s, got %v (has=%v)", r.TimeOffsetSeconds, r.HasTimeOffset)
	}
}

func TestCorrelateFallbackCapSortedByProximity(t *testing.T) {
	entries := []*backend.Entry{
		{Timestamp: baseTime.Add(-110 * time.Second), Message: "error delta"},
		{Timestamp: baseTime.Add(50 * time.Second), Message: "error gamma"},
		{Timestamp: baseTime.Add(-90 * time.Second), Message: "error epsilon"},
		{Timestamp: baseTime.Add(10 * time.Second), Message: "error alpha"},
		{Timestamp: baseTime.Add(30 * time.Second), Message: "error beta"},
	}
	e := newTestEngine(t, backend.NewMemorySearcher(entries, 0), DefaultOptions())

	event := &common.ErrorEvent{Kind: "TIMEOUT", Message: "timeout", Time: baseTime}

	result, err := e.Correlate(context.Background(), []*common.ErrorEvent{event})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(result.Records) != 3 {
		t.Fatalf("expected cap of 3 records, got %d", len(result.Records))
	}

	wantOffsets := []float64{10, 30, 50}
	for i, r := range result.Records {
		if r.Method != MethodTimeWindow {
			t.Errorf("record %d: expected method %s, got %s", i, MethodTimeWindow, r.Method)
		}
		if r.TimeOffsetSeconds != wantOffsets[i] {
			t.Errorf("record %d: expected offset %v, got %v", i, wantOffsets[i], r.TimeOffsetSeconds)
		}
	}
}

func TestCorrelateNoMatchYieldsPlaceholder(t *testing.T) {
	e := newTestEngine(t, backend.NewMemorySearcher(nil, 0), DefaultOptions())

	event := &common.ErrorEvent{Kind: "CRASH", Message: "crash", Time: baseTime}

	result, err := e.Correlate(context.Background(), []*common.ErrorEvent{event})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(result.Records) != 1 {
		t.Fatalf("expected 1 placeholder record, got %d", len(result.Records))
	}
	r := result.Records[0]
	if r.Method != MethodNone || r.Backend != nil {
		t.Errorf("expected placeholder record, got method=%s backend=%v", r.Method, r.Backend)
	}
}

func TestCorrelateFallbackAfterExactMiss(t *testing.T) {
	entries := []*backend.Entry{
		{Timestamp: baseTime.Add(20 * time.Second), Message: "error near the event"},
	}

	event := &common.ErrorEvent{
		Kind:        "LOG_ERROR",
		Message:     "[ERROR] something",
		Identifiers: []string{"missingid99"},
		Time:        baseTime,
	}

	e := newTestEngine(t, backend.NewMemorySearcher(entries, 0), DefaultOptions())
	result, err := e.Correlate(context.Background(), []*common.ErrorEvent{event})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(result.Records) != 1 || result.Records[0].Method != MethodTimeWindow {
		t.Fatalf("expected time-window fallback after exact miss, got %+v", result.Records)
	}

	opts := DefaultOptions()
	opts.FallbackAfterExactMiss = false
	e = newTestEngine(t, backend.NewMemorySearcher(entries, 0), opts)
	result, err = e.Correlate(context.Background(), []*common.ErrorEvent{event})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(result.Records) != 1 || result.Records[0].Method != MethodNone {
		t.Fatalf("expected placeholder with fallback disabled, got %+v", result.Records)
	}
}

func TestCorrelateGlobalDedup(t *testing.T) {
	searcher := backend.NewMemorySearcher([]*backend.Entry{
		{Timestamp: baseTime, Message: "db write failed", Identifier: "aaa111bbb"},
		{Timestamp: baseTime.Add(time.Second), Message: "db write failed", Identifier: "ccc222ddd"},
	}, 0)
	e := newTestEngine(t, searcher, DefaultOptions())

	events := []*common.ErrorEvent{
		{Kind: "LOG_ERROR", Message: "[ERROR] first", Identifiers: []string{"aaa111bbb"}, Time: baseTime},
		{Kind: "LOG_ERROR", Message: "[ERROR] second", Identifiers: []string{"ccc222ddd"}, Time: baseTime},
	}

	result, err := e.Correlate(context.Background(), events)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.SuppressedDuplicates != 1 {
		t.Errorf("expected 1 suppressed duplicate, got %d", result.SuppressedDuplicates)
	}
	if len(result.Records) != 2 {
		t.Fatalf("expected 2 records, got %d", len(result.Records))
	}
	if result.Records[0].Method != MethodExact {
		t.Errorf("expected first event to keep its record, got %s", result.Records[0].Method)
	}
	if result.Records[1].Method != MethodNone {
		t.Errorf("expected second event degraded to placeholder, got %s", result.Records[1].Method)
	}
	if result.Records[1].Event != events[1] {
		t.Error("placeholder should belong to the suppressed event")
	}
}

func TestCorrelateGlobalDedupDisabled(t *testing.T) {
	searcher := backend.NewMemorySearcher([]*backend.Entry{
		{Timestamp: baseTime, Message: "db write failed", Identifier: "aaa111bbb"},
		{Timestamp: baseTime.Add(time.Second), Message: "db write failed", Identifier: "ccc222ddd"},
	}, 0)
	opts := DefaultOptions()
	opts.GlobalDedup = false
	e := newTestEngine(t, searcher, opts)

	events := []*common.ErrorEvent{
		{Kind: "LOG_ERROR", Message: "[ERROR] first", Identifiers: []string{"aaa111bbb"}, Time: baseTime},
		{Kind: "LOG_ERROR", Message: "[ERROR] second", Identifiers: []string{"ccc222ddd"}, Time: baseTime},
	}

	result, err := e.Correlate(context.Background(), events)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.SuppressedDuplicates != 0 {
		t.Errorf("expected no suppression, got %d", result.SuppressedDuplicates)
	}
	if len(result.Records) != 2 || result.Records[1].Method != MethodExact {
		t.Fatalf("expected both records kept, got %+v", result.Records)
	}
}

func TestCorrelateLocalDedup(t *testing.T) {
	// same message and timestamp twice, as repeated log shipping produces
	searcher := backend.NewMemorySearcher([]*backend.Entry{
		{Timestamp: baseTime, Message: "db write failed req=aaa111bbb"},
		{Timestamp: baseTime, Message: "db write failed req=aaa111bbb"},
	}, 0)
	e := newTestEngine(t, searcher, DefaultOptions())

	event := &common.ErrorEvent{
		Kind:        "LOG_ERROR",
		Message:     "[ERROR] x",
		Identifiers: []string{"aaa111bbb"},
		Time:        baseTime,
	}

	result, err := e.Correlate(context.Background(), []*common.ErrorEvent{event})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(result.Records) != 1 {
		t.Fatalf("expected duplicates collapsed to 1 record, got %d", len(result.Records))
	}
}

type failingSearcher struct{}

func (f *failingSearcher) FindByIdentifiers(ctx context.Context, ids []string) ([]*backend.Entry, error) {
	return nil, errors.New("backend store unavailable")
}

func (f *failingSearcher) FindByWindow(ctx context.Context, center time.Time, radius time.Duration, patterns []string) ([]*backend.Entry, error) {
	return nil, errors.New("backend store unavailable")
}

func TestCorrelateDegradedOnSearchFailure(t *testing.T) {
	e := newTestEngine(t, &failingSearcher{}, DefaultOptions())

	events := []*common.ErrorEvent{
		{Kind: "LOG_ERROR", Message: "[ERROR] a", Identifiers: []string{"aaa111bbb"}, Time: baseTime},
		{Kind: "LOG_ERROR", Message: "[ERROR] b", Time: baseTime},
	}

	result, err := e.Correlate(context.Background(), events)
	if err != nil {
		t.Fatalf("search failures must not fail the batch: %v", err)
	}
	if result.Degraded != 2 {
		t.Errorf("expected 2 degraded events, got %d", result.Degraded)
	}
	if len(result.Records) != 2 {
		t.Fatalf("expected a placeholder per event, got %d records", len(result.Records))
	}
	for _, r := range result.Records {
		if r.Method != MethodNone {
			t.Errorf("expected placeholder, got %s", r.Method)
		}
	}
}

func TestCorrelateCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	e := newTestEngine(t, backend.NewMemorySearcher(nil, 0), DefaultOptions())
	events := []*common.ErrorEvent{
		{Kind: "CRASH", Message: "crash", Identifiers: []string{"aaa111bbb"}},
	}

	result, err := e.Correlate(ctx, events)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if result == nil || result.Events != 1 {
		t.Fatalf("expected partial result, got %+v", result)
	}
}

func TestCorrelateDeterministic(t *testing.T) {
	var entries []*backend.Entry
	for i := 0; i < 20; i++ {
		entries = append(entries, &backend.Entry{
			Timestamp: baseTime.Add(time.Duration(i-10) * time.Second),
			Message:   fmt.Sprintf("error variant %d", i),
		})
	}
	var events []*common.ErrorEvent
	for i := 0; i < 8; i++ {
		events = append(events, &common.ErrorEvent{
			Kind:    "LOG_ERROR",
			Message: fmt.Sprintf("[ERROR] event %d", i),
			Time:    baseTime.Add(time.Duration(i) * time.Second),
		})
	}

	run := func() []string {
		e := newTestEngine(t, backend.NewMemorySearcher(entries, 0), DefaultOptions())
		result, err := e.Correlate(context.Background(), events)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		var keys []string
		for _, r := range result.Records {
			msg := ""
			if r.Backend != nil {
				msg = r.Backend.Message
			}
			keys = append(keys, fmt.Sprintf("%s|%s|%s|%.0f", r.Event.Message, r.Method, msg, r.TimeOffsetSeconds))
		}
		return keys
	}

	first := run()
	for i := 0; i < 3; i++ {
		again := run()
		if len(again) != len(first) {
			t.Fatalf("run %d: got %d records, want %d", i, len(again), len(first))
		}
		for j := range first {
			if again[j] != first[j] {
				t.Fatalf("run %d: record %d differs: %s vs %s", i, j, again[j], first[j])
			}
		}
	}
}

func TestNewEngineValidation(t *testing.T) {
	if _, err := NewEngine(nil, DefaultOptions()); err == nil {
		t.Error("expected error for nil searcher")
	}

	opts := DefaultOptions()
	opts.TimeWindow = 0
	if _, err := NewEngine(backend.NewMemorySearcher(nil, 0), opts); err == nil {
		t.Error("expected error for zero time window")
	}

	opts = DefaultOptions()
	opts.MaxFallbackMatches = -1
	if _, err := NewEngine(backend.NewMemorySearcher(nil, 0), opts); err == nil {
		t.Error("expected error for negative fallback cap")
	}

	opts = DefaultOptions()
	opts.Concurrency = 0
	if _, err := NewEngine(backend.NewMemorySearcher(nil, 0), opts); err == nil {
		t.Error("expected error for zero concurrency")
	}
}
