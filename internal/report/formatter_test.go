package report

import (
	"encoding/csv"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/sekai-app/bug-analysis-agent/internal/backend"
	"github.com/sekai-app/bug-analysis-agent/internal/common"
	"github.com/sekai-app/bug-analysis-agent/internal/correlate"
	"github.com/sekai-app/bug-analysis-agent/internal/triage"
)

func sampleReport() *triage.Report {
	event := &common.ErrorEvent{
		LineNumber:  7045,
		Timestamp:   "2024-03-10T08:00:00.000Z",
		Kind:        "EXPLICIT_ERROR",
		Message:     "7045 [E] AudioDownloadManager Error req=efb9a61e",
		Identifiers: []string{"efb9a61e"},
	}
	entry := &backend.Entry{
		Timestamp:  time.Date(2024, 3, 10, 8, 0, 5, 0, time.UTC),
		Message:    "audio fetch failed req=efb9a61e",
		LogGroup:   "/ecs/api",
		LogStream:  "api/1234",
		Identifier: "efb9a61e",
	}
	orphan := &common.ErrorEvent{LineNumber: 9001, Kind: "TIMEOUT", Message: "read timeout"}

	return &triage.Report{
		UserReport: &common.UserReport{
			Username: "ayu",
			UserID:   "u-1001",
			Platform: "ios",
			Feedback: "audio will not play",
		},
		Events: []*common.ErrorEvent{event, orphan},
		Correlation: &correlate.Result{
			Events: 2,
			Records: []*correlate.Record{
				{
					Event:             event,
					Backend:           entry,
					MatchedIdentifier: "efb9a61e",
					Method:            correlate.MethodExact,
					TimeOffsetSeconds: 5,
					HasTimeOffset:     true,
				},
				{Event: orphan, Method: correlate.MethodNone},
			},
			SuppressedDuplicates: 1,
		},
		Analysis: &common.AnalysisResult{
			IssueType:       common.IssueBug,
			Confidence:      0.6,
			Summary:         "Likely bug - detected 2 error(s) in frontend logs",
			Recommendations: []string{"Investigate 2 error(s) found in logs"},
		},
		ProcessedAt: time.Date(2024, 3, 10, 9, 0, 0, 0, time.UTC),
	}
}

func TestCSVFormatter(t *testing.T) {
	data, err := NewCSV().Format(sampleReport())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	rows, err := csv.NewReader(strings.NewReader(string(data))).ReadAll()
	if err != nil {
		t.Fatalf("output is not valid CSV: %v", err)
	}
	if len(rows) != 3 {
		t.Fatalf("expected header plus 2 rows, got %d", len(rows))
	}
	if len(rows[0]) != 13 {
		t.Fatalf("expected 13 columns, got %d", len(rows[0]))
	}
	if rows[0][0] != "frontend_line_number" || rows[0][12] != "time_diff_seconds" {
		t.Errorf("unexpected header: %v", rows[0])
	}

	matched := rows[1]
	if matched[0] != "7045" || matched[2] != "EXPLICIT_ERROR" {
		t.Errorf("unexpected frontend columns: %v", matched[:5])
	}
	if matched[6] != "audio fetch failed req=efb9a61e" || matched[11] != "exact_identifier" || matched[12] != "5" {
		t.Errorf("unexpected backend columns: %v", matched[5:])
	}

	orphan := rows[2]
	if orphan[11] != "none" || orphan[6] != "" || orphan[12] != "" {
		t.Errorf("unexpected placeholder row: %v", orphan)
	}
}

func TestJSONFormatter(t *testing.T) {
	data, err := NewJSON().Format(sampleReport())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var decoded map[string]interface{}
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("output is not valid JSON: %v", err)
	}
	for _, key := range []string{"user_report", "frontend_errors", "correlation", "analysis", "processed_at"} {
		if _, ok := decoded[key]; !ok {
			t.Errorf("missing key %q in JSON output", key)
		}
	}
}

func TestMarkdownFormatter(t *testing.T) {
	data, err := NewMarkdown().Format(sampleReport())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	out := string(data)
	for _, want := range []string{
		"# Bug Triage Report",
		"## User Report",
		"## Analysis",
		"## Correlations",
		"exact",
		"no match",
		"1 duplicate(s) suppressed",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("markdown output missing %q", want)
		}
	}
}

func TestTerminalFormatter(t *testing.T) {
	data, err := NewTerminal(false).Format(sampleReport())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	out := string(data)
	for _, want := range []string{
		"Bug Triage Summary",
		"Statistics",
		"Frontend Errors",
		"Exact Matches",
		"no backend match",
		"Recommendations",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("terminal output missing %q", want)
		}
	}
}

func TestNewFactory(t *testing.T) {
	for _, format := range []string{"", "terminal", "text", "json", "csv", "markdown", "md"} {
		if _, err := New(format, false); err != nil {
			t.Errorf("New(%q) returned error: %v", format, err)
		}
	}
	if _, err := New("xml", false); err == nil {
		t.Error("expected error for unsupported format")
	}
}
