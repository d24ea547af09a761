package triage

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/sekai-app/bug-analysis-agent/internal/backend"
	"github.com/sekai-app/bug-analysis-agent/internal/common"
	"github.com/sekai-app/bug-analysis-agent/internal/correlate"
	"github.com/sekai-app/bug-analysis-agent/internal/scanner"
)

type stubFetcher struct {
	content string
	err     error
}

func (s *stubFetcher) Download(ctx context.Context, logURL string) (string, error) {
	return s.content, s.err
}

type failingClassifier struct{}

func (f *failingClassifier) Classify(ctx context.Context, report *common.UserReport, result *correlate.Result) (*common.AnalysisResult, error) {
	return nil, errors.New("model unavailable")
}

func newTestPipeline(t *testing.T, fetcher Fetcher, entries []*backend.Entry) *Pipeline {
	t.Helper()
	engine, err := correlate.NewEngine(backend.NewMemorySearcher(entries, 0), correlate.DefaultOptions())
	if err != nil {
		t.Fatalf("NewEngine: %v", err)
	}
	p, err := NewPipeline(fetcher, scanner.New(), engine, nil, 2, nil)
	if err != nil {
		t.Fatalf("NewPipeline: %v", err)
	}
	return p
}

func TestPipelineRun(t *testing.T) {
	log := strings.Join([]string{
		"2024-03-10T08:00:00.000Z session start",
		"7045 [E] AudioDownloadManager Error req=efb9a61e",
		"recovery attempt",
	}, "\n")
	entries := []*backend.Entry{
		{
			Timestamp: time.Date(2024, 3, 10, 8, 0, 5, 0, time.UTC),
			Message:   "audio fetch failed req=efb9a61e",
		},
	}

	fetcher := &stubFetcher{content: log}
	p := newTestPipeline(t, fetcher, entries)

	report, err := p.Run(context.Background(), &common.UserReport{
		Username: "ayu",
		LogURL:   "https://example.com/exports/app.log",
		Feedback: "audio will not play",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(report.Events) != 1 {
		t.Fatalf("expected 1 event, got %d", len(report.Events))
	}
	if len(report.Correlation.Records) != 1 {
		t.Fatalf("expected 1 record, got %d", len(report.Correlation.Records))
	}
	if report.Correlation.Records[0].Method != correlate.MethodExact {
		t.Errorf("expected exact correlation, got %s", report.Correlation.Records[0].Method)
	}
	if report.Analysis.IssueType != common.IssueBug {
		t.Errorf("expected bug verdict, got %s", report.Analysis.IssueType)
	}
	if report.ProcessedAt.IsZero() {
		t.Error("expected processed timestamp")
	}
}

func TestPipelineRunMissingURL(t *testing.T) {
	p := newTestPipeline(t, &stubFetcher{}, nil)
	if _, err := p.Run(context.Background(), &common.UserReport{}); err == nil {
		t.Fatal("expected error for missing log URL")
	}
}

func TestPipelineRunDownloadFailure(t *testing.T) {
	p := newTestPipeline(t, &stubFetcher{err: errors.New("403 forbidden")}, nil)
	_, err := p.Run(context.Background(), &common.UserReport{LogURL: "https://example.com/app.log"})
	if err == nil || !strings.Contains(err.Error(), "download stage") {
		t.Fatalf("expected download stage error, got %v", err)
	}
}

func TestPipelineClassifierFallback(t *testing.T) {
	engine, err := correlate.NewEngine(backend.NewMemorySearcher(nil, 0), correlate.DefaultOptions())
	if err != nil {
		t.Fatalf("NewEngine: %v", err)
	}
	p, err := NewPipeline(&stubFetcher{}, scanner.New(), engine, &failingClassifier{}, 2, nil)
	if err != nil {
		t.Fatalf("NewPipeline: %v", err)
	}

	report, err := p.RunWithContent(context.Background(),
		&common.UserReport{Feedback: "broken"}, "[E] boom")
	if err != nil {
		t.Fatalf("expected heuristic fallback, got error: %v", err)
	}
	if report.Analysis == nil || report.Analysis.IssueType != common.IssueBug {
		t.Fatalf("expected heuristic bug verdict, got %+v", report.Analysis)
	}
}

func TestPipelineInvalidUTF8(t *testing.T) {
	p := newTestPipeline(t, &stubFetcher{}, nil)
	_, err := p.RunWithContent(context.Background(), nil, "bad \xff bytes")
	if !errors.Is(err, common.ErrDecode) {
		t.Fatalf("expected ErrDecode, got %v", err)
	}
}
