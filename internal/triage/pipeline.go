// Package triage runs the end-to-end analysis of a user bug report: fetch
// the frontend log, scan it for error events, correlate the events against
// backend logs, and classify the report.
package triage

import (
	"context"
	"fmt"
	"time"

	"github.com/sekai-app/bug-analysis-agent/internal/classifier"
	"github.com/sekai-app/bug-analysis-agent/internal/common"
	"github.com/sekai-app/bug-analysis-agent/internal/correlate"
	"github.com/sekai-app/bug-analysis-agent/internal/downloader"
	"github.com/sekai-app/bug-analysis-agent/internal/logger"
	"github.com/sekai-app/bug-analysis-agent/internal/scanner"
)

// Fetcher downloads a log body from a URL.
type Fetcher interface {
	Download(ctx context.Context, logURL string) (string, error)
}

// Report is the complete outcome of one triage run.
type Report struct {
	UserReport  *common.UserReport     `json:"user_report"`
	Events      []*common.ErrorEvent   `json:"frontend_errors"`
	Correlation *correlate.Result      `json:"correlation"`
	Analysis    *common.AnalysisResult `json:"analysis"`
	ProcessedAt time.Time              `json:"processed_at"`
}

// Pipeline wires the triage stages together.
type Pipeline struct {
	fetcher      Fetcher
	scanner      *scanner.Scanner
	engine       *correlate.Engine
	classifier   classifier.Classifier
	contextLines int
	log          *logger.Logger
}

// NewPipeline assembles a pipeline. classifier may be nil, in which case the
// heuristic classifier is used. contextLines below zero falls back to the
// scanner default.
func NewPipeline(fetcher Fetcher, sc *scanner.Scanner, engine *correlate.Engine, cl classifier.Classifier, contextLines int, log *logger.Logger) (*Pipeline, error) {
	if fetcher == nil {
		return nil, fmt.Errorf("fetcher is required")
	}
	if sc == nil {
		return nil, fmt.Errorf("scanner is required")
	}
	if engine == nil {
		return nil, fmt.Errorf("correlation engine is required")
	}
	if cl == nil {
		cl = classifier.NewHeuristic()
	}
	if contextLines < 0 {
		contextLines = scanner.DefaultContextLines
	}
	if log == nil {
		log = logger.New("triage", nil)
	}
	return &Pipeline{
		fetcher:      fetcher,
		scanner:      sc,
		engine:       engine,
		classifier:   cl,
		contextLines: contextLines,
		log:          log,
	}, nil
}

// Run triages a report end to end, downloading the log from the report's
// LogURL first.
func (p *Pipeline) Run(ctx context.Context, report *common.UserReport) (*Report, error) {
	if report == nil {
		return nil, fmt.Errorf("user report is required")
	}
	if report.LogURL == "" {
		return nil, fmt.Errorf("user report has no log URL")
	}
	if !downloader.IsValidLogURL(report.LogURL) {
		p.log.Warn("log URL does not look like a log file: %s", report.LogURL)
	}

	content, err := p.fetcher.Download(ctx, report.LogURL)
	if err != nil {
		return nil, fmt.Errorf("download stage: %w", err)
	}

	return p.RunWithContent(ctx, report, content)
}

// RunWithContent triages a report whose log text the caller already has, as
// with local log files.
func (p *Pipeline) RunWithContent(ctx context.Context, report *common.UserReport, content string) (*Report, error) {
	if report == nil {
		report = &common.UserReport{}
	}

	events, err := p.scanner.Scan(content, p.contextLines)
	if err != nil {
		return nil, fmt.Errorf("scan stage: %w", err)
	}
	p.log.InfoWithFields("scan complete", []logger.Field{logger.Count(len(events))})

	result, err := p.engine.Correlate(ctx, events)
	if err != nil {
		return nil, fmt.Errorf("correlation stage: %w", err)
	}
	if result.Degraded > 0 {
		p.log.Warn("backend search degraded for %d event(s)", result.Degraded)
	}

	analysis, err := p.classifier.Classify(ctx, report, result)
	if err != nil {
		if ctx.Err() != nil {
			return nil, err
		}
		// richer classifiers can fail; the heuristic one cannot
		p.log.Warn("classifier failed, using heuristic fallback: %v", err)
		analysis, err = classifier.NewHeuristic().Classify(ctx, report, result)
		if err != nil {
			return nil, fmt.Errorf("classification stage: %w", err)
		}
	}

	return &Report{
		UserReport:  report,
		Events:      events,
		Correlation: result,
		Analysis:    analysis,
		ProcessedAt: time.Now().UTC(),
	}, nil
}
