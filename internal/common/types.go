package common

import (
	"errors"
	"strings"
	"time"
	"unicode"
)

// ErrDecode reports frontend log text that is not valid UTF-8. It is fatal:
// the scan aborts before producing any events.
var ErrDecode = errors.New("log text is not valid UTF-8")

// ErrorEvent is a single frontend error detected in a log body. Events are
// immutable after the scanner creates them.
type ErrorEvent struct {
	LineNumber    int       `json:"line_number"`
	Timestamp     string    `json:"timestamp,omitempty"` // raw text as found in the log
	Time          time.Time `json:"-"`                   // parsed form; zero when unparseable
	Kind          string    `json:"error_kind"`
	Message       string    `json:"message"`
	Identifiers   []string  `json:"identifiers,omitempty"` // unique, first-occurrence order
	ContextBefore []string  `json:"context_before,omitempty"`
	ContextAfter  []string  `json:"context_after,omitempty"`
}

// HasTime reports whether the event carries a parseable timestamp.
func (e *ErrorEvent) HasTime() bool {
	return !e.Time.IsZero()
}

// UserReport is the inbound bug report that triggers a triage run.
type UserReport struct {
	Username   string `json:"username" yaml:"username"`
	UserID     string `json:"user_id" yaml:"user_id"`
	Platform   string `json:"platform" yaml:"platform"`
	OSVersion  string `json:"os_version" yaml:"os_version"`
	AppVersion string `json:"app_version" yaml:"app_version"`
	LogURL     string `json:"log_url" yaml:"log_url"`
	Env        string `json:"env" yaml:"env"`
	Feedback   string `json:"feedback" yaml:"feedback"`
}

// IssueType classifies a triaged report.
type IssueType string

const (
	IssueBug            IssueType = "bug"
	IssueFeatureRequest IssueType = "feature_request"
	IssueNeither        IssueType = "neither"
)

// AnalysisResult is the classification verdict for a triage run.
type AnalysisResult struct {
	IssueType       IssueType `json:"issue_type"`
	Confidence      float64   `json:"confidence"`
	RootCause       string    `json:"root_cause,omitempty"`
	Recommendations []string  `json:"recommendations"`
	Summary         string    `json:"summary"`
}

// NormalizeMessage collapses whitespace and strips control characters so two
// renderings of the same log message compare equal. Used for both event
// signatures and backend dedup keys.
func NormalizeMessage(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if unicode.IsControl(r) {
			b.WriteByte(' ')
			continue
		}
		b.WriteRune(r)
	}
	return strings.Join(strings.Fields(b.String()), " ")
}
