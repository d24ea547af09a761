package report

import (
	"fmt"
	"strings"
	"time"

	"github.com/sekai-app/bug-analysis-agent/internal/correlate"
	"github.com/sekai-app/bug-analysis-agent/internal/triage"
)

type markdownFormatter struct{}

// NewMarkdown creates a Markdown formatter for issue trackers and docs.
func NewMarkdown() Formatter {
	return &markdownFormatter{}
}

func (f *markdownFormatter) Format(report *triage.Report) ([]byte, error) {
	var b strings.Builder

	b.WriteString("# Bug Triage Report\n\n")
	b.WriteString(fmt.Sprintf("Generated: %s\n\n", report.ProcessedAt.Format("2006-01-02 15:04:05 MST")))

	f.writeUserSection(&b, report)
	f.writeAnalysisSection(&b, report)
	f.writeCorrelationSection(&b, report)

	return []byte(b.String()), nil
}

func (f *markdownFormatter) writeUserSection(b *strings.Builder, report *triage.Report) {
	u := report.UserReport
	if u == nil {
		return
	}

	b.WriteString("## User Report\n\n")
	b.WriteString("| Field | Value |\n")
	b.WriteString("|-------|-------|\n")
	rows := [][2]string{
		{"User", fmt.Sprintf("%s (%s)", u.Username, u.UserID)},
		{"Platform", strings.TrimSpace(u.Platform + " " + u.OSVersion)},
		{"App Version", u.AppVersion},
		{"Environment", u.Env},
		{"Feedback", u.Feedback},
	}
	for _, row := range rows {
		if row[1] == "" {
			continue
		}
		b.WriteString(fmt.Sprintf("| %s | %s |\n", row[0], escapeMarkdown(row[1])))
	}
	b.WriteString("\n")
}

func (f *markdownFormatter) writeAnalysisSection(b *strings.Builder, report *triage.Report) {
	a := report.Analysis
	if a == nil {
		return
	}

	b.WriteString("## Analysis\n\n")
	b.WriteString(fmt.Sprintf("**Verdict:** %s (confidence %.0f%%)\n\n", a.IssueType, a.Confidence*100))
	if a.Summary != "" {
		b.WriteString(a.Summary + "\n\n")
	}
	if a.RootCause != "" {
		b.WriteString(fmt.Sprintf("**Root cause:** %s\n\n", a.RootCause))
	}
	if len(a.Recommendations) > 0 {
		b.WriteString("### Recommendations\n\n")
		for _, r := range a.Recommendations {
			b.WriteString("- " + r + "\n")
		}
		b.WriteString("\n")
	}
}

func (f *markdownFormatter) writeCorrelationSection(b *strings.Builder, report *triage.Report) {
	result := report.Correlation
	if result == nil || len(result.Records) == 0 {
		return
	}

	b.WriteString("## Correlations\n\n")
	b.WriteString(fmt.Sprintf("%d event(s), %d record(s)", result.Events, len(result.Records)))
	if result.SuppressedDuplicates > 0 {
		b.WriteString(fmt.Sprintf(", %d duplicate(s) suppressed", result.SuppressedDuplicates))
	}
	if result.Degraded > 0 {
		b.WriteString(fmt.Sprintf(", %d event(s) degraded", result.Degraded))
	}
	b.WriteString("\n\n")

	b.WriteString("| Line | Kind | Frontend Message | Method | Backend Message | Offset |\n")
	b.WriteString("|------|------|------------------|--------|-----------------|--------|\n")
	for _, r := range result.Records {
		backendMsg := ""
		offset := ""
		if r.Backend != nil {
			backendMsg = r.Backend.Message
		}
		if r.HasTimeOffset {
			offset = (time.Duration(r.TimeOffsetSeconds * float64(time.Second))).Round(time.Millisecond).String()
		}
		b.WriteString(fmt.Sprintf("| %d | %s | %s | %s | %s | %s |\n",
			r.Event.LineNumber,
			r.Event.Kind,
			escapeMarkdown(truncate(r.Event.Message, 80)),
			methodLabel(r.Method),
			escapeMarkdown(truncate(backendMsg, 80)),
			offset,
		))
	}
	b.WriteString("\n")
}

func methodLabel(m correlate.Method) string {
	switch m {
	case correlate.MethodExact:
		return "exact"
	case correlate.MethodTimeWindow:
		return "time window"
	default:
		return "no match"
	}
}

func escapeMarkdown(s string) string {
	s = strings.ReplaceAll(s, "|", "\\|")
	return strings.ReplaceAll(s, "\n", " ")
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n-3] + "..."
}
