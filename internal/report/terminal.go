package report

import (
	"fmt"
	"strings"

	"github.com/yildizm/go-termfmt"

	"github.com/sekai-app/bug-analysis-agent/internal/correlate"
	"github.com/sekai-app/bug-analysis-agent/internal/triage"
)

// terminalFormatter renders a report for interactive terminal use.
type terminalFormatter struct {
	opts *termfmt.TerminalOptions
}

// NewTerminal creates a terminal formatter with optional color support.
func NewTerminal(color bool) Formatter {
	opts := termfmt.DefaultOptions()
	opts.Color = color
	opts.Emoji = true
	return &terminalFormatter{opts: opts}
}

func (f *terminalFormatter) Format(report *triage.Report) ([]byte, error) {
	var b strings.Builder

	f.writeHeader(&b)
	f.writeUserReport(&b, report)
	f.writeStatistics(&b, report)
	f.writeRecords(&b, report)
	f.writeAnalysis(&b, report)

	return []byte(b.String()), nil
}

func (f *terminalFormatter) writeHeader(b *strings.Builder) {
	header := "Bug Triage Summary"
	b.WriteString("╔" + strings.Repeat("═", len(header)+2) + "╗\n")
	b.WriteString("║ " + header + " ║\n")
	b.WriteString("╚" + strings.Repeat("═", len(header)+2) + "╝\n\n")
}

func (f *terminalFormatter) writeUserReport(b *strings.Builder, report *triage.Report) {
	u := report.UserReport
	if u == nil || (u.Username == "" && u.Feedback == "") {
		return
	}

	symbol := termfmt.GetEmoji("summary", f.opts)
	b.WriteString(symbol + " User Report\n")

	items := []termfmt.TreeItem{}
	if u.Username != "" {
		items = append(items, termfmt.TreeItem{Label: "User", Value: fmt.Sprintf("%s (%s)", u.Username, u.UserID)})
	}
	if u.Platform != "" {
		items = append(items, termfmt.TreeItem{Label: "Platform", Value: strings.TrimSpace(u.Platform + " " + u.OSVersion)})
	}
	if u.AppVersion != "" {
		items = append(items, termfmt.TreeItem{Label: "App Version", Value: u.AppVersion})
	}
	if u.Feedback != "" {
		items = append(items, termfmt.TreeItem{Label: "Feedback", Value: u.Feedback})
	}
	if len(items) > 0 {
		items[len(items)-1].Last = true
		b.WriteString(termfmt.TreeViewWithOptions(items, f.opts) + "\n\n")
	}
}

func (f *terminalFormatter) writeStatistics(b *strings.Builder, report *triage.Report) {
	symbol := termfmt.GetEmoji("statistics", f.opts)
	b.WriteString(symbol + " Statistics\n")

	exact, window, unmatched := 0, 0, 0
	records := 0
	if report.Correlation != nil {
		records = len(report.Correlation.Records)
		for _, r := range report.Correlation.Records {
			switch r.Method {
			case correlate.MethodExact:
				exact++
			case correlate.MethodTimeWindow:
				window++
			default:
				unmatched++
			}
		}
	}

	items := []termfmt.TreeItem{
		{Label: "Frontend Errors", Value: fmt.Sprintf("%d", len(report.Events))},
		{Label: "Correlation Records", Value: fmt.Sprintf("%d", records)},
		{Label: "Exact Matches", Value: fmt.Sprintf("%d", exact)},
		{Label: "Time-Window Matches", Value: fmt.Sprintf("%d", window)},
		{Label: "Unmatched", Value: fmt.Sprintf("%d", unmatched)},
	}
	if report.Correlation != nil && report.Correlation.SuppressedDuplicates > 0 {
		items = append(items, termfmt.TreeItem{
			Label: "Suppressed Duplicates",
			Value: fmt.Sprintf("%d", report.Correlation.SuppressedDuplicates),
		})
	}
	if report.Correlation != nil && report.Correlation.Degraded > 0 {
		items = append(items, termfmt.TreeItem{
			Label: "Degraded Events",
			Value: fmt.Sprintf("%d", report.Correlation.Degraded),
		})
	}
	items[len(items)-1].Last = true
	b.WriteString(termfmt.TreeViewWithOptions(items, f.opts) + "\n\n")
}

func (f *terminalFormatter) writeRecords(b *strings.Builder, report *triage.Report) {
	if report.Correlation == nil || len(report.Correlation.Records) == 0 {
		return
	}

	symbol := termfmt.GetEmoji("pattern", f.opts)
	b.WriteString(symbol + " Correlations\n")

	for i, r := range report.Correlation.Records {
		marker := "├─"
		if i == len(report.Correlation.Records)-1 {
			marker = "└─"
		}
		line := fmt.Sprintf("%s line %d %s: %s", marker, r.Event.LineNumber, r.Event.Kind, truncate(r.Event.Message, 70))
		b.WriteString(line + "\n")

		cont := "│  "
		if i == len(report.Correlation.Records)-1 {
			cont = "   "
		}
		switch {
		case r.Backend != nil && r.HasTimeOffset:
			b.WriteString(fmt.Sprintf("%s→ [%s] %s (%+.1fs)\n", cont, methodLabel(r.Method), truncate(r.Backend.Message, 70), r.TimeOffsetSeconds))
		case r.Backend != nil:
			b.WriteString(fmt.Sprintf("%s→ [%s] %s\n", cont, methodLabel(r.Method), truncate(r.Backend.Message, 70)))
		default:
			b.WriteString(cont + "→ no backend match\n")
		}
	}
	b.WriteString("\n")
}

func (f *terminalFormatter) writeAnalysis(b *strings.Builder, report *triage.Report) {
	a := report.Analysis
	if a == nil {
		return
	}

	symbol := termfmt.GetEmoji("target", f.opts)
	b.WriteString(symbol + " Analysis\n")
	b.WriteString(fmt.Sprintf("Verdict: %s %s\n", a.IssueType, termfmt.CreateConfidenceBar(a.Confidence, f.opts)))
	if a.Summary != "" {
		b.WriteString(a.Summary + "\n")
	}

	if len(a.Recommendations) > 0 {
		b.WriteString("\n")
		symbol = termfmt.GetEmoji("recommendations", f.opts)
		b.WriteString(symbol + " Recommendations\n")
		for i, rec := range a.Recommendations {
			b.WriteString(fmt.Sprintf("%d. %s\n", i+1, rec))
		}
	}
}
