// Package report renders triage reports for humans and machines: terminal
// output for interactive runs, CSV for spreadsheets, JSON for automation and
// Markdown for issue trackers.
package report

import (
	"fmt"

	"github.com/sekai-app/bug-analysis-agent/internal/triage"
)

// Formatter renders a triage report.
type Formatter interface {
	Format(report *triage.Report) ([]byte, error)
}

// New returns the formatter for a format name.
func New(format string, color bool) (Formatter, error) {
	switch format {
	case "", "terminal", "text":
		return NewTerminal(color), nil
	case "json":
		return NewJSON(), nil
	case "csv":
		return NewCSV(), nil
	case "markdown", "md":
		return NewMarkdown(), nil
	default:
		return nil, fmt.Errorf("unsupported output format: %s", format)
	}
}
