package report

import (
	"encoding/json"
	"fmt"

	"github.com/sekai-app/bug-analysis-agent/internal/triage"
)

type jsonFormatter struct{}

// NewJSON creates a JSON formatter. The output is the full triage report,
// indented.
func NewJSON() Formatter {
	return &jsonFormatter{}
}

func (f *jsonFormatter) Format(report *triage.Report) ([]byte, error) {
	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal report: %w", err)
	}
	return append(data, '\n'), nil
}
