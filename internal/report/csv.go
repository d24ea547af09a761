package report

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/sekai-app/bug-analysis-agent/internal/correlate"
	"github.com/sekai-app/bug-analysis-agent/internal/triage"
)

// csvFormatter writes one row per correlation record. The column set is the
// interchange format downstream triage sheets expect.
type csvFormatter struct{}

// NewCSV creates a CSV formatter.
func NewCSV() Formatter {
	return &csvFormatter{}
}

var csvColumns = []string{
	"frontend_line_number",
	"frontend_timestamp",
	"frontend_error_type",
	"frontend_message",
	"frontend_request_ids",
	"backend_timestamp",
	"backend_message",
	"backend_log_group",
	"backend_log_stream",
	"backend_request_id",
	"matched_request_id",
	"correlation_method",
	"time_diff_seconds",
}

func (f *csvFormatter) Format(report *triage.Report) ([]byte, error) {
	var b bytes.Buffer
	writer := csv.NewWriter(&b)

	if err := writer.Write(csvColumns); err != nil {
		return nil, fmt.Errorf("failed to write CSV header: %w", err)
	}

	if report.Correlation != nil {
		for _, record := range report.Correlation.Records {
			if err := writer.Write(csvRow(record)); err != nil {
				return nil, fmt.Errorf("failed to write CSV row: %w", err)
			}
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, fmt.Errorf("failed to flush CSV: %w", err)
	}
	return b.Bytes(), nil
}

func csvRow(r *correlate.Record) []string {
	row := []string{
		strconv.Itoa(r.Event.LineNumber),
		r.Event.Timestamp,
		r.Event.Kind,
		r.Event.Message,
		strings.Join(r.Event.Identifiers, ","),
		"", // backend_timestamp
		"", // backend_message
		"", // backend_log_group
		"", // backend_log_stream
		"", // backend_request_id
		r.MatchedIdentifier,
		string(r.Method),
		"", // time_diff_seconds
	}

	if r.Backend != nil {
		if !r.Backend.Timestamp.IsZero() {
			row[5] = r.Backend.Timestamp.Format(time.RFC3339)
		}
		row[6] = strings.TrimSpace(r.Backend.Message)
		row[7] = r.Backend.LogGroup
		row[8] = r.Backend.LogStream
		row[9] = r.Backend.Identifier
	}
	if r.HasTimeOffset {
		row[12] = strconv.FormatFloat(r.TimeOffsetSeconds, 'f', -1, 64)
	}
	return row
}
