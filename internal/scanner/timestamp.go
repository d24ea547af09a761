package scanner

import (
	"regexp"
	"strconv"
	"time"
)

// timestampPatterns are tried in order against each candidate line; the first
// capture wins. The set covers ISO-8601 with optional milliseconds and zone,
// plain datetimes, unix epochs in seconds or milliseconds, syslog style, and
// the bracketed short forms mobile app logs use.
var timestampPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(\d{4}-\d{2}-\d{2}[T\s]\d{2}:\d{2}:\d{2}(?:\.\d{3})?(?:Z|[+-]\d{2}:?\d{2})?)`),
	regexp.MustCompile(`(\d{4}-\d{2}-\d{2} \d{2}:\d{2}:\d{2})`),
	regexp.MustCompile(`\b(\d{10,13})\b`),
	regexp.MustCompile(`([A-Za-z]{3} {1,2}\d{1,2} \d{2}:\d{2}:\d{2})`),
	regexp.MustCompile(`\[(\d{2}-\d{2} \d{2}:\d{2}:\d{2})\]`),
	regexp.MustCompile(`\[(\d{2}:\d{2}:\d{2}(?:\.\d{3})?)\]`),
}

// ExtractTimestamp returns the raw text of the first timestamp found in the
// lines, or "" when none of the patterns hit.
func ExtractTimestamp(lines []string) string {
	for _, line := range lines {
		for _, p := range timestampPatterns {
			if m := p.FindStringSubmatch(line); m != nil {
				return m[1]
			}
		}
	}
	return ""
}

// Layouts missing a date component are filled from the wall clock at parse
// time, matching how short mobile-log timestamps are interpreted.
const (
	fillNone = iota
	fillYear
	fillDate
)

var timestampLayouts = []struct {
	layout string
	fill   int
}{
	{time.RFC3339Nano, fillNone},
	{time.RFC3339, fillNone},
	{"2006-01-02T15:04:05.000Z0700", fillNone},
	{"2006-01-02T15:04:05Z0700", fillNone},
	{"2006-01-02T15:04:05.000", fillNone},
	{"2006-01-02T15:04:05", fillNone},
	{"2006-01-02 15:04:05.000Z07:00", fillNone},
	{"2006-01-02 15:04:05Z07:00", fillNone},
	{"2006-01-02 15:04:05.000", fillNone},
	{"2006-01-02 15:04:05", fillNone},
	{"01-02 15:04:05", fillYear},
	{"15:04:05.000", fillDate},
	{"15:04:05", fillDate},
	{time.Stamp, fillYear},
}

var allDigits = regexp.MustCompile(`^\d+$`)

// ParseTimestamp parses a raw timestamp string extracted from a log line. The
// boolean is false when the text matches no known layout. Unparseable
// timestamps are not an error: the event simply carries no parsed time and is
// skipped by time-window correlation.
func ParseTimestamp(s string) (time.Time, bool) {
	if s == "" {
		return time.Time{}, false
	}

	if allDigits.MatchString(s) {
		n, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return time.Time{}, false
		}
		if n > 1e10 { // milliseconds
			return time.UnixMilli(n), true
		}
		return time.Unix(n, 0), true
	}

	now := time.Now()
	for _, tl := range timestampLayouts {
		t, err := time.Parse(tl.layout, s)
		if err != nil {
			continue
		}
		switch tl.fill {
		case fillYear:
			t = time.Date(now.Year(), t.Month(), t.Day(),
				t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), t.Location())
		case fillDate:
			t = time.Date(now.Year(), now.Month(), now.Day(),
				t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), t.Location())
		}
		return t, true
	}

	return time.Time{}, false
}
