// Package scanner detects error events in frontend log text. It classifies
// lines against an ordered pattern catalog, extracts surrounding context,
// harvests request identifiers and timestamps from nearby lines, and
// de-duplicates repeated occurrences of the same error shape.
package scanner

import (
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/sekai-app/bug-analysis-agent/internal/common"
)

const (
	// DefaultContextLines is the context radius used when the caller does
	// not configure one.
	DefaultContextLines = 10

	// identifierRadius is the fixed radius, in lines, of the window
	// scanned for request identifiers around each error line. It is not
	// configurable and does not track the context radius.
	identifierRadius = 5

	// timestampRadius is the fixed radius scanned for a timestamp around
	// each error line.
	timestampRadius = 2
)

// exclusionMarkers identify informational lines that must never be treated as
// errors, whatever else they contain.
var exclusionMarkers = []string{"[I]", "[INFO]", "[D]", "[DEBUG]", "[TRACE]"}

// exclusionPhrases match benign lines that happen to contain error keywords,
// such as config flags, success codes and callback names. Matched against the
// lowercased line.
var exclusionPhrases = []*regexp.Regexp{
	regexp.MustCompile(`receivedatawhenstatuserror`),
	regexp.MustCompile(`error.*:.*true`),
	regexp.MustCompile(`error.*=.*true`),
	regexp.MustCompile(`errorcallback`),
	regexp.MustCompile(`error_code.*=.*0`),
	regexp.MustCompile(`no error`),
	regexp.MustCompile(`0 errors`),
	regexp.MustCompile(`error handling`),
	regexp.MustCompile(`error recovery`),
}

// Scanner scans log text for error events.
type Scanner struct {
	catalog *Catalog
}

// New creates a scanner with the built-in pattern catalog.
func New() *Scanner {
	return &Scanner{catalog: NewCatalog()}
}

// NewWithPatterns creates a scanner whose catalog is extended with custom
// patterns, evaluated after the built-ins.
func NewWithPatterns(patterns []*common.Pattern) (*Scanner, error) {
	s := New()
	if err := s.catalog.AddPatterns(patterns); err != nil {
		return nil, err
	}
	return s, nil
}

// Catalog returns the scanner's pattern catalog.
func (s *Scanner) Catalog() *Catalog {
	return s.catalog
}

// Scan walks the log text line by line and returns the unique error events it
// finds, in order of first occurrence. contextLines is the radius of the
// context window around each error line; negative values are treated as zero.
//
// Text that is not valid UTF-8 fails the whole scan with ErrDecode. Download
// callers are expected to have transcoded legacy encodings before scanning.
func (s *Scanner) Scan(text string, contextLines int) ([]*common.ErrorEvent, error) {
	if !utf8.ValidString(text) {
		return nil, common.ErrDecode
	}
	if contextLines < 0 {
		contextLines = 0
	}

	lines := strings.Split(text, "\n")
	events := []*common.ErrorEvent{}
	seen := make(map[string]bool)

	for i, line := range lines {
		if excludeLine(line) {
			continue
		}

		kind := s.catalog.Match(line)
		if kind == "" {
			continue
		}

		event := buildEvent(lines, i, kind, contextLines)

		sig := eventSignature(event)
		if seen[sig] {
			continue
		}
		seen[sig] = true
		events = append(events, event)
	}

	return events, nil
}

// buildEvent assembles the event for the error at index: clamped context,
// identifiers from the fixed identifier window, and the first timestamp found
// near the error line.
func buildEvent(lines []string, index int, kind string, contextLines int) *common.ErrorEvent {
	start, end := clampWindow(index, len(lines), contextLines)

	event := &common.ErrorEvent{
		LineNumber:    index + 1,
		Kind:          kind,
		Message:       strings.TrimSpace(lines[index]),
		Identifiers:   ExtractIdentifiers(window(lines, index, identifierRadius)),
		ContextBefore: append([]string(nil), lines[start:index]...),
		ContextAfter:  append([]string(nil), lines[index+1:end]...),
	}

	event.Timestamp = ExtractTimestamp(window(lines, index, timestampRadius))
	if t, ok := ParseTimestamp(event.Timestamp); ok {
		event.Time = t
	}

	return event
}

// excludeLine reports whether a line is informational noise that must not be
// classified, even when it would match an error pattern.
func excludeLine(line string) bool {
	for _, marker := range exclusionMarkers {
		if strings.Contains(line, marker) {
			return true
		}
	}

	lower := strings.ToLower(line)
	for _, p := range exclusionPhrases {
		if p.MatchString(lower) {
			return true
		}
	}
	return false
}

var (
	sigTimestamps = []*regexp.Regexp{
		regexp.MustCompile(`\d{4}-\d{2}-\d{2}[T\s]\d{2}:\d{2}:\d{2}(?:\.\d{3})?(?:Z|[+-]\d{2}:?\d{2})?`),
		regexp.MustCompile(`\[\d{2}-\d{2} \d{2}:\d{2}:\d{2}\]`),
	}
	sigNumbers = regexp.MustCompile(`\b\d+\b`)
	sigAddrs   = regexp.MustCompile(`0x[0-9a-fA-F]+`)
	sigPaths   = regexp.MustCompile(`[/\\][\w/\\.-]+[/\\](\w+\.\w+)`)
)

// eventSignature derives the dedup key for an event: the kind plus the error
// line with timestamps stripped and volatile fragments (numbers, addresses,
// paths) normalized, so repeats of the same error collapse even when their
// line numbers or pointers differ.
func eventSignature(event *common.ErrorEvent) string {
	msg := event.Message
	msg = sigAddrs.ReplaceAllString(msg, "0xADDR")
	for _, p := range sigTimestamps {
		msg = p.ReplaceAllString(msg, "")
	}
	msg = sigNumbers.ReplaceAllString(msg, "N")
	msg = sigPaths.ReplaceAllString(msg, "$1")
	msg = common.NormalizeMessage(msg)
	return event.Kind + ":" + strings.ToLower(msg)
}
