package scanner

import (
	"fmt"
	"regexp"

	"github.com/sekai-app/bug-analysis-agent/internal/common"
)

// catalogEntry is one compiled error matcher. Built-ins are evaluated in the
// order they are declared; the first match on a line wins.
type catalogEntry struct {
	kind  string
	regex *regexp.Regexp
}

// Catalog maps log lines to error kinds. The built-in matchers are fixed and
// ordered by priority: explicit log-level markers, then exception/error
// tokens, then network failures, then timeouts, then crash/failure phrases.
// Caller-supplied patterns are appended after the built-ins.
type Catalog struct {
	entries []catalogEntry
}

// builtinPatterns lists the built-in matchers in priority order. Order is
// part of the contract: classification must be deterministic for a line that
// matches several kinds.
var builtinPatterns = []struct {
	expr string
	kind string
}{
	// explicit log-level markers
	{`\[E\]`, "EXPLICIT_ERROR"},
	{`\[ERROR\]`, "LOG_ERROR"},
	{`\[FATAL\]`, "LOG_FATAL"},
	{`\[CRITICAL\]`, "LOG_CRITICAL"},

	// exception / error tokens
	{`\bRangeError\b`, "RANGE_ERROR"},
	{`\bTypeError\b`, "TYPE_ERROR"},
	{`\bReferenceError\b`, "REFERENCE_ERROR"},
	{`\bSyntaxError\b`, "SYNTAX_ERROR"},
	{`\bException:`, "EXCEPTION"},
	{`^Exception\b`, "EXCEPTION"},
	{`\bError:`, "ERROR_MESSAGE"},
	{`^Error\b`, "ERROR_MESSAGE"},

	// network failures
	{`\bNetworkError\b`, "NETWORK_ERROR"},
	{`cannot connect`, "CONNECTION_FAILURE"},
	{`request failed`, "REQUEST_FAILURE"},

	// timeouts
	{`timeout`, "TIMEOUT"},

	// crash / failure phrases
	{`\bFATAL\b`, "FATAL"},
	{`\bCRITICAL\b`, "CRITICAL"},
	{`\bcrash\b`, "CRASH"},
	{`\bfailed to\b`, "FAILURE"},
	{`\bunable to\b`, "UNABLE"},
}

// NewCatalog builds a catalog with the built-in matchers.
func NewCatalog() *Catalog {
	c := &Catalog{entries: make([]catalogEntry, 0, len(builtinPatterns))}
	for _, p := range builtinPatterns {
		c.entries = append(c.entries, catalogEntry{
			kind:  p.kind,
			regex: regexp.MustCompile(`(?i)` + p.expr),
		})
	}
	return c
}

// AddPattern appends a caller-supplied matcher after the built-ins.
func (c *Catalog) AddPattern(p *common.Pattern) error {
	if p.Kind == "" {
		return fmt.Errorf("pattern must have a kind")
	}
	if p.Regex == "" {
		return fmt.Errorf("pattern %s must have a regex", p.Kind)
	}
	re, err := regexp.Compile(`(?i)` + p.Regex)
	if err != nil {
		return fmt.Errorf("failed to compile pattern %s: %w", p.Kind, err)
	}
	c.entries = append(c.entries, catalogEntry{kind: p.Kind, regex: re})
	return nil
}

// AddPatterns appends multiple caller-supplied matchers, preserving order.
func (c *Catalog) AddPatterns(patterns []*common.Pattern) error {
	for _, p := range patterns {
		if err := c.AddPattern(p); err != nil {
			return err
		}
	}
	return nil
}

// Match returns the kind of the first matcher that hits the line, in
// priority order, or "" when no matcher hits.
func (c *Catalog) Match(line string) string {
	for _, e := range c.entries {
		if e.regex.MatchString(line) {
			return e.kind
		}
	}
	return ""
}

// Kinds returns the error kinds in evaluation order. Built-in kinds come
// first; duplicates (EXCEPTION appears twice) are collapsed.
func (c *Catalog) Kinds() []string {
	seen := make(map[string]bool, len(c.entries))
	kinds := make([]string, 0, len(c.entries))
	for _, e := range c.entries {
		if seen[e.kind] {
			continue
		}
		seen[e.kind] = true
		kinds = append(kinds, e.kind)
	}
	return kinds
}
