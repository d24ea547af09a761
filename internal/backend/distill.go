package backend

import (
	"regexp"
	"strings"

	"github.com/yildizm/go-logparser"
)

var logfmtMessage = regexp.MustCompile(`\b(?:msg|message)=`)

// DistillMessage reduces a raw backend log line to its human-readable
// message. Structured lines (JSON or logfmt) yield their inner message field;
// anything else comes back trimmed. Distillation never fails: a line the
// parser cannot handle is its own message.
func DistillMessage(raw string) string {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return ""
	}

	var format logparser.Format
	switch {
	case strings.HasPrefix(trimmed, "{"):
		format = logparser.FormatJSON
	case logfmtMessage.MatchString(trimmed):
		format = logparser.FormatLogfmt
	default:
		return trimmed
	}

	p := logparser.NewWithFormat(format)
	entries, err := p.ParseString(trimmed)
	if err != nil || len(entries) == 0 {
		return trimmed
	}
	if msg := strings.TrimSpace(entries[0].Message); msg != "" {
		return msg
	}
	return trimmed
}
