package scanner

import (
	"regexp"
	"strings"
)

// identifierPattern matches request-identifier declarations in both plain and
// JSON renderings:
//
//	"request_id": "some-id"
//	request_id: some-id
//	request-id=some-id
//	requestId some-id
//	req=some-id
var identifierPattern = regexp.MustCompile(
	`(?i)"?(?:request[_-]?id|requestId|req[_-]?id|req)"?[:=\s]+["']?([a-zA-Z0-9\-_]+)["']?`)

// invalidIdentifiers are placeholder values that must never drive a backend
// search.
var invalidIdentifiers = map[string]bool{
	"null":      true,
	"none":      true,
	"undefined": true,
	"nil":       true,
	"empty":     true,
}

// ValidIdentifier reports whether a token is usable for correlation. Short
// tokens are rejected: real request identifiers are 6+ characters.
func ValidIdentifier(id string) bool {
	if id == "" || len(id) < 6 {
		return false
	}
	return !invalidIdentifiers[strings.ToLower(id)]
}

// ExtractIdentifiers collects every valid identifier found in the lines,
// de-duplicated in first-occurrence order.
func ExtractIdentifiers(lines []string) []string {
	var ids []string
	seen := make(map[string]bool)

	for _, line := range lines {
		for _, m := range identifierPattern.FindAllStringSubmatch(line, -1) {
			id := m[1]
			if ValidIdentifier(id) && !seen[id] {
				ids = append(ids, id)
				seen[id] = true
			}
		}
	}

	return ids
}

// FirstIdentifier returns the first valid identifier in the text, or "".
// Backend adapters use it to tag entries with the identifier embedded in
// their message.
func FirstIdentifier(text string) string {
	for _, m := range identifierPattern.FindAllStringSubmatch(text, -1) {
		if ValidIdentifier(m[1]) {
			return m[1]
		}
	}
	return ""
}
