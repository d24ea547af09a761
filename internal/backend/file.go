package backend

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"sort"
)

// LoadEntriesFile reads backend entries from a JSON dump, either a top-level
// array or one object per line. Entries are sorted by timestamp so searches
// over the dump behave like searches over a live store.
func LoadEntriesFile(path string) ([]*Entry, error) {
	// #nosec G304 - path comes from operator configuration
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read backend dump: %w", err)
	}

	var entries []*Entry
	if err := json.Unmarshal(data, &entries); err != nil {
		entries, err = decodeLines(data)
		if err != nil {
			return nil, fmt.Errorf("failed to parse backend dump: %w", err)
		}
	}

	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].Timestamp.Before(entries[j].Timestamp)
	})
	return entries, nil
}

func decodeLines(data []byte) ([]*Entry, error) {
	var entries []*Entry
	start := 0
	for i := 0; i <= len(data); i++ {
		if i != len(data) && data[i] != '\n' {
			continue
		}
		line := bytes.TrimSpace(data[start:i])
		start = i + 1
		if len(line) == 0 {
			continue
		}
		var entry Entry
		if err := json.Unmarshal(line, &entry); err != nil {
			return nil, err
		}
		entries = append(entries, &entry)
	}
	return entries, nil
}
