package common

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	yaml "gopkg.in/yaml.v3"
)

// Pattern is a caller-supplied error pattern: a regex matcher tagged with the
// error kind it classifies. Custom patterns extend the built-in catalog; they
// never replace or reorder it.
type Pattern struct {
	Kind        string `yaml:"kind" json:"kind"`
	Regex       string `yaml:"regex" json:"regex"`
	Description string `yaml:"description,omitempty" json:"description,omitempty"`
}

// LoadPatternsFromFile loads custom patterns from a single YAML file. The
// file may contain one pattern or a list of patterns.
func LoadPatternsFromFile(filename string) ([]*Pattern, error) {
	if err := validatePatternFilePath(filename); err != nil {
		return nil, fmt.Errorf("invalid file path: %w", err)
	}

	// #nosec G304 - path is validated above
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}

	var pattern Pattern
	if err := yaml.Unmarshal(data, &pattern); err == nil && pattern.Kind != "" {
		return []*Pattern{&pattern}, nil
	}

	var patterns []*Pattern
	if err := yaml.Unmarshal(data, &patterns); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	return patterns, nil
}

// LoadPatternsFromDir loads every pattern file in a directory tree.
func LoadPatternsFromDir(directory string) ([]*Pattern, error) {
	var patterns []*Pattern

	err := filepath.Walk(directory, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if !info.IsDir() && (strings.HasSuffix(path, ".yaml") || strings.HasSuffix(path, ".yml")) {
			filePatterns, err := LoadPatternsFromFile(path)
			if err != nil {
				// skip unreadable files, keep walking
				return nil
			}
			patterns = append(patterns, filePatterns...)
		}
		return nil
	})

	return patterns, err
}

// validatePatternFilePath validates that a pattern file path is safe to read.
func validatePatternFilePath(path string) error {
	if strings.TrimSpace(path) == "" {
		return fmt.Errorf("empty file path")
	}

	cleanPath := filepath.Clean(path)

	ext := strings.ToLower(filepath.Ext(cleanPath))
	if ext != ".yaml" && ext != ".yml" {
		return fmt.Errorf("pattern files must have .yaml or .yml extension")
	}

	return nil
}
