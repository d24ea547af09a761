// Package config holds the tool configuration: scanning, correlation,
// backend access, downloads, webhook delivery and output. Values come from
// built-in defaults, then YAML files, then environment overrides.
package config

import (
	"fmt"
	"time"

	"github.com/sekai-app/bug-analysis-agent/internal/backend"
)

// Config is the complete tool configuration.
type Config struct {
	Scan      ScanConfig      `yaml:"scan" json:"scan"`
	Correlate CorrelateConfig `yaml:"correlate" json:"correlate"`
	Backend   BackendConfig   `yaml:"backend" json:"backend"`
	Download  DownloadConfig  `yaml:"download" json:"download"`
	Webhook   WebhookConfig   `yaml:"webhook" json:"webhook"`
	Output    OutputConfig    `yaml:"output" json:"output"`
}

// ScanConfig controls frontend log scanning.
type ScanConfig struct {
	ContextLines int    `yaml:"context_lines" json:"context_lines"` // context radius around each error
	PatternsDir  string `yaml:"patterns_dir" json:"patterns_dir"`   // extra pattern YAML files
}

// CorrelateConfig controls event-to-backend correlation.
type CorrelateConfig struct {
	TimeWindow             time.Duration `yaml:"time_window" json:"time_window"`
	MaxFallbackMatches     int           `yaml:"max_fallback_matches" json:"max_fallback_matches"`
	GlobalDedup            bool          `yaml:"global_dedup" json:"global_dedup"`
	FallbackAfterExactMiss bool          `yaml:"fallback_after_exact_miss" json:"fallback_after_exact_miss"`
	Concurrency            int           `yaml:"concurrency" json:"concurrency"`
	WindowPatterns         []string      `yaml:"window_patterns" json:"window_patterns"`
}

// BackendConfig selects and configures the backend log store.
type BackendConfig struct {
	// Source is "opensearch", "file" for a local entry dump, or "none".
	Source     string                   `yaml:"source" json:"source"`
	OpenSearch backend.OpenSearchConfig `yaml:"opensearch" json:"opensearch"`
	File       string                   `yaml:"file" json:"file"`
}

// DownloadConfig controls frontend log downloads.
type DownloadConfig struct {
	Timeout time.Duration `yaml:"timeout" json:"timeout"`
}

// WebhookConfig controls completion notifications.
type WebhookConfig struct {
	URL     string        `yaml:"url" json:"url"`
	Enabled bool          `yaml:"enabled" json:"enabled"`
	Timeout time.Duration `yaml:"timeout" json:"timeout"`
	Retries int           `yaml:"retries" json:"retries"`
}

// OutputConfig controls report rendering.
type OutputConfig struct {
	Format  string `yaml:"format" json:"format"` // terminal|json|csv|markdown
	NoColor bool   `yaml:"no_color" json:"no_color"`
	CSVFile string `yaml:"csv_file" json:"csv_file"` // also write the CSV report here
}

// DefaultConfig returns the built-in defaults.
func DefaultConfig() *Config {
	return &Config{
		Scan: ScanConfig{
			ContextLines: 10,
		},
		Correlate: CorrelateConfig{
			TimeWindow:             2 * time.Minute,
			MaxFallbackMatches:     3,
			GlobalDedup:            true,
			FallbackAfterExactMiss: true,
			Concurrency:            4,
		},
		Backend: BackendConfig{
			Source: "none",
		},
		Download: DownloadConfig{
			Timeout: 30 * time.Second,
		},
		Webhook: WebhookConfig{
			Timeout: 10 * time.Second,
			Retries: 3,
		},
		Output: OutputConfig{
			Format: "terminal",
		},
	}
}

// Validate checks the configuration for values the tool cannot run with.
func (c *Config) Validate() error {
	if c.Scan.ContextLines < 0 {
		return fmt.Errorf("scan.context_lines cannot be negative, got %d", c.Scan.ContextLines)
	}
	if c.Correlate.TimeWindow <= 0 {
		return fmt.Errorf("correlate.time_window must be positive, got %v", c.Correlate.TimeWindow)
	}
	if c.Correlate.MaxFallbackMatches < 0 {
		return fmt.Errorf("correlate.max_fallback_matches cannot be negative, got %d", c.Correlate.MaxFallbackMatches)
	}
	if c.Correlate.Concurrency <= 0 {
		return fmt.Errorf("correlate.concurrency must be positive, got %d", c.Correlate.Concurrency)
	}

	switch c.Backend.Source {
	case "none", "file", "opensearch":
	default:
		return fmt.Errorf("backend.source must be none, file or opensearch, got %q", c.Backend.Source)
	}
	if c.Backend.Source == "file" && c.Backend.File == "" {
		return fmt.Errorf("backend.file is required when backend.source is file")
	}
	if c.Backend.Source == "opensearch" {
		if len(c.Backend.OpenSearch.Addresses) == 0 {
			return fmt.Errorf("backend.opensearch.addresses is required when backend.source is opensearch")
		}
		if c.Backend.OpenSearch.Index == "" {
			return fmt.Errorf("backend.opensearch.index is required when backend.source is opensearch")
		}
	}

	if c.Download.Timeout <= 0 {
		return fmt.Errorf("download.timeout must be positive, got %v", c.Download.Timeout)
	}
	if c.Webhook.Retries < 0 {
		return fmt.Errorf("webhook.retries cannot be negative, got %d", c.Webhook.Retries)
	}

	switch c.Output.Format {
	case "", "terminal", "text", "json", "csv", "markdown", "md":
	default:
		return fmt.Errorf("output.format must be terminal, json, csv or markdown, got %q", c.Output.Format)
	}

	return nil
}
