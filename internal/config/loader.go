package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	yaml "gopkg.in/yaml.v3"
)

// configPaths are the standard config locations, highest priority first.
var configPaths = []string{
	"./.bugscan.yaml",
	"~/.config/bugscan/config.yaml",
	"/etc/bugscan/config.yaml",
}

// Load builds the configuration: defaults, then the standard config files
// (or only customPath when given), then environment overrides, then
// validation.
func Load(customPath string) (*Config, error) {
	config := DefaultConfig()

	if customPath != "" {
		if err := validateConfigPath(customPath); err != nil {
			return nil, fmt.Errorf("invalid config path: %w", err)
		}
		if err := loadFromFile(config, customPath); err != nil {
			return nil, fmt.Errorf("failed to load config from %s: %w", customPath, err)
		}
	} else {
		// lowest priority first so later files win
		for i := len(configPaths) - 1; i >= 0; i-- {
			path := expandPath(configPaths[i])
			if !fileExists(path) {
				continue
			}
			if err := loadFromFile(config, path); err != nil {
				fmt.Fprintf(os.Stderr, "Warning: failed to load config from %s: %v\n", path, err)
			}
		}
	}

	if err := applyEnvOverrides(config); err != nil {
		return nil, fmt.Errorf("failed to apply environment overrides: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return config, nil
}

func loadFromFile(config *Config, path string) error {
	// #nosec G304 - path is validated or comes from the fixed search list
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read file: %w", err)
	}
	if err := yaml.Unmarshal(data, config); err != nil {
		return fmt.Errorf("failed to parse YAML: %w", err)
	}
	return nil
}

func applyEnvOverrides(config *Config) error {
	overrides := map[string]func(string) error{
		"BUGSCAN_SCAN_CONTEXT_LINES":    func(v string) error { return parseInt(v, &config.Scan.ContextLines) },
		"BUGSCAN_SCAN_PATTERNS_DIR":     func(v string) error { config.Scan.PatternsDir = v; return nil },
		"BUGSCAN_CORRELATE_TIME_WINDOW": func(v string) error { return parseDuration(v, &config.Correlate.TimeWindow) },
		"BUGSCAN_CORRELATE_MAX_FALLBACK_MATCHES": func(v string) error {
			return parseInt(v, &config.Correlate.MaxFallbackMatches)
		},
		"BUGSCAN_CORRELATE_CONCURRENCY": func(v string) error { return parseInt(v, &config.Correlate.Concurrency) },
		"BUGSCAN_BACKEND_SOURCE":        func(v string) error { config.Backend.Source = v; return nil },
		"BUGSCAN_BACKEND_FILE":          func(v string) error { config.Backend.File = v; return nil },
		"BUGSCAN_OPENSEARCH_ADDRESSES": func(v string) error {
			config.Backend.OpenSearch.Addresses = strings.Split(v, ",")
			return nil
		},
		"BUGSCAN_OPENSEARCH_USERNAME": func(v string) error { config.Backend.OpenSearch.Username = v; return nil },
		"BUGSCAN_OPENSEARCH_PASSWORD": func(v string) error { config.Backend.OpenSearch.Password = v; return nil },
		"BUGSCAN_OPENSEARCH_INDEX":    func(v string) error { config.Backend.OpenSearch.Index = v; return nil },
		"BUGSCAN_DOWNLOAD_TIMEOUT":    func(v string) error { return parseDuration(v, &config.Download.Timeout) },
		"BUGSCAN_WEBHOOK_URL":         func(v string) error { config.Webhook.URL = v; return nil },
		"BUGSCAN_WEBHOOK_ENABLED":     func(v string) error { return parseBool(v, &config.Webhook.Enabled) },
		"BUGSCAN_WEBHOOK_TIMEOUT":     func(v string) error { return parseDuration(v, &config.Webhook.Timeout) },
		"BUGSCAN_WEBHOOK_RETRIES":     func(v string) error { return parseInt(v, &config.Webhook.Retries) },
		"BUGSCAN_OUTPUT_FORMAT":       func(v string) error { config.Output.Format = v; return nil },
	}

	for name, apply := range overrides {
		value, ok := os.LookupEnv(name)
		if !ok || value == "" {
			continue
		}
		if err := apply(value); err != nil {
			return fmt.Errorf("%s: %w", name, err)
		}
	}
	return nil
}

func validateConfigPath(path string) error {
	if strings.TrimSpace(path) == "" {
		return fmt.Errorf("empty config path")
	}
	ext := strings.ToLower(filepath.Ext(filepath.Clean(path)))
	if ext != ".yaml" && ext != ".yml" {
		return fmt.Errorf("config files must have .yaml or .yml extension")
	}
	return nil
}

func expandPath(path string) string {
	if strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return path
		}
		return filepath.Join(home, path[2:])
	}
	return path
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}

func parseInt(s string, dst *int) error {
	val, err := strconv.Atoi(s)
	if err != nil {
		return fmt.Errorf("invalid integer %q: %w", s, err)
	}
	*dst = val
	return nil
}

func parseBool(s string, dst *bool) error {
	val, err := strconv.ParseBool(s)
	if err != nil {
		return fmt.Errorf("invalid boolean %q: %w", s, err)
	}
	*dst = val
	return nil
}

func parseDuration(s string, dst *time.Duration) error {
	val, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", s, err)
	}
	*dst = val
	return nil
}
