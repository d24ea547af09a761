package cli

import (
	"os"
	"path/filepath"
	"testing"
)

func TestAssembleUserReportFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "report.yaml")
	content := `username: alice
user_id: u-42
log_url: https://cdn.example.com/exports/app.log
feedback: audio cuts out
platform: ios
`
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}

	userReport, err := assembleUserReport([]string{path})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if userReport.Username != "alice" {
		t.Errorf("username = %q, want alice", userReport.Username)
	}
	if userReport.LogURL != "https://cdn.example.com/exports/app.log" {
		t.Errorf("log_url = %q", userReport.LogURL)
	}
	if userReport.Platform != "ios" {
		t.Errorf("platform = %q, want ios", userReport.Platform)
	}
}

func TestAssembleUserReportFlagOverrides(t *testing.T) {
	analyzeURL = "https://cdn.example.com/exports/other.log"
	analyzeFeedback = "crash on startup"
	defer func() {
		analyzeURL = ""
		analyzeFeedback = ""
	}()

	userReport, err := assembleUserReport(nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if userReport.LogURL != analyzeURL {
		t.Errorf("log_url = %q, want %q", userReport.LogURL, analyzeURL)
	}
	if userReport.Feedback != "crash on startup" {
		t.Errorf("feedback = %q", userReport.Feedback)
	}
}

func TestAssembleUserReportRequiresLogSource(t *testing.T) {
	if _, err := assembleUserReport(nil); err == nil {
		t.Error("expected error when no log URL or log file is given")
	}
}

func TestIsReportFile(t *testing.T) {
	tests := []struct {
		path string
		want bool
	}{
		{"inbox/report.yaml", true},
		{"inbox/report.yml", true},
		{"inbox/report.json", true},
		{"inbox/report.report.json", false},
		{"inbox/app.log", false},
		{"inbox/notes.txt", false},
	}
	for _, tt := range tests {
		if got := isReportFile(tt.path); got != tt.want {
			t.Errorf("isReportFile(%q) = %v, want %v", tt.path, got, tt.want)
		}
	}
}

func TestReportOutputPath(t *testing.T) {
	tests := []struct {
		path   string
		format string
		want   string
	}{
		{"inbox/bug.yaml", "json", "inbox/bug.report.json"},
		{"inbox/bug.yaml", "markdown", "inbox/bug.report.md"},
		{"inbox/bug.json", "csv", "inbox/bug.report.csv"},
		{"inbox/bug.yml", "terminal", "inbox/bug.report.txt"},
	}
	for _, tt := range tests {
		if got := reportOutputPath(tt.path, tt.format); got != tt.want {
			t.Errorf("reportOutputPath(%q, %q) = %q, want %q", tt.path, tt.format, got, tt.want)
		}
	}
}

func TestBuildPipelineDefaults(t *testing.T) {
	cfg, err := loadConfig()
	if err != nil {
		t.Fatalf("loadConfig: %v", err)
	}
	if _, err := buildPipeline(cfg); err != nil {
		t.Fatalf("buildPipeline with defaults: %v", err)
	}
}

func TestBuildSearcherUnknownSource(t *testing.T) {
	cfg, err := loadConfig()
	if err != nil {
		t.Fatalf("loadConfig: %v", err)
	}
	cfg.Backend.Source = "dynamo"
	if _, err := buildSearcher(cfg); err == nil {
		t.Error("expected error for unknown backend source")
	}
}
