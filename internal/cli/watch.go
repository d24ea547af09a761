package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"
	yaml "gopkg.in/yaml.v3"

	"github.com/sekai-app/bug-analysis-agent/internal/common"
	"github.com/sekai-app/bug-analysis-agent/internal/config"
	"github.com/sekai-app/bug-analysis-agent/internal/report"
	"github.com/sekai-app/bug-analysis-agent/internal/triage"
)

// debounceWindow suppresses duplicate filesystem events for the same report
// file, which editors and uploaders produce in bursts.
const debounceWindow = 2 * time.Second

func newWatchCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "watch <directory>",
		Short: "Watch a directory for incoming bug reports",
		Long: `Watch a drop directory and triage each report file that appears.

Report files are YAML or JSON documents with the user details and log URL.
Results are written next to each report. Press Ctrl+C to stop.

Example:
  bugscan watch ./inbox`,
		Args: cobra.ExactArgs(1),
		RunE: runWatch,
	}
}

func runWatch(cmd *cobra.Command, args []string) error {
	dir := args[0]

	info, err := os.Stat(dir)
	if err != nil {
		return fmt.Errorf("cannot watch %s: %w", dir, err)
	}
	if !info.IsDir() {
		return fmt.Errorf("%s is not a directory", dir)
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	pipeline, err := buildPipeline(cfg)
	if err != nil {
		return err
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	defer closeWatcher(watcher)

	if err := watcher.Add(dir); err != nil {
		return fmt.Errorf("failed to watch %s: %w", dir, err)
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	fmt.Printf("Watching %s for bug reports (Ctrl+C to stop)\n", dir)
	return watchLoop(ctx, cfg, pipeline, watcher)
}

func watchLoop(ctx context.Context, cfg *config.Config, pipeline *triage.Pipeline, watcher *fsnotify.Watcher) error {
	lastSeen := make(map[string]time.Time)

	for {
		select {
		case <-ctx.Done():
			fmt.Println("\nStopping watch")
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Write) {
				continue
			}
			if !isReportFile(event.Name) {
				continue
			}
			if seen, ok := lastSeen[event.Name]; ok && time.Since(seen) < debounceWindow {
				continue
			}
			lastSeen[event.Name] = time.Now()

			if err := processReportFile(ctx, cfg, pipeline, event.Name); err != nil {
				fmt.Fprintf(os.Stderr, "Failed to triage %s: %v\n", event.Name, err)
			}

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			fmt.Fprintf(os.Stderr, "Watch error: %v\n", err)
		}
	}
}

func isReportFile(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml", ".json":
		return !strings.Contains(filepath.Base(path), ".report.")
	default:
		return false
	}
}

func processReportFile(ctx context.Context, cfg *config.Config, pipeline *triage.Pipeline, path string) error {
	fmt.Printf("Triaging %s\n", path)

	// #nosec G304 - path comes from the watched directory
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read report: %w", err)
	}

	userReport := &common.UserReport{}
	if err := yaml.Unmarshal(data, userReport); err != nil {
		return fmt.Errorf("failed to parse report: %w", err)
	}

	result, err := pipeline.Run(ctx, userReport)
	if err != nil {
		return err
	}

	formatter, err := report.New(cfg.Output.Format, false)
	if err != nil {
		return err
	}
	output, err := formatter.Format(result)
	if err != nil {
		return fmt.Errorf("failed to format report: %w", err)
	}

	outPath := reportOutputPath(path, cfg.Output.Format)
	if err := os.WriteFile(outPath, output, 0o600); err != nil {
		return fmt.Errorf("failed to write result: %w", err)
	}
	fmt.Printf("Wrote %s\n", outPath)
	return nil
}

func reportOutputPath(path, format string) string {
	ext := ".txt"
	switch format {
	case "json":
		ext = ".json"
	case "csv":
		ext = ".csv"
	case "markdown", "md":
		ext = ".md"
	}
	base := strings.TrimSuffix(path, filepath.Ext(path))
	return base + ".report" + ext
}

func closeWatcher(watcher *fsnotify.Watcher) {
	if err := watcher.Close(); err != nil && isVerbose() {
		fmt.Fprintf(os.Stderr, "Warning: failed to close watcher: %v\n", err)
	}
}
