package cli

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	yaml "gopkg.in/yaml.v3"

	"github.com/sekai-app/bug-analysis-agent/internal/common"
	"github.com/sekai-app/bug-analysis-agent/internal/config"
	"github.com/sekai-app/bug-analysis-agent/internal/report"
	"github.com/sekai-app/bug-analysis-agent/internal/triage"
	"github.com/sekai-app/bug-analysis-agent/internal/webhook"
)

var (
	analyzeURL        string
	analyzeLogFile    string
	analyzeFeedback   string
	analyzeUsername   string
	analyzeUserID     string
	analyzePlatform   string
	analyzeOSVersion  string
	analyzeAppVersion string
	analyzeEnv        string
	analyzeTimeout    time.Duration
	analyzeOutputFile string
	analyzeCSVFile    string
	analyzeNotify     bool
)

func newAnalyzeCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "analyze [report-file]",
		Short: "Triage a single bug report",
		Long: `Triage one bug report end to end.

The report can be a YAML or JSON file with the user details and log URL,
or assembled from flags. A local log file skips the download step.

Examples:
  bugscan analyze report.yaml
  bugscan analyze --url https://cdn.example.com/exports/app.log --feedback "audio broken"
  bugscan analyze --log-file ./app.log --feedback "crash on startup" -o json`,
		Args: cobra.MaximumNArgs(1),
		RunE: runAnalyze,
	}

	cmd.Flags().StringVar(&analyzeURL, "url", "", "frontend log URL")
	cmd.Flags().StringVar(&analyzeLogFile, "log-file", "", "local frontend log file (skips download)")
	cmd.Flags().StringVar(&analyzeFeedback, "feedback", "", "user feedback text")
	cmd.Flags().StringVar(&analyzeUsername, "username", "", "reporting user's name")
	cmd.Flags().StringVar(&analyzeUserID, "user-id", "", "reporting user's id")
	cmd.Flags().StringVar(&analyzePlatform, "platform", "", "client platform (ios, android, web)")
	cmd.Flags().StringVar(&analyzeOSVersion, "os-version", "", "client OS version")
	cmd.Flags().StringVar(&analyzeAppVersion, "app-version", "", "client app version")
	cmd.Flags().StringVar(&analyzeEnv, "env", "", "environment the report came from")
	cmd.Flags().DurationVar(&analyzeTimeout, "timeout", 5*time.Minute, "overall triage timeout")
	cmd.Flags().StringVar(&analyzeOutputFile, "output-file", "", "write the report here instead of stdout")
	cmd.Flags().StringVar(&analyzeCSVFile, "csv-file", "", "also write the CSV correlation report here")
	cmd.Flags().BoolVar(&analyzeNotify, "notify", false, "send the configured webhook notification")

	return cmd
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	userReport, err := assembleUserReport(args)
	if err != nil {
		return err
	}

	pipeline, err := buildPipeline(cfg)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), analyzeTimeout)
	defer cancel()

	result, runErr := runTriage(ctx, pipeline, userReport)
	if analyzeNotify || cfg.Webhook.Enabled {
		notify(ctx, cfg, userReport, result, runErr)
	}
	if runErr != nil {
		return runErr
	}

	return writeReports(cfg, result)
}

func runTriage(ctx context.Context, pipeline *triage.Pipeline, userReport *common.UserReport) (*triage.Report, error) {
	if analyzeLogFile != "" {
		// #nosec G304 - operator-supplied path
		content, err := os.ReadFile(analyzeLogFile)
		if err != nil {
			return nil, fmt.Errorf("failed to read log file: %w", err)
		}
		return pipeline.RunWithContent(ctx, userReport, string(content))
	}
	return pipeline.Run(ctx, userReport)
}

// assembleUserReport builds the report from a file argument plus flag
// overrides.
func assembleUserReport(args []string) (*common.UserReport, error) {
	userReport := &common.UserReport{}

	if len(args) == 1 {
		// #nosec G304 - operator-supplied path
		data, err := os.ReadFile(args[0])
		if err != nil {
			return nil, fmt.Errorf("failed to read report file: %w", err)
		}
		// YAML is a JSON superset, so this handles both
		if err := yaml.Unmarshal(data, userReport); err != nil {
			return nil, fmt.Errorf("failed to parse report file: %w", err)
		}
	}

	if analyzeURL != "" {
		userReport.LogURL = analyzeURL
	}
	if analyzeFeedback != "" {
		userReport.Feedback = analyzeFeedback
	}
	if analyzeUsername != "" {
		userReport.Username = analyzeUsername
	}
	if analyzeUserID != "" {
		userReport.UserID = analyzeUserID
	}
	if analyzePlatform != "" {
		userReport.Platform = analyzePlatform
	}
	if analyzeOSVersion != "" {
		userReport.OSVersion = analyzeOSVersion
	}
	if analyzeAppVersion != "" {
		userReport.AppVersion = analyzeAppVersion
	}
	if analyzeEnv != "" {
		userReport.Env = analyzeEnv
	}

	if userReport.LogURL == "" && analyzeLogFile == "" {
		return nil, fmt.Errorf("a log URL or --log-file is required")
	}
	return userReport, nil
}

func writeReports(cfg *config.Config, result *triage.Report) error {
	formatter, err := report.New(cfg.Output.Format, !cfg.Output.NoColor)
	if err != nil {
		return err
	}
	output, err := formatter.Format(result)
	if err != nil {
		return fmt.Errorf("failed to format report: %w", err)
	}

	if analyzeOutputFile != "" {
		if err := os.WriteFile(analyzeOutputFile, output, 0o600); err != nil {
			return fmt.Errorf("failed to write output file: %w", err)
		}
	} else {
		if _, err := os.Stdout.Write(output); err != nil {
			return fmt.Errorf("failed to write output: %w", err)
		}
	}

	csvPath := analyzeCSVFile
	if csvPath == "" {
		csvPath = cfg.Output.CSVFile
	}
	if csvPath != "" {
		data, err := report.NewCSV().Format(result)
		if err != nil {
			return fmt.Errorf("failed to format CSV report: %w", err)
		}
		if err := os.WriteFile(csvPath, data, 0o600); err != nil {
			return fmt.Errorf("failed to write CSV report: %w", err)
		}
	}
	return nil
}

func notify(ctx context.Context, cfg *config.Config, userReport *common.UserReport, result *triage.Report, runErr error) {
	sender := webhook.New(cfg.Webhook.URL, cfg.Webhook.Timeout, cfg.Webhook.Retries, newLogger("webhook"))
	if !sender.Enabled() {
		return
	}

	n := &webhook.Notification{
		AnalysisID:  fmt.Sprintf("an-%d", time.Now().Unix()),
		UserID:      userReport.UserID,
		CompletedAt: time.Now().UTC(),
	}
	if runErr != nil {
		n.Status = "failed"
		n.Error = runErr.Error()
	} else {
		n.Status = "completed"
		if summary, err := report.NewMarkdown().Format(result); err == nil {
			n.Result = string(summary)
		}
		n.CSVFile = analyzeCSVFile
	}

	if err := sender.Send(ctx, n); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: webhook notification failed: %v\n", err)
	}
}
