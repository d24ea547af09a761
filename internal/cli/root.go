// Package cli wires the bugscan commands: analyze a single report, list
// error patterns, and watch a drop directory for incoming reports.
package cli

import (
	"fmt"
	"runtime"

	"github.com/spf13/cobra"

	"github.com/sekai-app/bug-analysis-agent/internal/config"
)

var (
	cfgFile   string
	verbose   bool
	noColor   bool
	outputFmt string
)

// NewRootCommand creates the root command.
func NewRootCommand(version, commit, date string) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "bugscan",
		Short: "Frontend log triage tool",
		Long: `bugscan analyzes user bug reports: it downloads the frontend log,
scans it for error events, correlates those events with backend logs by
request identifier or time proximity, and classifies the report.

Reports can be triaged one at a time or picked up automatically from a
watched drop directory.`,
	}

	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file path")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "disable colored output")
	rootCmd.PersistentFlags().StringVarP(&outputFmt, "output", "o", "", "output format (terminal, json, csv, markdown)")

	rootCmd.AddCommand(newAnalyzeCommand())
	rootCmd.AddCommand(newPatternsCommand())
	rootCmd.AddCommand(newWatchCommand())
	rootCmd.AddCommand(newVersionCommand(version, commit, date))

	return rootCmd
}

func newVersionCommand(version, commit, date string) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(cmd *cobra.Command, args []string) {
			if version == "" || version == "dev" {
				version = "development"
			}
			if commit == "" || commit == "none" {
				commit = "local-build"
			}
			if date == "" || date == "unknown" {
				date = "local-build"
			}
			fmt.Printf("bugscan %s (%s) built on %s\n", version, commit, date)
			fmt.Printf("Go version: %s\n", runtime.Version())
			fmt.Printf("OS/Arch: %s/%s\n", runtime.GOOS, runtime.GOARCH)
		},
	}
}

func isVerbose() bool {
	return verbose
}

// loadConfig loads the configuration and applies global flag overrides.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, err
	}
	if outputFmt != "" {
		cfg.Output.Format = outputFmt
	}
	if noColor {
		cfg.Output.NoColor = true
	}
	return cfg, nil
}
