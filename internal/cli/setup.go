package cli

import (
	"fmt"

	"github.com/sekai-app/bug-analysis-agent/internal/backend"
	"github.com/sekai-app/bug-analysis-agent/internal/common"
	"github.com/sekai-app/bug-analysis-agent/internal/config"
	"github.com/sekai-app/bug-analysis-agent/internal/correlate"
	"github.com/sekai-app/bug-analysis-agent/internal/downloader"
	"github.com/sekai-app/bug-analysis-agent/internal/logger"
	"github.com/sekai-app/bug-analysis-agent/internal/scanner"
	"github.com/sekai-app/bug-analysis-agent/internal/triage"
)

func newLogger(component string) *logger.Logger {
	return logger.NewWithCallback(component, isVerbose)
}

// buildSearcher creates the backend searcher the config asks for. Source
// "none" yields an empty in-memory store, so correlation still runs and every
// event simply reports no backend match.
func buildSearcher(cfg *config.Config) (backend.Searcher, error) {
	switch cfg.Backend.Source {
	case "none":
		return backend.NewMemorySearcher(nil, 0), nil
	case "file":
		entries, err := backend.LoadEntriesFile(cfg.Backend.File)
		if err != nil {
			return nil, fmt.Errorf("failed to load backend dump: %w", err)
		}
		return backend.NewMemorySearcher(entries, 0), nil
	case "opensearch":
		return backend.NewOpenSearchSearcher(cfg.Backend.OpenSearch)
	default:
		return nil, fmt.Errorf("unknown backend source %q", cfg.Backend.Source)
	}
}

func buildScanner(cfg *config.Config) (*scanner.Scanner, error) {
	if cfg.Scan.PatternsDir == "" {
		return scanner.New(), nil
	}
	patterns, err := common.LoadPatternsFromDir(cfg.Scan.PatternsDir)
	if err != nil {
		return nil, fmt.Errorf("failed to load patterns from %s: %w", cfg.Scan.PatternsDir, err)
	}
	return scanner.NewWithPatterns(patterns)
}

func buildPipeline(cfg *config.Config) (*triage.Pipeline, error) {
	sc, err := buildScanner(cfg)
	if err != nil {
		return nil, err
	}

	searcher, err := buildSearcher(cfg)
	if err != nil {
		return nil, err
	}

	engine, err := correlate.NewEngine(searcher, correlate.Options{
		TimeWindow:             cfg.Correlate.TimeWindow,
		MaxFallbackMatches:     cfg.Correlate.MaxFallbackMatches,
		GlobalDedup:            cfg.Correlate.GlobalDedup,
		FallbackAfterExactMiss: cfg.Correlate.FallbackAfterExactMiss,
		WindowPatterns:         cfg.Correlate.WindowPatterns,
		Concurrency:            cfg.Correlate.Concurrency,
	})
	if err != nil {
		return nil, err
	}

	fetcher := downloader.New(cfg.Download.Timeout, newLogger("downloader"))
	return triage.NewPipeline(fetcher, sc, engine, nil, cfg.Scan.ContextLines, newLogger("triage"))
}
