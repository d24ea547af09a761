package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/sekai-app/bug-analysis-agent/internal/common"
	"github.com/sekai-app/bug-analysis-agent/internal/scanner"
)

var patternsDir string

func newPatternsCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "patterns",
		Short: "List error patterns",
		Long: `List the error kinds the scanner detects, in evaluation order.

With --patterns, custom pattern files are loaded and validated first, so the
command doubles as a pattern file check.`,
		RunE: runPatterns,
	}

	cmd.Flags().StringVarP(&patternsDir, "patterns", "p", "", "custom pattern file or directory to load")

	return cmd
}

func runPatterns(cmd *cobra.Command, args []string) error {
	s := scanner.New()

	if patternsDir != "" {
		patterns, err := loadPatterns(patternsDir)
		if err != nil {
			return err
		}
		if err := s.Catalog().AddPatterns(patterns); err != nil {
			return fmt.Errorf("invalid custom pattern: %w", err)
		}
		fmt.Printf("Loaded %d custom pattern(s) from %s\n\n", len(patterns), patternsDir)
	}

	kinds := s.Catalog().Kinds()
	fmt.Printf("Error kinds (%d, in evaluation order):\n", len(kinds))
	for _, kind := range kinds {
		fmt.Printf("  %s\n", kind)
	}
	return nil
}

func loadPatterns(path string) ([]*common.Pattern, error) {
	patterns, err := common.LoadPatternsFromFile(path)
	if err == nil {
		return patterns, nil
	}
	return common.LoadPatternsFromDir(path)
}
