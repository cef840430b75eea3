package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"photoexport/internal"
)

var (
	formatFlag     string
	duplicatesFlag bool
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze <folder>",
	Short: "Analyze a source folder without exporting anything",
	Long: `Scan a folder the way an export run would and report what it finds:
media counts by category, sidecar coverage, date range, the largest files
and optionally duplicate sets. Nothing is copied or modified.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		folder := args[0]

		info, err := os.Stat(folder)
		if err != nil || !info.IsDir() {
			return fmt.Errorf("folder does not exist or is not a directory: %s", folder)
		}

		conf, err := internal.LoadConfig()
		if err != nil {
			return err
		}

		options := &internal.AnalyzeOptions{
			FindDuplicates: duplicatesFlag,
			Format:         formatFlag,
		}

		results, err := internal.AnalyzeFolder(folder, conf, options)
		if err != nil {
			return fmt.Errorf("failed to analyze folder: %w", err)
		}

		return internal.DisplayAnalysis(results, options)
	},
}

func init() {
	analyzeCmd.Flags().StringVar(&formatFlag, "format", "table", "Output format: table, json")
	analyzeCmd.Flags().BoolVar(&duplicatesFlag, "duplicates", false, "Include content-hash duplicate detection (slower)")

	rootCmd.AddCommand(analyzeCmd)
}
