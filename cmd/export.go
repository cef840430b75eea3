package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"photoexport/internal"
)

var (
	strategyFlag       string
	workersFlag        int
	batchSizeFlag      int
	cacheSizeFlag      int
	logLevelFlag       string
	exiftoolFlag       bool
	memoryOptFlag      bool
	perfMonitorFlag    bool
	nestByMonthDayFlag bool
)

var exportCmd = &cobra.Command{
	Use:   "export <dry|run> <source> [target]",
	Short: "Export media files into a date-organized folder structure",
	Long: `Scan a source folder for photos and videos, resolve each file's creation
date from EXIF, XMP sidecars or file times, detect content duplicates, and
copy everything into <target>/<timestamp>/<year>/ with deterministic
timestamp-based filenames. XMP and AAE sidecars travel with their media file.

The first argument selects the mode: "dry" simulates the run and copies
nothing, "run" performs the export. The target defaults to the source
folder name with an "_export" suffix.`,
	Args: cobra.RangeArgs(2, 3),
	RunE: func(cmd *cobra.Command, args []string) error {
		dryRun, err := parseExportMode(args[0])
		if err != nil {
			return err
		}

		source := args[1]
		info, err := os.Stat(source)
		if err != nil || !info.IsDir() {
			return fmt.Errorf("source folder does not exist or is not a directory: %s", source)
		}

		target := defaultTarget(source)
		if len(args) == 3 {
			target = args[2]
		}

		strategy, ok := internal.ParseDuplicateStrategy(strategyFlag)
		if !ok {
			return fmt.Errorf("invalid duplicate strategy %q: must be one of keep_first, skip_duplicates, preserve_duplicates, cleanup_duplicates, !delete!", strategyFlag)
		}

		conf, err := internal.LoadConfig()
		if err != nil {
			return err
		}
		applyExportFlags(cmd, conf)
		if err := conf.Validate(); err != nil {
			return err
		}

		run := internal.NewExportRun(source, target, dryRun, strategy)

		logFile := ""
		if !dryRun {
			if err := os.MkdirAll(target, 0755); err != nil {
				return fmt.Errorf("failed to create target directory: %w", err)
			}
			logFile = target + "/" + run.Timestamp + "_export.log"
		}
		log, err := internal.NewLogger(conf.LogLevel, logFile)
		if err != nil {
			return err
		}

		pipeline := internal.NewPipeline(conf, run, log)
		if conf.UseExifTool {
			reader, err := internal.NewExifToolReader()
			if err != nil {
				log.Warnf("exiftool unavailable, using built-in EXIF reader: %v", err)
			} else {
				defer reader.Close()
				pipeline.EXIF = reader
			}
		}

		return pipeline.Execute(cmd.Context())
	},
}

// parseExportMode maps the mode argument to a dry-run flag.
func parseExportMode(mode string) (bool, error) {
	switch mode {
	case "dry":
		return true, nil
	case "run":
		return false, nil
	}
	return false, fmt.Errorf("invalid mode %q: must be \"dry\" or \"run\"", mode)
}

// defaultTarget derives the target directory from the source folder name.
func defaultTarget(source string) string {
	return strings.TrimRight(source, "/") + "_export"
}

// applyExportFlags lets explicit command-line flags override the config file
func applyExportFlags(cmd *cobra.Command, conf *internal.Config) {
	if cmd.Flags().Changed("workers") {
		conf.Workers = workersFlag
	}
	if cmd.Flags().Changed("batch-size") {
		conf.BatchSize = batchSizeFlag
	}
	if cmd.Flags().Changed("cache-size") {
		conf.CacheSize = cacheSizeFlag
	}
	if cmd.Flags().Changed("log-level") {
		conf.LogLevel = logLevelFlag
	}
	if cmd.Flags().Changed("exiftool") {
		conf.UseExifTool = exiftoolFlag
	}
	if cmd.Flags().Changed("memory-optimization") {
		conf.MemoryOptimization = memoryOptFlag
	}
	if cmd.Flags().Changed("performance-monitoring") {
		conf.PerformanceMonitoring = perfMonitorFlag
	}
	if cmd.Flags().Changed("nest-by-month-day") {
		conf.NestByMonthDay = nestByMonthDayFlag
	}
}

func init() {
	exportCmd.Flags().StringVar(&strategyFlag, "duplicate-strategy", "keep_first", "Duplicate handling: keep_first, skip_duplicates, preserve_duplicates, cleanup_duplicates, !delete!")
	exportCmd.Flags().IntVar(&workersFlag, "workers", 0, "Worker count (0 = derive from CPU cores and memory budget)")
	exportCmd.Flags().IntVar(&batchSizeFlag, "batch-size", 0, "Files per processing batch")
	exportCmd.Flags().IntVar(&cacheSizeFlag, "cache-size", 0, "Metadata cache size in entries")
	exportCmd.Flags().StringVar(&logLevelFlag, "log-level", "info", "Log level: debug, info, warning, error")
	exportCmd.Flags().BoolVar(&exiftoolFlag, "exiftool", false, "Use an external exiftool process for metadata extraction")
	exportCmd.Flags().BoolVar(&memoryOptFlag, "memory-optimization", true, "Enable streaming mode for large collections")
	exportCmd.Flags().BoolVar(&perfMonitorFlag, "performance-monitoring", true, "Write performance metrics and analysis artifacts")
	exportCmd.Flags().BoolVar(&nestByMonthDayFlag, "nest-by-month-day", false, "Nest export folders as year/month/day instead of flat years")

	rootCmd.AddCommand(exportCmd)
}
