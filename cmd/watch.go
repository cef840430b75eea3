package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"
	"photoexport/internal"
)

// debounceWindow is how long a new file must stay quiet before it is
// exported; sync clients and cameras write in bursts.
const debounceWindow = 2 * time.Second

var watchCmd = &cobra.Command{
	Use:   "watch <source> [target]",
	Short: "Watch a source folder and export new media as it arrives",
	Long: `Watch a folder tree and export newly arrived photos and videos into a
date-organized structure under the target, using the same date resolution,
sidecar handling and naming as a regular export run. Each new file is held
back briefly so partially written files settle before they are copied.
Content already exported during the session is skipped. The target defaults
to the source folder name with an "_export" suffix. Stop with Ctrl-C; run
statistics are written on shutdown.`,
	Args: cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		source := args[0]
		info, err := os.Stat(source)
		if err != nil || !info.IsDir() {
			return fmt.Errorf("folder does not exist or is not a directory: %s", source)
		}
		target := defaultTarget(source)
		if len(args) == 2 {
			target = args[1]
		}

		conf, err := internal.LoadConfig()
		if err != nil {
			return err
		}
		if err := conf.Validate(); err != nil {
			return err
		}

		run := internal.NewExportRun(source, target, false, internal.StrategyKeepFirst)
		if err := os.MkdirAll(run.ExportDir, 0755); err != nil {
			return fmt.Errorf("failed to create export directory: %w", err)
		}
		log, err := internal.NewLogger(conf.LogLevel, filepath.Join(target, run.Timestamp+"_export.log"))
		if err != nil {
			return err
		}

		pipeline := internal.NewPipeline(conf, run, log)
		watcher, err := internal.NewWatcher(source, conf)
		if err != nil {
			return fmt.Errorf("failed to start watcher: %w", err)
		}
		defer watcher.Close()

		debouncer := internal.NewDebouncer(debounceWindow)
		ticker := time.NewTicker(500 * time.Millisecond)
		defer ticker.Stop()

		log.Infof("watching %s, exporting new media to %s (Ctrl-C to stop)", source, run.ExportDir)
		for {
			select {
			case <-cmd.Context().Done():
				if remaining := debouncer.Flush(); len(remaining) > 0 {
					pipeline.ExportNew(remaining)
				}
				if err := run.SaveMetadata(); err != nil {
					log.Errorf("failed to save run metadata: %v", err)
				}
				if err := run.SaveSummary(); err != nil {
					log.Errorf("failed to save run summary: %v", err)
				}
				log.Info("stopping watcher")
				return cmd.Context().Err()
			case event := <-watcher.Events():
				switch event.Type {
				case internal.EventCreate:
					debouncer.Touch(event.Path)
				default:
					log.Infof("%s: %s", event.Type, event.Path)
				}
			case <-ticker.C:
				if settled := debouncer.Ready(time.Now()); len(settled) > 0 {
					pipeline.ExportNew(settled)
				}
			case err := <-watcher.Errors():
				log.Warnf("watch error: %v", err)
			}
		}
	},
}

func init() {
	rootCmd.AddCommand(watchCmd)
}
