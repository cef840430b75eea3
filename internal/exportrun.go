package internal

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"
)

// TimestampFormat names export directories and run artifacts.
const TimestampFormat = "20060102-150405"

// RunCounters is the snapshot form of the run statistics.
type RunCounters struct {
	TotalFiles          int   `json:"total_files_processed"`
	PhotosProcessed     int   `json:"photos_processed"`
	XMPFiles            int   `json:"xmp_files_processed"`
	AAEFiles            int   `json:"aae_files_processed"`
	Succeeded           int   `json:"successful_exports"`
	Failed              int   `json:"failed_exports"`
	DuplicatesFound     int   `json:"duplicate_files_found"`
	DuplicatesResolved  int   `json:"duplicate_files_resolved"`
	DuplicatesPreserved int   `json:"duplicate_files_preserved"`
	DuplicatesDiscarded int   `json:"duplicate_files_discarded"`
	SkippedDuplicates   int   `json:"files_skipped_duplicates"`
	TotalSizeBytes      int64 `json:"total_size_bytes"`
	BytesCopied         int64 `json:"bytes_copied"`
}

// ExportRun carries the mutable per-run state: counters, format tallies and
// the error log. It is the single piece of shared mutable state in a run;
// every stage records into it through the mutex-guarded methods.
type ExportRun struct {
	Timestamp string
	SourceDir string
	TargetDir string
	ExportDir string
	DryRun    bool
	Strategy  DuplicateStrategy

	mu          sync.Mutex
	counters    RunCounters
	supported   map[string]int
	unsupported map[string]int
	errs        []string

	ErrStats *ErrorStats
}

func NewExportRun(sourceDir, targetDir string, dryRun bool, strategy DuplicateStrategy) *ExportRun {
	ts := time.Now().Format(TimestampFormat)
	return &ExportRun{
		Timestamp:   ts,
		SourceDir:   sourceDir,
		TargetDir:   targetDir,
		ExportDir:   filepath.Join(targetDir, ts),
		DryRun:      dryRun,
		Strategy:    strategy,
		supported:   make(map[string]int),
		unsupported: make(map[string]int),
		ErrStats:    NewErrorStats(),
	}
}

func (r *ExportRun) AddFile(size int64)  { r.mu.Lock(); r.counters.TotalFiles++; r.counters.TotalSizeBytes += size; r.mu.Unlock() }
func (r *ExportRun) AddPhoto()           { r.mu.Lock(); r.counters.PhotosProcessed++; r.mu.Unlock() }
func (r *ExportRun) AddXMP()             { r.mu.Lock(); r.counters.XMPFiles++; r.mu.Unlock() }
func (r *ExportRun) AddAAE()             { r.mu.Lock(); r.counters.AAEFiles++; r.mu.Unlock() }
func (r *ExportRun) AddSucceeded()       { r.mu.Lock(); r.counters.Succeeded++; r.mu.Unlock() }
func (r *ExportRun) AddFailed()          { r.mu.Lock(); r.counters.Failed++; r.mu.Unlock() }
func (r *ExportRun) AddBytesCopied(n int64) { r.mu.Lock(); r.counters.BytesCopied += n; r.mu.Unlock() }

func (r *ExportRun) AddDuplicateGroup(found, resolved, preserved, discarded, skipped int) {
	r.mu.Lock()
	r.counters.DuplicatesFound += found
	r.counters.DuplicatesResolved += resolved
	r.counters.DuplicatesPreserved += preserved
	r.counters.DuplicatesDiscarded += discarded
	r.counters.SkippedDuplicates += skipped
	r.mu.Unlock()
}

func (r *ExportRun) AddSupportedFormat(ext string) {
	r.mu.Lock()
	r.supported[ext]++
	r.mu.Unlock()
}

func (r *ExportRun) AddUnsupportedFormat(ext string) {
	r.mu.Lock()
	r.unsupported[ext]++
	r.mu.Unlock()
}

func (r *ExportRun) AddError(msg string) {
	r.mu.Lock()
	r.errs = append(r.errs, msg)
	r.mu.Unlock()
}

// Counters returns a snapshot of the current counters.
func (r *ExportRun) Counters() RunCounters {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.counters
}

func (r *ExportRun) ErrorList() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.errs))
	copy(out, r.errs)
	return out
}

type runMetadata struct {
	ExportInfo struct {
		Timestamp       string `json:"timestamp"`
		SourceDirectory string `json:"source_directory"`
		TargetDirectory string `json:"target_directory"`
		ExportDirectory string `json:"export_directory"`
		DryRun          bool   `json:"is_dry_run"`
		Strategy        string `json:"duplicate_strategy"`
	} `json:"export_info"`
	Statistics         RunCounters    `json:"statistics"`
	SupportedFormats   map[string]int `json:"supported_formats"`
	UnsupportedFormats map[string]int `json:"unsupported_formats"`
	Errors             []string       `json:"errors"`
}

// SaveMetadata writes the machine-readable run artifact
// (<timestamp>_metadata.json) into the target directory.
func (r *ExportRun) SaveMetadata() error {
	r.mu.Lock()
	meta := runMetadata{
		Statistics:         r.counters,
		SupportedFormats:   r.supported,
		UnsupportedFormats: r.unsupported,
		Errors:             append([]string(nil), r.errs...),
	}
	r.mu.Unlock()

	meta.ExportInfo.Timestamp = time.Now().Format(time.RFC3339)
	meta.ExportInfo.SourceDirectory = r.SourceDir
	meta.ExportInfo.TargetDirectory = r.TargetDir
	meta.ExportInfo.ExportDirectory = r.ExportDir
	meta.ExportInfo.DryRun = r.DryRun
	meta.ExportInfo.Strategy = r.Strategy.String()

	data, err := json.MarshalIndent(meta, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal run metadata: %w", err)
	}
	path := filepath.Join(r.TargetDir, r.Timestamp+"_metadata.json")
	if err := os.WriteFile(path, append(data, '\n'), 0644); err != nil {
		return fmt.Errorf("failed to write run metadata: %w", err)
	}
	return nil
}

// SaveSummary writes the human-readable run artifact
// (<timestamp>_summary.txt) into the target directory.
func (r *ExportRun) SaveSummary() error {
	path := filepath.Join(r.TargetDir, r.Timestamp+"_summary.txt")
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create summary file: %w", err)
	}
	defer f.Close()

	c := r.Counters()
	fmt.Fprintf(f, "Photo Export Summary\n")
	fmt.Fprintf(f, "====================\n\n")
	fmt.Fprintf(f, "Export Date: %s\n", time.Now().Format("2006-01-02 15:04:05"))
	fmt.Fprintf(f, "Source: %s\n", r.SourceDir)
	fmt.Fprintf(f, "Target: %s\n", r.ExportDir)
	fmt.Fprintf(f, "Strategy: %s\n\n", r.Strategy)
	fmt.Fprintf(f, "Files Processed: %d\n", c.TotalFiles)
	fmt.Fprintf(f, "Photos Processed: %d\n", c.PhotosProcessed)
	fmt.Fprintf(f, "XMP Files: %d\n", c.XMPFiles)
	fmt.Fprintf(f, "AAE Files: %d\n", c.AAEFiles)
	fmt.Fprintf(f, "Successful Exports: %d\n", c.Succeeded)
	fmt.Fprintf(f, "Failed Exports: %d\n", c.Failed)
	fmt.Fprintf(f, "Duplicates Found: %d\n", c.DuplicatesFound)
	fmt.Fprintf(f, "Duplicates Resolved: %d\n", c.DuplicatesResolved)
	fmt.Fprintf(f, "Duplicates Preserved: %d\n", c.DuplicatesPreserved)
	fmt.Fprintf(f, "Duplicates Discarded: %d\n", c.DuplicatesDiscarded)
	fmt.Fprintf(f, "Files Skipped (Duplicates): %d\n", c.SkippedDuplicates)
	fmt.Fprintf(f, "Total Size: %s\n", FormatBytes(c.TotalSizeBytes))
	fmt.Fprintf(f, "Bytes Copied: %s\n", FormatBytes(c.BytesCopied))

	r.mu.Lock()
	supported := sortedFormatLines(r.supported)
	unsupported := sortedFormatLines(r.unsupported)
	errs := append([]string(nil), r.errs...)
	r.mu.Unlock()

	if len(supported) > 0 {
		fmt.Fprintf(f, "\nSupported Formats:\n")
		for _, line := range supported {
			fmt.Fprintf(f, "  %s\n", line)
		}
	}
	if len(unsupported) > 0 {
		fmt.Fprintf(f, "\nUnsupported Formats:\n")
		for _, line := range unsupported {
			fmt.Fprintf(f, "  %s\n", line)
		}
	}
	if len(errs) > 0 {
		fmt.Fprintf(f, "\nErrors (%d):\n", len(errs))
		for _, e := range errs {
			fmt.Fprintf(f, "  - %s\n", e)
		}
	}
	return nil
}

func sortedFormatLines(m map[string]int) []string {
	exts := make([]string, 0, len(m))
	for ext := range m {
		exts = append(exts, ext)
	}
	sort.Strings(exts)
	lines := make([]string, 0, len(exts))
	for _, ext := range exts {
		lines = append(lines, fmt.Sprintf("%s: %d", ext, m[ext]))
	}
	return lines
}

// FormatBytes renders a byte count in human readable units.
func FormatBytes(n int64) string {
	v := float64(n)
	for _, unit := range []string{"B", "KB", "MB", "GB", "TB"} {
		if v < 1024.0 {
			return fmt.Sprintf("%.1f %s", v, unit)
		}
		v /= 1024.0
	}
	return fmt.Sprintf("%.1f PB", v)
}
