package internal

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

// AnalyzeOptions contains configuration for source folder analysis
type AnalyzeOptions struct {
	FindDuplicates bool
	Format         string
}

// AnalyzeResults summarizes what an export run over the folder would see
type AnalyzeResults struct {
	FolderPath   string                   `json:"folder_path"`
	TotalFiles   int                      `json:"total_files"`
	TotalSize    int64                    `json:"total_size_bytes"`
	Categories   map[string]*CategoryInfo `json:"categories"`
	Unsupported  map[string]int           `json:"unsupported_extensions"`
	XMPSidecars  int                      `json:"xmp_sidecars"`
	AAESidecars  int                      `json:"aae_sidecars"`
	DateRange    *DateRange               `json:"date_range,omitempty"`
	Duplicates   []DuplicateSet           `json:"duplicates,omitempty"`
	LargestFiles []LargeFileInfo          `json:"largest_files"`
	ScanDuration time.Duration            `json:"scan_duration"`
}

// CategoryInfo aggregates per-category counts and sizes
type CategoryInfo struct {
	Count       int            `json:"count"`
	TotalSize   int64          `json:"total_size_bytes"`
	Extensions  map[string]int `json:"extensions"`
	LargestFile string         `json:"largest_file"`
	LargestSize int64          `json:"largest_size_bytes"`
}

type DateRange struct {
	Earliest time.Time `json:"earliest"`
	Latest   time.Time `json:"latest"`
}

// DuplicateSet describes one set of files sharing a content fingerprint
type DuplicateSet struct {
	Fingerprint string   `json:"fingerprint"`
	Files       []string `json:"files"`
	Size        int64    `json:"size_bytes"`
}

// LargeFileInfo describes a file over the large-file threshold (100MB)
type LargeFileInfo struct {
	Path     string       `json:"path"`
	Size     int64        `json:"size_bytes"`
	Category FileCategory `json:"category"`
}

const largeFileThreshold = 100 * 1024 * 1024

// AnalyzeFolder scans a source folder the way an export run would and
// reports what it finds, without copying anything.
func AnalyzeFolder(folderPath string, cfg *Config, options *AnalyzeOptions) (*AnalyzeResults, error) {
	start := time.Now()

	results := &AnalyzeResults{
		FolderPath:   folderPath,
		Categories:   make(map[string]*CategoryInfo),
		Unsupported:  make(map[string]int),
		LargestFiles: []LargeFileInfo{},
	}
	for _, cat := range []FileCategory{CategoryImage, CategoryVideo, CategoryMetadata} {
		results.Categories[string(cat)] = &CategoryInfo{Extensions: make(map[string]int)}
	}

	all, err := ScanAllFiles(folderPath)
	if err != nil {
		return nil, err
	}

	var dates []time.Time
	fingerprints := make(map[string][]string)

	for _, path := range all {
		ext := strings.ToLower(filepath.Ext(path))
		if ext == ".xmp" {
			results.XMPSidecars++
			continue
		}
		category := cfg.Categorize(ext)
		if category == CategoryOther {
			results.Unsupported[ext]++
			continue
		}

		info, err := os.Stat(path)
		if err != nil {
			continue
		}
		if category == CategoryMetadata {
			results.AAESidecars++
		}

		results.TotalFiles++
		results.TotalSize += info.Size()

		ci := results.Categories[string(category)]
		ci.Count++
		ci.TotalSize += info.Size()
		ci.Extensions[ext]++
		if info.Size() > ci.LargestSize {
			ci.LargestSize = info.Size()
			ci.LargestFile = path
		}

		if info.Size() > largeFileThreshold {
			results.LargestFiles = append(results.LargestFiles, LargeFileInfo{
				Path:     path,
				Size:     info.Size(),
				Category: category,
			})
		}

		if category == CategoryImage || category == CategoryVideo {
			dates = append(dates, info.ModTime().UTC())
			if options.FindDuplicates {
				if fp, err := FingerprintFile(path, category); err == nil {
					fingerprints[fp] = append(fingerprints[fp], path)
				}
			}
		}
	}

	if len(dates) > 0 {
		sort.Slice(dates, func(i, j int) bool { return dates[i].Before(dates[j]) })
		results.DateRange = &DateRange{Earliest: dates[0], Latest: dates[len(dates)-1]}
	}

	if options.FindDuplicates {
		results.Duplicates = duplicateSets(fingerprints)
	}

	sort.Slice(results.LargestFiles, func(i, j int) bool {
		return results.LargestFiles[i].Size > results.LargestFiles[j].Size
	})
	if len(results.LargestFiles) > 5 {
		results.LargestFiles = results.LargestFiles[:5]
	}

	results.ScanDuration = time.Since(start)
	return results, nil
}

// duplicateSets keeps only fingerprints shared by more than one file,
// ordered by wasted bytes descending.
func duplicateSets(fingerprints map[string][]string) []DuplicateSet {
	var sets []DuplicateSet
	for fp, files := range fingerprints {
		if len(files) < 2 {
			continue
		}
		var size int64
		if info, err := os.Stat(files[0]); err == nil {
			size = info.Size()
		}
		sets = append(sets, DuplicateSet{Fingerprint: fp, Files: files, Size: size})
	}
	sort.Slice(sets, func(i, j int) bool {
		wi := sets[i].Size * int64(len(sets[i].Files)-1)
		wj := sets[j].Size * int64(len(sets[j].Files)-1)
		if wi != wj {
			return wi > wj
		}
		return sets[i].Fingerprint < sets[j].Fingerprint
	})
	return sets
}

// DisplayAnalysis formats and prints the analysis results
func DisplayAnalysis(results *AnalyzeResults, options *AnalyzeOptions) error {
	if options.Format == "json" {
		encoder := json.NewEncoder(os.Stdout)
		encoder.SetIndent("", "  ")
		return encoder.Encode(results)
	}
	return displayAnalysisText(results, options)
}

func displayAnalysisText(results *AnalyzeResults, options *AnalyzeOptions) error {
	fmt.Printf("=== Source Analysis: %s ===\n\n", results.FolderPath)

	fmt.Printf("📊 Overview:\n")
	fmt.Printf("  - %d media files (%s)\n", results.TotalFiles, FormatBytes(results.TotalSize))
	fmt.Printf("  - %d XMP sidecars, %d AAE sidecars\n", results.XMPSidecars, results.AAESidecars)
	fmt.Printf("  - Scan completed in %v\n\n", results.ScanDuration.Round(time.Millisecond))

	fmt.Printf("📁 Categories:\n")
	for _, name := range []string{string(CategoryImage), string(CategoryVideo), string(CategoryMetadata)} {
		ci := results.Categories[name]
		if ci == nil || ci.Count == 0 {
			continue
		}
		fmt.Printf("  %s %s: %d files (%s)\n", categoryEmoji(name), name, ci.Count, FormatBytes(ci.TotalSize))
		for _, line := range sortedExtensionLines(ci.Extensions) {
			fmt.Printf("    - %s\n", line)
		}
	}

	if len(results.Unsupported) > 0 {
		total := 0
		for _, n := range results.Unsupported {
			total += n
		}
		fmt.Printf("  ❓ unsupported: %d files in %d formats\n", total, len(results.Unsupported))
	}

	if results.DateRange != nil {
		fmt.Printf("\n📅 Date range (file times): %s to %s\n",
			results.DateRange.Earliest.Format("2006-01-02"),
			results.DateRange.Latest.Format("2006-01-02"))
	}

	if len(results.LargestFiles) > 0 {
		fmt.Printf("\n📏 Largest Files (>100MB):\n")
		for i, file := range results.LargestFiles {
			fmt.Printf("  %d. %s (%s)\n", i+1, filepath.Base(file.Path), FormatBytes(file.Size))
		}
	}

	if options.FindDuplicates && len(results.Duplicates) > 0 {
		fmt.Printf("\n🔍 Duplicates Found (%d sets):\n", len(results.Duplicates))
		shown := len(results.Duplicates)
		if shown > 5 {
			shown = 5
		}
		var waste int64
		for _, set := range results.Duplicates {
			waste += set.Size * int64(len(set.Files)-1)
		}
		for i, set := range results.Duplicates[:shown] {
			fmt.Printf("  - Set %d: %d files (%s each)\n", i+1, len(set.Files), FormatBytes(set.Size))
		}
		if len(results.Duplicates) > shown {
			fmt.Printf("  - ... and %d more sets\n", len(results.Duplicates)-shown)
		}
		fmt.Printf("  💾 Potential space savings: %s\n", FormatBytes(waste))
	}

	mediaCount := 0
	if ci := results.Categories[string(CategoryImage)]; ci != nil {
		mediaCount += ci.Count
	}
	if ci := results.Categories[string(CategoryVideo)]; ci != nil {
		mediaCount += ci.Count
	}
	if mediaCount > 0 {
		fmt.Printf("\n💡 Ready for export: %d media files\n", mediaCount)
		fmt.Printf("   Run: photoexport export dry %s\n", results.FolderPath)
	}
	return nil
}

func sortedExtensionLines(extensions map[string]int) []string {
	type extCount struct {
		ext   string
		count int
	}
	var list []extCount
	for ext, count := range extensions {
		list = append(list, extCount{ext, count})
	}
	sort.Slice(list, func(i, j int) bool {
		if list[i].count != list[j].count {
			return list[i].count > list[j].count
		}
		return list[i].ext < list[j].ext
	})
	var lines []string
	for _, e := range list {
		name := strings.ToUpper(strings.TrimPrefix(e.ext, "."))
		if name == "" {
			name = "(no extension)"
		}
		lines = append(lines, fmt.Sprintf("%s: %d", name, e.count))
	}
	return lines
}

func categoryEmoji(category string) string {
	switch category {
	case string(CategoryImage):
		return "📷"
	case string(CategoryVideo):
		return "🎬"
	case string(CategoryMetadata):
		return "📝"
	}
	return "📁"
}
