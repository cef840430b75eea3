package internal

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/schollz/progressbar/v3"
	"github.com/sirupsen/logrus"
)

// Pipeline wires the stages of one export run: enumerate, extract metadata,
// detect and resolve duplicates, organize and copy, aggregate statistics.
// Data flows strictly forward; the ExportRun is the only shared mutable
// state and every stage records into it through synchronized accessors.
type Pipeline struct {
	Cfg     *Config
	Run     *ExportRun
	Log     *logrus.Logger
	EXIF    EXIFReader
	Monitor *Monitor

	validator *PathValidator
	organizer *Organizer
	workers   int
	seen      map[string]bool // fingerprints already exported this session
}

func NewPipeline(cfg *Config, run *ExportRun, log *logrus.Logger) *Pipeline {
	validator := NewPathValidator(run.SourceDir, run.TargetDir)
	return &Pipeline{
		Cfg:       cfg,
		Run:       run,
		Log:       log,
		EXIF:      &GoexifReader{SkipHEIC: cfg.SkipHEICExif},
		Monitor:   NewMonitor(),
		validator: validator,
		organizer: NewOrganizer(run.ExportDir, run.DryRun, cfg.NestByMonthDay, validator, log),
		workers:   OptimalWorkers(cfg),
		seen:      make(map[string]bool),
	}
}

// Execute runs the full pipeline. The context is checked at batch
// boundaries; on cancellation partial statistics are flushed and the
// context error is returned.
func (p *Pipeline) Execute(ctx context.Context) error {
	switch p.Run.Strategy {
	case StrategyDeleteDuplicates:
		return p.deleteDuplicatesInExport(ctx)
	case StrategyCleanupDuplicates:
		return p.cleanupSideAreas()
	}

	if !p.Run.DryRun {
		if err := os.MkdirAll(p.Run.ExportDir, 0755); err != nil {
			return fmt.Errorf("failed to create export directory: %w", err)
		}
		p.Log.Infof("created export directory: %s", p.Run.ExportDir)
	} else {
		p.Log.Infof("would create export directory: %s", p.Run.ExportDir)
	}

	files, err := p.enumerate()
	if err != nil {
		return err
	}
	p.Log.Infof("found %d media files to process", len(files))
	if len(files) == 0 {
		p.Log.Warn("no supported media files found in source directory")
		return p.finish()
	}

	records, err := p.extractAll(ctx, files)
	if err != nil {
		p.flushPartial()
		return err
	}

	placeList, sideList := p.resolveDuplicates(records)

	if err := p.checkDiskSpace(placeList); err != nil {
		return err
	}

	if err := p.place(ctx, placeList, sideList); err != nil {
		p.flushPartial()
		return err
	}

	return p.finish()
}

// enumerate walks the source tree once in stable lexical order. Supported
// media files come back for processing; everything else feeds the
// unsupported-format tally (XMP sidecars are expected companions, not
// unsupported input).
func (p *Pipeline) enumerate() ([]string, error) {
	all, err := ScanAllFiles(p.Run.SourceDir)
	if err != nil {
		return nil, err
	}
	var media []string
	for _, path := range all {
		ext := strings.ToLower(filepath.Ext(path))
		if p.Cfg.IsProcessable(ext) {
			media = append(media, path)
			continue
		}
		if ext == ".xmp" || ext == ".aae" {
			continue
		}
		p.Run.AddUnsupportedFormat(ext)
		p.Log.Debugf("unsupported format: %s", path)
	}
	return media, nil
}

// extractAll runs metadata extraction and fingerprinting over a bounded
// worker pool in fixed-size batches. Results are slotted by original index
// so traversal order survives parallelism. Between batches the worker count
// is adjusted from observed throughput and the context is checked.
func (p *Pipeline) extractAll(ctx context.Context, files []string) ([]*MediaRecord, error) {
	batchSize := p.Cfg.BatchSize
	streaming := len(files) > p.Cfg.StreamingThreshold && p.Cfg.MemoryOptimization
	if streaming {
		if batchSize > 50 {
			batchSize = 50
		}
		if p.Cfg.CacheSize > 0 && batchSize > p.Cfg.CacheSize {
			batchSize = p.Cfg.CacheSize
		}
		p.Log.Infof("streaming mode for %d files (batch size %d)", len(files), batchSize)
	}

	bar := progressbar.NewOptions(len(files),
		progressbar.OptionSetDescription("Extracting metadata"),
		progressbar.OptionSetWidth(20),
		progressbar.OptionShowCount(),
		progressbar.OptionClearOnFinish(),
	)

	records := make([]*MediaRecord, len(files))
	for start := 0; start < len(files); start += batchSize {
		if err := ctx.Err(); err != nil {
			p.Log.Warn("interrupted between batches, flushing partial statistics")
			return nil, err
		}

		end := start + batchSize
		if end > len(files) {
			end = len(files)
		}

		began := time.Now()
		p.runBatch(files, records, start, end)
		throughput := p.Monitor.RecordBatch(end-start, time.Since(began))
		bar.Add(end - start)

		if abort, reason := p.Run.ErrStats.ShouldAbort(); abort {
			return nil, fmt.Errorf("aborting run: %s", reason)
		}

		if next := AdjustWorkers(p.workers, throughput, p.Cfg.TargetThroughput); next != p.workers {
			p.Log.Debugf("adjusting workers %d -> %d (throughput %.1f files/s)", p.workers, next, throughput)
			p.workers = next
		}
	}
	return records, nil
}

func (p *Pipeline) runBatch(files []string, records []*MediaRecord, start, end int) {
	jobs := make(chan int, end-start)
	var wg sync.WaitGroup
	workers := p.workers
	if workers > end-start {
		workers = end - start
	}
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				records[i] = p.processFile(files[i])
			}
		}()
	}
	for i := start; i < end; i++ {
		jobs <- i
	}
	close(jobs)
	wg.Wait()
}

// processFile extracts everything needed from a single file: sidecars, the
// competing dates, the resolved timestamp and the duplicate fingerprint.
// Per-source failures degrade to "no result"; only unexpected errors mark
// the record invalid, and an invalid record never carries a date.
func (p *Pipeline) processFile(path string) *MediaRecord {
	if _, err := p.validator.Validate(path); err != nil {
		p.failRecord(path, err)
		rec := NewMediaRecord(path, 0, p.Cfg)
		rec.Source = DateSourceError
		rec.ErrMessage = err.Error()
		return rec
	}

	fi, err := os.Stat(path)
	if err != nil {
		p.failRecord(path, err)
		rec := NewMediaRecord(path, 0, p.Cfg)
		rec.Source = DateSourceError
		rec.ErrMessage = err.Error()
		return rec
	}

	rec := NewMediaRecord(path, fi.Size(), p.Cfg)
	p.Run.AddFile(rec.Size)
	p.Run.AddPhoto()
	p.Run.AddSupportedFormat(rec.Extension)

	rec.XMPPath = FindXMPFile(path)
	rec.AAEPath = FindAAEFile(path)
	if rec.XMPPath != "" {
		p.Run.AddXMP()
	}
	if rec.AAEPath != "" {
		p.Run.AddAAE()
	}

	var exifDate, xmpDate time.Time
	if rec.Category == CategoryImage {
		if d, err := p.EXIF.Date(path); err != nil {
			p.Log.Debugf("no EXIF date from %s: %v", rec.OriginalFilename, err)
		} else {
			exifDate = d
		}
	}
	if rec.XMPPath != "" {
		if d, err := ExtractXMPDate(rec.XMPPath); err != nil {
			p.Log.Debugf("no XMP date from %s: %v", filepath.Base(rec.XMPPath), err)
		} else {
			xmpDate = d
		}
	}

	fileDate, err := FileModTime(path)
	if err != nil {
		p.Log.Warnf("error getting file date for %s: %v", path, err)
	}

	rec.CreationDate, rec.Source = ChooseBestDate(exifDate, xmpDate, fileDate)
	rec.Valid = true

	fp, err := FingerprintFile(path, rec.Category)
	if err != nil {
		p.Log.Warnf("could not hash %s, falling back to filename key: %v", path, err)
		fp = FallbackFingerprint(rec.OriginalFilename, rec.Category)
	}
	rec.Fingerprint = fp

	p.Run.ErrStats.ResetConsecutive()
	p.Log.Debugf("processed %s: %s (from %s)", rec.OriginalFilename, rec.CreationDate.Format(time.RFC3339), rec.Source)
	return rec
}

func (p *Pipeline) failRecord(path string, err error) {
	procErr := CategorizeError(path, err)
	p.Run.ErrStats.Add(procErr)
	p.Run.AddError(procErr.Error())
	p.Run.AddFailed()
	p.Log.Errorf("error processing %s: %v", path, err)
}

// resolveDuplicates groups records by fingerprint and applies the run's
// strategy, returning the records headed for normal placement and those
// headed for the duplicates side-area.
func (p *Pipeline) resolveDuplicates(records []*MediaRecord) (placeList, sideList []*MediaRecord) {
	valid := records[:0:0]
	for _, rec := range records {
		if rec != nil && rec.Valid {
			valid = append(valid, rec)
		}
	}

	groups := DetectDuplicates(valid)
	if len(groups) == 0 {
		return valid, nil
	}
	p.Log.Infof("found %d duplicate groups (strategy: %s)", len(groups), p.Run.Strategy)

	excluded := make(map[*MediaRecord]bool)
	include := make(map[*MediaRecord]bool)
	for _, g := range groups {
		res := ResolveGroup(p.Run.Strategy, g)
		for _, rec := range g.Records {
			excluded[rec] = true
		}
		for _, rec := range res.Place {
			include[rec] = true
		}
		sideList = append(sideList, res.SideArea...)

		preserved := len(res.SideArea)
		discarded := len(res.Discard)
		resolved := 0
		switch p.Run.Strategy {
		case StrategyPreserveDuplicates:
			resolved = 1
		case StrategySkipDuplicates:
		default:
			resolved = len(g.Records) - 1
		}
		p.Run.AddDuplicateGroup(1, resolved, preserved, discarded, len(res.Skipped))
	}

	for _, rec := range valid {
		if !excluded[rec] || include[rec] {
			placeList = append(placeList, rec)
		}
	}
	p.Log.Infof("after duplicate handling: %d files to place", len(placeList))
	return placeList, sideList
}

// checkDiskSpace is a soft gate: the requirement (with the configured
// safety margin) is always logged; only a real run aborts on shortfall.
func (p *Pipeline) checkDiskSpace(placeList []*MediaRecord) error {
	var required int64
	for _, rec := range placeList {
		required += rec.Size
	}
	withMargin := int64(float64(required) * p.Cfg.DiskSpaceMargin)

	available, err := availableBytes(p.Run.TargetDir)
	if err != nil {
		p.Log.Warnf("could not check disk space: %v", err)
		return nil
	}
	if available >= withMargin {
		p.Log.Infof("disk space check passed: %s required, %s available",
			FormatBytes(withMargin), FormatBytes(available))
		return nil
	}
	if p.Run.DryRun {
		p.Log.Warnf("insufficient disk space for a real run: %s required, %s available",
			FormatBytes(withMargin), FormatBytes(available))
		return nil
	}
	return fmt.Errorf("insufficient disk space: %s required, %s available",
		FormatBytes(withMargin), FormatBytes(available))
}

// place serializes the organize/copy stage. Extraction was parallel; doing
// placement on one goroutine keeps filename counters and directory creation
// free of races.
func (p *Pipeline) place(ctx context.Context, placeList, sideList []*MediaRecord) error {
	desc := "Placing files"
	if p.Run.DryRun {
		desc = "Simulating placement"
	}
	bar := progressbar.NewOptions(len(placeList),
		progressbar.OptionSetDescription(desc),
		progressbar.OptionSetWidth(20),
		progressbar.OptionShowCount(),
		progressbar.OptionClearOnFinish(),
	)

	for i, rec := range placeList {
		if i%50 == 0 {
			if err := ctx.Err(); err != nil {
				return err
			}
		}
		copied, err := p.organizer.Place(rec)
		bar.Add(1)
		if err != nil {
			p.failRecord(rec.OriginalPath, err)
			continue
		}
		p.Run.AddSucceeded()
		p.Run.AddBytesCopied(copied)
	}

	if p.Run.Strategy == StrategyPreserveDuplicates && len(sideList) > 0 {
		sideDir := filepath.Join(p.Run.ExportDir, "duplicates_"+p.Run.Timestamp)
		if p.Run.DryRun {
			p.Log.Infof("would create duplicates directory: %s", sideDir)
		} else {
			if err := os.MkdirAll(sideDir, 0755); err != nil {
				return fmt.Errorf("failed to create duplicates directory: %w", err)
			}
			p.Log.Infof("created duplicates directory: %s", sideDir)
		}
		for _, rec := range sideList {
			copied, err := p.organizer.PlaceInto(rec, sideDir)
			if err != nil {
				p.failRecord(rec.OriginalPath, err)
				continue
			}
			p.Run.AddBytesCopied(copied)
		}
	}
	return nil
}

// ExportNew runs the extraction and placement stages over files that
// appeared after the session started, one at a time. Content already
// exported in this session is skipped outright: the first occurrence won,
// and a watch session has no duplicates side-area.
func (p *Pipeline) ExportNew(paths []string) {
	for _, path := range paths {
		rec := p.processFile(path)
		if !rec.Valid {
			continue
		}
		if p.seen[rec.Fingerprint] {
			p.Run.AddDuplicateGroup(1, 1, 0, 1, 0)
			p.Log.Infof("already exported this content, skipping %s", rec.OriginalFilename)
			continue
		}
		p.seen[rec.Fingerprint] = true

		copied, err := p.organizer.Place(rec)
		if err != nil {
			p.failRecord(rec.OriginalPath, err)
			continue
		}
		p.Run.AddSucceeded()
		p.Run.AddBytesCopied(copied)
		p.Log.Infof("exported %s", rec.OriginalFilename)
	}
}

// finish persists the run artifacts and prints the summary.
func (p *Pipeline) finish() error {
	p.printSummary()

	if report := p.Run.ErrStats.GenerateReport(); report != "" {
		p.Log.Warn(report)
	}

	if p.Run.DryRun {
		p.Log.Info("DRY-RUN completed, no files were copied")
		return nil
	}

	if err := p.Run.SaveMetadata(); err != nil {
		p.Log.Errorf("failed to save run metadata: %v", err)
	}
	if err := p.Run.SaveSummary(); err != nil {
		p.Log.Errorf("failed to save run summary: %v", err)
	}
	if p.Cfg.PerformanceMonitoring {
		metrics := filepath.Join(p.Run.TargetDir, p.Run.Timestamp+"_performance_metrics.json")
		if err := p.Monitor.SaveMetrics(metrics); err != nil {
			p.Log.Errorf("failed to save performance metrics: %v", err)
		}
		analysis := filepath.Join(p.Run.TargetDir, p.Run.Timestamp+"_performance_analysis.txt")
		if err := p.Monitor.SaveAnalysis(analysis, p.Cfg.TargetThroughput); err != nil {
			p.Log.Errorf("failed to save performance analysis: %v", err)
		}
	}
	p.Log.Infof("export completed, files saved to %s", p.Run.ExportDir)
	return nil
}

// flushPartial persists whatever statistics exist when a run is interrupted.
func (p *Pipeline) flushPartial() {
	if p.Run.DryRun {
		return
	}
	if err := p.Run.SaveMetadata(); err != nil {
		p.Log.Errorf("failed to flush partial metadata: %v", err)
	}
}

func (p *Pipeline) printSummary() {
	c := p.Run.Counters()
	p.Log.Info("EXPORT SUMMARY")
	p.Log.Infof("  photos: %d processed, %d exported, %d failed", c.PhotosProcessed, c.Succeeded, c.Failed)
	p.Log.Infof("  sidecars: %d xmp, %d aae", c.XMPFiles, c.AAEFiles)
	p.Log.Infof("  duplicates: %d groups, %d resolved, %d preserved, %d discarded, %d skipped",
		c.DuplicatesFound, c.DuplicatesResolved, c.DuplicatesPreserved, c.DuplicatesDiscarded, c.SkippedDuplicates)
	p.Log.Infof("  size: %s total, %s copied", FormatBytes(c.TotalSizeBytes), FormatBytes(c.BytesCopied))
}

// cleanupSideAreas removes previously-created duplicates side-areas under
// the target's export directories. No new input is processed in this mode.
func (p *Pipeline) cleanupSideAreas() error {
	exportDirs, err := filepath.Glob(filepath.Join(p.Run.TargetDir, "*"))
	if err != nil {
		return err
	}
	sort.Sort(sort.Reverse(sort.StringSlice(exportDirs)))

	removed := 0
	for _, dir := range exportDirs {
		fi, err := os.Stat(dir)
		if err != nil || !fi.IsDir() {
			continue
		}
		sideAreas, err := filepath.Glob(filepath.Join(dir, "duplicates_*"))
		if err != nil {
			continue
		}
		for _, side := range sideAreas {
			if p.Run.DryRun {
				p.Log.Infof("would remove duplicates folder: %s", side)
				removed++
				continue
			}
			if err := os.RemoveAll(side); err != nil {
				p.Log.Errorf("failed to remove duplicates folder %s: %v", side, err)
				p.Run.AddError(fmt.Sprintf("failed to remove %s: %v", side, err))
				continue
			}
			p.Log.Infof("removed duplicates folder: %s", side)
			removed++
		}
	}
	if removed == 0 {
		p.Log.Info("no duplicates folders found to clean up")
	}
	return nil
}

// deleteDuplicatesInExport is the destructive !delete! mode: it dedupes the
// newest export tree under the target, permanently deleting every non-first
// group member along with its sidecars. Dry-run lists every intended
// deletion without touching disk. Normal placement is bypassed entirely.
func (p *Pipeline) deleteDuplicatesInExport(ctx context.Context) error {
	p.Log.Warn(strings.Repeat("=", 60))
	p.Log.Warn("DELETE DUPLICATES MODE - DANGEROUS OPERATION")
	p.Log.Warn("duplicate files will be permanently deleted from the export tree,")
	p.Log.Warn("keeping only the first occurrence of each")
	p.Log.Warn(strings.Repeat("=", 60))

	exportDir, err := p.newestExportDir()
	if err != nil {
		return err
	}
	if exportDir == "" {
		p.Log.Warn("no export directories with media found under target")
		return nil
	}
	p.Log.Infof("using export directory: %s", exportDir)

	files, err := ScanMediaFiles(exportDir, p.Cfg)
	if err != nil {
		return err
	}

	var records []*MediaRecord
	for i, path := range files {
		if i%100 == 0 {
			if err := ctx.Err(); err != nil {
				return err
			}
		}
		fi, err := os.Stat(path)
		if err != nil {
			continue
		}
		rec := NewMediaRecord(path, fi.Size(), p.Cfg)
		rec.Valid = true
		fp, err := FingerprintFile(path, rec.Category)
		if err != nil {
			p.Log.Warnf("could not hash %s: %v", path, err)
			fp = FallbackFingerprint(rec.OriginalFilename, rec.Category)
		}
		rec.Fingerprint = fp
		records = append(records, rec)
	}

	groups := DetectDuplicates(records)
	if len(groups) == 0 {
		p.Log.Info("no duplicates found in export directory")
		return nil
	}

	deleted := 0
	for _, g := range groups {
		p.Run.AddDuplicateGroup(1, len(g.Records)-1, 0, 0, 0)
		for _, rec := range g.Records[1:] {
			if p.Run.DryRun {
				p.Log.Infof("would delete: %s", rec.OriginalPath)
				deleted++
				continue
			}
			if err := p.deleteWithSidecars(rec.OriginalPath); err != nil {
				p.failRecord(rec.OriginalPath, err)
				continue
			}
			deleted++
		}
	}

	if p.Run.DryRun {
		p.Log.Infof("DRY-RUN: would delete %d duplicate files", deleted)
		return nil
	}
	p.Log.Warnf("deleted %d duplicate files, kept %d originals", deleted, len(groups))
	if err := p.Run.SaveMetadata(); err != nil {
		p.Log.Errorf("failed to save run metadata: %v", err)
	}
	return p.Run.SaveSummary()
}

func (p *Pipeline) deleteWithSidecars(path string) error {
	if err := os.Remove(path); err != nil {
		return err
	}
	p.Log.Infof("deleted: %s", path)

	if xmp := FindXMPFile(path); xmp != "" {
		if err := os.Remove(xmp); err != nil {
			p.Log.Warnf("failed to delete XMP %s: %v", xmp, err)
		} else {
			p.Log.Infof("deleted XMP: %s", xmp)
		}
	}
	if aae := FindAAEFile(path); aae != "" {
		if err := os.Remove(aae); err != nil {
			p.Log.Warnf("failed to delete AAE %s: %v", aae, err)
		} else {
			p.Log.Infof("deleted AAE: %s", aae)
		}
	}
	return nil
}

// newestExportDir returns the most recently modified directory under the
// target that contains at least one supported media file.
func (p *Pipeline) newestExportDir() (string, error) {
	entries, err := os.ReadDir(p.Run.TargetDir)
	if err != nil {
		return "", fmt.Errorf("cannot read target directory: %w", err)
	}

	type candidate struct {
		path string
		mod  time.Time
	}
	var dirs []candidate
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		dirs = append(dirs, candidate{path: filepath.Join(p.Run.TargetDir, e.Name()), mod: info.ModTime()})
	}
	sort.Slice(dirs, func(i, j int) bool { return dirs[i].mod.After(dirs[j].mod) })

	for _, d := range dirs {
		files, err := ScanMediaFiles(d.path, p.Cfg)
		if err == nil && len(files) > 0 {
			return d.path, nil
		}
	}
	return "", nil
}
