package internal

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// Organizer derives canonical output paths and performs the copies. Filename
// generation and conflict resolution share one mutex so placement stays
// collision-free even if callers overlap.
type Organizer struct {
	ExportDir      string
	DryRun         bool
	NestByMonthDay bool

	validator *PathValidator
	log       *logrus.Logger

	mu        sync.Mutex
	perSecond map[string]int // counter per truncated-to-second timestamp
}

func NewOrganizer(exportDir string, dryRun, nestByMonthDay bool, validator *PathValidator, log *logrus.Logger) *Organizer {
	return &Organizer{
		ExportDir:      exportDir,
		DryRun:         dryRun,
		NestByMonthDay: nestByMonthDay,
		validator:      validator,
		log:            log,
		perSecond:      make(map[string]int),
	}
}

// GenerateFilename builds YYYYMMDD-HHMMSS-mmm.ext. The mmm part is the real
// sub-second milliseconds when the timestamp carries them, otherwise a
// per-second counter that makes bursts of same-second captures unique for
// the lifetime of the process.
func (o *Organizer) GenerateFilename(creationDate time.Time, extension string) string {
	base := creationDate.Format(TimestampFormat)

	var millis string
	if ms := creationDate.Nanosecond() / int(time.Millisecond); ms > 0 {
		millis = fmt.Sprintf("%03d", ms)
	} else {
		o.mu.Lock()
		o.perSecond[base]++
		millis = fmt.Sprintf("%03d", o.perSecond[base])
		o.mu.Unlock()
	}
	return SanitizeFilename(fmt.Sprintf("%s-%s%s", base, millis, extension))
}

// DateDir returns (and in run mode creates) the dated directory for a
// timestamp under base: flat <year> by default, <year>/<mm>/<dd> when
// month/day nesting is configured. Creation is mkdir -p, idempotent.
func (o *Organizer) DateDir(base string, t time.Time) (string, error) {
	parts := []string{fmt.Sprintf("%d", t.Year())}
	if o.NestByMonthDay {
		parts = append(parts, fmt.Sprintf("%02d", int(t.Month())), fmt.Sprintf("%02d", t.Day()))
	}
	dir, err := o.validator.SafeJoin(base, parts...)
	if err != nil {
		return "", err
	}
	if !o.DryRun {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return "", fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}
	return dir, nil
}

// ResolveConflict appends -NNN before the extension until the path is free.
// Caller holds no lock; this runs under the organizer mutex.
func (o *Organizer) ResolveConflict(target string) string {
	o.mu.Lock()
	defer o.mu.Unlock()
	return resolveConflictLocked(target)
}

func resolveConflictLocked(target string) string {
	if _, err := os.Stat(target); errors.Is(err, os.ErrNotExist) {
		return target
	}
	ext := filepath.Ext(target)
	stem := strings.TrimSuffix(target, ext)
	for i := 1; ; i++ {
		try := fmt.Sprintf("%s-%03d%s", stem, i, ext)
		if _, err := os.Stat(try); errors.Is(err, os.ErrNotExist) {
			return try
		}
	}
}

// Place copies a resolved record into the main export tree.
func (o *Organizer) Place(rec *MediaRecord) (int64, error) {
	return o.PlaceInto(rec, o.ExportDir)
}

// PlaceInto copies a record plus its located sidecars into the dated layout
// under base, returning the number of bytes copied. In dry-run mode every
// decision is still made and logged, only the byte copy is skipped.
func (o *Organizer) PlaceInto(rec *MediaRecord, base string) (int64, error) {
	if !rec.Valid || rec.CreationDate.IsZero() {
		return 0, fmt.Errorf("record has no resolved creation date: %s", rec.OriginalFilename)
	}

	dir, err := o.DateDir(base, rec.CreationDate)
	if err != nil {
		return 0, err
	}

	name := o.GenerateFilename(rec.CreationDate, rec.Extension)
	target := o.ResolveConflict(filepath.Join(dir, name))
	stem := strings.TrimSuffix(target, filepath.Ext(target))

	if o.DryRun {
		o.log.Debugf("DRY-RUN: would copy %s -> %s", rec.OriginalFilename, target)
		if rec.XMPPath != "" {
			o.log.Debugf("DRY-RUN: would copy XMP %s -> %s.xmp", filepath.Base(rec.XMPPath), filepath.Base(stem))
		}
		if rec.AAEPath != "" {
			o.log.Debugf("DRY-RUN: would copy AAE %s -> %s.aae", filepath.Base(rec.AAEPath), filepath.Base(stem))
		}
		return 0, nil
	}

	if err := copyFilePreserving(rec.OriginalPath, target); err != nil {
		return 0, fmt.Errorf("failed to copy %s: %w", rec.OriginalPath, err)
	}
	copied := rec.Size
	o.log.Debugf("copied %s -> %s", rec.OriginalFilename, target)

	// Sidecars are copied independently: a sidecar failure does not undo
	// the primary copy.
	if rec.XMPPath != "" {
		if err := copyFilePreserving(rec.XMPPath, stem+".xmp"); err != nil {
			o.log.Warnf("failed to copy XMP for %s: %v", rec.OriginalFilename, err)
		} else if fi, err := os.Stat(rec.XMPPath); err == nil {
			copied += fi.Size()
		}
	}
	if rec.AAEPath != "" {
		if err := copyFilePreserving(rec.AAEPath, stem+".aae"); err != nil {
			o.log.Warnf("failed to copy AAE for %s: %v", rec.OriginalFilename, err)
		} else if fi, err := os.Stat(rec.AAEPath); err == nil {
			copied += fi.Size()
		}
	}
	return copied, nil
}

// ResetCounters clears the per-second filename counters. Only used by tests;
// a process keeps its counters for its whole lifetime.
func (o *Organizer) ResetCounters() {
	o.mu.Lock()
	o.perSecond = make(map[string]int)
	o.mu.Unlock()
}

// copyFilePreserving copies atomically (temp + rename) and carries over the
// source's permissions and modification time where the filesystem allows.
func copyFilePreserving(src, dest string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	fi, err := in.Stat()
	if err != nil {
		return err
	}

	tmp := dest + ".tmp"
	out, err := os.OpenFile(tmp, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, fi.Mode().Perm())
	if err != nil {
		return err
	}

	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		os.Remove(tmp)
		return err
	}
	if err := out.Close(); err != nil {
		os.Remove(tmp)
		return err
	}

	if err := os.Rename(tmp, dest); err != nil {
		os.Remove(tmp)
		return err
	}
	// Best effort; some filesystems refuse mtime changes.
	_ = os.Chtimes(dest, time.Now(), fi.ModTime())
	return nil
}
