package internal

import (
	"fmt"
	"io/fs"
	"path/filepath"
	"strings"
	"time"
)

// FileCategory classifies a file by extension. The category is part of the
// duplicate composite key so identical bytes in different media containers
// never collapse into one group.
type FileCategory string

const (
	CategoryImage    FileCategory = "image"
	CategoryVideo    FileCategory = "video"
	CategoryMetadata FileCategory = "metadata"
	CategoryOther    FileCategory = "other"
)

// DateSource tags which metadata source won the date resolution.
type DateSource string

const (
	DateSourceEXIF  DateSource = "exif"
	DateSourceXMP   DateSource = "xmp"
	DateSourceFile  DateSource = "file"
	DateSourceError DateSource = "error"
)

// MediaRecord is one input file under consideration. Extension is always
// lower-case; Category is derived from it once at construction. A record
// with Valid=false never carries a CreationDate.
type MediaRecord struct {
	OriginalPath     string
	OriginalFilename string
	Extension        string
	Size             int64
	Category         FileCategory

	CreationDate time.Time
	Source       DateSource
	Valid        bool
	ErrMessage   string

	XMPPath string
	AAEPath string

	// Fingerprint is the duplicate composite key, filled during extraction.
	Fingerprint string
}

func NewMediaRecord(path string, size int64, cfg *Config) *MediaRecord {
	ext := strings.ToLower(filepath.Ext(path))
	return &MediaRecord{
		OriginalPath:     path,
		OriginalFilename: filepath.Base(path),
		Extension:        ext,
		Size:             size,
		Category:         cfg.Categorize(ext),
	}
}

// Categorize maps a lower-cased extension to its category.
func (c *Config) Categorize(ext string) FileCategory {
	for _, e := range c.ImageExt {
		if ext == e {
			return CategoryImage
		}
	}
	for _, e := range c.VideoExt {
		if ext == e {
			return CategoryVideo
		}
	}
	for _, e := range c.MetadataExt {
		if ext == e {
			return CategoryMetadata
		}
	}
	return CategoryOther
}

// IsProcessable reports whether the extension names a photo or video that
// goes through the pipeline. AAE and XMP sidecars ride along with their
// primary file instead.
func (c *Config) IsProcessable(ext string) bool {
	switch c.Categorize(ext) {
	case CategoryImage, CategoryVideo:
		return true
	}
	return false
}

// System folders that never contain user media.
var skipFolders = map[string]bool{
	".DocumentRevisions-V100": true,
	".Spotlight-V100":         true,
	".fseventsd":              true,
	".Trashes":                true,
}

// ScanMediaFiles walks the source tree and returns processable media files.
// filepath.WalkDir visits entries in lexical order, which is the stable
// traversal order that defines "first occurrence" for duplicate handling.
func ScanMediaFiles(inputDir string, cfg *Config) ([]string, error) {
	var files []string
	err := filepath.WalkDir(inputDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		name := d.Name()
		if d.IsDir() {
			if skipFolders[name] {
				return fs.SkipDir
			}
			return nil
		}
		if strings.HasPrefix(name, ".") {
			return nil
		}
		if cfg.IsProcessable(strings.ToLower(filepath.Ext(name))) {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("error scanning files: %w", err)
	}
	return files, nil
}

// ScanAllFiles returns every regular non-hidden file, used by the unsupported
// format accounting and the analyze command.
func ScanAllFiles(inputDir string) ([]string, error) {
	var files []string
	err := filepath.WalkDir(inputDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		name := d.Name()
		if d.IsDir() {
			if skipFolders[name] {
				return fs.SkipDir
			}
			return nil
		}
		if strings.HasPrefix(name, ".") {
			return nil
		}
		files = append(files, path)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("error scanning files: %w", err)
	}
	return files, nil
}
