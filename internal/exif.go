package internal

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	exiftool "github.com/barasher/go-exiftool"
	"github.com/rwcarlsen/goexif/exif"
)

const exifLayout = "2006:01:02 15:04:05"

// EXIFReader extracts an embedded creation timestamp from a media file.
// A zero time with a nil error means the file simply carries no usable date.
type EXIFReader interface {
	Date(path string) (time.Time, error)
}

// GoexifReader reads EXIF with the pure-Go decoder. HEIC containers are
// skipped when configured: they always carry EXIF but decoding them is slow,
// and the XMP sidecar or file date covers them.
type GoexifReader struct {
	SkipHEIC bool
}

func (r *GoexifReader) Date(path string) (time.Time, error) {
	if r.SkipHEIC && strings.ToLower(filepath.Ext(path)) == ".heic" {
		return time.Time{}, nil
	}

	f, err := os.Open(path)
	if err != nil {
		return time.Time{}, err
	}
	defer f.Close()

	x, err := exif.Decode(f)
	if err != nil {
		return time.Time{}, err
	}

	for _, field := range []exif.FieldName{exif.DateTimeOriginal, exif.DateTimeDigitized, exif.DateTime} {
		tag, err := x.Get(field)
		if err != nil {
			continue
		}
		dateStr, err := tag.StringVal()
		if err != nil {
			continue
		}
		if dt, err := time.ParseInLocation(exifLayout, dateStr, time.UTC); err == nil {
			return dt, nil
		}
	}
	return time.Time{}, nil
}

// ExifToolReader extracts dates through a long-running exiftool process.
// It handles RAW and HEIC containers the pure-Go decoder cannot, at the cost
// of requiring the exiftool binary. The underlying process is not safe for
// concurrent use, hence the mutex.
type ExifToolReader struct {
	et *exiftool.Exiftool
	mu sync.Mutex
}

func NewExifToolReader() (*ExifToolReader, error) {
	et, err := exiftool.NewExiftool()
	if err != nil {
		return nil, fmt.Errorf("failed to initialize exiftool: %w", err)
	}
	return &ExifToolReader{et: et}, nil
}

func (r *ExifToolReader) Date(path string) (time.Time, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	infos := r.et.ExtractMetadata(path)
	if len(infos) == 0 || infos[0].Err != nil {
		if len(infos) > 0 && infos[0].Err != nil {
			return time.Time{}, infos[0].Err
		}
		return time.Time{}, nil
	}

	for _, tag := range []string{"DateTimeOriginal", "DateTimeDigitized", "CreateDate", "DateCreated"} {
		val, found := infos[0].Fields[tag]
		if !found {
			continue
		}
		dateStr, ok := val.(string)
		if !ok {
			continue
		}
		if t, err := ParseExifDate(dateStr); err == nil {
			return t, nil
		}
	}
	return time.Time{}, nil
}

func (r *ExifToolReader) Close() {
	r.et.Close()
}

// ParseExifDate parses the date string variants exiftool emits.
func ParseExifDate(dateStr string) (time.Time, error) {
	layouts := []string{
		"2006:01:02 15:04:05-07:00", // With timezone
		"2006:01:02 15:04:05",       // Without timezone
		"2006:01:02",                // Date only
	}
	for _, layout := range layouts {
		if t, err := time.ParseInLocation(layout, dateStr, time.UTC); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized date format: %s", dateStr)
}
