package internal

import (
	"os"
	"time"
)

// ChooseBestDate picks the canonical creation timestamp. When both EXIF and
// XMP dates exist the earlier one wins (metadata edits only ever push dates
// forward, so the capture moment is the minimum); a tie goes to EXIF. With
// neither present the file modification date is used.
func ChooseBestDate(exifDate, xmpDate, fileDate time.Time) (time.Time, DateSource) {
	switch {
	case !exifDate.IsZero() && !xmpDate.IsZero():
		if !exifDate.After(xmpDate) {
			return exifDate, DateSourceEXIF
		}
		return xmpDate, DateSourceXMP
	case !exifDate.IsZero():
		return exifDate, DateSourceEXIF
	case !xmpDate.IsZero():
		return xmpDate, DateSourceXMP
	default:
		return fileDate, DateSourceFile
	}
}

// FileModTime returns the file modification time in UTC. It never fails: on
// a stat error it falls back to the current time and reports the error so
// the caller can log a warning.
func FileModTime(path string) (time.Time, error) {
	fi, err := os.Stat(path)
	if err != nil {
		return time.Now().UTC(), err
	}
	return fi.ModTime().UTC(), nil
}
