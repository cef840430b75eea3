package internal

import (
	"os"
	"path/filepath"
	"strings"
	"unicode"
)

// FindXMPFile probes the sidecar naming conventions Apple Photos and Adobe
// tools use, first match wins. Returns "" when no sidecar exists.
func FindXMPFile(photoPath string) string {
	ext := filepath.Ext(photoPath)
	stem := strings.TrimSuffix(photoPath, ext)

	candidates := []string{
		photoPath + ".xmp", // IMG_1234.HEIC.xmp
		photoPath + ".XMP",
		stem + ".xmp", // IMG_1234.xmp
		stem + ".XMP",
	}
	for _, c := range candidates {
		if fileExists(c) {
			return c
		}
	}
	return ""
}

// FindAAEFile probes for an Apple Adjustment Export sidecar. Besides the
// direct match, Apple Photos writes IMG_1234.HEIC -> IMG_O1234.aae and
// 1470.HEIC -> 1470O.aae. Absence is normal.
func FindAAEFile(photoPath string) string {
	dir := filepath.Dir(photoPath)
	ext := filepath.Ext(photoPath)
	stem := strings.TrimSuffix(filepath.Base(photoPath), ext)

	candidates := []string{
		filepath.Join(dir, stem+".aae"),
		filepath.Join(dir, stem+".AAE"),
	}
	for _, c := range candidates {
		if fileExists(c) {
			return c
		}
	}

	if num, ok := strings.CutPrefix(stem, "IMG_"); ok {
		candidates = []string{
			filepath.Join(dir, "IMG_O"+num+".aae"),
			filepath.Join(dir, "IMG_O"+num+".AAE"),
		}
		for _, c := range candidates {
			if fileExists(c) {
				return c
			}
		}
	} else if isDigits(stem) {
		candidates = []string{
			filepath.Join(dir, stem+"O.aae"),
			filepath.Join(dir, stem+"O.AAE"),
		}
		for _, c := range candidates {
			if fileExists(c) {
				return c
			}
		}
	}
	return ""
}

func fileExists(path string) bool {
	fi, err := os.Stat(path)
	return err == nil && !fi.IsDir()
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if !unicode.IsDigit(r) {
			return false
		}
	}
	return true
}
