package internal

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// SecurityError marks a path that resolved outside the allowed directory
// set. Never recovered silently: the offending path is skipped and surfaced.
type SecurityError struct {
	Path   string
	Reason string
}

func (e *SecurityError) Error() string {
	return fmt.Sprintf("unsafe path %s: %s", e.Path, e.Reason)
}

// Subdirectories of the user's home that exports may touch in addition to
// the run's own source and target roots.
var allowedUserDirs = []string{"Downloads", "Pictures", "Desktop", "Documents", "Movies"}

const maxPathLen = 4096

// PathValidator checks resolved paths against an allow-listed root set.
type PathValidator struct {
	roots []string
}

// NewPathValidator allows the given roots plus the common user media
// directories under $HOME.
func NewPathValidator(roots ...string) *PathValidator {
	v := &PathValidator{}
	for _, r := range roots {
		if abs, err := filepath.Abs(r); err == nil {
			v.roots = append(v.roots, abs)
		}
	}
	if home, err := os.UserHomeDir(); err == nil {
		for _, d := range allowedUserDirs {
			v.roots = append(v.roots, filepath.Join(home, d))
		}
	}
	return v
}

// Validate resolves path and rejects it unless it sits under an allowed
// root. Control characters and overlong paths are rejected outright.
func (v *PathValidator) Validate(path string) (string, error) {
	if len(path) > maxPathLen {
		return "", &SecurityError{Path: path[:64] + "...", Reason: "path too long"}
	}
	for _, r := range path {
		if r < 0x20 || r == 0x7f {
			return "", &SecurityError{Path: path, Reason: "control character in path"}
		}
	}

	abs, err := filepath.Abs(path)
	if err != nil {
		return "", &SecurityError{Path: path, Reason: err.Error()}
	}
	abs = filepath.Clean(abs)

	for _, root := range v.roots {
		if abs == root || strings.HasPrefix(abs, root+string(filepath.Separator)) {
			return abs, nil
		}
	}
	return "", &SecurityError{Path: path, Reason: "outside allowed directories"}
}

// SafeJoin sanitizes each part, joins under base and validates the result.
func (v *PathValidator) SafeJoin(base string, parts ...string) (string, error) {
	p := base
	for _, part := range parts {
		p = filepath.Join(p, SanitizeFilename(part))
	}
	return v.Validate(p)
}

// SanitizeFilename strips characters that are unsafe in filenames and caps
// the length at 255 bytes, keeping the extension.
func SanitizeFilename(name string) string {
	var b strings.Builder
	for _, r := range name {
		switch {
		case r < 0x20 || r == 0x7f:
		case strings.ContainsRune(`<>:"/\|?*`, r):
			b.WriteRune('_')
		default:
			b.WriteRune(r)
		}
	}
	out := strings.Trim(b.String(), ". ")
	if out == "" {
		return "unnamed"
	}
	if len(out) > 255 {
		ext := filepath.Ext(out)
		out = out[:255-len(ext)] + ext
	}
	return out
}
