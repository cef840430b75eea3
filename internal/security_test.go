package internal

import (
	"path/filepath"
	"strings"
	"testing"
)

func TestPathValidator(t *testing.T) {
	root := t.TempDir()
	v := NewPathValidator(root)

	t.Run("inside root", func(t *testing.T) {
		path := filepath.Join(root, "2023", "photo.jpg")
		if _, err := v.Validate(path); err != nil {
			t.Errorf("unexpected rejection: %v", err)
		}
	})

	t.Run("root itself", func(t *testing.T) {
		if _, err := v.Validate(root); err != nil {
			t.Errorf("unexpected rejection: %v", err)
		}
	})

	t.Run("traversal escapes root", func(t *testing.T) {
		path := filepath.Join(root, "..", "..", "etc", "passwd")
		if _, err := v.Validate(path); err == nil {
			t.Error("traversal outside root must be rejected")
		}
	})

	t.Run("unrelated absolute path", func(t *testing.T) {
		if _, err := v.Validate("/etc/passwd"); err == nil {
			t.Error("path outside allowed roots must be rejected")
		}
	})

	t.Run("sibling prefix does not match", func(t *testing.T) {
		// /tmp/xyz-evil must not pass because /tmp/xyz is allowed.
		if _, err := v.Validate(root + "-evil/photo.jpg"); err == nil {
			t.Error("prefix sibling must be rejected")
		}
	})

	t.Run("control characters", func(t *testing.T) {
		if _, err := v.Validate(filepath.Join(root, "bad\x00name.jpg")); err == nil {
			t.Error("control characters must be rejected")
		}
	})

	t.Run("overlong path", func(t *testing.T) {
		long := filepath.Join(root, strings.Repeat("a", maxPathLen))
		if _, err := v.Validate(long); err == nil {
			t.Error("overlong path must be rejected")
		}
	})
}

func TestSanitizeFilename(t *testing.T) {
	testCases := []struct {
		input string
		want  string
	}{
		{"20230615-100000-001.jpg", "20230615-100000-001.jpg"},
		{`bad<>:"|?*name.jpg`, "bad_______name.jpg"},
		{"  trimmed.jpg  ", "trimmed.jpg"},
		{"...", "unnamed"},
		{"", "unnamed"},
		{"with\x01control.jpg", "withcontrol.jpg"},
	}

	for _, tc := range testCases {
		if got := SanitizeFilename(tc.input); got != tc.want {
			t.Errorf("SanitizeFilename(%q) = %q, want %q", tc.input, got, tc.want)
		}
	}

	long := strings.Repeat("a", 300) + ".jpg"
	got := SanitizeFilename(long)
	if len(got) > 255 {
		t.Errorf("sanitized name is %d bytes, want at most 255", len(got))
	}
	if !strings.HasSuffix(got, ".jpg") {
		t.Error("extension must survive truncation")
	}
}
