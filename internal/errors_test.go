package internal

import (
	"errors"
	"fmt"
	"strings"
	"testing"
)

func TestCategorizeError(t *testing.T) {
	testCases := []struct {
		name         string
		err          error
		wantCategory ErrorCategory
		wantSeverity ErrorSeverity
	}{
		{"disk full", errors.New("write /x: no space left on device"), ErrorCategoryFileOp, ErrorSeverityCritical},
		{"permissions", errors.New("open /x: permission denied"), ErrorCategoryFileOp, ErrorSeverityCritical},
		{"missing file", errors.New("stat /x: no such file or directory"), ErrorCategoryFileOp, ErrorSeverityError},
		{"exif failure", errors.New("exif: failed to decode"), ErrorCategoryMetadata, ErrorSeverityWarning},
		{"xmp failure", errors.New("bad xmp document"), ErrorCategoryMetadata, ErrorSeverityWarning},
		{"unknown", errors.New("something odd"), ErrorCategoryUnknown, ErrorSeverityError},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got := CategorizeError("/photos/a.jpg", tc.err)
			if got.Category != tc.wantCategory {
				t.Errorf("category = %v, want %v", got.Category, tc.wantCategory)
			}
			if got.Severity != tc.wantSeverity {
				t.Errorf("severity = %v, want %v", got.Severity, tc.wantSeverity)
			}
			if !errors.Is(got, tc.err) {
				t.Error("original error must remain unwrappable")
			}
		})
	}
}

func TestCategorizeSecurityError(t *testing.T) {
	secErr := &SecurityError{Path: "/evil", Reason: "outside allowed directories"}
	got := CategorizeError("/evil", fmt.Errorf("validation failed: %w", secErr))
	if got.Category != ErrorCategorySecurity {
		t.Errorf("category = %v, want %v", got.Category, ErrorCategorySecurity)
	}
}

func TestCategorizeNil(t *testing.T) {
	if got := CategorizeError("/x", nil); got != nil {
		t.Errorf("got %v, want nil", got)
	}
}

func TestErrorStatsShouldAbort(t *testing.T) {
	t.Run("critical aborts immediately", func(t *testing.T) {
		stats := NewErrorStats()
		stats.Add(CategorizeError("/x", errors.New("no space left on device")))
		if abort, _ := stats.ShouldAbort(); !abort {
			t.Error("critical error must abort the run")
		}
	})

	t.Run("consecutive failures abort", func(t *testing.T) {
		stats := NewErrorStats()
		for i := 0; i < maxConsecutiveErrors-1; i++ {
			stats.Add(CategorizeError("/x", errors.New("something odd")))
		}
		if abort, _ := stats.ShouldAbort(); abort {
			t.Fatal("should not abort below the threshold")
		}
		stats.Add(CategorizeError("/x", errors.New("something odd")))
		if abort, _ := stats.ShouldAbort(); !abort {
			t.Error("should abort at the consecutive threshold")
		}
	})

	t.Run("success resets the streak", func(t *testing.T) {
		stats := NewErrorStats()
		for i := 0; i < maxConsecutiveErrors-1; i++ {
			stats.Add(CategorizeError("/x", errors.New("something odd")))
		}
		stats.ResetConsecutive()
		stats.Add(CategorizeError("/x", errors.New("something odd")))
		if abort, _ := stats.ShouldAbort(); abort {
			t.Error("reset streak must not abort")
		}
	})
}

func TestGenerateReport(t *testing.T) {
	stats := NewErrorStats()
	if stats.GenerateReport() != "" {
		t.Error("no errors should produce an empty report")
	}

	for i := 0; i < 15; i++ {
		stats.Add(CategorizeError(fmt.Sprintf("/photos/%d.jpg", i), errors.New("something odd")))
	}
	report := stats.GenerateReport()
	if !strings.Contains(report, "15 errors") {
		t.Errorf("report missing total count:\n%s", report)
	}
	// Only the first 10 individual errors are listed.
	if !strings.Contains(report, "/photos/0.jpg") {
		t.Error("report should list the first error")
	}
	if !strings.Contains(report, "/photos/9.jpg") {
		t.Error("report should list the tenth error")
	}
	if strings.Contains(report, "/photos/14.jpg") {
		t.Error("report should not list errors past the first ten")
	}
	if !strings.Contains(report, "and 5 more") {
		t.Errorf("report missing overflow line:\n%s", report)
	}
}
