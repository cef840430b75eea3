package internal

import (
	"errors"
	"fmt"
	"strings"
	"sync"
)

// ErrorCategory represents the type of error encountered
type ErrorCategory string

const (
	ErrorCategoryMetadata   ErrorCategory = "metadata_error"   // EXIF/XMP extraction failed
	ErrorCategoryFileOp     ErrorCategory = "file_operation"   // copy/delete/mkdir failure
	ErrorCategorySecurity   ErrorCategory = "security_error"   // path escaped allowed directories
	ErrorCategoryDuplicate  ErrorCategory = "duplicate_error"  // unexpected failure in duplicate handling
	ErrorCategoryValidation ErrorCategory = "validation_error" // bad arguments or configuration
	ErrorCategoryUnknown    ErrorCategory = "unknown_error"    // unexpected errors
)

// ErrorSeverity indicates how critical the error is
type ErrorSeverity string

const (
	ErrorSeverityCritical ErrorSeverity = "critical" // run-fatal (disk full, permissions)
	ErrorSeverityError    ErrorSeverity = "error"    // file-level, run continues
	ErrorSeverityWarning  ErrorSeverity = "warning"  // degraded but recovered
)

// ProcessError is a categorized error from one stage of the pipeline.
type ProcessError struct {
	FilePath    string
	Category    ErrorCategory
	Severity    ErrorSeverity
	OriginalErr error
}

func (e *ProcessError) Error() string {
	return fmt.Sprintf("[%s/%s] %s: %v", e.Severity, e.Category, e.FilePath, e.OriginalErr)
}

func (e *ProcessError) Unwrap() error {
	return e.OriginalErr
}

// CategorizeError analyzes an error and returns a ProcessError with category
// and severity.
func CategorizeError(filePath string, err error) *ProcessError {
	if err == nil {
		return nil
	}

	procErr := &ProcessError{FilePath: filePath, OriginalErr: err}

	var secErr *SecurityError
	if errors.As(err, &secErr) {
		procErr.Category = ErrorCategorySecurity
		procErr.Severity = ErrorSeverityError
		return procErr
	}

	errStr := strings.ToLower(err.Error())
	switch {
	case strings.Contains(errStr, "no space left"):
		procErr.Category = ErrorCategoryFileOp
		procErr.Severity = ErrorSeverityCritical

	case strings.Contains(errStr, "permission denied"),
		strings.Contains(errStr, "read-only file system"),
		strings.Contains(errStr, "too many open files"):
		procErr.Category = ErrorCategoryFileOp
		procErr.Severity = ErrorSeverityCritical

	case strings.Contains(errStr, "input/output error"),
		strings.Contains(errStr, "no such file"):
		procErr.Category = ErrorCategoryFileOp
		procErr.Severity = ErrorSeverityError

	case strings.Contains(errStr, "exif"),
		strings.Contains(errStr, "xmp"),
		strings.Contains(errStr, "metadata"):
		procErr.Category = ErrorCategoryMetadata
		procErr.Severity = ErrorSeverityWarning

	case strings.Contains(errStr, "duplicate"):
		procErr.Category = ErrorCategoryDuplicate
		procErr.Severity = ErrorSeverityError

	default:
		procErr.Category = ErrorCategoryUnknown
		procErr.Severity = ErrorSeverityError
	}

	return procErr
}

// maxConsecutiveErrors aborts the run when this many files fail back to
// back, which almost always means a systemic problem rather than bad files.
const maxConsecutiveErrors = 10

// ErrorStats tracks categorized errors across the run. Workers record into
// it concurrently, hence the mutex.
type ErrorStats struct {
	mu          sync.Mutex
	Total       int
	Critical    int
	Errors      int
	Warnings    int
	ByCategory  map[ErrorCategory]int
	First       []*ProcessError
	Consecutive int
}

func NewErrorStats() *ErrorStats {
	return &ErrorStats{
		ByCategory: make(map[ErrorCategory]int),
		First:      make([]*ProcessError, 0, 10),
	}
}

func (s *ErrorStats) Add(err *ProcessError) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.Total++
	s.Consecutive++
	s.ByCategory[err.Category]++

	switch err.Severity {
	case ErrorSeverityCritical:
		s.Critical++
	case ErrorSeverityError:
		s.Errors++
	case ErrorSeverityWarning:
		s.Warnings++
	}

	// Keep the first errors of the run; later ones only bump the counters.
	if len(s.First) < 10 {
		s.First = append(s.First, err)
	}
}

func (s *ErrorStats) ResetConsecutive() {
	s.mu.Lock()
	s.Consecutive = 0
	s.mu.Unlock()
}

// ShouldAbort reports whether the run should stop based on error patterns.
func (s *ErrorStats) ShouldAbort() (bool, string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.Critical > 0 {
		return true, "critical system error detected, aborting to prevent data loss"
	}
	if s.Consecutive >= maxConsecutiveErrors {
		return true, fmt.Sprintf("%d consecutive errors, likely a systemic issue (disk full, permissions)", maxConsecutiveErrors)
	}
	return false, ""
}

// GenerateReport creates a human-readable error summary: counts per severity
// and category, plus the first individual errors of the run.
func (s *ErrorStats) GenerateReport() string {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.Total == 0 {
		return ""
	}

	var report strings.Builder
	fmt.Fprintf(&report, "\nEncountered %d errors:\n", s.Total)
	if s.Critical > 0 {
		fmt.Fprintf(&report, "  critical: %d\n", s.Critical)
	}
	if s.Errors > 0 {
		fmt.Fprintf(&report, "  errors:   %d\n", s.Errors)
	}
	if s.Warnings > 0 {
		fmt.Fprintf(&report, "  warnings: %d\n", s.Warnings)
	}

	report.WriteString("By category:\n")
	for cat, count := range s.ByCategory {
		fmt.Fprintf(&report, "  %s: %d\n", cat, count)
	}

	report.WriteString("First errors:\n")
	for i, err := range s.First {
		fmt.Fprintf(&report, "  %d. %s [%s/%s]: %v\n", i+1, err.FilePath, err.Severity, err.Category, err.OriginalErr)
	}
	if s.Total > len(s.First) {
		fmt.Fprintf(&report, "  ... and %d more\n", s.Total-len(s.First))
	}
	return report.String()
}
