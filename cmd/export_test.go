package cmd

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"photoexport/internal"
)

func TestExportCommandDryRun(t *testing.T) {
	// Create temporary directories with one media file
	tempDir := t.TempDir()
	inputDir := filepath.Join(tempDir, "input")
	targetDir := filepath.Join(tempDir, "target")
	os.MkdirAll(inputDir, 0755)
	os.MkdirAll(targetDir, 0755)
	os.WriteFile(filepath.Join(inputDir, "IMG_0001.jpg"), []byte("test data"), 0644)

	rootCmd.SetArgs([]string{"export", "dry", inputDir, targetDir})
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		t.Fatalf("dry run failed: %v", err)
	}

	// A dry run must not write anything into the target
	entries, err := os.ReadDir(targetDir)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 0 {
		t.Errorf("dry run created entries in target: %v", entries)
	}
}

func TestExportCommandInvalidMode(t *testing.T) {
	rootCmd.SetArgs([]string{"export", "bogus", t.TempDir()})
	err := rootCmd.ExecuteContext(context.Background())
	if err == nil || !strings.Contains(err.Error(), "invalid mode") {
		t.Errorf("got %v, want invalid mode error", err)
	}
}

func TestExportCommandMissingSource(t *testing.T) {
	rootCmd.SetArgs([]string{"export", "dry", filepath.Join(t.TempDir(), "gone")})
	err := rootCmd.ExecuteContext(context.Background())
	if err == nil || !strings.Contains(err.Error(), "does not exist") {
		t.Errorf("got %v, want missing-source error", err)
	}
}

func TestExportCommandInvalidStrategy(t *testing.T) {
	src := t.TempDir()
	rootCmd.SetArgs([]string{"export", "dry", src, "--duplicate-strategy", "newest_wins"})
	err := rootCmd.ExecuteContext(context.Background())
	if err == nil || !strings.Contains(err.Error(), "invalid duplicate strategy") {
		t.Errorf("got %v, want invalid strategy error", err)
	}
}

func TestParseExportMode(t *testing.T) {
	testCases := []struct {
		mode    string
		dryRun  bool
		wantErr bool
	}{
		{"dry", true, false},
		{"run", false, false},
		{"DRY", false, true},
		{"", false, true},
		{"test", false, true},
	}
	for _, tc := range testCases {
		dryRun, err := parseExportMode(tc.mode)
		if (err != nil) != tc.wantErr {
			t.Errorf("parseExportMode(%q) error = %v, wantErr %v", tc.mode, err, tc.wantErr)
			continue
		}
		if !tc.wantErr && dryRun != tc.dryRun {
			t.Errorf("parseExportMode(%q) = %v, want %v", tc.mode, dryRun, tc.dryRun)
		}
	}
}

func TestDefaultTarget(t *testing.T) {
	testCases := []struct {
		source string
		want   string
	}{
		{"/photos/vacation", "/photos/vacation_export"},
		{"/photos/vacation/", "/photos/vacation_export"},
		{"vacation", "vacation_export"},
	}
	for _, tc := range testCases {
		if got := defaultTarget(tc.source); got != tc.want {
			t.Errorf("defaultTarget(%q) = %q, want %q", tc.source, got, tc.want)
		}
	}
}

func TestApplyExportFlagsPrecedence(t *testing.T) {
	conf := &internal.Config{
		Workers:   0,
		BatchSize: 100,
		LogLevel:  "info",
	}

	// Only flags the user actually set may override the config file.
	if err := exportCmd.Flags().Set("workers", "4"); err != nil {
		t.Fatal(err)
	}
	if err := exportCmd.Flags().Set("log-level", "debug"); err != nil {
		t.Fatal(err)
	}

	applyExportFlags(exportCmd, conf)

	if conf.Workers != 4 {
		t.Errorf("workers = %d, want the flag value 4", conf.Workers)
	}
	if conf.LogLevel != "debug" {
		t.Errorf("log level = %q, want the flag value debug", conf.LogLevel)
	}
	if conf.BatchSize != 100 {
		t.Errorf("batch size = %d, want the config value 100 (flag untouched)", conf.BatchSize)
	}
}
