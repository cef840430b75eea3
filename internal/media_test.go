package internal

import (
	"os"
	"path/filepath"
	"sort"
	"testing"
)

func TestScanMediaFiles(t *testing.T) {
	src := t.TempDir()
	sub := filepath.Join(src, "vacation")
	hiddenDir := filepath.Join(src, ".Trashes")
	if err := os.MkdirAll(sub, 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.MkdirAll(hiddenDir, 0755); err != nil {
		t.Fatal(err)
	}

	touch(t, filepath.Join(src, "b.jpg"))
	touch(t, filepath.Join(src, "a.jpg"))
	touch(t, filepath.Join(src, ".DS_Store"))
	touch(t, filepath.Join(src, "notes.txt"))
	touch(t, filepath.Join(sub, "c.mov"))
	touch(t, filepath.Join(hiddenDir, "ghost.jpg"))

	files, err := ScanMediaFiles(src, testConfig())
	if err != nil {
		t.Fatal(err)
	}

	want := []string{
		filepath.Join(src, "a.jpg"),
		filepath.Join(src, "b.jpg"),
		filepath.Join(sub, "c.mov"),
	}
	if len(files) != len(want) {
		t.Fatalf("got %d files, want %d: %v", len(files), len(want), files)
	}
	for i := range want {
		if files[i] != want[i] {
			t.Errorf("files[%d] = %q, want %q", i, files[i], want[i])
		}
	}

	// The walk must already be in stable lexical order.
	if !sort.StringsAreSorted(files) {
		t.Error("scan order is not lexical")
	}
}

func TestNewMediaRecord(t *testing.T) {
	rec := NewMediaRecord("/photos/IMG_1234.JPG", 42, testConfig())
	if rec.Extension != ".jpg" {
		t.Errorf("extension = %q, want lower-cased .jpg", rec.Extension)
	}
	if rec.Category != CategoryImage {
		t.Errorf("category = %v, want image", rec.Category)
	}
	if rec.OriginalFilename != "IMG_1234.JPG" {
		t.Errorf("filename = %q", rec.OriginalFilename)
	}
	if rec.Valid {
		t.Error("a fresh record must not be valid before date resolution")
	}
}
