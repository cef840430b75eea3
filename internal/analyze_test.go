package internal

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestAnalyzeFolder(t *testing.T) {
	src := t.TempDir()
	june := time.Date(2023, 6, 15, 10, 0, 0, 0, time.UTC)
	feb := time.Date(2021, 2, 3, 9, 30, 0, 0, time.UTC)

	writeMedia(t, filepath.Join(src, "a.jpg"), "duplicate content", june)
	writeMedia(t, filepath.Join(src, "b.jpg"), "duplicate content", june)
	writeMedia(t, filepath.Join(src, "c.mov"), "unique video", feb)
	writeMedia(t, filepath.Join(src, "a.jpg.xmp"), xmpNoDates, june)
	writeMedia(t, filepath.Join(src, "IMG_O1.aae"), "<plist/>", june)
	writeMedia(t, filepath.Join(src, "notes.txt"), "text", june)

	results, err := AnalyzeFolder(src, testConfig(), &AnalyzeOptions{FindDuplicates: true})
	if err != nil {
		t.Fatal(err)
	}

	if results.TotalFiles != 4 {
		t.Errorf("total files = %d, want 4 (media plus aae)", results.TotalFiles)
	}
	if results.XMPSidecars != 1 || results.AAESidecars != 1 {
		t.Errorf("sidecar counts wrong: xmp=%d aae=%d", results.XMPSidecars, results.AAESidecars)
	}
	if got := results.Categories[string(CategoryImage)].Count; got != 2 {
		t.Errorf("image count = %d, want 2", got)
	}
	if got := results.Categories[string(CategoryVideo)].Count; got != 1 {
		t.Errorf("video count = %d, want 1", got)
	}
	if results.Unsupported[".txt"] != 1 {
		t.Errorf("unsupported tally wrong: %v", results.Unsupported)
	}

	if len(results.Duplicates) != 1 {
		t.Fatalf("duplicate sets = %d, want 1", len(results.Duplicates))
	}
	if len(results.Duplicates[0].Files) != 2 {
		t.Errorf("duplicate set size = %d, want 2", len(results.Duplicates[0].Files))
	}

	if results.DateRange == nil {
		t.Fatal("date range missing")
	}
	if !results.DateRange.Earliest.Equal(feb) || !results.DateRange.Latest.Equal(june) {
		t.Errorf("date range = %v..%v", results.DateRange.Earliest, results.DateRange.Latest)
	}
}

func TestAnalyzeFolderEmpty(t *testing.T) {
	results, err := AnalyzeFolder(t.TempDir(), testConfig(), &AnalyzeOptions{})
	if err != nil {
		t.Fatal(err)
	}
	if results.TotalFiles != 0 || results.DateRange != nil {
		t.Errorf("unexpected results for empty folder: %+v", results)
	}
}

func TestAnalyzeFolderMissing(t *testing.T) {
	if _, err := AnalyzeFolder(filepath.Join(t.TempDir(), "gone"), testConfig(), &AnalyzeOptions{}); err == nil {
		t.Error("expected error for missing folder")
	}
}

func TestDuplicateSetsOrdering(t *testing.T) {
	dir := t.TempDir()
	small1 := filepath.Join(dir, "s1.jpg")
	small2 := filepath.Join(dir, "s2.jpg")
	big1 := filepath.Join(dir, "b1.jpg")
	big2 := filepath.Join(dir, "b2.jpg")
	for path, content := range map[string]string{
		small1: "aa", small2: "aa",
		big1: "a much larger duplicate payload", big2: "a much larger duplicate payload",
	} {
		if err := os.WriteFile(path, []byte(content), 0644); err != nil {
			t.Fatal(err)
		}
	}

	fingerprints := map[string][]string{}
	for _, path := range []string{small1, small2, big1, big2} {
		fp, err := FingerprintFile(path, CategoryImage)
		if err != nil {
			t.Fatal(err)
		}
		fingerprints[fp] = append(fingerprints[fp], path)
	}

	sets := duplicateSets(fingerprints)
	if len(sets) != 2 {
		t.Fatalf("got %d sets, want 2", len(sets))
	}
	// Biggest wasted bytes first.
	if sets[0].Size <= sets[1].Size {
		t.Errorf("sets not ordered by waste: %d then %d", sets[0].Size, sets[1].Size)
	}
}
