package internal

import (
	"testing"
	"time"
)

func TestDebouncerHoldsActiveFiles(t *testing.T) {
	d := NewDebouncer(2 * time.Second)
	d.Touch("/incoming/a.jpg")
	d.Touch("/incoming/b.mov")

	// Nothing has been quiet for a full window yet.
	if got := d.Ready(time.Now()); len(got) != 0 {
		t.Errorf("Ready returned %v before the window elapsed", got)
	}

	// After the window both settle, sorted, and are removed.
	later := time.Now().Add(3 * time.Second)
	got := d.Ready(later)
	if len(got) != 2 || got[0] != "/incoming/a.jpg" || got[1] != "/incoming/b.mov" {
		t.Fatalf("Ready = %v, want both paths sorted", got)
	}
	if got := d.Ready(later); len(got) != 0 {
		t.Errorf("settled paths returned twice: %v", got)
	}
}

func TestDebouncerTouchRestartsWindow(t *testing.T) {
	d := NewDebouncer(2 * time.Second)
	d.Touch("/incoming/a.jpg")

	// A second write arrives; the quiet window starts over.
	d.Touch("/incoming/a.jpg")
	if got := d.Ready(time.Now().Add(time.Second)); len(got) != 0 {
		t.Errorf("Ready returned %v right after a fresh touch", got)
	}
}

func TestDebouncerFlush(t *testing.T) {
	d := NewDebouncer(time.Hour)
	d.Touch("/incoming/b.mov")
	d.Touch("/incoming/a.jpg")

	got := d.Flush()
	if len(got) != 2 || got[0] != "/incoming/a.jpg" || got[1] != "/incoming/b.mov" {
		t.Fatalf("Flush = %v, want both paths sorted", got)
	}
	if got := d.Flush(); len(got) != 0 {
		t.Errorf("Flush after drain = %v, want empty", got)
	}
}
