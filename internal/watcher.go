package internal

import (
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// EventType represents the type of filesystem event
type EventType int

const (
	EventCreate EventType = iota
	EventDelete
	EventRename
)

func (t EventType) String() string {
	switch t {
	case EventCreate:
		return "create"
	case EventDelete:
		return "delete"
	case EventRename:
		return "rename"
	}
	return "unknown"
}

// WatchEvent represents a filesystem event on a supported media file
type WatchEvent struct {
	Type EventType
	Path string
}

// Watcher wraps an fsnotify watcher with media-file filtering. Newly
// created subdirectories are added to the watch set automatically.
type Watcher struct {
	cfg     *Config
	watcher *fsnotify.Watcher
	events  chan *WatchEvent
	errors  chan error
}

// NewWatcher creates a recursive filesystem watcher over the source tree
func NewWatcher(sourceDir string, cfg *Config) (*Watcher, error) {
	fsWatcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	w := &Watcher{
		cfg:     cfg,
		watcher: fsWatcher,
		events:  make(chan *WatchEvent, 100),
		errors:  make(chan error, 10),
	}

	if err := w.addRecursive(sourceDir); err != nil {
		fsWatcher.Close()
		return nil, err
	}

	go w.processEvents()
	return w, nil
}

// addRecursive adds a directory and all its non-hidden subdirectories
func (w *Watcher) addRecursive(root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		name := d.Name()
		if path != root && (strings.HasPrefix(name, ".") || skipFolders[name]) {
			return filepath.SkipDir
		}
		return w.watcher.Add(path)
	})
}

func (w *Watcher) processEvents() {
	for {
		select {
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}

			// A new directory means new territory to watch.
			if event.Op&fsnotify.Create != 0 && isDir(event.Name) {
				if err := w.addRecursive(event.Name); err != nil {
					w.pushError(err)
				}
				continue
			}

			ext := strings.ToLower(filepath.Ext(event.Name))
			if !w.cfg.IsProcessable(ext) {
				continue
			}

			we := &WatchEvent{Path: event.Name}
			switch {
			case event.Op&fsnotify.Create != 0:
				we.Type = EventCreate
			case event.Op&fsnotify.Remove != 0:
				we.Type = EventDelete
			case event.Op&fsnotify.Rename != 0:
				we.Type = EventRename
			default:
				continue
			}

			select {
			case w.events <- we:
			default:
				// channel full, drop the event
			}

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.pushError(err)
		}
	}
}

func (w *Watcher) pushError(err error) {
	select {
	case w.errors <- err:
	default:
	}
}

func isDir(path string) bool {
	fi, err := os.Stat(path)
	return err == nil && fi.IsDir()
}

// Events returns the filtered media event channel
func (w *Watcher) Events() <-chan *WatchEvent {
	return w.events
}

// Errors returns the watcher error channel
func (w *Watcher) Errors() <-chan error {
	return w.errors
}

// Close shuts down the underlying watcher
func (w *Watcher) Close() error {
	return w.watcher.Close()
}

// Debouncer holds back file events until a path has been quiet for a full
// window. A camera or sync client writes a file in several bursts; exporting
// on the first create would copy a half-written file.
type Debouncer struct {
	window time.Duration

	mu      sync.Mutex
	pending map[string]time.Time
}

func NewDebouncer(window time.Duration) *Debouncer {
	return &Debouncer{
		window:  window,
		pending: make(map[string]time.Time),
	}
}

// Touch records activity on a path, restarting its quiet window.
func (d *Debouncer) Touch(path string) {
	d.mu.Lock()
	d.pending[path] = time.Now()
	d.mu.Unlock()
}

// Ready removes and returns, in sorted order, every path whose last activity
// is at least one window before now.
func (d *Debouncer) Ready(now time.Time) []string {
	d.mu.Lock()
	defer d.mu.Unlock()

	var settled []string
	for path, last := range d.pending {
		if now.Sub(last) >= d.window {
			settled = append(settled, path)
			delete(d.pending, path)
		}
	}
	sort.Strings(settled)
	return settled
}

// Flush removes and returns every pending path regardless of quiet time,
// for draining on shutdown.
func (d *Debouncer) Flush() []string {
	d.mu.Lock()
	defer d.mu.Unlock()

	paths := make([]string, 0, len(d.pending))
	for path := range d.pending {
		paths = append(paths, path)
	}
	d.pending = make(map[string]time.Time)
	sort.Strings(paths)
	return paths
}
