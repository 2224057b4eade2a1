package reminder

import (
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// TrackedFile is one file the session has read.
type TrackedFile struct {
	Path string
	// Content is the content at read time; empty for partial reads.
	Content string
	// ReadMtime is the file's mtime when it was read.
	ReadMtime time.Time
	// FullRead marks reads of the entire file; only these are eligible
	// for change detection.
	FullRead bool
}

// FileTracker records which files the session has read and detects on-disk
// changes. An fsnotify watcher is attached to the directories of tracked
// files, but its events are drained and ignored; change detection re-stats
// every tracked file, so it does not depend on events arriving.
type FileTracker struct {
	mu      sync.Mutex
	files   map[string]*TrackedFile
	watcher *fsnotify.Watcher
	watched map[string]bool
}

// NewFileTracker creates a tracker. The watcher is best-effort: failure to
// create it degrades to stat-based detection only.
func NewFileTracker() *FileTracker {
	t := &FileTracker{
		files:   make(map[string]*TrackedFile),
		watched: make(map[string]bool),
	}
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		slog.Debug("fsnotify unavailable, falling back to stat-based change detection", "error", err)
		return t
	}
	t.watcher = watcher
	go t.drainEvents()
	return t
}

// drainEvents keeps the watcher's channels empty. Change detection is
// stat-based; events only keep the kernel queue from backing up.
func (t *FileTracker) drainEvents() {
	for {
		select {
		case _, ok := <-t.watcher.Events:
			if !ok {
				return
			}
		case _, ok := <-t.watcher.Errors:
			if !ok {
				return
			}
		}
	}
}

// Close releases the watcher.
func (t *FileTracker) Close() {
	if t.watcher != nil {
		_ = t.watcher.Close()
	}
}

// Track records a file read.
func (t *FileTracker) Track(path, content string, fullRead bool) {
	info, err := os.Stat(path)
	if err != nil {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	t.files[path] = &TrackedFile{
		Path:      path,
		Content:   content,
		ReadMtime: info.ModTime(),
		FullRead:  fullRead,
	}
	if t.watcher != nil {
		dir := filepath.Dir(path)
		if !t.watched[dir] {
			if err := t.watcher.Add(dir); err == nil {
				t.watched[dir] = true
			}
		}
	}
}

// Tracked returns all tracked files sorted by path.
func (t *FileTracker) Tracked() []TrackedFile {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]TrackedFile, 0, len(t.files))
	for _, f := range t.files {
		out = append(out, *f)
	}
	sortTracked(out)
	return out
}

// Changed returns fully-read tracked files whose on-disk mtime advanced
// past the read mtime, refreshing the stored read state so each change
// reports once.
func (t *FileTracker) Changed() []TrackedFile {
	t.mu.Lock()
	defer t.mu.Unlock()
	var out []TrackedFile
	for _, f := range t.files {
		if !f.FullRead {
			continue
		}
		info, err := os.Stat(f.Path)
		if err != nil {
			continue
		}
		if info.ModTime().After(f.ReadMtime) {
			out = append(out, *f)
			f.ReadMtime = info.ModTime()
		}
	}
	sortTracked(out)
	return out
}

func sortTracked(files []TrackedFile) {
	for i := 1; i < len(files); i++ {
		for j := i; j > 0 && files[j].Path < files[j-1].Path; j-- {
			files[j], files[j-1] = files[j-1], files[j]
		}
	}
}
