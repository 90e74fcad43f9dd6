// Package tailer implements the File Tailer: resumable, fault-tolerant
// follow-from-end of a growing log file. It never parses or coalesces
// lines; it only ever yields raw, newly appended lines in file order.
package tailer

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/pterm/pterm"
)

const retryDelay = 5 * time.Second

// Tailer follows one file, delivering each newly appended line to onLine
// exactly once, in file order, for as long as Run's context is alive.
type Tailer struct {
	path         string
	pollInterval time.Duration
	logger       *pterm.Logger

	position int64
	fileID   os.FileInfo // used with os.SameFile to detect rotation via inode/device change
}

// New constructs a Tailer for path, polling at the given interval
// (defaults to 500ms if zero).
func New(path string, pollInterval time.Duration, logger *pterm.Logger) *Tailer {
	if pollInterval <= 0 {
		pollInterval = 500 * time.Millisecond
	}
	return &Tailer{path: path, pollInterval: pollInterval, logger: logger}
}

// Run blocks until ctx is cancelled, delivering lines to onLine as they
// appear. It never returns on its own while ctx is alive: filesystem
// errors enter a retry loop rather than terminating the tailer.
func (t *Tailer) Run(ctx context.Context, onLine func(line string)) {
	watcher, watchErr := fsnotify.NewWatcher()
	if watchErr != nil {
		t.logger.Warn("fsnotify unavailable, falling back to poll-only rotation detection",
			t.logger.Args("path", t.path, "error", watchErr))
	} else {
		defer watcher.Close()
		if err := watcher.Add(filepath.Dir(t.path)); err != nil {
			t.logger.Warn("failed to watch log directory, falling back to poll-only rotation detection",
				t.logger.Args("path", t.path, "error", err))
		}
	}

	for {
		if ctx.Err() != nil {
			return
		}
		if err := t.openAtEnd(); err != nil {
			t.logger.Debug("tailer waiting for file", t.logger.Args("path", t.path, "error", err))
			if !sleepOrDone(ctx, retryDelay) {
				return
			}
			continue
		}
		t.pollLoop(ctx, watcher, onLine)
	}
}

// openAtEnd stats the file (which must already exist) and initializes the
// cursor to the current size, per the "start at end on first open"
// contract: historical backlog is intentionally skipped.
func (t *Tailer) openAtEnd() error {
	info, err := os.Stat(t.path)
	if err != nil {
		return err
	}
	t.fileID = info
	t.position = info.Size()
	return nil
}

func (t *Tailer) pollLoop(ctx context.Context, watcher *fsnotify.Watcher, onLine func(line string)) {
	ticker := time.NewTicker(t.pollInterval)
	defer ticker.Stop()

	var events <-chan fsnotify.Event
	if watcher != nil {
		events = watcher.Events
	}

	for {
		select {
		case <-ctx.Done():
			return

		case ev, ok := <-events:
			if !ok {
				events = nil
				continue
			}
			if filepath.Clean(ev.Name) != filepath.Clean(t.path) {
				continue
			}
			if ev.Op&(fsnotify.Create|fsnotify.Rename) != 0 {
				t.logger.Debug("rotation event observed", t.logger.Args("path", t.path, "op", ev.Op.String()))
				t.reopenFromZero(onLine)
			}

		case <-ticker.C:
			if t.rotatedByInode() {
				t.logger.Debug("inode change detected", t.logger.Args("path", t.path))
				t.reopenFromZero(onLine)
				continue
			}
			if err := t.pollOnce(onLine); err != nil {
				t.logger.Debug("tailer poll error, retrying after delay", t.logger.Args("path", t.path, "error", err))
				if !sleepOrDone(ctx, retryDelay) {
					return
				}
				continue
			}
		}
	}
}

// rotatedByInode detects the case fsnotify may miss or be unavailable
// for: the path now refers to a different underlying file (device+inode
// pair) than the one we opened, even though a Stat still succeeds.
func (t *Tailer) rotatedByInode() bool {
	info, err := os.Stat(t.path)
	if err != nil {
		return false
	}
	return t.fileID != nil && !os.SameFile(t.fileID, info)
}

func (t *Tailer) reopenFromZero(onLine func(line string)) {
	info, err := os.Stat(t.path)
	if err != nil {
		return
	}
	t.fileID = info
	t.position = 0
	_ = t.pollOnce(onLine)
}

// pollOnce reads whatever new bytes have appeared since t.position,
// handling truncation (size shrink) as a rotation to offset zero. Per
// spec.md §4.2, the cursor advances to the current size on every poll,
// not merely to the last complete line: the file is only ever read up to
// the size observed by Stat, so every byte in range was already durably
// written.
func (t *Tailer) pollOnce(onLine func(line string)) error {
	info, err := os.Stat(t.path)
	if err != nil {
		return err
	}

	size := info.Size()
	if size < t.position {
		// Truncation / rotation: source ambiguity resolved per spec.md
		// §9 — restart from the beginning of what is now a new file.
		t.position = 0
	}
	if size == t.position {
		return nil
	}

	f, err := os.Open(t.path)
	if err != nil {
		return err
	}
	defer f.Close()

	if _, err := f.Seek(t.position, io.SeekStart); err != nil {
		return err
	}

	buf := make([]byte, size-t.position)
	if _, err := io.ReadFull(f, buf); err != nil {
		return err
	}

	for _, line := range splitLines(buf) {
		if line != "" {
			onLine(line)
		}
	}

	t.position = size
	t.fileID = info
	return nil
}

func splitLines(buf []byte) []string {
	lines := []string{}
	start := 0
	for i, b := range buf {
		if b == '\n' {
			lines = append(lines, string(buf[start:i]))
			start = i + 1
		}
	}
	if start < len(buf) {
		lines = append(lines, string(buf[start:]))
	}
	return lines
}

func sleepOrDone(ctx context.Context, d time.Duration) bool {
	select {
	case <-ctx.Done():
		return false
	case <-time.After(d):
		return true
	}
}
