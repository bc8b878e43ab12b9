// Package watcher reports changes to model response files under a directory.
package watcher

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/ritzau/promptgraph/pkg/logging"
)

// batchWindow groups raw fsnotify events before they are emitted.
const batchWindow = 100 * time.Millisecond

// ChangeEvent is a batch of changed paths.
type ChangeEvent struct {
	Paths     []string
	Timestamp time.Time
}

// FileWatcher watches a directory tree for changes to files accepted by its
// filter. Directories created after Start are watched as they appear.
type FileWatcher struct {
	watcher *fsnotify.Watcher
	root    string
	filter  func(path string) bool
	events  chan ChangeEvent
}

// NewFileWatcher creates a watcher for root. A nil filter accepts every file.
func NewFileWatcher(root string, filter func(path string) bool) (*FileWatcher, error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create fsnotify watcher: %w", err)
	}
	if filter == nil {
		filter = func(string) bool { return true }
	}

	return &FileWatcher{
		watcher: w,
		root:    root,
		filter:  filter,
		events:  make(chan ChangeEvent, 100),
	}, nil
}

// Start registers the directory tree and processes events until ctx is
// cancelled, at which point the Events channel is closed.
func (fw *FileWatcher) Start(ctx context.Context) error {
	count, err := fw.addTree(fw.root, nil)
	if err != nil {
		fw.watcher.Close()
		return err
	}
	logging.Info("started watching outputs", "path", fw.root, "dirs", count)

	go fw.processEvents(ctx)
	return nil
}

// addTree watches dir and every non-hidden directory below it. Files that
// pass the filter are handed to onFile when it is non-nil.
func (fw *FileWatcher) addTree(dir string, onFile func(string)) (int, error) {
	count := 0
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if path == dir {
				return err
			}
			return nil
		}
		if !d.IsDir() {
			if onFile != nil && fw.filter(path) {
				onFile(path)
			}
			return nil
		}
		if path != dir && strings.HasPrefix(d.Name(), ".") {
			return filepath.SkipDir
		}
		if err := fw.watcher.Add(path); err != nil {
			logging.Warn("failed to watch directory", "path", path, "error", err)
			return nil
		}
		count++
		return nil
	})
	if err != nil {
		return count, fmt.Errorf("failed to walk %s: %w", dir, err)
	}
	return count, nil
}

func (fw *FileWatcher) processEvents(ctx context.Context) {
	defer close(fw.events)
	defer fw.watcher.Close()

	var pending []string
	seen := make(map[string]bool)
	add := func(path string) {
		if !seen[path] {
			seen[path] = true
			pending = append(pending, path)
		}
	}

	flushTimer := time.NewTimer(batchWindow)
	flushTimer.Stop()

	flush := func() {
		if len(pending) == 0 {
			return
		}
		event := ChangeEvent{Paths: pending, Timestamp: time.Now()}
		pending = nil
		seen = make(map[string]bool)

		select {
		case fw.events <- event:
		case <-ctx.Done():
		}
	}

	for {
		select {
		case <-ctx.Done():
			return

		case event, ok := <-fw.watcher.Events:
			if !ok {
				flush()
				return
			}

			if event.Has(fsnotify.Create) {
				if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
					if strings.HasPrefix(filepath.Base(event.Name), ".") {
						continue
					}
					// a directory moved in may already hold documents
					before := len(pending)
					if _, err := fw.addTree(event.Name, add); err != nil {
						logging.Warn("failed to watch new directory", "path", event.Name, "error", err)
					}
					if len(pending) > before {
						flushTimer.Reset(batchWindow)
					}
					continue
				}
			}
			if event.Op == fsnotify.Chmod || !fw.filter(event.Name) {
				continue
			}

			logging.Trace("file event", "path", event.Name, "op", event.Op.String())
			add(event.Name)
			flushTimer.Reset(batchWindow)

		case <-flushTimer.C:
			flush()

		case err, ok := <-fw.watcher.Errors:
			if !ok {
				return
			}
			logging.Error("watcher error", "error", err)
		}
	}
}

// Events returns the channel of change batches.
func (fw *FileWatcher) Events() <-chan ChangeEvent {
	return fw.events
}
