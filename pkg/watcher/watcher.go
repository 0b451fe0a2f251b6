package watcher

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/sbomtools/vulnrank/pkg/logging"
)

// ChangeEvent represents a batch of inventory file changes
type ChangeEvent struct {
	Paths     []string
	Timestamp time.Time
}

// FileWatcher watches an inventory file for changes. The containing
// directory is watched rather than the file itself: editors and CI jobs
// replace files via rename, which drops a watch placed on the file.
type FileWatcher struct {
	watcher *fsnotify.Watcher
	path    string
	events  chan ChangeEvent
}

// NewFileWatcher creates a watcher for a single inventory file
func NewFileWatcher(path string) (*FileWatcher, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve %s: %w", path, err)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create fsnotify watcher: %w", err)
	}

	return &FileWatcher{
		watcher: watcher,
		path:    abs,
		events:  make(chan ChangeEvent, 100),
	}, nil
}

// Start begins watching for file changes
func (fw *FileWatcher) Start(ctx context.Context) error {
	dir := filepath.Dir(fw.path)
	if err := fw.watcher.Add(dir); err != nil {
		return fmt.Errorf("failed to watch %s: %w", dir, err)
	}

	logging.Info("watching inventory", "path", fw.path)

	go fw.processEvents(ctx)
	return nil
}

func (fw *FileWatcher) processEvents(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			fw.watcher.Close()
			close(fw.events)
			return

		case event, ok := <-fw.watcher.Events:
			if !ok {
				close(fw.events)
				return
			}

			if filepath.Clean(event.Name) != fw.path {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}

			logging.Debug("inventory changed", "op", event.Op.String())
			fw.events <- ChangeEvent{
				Paths:     []string{fw.path},
				Timestamp: time.Now(),
			}

		case err, ok := <-fw.watcher.Errors:
			if !ok {
				close(fw.events)
				return
			}
			logging.Error("watcher error", "error", err)
		}
	}
}

// Events returns the channel of change events
func (fw *FileWatcher) Events() <-chan ChangeEvent {
	return fw.events
}

// Stop stops the file watcher
func (fw *FileWatcher) Stop() error {
	return fw.watcher.Close()
}
