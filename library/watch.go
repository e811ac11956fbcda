package library

import (
	"context"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"C90FM/logger"
)

const rescanDebounce = 2 * time.Second

// Watch rescans the library when files under the music directory change.
// Bursts of filesystem events (a sync tool dropping an album) collapse
// into one rescan via a debounce timer. onChange, if non-nil, runs after
// every completed rescan. Blocks until ctx is done.
func (l *Library) Watch(ctx context.Context, onChange func()) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()

	if err := addRecursive(watcher, l.musicDir); err != nil {
		return err
	}

	var timer *time.Timer
	var timerCh <-chan time.Time

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case ev, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			// New directories need their own watch before their
			// contents produce events.
			if ev.Op&fsnotify.Create != 0 {
				if info, err := os.Stat(ev.Name); err == nil && info.IsDir() {
					_ = addRecursive(watcher, ev.Name)
				}
			}
			if timer == nil {
				timer = time.NewTimer(rescanDebounce)
				timerCh = timer.C
			} else {
				timer.Reset(rescanDebounce)
			}

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logger.Warn("library watcher error", logger.ErrorField(err))

		case <-timerCh:
			timer = nil
			timerCh = nil
			if err := l.Scan(); err != nil {
				logger.Warn("library rescan failed", logger.ErrorField(err))
				continue
			}
			if onChange != nil {
				onChange()
			}
		}
	}
}

func addRecursive(watcher *fsnotify.Watcher, root string) error {
	return filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
		if err != nil || !info.IsDir() {
			return nil
		}
		return watcher.Add(path)
	})
}
