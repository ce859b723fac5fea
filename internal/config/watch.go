package config

import (
	"context"
	"fmt"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/jhead/phantom/internal/logger"
)

// Watch starts watching the backing config file and reloads it on change.
// Returns an error if the manager has no backing file. Watching stops when
// ctx is cancelled.
func (m *Manager) Watch(ctx context.Context) error {
	if m.path == "" {
		return fmt.Errorf("config manager has no backing file to watch")
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create file watcher: %w", err)
	}
	if err := watcher.Add(m.path); err != nil {
		watcher.Close()
		return fmt.Errorf("failed to watch config file: %w", err)
	}

	go func() {
		defer watcher.Close()

		for {
			select {
			case <-ctx.Done():
				return
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if event.Op.Has(fsnotify.Write) || event.Op.Has(fsnotify.Create) {
					// Editors often truncate then write; give the write a
					// moment to complete before reading.
					time.Sleep(100 * time.Millisecond)
					if err := m.Reload(); err != nil {
						logger.Warn("config reload failed: %v", err)
					} else {
						logger.Info("config reloaded from %s", m.path)
					}
				}
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				logger.Warn("config watcher error: %v", err)
			}
		}
	}()

	return nil
}
