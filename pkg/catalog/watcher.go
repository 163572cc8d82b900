package catalog

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// DefaultReloadDelay is the debounce delay between a change and the reload.
const DefaultReloadDelay = 500 * time.Millisecond

// Watch reloads the catalog whenever a definition file in dir changes and
// passes the result to fn. Reload errors are logged and the previous catalog
// stays in effect. Watch returns once the watcher is set up; watching stops
// when ctx is cancelled.
func (l *Loader) Watch(ctx context.Context, dir string, delay time.Duration, fn func(*Catalog)) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	if err := watcher.Add(dir); err != nil {
		_ = watcher.Close()
		return fmt.Errorf("failed to watch %s: %w", dir, err)
	}
	if delay <= 0 {
		delay = DefaultReloadDelay
	}

	go l.processEvents(ctx, watcher, dir, delay, fn)

	l.logger.Info().Str("dir", dir).Msg("Started watching catalog")
	return nil
}

func (l *Loader) processEvents(ctx context.Context, watcher *fsnotify.Watcher, dir string, delay time.Duration, fn func(*Catalog)) {
	defer watcher.Close()

	var reloadTimer *time.Timer
	defer func() {
		if reloadTimer != nil {
			reloadTimer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return

		case event, ok := <-watcher.Events:
			if !ok {
				return
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) == 0 {
				continue
			}
			switch filepath.Ext(event.Name) {
			case ChannelExt, ProviderExt, CUEExt:
			default:
				continue
			}

			l.logger.Debug().
				Str("file", event.Name).
				Str("op", event.Op.String()).
				Msg("Catalog file changed")

			if reloadTimer != nil {
				reloadTimer.Stop()
			}
			reloadTimer = time.AfterFunc(delay, func() {
				if ctx.Err() != nil {
					return
				}
				cat, err := l.Load(dir)
				if err != nil {
					l.logger.Error().Err(err).Msg("Failed to reload catalog")
					return
				}
				fn(cat)
			})

		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			l.logger.Error().Err(err).Msg("Watcher error")
		}
	}
}
