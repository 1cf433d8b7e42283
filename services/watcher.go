package services

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog/log"
)

const reloadDelay = 500 * time.Millisecond

// Watch reloads the catalogue whenever its file changes, until ctx is done.
// The parent directory is watched so editors that replace the file are handled.
func (c *Catalogue) Watch(ctx context.Context) error {
	if c.path == "" {
		return nil
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("[Catalogue Watch] %w", err)
	}
	if err := watcher.Add(filepath.Dir(c.path)); err != nil {
		watcher.Close()
		return fmt.Errorf("[Catalogue Watch] %w", err)
	}

	go c.handleWatcher(ctx, watcher)
	return nil
}

func (c *Catalogue) handleWatcher(ctx context.Context, watcher *fsnotify.Watcher) {
	defer watcher.Close()

	target := filepath.Clean(c.path)
	var timer *time.Timer
	var reload <-chan time.Time

	for {
		select {
		case <-ctx.Done():
			if timer != nil {
				timer.Stop()
			}
			return

		case event, ok := <-watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != target || !event.Has(fsnotify.Write|fsnotify.Create|fsnotify.Rename) {
				continue
			}
			if timer == nil {
				timer = time.NewTimer(reloadDelay)
			} else {
				timer.Reset(reloadDelay)
			}
			reload = timer.C

		case <-reload:
			reload = nil
			timer = nil
			if err := c.Reload(); err != nil {
				log.Err(err).Str("file", c.path).Msg("Service catalogue reload failed, keeping previous services")
				continue
			}
			log.Info().Str("file", c.path).Int("services", len(c.List())).Msg("Service catalogue reloaded")

		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			log.Err(err).Msg("Service catalogue watcher error")
		}
	}
}
