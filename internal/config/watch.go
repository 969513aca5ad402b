package config

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog/log"
)

// reloadQuiet is how long the file must stay untouched before it is re-read.
// Editors produce a burst of events on save; only the last one counts.
const reloadQuiet = 100 * time.Millisecond

// Watch reloads the presets whenever the file at path changes, until ctx is
// done. The directory is watched so that editors replacing the file by rename
// are picked up. onReload, if set, runs after every reload attempt.
func (p *Presets) Watch(ctx context.Context, path string, onReload func(error)) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("config: watch: %w", err)
	}
	if err := w.Add(filepath.Dir(path)); err != nil {
		_ = w.Close()
		return fmt.Errorf("config: watch %s: %w", path, err)
	}

	reload := func() {
		if ctx.Err() != nil {
			return
		}
		err := p.Reload(path)
		if err != nil {
			log.Warn().Err(err).Str("path", path).Msg("Keeping previous player presets")
		} else {
			log.Info().Str("path", path).Msg("Player presets reloaded")
		}
		if onReload != nil {
			onReload(err)
		}
	}

	target := filepath.Clean(path)
	go func() {
		defer w.Close()
		var timer *time.Timer
		defer func() {
			if timer != nil {
				timer.Stop()
			}
		}()
		for {
			select {
			case <-ctx.Done():
				return
			case event, ok := <-w.Events:
				if !ok {
					return
				}
				if filepath.Clean(event.Name) != target {
					continue
				}
				if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
					continue
				}
				if timer == nil {
					timer = time.AfterFunc(reloadQuiet, reload)
				} else {
					timer.Reset(reloadQuiet)
				}
			case err, ok := <-w.Errors:
				if !ok {
					return
				}
				log.Error().Err(err).Str("path", path).Msg("Presets watcher error")
			}
		}
	}()
	return nil
}
