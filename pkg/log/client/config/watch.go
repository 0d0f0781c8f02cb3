// SPDX-License-Identifier: GPL-3.0-only
package config

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/herokl/k8s-log-viewer/pkg/log"
)

// Watcher reloads the config file when it changes on disk and hands every
// successfully loaded config to onReload.
type Watcher struct {
	watcher  *fsnotify.Watcher
	path     string
	onReload func(*Config)
	onError  func(error)

	reloadMutex  sync.Mutex
	timer        *time.Timer
	debounceTime time.Duration
}

// NewWatcher creates a watcher for the config file at path.
func NewWatcher(path string, onReload func(*Config), onError func(error)) (*Watcher, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create file watcher: %w", err)
	}
	if onError == nil {
		onError = func(error) {}
	}
	return &Watcher{
		watcher:      watcher,
		path:         path,
		onReload:     onReload,
		onError:      onError,
		debounceTime: 200 * time.Millisecond,
	}, nil
}

// Start begins watching. Editors often replace the file instead of writing
// it, so the parent directory is watched and events are filtered by name.
func (w *Watcher) Start(ctx context.Context) error {
	if err := w.watcher.Add(filepath.Dir(w.path)); err != nil {
		return fmt.Errorf("failed to watch config file: %w", err)
	}
	log.Info("config: watching %s", w.path)
	go w.watch(ctx)
	return nil
}

func (w *Watcher) watch(ctx context.Context) {
	target := filepath.Clean(w.path)
	for {
		select {
		case <-ctx.Done():
			log.Debug("config: watcher stopped")
			return

		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != target {
				continue
			}
			if event.Op&fsnotify.Write == fsnotify.Write || event.Op&fsnotify.Create == fsnotify.Create {
				log.Debug("config: %s changed (%s)", event.Name, event.Op)
				w.handleChange()
			}

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			log.Warn("config: watcher error: %v", err)
		}
	}
}

// handleChange schedules a reload once the file has been quiet for the
// debounce time, so a burst of writes loads the final content once.
func (w *Watcher) handleChange() {
	w.reloadMutex.Lock()
	defer w.reloadMutex.Unlock()
	if w.timer != nil {
		w.timer.Stop()
	}
	w.timer = time.AfterFunc(w.debounceTime, w.reload)
}

func (w *Watcher) reload() {
	cfg, err := Load(w.path)
	if err != nil {
		log.Warn("config: reload failed: %v", err)
		w.onError(err)
		return
	}
	log.Info("config: reloaded %s", w.path)
	w.onReload(cfg)
}

// Stop stops watching.
func (w *Watcher) Stop() error {
	w.reloadMutex.Lock()
	if w.timer != nil {
		w.timer.Stop()
	}
	w.reloadMutex.Unlock()
	return w.watcher.Close()
}
