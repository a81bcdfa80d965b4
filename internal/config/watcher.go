// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package config

import (
	"context"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// =============================================================================
// CONFIG FILE WATCHER
// =============================================================================

// DefaultReloadDebounce is how long the watcher waits after the last write
// before reloading. Editors often write a file several times per save.
const DefaultReloadDebounce = 200 * time.Millisecond

// ReloadFunc receives the freshly loaded configuration after a change.
type ReloadFunc func(*Config)

// Watcher reloads the config file when it changes on disk. A file that fails
// to parse or validate is skipped and the previous configuration stays in
// effect.
type Watcher struct {
	mu       sync.Mutex
	pending  bool
	changed  time.Time
	path     string
	debounce time.Duration
	onReload ReloadFunc
	fsw      *fsnotify.Watcher
	ctx      context.Context
	cancel   context.CancelFunc
}

// Watch starts watching the config file at path. The parent directory is
// watched rather than the file itself: editors and atomic writers replace
// the file, which would otherwise drop the watch. A debounce of 0 uses
// DefaultReloadDebounce.
func Watch(path string, debounce time.Duration, onReload ReloadFunc) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	abs, err := filepath.Abs(path)
	if err != nil {
		fsw.Close()
		return nil, err
	}
	if err := fsw.Add(filepath.Dir(abs)); err != nil {
		fsw.Close()
		return nil, err
	}

	if debounce <= 0 {
		debounce = DefaultReloadDebounce
	}

	ctx, cancel := context.WithCancel(context.Background())
	w := &Watcher{
		path:     abs,
		debounce: debounce,
		onReload: onReload,
		fsw:      fsw,
		ctx:      ctx,
		cancel:   cancel,
	}

	go w.processEvents()
	go w.processPending()

	return w, nil
}

// processEvents marks the config pending whenever it is written or replaced.
func (w *Watcher) processEvents() {
	for {
		select {
		case <-w.ctx.Done():
			return

		case event, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != w.path {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) != 0 {
				w.mu.Lock()
				w.pending = true
				w.changed = time.Now()
				w.mu.Unlock()
			}

		case _, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
		}
	}
}

// processPending reloads once the file has been quiet for the debounce
// window.
func (w *Watcher) processPending() {
	ticker := time.NewTicker(50 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-w.ctx.Done():
			return

		case <-ticker.C:
			w.mu.Lock()
			ready := w.pending && time.Since(w.changed) >= w.debounce
			if ready {
				w.pending = false
			}
			w.mu.Unlock()

			if ready {
				w.reload()
			}
		}
	}
}

// reload parses the file and hands the result to the callback. Parse and
// validation failures leave the running configuration untouched.
func (w *Watcher) reload() {
	cfg, err := LoadFromPath(w.path)
	if err != nil {
		return
	}
	w.onReload(cfg)
}

// Close stops watching and releases resources.
func (w *Watcher) Close() error {
	w.cancel()
	return w.fsw.Close()
}
