// Copyright 2024 Marc-Antoine Ruel. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package library

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// debounce coalesces a burst of filesystem events (Tesla writes a .mp4 in
// several small appends) into a single rescan. A var, not a const, so
// tests can shrink it.
var debounce = 2 * time.Second

// Watch keeps an *Index live across a long-running import session: it does
// one full Scan/BuildIndex up front, then watches rootPath for changes and
// rescans on demand, sending the refreshed Index on the returned channel.
// It re-walks the whole tree on every rescan rather than diffing
// individual events — grouping and collection roll-up already need a
// global view, so there is no meaningful unit of partial reindex here.
//
// The returned channel is closed, and the watch torn down, when ctx is
// canceled.
func Watch(ctx context.Context, rootPath string) (<-chan *Index, error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := addRecursive(w, rootPath); err != nil {
		w.Close()
		return nil, err
	}

	out := make(chan *Index, 1)
	go func() {
		defer w.Close()
		defer close(out)

		emit := func() bool {
			files, err := Scan(rootPath)
			if err != nil {
				return true
			}
			ix := BuildIndex(files, nil)
			select {
			case out <- ix:
			case <-ctx.Done():
				return false
			}
			return true
		}
		if !emit() {
			return
		}

		var timer *time.Timer
		var timerC <-chan time.Time
		for {
			select {
			case <-ctx.Done():
				if timer != nil {
					timer.Stop()
				}
				return
			case ev, ok := <-w.Events:
				if !ok {
					return
				}
				if ev.Has(fsnotify.Create) && isDir(ev.Name) {
					_ = w.Add(ev.Name)
				}
				if timer == nil {
					timer = time.NewTimer(debounce)
				} else {
					if !timer.Stop() {
						select {
						case <-timer.C:
						default:
						}
					}
					timer.Reset(debounce)
				}
				timerC = timer.C
			case <-timerC:
				timerC = nil
				if !emit() {
					return
				}
			case err, ok := <-w.Errors:
				if !ok {
					return
				}
				_ = err
			}
		}
	}()
	return out, nil
}

func isDir(p string) bool {
	fi, err := os.Stat(p)
	return err == nil && fi.IsDir()
}

func addRecursive(w *fsnotify.Watcher, root string) error {
	return filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if d.IsDir() {
			return w.Add(p)
		}
		return nil
	})
}
