// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package main

import (
	"path/filepath"

	"github.com/fsnotify/fsnotify"

	"github.com/gogpu/framegraph"
)

// fileWatcher reports writes to a single file. The parent directory is
// watched so editors that replace the file by rename are still seen.
type fileWatcher struct {
	w       *fsnotify.Watcher
	changes chan string
	done    chan struct{}
}

func watchFile(path string) (*fileWatcher, error) {
	path = filepath.Clean(path)
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := w.Add(filepath.Dir(path)); err != nil {
		w.Close()
		return nil, err
	}
	fw := &fileWatcher{w: w, changes: make(chan string, 1), done: make(chan struct{})}
	go fw.loop(path)
	return fw, nil
}

func (fw *fileWatcher) loop(path string) {
	defer close(fw.done)
	for {
		select {
		case ev, ok := <-fw.w.Events:
			if !ok {
				return
			}
			if filepath.Clean(ev.Name) != path || !ev.Has(fsnotify.Write|fsnotify.Create) {
				continue
			}
			select {
			case fw.changes <- path:
			default: // a reload is already pending
			}
		case err, ok := <-fw.w.Errors:
			if !ok {
				return
			}
			framegraph.Logger().Warn("framegraph: watch error", "path", path, "err", err)
		}
	}
}

// Close stops watching and waits for the event loop to exit.
func (fw *fileWatcher) Close() error {
	err := fw.w.Close()
	<-fw.done
	return err
}
