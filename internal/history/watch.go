// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package history

import (
	"log"
	"os"
	"strings"

	"github.com/fsnotify/fsnotify"
)

func statDir(path string) (bool, error) {
	fi, err := os.Stat(path)
	if err != nil {
		return false, err
	}
	return fi.IsDir(), nil
}

// Watcher invalidates the Reader's session->file cache when project
// log files change on disk. Best-effort: if the underlying fsnotify
// watcher can't be set up, the reader just falls back to rebuilding its
// cache on demand.
type Watcher struct {
	reader  *Reader
	fsw     *fsnotify.Watcher
	done    chan struct{}
}

// NewWatcher starts watching reader.ProjectsRoot (non-recursively; CLI
// project directories are created, not nested, under the root) and
// every existing project subdirectory for .jsonl writes.
func NewWatcher(reader *Reader) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	if err := fsw.Add(reader.ProjectsRoot); err != nil {
		fsw.Close()
		return nil, err
	}
	if dirs, err := reader.listProjectDirs(); err == nil {
		for _, d := range dirs {
			if err := fsw.Add(d); err != nil {
				log.Printf("history: failed to watch %s: %v", d, err)
			}
		}
	}

	w := &Watcher{reader: reader, fsw: fsw, done: make(chan struct{})}
	go w.loop()
	return w, nil
}

func (w *Watcher) loop() {
	for {
		select {
		case event, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			w.handle(event)
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			log.Printf("history: watcher error: %v", err)
		case <-w.done:
			return
		}
	}
}

func (w *Watcher) handle(event fsnotify.Event) {
	if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) == 0 {
		return
	}

	if fi, err := statDir(event.Name); err == nil && fi {
		// A new project directory appeared; watch it too.
		if err := w.fsw.Add(event.Name); err != nil {
			log.Printf("history: failed to watch new project dir %s: %v", event.Name, err)
		}
		return
	}

	if !strings.HasSuffix(event.Name, ".jsonl") {
		return
	}
	// A write anywhere invalidates the whole cache: we don't track
	// which sessionIds live in which file until we've scanned it, so a
	// narrower invalidation would require re-parsing the file here
	// just to find out — no cheaper than letting the next lookup do it.
	w.reader.InvalidateAll()
}

// Close stops the watcher.
func (w *Watcher) Close() error {
	close(w.done)
	return w.fsw.Close()
}
