// Package watcher keeps the attribute cache current while photos change.
//
// It backs `vwr index --watch`: after the initial indexing run, written or
// created photos are reindexed once they settle and removed ones are
// dropped from the cache.
package watcher

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"

	"github.com/trylock/viewer-sub003/internal/fsys"
)

// Indexer updates the cache for single paths.
type Indexer interface {
	// IndexFile stores the attributes of a file. It ignores files it does
	// not accept.
	IndexFile(path string) error
	// Forget drops a file, or every vanished file below a directory.
	Forget(path string) error
}

// Watcher monitors a library directory and feeds changes to an Indexer.
type Watcher struct {
	root    string
	indexer Indexer
	fs      fsys.FileSystem
	hidden  fsys.Attributes

	debounceDelay time.Duration
	log           zerolog.Logger

	fsWatcher *fsnotify.Watcher
	pending   map[string]time.Time // touched only by the Start goroutine

	onIndex func(path string, err error)
}

// Config holds configuration options for the Watcher.
type Config struct {
	// Root is the watched directory. Event paths are reported relative to
	// it when it is relative, so "." yields library-relative paths.
	Root    string
	Indexer Indexer

	// FS and Hidden decide which directories are watched. Directories
	// carrying a Hidden flag are skipped. FS defaults to the OS.
	FS     fsys.FileSystem
	Hidden fsys.Attributes

	DebounceDelay time.Duration // Default: 200ms
	Logger        *zerolog.Logger

	// OnIndex is called after each reindexed or forgotten path, from the
	// goroutine running Start.
	OnIndex func(path string, err error)
}

// New creates a new Watcher with the given configuration.
func New(cfg Config) (*Watcher, error) {
	if cfg.Root == "" {
		return nil, errors.New("watch root is required")
	}
	if cfg.Indexer == nil {
		return nil, errors.New("indexer is required")
	}

	w := &Watcher{
		root:          cfg.Root,
		indexer:       cfg.Indexer,
		fs:            cfg.FS,
		hidden:        cfg.Hidden,
		debounceDelay: cfg.DebounceDelay,
		log:           zerolog.Nop(),
		pending:       make(map[string]time.Time),
		onIndex:       cfg.OnIndex,
	}
	if w.fs == nil {
		w.fs = fsys.OS{}
	}
	if w.debounceDelay == 0 {
		w.debounceDelay = 200 * time.Millisecond
	}
	if cfg.Logger != nil {
		w.log = *cfg.Logger
	}
	return w, nil
}

// Start watches the library until ctx is cancelled.
func (w *Watcher) Start(ctx context.Context) error {
	var err error
	w.fsWatcher, err = fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create file watcher: %w", err)
	}
	defer w.fsWatcher.Close()

	if err := w.addWatchRecursive(w.root); err != nil {
		return fmt.Errorf("failed to watch %s: %w", w.root, err)
	}
	w.log.Debug().Str("root", w.root).Msg("watching library")

	ticker := time.NewTicker(50 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case <-ticker.C:
			w.processPending()

		case event, ok := <-w.fsWatcher.Events:
			if !ok {
				return nil
			}
			w.handleEvent(event)

		case err, ok := <-w.fsWatcher.Errors:
			if !ok {
				return nil
			}
			w.log.Debug().Err(err).Msg("watcher error")
		}
	}
}

func (w *Watcher) handleEvent(event fsnotify.Event) {
	path := fsys.Normalize(event.Name)
	w.log.Trace().Str("op", event.Op.String()).Str("path", path).Msg("file event")

	switch {
	case event.Has(fsnotify.Create):
		if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
			if err := w.addWatchRecursive(event.Name); err != nil {
				w.log.Debug().Err(err).Str("path", path).Msg("failed to watch new directory")
			}
			w.scheduleTree(path)
			return
		}
		w.schedule(path)
	case event.Has(fsnotify.Write):
		w.schedule(path)
	case event.Has(fsnotify.Remove), event.Has(fsnotify.Rename):
		delete(w.pending, path)
		err := w.indexer.Forget(path)
		w.report(path, err)
	}
}

// schedule queues path for reindexing once no event touched it for the
// debounce delay.
func (w *Watcher) schedule(path string) {
	w.pending[path] = time.Now()
}

// scheduleTree queues every file below a directory that appeared with
// content, e.g. one moved into the library.
func (w *Watcher) scheduleTree(dir string) {
	files, err := w.fs.EnumerateFiles(dir, "*")
	if err == nil {
		for _, f := range files {
			w.schedule(f)
		}
	}
	dirs, err := w.fs.EnumerateDirectories(dir, "*")
	if err != nil {
		return
	}
	for _, d := range dirs {
		w.scheduleTree(d)
	}
}

// processPending reindexes the paths past the debounce delay.
func (w *Watcher) processPending() {
	now := time.Now()
	var ready []string
	for path, scheduledAt := range w.pending {
		if now.Sub(scheduledAt) >= w.debounceDelay {
			ready = append(ready, path)
			delete(w.pending, path)
		}
	}

	for _, path := range ready {
		w.report(path, w.indexer.IndexFile(path))
	}
}

func (w *Watcher) report(path string, err error) {
	if err != nil {
		w.log.Debug().Err(err).Str("path", path).Msg("failed to update cache")
	} else {
		w.log.Debug().Str("path", path).Msg("updated cache")
	}
	if w.onIndex != nil {
		w.onIndex(path, err)
	}
}

// addWatchRecursive watches root and every visible directory below it.
func (w *Watcher) addWatchRecursive(root string) error {
	return filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil || !d.IsDir() {
			return nil
		}
		if path != root && w.isHidden(path) {
			return filepath.SkipDir
		}
		if err := w.fsWatcher.Add(path); err != nil {
			w.log.Debug().Err(err).Str("path", path).Msg("failed to watch directory")
		}
		return nil
	})
}

func (w *Watcher) isHidden(path string) bool {
	if w.hidden == 0 {
		return false
	}
	attrs, err := w.fs.Attributes(fsys.Normalize(path))
	return err == nil && attrs.Has(w.hidden)
}
