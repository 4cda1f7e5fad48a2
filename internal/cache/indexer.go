package cache

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"time"

	"github.com/rs/zerolog"
	"github.com/sourcegraph/conc/stream"

	"github.com/trylock/viewer-sub003/internal/fsys"
	"github.com/trylock/viewer-sub003/internal/glob"
	"github.com/trylock/viewer-sub003/internal/plan"
)

// Summary counts what one indexing run did.
type Summary struct {
	Indexed int
	Skipped int // unchanged since the last run
	Failed  int
	Removed int // cached files that no longer exist
}

// Indexer reads the attributes of every photo below a directory and
// stores them. Files are loaded concurrently; the store is written from
// one goroutine at a time.
type Indexer struct {
	Store *Store
	Env   *plan.Environment

	// Workers bounds concurrent loads. Zero picks a value from the CPU count.
	Workers int

	// Force reloads files whose modification time has not changed.
	Force bool

	// ModTime reports a file's modification time. It defaults to os.Stat.
	ModTime func(path string) (time.Time, error)

	// OnFile is called after each file is indexed or fails.
	OnFile func(path string, err error)
}

func (ix *Indexer) workers() int {
	if ix.Workers > 0 {
		return ix.Workers
	}
	return min(max(runtime.NumCPU()*2, 4), 32)
}

func (ix *Indexer) modTime(path string) (time.Time, error) {
	if ix.ModTime != nil {
		return ix.ModTime(path)
	}
	info, err := os.Stat(filepath.FromSlash(path))
	if err != nil {
		return time.Time{}, err
	}
	return info.ModTime(), nil
}

func (ix *Indexer) logger() zerolog.Logger {
	if ix.Env.Logger != nil {
		return *ix.Env.Logger
	}
	return *ix.Store.logger()
}

// Run indexes every accepted file at or below root and drops cached files
// below root that are gone. Cancelling ctx stops the walk; files already
// loaded are still stored.
func (ix *Indexer) Run(ctx context.Context, root string) (Summary, error) {
	var sum Summary
	if ix.Store == nil || ix.Env == nil || ix.Env.FS == nil || ix.Env.Loader == nil {
		return sum, errors.New("cache: indexer needs a store, a filesystem and a loader")
	}

	lock, err := ix.Store.acquireLock()
	if err != nil {
		return sum, err
	}
	defer lock.Release()

	root = fsys.Normalize(root)
	pattern, err := glob.Parse(fsys.Join(root, "**"))
	if err != nil {
		return sum, fmt.Errorf("index %q: %w", root, err)
	}
	log := ix.logger()
	m, err := glob.NewMatcher(ix.Env.FS, pattern, glob.WithHidden(ix.Env.Hidden), glob.WithLogger(log))
	if err != nil {
		return sum, err
	}

	s := stream.New().WithMaxGoroutines(ix.workers())
	var walkErr error
	for path, err := range m.GetFiles(ctx) {
		if err != nil {
			walkErr = err
			break
		}
		if !ix.Env.Accepts(path) {
			continue
		}

		mtime, err := ix.modTime(path)
		if err != nil {
			log.Debug().Err(err).Str("path", path).Msg("skipping file without modification time")
			sum.Failed++
			continue
		}
		if !ix.Force {
			cached, ok, err := ix.Store.FileMtime(path)
			if err == nil && ok && !mtime.Truncate(time.Second).After(cached) {
				sum.Skipped++
				continue
			}
		}

		s.Go(func() stream.Callback {
			e, err := ix.Env.Loader.Load(path)
			return func() {
				if err == nil {
					err = ix.Store.Put(path, mtime, e.Attributes())
				}
				if err != nil {
					log.Debug().Err(err).Str("path", path).Msg("failed to index file")
					sum.Failed++
				} else {
					sum.Indexed++
				}
				if ix.OnFile != nil {
					ix.OnFile(path, err)
				}
			}
		})
	}
	s.Wait()

	if walkErr != nil {
		return sum, walkErr
	}

	removed, err := ix.Store.RemoveMissing(root, ix.exists)
	sum.Removed = len(removed)
	if err != nil {
		return sum, err
	}

	log.Info().
		Str("root", root).
		Int("indexed", sum.Indexed).
		Int("skipped", sum.Skipped).
		Int("failed", sum.Failed).
		Int("removed", sum.Removed).
		Msg("indexed attribute cache")
	return sum, nil
}

func (ix *Indexer) exists(path string) bool {
	_, err := ix.Env.FS.Attributes(path)
	return err == nil
}

// IndexFile loads one file and stores its attributes. Files without an
// accepted extension are ignored.
func (ix *Indexer) IndexFile(path string) error {
	path = fsys.Normalize(path)
	if !ix.Env.Accepts(path) {
		return nil
	}
	mtime, err := ix.modTime(path)
	if err != nil {
		return err
	}
	e, err := ix.Env.Loader.Load(path)
	if err != nil {
		return err
	}
	return ix.Store.Put(path, mtime, e.Attributes())
}

// Forget drops path from the cache. When path was a directory, every
// cached file below it that no longer exists goes too.
func (ix *Indexer) Forget(path string) error {
	path = fsys.Normalize(path)
	if err := ix.Store.Remove(path); err != nil {
		return err
	}
	_, err := ix.Store.RemoveMissing(path, ix.exists)
	return err
}
