package cli

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/spf13/cobra"

	"github.com/trylock/viewer-sub003/internal/cache"
	"github.com/trylock/viewer-sub003/internal/fsys"
	"github.com/trylock/viewer-sub003/internal/ui"
	"github.com/trylock/viewer-sub003/internal/watcher"
)

var (
	indexForce   bool
	indexWorkers int
	indexWatch   bool
)

type indexOutput struct {
	Root    string `json:"root"`
	Indexed int    `json:"indexed"`
	Skipped int    `json:"skipped"`
	Failed  int    `json:"failed"`
	Removed int    `json:"removed"`
	Files   int    `json:"files"`
	Names   int    `json:"attribute_names"`
}

var indexCmd = &cobra.Command{
	Use:   "index [dir]",
	Short: "Read photo attributes into the cache",
	Long: `Read the attributes of every photo at or below dir (the library by
default) into the attribute cache. Unchanged files are skipped unless
--force is given, and cached files that no longer exist are dropped.

The cache feeds 'vwr attrs', 'vwr values' and the search order of queries.
With --watch, vwr keeps running after the first pass and updates the cache
as photos are written, added or removed, until interrupted.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		root := ""
		if len(args) == 1 {
			root = fsys.Normalize(args[0])
		}

		s, err := openSession()
		if err != nil {
			return err
		}
		defer s.Close()

		workers := indexWorkers
		if workers == 0 {
			workers = cfg.Workers
		}

		var (
			mu       sync.Mutex
			warnings []Warning
		)
		counter := ui.NewCounter("Indexing")
		ix := &cache.Indexer{
			Store:   s.store,
			Env:     s.env,
			Workers: workers,
			Force:   indexForce,
			OnFile: func(path string, err error) {
				if err != nil {
					mu.Lock()
					warnings = append(warnings, Warning{Code: WarnIndexFailed, Message: err.Error(), Path: path})
					mu.Unlock()
				}
				if !isJSONOutput() {
					counter.Increment()
				}
			},
		}

		summary, err := ix.Run(cmd.Context(), root)
		if !isJSONOutput() {
			counter.Done()
		}
		if err != nil {
			return failf(err, "indexing %s", displayRoot(root))
		}

		stats, err := s.store.Stats()
		if err != nil {
			return handleError(ErrDatabaseError, err, "")
		}
		out := indexOutput{
			Root:    displayRoot(root),
			Indexed: summary.Indexed,
			Skipped: summary.Skipped,
			Failed:  summary.Failed,
			Removed: summary.Removed,
			Files:   stats.FileCount,
			Names:   stats.NameCount,
		}

		if isJSONOutput() {
			outputSuccessWithWarnings(out, warnings, nil)
		} else {
			fmt.Println(ui.Successf("Indexed %s: %d new or changed, %d unchanged, %d removed",
				out.Root, out.Indexed, out.Skipped, out.Removed))
			for _, w := range warnings {
				fmt.Println(ui.Warningf("%s: %s", w.Path, w.Message))
			}
			fmt.Println(ui.Hint(fmt.Sprintf("Cache holds %s with %s", ui.Count(out.Files, "file"), ui.Count(out.Names, "attribute name"))))
		}

		if !indexWatch {
			return nil
		}
		return watchLibrary(cmd.Context(), s, ix, root)
	},
}

// watchLibrary keeps the cache current until ctx is cancelled.
func watchLibrary(ctx context.Context, s *session, ix *cache.Indexer, root string) error {
	dir := root
	if dir == "" {
		dir = "."
	}
	w, err := watcher.New(watcher.Config{
		Root:    dir,
		Indexer: ix,
		FS:      s.env.FS,
		Hidden:  s.env.Hidden,
		Logger:  s.env.Logger,
		OnIndex: func(path string, err error) {
			if isJSONOutput() {
				return
			}
			if err != nil {
				fmt.Println(ui.Warningf("%s: %s", path, err))
				return
			}
			fmt.Println(ui.Info("updated " + ui.FilePath(path)))
		},
	})
	if err != nil {
		return handleError(ErrInternal, err, "")
	}

	if !isJSONOutput() {
		fmt.Println(ui.Hint("Watching " + displayRoot(root) + " for changes, press Ctrl+C to stop"))
	}
	err = w.Start(ctx)
	if errors.Is(err, context.Canceled) {
		return nil
	}
	if err != nil {
		return handleError(ErrInternal, err, "")
	}
	return nil
}

func displayRoot(root string) string {
	if root == "" {
		return "."
	}
	return root
}

func init() {
	indexCmd.Flags().BoolVar(&indexForce, "force", false, "Re-read files that have not changed")
	indexCmd.Flags().IntVar(&indexWorkers, "workers", 0, "Concurrent file reads (0 = from config or CPU count)")
	indexCmd.Flags().BoolVar(&indexWatch, "watch", false, "Keep the cache current until interrupted")
	rootCmd.AddCommand(indexCmd)
}
