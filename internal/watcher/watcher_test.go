package watcher

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/trylock/viewer-sub003/internal/fsys"
)

type recordingIndexer struct {
	mu        sync.Mutex
	indexed   map[string]int
	forgotten map[string]int
}

func newRecordingIndexer() *recordingIndexer {
	return &recordingIndexer{indexed: map[string]int{}, forgotten: map[string]int{}}
}

func (r *recordingIndexer) IndexFile(path string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.indexed[path]++
	return nil
}

func (r *recordingIndexer) Forget(path string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.forgotten[path]++
	return nil
}

func (r *recordingIndexer) counts(path string) (int, int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.indexed[path], r.forgotten[path]
}

func TestNewRequiresRootAndIndexer(t *testing.T) {
	_, err := New(Config{Indexer: newRecordingIndexer()})
	require.Error(t, err)
	_, err = New(Config{Root: "."})
	require.Error(t, err)
}

func TestWatcherReindexesAndForgets(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "trip"), 0o755))

	idx := newRecordingIndexer()
	w, err := New(Config{Root: root, Indexer: idx, DebounceDelay: 20 * time.Millisecond})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Start(ctx) }()
	defer func() {
		cancel()
		<-done
	}()

	// give the watcher time to register the directories
	time.Sleep(100 * time.Millisecond)

	photo := filepath.Join(root, "trip", "a.jpg")
	for i := 0; i < 3; i++ {
		require.NoError(t, os.WriteFile(photo, []byte("frame"), 0o644))
	}
	key := fsys.Normalize(photo)
	require.Eventually(t, func() bool {
		n, _ := idx.counts(key)
		return n >= 1
	}, 2*time.Second, 20*time.Millisecond)

	// a burst of writes is debounced into few reindexes
	n, _ := idx.counts(key)
	require.LessOrEqual(t, n, 2)

	require.NoError(t, os.Remove(photo))
	require.Eventually(t, func() bool {
		_, f := idx.counts(key)
		return f >= 1
	}, 2*time.Second, 20*time.Millisecond)
}

func TestWatcherPicksUpNewDirectories(t *testing.T) {
	root := t.TempDir()

	idx := newRecordingIndexer()
	w, err := New(Config{Root: root, Indexer: idx, DebounceDelay: 20 * time.Millisecond})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Start(ctx) }()
	defer func() {
		cancel()
		<-done
	}()
	time.Sleep(100 * time.Millisecond)

	dir := filepath.Join(root, "new")
	require.NoError(t, os.Mkdir(dir, 0o755))
	time.Sleep(100 * time.Millisecond)

	photo := filepath.Join(dir, "b.jpg")
	require.NoError(t, os.WriteFile(photo, []byte("frame"), 0o644))
	require.Eventually(t, func() bool {
		n, _ := idx.counts(fsys.Normalize(photo))
		return n >= 1
	}, 2*time.Second, 20*time.Millisecond)
}
