package cache

import (
	"fmt"
	"os"
	"path/filepath"
)

type indexLock struct {
	file *os.File
}

// acquireLock takes the indexer lock next to the database file. An
// in-memory cache needs no lock.
func (s *Store) acquireLock() (*indexLock, error) {
	if s.path == "" {
		return &indexLock{}, nil
	}
	lockPath := filepath.Join(filepath.Dir(s.path), filepath.Base(s.path)+".lock")
	file, err := os.OpenFile(lockPath, os.O_CREATE|os.O_RDWR, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to open index lock: %w", err)
	}

	if err := lockFileExclusiveNonBlocking(file); err != nil {
		file.Close()
		if isWouldBlockError(err) {
			return nil, ErrLocked
		}
		return nil, fmt.Errorf("failed to acquire index lock: %w", err)
	}
	return &indexLock{file: file}, nil
}

func (l *indexLock) Release() error {
	if l == nil || l.file == nil {
		return nil
	}
	unlockErr := unlockFile(l.file)
	closeErr := l.file.Close()
	if unlockErr != nil {
		return unlockErr
	}
	return closeErr
}
