package filestore

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"sync"

	"github.com/yiblet/promptkeep/internal/flock"
	"github.com/yiblet/promptkeep/internal/store"
)

// Lock is a held write lock on one key. The marker file <key>.lock exists
// for as long as the lock is held.
type Lock struct {
	s      *FileStore
	key    string
	name   string
	file   *os.File
	unlock func()
	once   sync.Once
	err    error
}

func lockName(key string) string {
	return key + store.LockSuffix
}

// Acquire blocks until the write lock on key is held. Goroutines of this
// process queue on an in-process mutex; other processes queue on the OS
// lock of the marker file. There is no timeout.
func (s *FileStore) Acquire(key string) (*Lock, error) {
	if err := store.ValidateKey(key); err != nil {
		return nil, err
	}

	unlock := s.keys.Lock(key)
	name := lockName(key)
	for {
		f, err := s.fs.OpenFile(name, os.O_RDWR|os.O_CREATE, 0644)
		if err != nil {
			unlock()
			return nil, fmt.Errorf("failed to open lock for %s: %w", key, err)
		}
		if err := flock.Lock(f); err != nil {
			f.Close()
			unlock()
			return nil, fmt.Errorf("failed to lock %s: %w", key, err)
		}

		// The previous holder removes the marker on release. If that happened
		// between our open and our lock, we hold a lock on an unlinked file
		// and must start over.
		current, err := s.holdsMarker(name, f)
		if err != nil {
			flock.Unlock(f)
			f.Close()
			unlock()
			return nil, err
		}
		if current {
			// The pid is informational; the OS lock is what excludes writers.
			if err := writePid(f); err != nil {
				s.logger.Debug("failed to record pid in lock marker", "key", key, "error", err)
			}
			s.logger.Trace("lock acquired", "key", key)
			return &Lock{s: s, key: key, name: name, file: f, unlock: unlock}, nil
		}
		flock.Unlock(f)
		f.Close()
	}
}

func writePid(f *os.File) error {
	if err := f.Truncate(0); err != nil {
		return err
	}
	_, err := f.WriteAt([]byte(strconv.Itoa(os.Getpid())), 0)
	return err
}

func (s *FileStore) holdsMarker(name string, f *os.File) (bool, error) {
	held, err := f.Stat()
	if err != nil {
		return false, fmt.Errorf("failed to stat lock %s: %w", name, err)
	}
	onDisk, err := s.fs.Stat(name)
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to stat lock %s: %w", name, err)
	}
	return os.SameFile(held, onDisk), nil
}

// Key returns the locked key.
func (l *Lock) Key() string {
	return l.key
}

// Release removes the marker and releases the lock. It is safe to call more
// than once; later calls return the result of the first.
func (l *Lock) Release() error {
	l.once.Do(func() {
		defer l.unlock()

		// Removing the marker while still holding the OS lock keeps waiters
		// from locking a file that is about to disappear. Some platforms
		// refuse to remove an open file, so retry once it is closed.
		removeErr := l.s.fs.Remove(l.name)

		if err := flock.Unlock(l.file); err != nil {
			l.err = fmt.Errorf("failed to unlock %s: %w", l.key, err)
		}
		if err := l.file.Close(); err != nil && l.err == nil {
			l.err = fmt.Errorf("failed to close lock for %s: %w", l.key, err)
		}

		if removeErr != nil && !errors.Is(removeErr, fs.ErrNotExist) {
			removeErr = l.s.fs.Remove(l.name)
			if removeErr != nil && !errors.Is(removeErr, fs.ErrNotExist) {
				// A waiter owns the marker now and removes it on its own release.
				l.s.logger.Debug("lock marker left in place", "key", l.key, "error", removeErr)
			}
		}
		l.s.logger.Trace("lock released", "key", l.key)
	})
	return l.err
}

// IsLocked reports whether the marker for key exists, that is whether a
// write is in progress or a crashed writer left the marker behind.
func (s *FileStore) IsLocked(key string) (bool, error) {
	if err := store.ValidateKey(key); err != nil {
		return false, err
	}
	_, err := s.fs.Stat(lockName(key))
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to stat lock for %s: %w", key, err)
	}
	return true, nil
}
