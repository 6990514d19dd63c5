package filestore

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"github.com/hashicorp/go-multierror"
	"github.com/yiblet/promptkeep/internal/flock"
	"github.com/yiblet/promptkeep/internal/store"
	"github.com/yiblet/promptkeep/internal/storefs"
)

// DisposeAllLocks removes the lock markers and temporary files left behind
// by writers that died mid-write. A marker is stale when nobody holds its OS
// lock; a temporary file is stale when the marker of its key is absent or
// stale. Files of live writers, in this process or any other, are left
// alone, so the sweep is safe to run while the scope is in use.
//
// Removal failures are collected and returned together; the sweep carries on
// past them.
func (s *FileStore) DisposeAllLocks() (int, error) {
	var result *multierror.Error
	removed := 0

	err := fs.WalkDir(s.fs, ".", func(name string, d fs.DirEntry, err error) error {
		if err != nil {
			result = multierror.Append(result, err)
			if d != nil && d.IsDir() {
				return fs.SkipDir
			}
			return nil
		}
		if d.IsDir() {
			return nil
		}

		var ok bool
		switch {
		case strings.HasSuffix(name, store.LockSuffix):
			ok, err = s.disposeLock(name)
		case storefs.IsTemp(name):
			ok, err = s.disposeTemp(name)
		default:
			return nil
		}
		if err != nil {
			result = multierror.Append(result, err)
		}
		if ok {
			removed++
		}
		return nil
	})
	if err != nil {
		result = multierror.Append(result, err)
	}

	return removed, result.ErrorOrNil()
}

// disposeLock removes the marker name unless a writer holds it.
func (s *FileStore) disposeLock(name string) (bool, error) {
	release, claimed, err := s.claim(name)
	if err != nil || !claimed {
		return false, err
	}

	// Some platforms refuse to remove an open file, so retry once the
	// claim is dropped.
	err = s.remove(name, "lock")
	release()
	if err != nil {
		if err = s.remove(name, "lock"); err != nil {
			return false, err
		}
	}
	return true, nil
}

// disposeTemp removes the temporary file name unless the writer of its key
// holds the key's lock.
func (s *FileStore) disposeTemp(name string) (bool, error) {
	release, claimed, err := s.claim(tempLockName(name))
	if err != nil || !claimed {
		return false, err
	}
	defer release()

	if err := s.remove(name, "temp"); err != nil {
		return false, err
	}
	return true, nil
}

// claim takes the OS lock of the marker name without waiting. It reports
// claimed=false when another holder owns it. A missing marker counts as
// claimed with nothing to release: no writer is active on the key.
//
// Writers that open the marker while it is claimed wait on the OS lock and,
// once the marker is gone, start over on a fresh one.
func (s *FileStore) claim(name string) (release func(), claimed bool, err error) {
	f, err := s.fs.OpenFile(name, os.O_RDWR, 0)
	if errors.Is(err, fs.ErrNotExist) {
		return func() {}, true, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to open %s: %w", name, err)
	}

	if err := flock.TryLock(f); err != nil {
		f.Close()
		if errors.Is(err, flock.ErrLocked) {
			s.logger.Debug("lock held by a live writer", "path", name)
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("failed to lock %s: %w", name, err)
	}

	return func() {
		if err := flock.Unlock(f); err != nil {
			s.logger.Debug("failed to unlock claimed marker", "path", name, "error", err)
		}
		f.Close()
	}, true, nil
}

// remove deletes name, treating an already missing file as removed.
func (s *FileStore) remove(name, kind string) error {
	err := s.fs.Remove(name)
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to remove %s: %w", name, err)
	}
	s.logger.Info("removed stale file", "kind", kind, "path", name)
	return nil
}

// tempLockName returns the marker guarding the temporary file name, which
// is named <key>.json.tmp-<random>.
func tempLockName(name string) string {
	base := name[:strings.LastIndex(name, storefs.TempMarker)]
	return strings.TrimSuffix(base, store.DocumentSuffix) + store.LockSuffix
}
