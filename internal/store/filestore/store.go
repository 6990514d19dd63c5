// Package filestore implements store.Store with one JSON file per key.
//
// Every write to a key holds the key's sidecar lock (<key>.lock) for its
// whole read-modify-write cycle. Documents are replaced atomically, so
// readers never take the lock and never observe a partial file.
package filestore

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/hashicorp/go-hclog"
	"github.com/yiblet/promptkeep/internal/store"
	"github.com/yiblet/promptkeep/internal/storefs"
)

// Options configures a FileStore.
type Options struct {
	// Logger receives lock, sweep, and decode diagnostics.
	// Defaults to a null logger.
	Logger hclog.Logger

	// FileMode is the permission used for documents. Defaults to 0644.
	FileMode os.FileMode
}

// FileStore is a filesystem-backed implementation of store.Store.
type FileStore struct {
	fs     *storefs.FS
	keys   store.KeyMutex
	logger hclog.Logger
	mode   os.FileMode
}

var (
	_ store.Store  = (*FileStore)(nil)
	_ store.Locker = (*FileStore)(nil)
)

// NewFileStore creates a store over sfs. The root directory must exist.
func NewFileStore(sfs *storefs.FS, opts Options) *FileStore {
	logger := opts.Logger
	if logger == nil {
		logger = hclog.NewNullLogger()
	}
	mode := opts.FileMode
	if mode == 0 {
		mode = 0644
	}
	return &FileStore{fs: sfs, logger: logger, mode: mode}
}

// Open creates a store rooted at dir, creating the directory when needed.
func Open(dir string, opts Options) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create storage directory: %w", err)
	}
	return NewFileStore(storefs.NewWithRoot(dir), opts), nil
}

// Root returns the storage directory.
func (s *FileStore) Root() string {
	return s.fs.Root()
}

func documentName(key string) string {
	return key + store.DocumentSuffix
}

// Get decodes the document for key into dst. It never waits on the lock.
func (s *FileStore) Get(key string, dst any) (store.Status, error) {
	doc, err := s.load(key)
	if err != nil {
		return store.StatusAbsent, err
	}
	return doc.Decode(dst)
}

// Set replaces the document for key.
func (s *FileStore) Set(key string, value any) error {
	if err := store.ValidateKey(key); err != nil {
		return err
	}
	lock, err := s.Acquire(key)
	if err != nil {
		return err
	}
	err = s.write(key, value)
	if rerr := lock.Release(); err == nil {
		err = rerr
	}
	return err
}

// Delete removes the document for key. Deleting a missing key is not an
// error.
func (s *FileStore) Delete(key string) error {
	if err := store.ValidateKey(key); err != nil {
		return err
	}
	err := s.fs.Remove(documentName(key))
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to delete %s: %w", key, err)
	}
	return nil
}

// Update runs fn against the current document for key while holding the
// key's lock, and writes the value it returns when asked to.
func (s *FileStore) Update(key string, fn store.UpdateFunc) error {
	if err := store.ValidateKey(key); err != nil {
		return err
	}
	lock, err := s.Acquire(key)
	if err != nil {
		return err
	}
	err = s.update(key, fn)
	if rerr := lock.Release(); err == nil {
		err = rerr
	}
	return err
}

func (s *FileStore) update(key string, fn store.UpdateFunc) error {
	doc, err := s.load(key)
	if err != nil {
		return err
	}
	next, write, err := fn(doc)
	if err != nil || !write {
		return err
	}
	return s.write(key, next)
}

// Close is a no-op; locks are released by the operations that take them.
func (s *FileStore) Close() error {
	return nil
}

func (s *FileStore) load(key string) (store.Document, error) {
	if err := store.ValidateKey(key); err != nil {
		return store.Document{Key: key}, err
	}
	data, err := s.fs.ReadFile(documentName(key))
	if errors.Is(err, fs.ErrNotExist) {
		return store.Document{Key: key}, nil
	}
	if err != nil {
		return store.Document{Key: key}, fmt.Errorf("failed to read %s: %w", key, err)
	}
	return store.Load(key, data, s.logger), nil
}

func (s *FileStore) write(key string, value any) error {
	data, err := store.Encode(value)
	if err != nil {
		return fmt.Errorf("failed to encode %s: %w", key, err)
	}
	if err := s.fs.WriteFileAtomic(documentName(key), data, s.mode); err != nil {
		return fmt.Errorf("failed to write %s: %w", key, err)
	}
	return nil
}
