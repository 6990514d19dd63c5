// Package storefs provides a filesystem rooted at a scope's storage directory.
// Every document, lock marker, and temporary file the file store touches is
// addressed relative to that root.
package storefs

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

const (
	ExtensionDir = "prompt-all-in-one"
	StorageDir   = "storage"
	LegacyDir    = "physton-prompt" // storage location used by older releases

	// TempMarker appears in the name of every temporary file created by
	// WriteFileAtomic. A file carrying it is never a live document.
	TempMarker = ".tmp-"
)

// FS is a filesystem rooted at a storage directory.
type FS struct {
	root string
}

// NewForWorkdir creates an FS rooted at <workdir>/prompt-all-in-one/storage,
// creating the directory when needed. Documents left in the legacy
// <workdir>/physton-prompt directory are moved into the new root.
func NewForWorkdir(workdir string) (*FS, error) {
	if workdir == "" {
		return nil, fmt.Errorf("workdir must not be empty")
	}

	root := filepath.Join(workdir, ExtensionDir, StorageDir)
	if err := os.MkdirAll(root, 0755); err != nil {
		return nil, fmt.Errorf("failed to create storage directory: %w", err)
	}

	sfs := &FS{root: root}
	if _, err := sfs.migrateFromLegacyLocation(filepath.Join(workdir, LegacyDir)); err != nil {
		return nil, err
	}

	return sfs, nil
}

// NewWithRoot creates an FS with a custom root. The directory is not created.
func NewWithRoot(root string) *FS {
	return &FS{root: root}
}

// Open implements fs.FS
func (sfs *FS) Open(name string) (fs.File, error) {
	if !fs.ValidPath(name) {
		return nil, &fs.PathError{Op: "open", Path: name, Err: fs.ErrInvalid}
	}
	return os.Open(sfs.Path(name))
}

// ReadDir implements fs.ReadDirFS
func (sfs *FS) ReadDir(name string) ([]fs.DirEntry, error) {
	if !fs.ValidPath(name) {
		return nil, &fs.PathError{Op: "readdir", Path: name, Err: fs.ErrInvalid}
	}
	return os.ReadDir(sfs.Path(name))
}

// ReadFile implements fs.ReadFileFS
func (sfs *FS) ReadFile(name string) ([]byte, error) {
	if !fs.ValidPath(name) {
		return nil, &fs.PathError{Op: "readfile", Path: name, Err: fs.ErrInvalid}
	}
	return os.ReadFile(sfs.Path(name))
}

// Stat implements fs.StatFS
func (sfs *FS) Stat(name string) (fs.FileInfo, error) {
	if !fs.ValidPath(name) {
		return nil, &fs.PathError{Op: "stat", Path: name, Err: fs.ErrInvalid}
	}
	return os.Stat(sfs.Path(name))
}

// OpenFile opens a file relative to the root, creating parent directories
// when flag includes os.O_CREATE.
func (sfs *FS) OpenFile(name string, flag int, perm os.FileMode) (*os.File, error) {
	if !fs.ValidPath(name) {
		return nil, &fs.PathError{Op: "openfile", Path: name, Err: fs.ErrInvalid}
	}

	fullPath := sfs.Path(name)
	if flag&os.O_CREATE != 0 {
		if err := os.MkdirAll(filepath.Dir(fullPath), 0755); err != nil {
			return nil, err
		}
	}
	return os.OpenFile(fullPath, flag, perm)
}

// WriteFileAtomic writes data to a temporary file next to name and renames
// it into place, so readers observe either the old content or the new
// content and never a partial write.
func (sfs *FS) WriteFileAtomic(name string, data []byte, perm os.FileMode) error {
	if !fs.ValidPath(name) {
		return &fs.PathError{Op: "writefile", Path: name, Err: fs.ErrInvalid}
	}

	fullPath := sfs.Path(name)
	dir := filepath.Dir(fullPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(fullPath)+TempMarker+"*")
	if err != nil {
		return err
	}
	tmpPath := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return err
	}
	if err := os.Chmod(tmpPath, perm); err != nil {
		os.Remove(tmpPath)
		return err
	}
	if err := os.Rename(tmpPath, fullPath); err != nil {
		os.Remove(tmpPath)
		return err
	}

	return nil
}

// Remove removes a file relative to the root
func (sfs *FS) Remove(name string) error {
	if !fs.ValidPath(name) {
		return &fs.PathError{Op: "remove", Path: name, Err: fs.ErrInvalid}
	}
	return os.Remove(sfs.Path(name))
}

// MkdirAll creates directories relative to the root
func (sfs *FS) MkdirAll(name string, perm os.FileMode) error {
	if !fs.ValidPath(name) {
		return &fs.PathError{Op: "mkdirall", Path: name, Err: fs.ErrInvalid}
	}
	return os.MkdirAll(sfs.Path(name), perm)
}

// Root returns the root directory path
func (sfs *FS) Root() string {
	return sfs.root
}

// Path returns the operating system path for name.
func (sfs *FS) Path(name string) string {
	return filepath.Join(sfs.root, filepath.FromSlash(name))
}

// IsTemp reports whether name was produced by WriteFileAtomic.
func IsTemp(name string) bool {
	return strings.Contains(filepath.Base(name), TempMarker)
}

// migrateFromLegacyLocation moves files from the legacy storage directory
// into the root. Files that already exist in the root are left untouched in
// the legacy directory. The legacy directory is removed once it is empty.
func (sfs *FS) migrateFromLegacyLocation(legacyPath string) (int, error) {
	entries, err := os.ReadDir(legacyPath)
	if os.IsNotExist(err) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("failed to read legacy directory: %w", err)
	}

	moved := 0
	remaining := 0
	for _, entry := range entries {
		if entry.IsDir() {
			remaining++
			continue
		}

		srcPath := filepath.Join(legacyPath, entry.Name())
		dstPath := filepath.Join(sfs.root, entry.Name())

		if _, err := os.Stat(dstPath); err == nil {
			remaining++
			continue
		}

		if err := os.Rename(srcPath, dstPath); err != nil {
			return moved, fmt.Errorf("failed to migrate legacy file %s: %w", entry.Name(), err)
		}
		moved++
	}

	if remaining == 0 {
		if err := os.Remove(legacyPath); err != nil && !os.IsNotExist(err) {
			return moved, fmt.Errorf("failed to remove legacy directory: %w", err)
		}
	}

	return moved, nil
}
