// Package scope resolves scopes to storage roots and hands out one store
// per scope. A scope is a working directory; the empty scope stands for the
// user's default storage location.
//
// The first time a process opens a file-backed scope, lock markers and
// temporary files left behind by a crashed process are removed before the
// store is returned. Those of writers still running are kept.
package scope

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/hashicorp/go-hclog"
	"github.com/hashicorp/go-multierror"
	"github.com/yiblet/promptkeep/internal/config"
	"github.com/yiblet/promptkeep/internal/store"
	"github.com/yiblet/promptkeep/internal/store/dbstore"
	"github.com/yiblet/promptkeep/internal/store/filestore"
	"github.com/yiblet/promptkeep/internal/storefs"
)

// Options configures a Registry.
type Options struct {
	// Backend is config.BackendFile or config.BackendSQLite.
	// Defaults to config.BackendFile.
	Backend string

	// DefaultRoot is the storage root for the empty scope.
	// Defaults to ~/.config/promptkeep.
	DefaultRoot string

	Logger hclog.Logger
}

// Registry caches one store per scope. It is safe for concurrent use.
type Registry struct {
	mu     sync.Mutex
	opts   Options
	logger hclog.Logger
	stores map[string]store.Store
}

// NewRegistry creates an empty registry.
func NewRegistry(opts Options) *Registry {
	if opts.Backend == "" {
		opts.Backend = config.BackendFile
	}
	logger := opts.Logger
	if logger == nil {
		logger = hclog.NewNullLogger()
	}
	return &Registry{
		opts:   opts,
		logger: logger,
		stores: make(map[string]store.Store),
	}
}

// Root returns the storage root for scope without creating it.
func (r *Registry) Root(scope string) (string, error) {
	if scope == "" {
		if r.opts.DefaultRoot != "" {
			return r.opts.DefaultRoot, nil
		}
		return config.Dir()
	}
	workdir, err := filepath.Abs(scope)
	if err != nil {
		return "", fmt.Errorf("failed to resolve scope %s: %w", scope, err)
	}
	return filepath.Join(workdir, storefs.ExtensionDir, storefs.StorageDir), nil
}

// Open returns the store for scope, creating it on first use.
func (r *Registry) Open(scope string) (store.Store, error) {
	root, err := r.Root(scope)
	if err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if s, ok := r.stores[root]; ok {
		return s, nil
	}

	s, err := r.open(workdir(scope, root), root)
	if err != nil {
		return nil, err
	}
	r.stores[root] = s
	return s, nil
}

// open creates the store at root. workdir is empty for the default scope.
func (r *Registry) open(workdir, root string) (store.Store, error) {
	logger := r.logger.Named("store").With("root", root)

	sfs, err := r.storageFS(workdir, root)
	if err != nil {
		return nil, err
	}

	switch r.opts.Backend {
	case config.BackendFile:
		fst := filestore.NewFileStore(sfs, filestore.Options{Logger: logger})
		n, err := fst.DisposeAllLocks()
		if err != nil {
			// Leftover markers never block writers, so a partial sweep is
			// not fatal.
			logger.Warn("lock recovery incomplete", "error", err)
		}
		logger.Debug("opened file store", "stale_removed", n)
		return fst, nil
	case config.BackendSQLite:
		dbs, err := dbstore.NewSQLiteStore(filepath.Join(root, dbstore.FileName), logger)
		if err != nil {
			return nil, err
		}
		logger.Debug("opened sqlite store")
		return dbs, nil
	default:
		return nil, fmt.Errorf("unknown backend %q", r.opts.Backend)
	}
}

// storageFS prepares the storage directory at root, migrating legacy
// storage when workdir is set.
func (r *Registry) storageFS(workdir, root string) (*storefs.FS, error) {
	if workdir != "" {
		return storefs.NewForWorkdir(workdir)
	}
	if err := os.MkdirAll(root, 0755); err != nil {
		return nil, fmt.Errorf("failed to create storage directory: %w", err)
	}
	return storefs.NewWithRoot(root), nil
}

// workdir returns the working directory of scope, or "" for the default
// scope.
func workdir(scope, root string) string {
	if scope == "" {
		return ""
	}
	return filepath.Dir(filepath.Dir(root))
}

// Recover removes the stale lock markers and temporary files under the file
// storage of scope and reports how many were removed. Files of live writers
// are kept.
func (r *Registry) Recover(scope string) (int, error) {
	root, err := r.Root(scope)
	if err != nil {
		return 0, err
	}
	sfs, err := r.storageFS(workdir(scope, root), root)
	if err != nil {
		return 0, err
	}
	logger := r.logger.Named("store").With("root", root)
	return filestore.NewFileStore(sfs, filestore.Options{Logger: logger}).DisposeAllLocks()
}

// Roots returns the storage roots opened so far, sorted.
func (r *Registry) Roots() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	roots := make([]string, 0, len(r.stores))
	for root := range r.stores {
		roots = append(roots, root)
	}
	sort.Strings(roots)
	return roots
}

// Close closes every store and empties the registry.
func (r *Registry) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	var result *multierror.Error
	for root, s := range r.stores {
		if err := s.Close(); err != nil {
			result = multierror.Append(result, fmt.Errorf("failed to close store at %s: %w", root, err))
		}
	}
	r.stores = make(map[string]store.Store)
	return result.ErrorOrNil()
}
