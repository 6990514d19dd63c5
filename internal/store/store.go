// Package store defines the document storage contract for promptkeep.
// A store maps string keys to JSON documents within one scope. Backends
// live in the filestore, memstore, and dbstore sub-packages.
package store

// UpdateFunc receives the current document for a key and returns the value
// to store in its place. When write is false nothing is written and the
// document is left untouched. A non-nil err aborts the update without
// writing and is returned from Update.
type UpdateFunc func(doc Document) (next any, write bool, err error)

// Store manages the documents of a single scope.
type Store interface {
	// Get decodes the document stored under key into dst.
	// A missing, empty, or undecodable document is reported through the
	// returned Status rather than an error; dst is untouched in that case.
	// The error is reserved for I/O failures and for documents whose JSON
	// does not fit dst.
	Get(key string, dst any) (Status, error)

	// Set replaces the document stored under key with the encoding of value.
	// Writers to the same key are serialised.
	Set(key string, value any) error

	// Delete removes the document stored under key, if any.
	Delete(key string) error

	// Update runs a read-modify-write cycle on key while holding the
	// key's write lock.
	Update(key string, fn UpdateFunc) error

	// Close releases any resources (DB connections, file handles, etc.).
	Close() error
}

// Locker is implemented by stores whose write locks are visible outside the
// process and can be left behind by a crash.
type Locker interface {
	// IsLocked reports whether a write is in progress for key.
	IsLocked(key string) (bool, error)

	// DisposeAllLocks removes every lock marker in the scope and returns
	// how many were removed.
	DisposeAllLocks() (int, error)
}
