// Package flock wraps the operating system's advisory file locks.
//
// On Unix-like systems it uses flock(2); on Windows it uses LockFileEx. Both
// are released automatically when the holding process exits, so a crashed
// writer never leaves a kernel lock behind. Locks are only as reliable as the
// underlying filesystem: network filesystems may ignore them.
package flock

import "errors"

// ErrLocked is returned by TryLock when another holder owns the lock.
var ErrLocked = errors.New("file is locked")
