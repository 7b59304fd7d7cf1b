package store

import "errors"

var (
	// ErrLocked is returned by Lock when another process holds the lock.
	ErrLocked = errors.New("outline is locked by another process")

	// ErrFormat is returned for a database or document this package did not
	// write.
	ErrFormat = errors.New("unrecognized outline format")
)
