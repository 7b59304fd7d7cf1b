//go:build !unix

package store

import (
	"errors"
	"fmt"
	"os"
)

// Lock is an advisory lock on an outline file, held by exclusively
// creating a sibling "<path>.lock" file.
type Lock struct {
	path string
}

// Acquire takes the lock for the outline at path without blocking. It
// returns ErrLocked when the lock file already exists.
func Acquire(path string) (*Lock, error) {
	name := path + ".lock"
	f, err := os.OpenFile(name, os.O_RDWR|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		if errors.Is(err, os.ErrExist) {
			return nil, fmt.Errorf("%w: %s", ErrLocked, path)
		}
		return nil, fmt.Errorf("create lock file: %w", err)
	}
	_ = f.Close()
	return &Lock{path: name}, nil
}

// Release drops the lock by removing the lock file.
func (l *Lock) Release() error {
	if l == nil || l.path == "" {
		return nil
	}
	err := os.Remove(l.path)
	l.path = ""
	return err
}
