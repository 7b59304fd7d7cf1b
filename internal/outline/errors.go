package outline

import "errors"

// Position errors.
var (
	// ErrInvalidPosition is returned when a mutation is attempted on the
	// null position.
	ErrInvalidPosition = errors.New("invalid position")

	// ErrStalePosition is returned when a position no longer describes a
	// path that exists in the outline.
	ErrStalePosition = errors.New("stale position")

	// ErrCycle is returned when a move or clone would make a node its own
	// ancestor.
	ErrCycle = errors.New("operation would create a cycle")

	// ErrLastNode is returned when deleting the only remaining top-level node.
	ErrLastNode = errors.New("cannot delete the last top-level node")
)

// Gnx errors.
var (
	// ErrMalformedGnx is returned by ParseGnx for input that cannot be split
	// into gnx components.
	ErrMalformedGnx = errors.New("malformed gnx")
)

// Lookup errors.
var (
	ErrNotFound = errors.New("node not found")
)
