package tangle

import "errors"

// Semantic errors. The engine counts and logs these; none of them stops a
// walk until the session's error limit is exceeded.
var (
	ErrUndefinedSection       = errors.New("undefined section")
	ErrRecursiveSection       = errors.New("recursive section definition")
	ErrSentinelMismatch       = errors.New("mismatched sentinel")
	ErrUnterminatedSection    = errors.New("unterminated section")
	ErrIncompatibleDefinition = errors.New("incompatible definitions")
	ErrCodeWithoutSection     = errors.New("@code requires a section name in the headline")
)

// Root errors. The affected root is skipped.
var (
	ErrEmptyRootPath = errors.New("@root has no file name")
	ErrDuplicateRoot = errors.New("duplicate @root file")
	ErrSilentRoot    = errors.New("cannot untangle a root written in @silent mode")
	ErrNoDelimiters  = errors.New("no comment delimiters for language")
)

// ErrTooManyErrors is reported when a session exceeds its error limit.
var ErrTooManyErrors = errors.New("too many errors")
