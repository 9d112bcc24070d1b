package schema

import "errors"

// Error taxonomy shared by loaders, the merge and the writers.
// Callers match them with errors.Is.
var (
	// ErrInvalidInput covers missing columns, unparseable timestamps and malformed containers.
	ErrInvalidInput = errors.New("invalid input")

	// ErrNotFound means an input file or a named object does not exist.
	ErrNotFound = errors.New("not found")

	// ErrEmptyInput means a table that must have rows has none.
	ErrEmptyInput = errors.New("empty input")
)
