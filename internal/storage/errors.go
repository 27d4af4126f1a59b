package storage

import "errors"

var (
	// ErrNotFound is returned when a requested entity does not exist.
	ErrNotFound = errors.New("storage: not found")

	// ErrUnsafeQuery is returned when an ad hoc query is not a single
	// read-only SELECT statement.
	ErrUnsafeQuery = errors.New("storage: query must be a single SELECT statement")
)
