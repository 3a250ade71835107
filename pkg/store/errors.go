package store

import "errors"

var (
	// ErrNotFound is returned when a lookup by ID or unique key matches no row.
	ErrNotFound = errors.New("store: not found")

	// ErrConflict is returned when an update_if_match call's expected
	// version no longer matches the row's current version (a concurrent
	// writer won the race).
	ErrConflict = errors.New("store: version conflict")

	// ErrDuplicate is returned when a create violates a unique constraint
	// (access code collision, duplicate content hash under a unique index).
	ErrDuplicate = errors.New("store: duplicate")

	// ErrUnavailable is returned when the underlying database could not be
	// reached after the retry policy's attempts were exhausted.
	ErrUnavailable = errors.New("store: unavailable")
)
