package repository

import "errors"

var (
	// ErrNotFound is returned when a requested entity does not exist.
	ErrNotFound = errors.New("entity not found")

	// ErrConflict is returned when a transaction could not commit because the
	// aggregate changed concurrently. Retrying with the same inputs is safe.
	ErrConflict = errors.New("concurrent modification")

	// ErrUnavailable is returned when the backing store cannot be reached.
	ErrUnavailable = errors.New("store unavailable")
)
