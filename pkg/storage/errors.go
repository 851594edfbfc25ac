package storage

import "errors"

// Sentinel errors for store operations.
var (
	// ErrNotFound is returned when a profile or key mapping does not exist.
	ErrNotFound = errors.New("record not found")

	// ErrConflict is returned when inserting a profile whose username
	// already exists.
	ErrConflict = errors.New("record already exists")
)
