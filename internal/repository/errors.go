package repository

import "errors"

var (
	// ErrNotFound is returned when a requested entity doesn't exist
	ErrNotFound = errors.New("not found")

	// ErrConflict is returned when an optimistic concurrency check fails or a
	// unique key is already taken
	ErrConflict = errors.New("conflict: entity was modified concurrently")
)
