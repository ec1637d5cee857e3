package participant

import "errors"

var (
	// ErrInvalidInput indicates a missing app ID, health code or bad attribute.
	ErrInvalidInput = errors.New("invalid participant version input")
	// ErrVersionNotFound indicates no matching participant version exists.
	ErrVersionNotFound = errors.New("participant version not found")
	// ErrConcurrentModification indicates concurrent writers kept taking the
	// next version number until retries ran out.
	ErrConcurrentModification = errors.New("participant version modified concurrently")
)
