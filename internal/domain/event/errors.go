package event

import "errors"

var (
	// ErrInvalidEvent indicates a request or resolved event failed validation.
	ErrInvalidEvent = errors.New("invalid activity event")
	// ErrAppNotFound indicates the owning app doesn't exist.
	ErrAppNotFound = errors.New("app not found")
	// ErrConcurrentModification indicates the event kept changing underneath
	// the publish until retries ran out.
	ErrConcurrentModification = errors.New("activity event modified concurrently")
)
