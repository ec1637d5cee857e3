package app

import "errors"

var (
	// ErrAppNotFound indicates the app doesn't exist.
	ErrAppNotFound = errors.New("app not found")
	// ErrAppExists indicates an app with the same ID already exists.
	ErrAppExists = errors.New("app already exists")
	// ErrInvalidInput indicates invalid app configuration.
	ErrInvalidInput = errors.New("invalid app input")
)
