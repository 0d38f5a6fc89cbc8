package state

import "errors"

var (
	// ErrInvalidPath is returned for empty, malformed, or wildcard write paths.
	ErrInvalidPath = errors.New("invalid state path")
	// ErrPathNotFound is returned when decoding a path that holds no value.
	ErrPathNotFound = errors.New("state path not found")
	// ErrNotObject is returned when the initial document is not a JSON object.
	ErrNotObject = errors.New("state document must be a JSON object")
)
