package calculator

import "errors"

var (
	// ErrInvalidRule is returned when a packaging rule has a non-positive ratio or pack size.
	ErrInvalidRule = errors.New("packaging rules must use positive ratios and pack sizes")
	// ErrUnknownKey is returned when a packaging key cannot be resolved.
	ErrUnknownKey = errors.New("unknown packaging key")
)
