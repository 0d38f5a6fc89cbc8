package configurator

import "errors"

var (
	// ErrSessionNotFound is returned for an unknown session id.
	ErrSessionNotFound = errors.New("session not found")
	// ErrReadOnlyPath is returned for writes outside the editable configuration.
	ErrReadOnlyPath = errors.New("path is read-only")
	// ErrInvalidValue is returned when a write would leave the configuration undecodable.
	ErrInvalidValue = errors.New("invalid value")
	// ErrNotPackCategory is returned when a pack operation targets wings or sauces.
	ErrNotPackCategory = errors.New("category is not sold in packs")
	// ErrBaselineNotLocked is returned when a sub-split is edited without a locked baseline.
	ErrBaselineNotLocked = errors.New("baseline is not locked")
)
