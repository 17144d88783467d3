// Package internalerr holds the sentinel errors shared by the obi packages.
// Callers wrap them with fmt.Errorf("...: %w", err) and match with errors.Is.
package internalerr

import "errors"

var (
	// ErrNotFound is returned by stores when a named model or run is missing.
	ErrNotFound = errors.New("not found")
	// ErrInvalidInput marks malformed data files (definitions, models, operative chars).
	ErrInvalidInput = errors.New("invalid input")
	// ErrInvalidConfig marks settings that make a run meaningless; these are fatal.
	ErrInvalidConfig = errors.New("invalid configuration")
	// ErrStoreUnavailable is returned when the backing database cannot be used.
	ErrStoreUnavailable = errors.New("store unavailable")
)
