package storage

import "errors"

// Common storage errors.
var (
	// ErrNotFound is returned when a record is absent from the state document.
	ErrNotFound = errors.New("record not found")
)
