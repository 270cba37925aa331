// Package sentinel holds the storage-level errors shared by every backend.
// Stores wrap these with context; services match them with errors.Is and
// decide what they mean for the caller.
package sentinel

import "errors"

var (
	// ErrNotFound means no record exists under the requested key.
	ErrNotFound = errors.New("not found")
	// ErrConflict means a record with the same key was already created.
	ErrConflict = errors.New("conflict")
	// ErrInvalidState means the record exists but is terminal and cannot be
	// rewritten.
	ErrInvalidState = errors.New("invalid state")
)
