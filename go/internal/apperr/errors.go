// Package apperr holds the error taxonomy shared by the accounting packages.
// Callers wrap these sentinels with context and test with errors.Is.
package apperr

import "errors"

var (
	// ErrNotAuthorized is returned when no actor is resolved or the actor lacks
	// membership or ownership for the operation.
	ErrNotAuthorized = errors.New("not-authorized")

	// ErrNotFound is returned when a referenced clock event or ticket is missing.
	ErrNotFound = errors.New("not-found")

	// ErrValidation is returned for malformed requests such as an edit whose end
	// precedes its start.
	ErrValidation = errors.New("validation-error")

	// ErrConflict is returned when a guarded update is refused, e.g. a second
	// ticket started while another one is running for the same user.
	ErrConflict = errors.New("conflict")
)
