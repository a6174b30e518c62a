// Package apperr defines the error kinds shared across service boundaries.
package apperr

import "errors"

var (
	// ErrNotFound means the targeted record does not exist. The boundary
	// layer decides whether this becomes an HTTP 404 or a soft spoken
	// "couldn't find it" message.
	ErrNotFound = errors.New("not found")

	// ErrValidation means a required request field is missing or malformed.
	ErrValidation = errors.New("validation failed")

	// ErrBackend means the backing store failed.
	ErrBackend = errors.New("backend error")
)
