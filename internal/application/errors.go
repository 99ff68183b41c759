package application

import "errors"

var (
	// ErrNotFound is returned when the requested resource does not resolve
	// to a logically active row.
	ErrNotFound = errors.New("application: not found")
	// ErrBusy is a definite "try again" signal: storage contention outlived
	// the store's own retry budget.
	ErrBusy = errors.New("application: storage busy, try again")
	// ErrUnavailable is returned for unrecoverable storage failures. It is
	// fatal for the triggering operation only.
	ErrUnavailable = errors.New("application: storage unavailable")
	// ErrInvalidPassword is returned when a meet password check fails.
	ErrInvalidPassword = errors.New("application: invalid meet password")
)

// ValidationError captures field level validation issues that callers can
// surface to users.
type ValidationError struct {
	FieldErrors map[string]string
}

// Error implements the error interface.
func (v *ValidationError) Error() string {
	return "validation failed"
}

// HasErrors reports whether any field level issues were recorded.
func (v *ValidationError) HasErrors() bool {
	return v != nil && len(v.FieldErrors) > 0
}

// add records a field level validation error.
func (v *ValidationError) add(field, message string) {
	if v.FieldErrors == nil {
		v.FieldErrors = make(map[string]string)
	}
	v.FieldErrors[field] = message
}
