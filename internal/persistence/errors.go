package persistence

import "errors"

var (
	// ErrNotFound is returned when the requested record does not exist or is
	// not logically active.
	ErrNotFound = errors.New("persistence: not found")
	// ErrDuplicate is returned when an insert collides with a uniqueness
	// constraint.
	ErrDuplicate = errors.New("persistence: duplicate record")
	// ErrConstraintViolation is returned when a write breaks a check or
	// foreign-key constraint.
	ErrConstraintViolation = errors.New("persistence: constraint violation")
	// ErrBusy is returned when storage contention persisted through the
	// bounded retry budget.
	ErrBusy = errors.New("persistence: storage busy")
	// ErrUnavailable is returned for unrecoverable storage failures.
	ErrUnavailable = errors.New("persistence: storage unavailable")
)
