package repository

import "errors"

var (
	// ErrTransient marks a collaborator API failure that may succeed on retry.
	ErrTransient = errors.New("transient upstream failure")
	// ErrLockHeld is returned when another worker owns the site lease.
	ErrLockHeld = errors.New("site is locked by another worker")
	// ErrInvalidConfig marks a fatal configuration problem.
	ErrInvalidConfig = errors.New("invalid configuration")
)
