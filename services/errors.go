package services

import "errors"

var (
	// ErrNotFound: the user has no progression record (read-only paths)
	ErrNotFound = errors.New("progression record not found")
	// ErrInvalidGrant: rejected before any mutation
	ErrInvalidGrant = errors.New("invalid xp grant")
	// ErrDefinition: malformed badge/achievement condition; such definitions never unlock
	ErrDefinition = errors.New("malformed unlock condition")
	// ErrPersistenceConflict: concurrent write detected (retries exhausted when returned by the service)
	ErrPersistenceConflict = errors.New("progression write conflict")
	// ErrPersistenceUnavailable: store unreachable or failing
	ErrPersistenceUnavailable = errors.New("progression store unavailable")
)
