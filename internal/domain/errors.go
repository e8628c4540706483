package domain

import "errors"

// Sentinel errors shared across repository implementations so callers can
// branch on outcome without string matching.
var (
	// ErrNotFound means the requested record does not exist (or row-level
	// security filtered it out for a single-record lookup).
	ErrNotFound = errors.New("record not found")

	// ErrUnauthorized means the persistence layer rejected the caller's
	// identity. Treated as a security error: the session cannot be trusted.
	ErrUnauthorized = errors.New("authorization rejected")
)
