package types

import "errors"

// Boundary error categories. The store adapter and protocol servers decide
// per category whether a failure is surfaced or degraded to empty results.
var (
	// ErrNotInitialized marks an operation against a repo whose store
	// connection was never opened. Contract violation, never swallowed.
	ErrNotInitialized = errors.New("store not initialized")

	// ErrNotFound marks an unknown repo, file, or session. Translated to a
	// structured 404-style response at the protocol boundary.
	ErrNotFound = errors.New("not found")

	// ErrAlreadyExists marks a duplicate create
	ErrAlreadyExists = errors.New("already exists")
)
