// Package repository defines error types that are reused across
// multiple repositories. These sentinel values allow higher layers
// such as handlers to distinguish between different failure
// scenarios: ErrNotFound maps to 404, ErrForbidden to 403 and
// ErrConflict to 409.
package repository

import "errors"

// ErrNotFound is returned when a referenced situation, structure,
// indicator or user does not exist. Lookups never silently no-op.
var ErrNotFound = errors.New("not found")

// ErrForbidden is returned when the caller attempts an operation on a
// resource outside their scope or owned by someone else. Handlers
// should translate this into an HTTP 403 response.
var ErrForbidden = errors.New("forbidden")

// ErrConflict is returned when a write cannot proceed because of
// conflicting state, such as creating a structure whose code already
// exists in another structure table, or deleting a user who still
// owns situations. Handlers should translate this into an HTTP 409
// response.
var ErrConflict = errors.New("conflict")

// ErrEmailExists is returned by UserRepo.Create when the email is
// already taken.
var ErrEmailExists = errors.New("email already exists")

// ErrConcurrency is returned when a guarded status update affected no
// rows, meaning another request moved the situation between the
// precondition check and the write. Handlers should translate this
// into an HTTP 409 response with a retry prompt.
var ErrConcurrency = errors.New("concurrent modification")
