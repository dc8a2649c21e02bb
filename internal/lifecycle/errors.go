package lifecycle

import (
	"errors"

	"github.com/iliyamo/performance-reporting/internal/repository"
)

// ErrInvalidTransition is returned when a requested operation violates
// the state machine: validating a draft, rejecting without a comment,
// creating a duplicate period, deleting a submitted situation.  It is
// a user-correctable validation error, not a fault; handlers map it to
// HTTP 422.
var ErrInvalidTransition = errors.New("invalid transition")

// ErrConcurrency is surfaced by Store implementations when a guarded
// status flip affected no rows, meaning another request changed the
// situation between the precondition check and the write.  The
// operation is not retried here; handlers map it to HTTP 409.
var ErrConcurrency = repository.ErrConcurrency
