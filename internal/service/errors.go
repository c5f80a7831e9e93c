package service

import "errors"

// Domain errors surfaced by the attempt lifecycle. The HTTP layer maps each
// to a typed response code; none is ever swallowed into a generic fault.
var (
	ErrTestNotFound    = errors.New("test not found")
	ErrTestInactive    = errors.New("test is not active")
	ErrTestNotYetOpen  = errors.New("test is not open yet")
	ErrTestClosed      = errors.New("test is already closed")
	ErrAttemptNotFound = errors.New("attempt not found")
	// ErrForbidden: valid identity, but not the attempt owner. Deliberately
	// carries no detail about the attempt's existence or state.
	ErrForbidden = errors.New("not the owner of this attempt")
	// ErrInvalidState: operation requires an IN_PROGRESS attempt.
	ErrInvalidState = errors.New("attempt is not in progress")
	// ErrAlreadyCompleted: a terminal attempt exists; retake requires an
	// external re-authorization step.
	ErrAlreadyCompleted = errors.New("test already completed")
	// ErrAlreadySubmitted: a concurrent or repeated submission lost the
	// compare-and-swap on the attempt status.
	ErrAlreadySubmitted = errors.New("attempt already submitted")
)
