package session

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidTransition = errors.New("session: invalid transition")
	ErrSessionLive       = errors.New("session: a call is already in progress")
	ErrOperatorBusy      = errors.New("session: operator has a live call on another device")
	ErrInvalidOutcome    = errors.New("session: outcome is required")
	ErrSaveInProgress    = errors.New("session: save already in progress")
	ErrSuperseded        = errors.New("session: call was ended before it connected")
	ErrTerminateFailed   = errors.New("session: provider did not end the call")
	ErrInvalidRequest    = errors.New("session: invalid request")
)

// SaveError is returned when the call result could not be persisted. The
// session stays in ResultPending so the outcome is not lost.
type SaveError struct {
	Err       error
	Retryable bool
}

func (e *SaveError) Error() string { return fmt.Sprintf("session: save call result: %v", e.Err) }
func (e *SaveError) Unwrap() error { return e.Err }

// EditError is returned when an edit could not be persisted. The previously
// saved result stays current.
type EditError struct {
	Err       error
	Retryable bool
}

func (e *EditError) Error() string { return fmt.Sprintf("session: update call result: %v", e.Err) }
func (e *EditError) Unwrap() error { return e.Err }
