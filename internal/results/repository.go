package results

import (
	"context"
	"errors"
	"time"

	"callcenter-platform/internal/calls"
)

var (
	ErrNotFound        = errors.New("results: call result not found")
	ErrInvalidArgument = errors.New("results: invalid argument")
)

// Repository persists confirmed call results.
//
// Invariants:
//   - SaveCallResult is idempotent per session: saving the same session twice
//     returns the id of the first row instead of inserting a duplicate.
//   - UpdateCallResult mutates the row in place; the id never changes.
type Repository interface {
	SaveCallResult(ctx context.Context, r calls.CallResult) (string, error)
	UpdateCallResult(ctx context.Context, resultID string, u calls.ResultUpdate) (calls.CallResult, error)
	GetCallResult(ctx context.Context, resultID string) (calls.CallResult, error)
	ListByProject(ctx context.Context, projectID string, from, to time.Time) ([]calls.CallResult, error)
}

func validateNew(r calls.CallResult) error {
	if r.SessionID == "" || r.TargetID == "" || r.OperatorID == "" {
		return ErrInvalidArgument
	}
	if !r.Outcome.Valid() {
		return ErrInvalidArgument
	}
	if r.DurationSeconds < 0 {
		return ErrInvalidArgument
	}
	return nil
}

func validateUpdate(resultID string, u calls.ResultUpdate) error {
	if resultID == "" || !u.Outcome.Valid() {
		return ErrInvalidArgument
	}
	return nil
}
