package telephony

import (
	"context"
	"errors"
	"fmt"

	"callcenter-platform/internal/calls"
)

// Backend is the uniform contract over the two call-origination strategies.
//
// Rules:
//   - The session state machine selects a Backend once per call and never
//     branches on its kind afterwards.
//   - Originate failures must be returned as *OriginateError so the operator
//     sees a displayable message.
//   - Implementations must be safe for concurrent use; a poll can overlap a
//     terminate for the same call.
type Backend interface {
	Kind() calls.BackendKind

	// Originate places the call. Manual returns immediately with an empty ref.
	Originate(ctx context.Context, req OriginateRequest) (providerCallRef string, err error)

	// PollStatus reports the remote call status for a provider ref.
	PollStatus(ctx context.Context, providerCallRef string) (calls.ProviderStatus, error)

	// Terminate hangs up at the provider. Manual has nothing to hang up.
	Terminate(ctx context.Context, providerCallRef string) error
}

type OriginateRequest struct {
	TargetNumber string `json:"target_number"`

	// ProviderUserID is the provider-side account that places the call.
	// Falls back to the backend's default when empty.
	ProviderUserID string `json:"provider_user_id,omitempty"`
}

var (
	ErrNoProviderUser      = errors.New("telephony: no provider user selected")
	ErrInvalidNumber       = errors.New("telephony: invalid target number")
	ErrProviderUnavailable = errors.New("telephony: provider unreachable")
	ErrBackendUnavailable  = errors.New("telephony: backend not configured")
	ErrPollingUnsupported  = errors.New("telephony: backend does not report status")
	ErrCallNotFound        = errors.New("telephony: call not found at provider")
)

// OriginateError is a user-visible origination failure.
type OriginateError struct {
	// Message is safe to show to the operator.
	Message string
	Err     error
}

func (e *OriginateError) Error() string {
	if e.Err == nil {
		return e.Message
	}
	return fmt.Sprintf("%s: %v", e.Message, e.Err)
}

func (e *OriginateError) Unwrap() error { return e.Err }

func newOriginateError(err error) *OriginateError {
	msg := "Could not place the call. Please try again."
	switch {
	case errors.Is(err, ErrNoProviderUser):
		msg = "No phone user is selected for provider dialing."
	case errors.Is(err, ErrInvalidNumber):
		msg = "The target phone number is not valid."
	case errors.Is(err, ErrProviderUnavailable):
		msg = "The phone provider is unreachable. Please try again."
	}
	return &OriginateError{Message: msg, Err: err}
}

// DisplayMessage extracts the operator-facing text from an origination error.
func DisplayMessage(err error) string {
	var oe *OriginateError
	if errors.As(err, &oe) {
		return oe.Message
	}
	return ""
}

// Registry resolves the backend for a requested kind.
type Registry struct {
	backends map[calls.BackendKind]Backend
}

func NewRegistry(backends ...Backend) *Registry {
	r := &Registry{backends: make(map[calls.BackendKind]Backend, len(backends))}
	for _, b := range backends {
		if b == nil {
			continue
		}
		r.backends[b.Kind()] = b
	}
	return r
}

func (r *Registry) Get(kind calls.BackendKind) (Backend, error) {
	if r == nil {
		return nil, ErrBackendUnavailable
	}
	b, ok := r.backends[kind]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrBackendUnavailable, kind)
	}
	return b, nil
}
