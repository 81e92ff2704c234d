package telephony

import (
	"context"

	"callcenter-platform/internal/calls"
)

// ManualBackend is used when the operator dials on their own handset.
// The session timer is the only thing that runs.
type ManualBackend struct{}

func (ManualBackend) Kind() calls.BackendKind { return calls.BackendManual }

func (ManualBackend) Originate(ctx context.Context, req OriginateRequest) (string, error) {
	return "", nil
}

func (ManualBackend) PollStatus(ctx context.Context, providerCallRef string) (calls.ProviderStatus, error) {
	return calls.ProviderStatusUnknown, ErrPollingUnsupported
}

func (ManualBackend) Terminate(ctx context.Context, providerCallRef string) error {
	return nil
}
