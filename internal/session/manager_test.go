package session

import (
	"context"
	"testing"

	"callcenter-platform/internal/calls"
	"callcenter-platform/internal/results"
	"callcenter-platform/internal/telephony"
	"callcenter-platform/pkg/logger"
)

func TestManager_OneControllerPerOperator(t *testing.T) {
	m := NewManager(Deps{Backends: telephony.NewRegistry(telephony.ManualBackend{}), Logger: logger.Discard()}, testOptions())
	defer m.Close()

	a := m.For("op-1")
	if a != m.For("op-1") {
		t.Fatalf("expected the same controller")
	}
	if a == m.For("op-2") {
		t.Fatalf("expected distinct controllers per operator")
	}
	if _, ok := m.Get("op-3"); ok {
		t.Fatalf("Get must not create controllers")
	}
}

func TestManager_RoutesProviderStatusByRef(t *testing.T) {
	provider := &fakeProvider{}
	m := NewManager(Deps{
		Backends: telephony.NewRegistry(provider),
		Results:  results.NewMemoryRepo(),
		Logger:   logger.Discard(),
	}, testOptions())
	defer m.Close()
	ctx := context.Background()

	s1, err := m.For("op-1").Start(ctx, StartRequest{TargetID: "a", TargetNumber: "+1", BackendKind: calls.BackendProviderBacked})
	if err != nil {
		t.Fatalf("start op-1: %v", err)
	}
	if _, err := m.For("op-2").Start(ctx, StartRequest{TargetID: "b", TargetNumber: "+2", BackendKind: calls.BackendProviderBacked}); err != nil {
		t.Fatalf("start op-2: %v", err)
	}

	if m.ApplyProviderStatus(ctx, "unknown-ref", calls.ProviderStatusCompleted) {
		t.Fatalf("unknown ref must not apply")
	}
	if !m.ApplyProviderStatus(ctx, s1.ProviderCallRef, calls.ProviderStatusCompleted) {
		t.Fatalf("expected status to apply")
	}
	if got := m.For("op-1").Snapshot().Session.State; got != calls.StateResultPending {
		t.Fatalf("op-1: expected result_pending, got %s", got)
	}
	if got := m.For("op-2").Snapshot().Session.State; got != calls.StateActive {
		t.Fatalf("op-2: expected active, got %s", got)
	}
	if m.ApplyProviderStatus(ctx, s1.ProviderCallRef, calls.ProviderStatusCompleted) {
		t.Fatalf("duplicate push must be ignored")
	}
}
