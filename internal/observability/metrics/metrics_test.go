package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
)

func TestSessionMetricsObserve(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewSessionMetrics(reg)
	m.ObserveTransition("manual", "active")
	m.ObserveForceEnd("provider_backed", "dialing")
	m.ObservePollFailure("provider_backed")
	m.ObserveCoaching("delivered")

	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather: %v", err)
	}
	names := map[string]bool{}
	for _, f := range families {
		names[f.GetName()] = true
	}
	for _, want := range []string{
		"callcenter_session_transitions_total",
		"callcenter_session_force_ends_total",
		"callcenter_session_poll_failures_total",
		"callcenter_coaching_deliveries_total",
	} {
		if !names[want] {
			t.Fatalf("expected metric %s to be registered", want)
		}
	}
}

func TestAnalysisMetricsObserve(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewAnalysisMetrics(reg)
	m.ObserveStep("quality_scoring", "failed", 0.2)

	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather: %v", err)
	}
	if len(families) != 2 {
		t.Fatalf("expected 2 families, got %d", len(families))
	}
}

func TestMetricsNilSafe(t *testing.T) {
	var s *SessionMetrics
	s.ObserveTransition("manual", "idle")
	s.ObserveForceEnd("manual", "active")
	s.ObservePollFailure("manual")
	s.ObserveCoaching("sent")

	var a *AnalysisMetrics
	a.ObserveStep("engagement_update", "success", 0.1)
}
