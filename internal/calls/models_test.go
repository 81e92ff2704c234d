package calls

import "testing"

func TestParseOutcome(t *testing.T) {
	cases := map[string]Outcome{
		"declined":         OutcomeDeclined,
		" Appointment_Won": OutcomeAppointmentWon,
		"DO_NOT_CALL":      OutcomeDoNotCall,
	}
	for in, want := range cases {
		got, ok := ParseOutcome(in)
		if !ok || got != want {
			t.Fatalf("ParseOutcome(%q) = %q, %v; want %q", in, got, ok, want)
		}
	}
	if _, ok := ParseOutcome(""); ok {
		t.Fatalf("expected empty outcome to be invalid")
	}
	if _, ok := ParseOutcome("voicemail"); ok {
		t.Fatalf("expected unknown outcome to be invalid")
	}
}

func TestProviderStatusEnded(t *testing.T) {
	ended := []ProviderStatus{ProviderStatusCompleted, ProviderStatusFailed, ProviderStatusNoAnswer, ProviderStatusBusy, ProviderStatusCanceled}
	for _, s := range ended {
		if !s.Ended() {
			t.Fatalf("expected %q to be ended", s)
		}
	}
	for _, s := range []ProviderStatus{ProviderStatusQueued, ProviderStatusRinging, ProviderStatusInProgress, ProviderStatusUnknown} {
		if s.Ended() {
			t.Fatalf("expected %q to be live", s)
		}
	}
}

func TestNormalizeProviderStatus(t *testing.T) {
	if got := NormalizeProviderStatus("in-progress"); got != ProviderStatusInProgress {
		t.Fatalf("got %q", got)
	}
	if got := NormalizeProviderStatus("no-answer"); got != ProviderStatusNoAnswer {
		t.Fatalf("got %q", got)
	}
	if got := NormalizeProviderStatus("Ended"); got != ProviderStatusCompleted {
		t.Fatalf("got %q", got)
	}
	if got := NormalizeProviderStatus("weird"); got != ProviderStatusUnknown {
		t.Fatalf("got %q", got)
	}
}

func TestStateLive(t *testing.T) {
	if !StateDialing.Live() || !StateActive.Live() {
		t.Fatalf("expected dialing and active to be live")
	}
	if StateResultPending.Live() || StateIdle.Live() || StateSaved.Live() {
		t.Fatalf("expected non-live states")
	}
}
