package telephony

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"callcenter-platform/internal/calls"
)

func TestBackends_ImplementBackend(t *testing.T) {
	var _ Backend = ManualBackend{}
	var _ Backend = (*ProviderBackend)(nil)
}

func TestManualBackend_NoRefAndNoPolling(t *testing.T) {
	var b ManualBackend
	ref, err := b.Originate(context.Background(), OriginateRequest{TargetNumber: "+15550001111"})
	if err != nil || ref != "" {
		t.Fatalf("expected no-op originate, got %q %v", ref, err)
	}
	if _, err := b.PollStatus(context.Background(), ""); !errors.Is(err, ErrPollingUnsupported) {
		t.Fatalf("expected ErrPollingUnsupported, got %v", err)
	}
	if err := b.Terminate(context.Background(), ""); err != nil {
		t.Fatalf("expected nil, got %v", err)
	}
}

func newTestProvider(t *testing.T, h http.HandlerFunc) *ProviderBackend {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	p, err := NewProviderBackend(ProviderConfig{BaseURL: srv.URL, APIKey: "key", DefaultUserID: "zu-1", MaxRetries: 2})
	if err != nil {
		t.Fatalf("provider: %v", err)
	}
	return p
}

func TestProviderBackend_Originate(t *testing.T) {
	p := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/calls" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		if r.Header.Get("Authorization") != "Bearer key" {
			t.Errorf("missing auth header")
		}
		var body map[string]string
		_ = json.NewDecoder(r.Body).Decode(&body)
		if body["user_id"] != "zu-1" || body["to"] != "+15550001111" {
			t.Errorf("unexpected body %v", body)
		}
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"call_id":"call-42","status":"queued"}`))
	})

	ref, err := p.Originate(context.Background(), OriginateRequest{TargetNumber: "+15550001111"})
	if err != nil {
		t.Fatalf("originate: %v", err)
	}
	if ref != "call-42" {
		t.Fatalf("expected call-42, got %q", ref)
	}
}

func TestProviderBackend_OriginateFailuresAreDisplayable(t *testing.T) {
	cases := []struct {
		name   string
		status int
		body   string
		want   error
	}{
		{"invalid number", http.StatusUnprocessableEntity, `{"code":"invalid_number"}`, ErrInvalidNumber},
		{"unknown user", http.StatusNotFound, `{"code":"user_not_found"}`, ErrNoProviderUser},
		{"provider down", http.StatusBadGateway, ``, ErrProviderUnavailable},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			var hits int32
			p := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
				atomic.AddInt32(&hits, 1)
				w.WriteHeader(tc.status)
				_, _ = w.Write([]byte(tc.body))
			})
			_, err := p.Originate(context.Background(), OriginateRequest{TargetNumber: "+1555"})
			if !errors.Is(err, tc.want) {
				t.Fatalf("expected %v, got %v", tc.want, err)
			}
			if DisplayMessage(err) == "" {
				t.Fatalf("expected display message")
			}
			if atomic.LoadInt32(&hits) != 1 {
				t.Fatalf("originate must not be retried, got %d requests", hits)
			}
		})
	}
}

func TestProviderBackend_OriginateRequiresUser(t *testing.T) {
	p, err := NewProviderBackend(ProviderConfig{BaseURL: "http://unused", APIKey: "k"})
	if err != nil {
		t.Fatalf("provider: %v", err)
	}
	_, err = p.Originate(context.Background(), OriginateRequest{TargetNumber: "+1555"})
	if !errors.Is(err, ErrNoProviderUser) {
		t.Fatalf("expected ErrNoProviderUser, got %v", err)
	}
}

func TestProviderBackend_PollStatusRetriesServerErrors(t *testing.T) {
	var hits int32
	p := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&hits, 1) == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write([]byte(`{"call_id":"call-42","status":"completed"}`))
	})

	st, err := p.PollStatus(context.Background(), "call-42")
	if err != nil {
		t.Fatalf("poll: %v", err)
	}
	if st != calls.ProviderStatusCompleted {
		t.Fatalf("expected completed, got %q", st)
	}
	if atomic.LoadInt32(&hits) != 2 {
		t.Fatalf("expected one retry, got %d requests", hits)
	}
}

func TestProviderBackend_PollStatusNotFoundIsPermanent(t *testing.T) {
	var hits int32
	p := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		w.WriteHeader(http.StatusNotFound)
	})
	if _, err := p.PollStatus(context.Background(), "gone"); !errors.Is(err, ErrCallNotFound) {
		t.Fatalf("expected ErrCallNotFound, got %v", err)
	}
	if atomic.LoadInt32(&hits) != 1 {
		t.Fatalf("expected no retries, got %d", hits)
	}
}

func TestProviderBackend_TerminateTreatsMissingCallAsDone(t *testing.T) {
	p := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodDelete {
			t.Errorf("expected DELETE, got %s", r.Method)
		}
		w.WriteHeader(http.StatusNotFound)
	})
	if err := p.Terminate(context.Background(), "call-42"); err != nil {
		t.Fatalf("expected nil, got %v", err)
	}
}

func TestRegistry_Get(t *testing.T) {
	r := NewRegistry(ManualBackend{}, nil)
	if _, err := r.Get(calls.BackendManual); err != nil {
		t.Fatalf("expected manual backend, got %v", err)
	}
	if _, err := r.Get(calls.BackendProviderBacked); !errors.Is(err, ErrBackendUnavailable) {
		t.Fatalf("expected ErrBackendUnavailable, got %v", err)
	}
}
