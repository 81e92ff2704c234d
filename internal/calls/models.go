package calls

import (
	"strings"
	"time"
)

// BackendKind selects the call-origination strategy for a session.
// It is chosen once at start and never re-checked.
type BackendKind string

const (
	BackendManual         BackendKind = "manual"
	BackendProviderBacked BackendKind = "provider_backed"
)

func (k BackendKind) Valid() bool {
	return k == BackendManual || k == BackendProviderBacked
}

// State is the lifecycle position of the operator's current call.
type State string

const (
	StateIdle          State = "idle"
	StateDialing       State = "dialing"
	StateActive        State = "active"
	StateResultPending State = "result_pending"
	StateSaved         State = "saved"
	StateEditing       State = "editing"
)

// Live reports whether the state owns a running ticker/poller.
func (s State) Live() bool {
	return s == StateDialing || s == StateActive
}

// Outcome is the closed set of call results an operator can record.
type Outcome string

const (
	OutcomeConnected          Outcome = "connected"
	OutcomeAppointmentWon     Outcome = "appointment_won"
	OutcomeNotAvailable       Outcome = "not_available"
	OutcomeContactUnavailable Outcome = "contact_unavailable"
	OutcomeDeclined           Outcome = "declined"
	OutcomeDoNotCall          Outcome = "do_not_call"
)

var outcomes = []Outcome{
	OutcomeConnected,
	OutcomeAppointmentWon,
	OutcomeNotAvailable,
	OutcomeContactUnavailable,
	OutcomeDeclined,
	OutcomeDoNotCall,
}

func Outcomes() []Outcome {
	out := make([]Outcome, len(outcomes))
	copy(out, outcomes)
	return out
}

func (o Outcome) Valid() bool {
	for _, v := range outcomes {
		if o == v {
			return true
		}
	}
	return false
}

// ParseOutcome accepts the wire form case-insensitively.
func ParseOutcome(s string) (Outcome, bool) {
	o := Outcome(strings.ToLower(strings.TrimSpace(s)))
	return o, o.Valid()
}

// CallSession is the live, in-memory view of one call attempt.
//
// Only the session state machine mutates it; everyone else receives copies.
type CallSession struct {
	SessionID   string      `json:"session_id"`
	OperatorID  string      `json:"operator_id"`
	TargetID    string      `json:"target_id"`
	ProjectID   string      `json:"project_id,omitempty"`
	BackendKind BackendKind `json:"backend_kind"`
	State       State       `json:"state"`

	StartedAt      *time.Time `json:"started_at,omitempty"`
	ElapsedSeconds int        `json:"elapsed_seconds"`

	// ProviderCallRef is set only for provider-backed calls.
	ProviderCallRef string `json:"provider_call_ref,omitempty"`

	WarningEmitted bool `json:"warning_emitted"`

	// Generation increments whenever the session's background work is
	// started or cancelled; callbacks carrying an older value are dropped.
	Generation uint64 `json:"generation"`
}

// CallResult is the durable outcome of a finished session.
//
// ResultRecordID is assigned once by persistence; edits mutate the same row.
type CallResult struct {
	ResultRecordID  string    `json:"result_id" db:"id"`
	SessionID       string    `json:"session_id" db:"session_id"`
	TargetID        string    `json:"target_id" db:"target_id"`
	OperatorID      string    `json:"operator_id" db:"operator_id"`
	ProjectID       string    `json:"project_id,omitempty" db:"project_id"`
	Outcome         Outcome   `json:"outcome" db:"outcome"`
	DurationSeconds int       `json:"duration_seconds" db:"duration_seconds"`
	Notes           string    `json:"notes" db:"notes"`
	CreatedAt       time.Time `json:"created_at" db:"created_at"`
	UpdatedAt       time.Time `json:"updated_at" db:"updated_at"`
}

// ResultUpdate carries the fields an operator may correct after saving.
type ResultUpdate struct {
	Outcome Outcome `json:"outcome"`
	Notes   string  `json:"notes"`
}

// ProviderStatus mirrors provider call progress values.
type ProviderStatus string

const (
	ProviderStatusQueued     ProviderStatus = "queued"
	ProviderStatusRinging    ProviderStatus = "ringing"
	ProviderStatusInProgress ProviderStatus = "in_progress"
	ProviderStatusCompleted  ProviderStatus = "completed"
	ProviderStatusFailed     ProviderStatus = "failed"
	ProviderStatusNoAnswer   ProviderStatus = "no_answer"
	ProviderStatusBusy       ProviderStatus = "busy"
	ProviderStatusCanceled   ProviderStatus = "canceled"
	ProviderStatusUnknown    ProviderStatus = "unknown"
)

// Ended reports whether the remote side has finished the call.
func (s ProviderStatus) Ended() bool {
	switch s {
	case ProviderStatusCompleted, ProviderStatusFailed, ProviderStatusNoAnswer, ProviderStatusBusy, ProviderStatusCanceled:
		return true
	default:
		return false
	}
}

// NormalizeProviderStatus maps provider spellings ("in-progress", "no-answer",
// "ended") onto ProviderStatus.
func NormalizeProviderStatus(raw string) ProviderStatus {
	s := strings.ToLower(strings.TrimSpace(raw))
	s = strings.ReplaceAll(s, "-", "_")
	switch s {
	case "queued", "initiated":
		return ProviderStatusQueued
	case "ringing":
		return ProviderStatusRinging
	case "in_progress", "answered", "connected":
		return ProviderStatusInProgress
	case "completed", "ended", "hangup":
		return ProviderStatusCompleted
	case "failed":
		return ProviderStatusFailed
	case "no_answer":
		return ProviderStatusNoAnswer
	case "busy":
		return ProviderStatusBusy
	case "canceled", "cancelled":
		return ProviderStatusCanceled
	default:
		return ProviderStatusUnknown
	}
}
