package audit

import "time"

// Event is an immutable, append-only audit log record of a call session.
//
// Invariants:
// - Events are never updated or deleted.
// - operator_id is required.
// - Audit writes are best-effort; never block a call on an audit failure.
//
// Storage (Postgres): table session_audit_events with an INSERT-only grant.
type Event struct {
	ID         string `json:"id" db:"id"`
	OperatorID string `json:"operator_id" db:"operator_id"`

	// Type indicates the category of the audit record.
	Type EventType `json:"type" db:"type"`

	// ActorID is set when a user other than the operator caused the event,
	// e.g. a supervisor.
	ActorID string `json:"actor_id,omitempty" db:"actor_id"`

	SessionID string `json:"session_id,omitempty" db:"session_id"`
	ResultID  string `json:"result_id,omitempty" db:"result_id"`

	// Message is a short human-readable description for internal ops.
	Message string `json:"message,omitempty" db:"message"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

type EventType string

const (
	EventCallForceEnded  EventType = "call_force_ended"
	EventLongCallWarning EventType = "long_call_warning"
	EventResultEdited    EventType = "result_edited"
	EventPollingDegraded EventType = "polling_degraded"
	EventCoachingSent    EventType = "coaching_sent"
)

func (t EventType) Valid() bool {
	switch t {
	case EventCallForceEnded, EventLongCallWarning, EventResultEdited, EventPollingDegraded, EventCoachingSent:
		return true
	}
	return false
}
