package session

import (
	"time"

	"callcenter-platform/internal/coaching"
)

type NoticeKind string

const (
	NoticeLongCallWarning  NoticeKind = "long_call_warning"
	NoticePollingDegraded  NoticeKind = "polling_degraded"
	NoticePollingRecovered NoticeKind = "polling_recovered"
	NoticeProviderEnded    NoticeKind = "provider_ended"
	NoticeCoachingMessage  NoticeKind = "coaching_message"
	NoticeForceEnded       NoticeKind = "force_ended"
)

// Notice is a non-fatal event pushed to the operator's client.
type Notice struct {
	Kind           NoticeKind        `json:"kind"`
	SessionID      string            `json:"session_id"`
	At             time.Time         `json:"at"`
	ElapsedSeconds int               `json:"elapsed_seconds"`
	Message        string            `json:"message,omitempty"`
	Coaching       *coaching.Message `json:"coaching,omitempty"`

	// Cue asks the client to play the short audible cue.
	Cue bool `json:"cue,omitempty"`
}
