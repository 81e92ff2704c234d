package coaching

import (
	"errors"
	"strings"
	"time"
)

var (
	ErrInvalidMessage = errors.New("coaching: invalid message")
	ErrNotFound       = errors.New("coaching: message not found")
)

// MaxBodyLength bounds a coaching message body in runes.
const MaxBodyLength = 500

type Category string

const (
	CategoryEncouragement Category = "encouragement"
	CategoryInstruction   Category = "instruction"
	CategoryWarning       Category = "warning"
)

func (c Category) Valid() bool {
	switch c {
	case CategoryEncouragement, CategoryInstruction, CategoryWarning:
		return true
	default:
		return false
	}
}

// Message is a single supervisor-to-operator advisory.
type Message struct {
	MessageID    string     `json:"message_id"`
	OperatorID   string     `json:"operator_id"`
	SenderID     string     `json:"sender_id,omitempty"`
	SessionScope string     `json:"session_scope,omitempty"`
	Body         string     `json:"body"`
	Category     Category   `json:"category"`
	SentAt       time.Time  `json:"sent_at"`
	ReadAt       *time.Time `json:"read_at,omitempty"`
}

func validateSend(req SendRequest) error {
	if req.OperatorID == "" {
		return ErrInvalidMessage
	}
	body := strings.TrimSpace(req.Body)
	if body == "" || len([]rune(body)) > MaxBodyLength {
		return ErrInvalidMessage
	}
	if !req.Category.Valid() {
		return ErrInvalidMessage
	}
	return nil
}
