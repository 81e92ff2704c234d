package audit

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

var ErrInvalidEvent = errors.New("audit: invalid event")

// Repository persists audit events. It is append-only: there is no way to
// update or delete an event.
type Repository interface {
	Append(ctx context.Context, e Event) error
}

// Service is the write side of the session audit trail. Records are for
// internal review and are never shown to operators. Every caller treats a
// failed write as a log line, not an error.
type Service struct {
	repo  Repository
	clock func() time.Time
	newID func() string
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo, clock: time.Now, newID: uuid.NewString}
}

func (s *Service) Append(ctx context.Context, e Event) error {
	if s.repo == nil {
		return errors.New("audit: repository not configured")
	}
	if err := validate(e); err != nil {
		return err
	}
	if e.ID == "" {
		e.ID = s.newID()
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = s.clock().UTC()
	}
	return s.repo.Append(ctx, e)
}

func validate(e Event) error {
	switch {
	case e.OperatorID == "":
		return fmt.Errorf("%w: operator_id required", ErrInvalidEvent)
	case !e.Type.Valid():
		return fmt.Errorf("%w: unknown type %q", ErrInvalidEvent, e.Type)
	case e.Type == EventResultEdited && e.ResultID == "":
		return fmt.Errorf("%w: result_edited needs result_id", ErrInvalidEvent)
	}
	return nil
}

// LogCoachingSent records a supervisor sending a coaching message.
// sessionID is the message's session scope and may be empty.
func (s *Service) LogCoachingSent(ctx context.Context, operatorID, supervisorID, sessionID, messageID string) error {
	return s.Append(ctx, Event{
		OperatorID: operatorID,
		Type:       EventCoachingSent,
		ActorID:    supervisorID,
		SessionID:  sessionID,
		Message:    "coaching message " + messageID,
	})
}
