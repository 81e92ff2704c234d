package coaching

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"callcenter-platform/internal/observability/metrics"
	"callcenter-platform/pkg/logger"

	"github.com/google/uuid"
)

type SendRequest struct {
	OperatorID   string   `json:"operator_id"`
	SenderID     string   `json:"-"`
	SessionScope string   `json:"session_scope,omitempty"`
	Body         string   `json:"body"`
	Category     Category `json:"category"`
}

// Service is the supervisor-facing producer and the operator-facing read
// API for coaching messages. It has no view of what a live client has read.
type Service struct {
	store   Store
	broker  Broker
	log     *slog.Logger
	metrics *metrics.SessionMetrics
	clock   func() time.Time
}

func NewService(store Store, broker Broker, log *slog.Logger, m *metrics.SessionMetrics) *Service {
	return &Service{
		store:   store,
		broker:  broker,
		log:     logger.OrDefault(log).With("component", "coaching"),
		metrics: m,
		clock:   time.Now,
	}
}

// Send persists a message and then publishes it. A publish failure is logged
// and does not fail the send: the message stays readable from storage.
func (s *Service) Send(ctx context.Context, req SendRequest) (Message, error) {
	if err := validateSend(req); err != nil {
		return Message{}, err
	}
	if s.store == nil || s.broker == nil {
		return Message{}, errors.New("coaching: service not configured")
	}

	m := Message{
		MessageID:    uuid.NewString(),
		OperatorID:   req.OperatorID,
		SenderID:     req.SenderID,
		SessionScope: req.SessionScope,
		Body:         strings.TrimSpace(req.Body),
		Category:     req.Category,
		SentAt:       s.clock().UTC(),
	}
	if err := s.store.Insert(ctx, m); err != nil {
		return Message{}, err
	}
	if err := s.broker.Publish(ctx, m); err != nil {
		s.log.Warn("publish coaching message failed", "operator_id", m.OperatorID, "message_id", m.MessageID, "err", err)
	} else {
		s.metrics.ObserveCoaching("sent")
	}
	return m, nil
}

func (s *Service) MarkRead(ctx context.Context, operatorID, messageID string) (Message, error) {
	if operatorID == "" || messageID == "" {
		return Message{}, ErrInvalidMessage
	}
	return s.store.MarkRead(ctx, operatorID, messageID, s.clock().UTC())
}

func (s *Service) List(ctx context.Context, operatorID string, limit int) ([]Message, error) {
	if operatorID == "" {
		return nil, ErrInvalidMessage
	}
	return s.store.ListByOperator(ctx, operatorID, limit)
}

// Subscribe exposes the broker to the session controller.
func (s *Service) Subscribe(ctx context.Context, operatorID string) (<-chan Message, error) {
	return s.broker.Subscribe(ctx, operatorID)
}
