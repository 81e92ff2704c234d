package coaching

import (
	"context"
	"sort"
	"sync"
	"time"
)

// Store persists coaching messages. Messages are kept after their session
// ends; only the live view drops them.
type Store interface {
	Insert(ctx context.Context, m Message) error
	// MarkRead sets read_at once; later calls return the stored message
	// unchanged.
	MarkRead(ctx context.Context, operatorID, messageID string, at time.Time) (Message, error)
	ListByOperator(ctx context.Context, operatorID string, limit int) ([]Message, error)
}

type MemoryStore struct {
	mu   sync.Mutex
	rows map[string]Message
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{rows: map[string]Message{}}
}

func (s *MemoryStore) Insert(ctx context.Context, m Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rows[m.MessageID] = m
	return nil
}

func (s *MemoryStore) MarkRead(ctx context.Context, operatorID, messageID string, at time.Time) (Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.rows[messageID]
	if !ok || m.OperatorID != operatorID {
		return Message{}, ErrNotFound
	}
	if m.ReadAt == nil {
		t := at
		m.ReadAt = &t
		s.rows[messageID] = m
	}
	return m, nil
}

// ListByOperator returns messages most recent first.
func (s *MemoryStore) ListByOperator(ctx context.Context, operatorID string, limit int) ([]Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Message, 0)
	for _, m := range s.rows {
		if m.OperatorID == operatorID {
			out = append(out, m)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].SentAt.After(out[j].SentAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}
