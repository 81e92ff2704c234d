package coaching

import (
	"context"
	"log/slog"
	"sync"

	"callcenter-platform/pkg/logger"
)

const defaultSubscriptionBuffer = 32

// Broker is the push backend: publish/subscribe keyed by operator id.
//
// Subscribe returns a channel that receives messages for one operator in
// publish order. The channel is closed once ctx is cancelled; cancelling ctx
// is the only way to unsubscribe.
type Broker interface {
	Publish(ctx context.Context, m Message) error
	Subscribe(ctx context.Context, operatorID string) (<-chan Message, error)
}

// MemoryBroker is an in-process Broker for a single API replica and tests.
type MemoryBroker struct {
	mu     sync.Mutex
	subs   map[string]map[*memorySub]struct{}
	buffer int
	log    *slog.Logger
}

type memorySub struct {
	ch     chan Message
	closed bool
}

func NewMemoryBroker(buffer int, log *slog.Logger) *MemoryBroker {
	if buffer <= 0 {
		buffer = defaultSubscriptionBuffer
	}
	return &MemoryBroker{
		subs:   map[string]map[*memorySub]struct{}{},
		buffer: buffer,
		log:    logger.OrDefault(log).With("component", "coaching_broker"),
	}
}

func (b *MemoryBroker) Publish(ctx context.Context, m Message) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	for s := range b.subs[m.OperatorID] {
		select {
		case s.ch <- m:
		default:
			b.log.Warn("subscriber buffer full; dropping coaching message",
				"operator_id", m.OperatorID, "message_id", m.MessageID)
		}
	}
	return nil
}

func (b *MemoryBroker) Subscribe(ctx context.Context, operatorID string) (<-chan Message, error) {
	s := &memorySub{ch: make(chan Message, b.buffer)}

	b.mu.Lock()
	if b.subs[operatorID] == nil {
		b.subs[operatorID] = map[*memorySub]struct{}{}
	}
	b.subs[operatorID][s] = struct{}{}
	b.mu.Unlock()

	go func() {
		<-ctx.Done()
		b.mu.Lock()
		defer b.mu.Unlock()
		delete(b.subs[operatorID], s)
		if len(b.subs[operatorID]) == 0 {
			delete(b.subs, operatorID)
		}
		if !s.closed {
			s.closed = true
			close(s.ch)
		}
	}()
	return s.ch, nil
}

// Subscribers reports the live subscription count for an operator.
func (b *MemoryBroker) Subscribers(operatorID string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subs[operatorID])
}
