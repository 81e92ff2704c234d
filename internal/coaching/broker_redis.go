package coaching

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"callcenter-platform/pkg/logger"

	"github.com/redis/go-redis/v9"
)

// RedisBroker fans coaching messages out across API replicas using redis
// pub/sub, one channel per operator.
type RedisBroker struct {
	rdb    *redis.Client
	buffer int
	log    *slog.Logger
}

func NewRedisBroker(rdb *redis.Client, buffer int, log *slog.Logger) *RedisBroker {
	if buffer <= 0 {
		buffer = defaultSubscriptionBuffer
	}
	return &RedisBroker{
		rdb:    rdb,
		buffer: buffer,
		log:    logger.OrDefault(log).With("component", "coaching_broker"),
	}
}

func channelFor(operatorID string) string { return "coaching:operator:" + operatorID }

func (b *RedisBroker) Publish(ctx context.Context, m Message) error {
	payload, err := json.Marshal(m)
	if err != nil {
		return fmt.Errorf("coaching: encode message: %w", err)
	}
	return b.rdb.Publish(ctx, channelFor(m.OperatorID), payload).Err()
}

func (b *RedisBroker) Subscribe(ctx context.Context, operatorID string) (<-chan Message, error) {
	sub := b.rdb.Subscribe(ctx, channelFor(operatorID))
	// Wait for the subscription to be confirmed so no publish is missed
	// between Subscribe returning and the first read.
	if _, err := sub.Receive(ctx); err != nil {
		_ = sub.Close()
		return nil, fmt.Errorf("coaching: subscribe: %w", err)
	}

	out := make(chan Message, b.buffer)
	in := sub.Channel()
	go func() {
		defer close(out)
		defer sub.Close()
		for {
			select {
			case <-ctx.Done():
				return
			case raw, ok := <-in:
				if !ok {
					return
				}
				var m Message
				if err := json.Unmarshal([]byte(raw.Payload), &m); err != nil {
					b.log.Warn("dropping undecodable coaching message", "operator_id", operatorID, "err", err)
					continue
				}
				select {
				case out <- m:
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return out, nil
}
