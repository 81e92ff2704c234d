package coaching

import (
	"context"
	"fmt"
	"testing"
	"time"

	"callcenter-platform/pkg/logger"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func recvN(t *testing.T, ch <-chan Message, n int) []Message {
	t.Helper()
	out := make([]Message, 0, n)
	timeout := time.After(2 * time.Second)
	for len(out) < n {
		select {
		case m, ok := <-ch:
			require.True(t, ok, "channel closed early")
			out = append(out, m)
		case <-timeout:
			t.Fatalf("timed out after %d of %d messages", len(out), n)
		}
	}
	return out
}

func waitClosed(t *testing.T, ch <-chan Message) {
	t.Helper()
	timeout := time.After(2 * time.Second)
	for {
		select {
		case _, ok := <-ch:
			if !ok {
				return
			}
		case <-timeout:
			t.Fatalf("subscription not closed")
		}
	}
}

func TestMemoryBroker_PreservesOrderPerOperator(t *testing.T) {
	b := NewMemoryBroker(16, logger.Discard())
	ctx, cancel := context.WithCancel(context.Background())
	ch, err := b.Subscribe(ctx, "op-1")
	require.NoError(t, err)

	for i := 0; i < 5; i++ {
		require.NoError(t, b.Publish(context.Background(), Message{MessageID: fmt.Sprint(i), OperatorID: "op-1"}))
	}
	require.NoError(t, b.Publish(context.Background(), Message{MessageID: "other", OperatorID: "op-2"}))

	got := recvN(t, ch, 5)
	for i, m := range got {
		assert.Equal(t, fmt.Sprint(i), m.MessageID)
	}

	cancel()
	waitClosed(t, ch)
	assert.Eventually(t, func() bool { return b.Subscribers("op-1") == 0 }, time.Second, 10*time.Millisecond)
}

func TestRedisBroker_PublishSubscribe(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer rdb.Close()

	b := NewRedisBroker(rdb, 8, logger.Discard())
	ctx, cancel := context.WithCancel(context.Background())
	ch, err := b.Subscribe(ctx, "op-1")
	require.NoError(t, err)

	sent := time.Unix(1700000000, 0).UTC()
	require.NoError(t, b.Publish(context.Background(), Message{MessageID: "m1", OperatorID: "op-1", Body: "first", Category: CategoryInstruction, SentAt: sent}))
	require.NoError(t, b.Publish(context.Background(), Message{MessageID: "m2", OperatorID: "op-1", Body: "second", Category: CategoryWarning, SentAt: sent}))

	got := recvN(t, ch, 2)
	assert.Equal(t, "m1", got[0].MessageID)
	assert.Equal(t, "m2", got[1].MessageID)
	assert.Equal(t, CategoryWarning, got[1].Category)
	assert.True(t, got[0].SentAt.Equal(sent))

	cancel()
	waitClosed(t, ch)
}
