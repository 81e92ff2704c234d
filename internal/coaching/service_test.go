package coaching

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"callcenter-platform/pkg/logger"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type failingBroker struct{ *MemoryBroker }

func (failingBroker) Publish(ctx context.Context, m Message) error { return errors.New("redis down") }

func TestService_SendValidates(t *testing.T) {
	svc := NewService(NewMemoryStore(), NewMemoryBroker(4, nil), logger.Discard(), nil)
	ctx := context.Background()

	cases := []SendRequest{
		{Body: "hi", Category: CategoryInstruction},
		{OperatorID: "op", Body: "   ", Category: CategoryInstruction},
		{OperatorID: "op", Body: "hi", Category: "shouting"},
		{OperatorID: "op", Body: strings.Repeat("x", MaxBodyLength+1), Category: CategoryWarning},
	}
	for _, req := range cases {
		_, err := svc.Send(ctx, req)
		assert.ErrorIs(t, err, ErrInvalidMessage)
	}
}

func TestService_SendPersistsThenPublishes(t *testing.T) {
	store := NewMemoryStore()
	broker := NewMemoryBroker(4, nil)
	svc := NewService(store, broker, logger.Discard(), nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	ch, err := broker.Subscribe(ctx, "op-1")
	require.NoError(t, err)

	m, err := svc.Send(context.Background(), SendRequest{OperatorID: "op-1", Body: " ask about budget ", Category: CategoryInstruction, SenderID: "sup-1"})
	require.NoError(t, err)
	assert.NotEmpty(t, m.MessageID)
	assert.Equal(t, "ask about budget", m.Body)
	assert.False(t, m.SentAt.IsZero())

	got := recvN(t, ch, 1)
	assert.Equal(t, m.MessageID, got[0].MessageID)

	list, err := svc.List(context.Background(), "op-1", 10)
	require.NoError(t, err)
	require.Len(t, list, 1)
}

func TestService_PublishFailureStillStores(t *testing.T) {
	store := NewMemoryStore()
	svc := NewService(store, failingBroker{NewMemoryBroker(1, nil)}, logger.Discard(), nil)

	_, err := svc.Send(context.Background(), SendRequest{OperatorID: "op-1", Body: "hi", Category: CategoryEncouragement})
	require.NoError(t, err)

	list, err := store.ListByOperator(context.Background(), "op-1", 0)
	require.NoError(t, err)
	assert.Len(t, list, 1)
}

func TestService_MarkReadIsIdempotent(t *testing.T) {
	store := NewMemoryStore()
	svc := NewService(store, NewMemoryBroker(1, nil), logger.Discard(), nil)
	first := time.Unix(1700000000, 0).UTC()
	svc.clock = func() time.Time { return first }

	m, err := svc.Send(context.Background(), SendRequest{OperatorID: "op-1", Body: "hi", Category: CategoryEncouragement})
	require.NoError(t, err)

	read1, err := svc.MarkRead(context.Background(), "op-1", m.MessageID)
	require.NoError(t, err)
	require.NotNil(t, read1.ReadAt)

	svc.clock = func() time.Time { return first.Add(time.Hour) }
	read2, err := svc.MarkRead(context.Background(), "op-1", m.MessageID)
	require.NoError(t, err)
	assert.True(t, read2.ReadAt.Equal(*read1.ReadAt))

	_, err = svc.MarkRead(context.Background(), "op-2", m.MessageID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestPostgresStore_MarkReadMissing(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery("UPDATE coaching_messages").
		WithArgs(sqlmock.AnyArg(), "m1", "op-1").
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	s := NewPostgresStore(db)
	_, err = s.MarkRead(context.Background(), "op-1", "m1", time.Now())
	assert.ErrorIs(t, err, ErrNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_ListByOperator(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	now := time.Unix(1700000000, 0).UTC()
	cols := []string{"id", "operator_id", "sender_id", "session_scope", "body", "category", "sent_at", "read_at"}
	mock.ExpectQuery("SELECT (.+) FROM coaching_messages").
		WithArgs("op-1", 100).
		WillReturnRows(sqlmock.NewRows(cols).
			AddRow("m2", "op-1", "sup", "s1", "second", "warning", now.Add(time.Second), nil).
			AddRow("m1", "op-1", "sup", "s1", "first", "instruction", now, now))

	s := NewPostgresStore(db)
	list, err := s.ListByOperator(context.Background(), "op-1", 0)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Nil(t, list[0].ReadAt)
	require.NotNil(t, list[1].ReadAt)
	assert.Equal(t, CategoryInstruction, list[1].Category)
	require.NoError(t, mock.ExpectationsWereMet())
}
