package coaching

import (
	"context"
	"database/sql"
	"errors"
	"time"
)

// NOTE: PostgresStore assumes:
//
//	CREATE TABLE coaching_messages (
//	  id            UUID PRIMARY KEY,
//	  operator_id   TEXT NOT NULL,
//	  sender_id     TEXT NOT NULL DEFAULT '',
//	  session_scope TEXT NOT NULL DEFAULT '',
//	  body          TEXT NOT NULL,
//	  category      TEXT NOT NULL,
//	  sent_at       TIMESTAMPTZ NOT NULL,
//	  read_at       TIMESTAMPTZ NULL
//	);
//	CREATE INDEX ON coaching_messages (operator_id, sent_at DESC);
type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

const messageColumns = `id, operator_id, sender_id, session_scope, body, category, sent_at, read_at`

func (s *PostgresStore) Insert(ctx context.Context, m Message) error {
	_, err := s.db.ExecContext(ctx, `
INSERT INTO coaching_messages (`+messageColumns+`)
VALUES ($1,$2,$3,$4,$5,$6,$7,NULL)
`, m.MessageID, m.OperatorID, m.SenderID, m.SessionScope, m.Body, string(m.Category), m.SentAt)
	return err
}

func (s *PostgresStore) MarkRead(ctx context.Context, operatorID, messageID string, at time.Time) (Message, error) {
	row := s.db.QueryRowContext(ctx, `
UPDATE coaching_messages
SET read_at = COALESCE(read_at, $1)
WHERE id = $2 AND operator_id = $3
RETURNING `+messageColumns, at, messageID, operatorID)
	return scanMessage(row)
}

func (s *PostgresStore) ListByOperator(ctx context.Context, operatorID string, limit int) ([]Message, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.db.QueryContext(ctx, `
SELECT `+messageColumns+`
FROM coaching_messages
WHERE operator_id = $1
ORDER BY sent_at DESC
LIMIT $2
`, operatorID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]Message, 0)
	for rows.Next() {
		m, err := scanMessage(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanMessage(row rowScanner) (Message, error) {
	var m Message
	var category string
	var readAt sql.NullTime
	if err := row.Scan(&m.MessageID, &m.OperatorID, &m.SenderID, &m.SessionScope, &m.Body, &category, &m.SentAt, &readAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Message{}, ErrNotFound
		}
		return Message{}, err
	}
	m.Category = Category(category)
	if readAt.Valid {
		t := readAt.Time
		m.ReadAt = &t
	}
	return m, nil
}
