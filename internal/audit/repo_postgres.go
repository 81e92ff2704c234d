package audit

import (
	"context"
	"database/sql"
)

// PostgresRepo appends to session_audit_events. It has no update or delete.
type PostgresRepo struct {
	db *sql.DB
}

func NewPostgresRepo(db *sql.DB) *PostgresRepo { return &PostgresRepo{db: db} }

func (r *PostgresRepo) Append(ctx context.Context, e Event) error {
	_, err := r.db.ExecContext(ctx, `
INSERT INTO session_audit_events (id, operator_id, type, actor_id, session_id, result_id, message, created_at)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
`, e.ID, e.OperatorID, string(e.Type), e.ActorID, e.SessionID, e.ResultID, e.Message, e.CreatedAt)
	return err
}
