package results

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"callcenter-platform/internal/calls"

	"github.com/google/uuid"
)

// NOTE: PostgresRepo assumes:
//
//	CREATE TABLE call_results (
//	  id               UUID PRIMARY KEY,
//	  session_id       TEXT NOT NULL UNIQUE,
//	  target_id        TEXT NOT NULL,
//	  operator_id      TEXT NOT NULL,
//	  project_id       TEXT NOT NULL DEFAULT '',
//	  outcome          TEXT NOT NULL,
//	  duration_seconds INT  NOT NULL,
//	  notes            TEXT NOT NULL DEFAULT '',
//	  created_at       TIMESTAMPTZ NOT NULL,
//	  updated_at       TIMESTAMPTZ NOT NULL
//	);
//
// The session_id uniqueness backs idempotent saves.
type PostgresRepo struct {
	db    *sql.DB
	clock func() time.Time
}

func NewPostgresRepo(db *sql.DB) *PostgresRepo {
	return &PostgresRepo{db: db, clock: time.Now}
}

const resultColumns = `id, session_id, target_id, operator_id, project_id, outcome, duration_seconds, notes, created_at, updated_at`

func (r *PostgresRepo) SaveCallResult(ctx context.Context, res calls.CallResult) (string, error) {
	if err := validateNew(res); err != nil {
		return "", err
	}
	now := r.clock().UTC()
	if res.CreatedAt.IsZero() {
		res.CreatedAt = now
	}

	// A retried save keeps the row id and takes the latest outcome and notes.
	const q = `
INSERT INTO call_results (` + resultColumns + `)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
ON CONFLICT (session_id) DO UPDATE
SET outcome = EXCLUDED.outcome, notes = EXCLUDED.notes, updated_at = EXCLUDED.updated_at
RETURNING id
`
	var id string
	err := r.db.QueryRowContext(ctx, q,
		uuid.NewString(),
		res.SessionID,
		res.TargetID,
		res.OperatorID,
		res.ProjectID,
		string(res.Outcome),
		res.DurationSeconds,
		res.Notes,
		res.CreatedAt,
		now,
	).Scan(&id)
	if err != nil {
		return "", err
	}
	return id, nil
}

func (r *PostgresRepo) UpdateCallResult(ctx context.Context, resultID string, u calls.ResultUpdate) (calls.CallResult, error) {
	if err := validateUpdate(resultID, u); err != nil {
		return calls.CallResult{}, err
	}
	const q = `
UPDATE call_results
SET outcome = $1, notes = $2, updated_at = $3
WHERE id = $4
RETURNING ` + resultColumns
	return scanResult(r.db.QueryRowContext(ctx, q, string(u.Outcome), u.Notes, r.clock().UTC(), resultID))
}

func (r *PostgresRepo) GetCallResult(ctx context.Context, resultID string) (calls.CallResult, error) {
	const q = `SELECT ` + resultColumns + ` FROM call_results WHERE id = $1`
	return scanResult(r.db.QueryRowContext(ctx, q, resultID))
}

func (r *PostgresRepo) ListByProject(ctx context.Context, projectID string, from, to time.Time) ([]calls.CallResult, error) {
	if projectID == "" {
		return nil, ErrInvalidArgument
	}
	const q = `
SELECT ` + resultColumns + `
FROM call_results
WHERE project_id = $1 AND created_at >= $2 AND created_at < $3
ORDER BY created_at
`
	rows, err := r.db.QueryContext(ctx, q, projectID, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]calls.CallResult, 0)
	for rows.Next() {
		res, err := scanResult(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, res)
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanResult(row rowScanner) (calls.CallResult, error) {
	var res calls.CallResult
	var outcome string
	if err := row.Scan(
		&res.ResultRecordID,
		&res.SessionID,
		&res.TargetID,
		&res.OperatorID,
		&res.ProjectID,
		&outcome,
		&res.DurationSeconds,
		&res.Notes,
		&res.CreatedAt,
		&res.UpdatedAt,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return calls.CallResult{}, ErrNotFound
		}
		return calls.CallResult{}, err
	}
	res.Outcome = calls.Outcome(outcome)
	return res, nil
}
