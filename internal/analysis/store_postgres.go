package analysis

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"callcenter-platform/pkg/utils"
)

// NOTE: PostgresRunStore assumes:
//
//	CREATE TABLE analysis_runs (
//	  result_id  UUID PRIMARY KEY,
//	  created_at TIMESTAMPTZ NOT NULL
//	);
//	CREATE TABLE analysis_steps (
//	  result_id   UUID NOT NULL REFERENCES analysis_runs(result_id),
//	  step        TEXT NOT NULL,
//	  status      TEXT NOT NULL,
//	  error       TEXT NOT NULL DEFAULT '',
//	  finished_at TIMESTAMPTZ NULL,
//	  PRIMARY KEY (result_id, step)
//	);
type PostgresRunStore struct {
	db *sql.DB
}

func NewPostgresRunStore(db *sql.DB) *PostgresRunStore {
	return &PostgresRunStore{db: db}
}

func (s *PostgresRunStore) CreateRun(ctx context.Context, resultID string, steps []StepName, at time.Time) error {
	return utils.WithTx(ctx, s.db, nil, func(ctx context.Context, tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx,
			`INSERT INTO analysis_runs (result_id, created_at) VALUES ($1,$2) ON CONFLICT (result_id) DO NOTHING`,
			resultID, at)
		if err != nil {
			return err
		}
		n, err := res.RowsAffected()
		if err != nil {
			return err
		}
		if n == 0 {
			return ErrRunExists
		}
		for _, st := range steps {
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO analysis_steps (result_id, step, status) VALUES ($1,$2,$3)`,
				resultID, string(st), string(StepPending)); err != nil {
				return err
			}
		}
		return nil
	})
}

func (s *PostgresRunStore) RecordStep(ctx context.Context, resultID string, step StepName, res StepResult) error {
	var finished sql.NullTime
	if res.FinishedAt != nil {
		finished = sql.NullTime{Time: *res.FinishedAt, Valid: true}
	}
	out, err := s.db.ExecContext(ctx,
		`UPDATE analysis_steps SET status = $1, error = $2, finished_at = $3 WHERE result_id = $4 AND step = $5`,
		string(res.Status), res.Error, finished, resultID, string(step))
	if err != nil {
		return err
	}
	n, err := out.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrRunNotFound
	}
	return nil
}

func (s *PostgresRunStore) GetRun(ctx context.Context, resultID string) (Run, error) {
	run := Run{ResultRecordID: resultID, Steps: map[StepName]StepResult{}}
	err := s.db.QueryRowContext(ctx, `SELECT created_at FROM analysis_runs WHERE result_id = $1`, resultID).Scan(&run.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Run{}, ErrRunNotFound
		}
		return Run{}, err
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT step, status, error, finished_at FROM analysis_steps WHERE result_id = $1`, resultID)
	if err != nil {
		return Run{}, err
	}
	defer rows.Close()
	for rows.Next() {
		var step, status, msg string
		var finished sql.NullTime
		if err := rows.Scan(&step, &status, &msg, &finished); err != nil {
			return Run{}, err
		}
		sr := StepResult{Status: StepStatus(status), Error: msg}
		if finished.Valid {
			t := finished.Time
			sr.FinishedAt = &t
		}
		run.Steps[StepName(step)] = sr
	}
	return run, rows.Err()
}
