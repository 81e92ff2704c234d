package analysis

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryRunStore_CreateTwiceFails(t *testing.T) {
	s := NewMemoryRunStore()
	ctx := context.Background()
	require.NoError(t, s.CreateRun(ctx, "r1", Steps(), time.Now()))
	assert.ErrorIs(t, s.CreateRun(ctx, "r1", Steps(), time.Now()), ErrRunExists)

	run, err := s.GetRun(ctx, "r1")
	require.NoError(t, err)
	assert.Len(t, run.Steps, 4)
	assert.False(t, run.Done())

	assert.ErrorIs(t, s.RecordStep(ctx, "nope", StepQualityScoring, StepResult{Status: StepSuccess}), ErrRunNotFound)
}

func TestPostgresRunStore_CreateRunConflict(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO analysis_runs").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	s := NewPostgresRunStore(db)
	err = s.CreateRun(context.Background(), "r1", Steps(), time.Now())
	assert.ErrorIs(t, err, ErrRunExists)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresRunStore_CreateRunInsertsSteps(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO analysis_runs").WillReturnResult(sqlmock.NewResult(0, 1))
	for range Steps() {
		mock.ExpectExec("INSERT INTO analysis_steps").WillReturnResult(sqlmock.NewResult(0, 1))
	}
	mock.ExpectCommit()

	s := NewPostgresRunStore(db)
	require.NoError(t, s.CreateRun(context.Background(), "r1", Steps(), time.Now()))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresRunStore_GetRun(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	now := time.Unix(1700000000, 0).UTC()
	mock.ExpectQuery("SELECT created_at FROM analysis_runs").
		WithArgs("r1").
		WillReturnRows(sqlmock.NewRows([]string{"created_at"}).AddRow(now))
	mock.ExpectQuery("SELECT step, status, error, finished_at FROM analysis_steps").
		WithArgs("r1").
		WillReturnRows(sqlmock.NewRows([]string{"step", "status", "error", "finished_at"}).
			AddRow("quality_scoring", "failed", "boom", now).
			AddRow("rejection_insight", "skipped", "", nil))

	s := NewPostgresRunStore(db)
	run, err := s.GetRun(context.Background(), "r1")
	require.NoError(t, err)
	assert.Equal(t, StepFailed, run.Steps[StepQualityScoring].Status)
	assert.Equal(t, "boom", run.Steps[StepQualityScoring].Error)
	require.NotNil(t, run.Steps[StepQualityScoring].FinishedAt)
	assert.Nil(t, run.Steps[StepRejectionInsight].FinishedAt)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresRunStore_RecordStepUnknownRun(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectExec("UPDATE analysis_steps").WillReturnResult(sqlmock.NewResult(0, 0))

	s := NewPostgresRunStore(db)
	err = s.RecordStep(context.Background(), "r1", StepPivotAlertCheck, StepResult{Status: StepSkipped})
	assert.ErrorIs(t, err, ErrRunNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}
