package analysis

import (
	"context"
	"errors"
	"sync"
	"time"
)

var (
	ErrRunNotFound = errors.New("analysis: run not found")
	// ErrRunExists is returned when a run was already created for a result,
	// which keeps the pipeline to one execution per saved result.
	ErrRunExists = errors.New("analysis: run already exists")
)

// RunStore persists PostCallAnalysisRun bookkeeping.
type RunStore interface {
	CreateRun(ctx context.Context, resultID string, steps []StepName, at time.Time) error
	RecordStep(ctx context.Context, resultID string, step StepName, res StepResult) error
	GetRun(ctx context.Context, resultID string) (Run, error)
}

// MemoryRunStore is an in-memory RunStore for tests and local runs.
type MemoryRunStore struct {
	mu   sync.Mutex
	runs map[string]Run
}

func NewMemoryRunStore() *MemoryRunStore {
	return &MemoryRunStore{runs: map[string]Run{}}
}

func (s *MemoryRunStore) CreateRun(ctx context.Context, resultID string, steps []StepName, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.runs[resultID]; ok {
		return ErrRunExists
	}
	run := Run{ResultRecordID: resultID, Steps: make(map[StepName]StepResult, len(steps)), CreatedAt: at}
	for _, st := range steps {
		run.Steps[st] = StepResult{Status: StepPending}
	}
	s.runs[resultID] = run
	return nil
}

func (s *MemoryRunStore) RecordStep(ctx context.Context, resultID string, step StepName, res StepResult) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	run, ok := s.runs[resultID]
	if !ok {
		return ErrRunNotFound
	}
	run.Steps[step] = res
	return nil
}

func (s *MemoryRunStore) GetRun(ctx context.Context, resultID string) (Run, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	run, ok := s.runs[resultID]
	if !ok {
		return Run{}, ErrRunNotFound
	}
	out := run
	out.Steps = make(map[StepName]StepResult, len(run.Steps))
	for k, v := range run.Steps {
		out.Steps[k] = v
	}
	return out, nil
}
