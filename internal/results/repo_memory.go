package results

import (
	"context"
	"sort"
	"sync"
	"time"

	"callcenter-platform/internal/calls"

	"github.com/google/uuid"
)

// MemoryRepo is an in-memory Repository for tests and local runs.
type MemoryRepo struct {
	mu        sync.Mutex
	rows      map[string]calls.CallResult
	bySession map[string]string
	clock     func() time.Time
}

func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{
		rows:      map[string]calls.CallResult{},
		bySession: map[string]string{},
		clock:     time.Now,
	}
}

func (r *MemoryRepo) SaveCallResult(ctx context.Context, res calls.CallResult) (string, error) {
	if err := validateNew(res); err != nil {
		return "", err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.clock().UTC()
	if id, ok := r.bySession[res.SessionID]; ok {
		prev := r.rows[id]
		prev.Outcome = res.Outcome
		prev.Notes = res.Notes
		prev.UpdatedAt = now
		r.rows[id] = prev
		return id, nil
	}
	res.ResultRecordID = uuid.NewString()
	if res.CreatedAt.IsZero() {
		res.CreatedAt = now
	}
	res.UpdatedAt = now
	r.rows[res.ResultRecordID] = res
	r.bySession[res.SessionID] = res.ResultRecordID
	return res.ResultRecordID, nil
}

func (r *MemoryRepo) UpdateCallResult(ctx context.Context, resultID string, u calls.ResultUpdate) (calls.CallResult, error) {
	if err := validateUpdate(resultID, u); err != nil {
		return calls.CallResult{}, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	res, ok := r.rows[resultID]
	if !ok {
		return calls.CallResult{}, ErrNotFound
	}
	res.Outcome = u.Outcome
	res.Notes = u.Notes
	res.UpdatedAt = r.clock().UTC()
	r.rows[resultID] = res
	return res, nil
}

func (r *MemoryRepo) GetCallResult(ctx context.Context, resultID string) (calls.CallResult, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	res, ok := r.rows[resultID]
	if !ok {
		return calls.CallResult{}, ErrNotFound
	}
	return res, nil
}

func (r *MemoryRepo) ListByProject(ctx context.Context, projectID string, from, to time.Time) ([]calls.CallResult, error) {
	if projectID == "" {
		return nil, ErrInvalidArgument
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]calls.CallResult, 0)
	for _, res := range r.rows {
		if res.ProjectID != projectID {
			continue
		}
		if res.CreatedAt.Before(from) || !res.CreatedAt.Before(to) {
			continue
		}
		out = append(out, res)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

// Len reports the number of stored rows.
func (r *MemoryRepo) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.rows)
}
