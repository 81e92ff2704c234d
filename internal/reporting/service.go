package reporting

import (
	"context"
	"errors"
	"time"

	"callcenter-platform/internal/calls"
)

var ErrInvalidRequest = errors.New("reporting: invalid request")

// Repository is the read side of persisted call results. results.MemoryRepo
// and results.PostgresRepo both satisfy it.
type Repository interface {
	ListByProject(ctx context.Context, projectID string, from, to time.Time) ([]calls.CallResult, error)
}

type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service { return &Service{repo: repo} }

func (s *Service) ProjectSummary(ctx context.Context, req ProjectSummaryRequest) (ProjectSummary, error) {
	if req.ProjectID == "" {
		return ProjectSummary{}, ErrInvalidRequest
	}
	if req.Range.From.IsZero() || req.Range.To.IsZero() || !req.Range.To.After(req.Range.From) {
		return ProjectSummary{}, ErrInvalidRequest
	}
	if s.repo == nil {
		return ProjectSummary{}, errors.New("reporting: repository not configured")
	}

	rows, err := s.repo.ListByProject(ctx, req.ProjectID, req.Range.From, req.Range.To)
	if err != nil {
		return ProjectSummary{}, err
	}

	out := ProjectSummary{
		ProjectID: req.ProjectID,
		Range:     req.Range,
		ByOutcome: make(map[calls.Outcome]int, len(calls.Outcomes())),
	}
	for _, o := range calls.Outcomes() {
		out.ByOutcome[o] = 0
	}
	for _, r := range rows {
		out.TotalCalls++
		out.ByOutcome[r.Outcome]++
		out.TotalDurationSeconds += r.DurationSeconds
		if reached(r.Outcome) {
			out.Connected++
		}
		if r.Outcome == calls.OutcomeAppointmentWon {
			out.Appointments++
		}
	}
	if out.TotalCalls > 0 {
		out.AverageDurationSeconds = out.TotalDurationSeconds / out.TotalCalls
		out.ConnectionRate = float64(out.Connected) / float64(out.TotalCalls)
		out.AppointmentRate = float64(out.Appointments) / float64(out.TotalCalls)
	}
	return out, nil
}
