package analysis

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"callcenter-platform/internal/calls"
	"callcenter-platform/internal/observability/metrics"
	"callcenter-platform/pkg/logger"
)

const defaultStepTimeout = 30 * time.Second

// Deps wires the pipeline to its collaborators. Any nil service makes the
// corresponding step fail with ErrServiceNotConfigured.
type Deps struct {
	Scorer      Scorer
	Engagement  EngagementUpdater
	Insights    InsightRecorder
	Pivots      PivotAlerter
	Runs        RunStore
	Logger      *slog.Logger
	Metrics     *metrics.AnalysisMetrics
	StepTimeout time.Duration
}

var ErrServiceNotConfigured = errors.New("analysis: service not configured")

// Pipeline fans a saved call result out to the enrichment steps.
//
// Invariants:
//   - Dispatch never blocks the caller and never returns an error.
//   - Each step runs in its own goroutine with its own timeout and recover; one
//     step failing or hanging does not affect the others.
//   - Failures are recorded on the run and logged. They are never retried.
type Pipeline struct {
	deps  Deps
	log   *slog.Logger
	clock func() time.Time
	wg    sync.WaitGroup
}

func NewPipeline(d Deps) *Pipeline {
	if d.StepTimeout <= 0 {
		d.StepTimeout = defaultStepTimeout
	}
	if d.Runs == nil {
		d.Runs = NewMemoryRunStore()
	}
	return &Pipeline{
		deps:  d,
		log:   logger.OrDefault(d.Logger).With("component", "analysis"),
		clock: time.Now,
	}
}

// Dispatch starts the pipeline for a persisted result. The result is taken by
// value so later edits to the caller's copy cannot race with the steps.
func (p *Pipeline) Dispatch(res calls.CallResult) {
	if res.ResultRecordID == "" {
		p.log.Error("dispatch without result id", "session_id", res.SessionID)
		return
	}
	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		p.run(res)
	}()
}

// Wait blocks until every dispatched step has finished. Used on shutdown and
// in tests.
func (p *Pipeline) Wait() { p.wg.Wait() }

// Run returns the bookkeeping record for a result.
func (p *Pipeline) Run(ctx context.Context, resultID string) (Run, error) {
	return p.deps.Runs.GetRun(ctx, resultID)
}

type stepFunc func(ctx context.Context) error

func (p *Pipeline) run(res calls.CallResult) {
	log := p.log.With("result_id", res.ResultRecordID, "operator_id", res.OperatorID)

	// Detached from any request: the operator has already moved on.
	base := context.Background()

	createCtx, cancel := context.WithTimeout(base, p.deps.StepTimeout)
	err := p.deps.Runs.CreateRun(createCtx, res.ResultRecordID, Steps(), p.clock().UTC())
	cancel()
	if errors.Is(err, ErrRunExists) {
		log.Info("analysis already dispatched; skipping")
		return
	}
	if err != nil {
		// Bookkeeping is lost but the enrichment itself still runs.
		log.Error("create analysis run failed", "err", err)
	}

	p.launch(base, log, res.ResultRecordID, StepQualityScoring, func(ctx context.Context) error {
		if p.deps.Scorer == nil {
			return ErrServiceNotConfigured
		}
		score, err := p.deps.Scorer.ScoreCall(ctx, res.ResultRecordID, res.OperatorID)
		if err != nil {
			return err
		}
		log.Debug("quality score received", "score", score.Score)
		return nil
	})

	p.launch(base, log, res.ResultRecordID, StepEngagementUpdate, func(ctx context.Context) error {
		if p.deps.Engagement == nil {
			return ErrServiceNotConfigured
		}
		return p.deps.Engagement.UpdateEngagement(ctx, res.TargetID, EngagementEventFor(res.Outcome))
	})

	if res.Outcome == calls.OutcomeDeclined && res.Notes != "" {
		p.launch(base, log, res.ResultRecordID, StepRejectionInsight, func(ctx context.Context) error {
			if p.deps.Insights == nil {
				return ErrServiceNotConfigured
			}
			return p.deps.Insights.RecordRejectionInsight(ctx, Insight{
				ProjectID:  res.ProjectID,
				TargetID:   res.TargetID,
				ResultID:   res.ResultRecordID,
				Category:   Categorize(res.Notes),
				Detail:     res.Notes,
				RecordedBy: res.OperatorID,
			})
		})
	} else {
		p.skip(base, log, res.ResultRecordID, StepRejectionInsight)
	}

	if res.ProjectID != "" {
		p.launch(base, log, res.ResultRecordID, StepPivotAlertCheck, func(ctx context.Context) error {
			if p.deps.Pivots == nil {
				return ErrServiceNotConfigured
			}
			return p.deps.Pivots.CheckPivotAlerts(ctx, res.ProjectID)
		})
	} else {
		p.skip(base, log, res.ResultRecordID, StepPivotAlertCheck)
	}
}

func (p *Pipeline) launch(base context.Context, log *slog.Logger, resultID string, step StepName, fn stepFunc) {
	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		start := p.clock()
		err := p.invoke(base, fn)
		elapsed := p.clock().Sub(start)

		status := StepSuccess
		if err != nil {
			status = StepFailed
			log.Warn("analysis step failed", "step", string(step), "err", err)
		} else {
			log.Debug("analysis step succeeded", "step", string(step))
		}
		p.deps.Metrics.ObserveStep(string(step), string(status), elapsed.Seconds())
		p.record(base, log, resultID, step, status, err)
	}()
}

func (p *Pipeline) invoke(base context.Context, fn stepFunc) (err error) {
	ctx, cancel := context.WithTimeout(base, p.deps.StepTimeout)
	defer cancel()
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("analysis: step panicked: %v", r)
		}
	}()
	return fn(ctx)
}

func (p *Pipeline) skip(base context.Context, log *slog.Logger, resultID string, step StepName) {
	p.deps.Metrics.ObserveStep(string(step), string(StepSkipped), 0)
	p.record(base, log, resultID, step, StepSkipped, nil)
}

func (p *Pipeline) record(base context.Context, log *slog.Logger, resultID string, step StepName, status StepStatus, stepErr error) {
	now := p.clock().UTC()
	sr := StepResult{Status: status, FinishedAt: &now}
	if stepErr != nil {
		sr.Error = stepErr.Error()
	}
	ctx, cancel := context.WithTimeout(base, p.deps.StepTimeout)
	defer cancel()
	if err := p.deps.Runs.RecordStep(ctx, resultID, step, sr); err != nil {
		log.Error("record analysis step failed", "step", string(step), "err", err)
	}
}
