package session

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"time"

	"callcenter-platform/internal/audit"
	"callcenter-platform/internal/calls"
	"callcenter-platform/internal/coaching"
	"callcenter-platform/internal/observability/metrics"
	"callcenter-platform/internal/telephony"
	"callcenter-platform/pkg/logger"

	"github.com/google/uuid"
)

// ResultStore is the persistence collaborator for confirmed results.
type ResultStore interface {
	SaveCallResult(ctx context.Context, r calls.CallResult) (string, error)
	UpdateCallResult(ctx context.Context, resultID string, u calls.ResultUpdate) (calls.CallResult, error)
}

// Dispatcher hands a saved result to post-call analysis without waiting.
type Dispatcher interface {
	Dispatch(r calls.CallResult)
}

// Lease guards against a second live call for the same operator on another
// API replica.
type Lease interface {
	Acquire(ctx context.Context, operatorID string) (bool, error)
	Release(ctx context.Context, operatorID string) error
}

// CoachingSource delivers coaching messages for an operator until ctx ends.
type CoachingSource interface {
	Subscribe(ctx context.Context, operatorID string) (<-chan coaching.Message, error)
}

// AuditSink receives internal session events. Failures are logged only.
type AuditSink interface {
	Append(ctx context.Context, e audit.Event) error
}

type Deps struct {
	Backends *telephony.Registry
	Results  ResultStore
	Pipeline Dispatcher

	// Optional.
	Lease    Lease
	Coaching CoachingSource
	Audit    AuditSink
	Metrics  *metrics.SessionMetrics
	Logger   *slog.Logger
}

type Options struct {
	TickInterval         time.Duration
	PollInterval         time.Duration
	LongCallWarning      time.Duration
	PollFailureThreshold int
	NoticeBuffer         int

	// SideEffectTimeout bounds best-effort work detached from the request:
	// hangup after force-end, lease release and audit writes.
	SideEffectTimeout time.Duration
}

func (o Options) withDefaults() Options {
	out := o
	if out.TickInterval <= 0 {
		out.TickInterval = time.Second
	}
	if out.PollInterval <= 0 {
		out.PollInterval = 2 * time.Second
	}
	if out.LongCallWarning <= 0 {
		out.LongCallWarning = 3 * time.Hour
	}
	if out.PollFailureThreshold <= 0 {
		out.PollFailureThreshold = 3
	}
	if out.NoticeBuffer <= 0 {
		out.NoticeBuffer = 64
	}
	if out.SideEffectTimeout <= 0 {
		out.SideEffectTimeout = 10 * time.Second
	}
	return out
}

// StartRequest describes the call the operator is about to place.
type StartRequest struct {
	TargetID       string            `json:"target_id"`
	TargetNumber   string            `json:"target_number"`
	ProjectID      string            `json:"project_id,omitempty"`
	BackendKind    calls.BackendKind `json:"backend_kind"`
	ProviderUserID string            `json:"provider_user_id,omitempty"`
}

// View is a consistent snapshot of the controller for clients.
type View struct {
	Session         calls.CallSession `json:"session"`
	Result          *calls.CallResult `json:"result,omitempty"`
	Coaching        []coaching.Entry  `json:"coaching"`
	UnreadCoaching  int               `json:"unread_coaching"`
	PollingDegraded bool              `json:"polling_degraded"`
}

// Controller owns one operator's call session. It is the only component that
// mutates the session.
//
// Rules:
//   - All state lives behind mu. Blocking I/O (originate, terminate, save,
//     update) runs without the lock and re-checks the generation afterwards.
//   - Every exit from Dialing or Active cancels that generation's context,
//     which stops the ticker, the poller and the coaching subscription
//     together, and bumps the generation so late callbacks are dropped.
//   - Notices are sent without blocking; a slow client loses notices.
type Controller struct {
	operatorID string
	deps       Deps
	opts       Options
	log        *slog.Logger
	clock      func() time.Time
	newID      func() string

	mu           sync.Mutex
	gen          uint64
	sess         calls.CallSession
	backend      telephony.Backend
	cancel       context.CancelFunc
	result       *calls.CallResult
	saving       bool
	pollFailures int
	degraded     bool
	inbox        *coaching.Inbox

	// leased is true while this generation holds the operator lease. A
	// fail-open start leaves it false so nothing is released on its behalf.
	leased bool

	notices chan Notice
	bg      sync.WaitGroup
}

func NewController(operatorID string, deps Deps, opts Options) *Controller {
	opts = opts.withDefaults()
	return &Controller{
		operatorID: operatorID,
		deps:       deps,
		opts:       opts,
		log:        logger.OrDefault(deps.Logger).With("component", "session", "operator_id", operatorID),
		clock:      time.Now,
		newID:      uuid.NewString,
		sess:       calls.CallSession{OperatorID: operatorID, State: calls.StateIdle},
		inbox:      coaching.NewInbox(),
		notices:    make(chan Notice, opts.NoticeBuffer),
	}
}

func (c *Controller) OperatorID() string { return c.operatorID }

// Notices streams advisory events for the operator's client.
func (c *Controller) Notices() <-chan Notice { return c.notices }

func (c *Controller) Snapshot() View {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.viewLocked()
}

func (c *Controller) viewLocked() View {
	v := View{
		Session:         c.sess,
		Coaching:        c.inbox.Entries(),
		UnreadCoaching:  c.inbox.UnreadCount(),
		PollingDegraded: c.degraded,
	}
	if c.sess.StartedAt != nil {
		t := *c.sess.StartedAt
		v.Session.StartedAt = &t
	}
	if c.result != nil {
		r := *c.result
		v.Result = &r
	}
	return v
}

// Start places a new call. It is accepted from Idle or Saved; the previous
// session's duration, result and coaching view are cleared.
func (c *Controller) Start(ctx context.Context, req StartRequest) (calls.CallSession, error) {
	req.TargetID = strings.TrimSpace(req.TargetID)
	if req.TargetID == "" || !req.BackendKind.Valid() {
		return calls.CallSession{}, ErrInvalidRequest
	}
	backend, err := c.deps.Backends.Get(req.BackendKind)
	if err != nil {
		return calls.CallSession{}, err
	}

	if !c.canStart() {
		return calls.CallSession{}, ErrSessionLive
	}
	leased := false
	if c.deps.Lease != nil {
		ok, err := c.deps.Lease.Acquire(ctx, c.operatorID)
		switch {
		case err != nil:
			c.log.Warn("operator lease unavailable; continuing", "err", err)
		case !ok:
			return calls.CallSession{}, ErrOperatorBusy
		default:
			leased = true
		}
	}

	c.mu.Lock()
	if c.sess.State != calls.StateIdle && c.sess.State != calls.StateSaved {
		c.mu.Unlock()
		if leased {
			c.releaseLease()
		}
		return calls.CallSession{}, ErrSessionLive
	}
	c.gen++
	gen := c.gen
	genCtx, cancel := context.WithCancel(context.Background())
	c.cancel = cancel
	c.backend = backend
	c.leased = leased
	c.result = nil
	c.pollFailures = 0
	c.degraded = false
	c.inbox = coaching.NewInbox()
	c.sess = calls.CallSession{
		SessionID:   c.newID(),
		OperatorID:  c.operatorID,
		TargetID:    req.TargetID,
		ProjectID:   req.ProjectID,
		BackendKind: backend.Kind(),
		State:       calls.StateDialing,
		Generation:  gen,
	}
	sessionID := c.sess.SessionID
	c.mu.Unlock()
	c.deps.Metrics.ObserveTransition(string(backend.Kind()), string(calls.StateDialing))

	log := c.log.With("session_id", sessionID)

	// Originate observes both the request and a force-end.
	octx, ocancel := context.WithCancel(ctx)
	stop := context.AfterFunc(genCtx, ocancel)
	ref, oerr := backend.Originate(octx, telephony.OriginateRequest{
		TargetNumber:   req.TargetNumber,
		ProviderUserID: req.ProviderUserID,
	})
	stop()
	ocancel()

	c.mu.Lock()
	if c.gen != gen || c.sess.State != calls.StateDialing {
		c.mu.Unlock()
		if oerr == nil && ref != "" {
			// The provider placed a call nobody is tracking any more.
			c.goTerminate(backend, ref, log)
		}
		return calls.CallSession{}, ErrSuperseded
	}
	if oerr != nil {
		c.exitLiveLocked()
		c.sess = calls.CallSession{OperatorID: c.operatorID, State: calls.StateIdle, Generation: c.gen}
		held := c.takeLeaseLocked()
		c.mu.Unlock()
		log.Warn("originate failed", "backend", backend.Kind(), "err", oerr)
		c.deps.Metrics.ObserveTransition(string(backend.Kind()), string(calls.StateIdle))
		if held {
			c.releaseLease()
		}
		return calls.CallSession{}, oerr
	}

	now := c.clock().UTC()
	c.sess.State = calls.StateActive
	c.sess.StartedAt = &now
	c.sess.ProviderCallRef = ref
	c.startBackgroundLocked(genCtx, gen, backend, ref)
	out := c.viewLocked().Session
	c.mu.Unlock()

	log.Info("call active", "backend", backend.Kind(), "provider_call_ref", ref)
	c.deps.Metrics.ObserveTransition(string(backend.Kind()), string(calls.StateActive))
	return out, nil
}

func (c *Controller) canStart() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sess.State == calls.StateIdle || c.sess.State == calls.StateSaved
}

// exitLiveLocked stops every background activity of the current generation.
func (c *Controller) exitLiveLocked() {
	if c.cancel != nil {
		c.cancel()
		c.cancel = nil
	}
	c.gen++
	c.sess.Generation = c.gen
}

func (c *Controller) startBackgroundLocked(ctx context.Context, gen uint64, backend telephony.Backend, ref string) {
	c.bg.Add(1)
	go func() {
		defer c.bg.Done()
		c.runTicker(ctx, gen)
	}()

	// Only provider-backed calls hand out a ref, so only they are polled.
	if ref != "" {
		c.bg.Add(1)
		go func() {
			defer c.bg.Done()
			c.runPoller(ctx, gen, backend, ref)
		}()
	}

	if c.deps.Coaching != nil {
		c.bg.Add(1)
		go func() {
			defer c.bg.Done()
			c.runCoaching(ctx, gen)
		}()
	}
}

func (c *Controller) runTicker(ctx context.Context, gen uint64) {
	t := time.NewTicker(c.opts.TickInterval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			if !c.tick(gen) {
				return
			}
		}
	}
}

// tick advances the call timer by one second. It reports false once the
// generation is stale so the ticker can exit.
func (c *Controller) tick(gen uint64) bool {
	c.mu.Lock()
	if c.gen != gen || c.sess.State != calls.StateActive {
		c.mu.Unlock()
		return false
	}
	c.sess.ElapsedSeconds++
	warn := false
	if !c.sess.WarningEmitted && c.sess.ElapsedSeconds >= int(c.opts.LongCallWarning/time.Second) {
		c.sess.WarningEmitted = true
		warn = true
		c.emitLocked(Notice{Kind: NoticeLongCallWarning, Message: "This call has been running for a long time."})
	}
	sessionID := c.sess.SessionID
	elapsed := c.sess.ElapsedSeconds
	c.mu.Unlock()

	if warn {
		c.log.Warn("long call", "session_id", sessionID, "elapsed_seconds", elapsed)
		c.recordAudit(audit.Event{Type: audit.EventLongCallWarning, SessionID: sessionID, Message: "long call warning"})
	}
	return true
}

func (c *Controller) runPoller(ctx context.Context, gen uint64, backend telephony.Backend, ref string) {
	t := time.NewTicker(c.opts.PollInterval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			status, err := backend.PollStatus(ctx, ref)
			if ctx.Err() != nil {
				return
			}
			if !c.applyPoll(gen, status, err) {
				return
			}
		}
	}
}

// applyPoll folds one poll result into the session. Errors are counted and
// never end the call. It reports false once polling should stop.
func (c *Controller) applyPoll(gen uint64, status calls.ProviderStatus, err error) bool {
	c.mu.Lock()
	if c.gen != gen || c.sess.State != calls.StateActive {
		c.mu.Unlock()
		return false
	}
	sessionID := c.sess.SessionID
	kind := string(c.sess.BackendKind)

	if err != nil {
		c.pollFailures++
		degradedNow := false
		if c.pollFailures == c.opts.PollFailureThreshold {
			c.degraded = true
			degradedNow = true
			c.emitLocked(Notice{Kind: NoticePollingDegraded, Message: "Call status is not updating. Use force end if the call is stuck."})
		}
		failures := c.pollFailures
		c.mu.Unlock()

		c.deps.Metrics.ObservePollFailure(kind)
		c.log.Debug("status poll failed", "session_id", sessionID, "failures", failures, "err", err)
		if degradedNow {
			c.log.Warn("status polling degraded", "session_id", sessionID, "failures", failures)
			c.recordAudit(audit.Event{Type: audit.EventPollingDegraded, SessionID: sessionID, Message: err.Error()})
		}
		return true
	}

	c.pollFailures = 0
	if c.degraded {
		c.degraded = false
		c.emitLocked(Notice{Kind: NoticePollingRecovered})
	}
	return c.applyStatusLocked(status, sessionID, kind, "poll")
}

// applyStatusLocked ends the call when status is terminal and unlocks c.mu.
// It reports false once the call has ended.
func (c *Controller) applyStatusLocked(status calls.ProviderStatus, sessionID, kind, source string) bool {
	if !status.Ended() {
		c.mu.Unlock()
		return true
	}
	c.finishLocked()
	c.emitLocked(Notice{Kind: NoticeProviderEnded, Message: "The other side ended the call."})
	c.mu.Unlock()

	c.log.Info("provider reported call ended", "session_id", sessionID, "status", status, "source", source)
	c.deps.Metrics.ObserveTransition(kind, string(calls.StateResultPending))
	return false
}

// ApplyProviderStatus applies a pushed status for the live call with the
// given ref. It reports false when no live call matches. Pushed statuses
// leave the poll failure count alone.
func (c *Controller) ApplyProviderStatus(ctx context.Context, ref string, status calls.ProviderStatus) bool {
	c.mu.Lock()
	if ref == "" || c.sess.State != calls.StateActive || c.sess.ProviderCallRef != ref {
		c.mu.Unlock()
		return false
	}
	c.applyStatusLocked(status, c.sess.SessionID, string(c.sess.BackendKind), "webhook")
	return true
}

// finishLocked moves Active to ResultPending and freezes the timer.
func (c *Controller) finishLocked() {
	c.exitLiveLocked()
	c.sess.State = calls.StateResultPending
}

// EndCall ends the call at the backend and moves to ResultPending. When the
// provider already ended the call the current session is returned unchanged.
func (c *Controller) EndCall(ctx context.Context) (calls.CallSession, error) {
	c.mu.Lock()
	switch c.sess.State {
	case calls.StateResultPending:
		out := c.viewLocked().Session
		c.mu.Unlock()
		return out, nil
	case calls.StateActive:
	default:
		c.mu.Unlock()
		return calls.CallSession{}, ErrInvalidTransition
	}
	gen := c.gen
	backend := c.backend
	ref := c.sess.ProviderCallRef
	sessionID := c.sess.SessionID
	c.mu.Unlock()

	if err := backend.Terminate(ctx, ref); err != nil {
		c.log.Warn("terminate failed", "session_id", sessionID, "err", err)
		return calls.CallSession{}, errors.Join(ErrTerminateFailed, err)
	}

	c.mu.Lock()
	if c.gen == gen && c.sess.State == calls.StateActive {
		c.finishLocked()
		c.deps.Metrics.ObserveTransition(string(c.sess.BackendKind), string(calls.StateResultPending))
	}
	if c.sess.State != calls.StateResultPending || c.sess.SessionID != sessionID {
		// Force-ended while the hangup was in flight.
		c.mu.Unlock()
		return calls.CallSession{}, ErrInvalidTransition
	}
	out := c.viewLocked().Session
	c.mu.Unlock()
	return out, nil
}

// ForceEnd abandons the call without a result. It never waits on the
// provider: the hangup is attempted in the background and its outcome
// ignored. It is a no-op when there is no live call.
func (c *Controller) ForceEnd(ctx context.Context) (calls.CallSession, error) {
	c.mu.Lock()
	switch c.sess.State {
	case calls.StateIdle, calls.StateSaved:
		out := c.viewLocked().Session
		c.mu.Unlock()
		return out, nil
	case calls.StateDialing, calls.StateActive:
	default:
		c.mu.Unlock()
		return calls.CallSession{}, ErrInvalidTransition
	}
	from := c.sess.State
	prev := c.sess
	backend := c.backend

	c.exitLiveLocked()
	c.sess = calls.CallSession{OperatorID: c.operatorID, State: calls.StateIdle, Generation: c.gen}
	c.backend = nil
	c.result = nil
	c.pollFailures = 0
	c.degraded = false
	c.inbox = coaching.NewInbox()
	c.emitLocked(Notice{Kind: NoticeForceEnded, SessionID: prev.SessionID, ElapsedSeconds: prev.ElapsedSeconds})
	out := c.sess
	held := c.takeLeaseLocked()
	c.mu.Unlock()

	log := c.log.With("session_id", prev.SessionID)
	log.Info("call force-ended", "from", from, "elapsed_seconds", prev.ElapsedSeconds)
	c.deps.Metrics.ObserveForceEnd(string(prev.BackendKind), string(from))
	c.deps.Metrics.ObserveTransition(string(prev.BackendKind), string(calls.StateIdle))

	if backend != nil {
		c.goTerminate(backend, prev.ProviderCallRef, log)
	}
	if held {
		c.releaseLease()
	}
	c.recordAudit(audit.Event{
		Type:      audit.EventCallForceEnded,
		SessionID: prev.SessionID,
		Message:   "force-ended from " + string(from),
	})
	return out, nil
}

// Confirm persists the result for a call awaiting one. On failure the
// session stays in ResultPending and a *SaveError is returned.
func (c *Controller) Confirm(ctx context.Context, outcome calls.Outcome, notes string) (calls.CallResult, error) {
	if !outcome.Valid() {
		return calls.CallResult{}, ErrInvalidOutcome
	}

	c.mu.Lock()
	if c.sess.State != calls.StateResultPending {
		c.mu.Unlock()
		return calls.CallResult{}, ErrInvalidTransition
	}
	if c.saving {
		c.mu.Unlock()
		return calls.CallResult{}, ErrSaveInProgress
	}
	c.saving = true
	res := calls.CallResult{
		SessionID:       c.sess.SessionID,
		TargetID:        c.sess.TargetID,
		OperatorID:      c.operatorID,
		ProjectID:       c.sess.ProjectID,
		Outcome:         outcome,
		DurationSeconds: c.sess.ElapsedSeconds,
		Notes:           strings.TrimSpace(notes),
		CreatedAt:       c.clock().UTC(),
	}
	kind := string(c.sess.BackendKind)
	c.mu.Unlock()

	id, err := c.deps.Results.SaveCallResult(ctx, res)

	c.mu.Lock()
	c.saving = false
	if err != nil {
		c.mu.Unlock()
		c.log.Error("save call result failed", "session_id", res.SessionID, "err", err)
		return calls.CallResult{}, &SaveError{Err: err, Retryable: true}
	}
	res.ResultRecordID = id
	saved := res
	c.result = &saved
	c.sess.State = calls.StateSaved
	held := c.takeLeaseLocked()
	c.mu.Unlock()

	c.log.Info("call result saved", "session_id", res.SessionID, "result_id", id, "outcome", outcome, "duration_seconds", res.DurationSeconds)
	c.deps.Metrics.ObserveTransition(kind, string(calls.StateSaved))
	if c.deps.Pipeline != nil {
		c.deps.Pipeline.Dispatch(res)
	}
	if held {
		c.releaseLease()
	}
	return res, nil
}

// BeginEdit opens the saved result for correction.
func (c *Controller) BeginEdit() (calls.CallResult, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.sess.State != calls.StateSaved || c.result == nil {
		return calls.CallResult{}, ErrInvalidTransition
	}
	c.sess.State = calls.StateEditing
	return *c.result, nil
}

// ConfirmEdit updates the saved result in place. Analysis is not re-run.
func (c *Controller) ConfirmEdit(ctx context.Context, u calls.ResultUpdate) (calls.CallResult, error) {
	if !u.Outcome.Valid() {
		return calls.CallResult{}, ErrInvalidOutcome
	}
	u.Notes = strings.TrimSpace(u.Notes)

	c.mu.Lock()
	if c.sess.State != calls.StateEditing || c.result == nil {
		c.mu.Unlock()
		return calls.CallResult{}, ErrInvalidTransition
	}
	if c.saving {
		c.mu.Unlock()
		return calls.CallResult{}, ErrSaveInProgress
	}
	c.saving = true
	resultID := c.result.ResultRecordID
	sessionID := c.sess.SessionID
	c.mu.Unlock()

	updated, err := c.deps.Results.UpdateCallResult(ctx, resultID, u)

	c.mu.Lock()
	c.saving = false
	if err != nil {
		c.mu.Unlock()
		c.log.Error("update call result failed", "session_id", sessionID, "result_id", resultID, "err", err)
		return calls.CallResult{}, &EditError{Err: err, Retryable: true}
	}
	c.result = &updated
	c.sess.State = calls.StateSaved
	c.mu.Unlock()

	c.recordAudit(audit.Event{
		Type:      audit.EventResultEdited,
		SessionID: sessionID,
		ResultID:  resultID,
		Message:   "outcome set to " + string(u.Outcome),
	})
	return updated, nil
}

// CancelEdit leaves the saved result untouched.
func (c *Controller) CancelEdit() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.sess.State != calls.StateEditing {
		return ErrInvalidTransition
	}
	if c.saving {
		return ErrSaveInProgress
	}
	c.sess.State = calls.StateSaved
	return nil
}

func (c *Controller) runCoaching(ctx context.Context, gen uint64) {
	ch, err := c.deps.Coaching.Subscribe(ctx, c.operatorID)
	if err != nil {
		if ctx.Err() == nil {
			c.log.Warn("coaching subscription failed", "err", err)
		}
		return
	}
	for m := range ch {
		c.deliverCoaching(gen, m)
	}
}

func (c *Controller) deliverCoaching(gen uint64, m coaching.Message) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.gen != gen || c.sess.State != calls.StateActive {
		return
	}
	if m.SessionScope != "" && m.SessionScope != c.sess.SessionID {
		c.log.Debug("coaching message for another session dropped", "message_id", m.MessageID, "session_scope", m.SessionScope)
		return
	}
	if !c.inbox.Deliver(m) {
		return
	}
	msg := m
	c.emitLocked(Notice{Kind: NoticeCoachingMessage, Coaching: &msg, Cue: true})
	c.deps.Metrics.ObserveCoaching("delivered")
}

// LiveSessionID returns the id of the call in Dialing or Active, if any.
func (c *Controller) LiveSessionID() (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	switch c.sess.State {
	case calls.StateDialing, calls.StateActive:
		return c.sess.SessionID, true
	default:
		return "", false
	}
}

// MarkCoachingRead clears the unread flag on a delivered message.
func (c *Controller) MarkCoachingRead(messageID string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.inbox.MarkRead(messageID)
}

func (c *Controller) emitLocked(n Notice) {
	if n.SessionID == "" {
		n.SessionID = c.sess.SessionID
	}
	if n.ElapsedSeconds == 0 {
		n.ElapsedSeconds = c.sess.ElapsedSeconds
	}
	n.At = c.clock().UTC()
	select {
	case c.notices <- n:
	default:
		c.log.Debug("notice dropped", "kind", n.Kind)
	}
}

func (c *Controller) goTerminate(backend telephony.Backend, ref string, log *slog.Logger) {
	c.bg.Add(1)
	go func() {
		defer c.bg.Done()
		ctx, cancel := context.WithTimeout(context.Background(), c.opts.SideEffectTimeout)
		defer cancel()
		if err := backend.Terminate(ctx, ref); err != nil {
			log.Debug("best-effort terminate failed", "provider_call_ref", ref, "err", err)
		}
	}()
}

// takeLeaseLocked reports whether the current generation holds the lease and
// clears the flag so it is released at most once.
func (c *Controller) takeLeaseLocked() bool {
	held := c.leased
	c.leased = false
	return held
}

func (c *Controller) releaseLease() {
	if c.deps.Lease == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), c.opts.SideEffectTimeout)
	defer cancel()
	if err := c.deps.Lease.Release(ctx, c.operatorID); err != nil {
		c.log.Warn("release operator lease failed", "err", err)
	}
}

func (c *Controller) recordAudit(e audit.Event) {
	if c.deps.Audit == nil {
		return
	}
	e.OperatorID = c.operatorID
	c.bg.Add(1)
	go func() {
		defer c.bg.Done()
		ctx, cancel := context.WithTimeout(context.Background(), c.opts.SideEffectTimeout)
		defer cancel()
		if err := c.deps.Audit.Append(ctx, e); err != nil {
			c.log.Warn("audit append failed", "type", e.Type, "err", err)
		}
	}()
}

// Close stops background work for the current call and waits for it.
// The session state is left as is.
func (c *Controller) Close() {
	c.mu.Lock()
	if c.cancel != nil {
		c.cancel()
		c.cancel = nil
	}
	c.mu.Unlock()
	c.bg.Wait()
}
