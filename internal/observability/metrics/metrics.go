package metrics

import "github.com/prometheus/client_golang/prometheus"

// SessionMetrics exposes counters for the call session state machine and the
// coaching channel.
type SessionMetrics struct {
	transitionsTotal *prometheus.CounterVec
	forceEndsTotal   *prometheus.CounterVec
	pollFailures     *prometheus.CounterVec
	coachingTotal    *prometheus.CounterVec
}

func NewSessionMetrics(reg prometheus.Registerer) *SessionMetrics {
	m := &SessionMetrics{
		transitionsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "callcenter",
			Subsystem: "session",
			Name:      "transitions_total",
			Help:      "Call session state transitions",
		}, []string{"backend", "to"}),
		forceEndsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "callcenter",
			Subsystem: "session",
			Name:      "force_ends_total",
			Help:      "Operator force-ends by the state they interrupted",
		}, []string{"backend", "from"}),
		pollFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "callcenter",
			Subsystem: "session",
			Name:      "poll_failures_total",
			Help:      "Failed provider status polls",
		}, []string{"backend"}),
		coachingTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "callcenter",
			Subsystem: "coaching",
			Name:      "deliveries_total",
			Help:      "Coaching messages sent and delivered",
		}, []string{"stage"}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.transitionsTotal, m.forceEndsTotal, m.pollFailures, m.coachingTotal)
	return m
}

func (m *SessionMetrics) ObserveTransition(backend, to string) {
	if m == nil {
		return
	}
	m.transitionsTotal.WithLabelValues(backend, to).Inc()
}

func (m *SessionMetrics) ObserveForceEnd(backend, from string) {
	if m == nil {
		return
	}
	m.forceEndsTotal.WithLabelValues(backend, from).Inc()
}

func (m *SessionMetrics) ObservePollFailure(backend string) {
	if m == nil {
		return
	}
	m.pollFailures.WithLabelValues(backend).Inc()
}

// ObserveCoaching counts a coaching message at stage "sent" or "delivered".
func (m *SessionMetrics) ObserveCoaching(stage string) {
	if m == nil {
		return
	}
	m.coachingTotal.WithLabelValues(stage).Inc()
}

// AnalysisMetrics exposes per-step outcomes and latency of the post-call
// analysis pipeline.
type AnalysisMetrics struct {
	stepsTotal  *prometheus.CounterVec
	stepLatency *prometheus.HistogramVec
}

func NewAnalysisMetrics(reg prometheus.Registerer) *AnalysisMetrics {
	m := &AnalysisMetrics{
		stepsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "callcenter",
			Subsystem: "analysis",
			Name:      "steps_total",
			Help:      "Post-call analysis steps by outcome",
		}, []string{"step", "status"}),
		stepLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "callcenter",
			Subsystem: "analysis",
			Name:      "step_latency_seconds",
			Help:      "Latency of post-call analysis steps",
			Buckets:   prometheus.DefBuckets,
		}, []string{"step"}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.stepsTotal, m.stepLatency)
	return m
}

func (m *AnalysisMetrics) ObserveStep(step, status string, seconds float64) {
	if m == nil {
		return
	}
	m.stepsTotal.WithLabelValues(step, status).Inc()
	m.stepLatency.WithLabelValues(step).Observe(seconds)
}
