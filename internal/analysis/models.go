package analysis

import (
	"strings"
	"time"

	"callcenter-platform/internal/calls"
)

type StepName string

const (
	StepQualityScoring   StepName = "quality_scoring"
	StepEngagementUpdate StepName = "engagement_update"
	StepRejectionInsight StepName = "rejection_insight"
	StepPivotAlertCheck  StepName = "pivot_alert_check"
)

// Steps lists every step in the order they are recorded.
func Steps() []StepName {
	return []StepName{StepQualityScoring, StepEngagementUpdate, StepRejectionInsight, StepPivotAlertCheck}
}

type StepStatus string

const (
	// StepPending marks a step that was launched but has not reported yet.
	StepPending StepStatus = "pending"
	StepSuccess StepStatus = "success"
	StepFailed  StepStatus = "failed"
	StepSkipped StepStatus = "skipped"
)

type StepResult struct {
	Status     StepStatus `json:"status"`
	Error      string     `json:"error,omitempty"`
	FinishedAt *time.Time `json:"finished_at,omitempty"`
}

// Run is the bookkeeping record of one pipeline execution for a saved call
// result. Each step entry is written independently.
type Run struct {
	ResultRecordID string                  `json:"result_id"`
	Steps          map[StepName]StepResult `json:"steps"`
	CreatedAt      time.Time               `json:"created_at"`
}

// Done reports whether no step is still pending.
func (r Run) Done() bool {
	for _, s := range r.Steps {
		if s.Status == StepPending {
			return false
		}
	}
	return true
}

type QualityScore struct {
	Score   float64 `json:"score"`
	Summary string  `json:"summary,omitempty"`
}

type EngagementEvent string

const (
	EngagementConnected   EngagementEvent = "connected"
	EngagementAppointment EngagementEvent = "appointment"
)

// EngagementEventFor maps a call outcome to the engagement event recorded
// against the target. Only a won appointment counts as more than a contact.
func EngagementEventFor(o calls.Outcome) EngagementEvent {
	if o == calls.OutcomeAppointmentWon {
		return EngagementAppointment
	}
	return EngagementConnected
}

type RejectionCategory string

const (
	RejectionBudget         RejectionCategory = "budget"
	RejectionTiming         RejectionCategory = "timing"
	RejectionExistingVendor RejectionCategory = "existing_vendor"
	RejectionNoNeed         RejectionCategory = "no_need"
	RejectionAuthority      RejectionCategory = "authority"
	RejectionOther          RejectionCategory = "other"
)

// Insight is a categorised rejection detail recorded for later aggregation.
type Insight struct {
	ProjectID  string            `json:"project_id"`
	TargetID   string            `json:"target_id"`
	ResultID   string            `json:"result_id"`
	Category   RejectionCategory `json:"category"`
	Detail     string            `json:"detail"`
	RecordedBy string            `json:"recorded_by"`
}

var rejectionKeywords = []struct {
	category RejectionCategory
	words    []string
}{
	{RejectionBudget, []string{"budget", "price", "expensive", "cost"}},
	{RejectionTiming, []string{"timing", "later", "next year", "busy", "not now"}},
	{RejectionExistingVendor, []string{"vendor", "competitor", "already use", "contract"}},
	{RejectionAuthority, []string{"decision maker", "manager", "boss", "approval"}},
	{RejectionNoNeed, []string{"no need", "not interested", "don't need", "unnecessary"}},
}

// Categorize assigns a rejection category from free-text notes. The first
// matching category wins; unmatched notes fall into RejectionOther.
func Categorize(notes string) RejectionCategory {
	n := strings.ToLower(notes)
	for _, kw := range rejectionKeywords {
		for _, w := range kw.words {
			if strings.Contains(n, w) {
				return kw.category
			}
		}
	}
	return RejectionOther
}
