package reporting

import (
	"time"

	"callcenter-platform/internal/calls"
)

type TimeRange struct {
	From time.Time `json:"from"`
	To   time.Time `json:"to"`
}

// ProjectSummaryRequest requests aggregated outcome metrics for one project.
type ProjectSummaryRequest struct {
	ProjectID string    `json:"project_id"`
	Range     TimeRange `json:"range"`
}

// ProjectSummary is a read model over saved CallResults. Edited results count
// with their current outcome.
type ProjectSummary struct {
	ProjectID string    `json:"project_id"`
	Range     TimeRange `json:"range"`

	TotalCalls int                   `json:"total_calls"`
	ByOutcome  map[calls.Outcome]int `json:"by_outcome"`

	TotalDurationSeconds   int `json:"total_duration_seconds"`
	AverageDurationSeconds int `json:"average_duration_seconds"`

	// Connected counts calls where a decision-maker was reached, whatever
	// they said.
	Connected    int `json:"connected"`
	Appointments int `json:"appointments"`

	ConnectionRate  float64 `json:"connection_rate"`
	AppointmentRate float64 `json:"appointment_rate"`
}

// reached reports whether an outcome means someone picked up and talked.
func reached(o calls.Outcome) bool {
	switch o {
	case calls.OutcomeConnected, calls.OutcomeAppointmentWon, calls.OutcomeDeclined, calls.OutcomeDoNotCall:
		return true
	}
	return false
}
