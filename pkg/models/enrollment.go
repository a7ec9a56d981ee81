package models

import "time"

// EnrollmentStatus is the lifecycle state of an enrollment. The terminal
// states (completed, failed, exited) are immutable once reached.
type EnrollmentStatus string

const (
	EnrollmentActive    EnrollmentStatus = "active"
	EnrollmentCompleted EnrollmentStatus = "completed"
	EnrollmentFailed    EnrollmentStatus = "failed"
	EnrollmentExited    EnrollmentStatus = "exited"
)

// EnrollmentKind distinguishes a contact's progress through a workflow
// from a one-shot automation run. Both share the same step-chain state
// machine; the kind only decides which definition the steps come from.
type EnrollmentKind string

const (
	KindWorkflow   EnrollmentKind = "workflow"
	KindAutomation EnrollmentKind = "automation"
)

// Enrollment tracks a contact's progress through a step chain as a durable
// state machine. For workflows, (WorkflowID, ContactID) is unique while
// run_once_per_contact is set. NextRunAt nil means "due now".
type Enrollment struct {
	ID               string           `json:"id"`
	Kind             EnrollmentKind   `json:"kind"`
	WorkflowID       string           `json:"workflow_id,omitempty"`
	AutomationID     string           `json:"automation_id,omitempty"`
	ContactID        string           `json:"contact_id"`
	CurrentStepIndex int              `json:"current_step_index"`
	Status           EnrollmentStatus `json:"status"`
	NextRunAt        *time.Time       `json:"next_run_at,omitempty"`
	Attempts         int              `json:"attempts"`
	TriggerData      map[string]any   `json:"trigger_data,omitempty"`
	LastStepAt       *time.Time       `json:"last_step_at,omitempty"`
	Error            string           `json:"error,omitempty"`
	CreatedAt        time.Time        `json:"created_at"`
	UpdatedAt        time.Time        `json:"updated_at"`
	CompletedAt      *time.Time       `json:"completed_at,omitempty"`
}

// DefinitionID returns the id of the definition this enrollment runs.
func (e *Enrollment) DefinitionID() string {
	if e.Kind == KindAutomation {
		return e.AutomationID
	}

	return e.WorkflowID
}

// Terminal reports whether the enrollment reached a state it can never
// leave.
func (e *Enrollment) Terminal() bool {
	switch e.Status {
	case EnrollmentCompleted, EnrollmentFailed, EnrollmentExited:
		return true
	case EnrollmentActive:
		return false
	}

	return false
}

// Due reports whether the enrollment has work ready at the given time.
func (e *Enrollment) Due(now time.Time) bool {
	if e.Status != EnrollmentActive {
		return false
	}

	return e.NextRunAt == nil || !e.NextRunAt.After(now)
}
