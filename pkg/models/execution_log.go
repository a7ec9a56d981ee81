package models

import "time"

// ExecutionStatus is the recorded outcome of a single step attempt.
type ExecutionStatus string

const (
	ExecutionSuccess ExecutionStatus = "success"
	ExecutionFailed  ExecutionStatus = "failed"
	ExecutionSkipped ExecutionStatus = "skipped"
)

// ExecutionLog is one append-only record of a step attempt and its
// outcome. The engine never edits or deletes records; retention is an
// external concern.
type ExecutionLog struct {
	ID           string          `json:"id"`
	AutomationID string          `json:"automation_id,omitempty"`
	WorkflowID   string          `json:"workflow_id,omitempty"`
	EnrollmentID string          `json:"enrollment_id,omitempty"`
	ContactID    string          `json:"contact_id,omitempty"`
	StepIndex    int             `json:"step_index"`
	StepType     string          `json:"step_type,omitempty"`
	Status       ExecutionStatus `json:"status"`
	TriggerData  map[string]any  `json:"trigger_data,omitempty"`
	Error        string          `json:"error,omitempty"`
	ExecutedAt   time.Time       `json:"executed_at"`
}
