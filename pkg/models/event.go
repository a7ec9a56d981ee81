package models

import "time"

// Event is an inbound domain event pushed to the engine by collaborators
// (CRM, form submission handler, campaign sender).
type Event struct {
	Type       string         `json:"type" validate:"required"`
	ContactID  string         `json:"contact_id"`
	Payload    map[string]any `json:"payload,omitempty"`
	OccurredAt time.Time      `json:"occurred_at"`
}

// CandidateMatch pairs a matched automation or workflow with the event
// that triggered it. Exactly one of Automation and Workflow is set.
type CandidateMatch struct {
	Automation *Automation
	Workflow   *WorkflowDefinition
	Event      Event
}
