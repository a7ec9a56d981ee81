// Package models defines the core domain models for the automation engine.
package models

import "time"

// ConditionOperator is the comparison applied between an event payload
// field and a condition's expected value.
type ConditionOperator string

const (
	OperatorEquals      ConditionOperator = "equals"
	OperatorNotEquals   ConditionOperator = "not_equals"
	OperatorContains    ConditionOperator = "contains"
	OperatorGreaterThan ConditionOperator = "greater_than"
	OperatorLessThan    ConditionOperator = "less_than"
)

// ConditionLogic combines a condition with the accumulated result of the
// conditions before it.
type ConditionLogic string

const (
	LogicAnd ConditionLogic = "AND"
	LogicOr  ConditionLogic = "OR"
)

// Condition is a single predicate over an event payload. Field is a dotted
// path into the payload (e.g. "contact.source").
type Condition struct {
	Field    string            `json:"field"    validate:"required"`
	Operator ConditionOperator `json:"operator" validate:"required,oneof=equals not_equals contains greater_than less_than"`
	Value    any               `json:"value"`
	Logic    ConditionLogic    `json:"logic,omitempty" validate:"omitempty,oneof=AND OR"`
}

// ActionStep is one step of an action chain. Type identifies the channel
// sender that executes it; Delay is how long the step waits after the
// previous step completed before it may run.
type ActionStep struct {
	Type   string         `json:"type" validate:"required"`
	Config map[string]any `json:"config"`
	Delay  time.Duration  `json:"delay,omitempty"`
}

// Trigger is the event-type predicate that makes an automation eligible
// to run. Config carries trigger-type specific settings (opaque to the
// matcher, validated at save time).
type Trigger struct {
	Type   string         `json:"type" validate:"required"`
	Config map[string]any `json:"config,omitempty"`
}

// Automation is a one-shot rule: when an event of Trigger.Type arrives and
// the condition chain passes, the action chain executes once for the
// event's contact.
type Automation struct {
	ID         string       `json:"id"`
	Name       string       `json:"name" validate:"required,min=3"`
	Trigger    Trigger      `json:"trigger"`
	Conditions []Condition  `json:"conditions"`
	Actions    []ActionStep `json:"actions" validate:"required,min=1,dive"`
	Enabled    bool         `json:"enabled"`
	RunCount   int64        `json:"run_count"`
	LastRunAt  *time.Time   `json:"last_run_at,omitempty"`
	CreatedAt  time.Time    `json:"created_at"`
	UpdatedAt  time.Time    `json:"updated_at"`
}

// WorkflowDefinition is an automation specialized for per-contact,
// multi-step, stateful execution. Progress through its steps is tracked
// by an Enrollment.
type WorkflowDefinition struct {
	ID                 string       `json:"id"`
	Name               string       `json:"name" validate:"required,min=3"`
	TriggerType        string       `json:"trigger_type" validate:"required"`
	Conditions         []Condition  `json:"conditions"`
	Steps              []ActionStep `json:"steps" validate:"required,min=1,dive"`
	RunOncePerContact  bool         `json:"run_once_per_contact"`
	Enabled            bool         `json:"enabled"`
	EnrollmentCount    int64        `json:"enrollment_count"`
	LastEnrolledAt     *time.Time   `json:"last_enrolled_at,omitempty"`
	CreatedAt          time.Time    `json:"created_at"`
	UpdatedAt          time.Time    `json:"updated_at"`
}
