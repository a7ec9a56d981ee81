// Package web provides HTTP request and response types for the automation API.
package web

import (
	"time"

	"github.com/cadencehq/cadence/pkg/models"
)

// ErrorResponse represents a standardized API error response.
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

// ConditionRequest is one entry of a definition's condition chain.
type ConditionRequest struct {
	Field    string `json:"field"    validate:"required"`
	Operator string `json:"operator" validate:"required,oneof=equals not_equals contains greater_than less_than"`
	Value    any    `json:"value"`
	Logic    string `json:"logic"    validate:"omitempty,oneof=AND OR"`
}

// ActionStepRequest is one step of a definition's action chain.
type ActionStepRequest struct {
	Type         string         `json:"type"          validate:"required"`
	Config       map[string]any `json:"config"`
	DelayMinutes int            `json:"delay_minutes" validate:"min=0"`
}

// CreateAutomationRequest represents the request body for creating a new automation.
type CreateAutomationRequest struct {
	Name          string              `json:"name"           validate:"required,min=3"`
	TriggerType   string              `json:"trigger_type"   validate:"required"`
	TriggerConfig map[string]any      `json:"trigger_config"`
	Conditions    []ConditionRequest  `json:"conditions"     validate:"dive"`
	Actions       []ActionStepRequest `json:"actions"        validate:"dive"`
	Enabled       bool                `json:"enabled"`
}

// UpdateAutomationRequest represents the request body for updating an
// existing automation. The definition is replaced wholesale; run
// statistics are preserved server-side.
type UpdateAutomationRequest struct {
	Name          string              `json:"name"           validate:"required,min=3"`
	TriggerType   string              `json:"trigger_type"   validate:"required"`
	TriggerConfig map[string]any      `json:"trigger_config"`
	Conditions    []ConditionRequest  `json:"conditions"     validate:"dive"`
	Actions       []ActionStepRequest `json:"actions"        validate:"dive"`
	Enabled       bool                `json:"enabled"`
}

// CreateWorkflowRequest represents the request body for creating a new workflow.
type CreateWorkflowRequest struct {
	Name              string              `json:"name"                 validate:"required,min=3"`
	TriggerType       string              `json:"trigger_type"         validate:"required"`
	Conditions        []ConditionRequest  `json:"conditions"           validate:"dive"`
	Steps             []ActionStepRequest `json:"steps"                validate:"dive"`
	RunOncePerContact bool                `json:"run_once_per_contact"`
	Enabled           bool                `json:"enabled"`
}

// UpdateWorkflowRequest represents the request body for updating an existing workflow.
type UpdateWorkflowRequest struct {
	Name              string              `json:"name"                 validate:"required,min=3"`
	TriggerType       string              `json:"trigger_type"         validate:"required"`
	Conditions        []ConditionRequest  `json:"conditions"           validate:"dive"`
	Steps             []ActionStepRequest `json:"steps"                validate:"dive"`
	RunOncePerContact bool                `json:"run_once_per_contact"`
	Enabled           bool                `json:"enabled"`
}

// IngestEventRequest represents an inbound event posted to the ingest endpoint.
type IngestEventRequest struct {
	Type      string         `json:"type"       validate:"required"`
	ContactID string         `json:"contact_id" validate:"required"`
	Payload   map[string]any `json:"payload"`
}

func conditionsFromRequest(requests []ConditionRequest) []models.Condition {
	conditions := make([]models.Condition, 0, len(requests))
	for _, req := range requests {
		conditions = append(conditions, models.Condition{
			Field:    req.Field,
			Operator: models.ConditionOperator(req.Operator),
			Value:    req.Value,
			Logic:    models.ConditionLogic(req.Logic),
		})
	}

	return conditions
}

func stepsFromRequest(requests []ActionStepRequest) []models.ActionStep {
	steps := make([]models.ActionStep, 0, len(requests))
	for _, req := range requests {
		steps = append(steps, models.ActionStep{
			Type:   req.Type,
			Config: req.Config,
			Delay:  time.Duration(req.DelayMinutes) * time.Minute,
		})
	}

	return steps
}

func automationFromCreateRequest(req CreateAutomationRequest) *models.Automation {
	return &models.Automation{
		Name: req.Name,
		Trigger: models.Trigger{
			Type:   req.TriggerType,
			Config: req.TriggerConfig,
		},
		Conditions: conditionsFromRequest(req.Conditions),
		Actions:    stepsFromRequest(req.Actions),
		Enabled:    req.Enabled,
	}
}

func workflowFromCreateRequest(req CreateWorkflowRequest) *models.WorkflowDefinition {
	return &models.WorkflowDefinition{
		Name:              req.Name,
		TriggerType:       req.TriggerType,
		Conditions:        conditionsFromRequest(req.Conditions),
		Steps:             stepsFromRequest(req.Steps),
		RunOncePerContact: req.RunOncePerContact,
		Enabled:           req.Enabled,
	}
}
