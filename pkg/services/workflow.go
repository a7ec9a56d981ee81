package services

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/cadencehq/cadence/pkg/models"
	"github.com/cadencehq/cadence/pkg/persistence"
	"github.com/cadencehq/cadence/pkg/registry"
)

// ErrWorkflowNotFound is returned when a workflow is not found.
var ErrWorkflowNotFound = persistence.ErrWorkflowNotFound

// Workflow manages multi-step workflow definitions and their enrollments.
type Workflow struct {
	persistence persistence.Persistence
	registry    *registry.Registry
}

// NewWorkflow creates a new workflow service.
func NewWorkflow(persistence persistence.Persistence, registry *registry.Registry) *Workflow {
	return &Workflow{
		persistence: persistence,
		registry:    registry,
	}
}

func (s *Workflow) List(ctx context.Context) ([]*models.WorkflowDefinition, error) {
	workflows, err := s.persistence.Workflows().List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list workflows: %w", err)
	}

	return workflows, nil
}

func (s *Workflow) FetchByID(ctx context.Context, id string) (*models.WorkflowDefinition, error) {
	return s.persistence.Workflows().GetByID(ctx, id)
}

func (s *Workflow) Create(ctx context.Context, workflow *models.WorkflowDefinition) (*models.WorkflowDefinition, error) {
	if workflow.Name == "" {
		return nil, NewValidationError("Create", "NAME_REQUIRED", "workflow name cannot be empty", ErrNameRequired)
	}

	if workflow.Enabled {
		if err := s.validateForEnabling(workflow); err != nil {
			return nil, err
		}
	}

	if workflow.ID == "" {
		id, err := uuid.NewV7()
		if err != nil {
			return nil, fmt.Errorf("failed to generate workflow id: %w", err)
		}

		workflow.ID = id.String()
	}

	now := time.Now().UTC()
	workflow.CreatedAt = now
	workflow.UpdatedAt = now

	if err := s.persistence.Workflows().Save(ctx, workflow); err != nil {
		return nil, fmt.Errorf("failed to save workflow: %w", err)
	}

	return workflow, nil
}

func (s *Workflow) Update(ctx context.Context, id string, workflow *models.WorkflowDefinition) (*models.WorkflowDefinition, error) {
	existing, err := s.persistence.Workflows().GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get workflow: %w", err)
	}

	if workflow.Name == "" {
		return nil, NewValidationError("Update", "NAME_REQUIRED", "workflow name cannot be empty", ErrNameRequired)
	}

	if workflow.Enabled {
		if err := s.validateForEnabling(workflow); err != nil {
			return nil, err
		}
	}

	workflow.ID = existing.ID
	workflow.EnrollmentCount = existing.EnrollmentCount
	workflow.LastEnrolledAt = existing.LastEnrolledAt
	workflow.CreatedAt = existing.CreatedAt
	workflow.UpdatedAt = time.Now().UTC()

	if err := s.persistence.Workflows().Save(ctx, workflow); err != nil {
		return nil, fmt.Errorf("failed to save workflow: %w", err)
	}

	return workflow, nil
}

func (s *Workflow) Delete(ctx context.Context, id string) error {
	return s.persistence.Workflows().Delete(ctx, id)
}

// SetEnabled toggles a workflow. Disabling pauses active enrollments at
// their current step; they resume if the workflow is enabled again.
func (s *Workflow) SetEnabled(ctx context.Context, id string, enabled bool) (*models.WorkflowDefinition, error) {
	workflow, err := s.persistence.Workflows().GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get workflow: %w", err)
	}

	if enabled {
		if err := s.validateForEnabling(workflow); err != nil {
			return nil, err
		}
	}

	workflow.Enabled = enabled
	workflow.UpdatedAt = time.Now().UTC()

	if err := s.persistence.Workflows().Save(ctx, workflow); err != nil {
		return nil, fmt.Errorf("failed to save workflow: %w", err)
	}

	return workflow, nil
}

// Enrollments lists the enrollments of one contact, or all execution
// history of a workflow via the execution log.
func (s *Workflow) EnrollmentsByContact(ctx context.Context, contactID string) ([]*models.Enrollment, error) {
	enrollments, err := s.persistence.Enrollments().ListActiveByContact(ctx, contactID)
	if err != nil {
		return nil, fmt.Errorf("failed to list enrollments: %w", err)
	}

	return enrollments, nil
}

func (s *Workflow) validateForEnabling(workflow *models.WorkflowDefinition) error {
	if workflow.TriggerType == "" {
		return NewValidationError("validateForEnabling", "TRIGGER_REQUIRED",
			"workflow must have a trigger type", ErrTriggerRequired)
	}

	if len(workflow.Steps) == 0 {
		return NewValidationError("validateForEnabling", "STEPS_REQUIRED",
			"workflow must have at least one step", ErrActionsRequired)
	}

	return validateActions(s.registry, workflow.Steps)
}
