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

// ErrAutomationNotFound is returned when an automation is not found.
var ErrAutomationNotFound = persistence.ErrAutomationNotFound

// Automation manages single-trigger automation definitions.
type Automation struct {
	persistence persistence.Persistence
	registry    *registry.Registry
}

// NewAutomation creates a new automation service.
func NewAutomation(persistence persistence.Persistence, registry *registry.Registry) *Automation {
	return &Automation{
		persistence: persistence,
		registry:    registry,
	}
}

// HealthCheck checks the health of the persistence layer.
func (s *Automation) HealthCheck(ctx context.Context) (string, bool) {
	if s.persistence == nil {
		return "Persistence layer not initialized", false
	}

	err := s.persistence.HealthCheck(ctx)
	if err != nil {
		return "Persistence layer is unhealthy: " + err.Error(), false
	}

	return "Persistence layer is healthy", true
}

func (s *Automation) List(ctx context.Context) ([]*models.Automation, error) {
	automations, err := s.persistence.Automations().List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list automations: %w", err)
	}

	return automations, nil
}

func (s *Automation) FetchByID(ctx context.Context, id string) (*models.Automation, error) {
	return s.persistence.Automations().GetByID(ctx, id)
}

// Create validates and stores a new automation. Automations are created
// disabled unless the definition passes full validation.
func (s *Automation) Create(ctx context.Context, automation *models.Automation) (*models.Automation, error) {
	if automation.Name == "" {
		return nil, NewValidationError("Create", "NAME_REQUIRED", "automation name cannot be empty", ErrNameRequired)
	}

	if automation.Enabled {
		if err := s.validateForEnabling(automation); err != nil {
			return nil, err
		}
	}

	if automation.ID == "" {
		id, err := uuid.NewV7()
		if err != nil {
			return nil, fmt.Errorf("failed to generate automation id: %w", err)
		}

		automation.ID = id.String()
	}

	now := time.Now().UTC()
	automation.CreatedAt = now
	automation.UpdatedAt = now

	if err := s.persistence.Automations().Save(ctx, automation); err != nil {
		return nil, fmt.Errorf("failed to save automation: %w", err)
	}

	return automation, nil
}

// Update replaces a stored automation's definition. Run statistics are
// preserved from the stored copy.
func (s *Automation) Update(ctx context.Context, id string, automation *models.Automation) (*models.Automation, error) {
	existing, err := s.persistence.Automations().GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get automation: %w", err)
	}

	if automation.Name == "" {
		return nil, NewValidationError("Update", "NAME_REQUIRED", "automation name cannot be empty", ErrNameRequired)
	}

	if automation.Enabled {
		if err := s.validateForEnabling(automation); err != nil {
			return nil, err
		}
	}

	automation.ID = existing.ID
	automation.RunCount = existing.RunCount
	automation.LastRunAt = existing.LastRunAt
	automation.CreatedAt = existing.CreatedAt
	automation.UpdatedAt = time.Now().UTC()

	if err := s.persistence.Automations().Save(ctx, automation); err != nil {
		return nil, fmt.Errorf("failed to save automation: %w", err)
	}

	return automation, nil
}

func (s *Automation) Delete(ctx context.Context, id string) error {
	return s.persistence.Automations().Delete(ctx, id)
}

// SetEnabled toggles an automation. Enabling runs the same validation as
// publishing; disabling always succeeds.
func (s *Automation) SetEnabled(ctx context.Context, id string, enabled bool) (*models.Automation, error) {
	automation, err := s.persistence.Automations().GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get automation: %w", err)
	}

	if enabled {
		if err := s.validateForEnabling(automation); err != nil {
			return nil, err
		}
	}

	automation.Enabled = enabled
	automation.UpdatedAt = time.Now().UTC()

	if err := s.persistence.Automations().Save(ctx, automation); err != nil {
		return nil, fmt.Errorf("failed to save automation: %w", err)
	}

	return automation, nil
}

// validateForEnabling ensures an automation is runnable before it can go
// live.
func (s *Automation) validateForEnabling(automation *models.Automation) error {
	if automation.Trigger.Type == "" {
		return NewValidationError("validateForEnabling", "TRIGGER_REQUIRED",
			"automation must have a trigger type", ErrTriggerRequired)
	}

	if len(automation.Actions) == 0 {
		return NewValidationError("validateForEnabling", "ACTIONS_REQUIRED",
			"automation must have at least one action", ErrActionsRequired)
	}

	return validateActions(s.registry, automation.Actions)
}

func validateActions(reg *registry.Registry, actions []models.ActionStep) error {
	for i, action := range actions {
		if err := reg.ValidateConfig(action.Type, action.Config); err != nil {
			return NewValidationError("validateActions", "INVALID_ACTION",
				fmt.Sprintf("action %d: %v", i, err), ErrUnknownActionType)
		}
	}

	return nil
}
