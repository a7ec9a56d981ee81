package file

import (
	"context"
	"time"

	"github.com/cadencehq/cadence/pkg/models"
	"github.com/cadencehq/cadence/pkg/persistence"
)

const (
	kindAutomations = "automations"
	kindWorkflows   = "workflows"
)

type AutomationRepository struct {
	p *Persistence
}

func (r *AutomationRepository) List(ctx context.Context) ([]*models.Automation, error) {
	ids, err := r.p.ids(kindAutomations)
	if err != nil {
		return nil, err
	}

	automations := make([]*models.Automation, 0, len(ids))

	for _, id := range ids {
		automation, err := r.GetByID(ctx, id)
		if err != nil {
			if persistence.IsAutomationNotFound(err) {
				continue
			}

			return nil, err
		}

		automations = append(automations, automation)
	}

	return automations, nil
}

func (r *AutomationRepository) GetByID(_ context.Context, id string) (*models.Automation, error) {
	var automation models.Automation

	notFound := persistence.NewError("automation.get", id, persistence.ErrAutomationNotFound)
	if err := r.p.read(kindAutomations, id, &automation, notFound); err != nil {
		return nil, err
	}

	return &automation, nil
}

func (r *AutomationRepository) Save(_ context.Context, automation *models.Automation) error {
	return r.p.write(kindAutomations, automation.ID, automation)
}

func (r *AutomationRepository) Delete(_ context.Context, id string) error {
	notFound := persistence.NewError("automation.delete", id, persistence.ErrAutomationNotFound)

	return r.p.remove(kindAutomations, id, notFound)
}

func (r *AutomationRepository) RecordRun(ctx context.Context, id string, at time.Time) error {
	automation, err := r.GetByID(ctx, id)
	if err != nil {
		return err
	}

	automation.RunCount++
	automation.LastRunAt = &at
	automation.UpdatedAt = at

	return r.Save(ctx, automation)
}

type WorkflowRepository struct {
	p *Persistence
}

func (r *WorkflowRepository) List(ctx context.Context) ([]*models.WorkflowDefinition, error) {
	ids, err := r.p.ids(kindWorkflows)
	if err != nil {
		return nil, err
	}

	workflows := make([]*models.WorkflowDefinition, 0, len(ids))

	for _, id := range ids {
		workflow, err := r.GetByID(ctx, id)
		if err != nil {
			if persistence.IsWorkflowNotFound(err) {
				continue
			}

			return nil, err
		}

		workflows = append(workflows, workflow)
	}

	return workflows, nil
}

func (r *WorkflowRepository) GetByID(_ context.Context, id string) (*models.WorkflowDefinition, error) {
	var workflow models.WorkflowDefinition

	notFound := persistence.NewError("workflow.get", id, persistence.ErrWorkflowNotFound)
	if err := r.p.read(kindWorkflows, id, &workflow, notFound); err != nil {
		return nil, err
	}

	return &workflow, nil
}

func (r *WorkflowRepository) Save(_ context.Context, workflow *models.WorkflowDefinition) error {
	return r.p.write(kindWorkflows, workflow.ID, workflow)
}

func (r *WorkflowRepository) Delete(_ context.Context, id string) error {
	notFound := persistence.NewError("workflow.delete", id, persistence.ErrWorkflowNotFound)

	return r.p.remove(kindWorkflows, id, notFound)
}

func (r *WorkflowRepository) RecordEnrollment(ctx context.Context, id string, at time.Time) error {
	workflow, err := r.GetByID(ctx, id)
	if err != nil {
		return err
	}

	workflow.EnrollmentCount++
	workflow.LastEnrolledAt = &at
	workflow.UpdatedAt = at

	return r.Save(ctx, workflow)
}
