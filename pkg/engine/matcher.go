// Package engine drives automation execution: matching inbound events to
// definitions, running action chains step by step, and moving enrollments
// through their lifecycle.
package engine

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/cadencehq/cadence/pkg/conditions"
	"github.com/cadencehq/cadence/pkg/models"
	"github.com/cadencehq/cadence/pkg/persistence"
)

// TriggerMatcher finds the automations and workflows an inbound event
// makes eligible to run. Matching has no side effects; all mutation
// happens downstream.
type TriggerMatcher struct {
	automations persistence.AutomationRepository
	workflows   persistence.WorkflowRepository
	enrollments persistence.EnrollmentRepository
	logger      *slog.Logger
}

func NewTriggerMatcher(p persistence.Persistence, logger *slog.Logger) *TriggerMatcher {
	return &TriggerMatcher{
		automations: p.Automations(),
		workflows:   p.Workflows(),
		enrollments: p.Enrollments(),
		logger:      logger.With("module", "trigger_matcher"),
	}
}

// Match returns the candidates triggered by an event: enabled definitions
// whose trigger type equals the event type and whose condition chain
// passes against the event payload. For run-once workflows any existing
// enrollment for (workflow, contact) suppresses the match, terminal ones
// included; re-enrollment is an explicit external action.
func (m *TriggerMatcher) Match(ctx context.Context, event models.Event) ([]models.CandidateMatch, error) {
	matches := make([]models.CandidateMatch, 0)

	automations, err := m.automations.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list automations: %w", err)
	}

	for _, automation := range automations {
		if !automation.Enabled || automation.Trigger.Type != event.Type {
			continue
		}

		if !conditions.Evaluate(automation.Conditions, event.Payload) {
			m.logger.DebugContext(ctx, "Conditions excluded automation",
				"automation_id", automation.ID, "event_type", event.Type)

			continue
		}

		matches = append(matches, models.CandidateMatch{Automation: automation, Event: event})
	}

	workflows, err := m.workflows.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list workflows: %w", err)
	}

	for _, workflow := range workflows {
		if !workflow.Enabled || workflow.TriggerType != event.Type {
			continue
		}

		if !conditions.Evaluate(workflow.Conditions, event.Payload) {
			continue
		}

		if workflow.RunOncePerContact && event.ContactID != "" {
			existing, err := m.enrollments.FindByWorkflowAndContact(ctx, workflow.ID, event.ContactID)
			if err != nil {
				return nil, fmt.Errorf("failed to check enrollments for workflow %s: %w", workflow.ID, err)
			}

			if len(existing) > 0 {
				m.logger.DebugContext(ctx, "Suppressed duplicate enrollment",
					"workflow_id", workflow.ID, "contact_id", event.ContactID)

				continue
			}
		}

		matches = append(matches, models.CandidateMatch{Workflow: workflow, Event: event})
	}

	m.logger.InfoContext(ctx, "Completed trigger matching",
		"event_type", event.Type,
		"contact_id", event.ContactID,
		"matches_found", len(matches))

	return matches, nil
}
