package engine

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/trace"

	"github.com/cadencehq/cadence/pkg/compliance"
	"github.com/cadencehq/cadence/pkg/eventbus"
	"github.com/cadencehq/cadence/pkg/events"
	"github.com/cadencehq/cadence/pkg/models"
	"github.com/cadencehq/cadence/pkg/persistence"
	"github.com/cadencehq/cadence/pkg/registry"
)

// MessageReplyEventType is the inbound event type carrying contact
// replies. Replies matching a configured stop keyword opt the contact
// out and exit their active enrollments.
const MessageReplyEventType = "message.reply"

// Engine ties the matcher, executor, state machine and retry scheduler
// together. One engine instance serves one worker process.
type Engine struct {
	persistence persistence.Persistence
	settings    compliance.SettingsSource
	optouts     compliance.OptOutStore
	bus         eventbus.EventPublisher
	matcher     *TriggerMatcher
	executor    *ActionChainExecutor
	machine     *EnrollmentStateMachine
	retries     *RetryScheduler
	locks       *keyLock
	logger      *slog.Logger
}

func New(
	p persistence.Persistence,
	reg *registry.Registry,
	settings compliance.SettingsSource,
	optouts compliance.OptOutStore,
	counter compliance.RateCounter,
	bus eventbus.EventPublisher,
	tracer trace.Tracer,
	logger *slog.Logger,
) *Engine {
	gate := compliance.NewGate(settings, optouts, counter, logger)

	return &Engine{
		persistence: p,
		settings:    settings,
		optouts:     optouts,
		bus:         bus,
		matcher:     NewTriggerMatcher(p, logger),
		executor:    NewActionChainExecutor(reg, gate, p.ExecutionLogs(), tracer, logger),
		machine:     NewEnrollmentStateMachine(p.Enrollments(), bus, logger),
		retries:     NewRetryScheduler(settings, logger),
		locks:       newKeyLock(),
		logger:      logger.With("module", "engine"),
	}
}

// ProcessEvent handles one inbound event: stop-keyword replies opt the
// contact out, everything else runs through trigger matching and enrolls
// the matched definitions.
func (e *Engine) ProcessEvent(ctx context.Context, event models.Event) error {
	if event.Type == MessageReplyEventType {
		return e.processReply(ctx, event)
	}

	matches, err := e.matcher.Match(ctx, event)
	if err != nil {
		return fmt.Errorf("failed to match event %s: %w", event.Type, err)
	}

	// Matches are independent, so one failing enrollment must not keep
	// the rest of the event's matches from running.
	for _, match := range matches {
		enrollment, err := e.enroll(ctx, match)
		if err != nil {
			e.logger.ErrorContext(ctx, "Failed to enroll match",
				"event_type", event.Type, "contact_id", event.ContactID, "error", err)

			continue
		}

		if err := e.ProcessEnrollment(ctx, enrollment.ID); err != nil {
			e.logger.ErrorContext(ctx, "Failed to process enrollment",
				"enrollment_id", enrollment.ID, "error", err)
		}
	}

	return nil
}

// ProcessEnrollment drives one enrollment while it has due work. Steps
// run strictly in index order; a NotDue, Deferred or terminal outcome
// ends the pass.
func (e *Engine) ProcessEnrollment(ctx context.Context, enrollmentID string) error {
	release := e.locks.Acquire(enrollmentID)
	defer release()

	for {
		enrollment, err := e.persistence.Enrollments().GetByID(ctx, enrollmentID)
		if err != nil {
			return fmt.Errorf("failed to load enrollment %s: %w", enrollmentID, err)
		}

		if enrollment.Terminal() {
			return nil
		}

		now := time.Now().UTC()
		if !enrollment.Due(now) {
			return nil
		}

		// The definition is re-read before every step so disabling takes
		// effect mid-chain.
		steps, enabled, err := e.loadSteps(ctx, enrollment)
		if err != nil {
			if failErr := e.machine.Fail(ctx, enrollment, err, now); failErr != nil {
				return failErr
			}

			return nil
		}

		if !enabled {
			e.logger.InfoContext(ctx, "Definition disabled, pausing enrollment",
				"enrollment_id", enrollment.ID)

			return nil
		}

		result := e.executor.RunStep(ctx, enrollment, steps, now)

		done, err := e.applyResult(ctx, enrollment, steps, result, now)
		if err != nil {
			return err
		}

		if done {
			return nil
		}
	}
}

// ProcessDue runs every enrollment whose next step became due. The
// scheduler calls this on each sweep.
func (e *Engine) ProcessDue(ctx context.Context, now time.Time, limit int) error {
	due, err := e.persistence.Enrollments().ListDue(ctx, now, limit)
	if err != nil {
		return fmt.Errorf("failed to list due enrollments: %w", err)
	}

	for _, enrollment := range due {
		if err := e.ProcessEnrollment(ctx, enrollment.ID); err != nil {
			e.logger.ErrorContext(ctx, "Failed to process due enrollment",
				"enrollment_id", enrollment.ID, "error", err)
		}
	}

	return nil
}

func (e *Engine) applyResult(ctx context.Context, enrollment *models.Enrollment, steps []models.ActionStep, result models.StepResult, now time.Time) (bool, error) {
	switch result.Status {
	case models.StepSuccess, models.StepSkipped:
		final := enrollment.CurrentStepIndex+1 >= len(steps)

		if err := e.machine.Advance(ctx, enrollment, steps, now); err != nil {
			return true, err
		}

		if final && enrollment.Kind == models.KindAutomation {
			if err := e.persistence.Automations().RecordRun(ctx, enrollment.AutomationID, now); err != nil {
				return true, fmt.Errorf("failed to record automation run: %w", err)
			}
		}

		return enrollment.Terminal(), nil

	case models.StepNotDue, models.StepDeferred:
		if err := e.machine.Reschedule(ctx, enrollment, result.ResumeAt); err != nil {
			return true, err
		}

		return true, nil

	case models.StepFailed:
		enrollment.Attempts++

		resumeAt, giveUp, err := e.retries.ScheduleRetry(ctx, enrollment.Attempts, now)
		if err != nil {
			return true, err
		}

		if giveUp {
			if err := e.machine.Fail(ctx, enrollment, result.Err, now); err != nil {
				return true, err
			}

			return true, nil
		}

		if err := e.machine.Reschedule(ctx, enrollment, resumeAt); err != nil {
			return true, err
		}

		return true, nil
	}

	return true, fmt.Errorf("unknown step result status %q", result.Status)
}

func (e *Engine) loadSteps(ctx context.Context, enrollment *models.Enrollment) ([]models.ActionStep, bool, error) {
	if enrollment.Kind == models.KindAutomation {
		automation, err := e.persistence.Automations().GetByID(ctx, enrollment.AutomationID)
		if err != nil {
			return nil, false, fmt.Errorf("failed to load automation %s: %w", enrollment.AutomationID, err)
		}

		return automation.Actions, automation.Enabled, nil
	}

	workflow, err := e.persistence.Workflows().GetByID(ctx, enrollment.WorkflowID)
	if err != nil {
		return nil, false, fmt.Errorf("failed to load workflow %s: %w", enrollment.WorkflowID, err)
	}

	return workflow.Steps, workflow.Enabled, nil
}

func (e *Engine) enroll(ctx context.Context, match models.CandidateMatch) (*models.Enrollment, error) {
	now := time.Now().UTC()

	enrollment := &models.Enrollment{
		Kind:        models.KindAutomation,
		ContactID:   match.Event.ContactID,
		Status:      models.EnrollmentActive,
		TriggerData: match.Event.Payload,
		CreatedAt:   now,
	}

	if match.Workflow != nil {
		enrollment.Kind = models.KindWorkflow
		enrollment.WorkflowID = match.Workflow.ID
	} else {
		enrollment.AutomationID = match.Automation.ID
	}

	if err := e.persistence.Enrollments().Save(ctx, enrollment); err != nil {
		return nil, fmt.Errorf("failed to create enrollment: %w", err)
	}

	if match.Workflow != nil {
		if err := e.persistence.Workflows().RecordEnrollment(ctx, match.Workflow.ID, now); err != nil {
			return nil, fmt.Errorf("failed to record workflow enrollment: %w", err)
		}
	}

	e.logger.InfoContext(ctx, "Enrollment created",
		"enrollment_id", enrollment.ID,
		"kind", enrollment.Kind,
		"contact_id", enrollment.ContactID)

	e.publish(ctx, enrollment.ID, events.EnrollmentCreated{
		BaseEvent:    events.NewBaseEvent(events.EnrollmentCreatedEvent),
		EnrollmentID: enrollment.ID,
		WorkflowID:   enrollment.WorkflowID,
		AutomationID: enrollment.AutomationID,
		ContactID:    enrollment.ContactID,
	})

	return enrollment, nil
}

// processReply checks an inbound reply against the configured stop
// keywords. A match records a permanent opt-out on the reply's channel
// and exits the contact's active enrollments.
func (e *Engine) processReply(ctx context.Context, event models.Event) error {
	body, _ := event.Payload["body"].(string)

	channel, _ := event.Payload["channel"].(string)
	if channel == "" {
		channel = "sms"
	}

	settings, err := e.settings.Settings(ctx)
	if err != nil {
		return fmt.Errorf("failed to load compliance settings: %w", err)
	}

	if !compliance.MatchesStopKeyword(settings, body) {
		return nil
	}

	e.logger.InfoContext(ctx, "Stop keyword received",
		"contact_id", event.ContactID, "channel", channel)

	if err := e.optouts.RecordOptOut(ctx, channel, event.ContactID); err != nil {
		return fmt.Errorf("failed to record opt-out: %w", err)
	}

	active, err := e.persistence.Enrollments().ListActiveByContact(ctx, event.ContactID)
	if err != nil {
		return fmt.Errorf("failed to list active enrollments: %w", err)
	}

	now := time.Now().UTC()

	for _, enrollment := range active {
		release := e.locks.Acquire(enrollment.ID)

		err := e.machine.Exit(ctx, enrollment, "unsubscribed", now)

		release()

		if err != nil {
			return err
		}
	}

	return nil
}

func (e *Engine) publish(ctx context.Context, key string, event eventbus.Event) {
	if e.bus == nil {
		return
	}

	if err := e.bus.Publish(ctx, key, event); err != nil {
		e.logger.ErrorContext(ctx, "Failed to publish event",
			"event_type", event.GetType(), "error", err)
	}
}
