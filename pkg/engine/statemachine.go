package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/cadencehq/cadence/pkg/eventbus"
	"github.com/cadencehq/cadence/pkg/events"
	"github.com/cadencehq/cadence/pkg/models"
	"github.com/cadencehq/cadence/pkg/persistence"
)

var ErrEnrollmentTerminal = errors.New("enrollment is in a terminal state")

// EnrollmentStateMachine owns every enrollment mutation. Terminal states
// are immutable and the step index only moves forward; callers serialize
// per enrollment, the machine enforces the invariants.
type EnrollmentStateMachine struct {
	enrollments persistence.EnrollmentRepository
	bus         eventbus.EventPublisher
	logger      *slog.Logger
}

func NewEnrollmentStateMachine(enrollments persistence.EnrollmentRepository, bus eventbus.EventPublisher, logger *slog.Logger) *EnrollmentStateMachine {
	return &EnrollmentStateMachine{
		enrollments: enrollments,
		bus:         bus,
		logger:      logger.With("module", "enrollment_state_machine"),
	}
}

// Advance moves the enrollment forward after a Success or Skipped step.
// The final step completes the enrollment; otherwise the index increments
// and the next run time follows the next step's delay.
func (sm *EnrollmentStateMachine) Advance(ctx context.Context, enrollment *models.Enrollment, steps []models.ActionStep, now time.Time) error {
	if enrollment.Terminal() {
		return fmt.Errorf("enrollment %s: %w", enrollment.ID, ErrEnrollmentTerminal)
	}

	enrollment.LastStepAt = &now
	enrollment.Attempts = 0
	enrollment.Error = ""

	if enrollment.CurrentStepIndex+1 >= len(steps) {
		return sm.complete(ctx, enrollment, now)
	}

	enrollment.CurrentStepIndex++

	next := steps[enrollment.CurrentStepIndex]
	if next.Delay > 0 {
		runAt := now.Add(next.Delay)
		enrollment.NextRunAt = &runAt
	} else {
		enrollment.NextRunAt = nil
	}

	if err := sm.enrollments.Save(ctx, enrollment); err != nil {
		return fmt.Errorf("failed to save enrollment %s: %w", enrollment.ID, err)
	}

	sm.logger.DebugContext(ctx, "Enrollment advanced",
		"enrollment_id", enrollment.ID,
		"step_index", enrollment.CurrentStepIndex,
		"next_run_at", enrollment.NextRunAt)

	return nil
}

// Reschedule keeps the enrollment on its current step and sets when it
// becomes due again (inter-step delay, compliance deferral, retry).
func (sm *EnrollmentStateMachine) Reschedule(ctx context.Context, enrollment *models.Enrollment, resumeAt time.Time) error {
	if enrollment.Terminal() {
		return fmt.Errorf("enrollment %s: %w", enrollment.ID, ErrEnrollmentTerminal)
	}

	enrollment.NextRunAt = &resumeAt

	if err := sm.enrollments.Save(ctx, enrollment); err != nil {
		return fmt.Errorf("failed to save enrollment %s: %w", enrollment.ID, err)
	}

	return nil
}

// Fail transitions the enrollment to failed once its retry budget is
// exhausted.
func (sm *EnrollmentStateMachine) Fail(ctx context.Context, enrollment *models.Enrollment, cause error, now time.Time) error {
	if enrollment.Terminal() {
		return fmt.Errorf("enrollment %s: %w", enrollment.ID, ErrEnrollmentTerminal)
	}

	enrollment.Status = models.EnrollmentFailed
	enrollment.NextRunAt = nil
	enrollment.CompletedAt = &now

	if cause != nil {
		enrollment.Error = cause.Error()
	}

	if err := sm.enrollments.Save(ctx, enrollment); err != nil {
		return fmt.Errorf("failed to save enrollment %s: %w", enrollment.ID, err)
	}

	sm.logger.InfoContext(ctx, "Enrollment failed",
		"enrollment_id", enrollment.ID, "error", enrollment.Error)

	sm.publish(ctx, enrollment.ID, events.EnrollmentFailed{
		BaseEvent:    events.NewBaseEvent(events.EnrollmentFailedEvent),
		EnrollmentID: enrollment.ID,
		Error:        enrollment.Error,
	})

	return nil
}

// Exit transitions the enrollment out on an external signal, such as an
// unsubscribe.
func (sm *EnrollmentStateMachine) Exit(ctx context.Context, enrollment *models.Enrollment, reason string, now time.Time) error {
	if enrollment.Terminal() {
		return fmt.Errorf("enrollment %s: %w", enrollment.ID, ErrEnrollmentTerminal)
	}

	enrollment.Status = models.EnrollmentExited
	enrollment.NextRunAt = nil
	enrollment.CompletedAt = &now
	enrollment.Error = reason

	if err := sm.enrollments.Save(ctx, enrollment); err != nil {
		return fmt.Errorf("failed to save enrollment %s: %w", enrollment.ID, err)
	}

	sm.logger.InfoContext(ctx, "Enrollment exited",
		"enrollment_id", enrollment.ID, "reason", reason)

	sm.publish(ctx, enrollment.ID, events.EnrollmentExited{
		BaseEvent:    events.NewBaseEvent(events.EnrollmentExitedEvent),
		EnrollmentID: enrollment.ID,
		Reason:       reason,
	})

	return nil
}

func (sm *EnrollmentStateMachine) complete(ctx context.Context, enrollment *models.Enrollment, now time.Time) error {
	enrollment.Status = models.EnrollmentCompleted
	enrollment.NextRunAt = nil
	enrollment.CompletedAt = &now

	if err := sm.enrollments.Save(ctx, enrollment); err != nil {
		return fmt.Errorf("failed to save enrollment %s: %w", enrollment.ID, err)
	}

	sm.logger.InfoContext(ctx, "Enrollment completed", "enrollment_id", enrollment.ID)

	sm.publish(ctx, enrollment.ID, events.EnrollmentCompleted{
		BaseEvent:    events.NewBaseEvent(events.EnrollmentCompletedEvent),
		EnrollmentID: enrollment.ID,
	})

	return nil
}

func (sm *EnrollmentStateMachine) publish(ctx context.Context, key string, event eventbus.Event) {
	if sm.bus == nil {
		return
	}

	if err := sm.bus.Publish(ctx, key, event); err != nil {
		sm.logger.ErrorContext(ctx, "Failed to publish lifecycle event",
			"event_type", event.GetType(), "error", err)
	}
}
