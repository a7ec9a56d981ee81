package engine

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cadencehq/cadence/pkg/models"
	"github.com/cadencehq/cadence/pkg/persistence/file"
)

func newStateMachine(t *testing.T) (*EnrollmentStateMachine, *file.Persistence) {
	t.Helper()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	p := file.NewPersistence(t.TempDir())

	return NewEnrollmentStateMachine(p.Enrollments(), nil, logger), p
}

func activeEnrollment(t *testing.T, p *file.Persistence) *models.Enrollment {
	t.Helper()

	enrollment := &models.Enrollment{
		Kind:       models.KindWorkflow,
		WorkflowID: "wf-1",
		ContactID:  "42",
		Status:     models.EnrollmentActive,
		CreatedAt:  time.Now().UTC(),
	}
	require.NoError(t, p.Enrollments().Save(context.Background(), enrollment))

	return enrollment
}

func TestStateMachine_AdvanceMovesIndexForward(t *testing.T) {
	machine, p := newStateMachine(t)
	ctx := context.Background()

	enrollment := activeEnrollment(t, p)
	enrollment.Attempts = 2

	steps := []models.ActionStep{
		{Type: "send_email"},
		{Type: "send_email", Delay: time.Hour},
		{Type: "webhook"},
	}

	now := time.Now().UTC()
	require.NoError(t, machine.Advance(ctx, enrollment, steps, now))

	assert.Equal(t, 1, enrollment.CurrentStepIndex)
	assert.Equal(t, models.EnrollmentActive, enrollment.Status)
	assert.Equal(t, 0, enrollment.Attempts)
	require.NotNil(t, enrollment.NextRunAt)
	assert.Equal(t, now.Add(time.Hour), *enrollment.NextRunAt)
	require.NotNil(t, enrollment.LastStepAt)

	// A step with no delay clears the schedule so the chain continues
	// immediately.
	require.NoError(t, machine.Advance(ctx, enrollment, steps, now))
	assert.Equal(t, 2, enrollment.CurrentStepIndex)
	assert.Nil(t, enrollment.NextRunAt)
}

func TestStateMachine_AdvancePastLastStepCompletes(t *testing.T) {
	machine, p := newStateMachine(t)
	ctx := context.Background()

	enrollment := activeEnrollment(t, p)
	steps := []models.ActionStep{{Type: "send_email"}}

	now := time.Now().UTC()
	require.NoError(t, machine.Advance(ctx, enrollment, steps, now))

	assert.Equal(t, models.EnrollmentCompleted, enrollment.Status)
	require.NotNil(t, enrollment.CompletedAt)

	stored, err := p.Enrollments().GetByID(ctx, enrollment.ID)
	require.NoError(t, err)
	assert.Equal(t, models.EnrollmentCompleted, stored.Status)
}

func TestStateMachine_TerminalStatesAreImmutable(t *testing.T) {
	machine, p := newStateMachine(t)
	ctx := context.Background()

	steps := []models.ActionStep{{Type: "send_email"}, {Type: "webhook"}}
	now := time.Now().UTC()

	for _, status := range []models.EnrollmentStatus{
		models.EnrollmentCompleted,
		models.EnrollmentFailed,
		models.EnrollmentExited,
	} {
		enrollment := activeEnrollment(t, p)
		enrollment.Status = status
		require.NoError(t, p.Enrollments().Save(ctx, enrollment))

		err := machine.Advance(ctx, enrollment, steps, now)
		assert.ErrorIs(t, err, ErrEnrollmentTerminal)

		err = machine.Fail(ctx, enrollment, errors.New("boom"), now)
		assert.ErrorIs(t, err, ErrEnrollmentTerminal)

		err = machine.Exit(ctx, enrollment, "unsubscribed", now)
		assert.ErrorIs(t, err, ErrEnrollmentTerminal)
	}
}

func TestStateMachine_FailRecordsCause(t *testing.T) {
	machine, p := newStateMachine(t)
	ctx := context.Background()

	enrollment := activeEnrollment(t, p)
	now := time.Now().UTC()

	require.NoError(t, machine.Fail(ctx, enrollment, errors.New("smtp timeout"), now))

	assert.Equal(t, models.EnrollmentFailed, enrollment.Status)
	assert.Equal(t, "smtp timeout", enrollment.Error)
	assert.Nil(t, enrollment.NextRunAt)
	require.NotNil(t, enrollment.CompletedAt)
}

func TestStateMachine_ExitRecordsReason(t *testing.T) {
	machine, p := newStateMachine(t)
	ctx := context.Background()

	enrollment := activeEnrollment(t, p)
	now := time.Now().UTC()

	require.NoError(t, machine.Exit(ctx, enrollment, "unsubscribed", now))

	assert.Equal(t, models.EnrollmentExited, enrollment.Status)
	assert.Equal(t, "unsubscribed", enrollment.Error)
}

func TestStateMachine_RescheduleKeepsIndex(t *testing.T) {
	machine, p := newStateMachine(t)
	ctx := context.Background()

	enrollment := activeEnrollment(t, p)
	enrollment.CurrentStepIndex = 1

	resumeAt := time.Now().UTC().Add(30 * time.Minute)
	require.NoError(t, machine.Reschedule(ctx, enrollment, resumeAt))

	assert.Equal(t, 1, enrollment.CurrentStepIndex)
	require.NotNil(t, enrollment.NextRunAt)
	assert.Equal(t, resumeAt, *enrollment.NextRunAt)
}
