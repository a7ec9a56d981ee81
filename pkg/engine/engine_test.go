package engine

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"

	"github.com/cadencehq/cadence/pkg/compliance"
	"github.com/cadencehq/cadence/pkg/models"
	"github.com/cadencehq/cadence/pkg/persistence"
	"github.com/cadencehq/cadence/pkg/persistence/file"
	"github.com/cadencehq/cadence/pkg/protocol"
	"github.com/cadencehq/cadence/pkg/registry"
)

// stubSender counts sends and fails on demand.
type stubSender struct {
	calls *atomic.Int64
	err   error
}

func (s *stubSender) Send(_ context.Context, _ protocol.SendRequest, _ *slog.Logger) (map[string]any, error) {
	if s.err != nil {
		return nil, s.err
	}

	s.calls.Add(1)

	return map[string]any{}, nil
}

type stubFactory struct {
	id      string
	channel string
	calls   atomic.Int64
	err     error
}

func (f *stubFactory) ID() string      { return f.id }
func (f *stubFactory) Channel() string { return f.channel }

func (f *stubFactory) Create(_ map[string]any) (protocol.Sender, error) {
	return &stubSender{calls: &f.calls, err: f.err}, nil
}

func (*stubFactory) Schema() map[string]any { return nil }

type testHarness struct {
	engine      *Engine
	persistence *file.Persistence
	settings    *compliance.StaticSettings
	optouts     *compliance.MemoryOptOutStore
	emailSender *stubFactory
	smsSender   *stubFactory
}

// permissiveSettings disables the time-of-day gates so tests control
// compliance outcomes explicitly.
func permissiveSettings() models.ComplianceSettings {
	settings := models.DefaultComplianceSettings()
	settings.QuietHoursEnabled = false
	settings.BusinessHoursOnly = false

	return settings
}

func newTestHarness(t *testing.T, settings models.ComplianceSettings) *testHarness {
	t.Helper()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	p := file.NewPersistence(t.TempDir())

	emailSender := &stubFactory{id: "send_email", channel: "email"}
	smsSender := &stubFactory{id: "send_sms", channel: "sms"}

	reg := registry.NewRegistry(logger)
	reg.Register(emailSender)
	reg.Register(smsSender)

	staticSettings := compliance.NewStaticSettings(settings)
	optouts := compliance.NewMemoryOptOutStore()

	eng := New(
		p,
		reg,
		staticSettings,
		optouts,
		compliance.NewMemoryRateCounter(),
		nil,
		otel.Tracer("test"),
		logger,
	)

	return &testHarness{
		engine:      eng,
		persistence: p,
		settings:    staticSettings,
		optouts:     optouts,
		emailSender: emailSender,
		smsSender:   smsSender,
	}
}

func saveAutomation(t *testing.T, h *testHarness, automation *models.Automation) {
	t.Helper()
	require.NoError(t, h.persistence.Automations().Save(context.Background(), automation))
}

func welcomeAutomation() *models.Automation {
	return &models.Automation{
		ID:      "auto-welcome",
		Name:    "Welcome email",
		Trigger: models.Trigger{Type: "contact.created"},
		Conditions: []models.Condition{
			{Field: "source", Operator: models.OperatorEquals, Value: "webhook"},
		},
		Actions: []models.ActionStep{
			{Type: "send_email", Config: map[string]any{"template": "welcome"}},
		},
		Enabled: true,
	}
}

func contactCreatedEvent(contactID string) models.Event {
	return models.Event{
		Type:       "contact.created",
		ContactID:  contactID,
		Payload:    map[string]any{"source": "webhook"},
		OccurredAt: time.Now().UTC(),
	}
}

func TestEngine_EndToEnd(t *testing.T) {
	h := newTestHarness(t, permissiveSettings())
	ctx := context.Background()

	saveAutomation(t, h, welcomeAutomation())

	require.NoError(t, h.engine.ProcessEvent(ctx, contactCreatedEvent("42")))

	assert.Equal(t, int64(1), h.emailSender.calls.Load())

	logs, err := h.persistence.ExecutionLogs().ListByAutomation(ctx, "auto-welcome")
	require.NoError(t, err)
	require.Len(t, logs, 1)
	assert.Equal(t, models.ExecutionSuccess, logs[0].Status)
	assert.Equal(t, "42", logs[0].ContactID)
	assert.Equal(t, "send_email", logs[0].StepType)

	automation, err := h.persistence.Automations().GetByID(ctx, "auto-welcome")
	require.NoError(t, err)
	assert.Equal(t, int64(1), automation.RunCount)
	assert.NotNil(t, automation.LastRunAt)
}

// flakyPersistence fails the first enrollment save and delegates
// everything else to the wrapped backend.
type flakyPersistence struct {
	persistence.Persistence
	failed atomic.Bool
}

func (p *flakyPersistence) Enrollments() persistence.EnrollmentRepository {
	return &flakyEnrollments{EnrollmentRepository: p.Persistence.Enrollments(), failed: &p.failed}
}

type flakyEnrollments struct {
	persistence.EnrollmentRepository
	failed *atomic.Bool
}

func (r *flakyEnrollments) Save(ctx context.Context, enrollment *models.Enrollment) error {
	if r.failed.CompareAndSwap(false, true) {
		return errors.New("disk full")
	}

	return r.EnrollmentRepository.Save(ctx, enrollment)
}

func TestEngine_EnrollFailureDoesNotBlockOtherMatches(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	flaky := &flakyPersistence{Persistence: file.NewPersistence(t.TempDir())}

	emailSender := &stubFactory{id: "send_email", channel: "email"}
	reg := registry.NewRegistry(logger)
	reg.Register(emailSender)

	eng := New(
		flaky,
		reg,
		compliance.NewStaticSettings(permissiveSettings()),
		compliance.NewMemoryOptOutStore(),
		compliance.NewMemoryRateCounter(),
		nil,
		otel.Tracer("test"),
		logger,
	)

	ctx := context.Background()

	first := welcomeAutomation()
	second := welcomeAutomation()
	second.ID = "auto-welcome-2"
	require.NoError(t, flaky.Automations().Save(ctx, first))
	require.NoError(t, flaky.Automations().Save(ctx, second))

	require.NoError(t, eng.ProcessEvent(ctx, contactCreatedEvent("42")))

	assert.Equal(t, int64(1), emailSender.calls.Load())

	firstLogs, err := flaky.ExecutionLogs().ListByAutomation(ctx, first.ID)
	require.NoError(t, err)
	secondLogs, err := flaky.ExecutionLogs().ListByAutomation(ctx, second.ID)
	require.NoError(t, err)
	assert.Len(t, append(firstLogs, secondLogs...), 1)
}

func TestEngine_DistinctContactsGetDistinctEnrollmentsAndLogs(t *testing.T) {
	h := newTestHarness(t, permissiveSettings())
	ctx := context.Background()

	saveAutomation(t, h, welcomeAutomation())

	require.NoError(t, h.engine.ProcessEvent(ctx, contactCreatedEvent("42")))
	require.NoError(t, h.engine.ProcessEvent(ctx, contactCreatedEvent("43")))

	assert.Equal(t, int64(2), h.emailSender.calls.Load())

	logs, err := h.persistence.ExecutionLogs().ListByAutomation(ctx, "auto-welcome")
	require.NoError(t, err)
	require.Len(t, logs, 2)
	assert.NotEqual(t, logs[0].ID, logs[1].ID)
	assert.NotEqual(t, logs[0].EnrollmentID, logs[1].EnrollmentID)

	automation, err := h.persistence.Automations().GetByID(ctx, "auto-welcome")
	require.NoError(t, err)
	assert.Equal(t, int64(2), automation.RunCount)
}

func TestEngine_ConditionExcludesEvent(t *testing.T) {
	h := newTestHarness(t, permissiveSettings())
	ctx := context.Background()

	saveAutomation(t, h, welcomeAutomation())

	event := contactCreatedEvent("42")
	event.Payload = map[string]any{"source": "import"}

	require.NoError(t, h.engine.ProcessEvent(ctx, event))

	assert.Equal(t, int64(0), h.emailSender.calls.Load())

	logs, err := h.persistence.ExecutionLogs().ListByAutomation(ctx, "auto-welcome")
	require.NoError(t, err)
	assert.Empty(t, logs)
}

func TestEngine_DisabledAutomationNeverMatches(t *testing.T) {
	h := newTestHarness(t, permissiveSettings())
	ctx := context.Background()

	automation := welcomeAutomation()
	automation.Enabled = false
	saveAutomation(t, h, automation)

	require.NoError(t, h.engine.ProcessEvent(ctx, contactCreatedEvent("42")))
	assert.Equal(t, int64(0), h.emailSender.calls.Load())
}

func TestEngine_RunOnceWorkflowIdempotence(t *testing.T) {
	h := newTestHarness(t, permissiveSettings())
	ctx := context.Background()

	workflow := &models.WorkflowDefinition{
		ID:                "wf-onboarding",
		Name:              "Onboarding",
		TriggerType:       "contact.created",
		Steps:             []models.ActionStep{{Type: "send_email", Config: map[string]any{"template": "welcome"}}},
		RunOncePerContact: true,
		Enabled:           true,
	}
	require.NoError(t, h.persistence.Workflows().Save(ctx, workflow))

	event := contactCreatedEvent("42")
	require.NoError(t, h.engine.ProcessEvent(ctx, event))
	require.NoError(t, h.engine.ProcessEvent(ctx, event))

	enrollments, err := h.persistence.Enrollments().FindByWorkflowAndContact(ctx, "wf-onboarding", "42")
	require.NoError(t, err)
	assert.Len(t, enrollments, 1)

	logs, err := h.persistence.ExecutionLogs().ListByEnrollment(ctx, enrollments[0].ID)
	require.NoError(t, err)
	assert.Len(t, logs, 1)

	// Terminal enrollments also suppress re-enrollment.
	assert.Equal(t, models.EnrollmentCompleted, enrollments[0].Status)
	require.NoError(t, h.engine.ProcessEvent(ctx, event))

	enrollments, err = h.persistence.Enrollments().FindByWorkflowAndContact(ctx, "wf-onboarding", "42")
	require.NoError(t, err)
	assert.Len(t, enrollments, 1)
}

func TestEngine_MultiStepWorkflowWithDelay(t *testing.T) {
	h := newTestHarness(t, permissiveSettings())
	ctx := context.Background()

	workflow := &models.WorkflowDefinition{
		ID:          "wf-drip",
		Name:        "Drip",
		TriggerType: "contact.created",
		Steps: []models.ActionStep{
			{Type: "send_email", Config: map[string]any{"template": "welcome"}},
			{Type: "send_email", Config: map[string]any{"template": "followup"}, Delay: time.Hour},
		},
		Enabled: true,
	}
	require.NoError(t, h.persistence.Workflows().Save(ctx, workflow))

	require.NoError(t, h.engine.ProcessEvent(ctx, contactCreatedEvent("42")))

	// Only the first step runs; the second waits its hour.
	assert.Equal(t, int64(1), h.emailSender.calls.Load())

	enrollments, err := h.persistence.Enrollments().FindByWorkflowAndContact(ctx, "wf-drip", "42")
	require.NoError(t, err)
	require.Len(t, enrollments, 1)

	enrollment := enrollments[0]
	assert.Equal(t, models.EnrollmentActive, enrollment.Status)
	assert.Equal(t, 1, enrollment.CurrentStepIndex)
	require.NotNil(t, enrollment.NextRunAt)
	assert.WithinDuration(t, time.Now().UTC().Add(time.Hour), *enrollment.NextRunAt, time.Minute)

	// Once the delay elapses the second step runs and the enrollment
	// completes.
	past := time.Now().UTC().Add(-time.Minute)
	enrollment.NextRunAt = &past
	lastStep := past.Add(-2 * time.Hour)
	enrollment.LastStepAt = &lastStep
	require.NoError(t, h.persistence.Enrollments().Save(ctx, enrollment))

	require.NoError(t, h.engine.ProcessEnrollment(ctx, enrollment.ID))

	assert.Equal(t, int64(2), h.emailSender.calls.Load())

	final, err := h.persistence.Enrollments().GetByID(ctx, enrollment.ID)
	require.NoError(t, err)
	assert.Equal(t, models.EnrollmentCompleted, final.Status)
	assert.NotNil(t, final.CompletedAt)
}

func TestEngine_RetryExhaustion(t *testing.T) {
	h := newTestHarness(t, permissiveSettings())
	ctx := context.Background()

	h.emailSender.err = errors.New("smtp connection refused")

	saveAutomation(t, h, welcomeAutomation())
	require.NoError(t, h.engine.ProcessEvent(ctx, contactCreatedEvent("42")))

	enrollments, err := h.persistence.Enrollments().ListActiveByContact(ctx, "42")
	require.NoError(t, err)
	require.Len(t, enrollments, 1)

	enrollment := enrollments[0]
	assert.Equal(t, 1, enrollment.Attempts)
	require.NotNil(t, enrollment.NextRunAt)

	// Force the retry backoff to elapse and reprocess until the budget
	// runs out.
	for range 2 {
		past := time.Now().UTC().Add(-time.Minute)
		enrollment.NextRunAt = &past
		require.NoError(t, h.persistence.Enrollments().Save(ctx, enrollment))
		require.NoError(t, h.engine.ProcessEnrollment(ctx, enrollment.ID))

		enrollment, err = h.persistence.Enrollments().GetByID(ctx, enrollment.ID)
		require.NoError(t, err)
	}

	assert.Equal(t, models.EnrollmentFailed, enrollment.Status)
	assert.Contains(t, enrollment.Error, "smtp connection refused")

	logs, err := h.persistence.ExecutionLogs().ListByEnrollment(ctx, enrollment.ID)
	require.NoError(t, err)
	require.Len(t, logs, 3)

	for _, entry := range logs {
		assert.Equal(t, models.ExecutionFailed, entry.Status)
	}

	automation, err := h.persistence.Automations().GetByID(ctx, "auto-welcome")
	require.NoError(t, err)
	assert.Equal(t, int64(0), automation.RunCount)
}

func TestEngine_OptOutBlocksAndSkips(t *testing.T) {
	h := newTestHarness(t, permissiveSettings())
	ctx := context.Background()

	require.NoError(t, h.optouts.RecordOptOut(ctx, "email", "42"))

	saveAutomation(t, h, welcomeAutomation())
	require.NoError(t, h.engine.ProcessEvent(ctx, contactCreatedEvent("42")))

	assert.Equal(t, int64(0), h.emailSender.calls.Load())

	logs, err := h.persistence.ExecutionLogs().ListByAutomation(ctx, "auto-welcome")
	require.NoError(t, err)
	require.Len(t, logs, 1)
	assert.Equal(t, models.ExecutionSkipped, logs[0].Status)
	assert.Equal(t, "unsubscribed", logs[0].Error)

	// The chain advances past the blocked step, so the run completes.
	enrollment, err := h.persistence.Enrollments().GetByID(ctx, logs[0].EnrollmentID)
	require.NoError(t, err)
	assert.Equal(t, models.EnrollmentCompleted, enrollment.Status)
}

func TestEngine_StopKeywordReplyExitsEnrollments(t *testing.T) {
	h := newTestHarness(t, permissiveSettings())
	ctx := context.Background()

	workflow := &models.WorkflowDefinition{
		ID:          "wf-drip",
		Name:        "Drip",
		TriggerType: "contact.created",
		Steps: []models.ActionStep{
			{Type: "send_sms", Config: map[string]any{"message": "hi"}},
			{Type: "send_sms", Config: map[string]any{"message": "still there?"}, Delay: 24 * time.Hour},
		},
		Enabled: true,
	}
	require.NoError(t, h.persistence.Workflows().Save(ctx, workflow))

	require.NoError(t, h.engine.ProcessEvent(ctx, contactCreatedEvent("42")))

	active, err := h.persistence.Enrollments().ListActiveByContact(ctx, "42")
	require.NoError(t, err)
	require.Len(t, active, 1)

	reply := models.Event{
		Type:      MessageReplyEventType,
		ContactID: "42",
		Payload:   map[string]any{"channel": "sms", "body": "STOP"},
	}
	require.NoError(t, h.engine.ProcessEvent(ctx, reply))

	optedOut, err := h.optouts.IsOptedOut(ctx, "sms", "42")
	require.NoError(t, err)
	assert.True(t, optedOut)

	exited, err := h.persistence.Enrollments().GetByID(ctx, active[0].ID)
	require.NoError(t, err)
	assert.Equal(t, models.EnrollmentExited, exited.Status)
	assert.Equal(t, "unsubscribed", exited.Error)
}

func TestEngine_NonStopReplyIsIgnored(t *testing.T) {
	h := newTestHarness(t, permissiveSettings())
	ctx := context.Background()

	reply := models.Event{
		Type:      MessageReplyEventType,
		ContactID: "42",
		Payload:   map[string]any{"channel": "sms", "body": "thanks, sounds great"},
	}
	require.NoError(t, h.engine.ProcessEvent(ctx, reply))

	optedOut, err := h.optouts.IsOptedOut(ctx, "sms", "42")
	require.NoError(t, err)
	assert.False(t, optedOut)
}

func TestEngine_DisableTakesEffectMidChain(t *testing.T) {
	h := newTestHarness(t, permissiveSettings())
	ctx := context.Background()

	workflow := &models.WorkflowDefinition{
		ID:          "wf-drip",
		Name:        "Drip",
		TriggerType: "contact.created",
		Steps: []models.ActionStep{
			{Type: "send_email", Config: map[string]any{"template": "one"}},
			{Type: "send_email", Config: map[string]any{"template": "two"}, Delay: time.Hour},
		},
		Enabled: true,
	}
	require.NoError(t, h.persistence.Workflows().Save(ctx, workflow))
	require.NoError(t, h.engine.ProcessEvent(ctx, contactCreatedEvent("42")))

	workflow, err := h.persistence.Workflows().GetByID(ctx, "wf-drip")
	require.NoError(t, err)
	workflow.Enabled = false
	require.NoError(t, h.persistence.Workflows().Save(ctx, workflow))

	enrollments, err := h.persistence.Enrollments().ListActiveByContact(ctx, "42")
	require.NoError(t, err)
	require.Len(t, enrollments, 1)

	enrollment := enrollments[0]
	past := time.Now().UTC().Add(-time.Minute)
	enrollment.NextRunAt = &past
	lastStep := past.Add(-2 * time.Hour)
	enrollment.LastStepAt = &lastStep
	require.NoError(t, h.persistence.Enrollments().Save(ctx, enrollment))

	require.NoError(t, h.engine.ProcessEnrollment(ctx, enrollment.ID))

	// The second step never ran and the enrollment stays active, paused.
	assert.Equal(t, int64(1), h.emailSender.calls.Load())

	paused, err := h.persistence.Enrollments().GetByID(ctx, enrollment.ID)
	require.NoError(t, err)
	assert.Equal(t, models.EnrollmentActive, paused.Status)
	assert.Equal(t, 1, paused.CurrentStepIndex)
}

func TestEngine_ProcessDue(t *testing.T) {
	h := newTestHarness(t, permissiveSettings())
	ctx := context.Background()

	saveAutomation(t, h, welcomeAutomation())
	h.emailSender.err = errors.New("smtp connection refused")
	require.NoError(t, h.engine.ProcessEvent(ctx, contactCreatedEvent("42")))
	h.emailSender.err = nil

	enrollments, err := h.persistence.Enrollments().ListActiveByContact(ctx, "42")
	require.NoError(t, err)
	require.Len(t, enrollments, 1)

	enrollment := enrollments[0]
	past := time.Now().UTC().Add(-time.Minute)
	enrollment.NextRunAt = &past
	require.NoError(t, h.persistence.Enrollments().Save(ctx, enrollment))

	require.NoError(t, h.engine.ProcessDue(ctx, time.Now().UTC(), 100))

	done, err := h.persistence.Enrollments().GetByID(ctx, enrollment.ID)
	require.NoError(t, err)
	assert.Equal(t, models.EnrollmentCompleted, done.Status)
	assert.Equal(t, int64(1), h.emailSender.calls.Load())
}
