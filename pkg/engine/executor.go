package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/cadencehq/cadence/pkg/compliance"
	"github.com/cadencehq/cadence/pkg/models"
	"github.com/cadencehq/cadence/pkg/otelhelper"
	"github.com/cadencehq/cadence/pkg/persistence"
	"github.com/cadencehq/cadence/pkg/protocol"
	"github.com/cadencehq/cadence/pkg/registry"
	"github.com/cadencehq/cadence/pkg/template"
)

var ErrStepIndexOutOfRange = errors.New("step index out of range")

// ActionChainExecutor runs a single step of an enrollment's action chain.
// Every failure mode crosses its boundary as a StepResult variant, and
// every terminal result is written to the execution log before returning.
type ActionChainExecutor struct {
	registry *registry.Registry
	gate     *compliance.Gate
	logs     persistence.ExecutionLogRepository
	tracer   trace.Tracer
	logger   *slog.Logger
}

func NewActionChainExecutor(
	reg *registry.Registry,
	gate *compliance.Gate,
	logs persistence.ExecutionLogRepository,
	tracer trace.Tracer,
	logger *slog.Logger,
) *ActionChainExecutor {
	return &ActionChainExecutor{
		registry: reg,
		gate:     gate,
		logs:     logs,
		tracer:   tracer,
		logger:   logger.With("module", "action_chain_executor"),
	}
}

// RunStep executes the enrollment's current step against its step chain.
// NotDue and Deferred results reschedule without side effects; Success,
// Skipped and Failed are logged and end the attempt.
func (e *ActionChainExecutor) RunStep(ctx context.Context, enrollment *models.Enrollment, steps []models.ActionStep, now time.Time) models.StepResult {
	logger := e.logger.With(
		"enrollment_id", enrollment.ID,
		"contact_id", enrollment.ContactID,
		"step_index", enrollment.CurrentStepIndex,
	)

	if enrollment.CurrentStepIndex < 0 || enrollment.CurrentStepIndex >= len(steps) {
		err := fmt.Errorf("%w: %d of %d", ErrStepIndexOutOfRange, enrollment.CurrentStepIndex, len(steps))
		e.appendLog(ctx, logger, enrollment, "", models.ExecutionFailed, err.Error())

		return models.FailedResult(err)
	}

	step := steps[enrollment.CurrentStepIndex]

	ctx, span := otelhelper.StartSpan(ctx, e.tracer, "engine.run_step",
		attribute.String(otelhelper.EnrollmentIDKey, enrollment.ID),
		attribute.String(otelhelper.ContactIDKey, enrollment.ContactID),
		attribute.Int(otelhelper.StepIndexKey, enrollment.CurrentStepIndex),
		attribute.String(otelhelper.StepTypeKey, step.Type),
	)
	defer span.End()

	logger = logger.With("step_type", step.Type)

	// Inter-step delay counts from the previous step's completion, or
	// from enrollment creation for the first step.
	if step.Delay > 0 {
		base := enrollment.CreatedAt
		if enrollment.LastStepAt != nil {
			base = *enrollment.LastStepAt
		}

		due := base.Add(step.Delay)
		if now.Before(due) {
			logger.DebugContext(ctx, "Step not due yet", "due_at", due)

			return models.NotDueResult(due)
		}
	}

	renderedConfig, err := template.RenderConfig(step.Config, enrollment.TriggerData)
	if err != nil {
		otelhelper.SetError(span, err)
		logger.ErrorContext(ctx, "Failed to render step config", "error", err)
		e.appendLog(ctx, logger, enrollment, step.Type, models.ExecutionFailed, err.Error())

		return models.FailedResult(err)
	}

	if channel := e.registry.Channel(step.Type); channel != "" {
		decision, err := e.gate.Authorize(ctx, channel, enrollment.ContactID, now)
		if err != nil {
			otelhelper.SetError(span, err)
			e.appendLog(ctx, logger, enrollment, step.Type, models.ExecutionFailed, err.Error())

			return models.FailedResult(err)
		}

		switch decision.Kind {
		case compliance.DecisionBlock:
			logger.InfoContext(ctx, "Step blocked by compliance", "reason", decision.Reason)
			e.appendLog(ctx, logger, enrollment, step.Type, models.ExecutionSkipped, decision.Reason)

			return models.SkippedResult(decision.Reason)
		case compliance.DecisionDefer:
			logger.InfoContext(ctx, "Step deferred by compliance", "resume_at", decision.ResumeAt)

			return models.DeferredResult(decision.ResumeAt)
		case compliance.DecisionAllow:
		}
	}

	sender, err := e.registry.Create(step.Type, renderedConfig)
	if err != nil {
		otelhelper.SetError(span, err)
		logger.ErrorContext(ctx, "Failed to build sender", "error", err)
		e.appendLog(ctx, logger, enrollment, step.Type, models.ExecutionFailed, err.Error())

		return models.FailedResult(err)
	}

	request := protocol.SendRequest{
		ContactID:   enrollment.ContactID,
		Config:      renderedConfig,
		TriggerData: enrollment.TriggerData,
	}

	if _, err := sender.Send(ctx, request, logger); err != nil {
		otelhelper.SetError(span, err)
		e.appendLog(ctx, logger, enrollment, step.Type, models.ExecutionFailed, err.Error())

		return models.FailedResult(err)
	}

	logger.InfoContext(ctx, "Step executed")
	e.appendLog(ctx, logger, enrollment, step.Type, models.ExecutionSuccess, "")

	return models.SuccessResult()
}

func (e *ActionChainExecutor) appendLog(ctx context.Context, logger *slog.Logger, enrollment *models.Enrollment, stepType string, status models.ExecutionStatus, errorText string) {
	entry := &models.ExecutionLog{
		AutomationID: enrollment.AutomationID,
		WorkflowID:   enrollment.WorkflowID,
		EnrollmentID: enrollment.ID,
		ContactID:    enrollment.ContactID,
		StepIndex:    enrollment.CurrentStepIndex,
		StepType:     stepType,
		Status:       status,
		TriggerData:  enrollment.TriggerData,
		Error:        errorText,
		ExecutedAt:   time.Now().UTC(),
	}

	if err := e.logs.Append(ctx, entry); err != nil {
		logger.ErrorContext(ctx, "Failed to append execution log", "error", err)
	}
}
