package engine

import (
	"context"
	"fmt"

	"github.com/cadencehq/cadence/pkg/events"
)

// HandleEventReceived is the bus handler for inbound domain events.
func (e *Engine) HandleEventReceived(ctx context.Context, raw any) error {
	event, ok := raw.(*events.EventReceived)
	if !ok {
		return fmt.Errorf("unexpected payload type %T for %s", raw, events.EventReceivedEvent)
	}

	return e.ProcessEvent(ctx, event.Event)
}

// HandleStepDue is the bus handler for step wake-ups published by the
// scheduler.
func (e *Engine) HandleStepDue(ctx context.Context, raw any) error {
	event, ok := raw.(*events.StepDue)
	if !ok {
		return fmt.Errorf("unexpected payload type %T for %s", raw, events.StepDueEvent)
	}

	return e.ProcessEnrollment(ctx, event.EnrollmentID)
}
