// Package events defines the event types exchanged between the engine
// processes over the event bus.
package events

import (
	"time"

	"github.com/google/uuid"

	"github.com/cadencehq/cadence/pkg/models"
)

type EventType string

// Kafka topic carrying all engine events.
const Topic = "cadence.events"

const EventMetadataKey = "key"
const EventTypeMetadataKey = "event_type"

const (
	// Inbound domain events from collaborators.
	EventReceivedEvent EventType = "event.received"

	// Work scheduling.
	StepDueEvent EventType = "enrollment.step.due"

	// Lifecycle notifications, consumed by reporting only.
	EnrollmentCreatedEvent   EventType = "enrollment.created"
	EnrollmentCompletedEvent EventType = "enrollment.completed"
	EnrollmentFailedEvent    EventType = "enrollment.failed"
	EnrollmentExitedEvent    EventType = "enrollment.exited"
)

// BaseEvent carries the fields common to all bus events. SourceID
// identifies the publishing process, a worker or scheduler instance.
type BaseEvent struct {
	ID        string         `json:"id"`
	Type      EventType      `json:"type"`
	Timestamp time.Time      `json:"timestamp"`
	SourceID  string         `json:"source_id,omitempty"`
	Metadata  map[string]any `json:"metadata,omitempty"`
}

func NewBaseEvent(eventType EventType) BaseEvent {
	return BaseEvent{
		ID:        uuid.New().String(),
		Type:      eventType,
		Timestamp: time.Now().UTC(),
	}
}

// EventReceived wraps an inbound domain event for transport to workers.
type EventReceived struct {
	BaseEvent

	Event models.Event `json:"event"`
}

func (e EventReceived) GetType() EventType {
	return EventReceivedEvent
}

// StepDue wakes an enrollment whose next step became due: a pending
// inter-step delay elapsed, a compliance deferral expired, or a retry
// backoff completed.
type StepDue struct {
	BaseEvent

	EnrollmentID string `json:"enrollment_id"`
}

func (e StepDue) GetType() EventType {
	return StepDueEvent
}

type EnrollmentCreated struct {
	BaseEvent

	EnrollmentID string `json:"enrollment_id"`
	WorkflowID   string `json:"workflow_id,omitempty"`
	AutomationID string `json:"automation_id,omitempty"`
	ContactID    string `json:"contact_id"`
}

func (e EnrollmentCreated) GetType() EventType {
	return EnrollmentCreatedEvent
}

type EnrollmentCompleted struct {
	BaseEvent

	EnrollmentID string `json:"enrollment_id"`
}

func (e EnrollmentCompleted) GetType() EventType {
	return EnrollmentCompletedEvent
}

type EnrollmentFailed struct {
	BaseEvent

	EnrollmentID string `json:"enrollment_id"`
	Error        string `json:"error"`
}

func (e EnrollmentFailed) GetType() EventType {
	return EnrollmentFailedEvent
}

type EnrollmentExited struct {
	BaseEvent

	EnrollmentID string `json:"enrollment_id"`
	Reason       string `json:"reason,omitempty"`
}

func (e EnrollmentExited) GetType() EventType {
	return EnrollmentExitedEvent
}
