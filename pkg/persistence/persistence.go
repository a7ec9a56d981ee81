// Package persistence provides the storage abstraction for automations,
// workflows, enrollments, and the execution log.
package persistence

import (
	"context"
	"time"

	"github.com/cadencehq/cadence/pkg/models"
)

type Persistence interface {
	Automations() AutomationRepository
	Workflows() WorkflowRepository
	Enrollments() EnrollmentRepository
	ExecutionLogs() ExecutionLogRepository

	HealthCheck(ctx context.Context) error
	Close(ctx context.Context) error
}

type AutomationRepository interface {
	List(ctx context.Context) ([]*models.Automation, error)
	GetByID(ctx context.Context, id string) (*models.Automation, error)
	Save(ctx context.Context, automation *models.Automation) error
	Delete(ctx context.Context, id string) error

	// RecordRun increments run_count and stamps last_run_at.
	RecordRun(ctx context.Context, id string, at time.Time) error
}

type WorkflowRepository interface {
	List(ctx context.Context) ([]*models.WorkflowDefinition, error)
	GetByID(ctx context.Context, id string) (*models.WorkflowDefinition, error)
	Save(ctx context.Context, workflow *models.WorkflowDefinition) error
	Delete(ctx context.Context, id string) error

	// RecordEnrollment increments enrollment_count and stamps
	// last_enrolled_at.
	RecordEnrollment(ctx context.Context, id string, at time.Time) error
}

type EnrollmentRepository interface {
	GetByID(ctx context.Context, id string) (*models.Enrollment, error)
	Save(ctx context.Context, enrollment *models.Enrollment) error

	// FindByWorkflowAndContact returns every enrollment for the pair,
	// in any state. Used for run-once suppression, which covers
	// terminal enrollments too.
	FindByWorkflowAndContact(ctx context.Context, workflowID, contactID string) ([]*models.Enrollment, error)

	// ListActiveByContact returns active enrollments for a contact,
	// used to exit sequences when the contact unsubscribes.
	ListActiveByContact(ctx context.Context, contactID string) ([]*models.Enrollment, error)

	// ListDue returns active enrollments whose next_run_at is null or
	// at/before now, ordered oldest first.
	ListDue(ctx context.Context, now time.Time, limit int) ([]*models.Enrollment, error)
}

// ExecutionLogRepository is append-only: records are never edited or
// removed by the engine.
type ExecutionLogRepository interface {
	Append(ctx context.Context, record *models.ExecutionLog) error
	ListByAutomation(ctx context.Context, automationID string) ([]*models.ExecutionLog, error)
	ListByEnrollment(ctx context.Context, enrollmentID string) ([]*models.ExecutionLog, error)
}
