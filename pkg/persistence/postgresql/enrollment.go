package postgresql

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/cadencehq/cadence/pkg/models"
	"github.com/cadencehq/cadence/pkg/persistence"
)

// EnrollmentRepository handles enrollment-related database operations.
type EnrollmentRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewEnrollmentRepository creates a new enrollment repository.
func NewEnrollmentRepository(db *sql.DB, logger *slog.Logger) *EnrollmentRepository {
	return &EnrollmentRepository{db: db, logger: logger}
}

const enrollmentColumns = `
	id
  , kind
  , workflow_id
  , automation_id
  , contact_id
  , current_step_index
  , status
  , next_run_at
  , attempts
  , trigger_data
  , last_step_at
  , error
  , created_at
  , updated_at
  , completed_at
`

func (r *EnrollmentRepository) GetByID(ctx context.Context, id string) (*models.Enrollment, error) {
	query := `SELECT ` + enrollmentColumns + ` FROM enrollments WHERE id = $1`

	enrollment, err := scanEnrollment(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, persistence.NewError("enrollment.get", id, persistence.ErrEnrollmentNotFound)
		}

		return nil, fmt.Errorf("failed to scan enrollment: %w", err)
	}

	return enrollment, nil
}

// Save upserts an enrollment.
func (r *EnrollmentRepository) Save(ctx context.Context, enrollment *models.Enrollment) error {
	now := time.Now().UTC()

	if enrollment.CreatedAt.IsZero() {
		enrollment.CreatedAt = now
	}

	enrollment.UpdatedAt = now

	if enrollment.ID == "" {
		id, err := uuid.NewV7()
		if err != nil {
			return fmt.Errorf("failed to generate enrollment ID: %w", err)
		}

		enrollment.ID = id.String()
	}

	triggerDataJSON, err := json.Marshal(enrollment.TriggerData)
	if err != nil {
		return fmt.Errorf("failed to marshal trigger data: %w", err)
	}

	query := `
		INSERT INTO enrollments (id, kind, workflow_id, automation_id, contact_id,
			current_step_index, status, next_run_at, attempts, trigger_data,
			last_step_at, error, created_at, updated_at, completed_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
		ON CONFLICT (id) DO UPDATE SET
			current_step_index = EXCLUDED.current_step_index,
			status = EXCLUDED.status,
			next_run_at = EXCLUDED.next_run_at,
			attempts = EXCLUDED.attempts,
			last_step_at = EXCLUDED.last_step_at,
			error = EXCLUDED.error,
			updated_at = EXCLUDED.updated_at,
			completed_at = EXCLUDED.completed_at
	`

	_, err = r.db.ExecContext(ctx, query,
		enrollment.ID,
		enrollment.Kind,
		nullableID(enrollment.WorkflowID),
		nullableID(enrollment.AutomationID),
		enrollment.ContactID,
		enrollment.CurrentStepIndex,
		enrollment.Status,
		enrollment.NextRunAt,
		enrollment.Attempts,
		triggerDataJSON,
		enrollment.LastStepAt,
		enrollment.Error,
		enrollment.CreatedAt,
		enrollment.UpdatedAt,
		enrollment.CompletedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to save enrollment: %w", err)
	}

	return nil
}

func (r *EnrollmentRepository) FindByWorkflowAndContact(ctx context.Context, workflowID, contactID string) ([]*models.Enrollment, error) {
	query := `SELECT ` + enrollmentColumns + `
		FROM enrollments
		WHERE workflow_id = $1 AND contact_id = $2
		ORDER BY created_at
	`

	return r.queryEnrollments(ctx, query, workflowID, contactID)
}

func (r *EnrollmentRepository) ListActiveByContact(ctx context.Context, contactID string) ([]*models.Enrollment, error) {
	query := `SELECT ` + enrollmentColumns + `
		FROM enrollments
		WHERE contact_id = $1 AND status = 'active'
		ORDER BY created_at
	`

	return r.queryEnrollments(ctx, query, contactID)
}

// ListDue returns active enrollments whose next run time has passed, oldest
// first. Enrollments with no scheduled time are due immediately.
func (r *EnrollmentRepository) ListDue(ctx context.Context, now time.Time, limit int) ([]*models.Enrollment, error) {
	query := `SELECT ` + enrollmentColumns + `
		FROM enrollments
		WHERE status = 'active' AND (next_run_at IS NULL OR next_run_at <= $1)
		ORDER BY next_run_at NULLS FIRST
		LIMIT $2
	`

	return r.queryEnrollments(ctx, query, now, limit)
}

func (r *EnrollmentRepository) queryEnrollments(ctx context.Context, query string, args ...any) ([]*models.Enrollment, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query enrollments: %w", err)
	}

	defer closeRows(ctx, r.logger, rows)

	enrollments := make([]*models.Enrollment, 0)

	for rows.Next() {
		enrollment, err := scanEnrollment(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan enrollment: %w", err)
		}

		enrollments = append(enrollments, enrollment)
	}

	err = rows.Err()
	if err != nil {
		return nil, fmt.Errorf("error iterating enrollments: %w", err)
	}

	return enrollments, nil
}

func scanEnrollment(scanner interface {
	Scan(dest ...any) error
}) (*models.Enrollment, error) {
	var (
		enrollment               models.Enrollment
		workflowID, automationID sql.NullString
		errorText                sql.NullString
		triggerDataJSON          []byte
	)

	err := scanner.Scan(
		&enrollment.ID,
		&enrollment.Kind,
		&workflowID,
		&automationID,
		&enrollment.ContactID,
		&enrollment.CurrentStepIndex,
		&enrollment.Status,
		&enrollment.NextRunAt,
		&enrollment.Attempts,
		&triggerDataJSON,
		&enrollment.LastStepAt,
		&errorText,
		&enrollment.CreatedAt,
		&enrollment.UpdatedAt,
		&enrollment.CompletedAt,
	)
	if err != nil {
		return nil, err
	}

	enrollment.WorkflowID = workflowID.String
	enrollment.AutomationID = automationID.String
	enrollment.Error = errorText.String

	if triggerDataJSON != nil {
		err := json.Unmarshal(triggerDataJSON, &enrollment.TriggerData)
		if err != nil {
			return nil, fmt.Errorf("failed to unmarshal trigger data: %w", err)
		}
	}

	return &enrollment, nil
}

// nullableID maps an empty string id to SQL NULL so UUID columns accept it.
func nullableID(id string) any {
	if id == "" {
		return nil
	}

	return id
}
