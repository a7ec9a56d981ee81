package postgresql

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/cadencehq/cadence/pkg/models"
)

// ExecutionLogRepository handles the append-only execution log.
type ExecutionLogRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewExecutionLogRepository creates a new execution log repository.
func NewExecutionLogRepository(db *sql.DB, logger *slog.Logger) *ExecutionLogRepository {
	return &ExecutionLogRepository{db: db, logger: logger}
}

const executionLogColumns = `
	id
  , automation_id
  , workflow_id
  , enrollment_id
  , contact_id
  , step_index
  , step_type
  , status
  , trigger_data
  , error
  , executed_at
`

// Append inserts a new log record. Records are never updated or deleted.
func (r *ExecutionLogRepository) Append(ctx context.Context, entry *models.ExecutionLog) error {
	if entry.ID == "" {
		id, err := uuid.NewV7()
		if err != nil {
			return fmt.Errorf("failed to generate execution log ID: %w", err)
		}

		entry.ID = id.String()
	}

	triggerDataJSON, err := json.Marshal(entry.TriggerData)
	if err != nil {
		return fmt.Errorf("failed to marshal trigger data: %w", err)
	}

	query := `
		INSERT INTO execution_logs (id, automation_id, workflow_id, enrollment_id, contact_id,
			step_index, step_type, status, trigger_data, error, executed_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`

	_, err = r.db.ExecContext(ctx, query,
		entry.ID,
		nullableID(entry.AutomationID),
		nullableID(entry.WorkflowID),
		nullableID(entry.EnrollmentID),
		entry.ContactID,
		entry.StepIndex,
		entry.StepType,
		entry.Status,
		triggerDataJSON,
		entry.Error,
		entry.ExecutedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to append execution log: %w", err)
	}

	return nil
}

func (r *ExecutionLogRepository) ListByAutomation(ctx context.Context, automationID string) ([]*models.ExecutionLog, error) {
	query := `SELECT ` + executionLogColumns + `
		FROM execution_logs
		WHERE automation_id = $1
		ORDER BY executed_at
	`

	return r.queryLogs(ctx, query, automationID)
}

func (r *ExecutionLogRepository) ListByEnrollment(ctx context.Context, enrollmentID string) ([]*models.ExecutionLog, error) {
	query := `SELECT ` + executionLogColumns + `
		FROM execution_logs
		WHERE enrollment_id = $1
		ORDER BY executed_at
	`

	return r.queryLogs(ctx, query, enrollmentID)
}

func (r *ExecutionLogRepository) queryLogs(ctx context.Context, query string, args ...any) ([]*models.ExecutionLog, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query execution logs: %w", err)
	}

	defer closeRows(ctx, r.logger, rows)

	entries := make([]*models.ExecutionLog, 0)

	for rows.Next() {
		var (
			entry                                  models.ExecutionLog
			automationID, workflowID, enrollmentID sql.NullString
			contactID, stepType, errorText         sql.NullString
			triggerDataJSON                        []byte
		)

		err := rows.Scan(
			&entry.ID,
			&automationID,
			&workflowID,
			&enrollmentID,
			&contactID,
			&entry.StepIndex,
			&stepType,
			&entry.Status,
			&triggerDataJSON,
			&errorText,
			&entry.ExecutedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan execution log: %w", err)
		}

		entry.AutomationID = automationID.String
		entry.WorkflowID = workflowID.String
		entry.EnrollmentID = enrollmentID.String
		entry.ContactID = contactID.String
		entry.StepType = stepType.String
		entry.Error = errorText.String

		if triggerDataJSON != nil {
			err := json.Unmarshal(triggerDataJSON, &entry.TriggerData)
			if err != nil {
				return nil, fmt.Errorf("failed to unmarshal trigger data: %w", err)
			}
		}

		entries = append(entries, &entry)
	}

	err = rows.Err()
	if err != nil {
		return nil, fmt.Errorf("error iterating execution logs: %w", err)
	}

	return entries, nil
}
