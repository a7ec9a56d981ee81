package file

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sort"

	"github.com/google/uuid"

	"github.com/cadencehq/cadence/pkg/models"
)

const kindExecutionLogs = "execution_logs"

type ExecutionLogRepository struct {
	p *Persistence
}

func (r *ExecutionLogRepository) Append(_ context.Context, entry *models.ExecutionLog) error {
	if entry.ID == "" {
		id, err := uuid.NewV7()
		if err != nil {
			return fmt.Errorf("failed to generate execution log ID: %w", err)
		}

		entry.ID = id.String()
	}

	return r.p.write(kindExecutionLogs, entry.ID, entry)
}

func (r *ExecutionLogRepository) ListByAutomation(ctx context.Context, automationID string) ([]*models.ExecutionLog, error) {
	return r.filter(ctx, func(entry *models.ExecutionLog) bool {
		return entry.AutomationID == automationID
	})
}

func (r *ExecutionLogRepository) ListByEnrollment(ctx context.Context, enrollmentID string) ([]*models.ExecutionLog, error) {
	return r.filter(ctx, func(entry *models.ExecutionLog) bool {
		return entry.EnrollmentID == enrollmentID
	})
}

func (r *ExecutionLogRepository) filter(_ context.Context, keep func(*models.ExecutionLog) bool) ([]*models.ExecutionLog, error) {
	ids, err := r.p.ids(kindExecutionLogs)
	if err != nil {
		return nil, err
	}

	entries := make([]*models.ExecutionLog, 0)

	for _, id := range ids {
		var entry models.ExecutionLog

		err := r.p.read(kindExecutionLogs, id, &entry, os.ErrNotExist)
		if errors.Is(err, os.ErrNotExist) {
			continue
		}

		if err != nil {
			return nil, err
		}

		if keep(&entry) {
			entries = append(entries, &entry)
		}
	}

	sort.Slice(entries, func(i, j int) bool {
		return entries[i].ExecutedAt.Before(entries[j].ExecutedAt)
	})

	return entries, nil
}
