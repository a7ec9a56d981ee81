package file

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/cadencehq/cadence/pkg/models"
	"github.com/cadencehq/cadence/pkg/persistence"
)

const kindEnrollments = "enrollments"

type EnrollmentRepository struct {
	p *Persistence
}

func (r *EnrollmentRepository) GetByID(_ context.Context, id string) (*models.Enrollment, error) {
	var enrollment models.Enrollment

	notFound := persistence.NewError("enrollment.get", id, persistence.ErrEnrollmentNotFound)
	if err := r.p.read(kindEnrollments, id, &enrollment, notFound); err != nil {
		return nil, err
	}

	return &enrollment, nil
}

func (r *EnrollmentRepository) Save(_ context.Context, enrollment *models.Enrollment) error {
	if enrollment.ID == "" {
		id, err := uuid.NewV7()
		if err != nil {
			return fmt.Errorf("failed to generate enrollment ID: %w", err)
		}

		enrollment.ID = id.String()
	}

	return r.p.write(kindEnrollments, enrollment.ID, enrollment)
}

func (r *EnrollmentRepository) FindByWorkflowAndContact(ctx context.Context, workflowID, contactID string) ([]*models.Enrollment, error) {
	enrollments, err := r.list(ctx)
	if err != nil {
		return nil, err
	}

	matched := make([]*models.Enrollment, 0)

	for _, enrollment := range enrollments {
		if enrollment.WorkflowID == workflowID && enrollment.ContactID == contactID {
			matched = append(matched, enrollment)
		}
	}

	return matched, nil
}

func (r *EnrollmentRepository) ListActiveByContact(ctx context.Context, contactID string) ([]*models.Enrollment, error) {
	enrollments, err := r.list(ctx)
	if err != nil {
		return nil, err
	}

	active := make([]*models.Enrollment, 0)

	for _, enrollment := range enrollments {
		if enrollment.ContactID == contactID && enrollment.Status == models.EnrollmentActive {
			active = append(active, enrollment)
		}
	}

	return active, nil
}

func (r *EnrollmentRepository) ListDue(ctx context.Context, now time.Time, limit int) ([]*models.Enrollment, error) {
	enrollments, err := r.list(ctx)
	if err != nil {
		return nil, err
	}

	due := make([]*models.Enrollment, 0)

	for _, enrollment := range enrollments {
		if enrollment.Due(now) {
			due = append(due, enrollment)
		}
	}

	// Enrollments without a scheduled time are due immediately and sort
	// ahead of timed ones.
	sort.Slice(due, func(i, j int) bool {
		a, b := due[i].NextRunAt, due[j].NextRunAt
		if a == nil || b == nil {
			return b != nil
		}

		return a.Before(*b)
	})

	if limit > 0 && len(due) > limit {
		due = due[:limit]
	}

	return due, nil
}

func (r *EnrollmentRepository) list(ctx context.Context) ([]*models.Enrollment, error) {
	ids, err := r.p.ids(kindEnrollments)
	if err != nil {
		return nil, err
	}

	enrollments := make([]*models.Enrollment, 0, len(ids))

	for _, id := range ids {
		enrollment, err := r.GetByID(ctx, id)
		if err != nil {
			if persistence.IsEnrollmentNotFound(err) {
				continue
			}

			return nil, err
		}

		enrollments = append(enrollments, enrollment)
	}

	return enrollments, nil
}
