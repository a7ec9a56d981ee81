package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/cadencehq/cadence/pkg/eventbus"
	"github.com/cadencehq/cadence/pkg/events"
	"github.com/cadencehq/cadence/pkg/persistence"
)

// Scheduler periodically sweeps the store for enrollments whose next run
// time has arrived and wakes them by publishing step-due events. Workers
// re-check due-ness under the per-enrollment lock, so a duplicate wake-up
// is harmless.
type Scheduler struct {
	id          string
	persistence persistence.Persistence
	eventBus    eventbus.EventPublisher
	sweepCron   string
	sweepLimit  int
	cron        *cron.Cron
	logger      *slog.Logger
}

func NewScheduler(
	id string,
	p persistence.Persistence,
	eventBus eventbus.EventPublisher,
	sweepCron string,
	sweepLimit int,
	logger *slog.Logger,
) *Scheduler {
	return &Scheduler{
		id:          id,
		persistence: p,
		eventBus:    eventBus,
		sweepCron:   sweepCron,
		sweepLimit:  sweepLimit,
		logger:      logger.With("module", "scheduler", "scheduler_id", id),
	}
}

func (s *Scheduler) Start(ctx context.Context) error {
	s.logger.InfoContext(ctx, "Starting scheduler", "cron", s.sweepCron, "limit", s.sweepLimit)

	s.cron = cron.New(cron.WithChain(
		cron.SkipIfStillRunning(cron.DefaultLogger),
		cron.Recover(cron.DefaultLogger),
	))

	_, err := s.cron.AddFunc(s.sweepCron, func() {
		if err := s.Sweep(ctx, time.Now().UTC()); err != nil {
			s.logger.ErrorContext(ctx, "Sweep failed", "error", err)
		}
	})
	if err != nil {
		return fmt.Errorf("failed to add sweep cron job: %w", err)
	}

	s.cron.Start()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-sigChan:
		s.logger.InfoContext(ctx, "Shutting down scheduler...")
	case <-ctx.Done():
		s.logger.InfoContext(ctx, "Context cancelled, shutting down scheduler...")
	}

	stopCtx := s.cron.Stop()
	<-stopCtx.Done()

	return nil
}

// Sweep publishes a wake-up for every due enrollment, oldest first.
func (s *Scheduler) Sweep(ctx context.Context, now time.Time) error {
	due, err := s.persistence.Enrollments().ListDue(ctx, now, s.sweepLimit)
	if err != nil {
		return fmt.Errorf("failed to list due enrollments: %w", err)
	}

	if len(due) == 0 {
		return nil
	}

	s.logger.InfoContext(ctx, "Waking due enrollments", "count", len(due))

	for _, enrollment := range due {
		event := events.StepDue{
			BaseEvent:    events.NewBaseEvent(events.StepDueEvent),
			EnrollmentID: enrollment.ID,
		}
		event.SourceID = s.id

		if err := s.eventBus.Publish(ctx, enrollment.ID, event); err != nil {
			s.logger.ErrorContext(ctx, "Failed to publish step due event",
				"enrollment_id", enrollment.ID, "error", err)

			return err
		}
	}

	return nil
}
