package engine

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/cadencehq/cadence/pkg/compliance"
)

// RetryScheduler decides whether a failed step gets another attempt and
// when. Backoff is a fixed delay from configuration, not exponential.
type RetryScheduler struct {
	settings compliance.SettingsSource
	logger   *slog.Logger
}

func NewRetryScheduler(settings compliance.SettingsSource, logger *slog.Logger) *RetryScheduler {
	return &RetryScheduler{
		settings: settings,
		logger:   logger.With("module", "retry_scheduler"),
	}
}

// ScheduleRetry returns the time of the next attempt, or giveUp true when
// retries are disabled or attemptCount has reached max_retries.
func (s *RetryScheduler) ScheduleRetry(ctx context.Context, attemptCount int, now time.Time) (time.Time, bool, error) {
	settings, err := s.settings.Settings(ctx)
	if err != nil {
		return time.Time{}, false, fmt.Errorf("failed to load compliance settings: %w", err)
	}

	if !settings.RetryFailedActions || attemptCount >= settings.MaxRetries {
		s.logger.DebugContext(ctx, "Retry budget exhausted",
			"attempts", attemptCount, "max_retries", settings.MaxRetries)

		return time.Time{}, true, nil
	}

	resumeAt := now.Add(time.Duration(settings.RetryDelayMinutes) * time.Minute)

	return resumeAt, false, nil
}
