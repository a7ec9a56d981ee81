package compliance

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/cadencehq/cadence/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestGate(t *testing.T, settings models.ComplianceSettings) (*Gate, *MemoryOptOutStore) {
	t.Helper()

	optouts := NewMemoryOptOutStore()
	gate := NewGate(NewStaticSettings(settings), optouts, NewMemoryRateCounter(), testLogger())

	return gate, optouts
}

func permissiveSettings() models.ComplianceSettings {
	settings := models.DefaultComplianceSettings()
	settings.QuietHoursEnabled = false
	settings.BusinessHoursOnly = false

	return settings
}

// mustTime builds a UTC instant for a wall-clock time in the settings
// timezone so quiet-hours tests are independent of the host clock.
func localTime(t *testing.T, tz, value string) time.Time {
	t.Helper()

	loc, err := time.LoadLocation(tz)
	require.NoError(t, err)

	parsed, err := time.ParseInLocation("2006-01-02 15:04", value, loc)
	require.NoError(t, err)

	return parsed
}

func TestGate_OptOutBlocksPermanently(t *testing.T) {
	ctx := context.Background()
	gate, optouts := newTestGate(t, permissiveSettings())

	require.NoError(t, optouts.RecordOptOut(ctx, "sms", "contact-1"))

	decision, err := gate.Authorize(ctx, "sms", "contact-1", time.Now())
	require.NoError(t, err)

	assert.Equal(t, DecisionBlock, decision.Kind)
	assert.Equal(t, "unsubscribed", decision.Reason)

	// A different contact on the same channel is unaffected.
	decision, err = gate.Authorize(ctx, "sms", "contact-2", time.Now())
	require.NoError(t, err)
	assert.Equal(t, DecisionAllow, decision.Kind)
}

func TestGate_QuietHoursSpanningMidnight(t *testing.T) {
	ctx := context.Background()

	settings := permissiveSettings()
	settings.QuietHoursEnabled = true
	settings.QuietHoursStart = "21:00"
	settings.QuietHoursEnd = "08:00"
	settings.QuietHoursTimezone = "America/New_York"

	gate, _ := newTestGate(t, settings)

	// 23:30 local is inside the wrapped window: deferred until 08:00.
	decision, err := gate.Authorize(ctx, "email", "c1", localTime(t, settings.QuietHoursTimezone, "2026-03-02 23:30"))
	require.NoError(t, err)
	assert.Equal(t, DecisionDefer, decision.Kind)

	resume := decision.ResumeAt.In(decision.ResumeAt.Location())
	assert.Equal(t, 8, resume.Hour())
	assert.Equal(t, 3, resume.Day())

	// 03:00 local, same window: deferred until 08:00 the same day.
	decision, err = gate.Authorize(ctx, "email", "c1", localTime(t, settings.QuietHoursTimezone, "2026-03-03 03:00"))
	require.NoError(t, err)
	assert.Equal(t, DecisionDefer, decision.Kind)
	assert.Equal(t, 3, decision.ResumeAt.Day())

	// 09:00 local is outside the window: allowed.
	decision, err = gate.Authorize(ctx, "email", "c1", localTime(t, settings.QuietHoursTimezone, "2026-03-03 09:00"))
	require.NoError(t, err)
	assert.Equal(t, DecisionAllow, decision.Kind)
}

func TestGate_BusinessHours(t *testing.T) {
	ctx := context.Background()

	settings := permissiveSettings()
	settings.BusinessHoursOnly = true
	settings.BusinessHoursStart = "09:00"
	settings.BusinessHoursEnd = "17:00"
	settings.BusinessDays = []string{"monday", "tuesday", "wednesday", "thursday", "friday"}
	settings.QuietHoursTimezone = "America/New_York"

	gate, _ := newTestGate(t, settings)

	// Monday 10:00 is within business hours.
	decision, err := gate.Authorize(ctx, "email", "c1", localTime(t, settings.QuietHoursTimezone, "2026-03-02 10:00"))
	require.NoError(t, err)
	assert.Equal(t, DecisionAllow, decision.Kind)

	// Saturday defers to Monday 09:00.
	decision, err = gate.Authorize(ctx, "email", "c1", localTime(t, settings.QuietHoursTimezone, "2026-03-07 10:00"))
	require.NoError(t, err)
	assert.Equal(t, DecisionDefer, decision.Kind)
	assert.Equal(t, time.Monday, decision.ResumeAt.Weekday())
	assert.Equal(t, 9, decision.ResumeAt.Hour())

	// Monday 18:00 defers to Tuesday 09:00.
	decision, err = gate.Authorize(ctx, "email", "c1", localTime(t, settings.QuietHoursTimezone, "2026-03-02 18:00"))
	require.NoError(t, err)
	assert.Equal(t, DecisionDefer, decision.Kind)
	assert.Equal(t, time.Tuesday, decision.ResumeAt.Weekday())
}

func TestGate_RateLimitBoundary(t *testing.T) {
	ctx := context.Background()

	settings := permissiveSettings()
	settings.SMSHourlyLimit = 2
	settings.SMSDailyLimit = 100

	gate, _ := newTestGate(t, settings)
	now := time.Date(2026, 3, 2, 14, 10, 0, 0, time.UTC)

	for i := 0; i < 2; i++ {
		decision, err := gate.Authorize(ctx, "sms", "c1", now)
		require.NoError(t, err)
		assert.Equal(t, DecisionAllow, decision.Kind)
	}

	// Third send in the same calendar hour defers to the next hour start.
	decision, err := gate.Authorize(ctx, "sms", "c1", now)
	require.NoError(t, err)
	assert.Equal(t, DecisionDefer, decision.Kind)
	assert.Equal(t, time.Date(2026, 3, 2, 15, 0, 0, 0, time.UTC), decision.ResumeAt)

	// A send in the next hour is allowed again.
	decision, err = gate.Authorize(ctx, "sms", "c1", now.Add(time.Hour))
	require.NoError(t, err)
	assert.Equal(t, DecisionAllow, decision.Kind)
}

func TestGate_DailyLimitDefersToNextDay(t *testing.T) {
	ctx := context.Background()

	settings := permissiveSettings()
	settings.EmailHourlyLimit = 100
	settings.EmailDailyLimit = 1

	gate, _ := newTestGate(t, settings)
	now := time.Date(2026, 3, 2, 14, 10, 0, 0, time.UTC)

	decision, err := gate.Authorize(ctx, "email", "c1", now)
	require.NoError(t, err)
	assert.Equal(t, DecisionAllow, decision.Kind)

	decision, err = gate.Authorize(ctx, "email", "c1", now)
	require.NoError(t, err)
	assert.Equal(t, DecisionDefer, decision.Kind)
	assert.Equal(t, time.Date(2026, 3, 3, 0, 0, 0, 0, time.UTC), decision.ResumeAt)
}

func TestMemoryRateCounter_ReserveIsAtomicUnderConcurrency(t *testing.T) {
	ctx := context.Background()
	counter := NewMemoryRateCounter()
	now := time.Date(2026, 3, 2, 14, 0, 0, 0, time.UTC)

	const limit = 10
	const attempts = 100

	var allowed int64
	var mu sync.Mutex
	var wg sync.WaitGroup

	for i := 0; i < attempts; i++ {
		wg.Add(1)

		go func() {
			defer wg.Done()

			ok, _, err := counter.Reserve(ctx, "sms", now, limit, 0)
			require.NoError(t, err)

			if ok {
				mu.Lock()
				allowed++
				mu.Unlock()
			}
		}()
	}

	wg.Wait()
	assert.EqualValues(t, limit, allowed)
}

func TestMatchesStopKeyword(t *testing.T) {
	settings := models.DefaultComplianceSettings()

	assert.True(t, MatchesStopKeyword(settings, "STOP"))
	assert.True(t, MatchesStopKeyword(settings, "stop"))
	assert.True(t, MatchesStopKeyword(settings, "  Unsubscribe  "))
	assert.True(t, MatchesStopKeyword(settings, "STOP all messages"))
	assert.False(t, MatchesStopKeyword(settings, "please stop sending"))
	assert.False(t, MatchesStopKeyword(settings, ""))
	assert.False(t, MatchesStopKeyword(settings, "hello"))
}
