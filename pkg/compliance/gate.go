// Package compliance authorizes sends against quiet hours, business
// hours, per-channel rate limits, and opt-out lists. The gate only
// authorizes; it never sends.
package compliance

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/cadencehq/cadence/pkg/models"
)

// DecisionKind tags the outcome of an authorization check.
type DecisionKind string

const (
	DecisionAllow DecisionKind = "allow"
	DecisionDefer DecisionKind = "defer"
	DecisionBlock DecisionKind = "block"
)

// Decision is the typed result of Gate.Authorize. Defer carries the time
// the check should be repeated; Block carries a permanent reason.
type Decision struct {
	Kind     DecisionKind
	ResumeAt time.Time
	Reason   string
}

func Allow() Decision {
	return Decision{Kind: DecisionAllow}
}

func Defer(resumeAt time.Time) Decision {
	return Decision{Kind: DecisionDefer, ResumeAt: resumeAt}
}

func Block(reason string) Decision {
	return Decision{Kind: DecisionBlock, Reason: reason}
}

// SettingsSource yields the current compliance settings. Settings are
// re-read on every check so edits take effect on the next authorization,
// never retroactively.
type SettingsSource interface {
	Settings(ctx context.Context) (models.ComplianceSettings, error)
}

// OptOutStore records permanent per-channel unsubscribes.
type OptOutStore interface {
	IsOptedOut(ctx context.Context, channel, contactID string) (bool, error)
	RecordOptOut(ctx context.Context, channel, contactID string) error
}

// RateCounter maintains fixed calendar-window send counts per channel.
// Reserve is check-and-increment as one operation so two concurrent
// executions cannot both observe capacity and jointly exceed a limit.
type RateCounter interface {
	Reserve(ctx context.Context, channel string, now time.Time, hourlyLimit, dailyLimit int) (bool, time.Time, error)
}

// Gate runs the ordered authorization checks before any send.
type Gate struct {
	settings SettingsSource
	optouts  OptOutStore
	counter  RateCounter
	logger   *slog.Logger
}

func NewGate(settings SettingsSource, optouts OptOutStore, counter RateCounter, logger *slog.Logger) *Gate {
	return &Gate{
		settings: settings,
		optouts:  optouts,
		counter:  counter,
		logger:   logger.With("module", "compliance_gate"),
	}
}

// Authorize runs the checks in order: opt-out, quiet hours, business
// hours, rate limits. The rate-limit check reserves capacity atomically
// with the Allow decision, so a returned Allow means the send is already
// counted.
func (g *Gate) Authorize(ctx context.Context, channel, contactID string, now time.Time) (Decision, error) {
	settings, err := g.settings.Settings(ctx)
	if err != nil {
		return Decision{}, fmt.Errorf("failed to load compliance settings: %w", err)
	}

	optedOut, err := g.optouts.IsOptedOut(ctx, channel, contactID)
	if err != nil {
		return Decision{}, fmt.Errorf("failed to check opt-out for contact %s: %w", contactID, err)
	}

	if optedOut {
		return Block("unsubscribed"), nil
	}

	if decision, deferred := quietHoursDecision(settings, now); deferred {
		return decision, nil
	}

	if decision, deferred := businessHoursDecision(settings, now); deferred {
		return decision, nil
	}

	hourly := settings.HourlyLimit(channel)
	daily := settings.DailyLimit(channel)

	if hourly > 0 || daily > 0 {
		allowed, resumeAt, err := g.counter.Reserve(ctx, channel, now, hourly, daily)
		if err != nil {
			return Decision{}, fmt.Errorf("failed to reserve rate-limit capacity for channel %s: %w", channel, err)
		}

		if !allowed {
			g.logger.DebugContext(ctx, "Rate limit reached",
				"channel", channel, "resume_at", resumeAt)

			return Defer(resumeAt), nil
		}
	}

	return Allow(), nil
}

// MatchesStopKeyword reports whether an inbound reply body is one of the
// configured stop keywords. Matching is case-insensitive on the trimmed
// body or its first word.
func MatchesStopKeyword(settings models.ComplianceSettings, body string) bool {
	trimmed := strings.TrimSpace(body)
	if trimmed == "" {
		return false
	}

	first, _, _ := strings.Cut(trimmed, " ")

	for _, keyword := range settings.SMSStopKeywords {
		if strings.EqualFold(trimmed, keyword) || strings.EqualFold(first, keyword) {
			return true
		}
	}

	return false
}

// quietHoursDecision defers when now falls inside the configured quiet
// window. A start later than end means the window wraps midnight.
func quietHoursDecision(settings models.ComplianceSettings, now time.Time) (Decision, bool) {
	if !settings.QuietHoursEnabled {
		return Decision{}, false
	}

	loc := loadLocation(settings.QuietHoursTimezone)
	local := now.In(loc)

	startH, startM, ok := parseClock(settings.QuietHoursStart)
	if !ok {
		return Decision{}, false
	}

	endH, endM, ok := parseClock(settings.QuietHoursEnd)
	if !ok {
		return Decision{}, false
	}

	minutes := local.Hour()*60 + local.Minute()
	start := startH*60 + startM
	end := endH*60 + endM

	inWindow := false
	if start > end {
		inWindow = minutes >= start || minutes < end
	} else {
		inWindow = minutes >= start && minutes < end
	}

	if !inWindow {
		return Decision{}, false
	}

	resume := time.Date(local.Year(), local.Month(), local.Day(), endH, endM, 0, 0, loc)
	if !resume.After(local) {
		resume = resume.AddDate(0, 0, 1)
	}

	return Defer(resume), true
}

// businessHoursDecision defers when restrict-to-business-hours is set and
// now falls outside the configured days or daily window.
func businessHoursDecision(settings models.ComplianceSettings, now time.Time) (Decision, bool) {
	if !settings.BusinessHoursOnly {
		return Decision{}, false
	}

	loc := loadLocation(settings.QuietHoursTimezone)
	local := now.In(loc)

	startH, startM, ok := parseClock(settings.BusinessHoursStart)
	if !ok {
		return Decision{}, false
	}

	endH, endM, ok := parseClock(settings.BusinessHoursEnd)
	if !ok {
		return Decision{}, false
	}

	minutes := local.Hour()*60 + local.Minute()
	start := startH*60 + startM
	end := endH*60 + endM

	if isBusinessDay(settings.BusinessDays, local.Weekday()) && minutes >= start && minutes < end {
		return Decision{}, false
	}

	// Walk forward to the next business-hours start, at most a week out.
	for offset := 0; offset <= 7; offset++ {
		candidate := local.AddDate(0, 0, offset)
		if !isBusinessDay(settings.BusinessDays, candidate.Weekday()) {
			continue
		}

		resume := time.Date(candidate.Year(), candidate.Month(), candidate.Day(), startH, startM, 0, 0, loc)
		if resume.After(local) {
			return Defer(resume), true
		}
	}

	return Defer(local.AddDate(0, 0, 1)), true
}

func isBusinessDay(days []string, weekday time.Weekday) bool {
	for _, day := range days {
		if strings.EqualFold(day, weekday.String()) {
			return true
		}
	}

	return false
}

// parseClock parses "HH:MM" wall-clock strings.
func parseClock(clock string) (int, int, bool) {
	hourStr, minStr, found := strings.Cut(clock, ":")
	if !found {
		return 0, 0, false
	}

	hour, err := strconv.Atoi(hourStr)
	if err != nil || hour < 0 || hour > 23 {
		return 0, 0, false
	}

	minute, err := strconv.Atoi(minStr)
	if err != nil || minute < 0 || minute > 59 {
		return 0, 0, false
	}

	return hour, minute, true
}

func loadLocation(name string) *time.Location {
	loc, err := time.LoadLocation(name)
	if err != nil {
		return time.UTC
	}

	return loc
}
