package services

import (
	"context"
	"fmt"
	"time"

	"github.com/cadencehq/cadence/pkg/compliance"
	"github.com/cadencehq/cadence/pkg/models"
)

// SettingsUpdater is the write side of a compliance settings source.
type SettingsUpdater interface {
	compliance.SettingsSource
	Update(settings models.ComplianceSettings)
}

// Settings validates and applies compliance settings changes. Updates
// take effect on the next authorization check.
type Settings struct {
	source SettingsUpdater
}

func NewSettings(source SettingsUpdater) *Settings {
	return &Settings{source: source}
}

func (s *Settings) Get(ctx context.Context) (models.ComplianceSettings, error) {
	return s.source.Settings(ctx)
}

func (s *Settings) Update(ctx context.Context, settings models.ComplianceSettings) error {
	if err := validateSettings(settings); err != nil {
		return err
	}

	s.source.Update(settings)

	return nil
}

func validateSettings(settings models.ComplianceSettings) error {
	clocks := map[string]string{
		"quiet_hours_start":    settings.QuietHoursStart,
		"quiet_hours_end":      settings.QuietHoursEnd,
		"business_hours_start": settings.BusinessHoursStart,
		"business_hours_end":   settings.BusinessHoursEnd,
	}

	for field, value := range clocks {
		if value == "" {
			continue
		}

		if _, err := time.Parse("15:04", value); err != nil {
			return NewValidationError("validateSettings", "INVALID_CLOCK",
				fmt.Sprintf("%s: %q is not a valid HH:MM time", field, value), ErrInvalidClockFormat)
		}
	}

	if settings.QuietHoursTimezone != "" {
		if _, err := time.LoadLocation(settings.QuietHoursTimezone); err != nil {
			return NewValidationError("validateSettings", "INVALID_TIMEZONE",
				fmt.Sprintf("unknown timezone %q", settings.QuietHoursTimezone), ErrInvalidTimezone)
		}
	}

	limits := map[string]int{
		"email_hourly_limit": settings.EmailHourlyLimit,
		"email_daily_limit":  settings.EmailDailyLimit,
		"sms_hourly_limit":   settings.SMSHourlyLimit,
		"sms_daily_limit":    settings.SMSDailyLimit,
	}

	for field, value := range limits {
		if value < 0 {
			return NewValidationError("validateSettings", "INVALID_LIMIT",
				fmt.Sprintf("%s must not be negative", field), ErrInvalidLimit)
		}
	}

	if settings.MaxRetries < 0 {
		return NewValidationError("validateSettings", "INVALID_LIMIT",
			"max_retries must not be negative", ErrInvalidLimit)
	}

	if settings.RetryDelayMinutes < 0 {
		return NewValidationError("validateSettings", "INVALID_LIMIT",
			"retry_delay_minutes must not be negative", ErrInvalidLimit)
	}

	return nil
}
