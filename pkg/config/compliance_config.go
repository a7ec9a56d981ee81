// Package config provides configuration loading for compliance settings.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/cadencehq/cadence/pkg/models"
)

// LoadComplianceSettings loads compliance settings from a YAML file.
// Omitted fields keep their default values.
func LoadComplianceSettings(filepath string) (models.ComplianceSettings, error) {
	data, err := os.ReadFile(filepath)
	if err != nil {
		return models.ComplianceSettings{}, fmt.Errorf("failed to read config file %s: %w", filepath, err)
	}

	settings := models.DefaultComplianceSettings()
	if err := yaml.Unmarshal(data, &settings); err != nil {
		return models.ComplianceSettings{}, fmt.Errorf("failed to parse YAML config: %w", err)
	}

	if err := ValidateComplianceSettings(settings); err != nil {
		return models.ComplianceSettings{}, err
	}

	return settings, nil
}

// LoadComplianceSettingsOrDefault attempts to load compliance settings
// from file, falling back to the defaults if the file doesn't exist.
func LoadComplianceSettingsOrDefault(filepath string) models.ComplianceSettings {
	if filepath == "" {
		return models.DefaultComplianceSettings()
	}

	settings, err := LoadComplianceSettings(filepath)
	if err != nil {
		return models.DefaultComplianceSettings()
	}

	return settings
}

// ValidateComplianceSettings validates the loaded settings.
func ValidateComplianceSettings(settings models.ComplianceSettings) error {
	clocks := []struct {
		field string
		value string
	}{
		{"quiet_hours_start", settings.QuietHoursStart},
		{"quiet_hours_end", settings.QuietHoursEnd},
		{"business_hours_start", settings.BusinessHoursStart},
		{"business_hours_end", settings.BusinessHoursEnd},
	}

	for _, clock := range clocks {
		if clock.value == "" {
			continue
		}

		if !validClock(clock.value) {
			return fmt.Errorf("%s: invalid HH:MM time '%s'", clock.field, clock.value)
		}
	}

	if settings.MaxRetries < 0 {
		return fmt.Errorf("max_retries must not be negative")
	}

	if settings.RetryDelayMinutes < 0 {
		return fmt.Errorf("retry_delay_minutes must not be negative")
	}

	for _, limit := range []struct {
		field string
		value int
	}{
		{"email_hourly_limit", settings.EmailHourlyLimit},
		{"email_daily_limit", settings.EmailDailyLimit},
		{"sms_hourly_limit", settings.SMSHourlyLimit},
		{"sms_daily_limit", settings.SMSDailyLimit},
	} {
		if limit.value < 0 {
			return fmt.Errorf("%s must not be negative", limit.field)
		}
	}

	return nil
}

func validClock(value string) bool {
	if len(value) != 5 || value[2] != ':' {
		return false
	}

	hour := int(value[0]-'0')*10 + int(value[1]-'0')
	minute := int(value[3]-'0')*10 + int(value[4]-'0')

	for _, c := range []byte{value[0], value[1], value[3], value[4]} {
		if c < '0' || c > '9' {
			return false
		}
	}

	return hour >= 0 && hour < 24 && minute >= 0 && minute < 60
}
