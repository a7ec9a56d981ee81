package models

// ComplianceSettings is the configuration object edited by the settings
// collaborator. The engine reads it on each authorization check; changes
// take effect on the next check, never retroactively.
type ComplianceSettings struct {
	EmailHourlyLimit int `json:"email_hourly_limit" yaml:"email_hourly_limit"`
	EmailDailyLimit  int `json:"email_daily_limit"  yaml:"email_daily_limit"`
	SMSHourlyLimit   int `json:"sms_hourly_limit"   yaml:"sms_hourly_limit"`
	SMSDailyLimit    int `json:"sms_daily_limit"    yaml:"sms_daily_limit"`

	QuietHoursEnabled  bool   `json:"quiet_hours_enabled"  yaml:"quiet_hours_enabled"`
	QuietHoursStart    string `json:"quiet_hours_start"    yaml:"quiet_hours_start"`
	QuietHoursEnd      string `json:"quiet_hours_end"      yaml:"quiet_hours_end"`
	QuietHoursTimezone string `json:"quiet_hours_timezone" yaml:"quiet_hours_timezone"`

	BusinessHoursOnly  bool     `json:"business_hours_only"  yaml:"business_hours_only"`
	BusinessHoursStart string   `json:"business_hours_start" yaml:"business_hours_start"`
	BusinessHoursEnd   string   `json:"business_hours_end"   yaml:"business_hours_end"`
	BusinessDays       []string `json:"business_days"        yaml:"business_days"`

	SMSStopKeywords []string `json:"sms_stop_keywords" yaml:"sms_stop_keywords"`

	RetryFailedActions bool `json:"retry_failed_actions" yaml:"retry_failed_actions"`
	MaxRetries         int  `json:"max_retries"          yaml:"max_retries"`
	RetryDelayMinutes  int  `json:"retry_delay_minutes"  yaml:"retry_delay_minutes"`
}

// DefaultComplianceSettings mirrors the defaults the settings page starts
// from before the user saves anything.
func DefaultComplianceSettings() ComplianceSettings {
	return ComplianceSettings{
		EmailHourlyLimit:   100,
		EmailDailyLimit:    1000,
		SMSHourlyLimit:     50,
		SMSDailyLimit:      500,
		QuietHoursEnabled:  true,
		QuietHoursStart:    "21:00",
		QuietHoursEnd:      "08:00",
		QuietHoursTimezone: "America/New_York",
		BusinessHoursOnly:  false,
		BusinessHoursStart: "09:00",
		BusinessHoursEnd:   "17:00",
		BusinessDays:       []string{"monday", "tuesday", "wednesday", "thursday", "friday"},
		SMSStopKeywords:    []string{"STOP", "UNSUBSCRIBE", "CANCEL", "END", "QUIT"},
		RetryFailedActions: true,
		MaxRetries:         3,
		RetryDelayMinutes:  30,
	}
}

// HourlyLimit returns the configured per-hour send limit for a channel.
// Zero means unlimited.
func (s ComplianceSettings) HourlyLimit(channel string) int {
	switch channel {
	case "email":
		return s.EmailHourlyLimit
	case "sms":
		return s.SMSHourlyLimit
	}

	return 0
}

// DailyLimit returns the configured per-day send limit for a channel.
// Zero means unlimited.
func (s ComplianceSettings) DailyLimit(channel string) int {
	switch channel {
	case "email":
		return s.EmailDailyLimit
	case "sms":
		return s.SMSDailyLimit
	}

	return 0
}
