package model

import "time"

// Tuning holds the operational knobs loaded from data/modguard.yaml.
type Tuning struct {
	ExpiryPollSeconds      int    `mapstructure:"expiry_poll_seconds"`
	PlatformRetryAttempts  int    `mapstructure:"platform_retry_attempts"`
	PlatformRetryBackoffMS int    `mapstructure:"platform_retry_backoff_ms"`
	AuditLookbackEntries   int    `mapstructure:"audit_lookback_entries"`
	MuteRoleName           string `mapstructure:"mute_role_name"`
}

// ExpiryPoll returns the scheduler poll interval.
func (t Tuning) ExpiryPoll() time.Duration {
	return time.Duration(t.ExpiryPollSeconds) * time.Second
}

// PlatformRetryBackoff returns the base backoff between platform retries.
func (t Tuning) PlatformRetryBackoff() time.Duration {
	return time.Duration(t.PlatformRetryBackoffMS) * time.Millisecond
}

// Config stores the application configuration.
type Config struct {
	BotToken      string
	AppID         string
	LogWebhookURL string
	DatabasePath  string
	Tuning        Tuning
}
