package tasks

import (
	"time"

	"github.com/mrlokans/animedex/internal/config"
)

// Config holds configuration for the task queue system.
type Config struct {
	// Workers is the number of concurrent task workers. Default: 2
	Workers int

	// MaxRetries is the default maximum retry attempts for failed tasks. Default: 3
	MaxRetries int

	// RetryDelay is the default backoff duration between retries. Default: 1m
	RetryDelay time.Duration

	// TaskTimeout is the default timeout for task execution. Default: 5m
	TaskTimeout time.Duration

	// ReleaseAfter is when stuck tasks are released back to queue. Default: 15m
	ReleaseAfter time.Duration

	// CleanupInterval is how often to clean up completed tasks. Default: 1h
	CleanupInterval time.Duration

	// RetentionDuration is how long to keep completed tasks. Default: 24h
	RetentionDuration time.Duration

	// AuditRetentionDays is passed to scheduled audit cleanups. Default: 30
	AuditRetentionDays int
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		Workers:            2,
		MaxRetries:         3,
		RetryDelay:         1 * time.Minute,
		TaskTimeout:        5 * time.Minute,
		ReleaseAfter:       15 * time.Minute,
		CleanupInterval:    1 * time.Hour,
		RetentionDuration:  24 * time.Hour,
		AuditRetentionDays: 30,
	}
}

// ConfigFrom builds the queue configuration from application settings,
// keeping defaults for unset values.
func ConfigFrom(tasks config.Tasks, audit config.Audit) Config {
	cfg := DefaultConfig()
	if tasks.Workers > 0 {
		cfg.Workers = tasks.Workers
	}
	if tasks.MaxRetries > 0 {
		cfg.MaxRetries = tasks.MaxRetries
	}
	if tasks.RetryDelay > 0 {
		cfg.RetryDelay = tasks.RetryDelay
	}
	if tasks.TaskTimeout > 0 {
		cfg.TaskTimeout = tasks.TaskTimeout
	}
	if tasks.ReleaseAfter > 0 {
		cfg.ReleaseAfter = tasks.ReleaseAfter
	}
	if tasks.CleanupInterval > 0 {
		cfg.CleanupInterval = tasks.CleanupInterval
	}
	if tasks.RetentionDuration > 0 {
		cfg.RetentionDuration = tasks.RetentionDuration
	}
	if audit.RetentionDays > 0 {
		cfg.AuditRetentionDays = audit.RetentionDays
	}
	return cfg
}
