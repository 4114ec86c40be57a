package worker

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"research-notify/internal/pkg/config"
)

// Store backends selectable with NOTIFY_STORE.
const (
	StorePostgres = "postgres"
	StoreMemory   = "memory"
)

// WorkerConfig holds the operational settings of the notification worker.
//
// Environment variables:
//   - NOTIFY_AUDIT_SCHEDULE: cron expression for the stale-PENDING audit (default "*/15 * * * *")
//   - WORKER_TIMEZONE: IANA zone the audit schedule is evaluated in (default "UTC")
//   - NOTIFY_MAX_RETRIES: rescheduled attempts after a failed delivery, 1-10 (default 3)
//   - NOTIFY_RETRY_BASE_DELAY: delay before the first retry, doubled on each later one (default 2s)
//   - NOTIFY_FIRE_TIMEOUT: bound on one delivery attempt (default 30s)
//   - NOTIFY_BULK_MAX_CONCURRENT: concurrent schedules in a bulk call, 1-50 (default 10)
//   - WORKER_HEALTH_PORT: health and metrics port, 1024-65535 (default 9091)
//   - WORKER_SHUTDOWN_TIMEOUT: wait for in-flight deliveries on shutdown (default 30s)
//   - NOTIFY_STORE: "postgres" or "memory" (default "postgres")
type WorkerConfig struct {
	AuditSchedule     string
	Timezone          string
	MaxRetries        int
	RetryBaseDelay    time.Duration
	FireTimeout       time.Duration
	BulkMaxConcurrent int
	HealthPort        int
	ShutdownTimeout   time.Duration
	Store             string
}

// DefaultConfig returns the production defaults.
func DefaultConfig() WorkerConfig {
	return WorkerConfig{
		AuditSchedule:     "*/15 * * * *",
		Timezone:          "UTC",
		MaxRetries:        3,
		RetryBaseDelay:    2 * time.Second,
		FireTimeout:       30 * time.Second,
		BulkMaxConcurrent: 10,
		HealthPort:        9091,
		ShutdownTimeout:   30 * time.Second,
		Store:             StorePostgres,
	}
}

func validateMaxRetries(v int) error {
	return config.ValidateIntRange(v, 1, 10)
}

func validateBulkConcurrency(v int) error {
	return config.ValidateIntRange(v, 1, 50)
}

func validateHealthPort(v int) error {
	return config.ValidateIntRange(v, 1024, 65535)
}

func validateRetryBase(d time.Duration) error {
	return config.ValidateDuration(d, 10*time.Millisecond, time.Hour)
}

func validateFireTimeout(d time.Duration) error {
	return config.ValidateDuration(d, time.Second, 10*time.Minute)
}

var validateStore = config.ValidateOneOf(StorePostgres, StoreMemory)

// Validate checks every field and reports all violations together.
func (c *WorkerConfig) Validate() error {
	var errs []error
	check := func(field string, err error) {
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", field, err))
		}
	}

	check("audit schedule", config.ValidateCronSchedule(c.AuditSchedule))
	check("timezone", config.ValidateTimezone(c.Timezone))
	check("max retries", validateMaxRetries(c.MaxRetries))
	check("retry base delay", validateRetryBase(c.RetryBaseDelay))
	check("fire timeout", validateFireTimeout(c.FireTimeout))
	check("bulk max concurrent", validateBulkConcurrency(c.BulkMaxConcurrent))
	check("health port", validateHealthPort(c.HealthPort))
	check("shutdown timeout", config.ValidatePositiveDuration(c.ShutdownTimeout))
	check("store", validateStore(c.Store))

	if len(errs) > 0 {
		return fmt.Errorf("validation failed: %w", errors.Join(errs...))
	}
	return nil
}

// LoadConfigFromEnv reads WorkerConfig from the environment. It never fails:
// every invalid value is replaced by its default, logged, and counted in metrics.
func LoadConfigFromEnv(logger *slog.Logger, metrics *WorkerMetrics) (*WorkerConfig, error) {
	cfg := DefaultConfig()
	fallbackApplied := false

	record := func(field string, fellBack bool, warnings []string) {
		if !fellBack {
			return
		}
		fallbackApplied = true
		metrics.RecordValidationError(field)
		metrics.RecordFallback(field)
		for _, warning := range warnings {
			logger.Warn("Configuration fallback applied",
				slog.String("field", field),
				slog.String("warning", warning))
		}
	}

	schedule := config.LoadEnvWithFallback("NOTIFY_AUDIT_SCHEDULE", cfg.AuditSchedule, config.ValidateCronSchedule)
	cfg.AuditSchedule = schedule.Value
	record("audit_schedule", schedule.FallbackApplied, schedule.Warnings)

	tz := config.LoadEnvWithFallback("WORKER_TIMEZONE", cfg.Timezone, config.ValidateTimezone)
	cfg.Timezone = tz.Value
	record("timezone", tz.FallbackApplied, tz.Warnings)

	retries := config.LoadEnvInt("NOTIFY_MAX_RETRIES", cfg.MaxRetries, validateMaxRetries)
	cfg.MaxRetries = retries.Value
	record("max_retries", retries.FallbackApplied, retries.Warnings)

	base := config.LoadEnvDuration("NOTIFY_RETRY_BASE_DELAY", cfg.RetryBaseDelay, validateRetryBase)
	cfg.RetryBaseDelay = base.Value
	record("retry_base_delay", base.FallbackApplied, base.Warnings)

	fire := config.LoadEnvDuration("NOTIFY_FIRE_TIMEOUT", cfg.FireTimeout, validateFireTimeout)
	cfg.FireTimeout = fire.Value
	record("fire_timeout", fire.FallbackApplied, fire.Warnings)

	bulk := config.LoadEnvInt("NOTIFY_BULK_MAX_CONCURRENT", cfg.BulkMaxConcurrent, validateBulkConcurrency)
	cfg.BulkMaxConcurrent = bulk.Value
	record("bulk_max_concurrent", bulk.FallbackApplied, bulk.Warnings)

	port := config.LoadEnvInt("WORKER_HEALTH_PORT", cfg.HealthPort, validateHealthPort)
	cfg.HealthPort = port.Value
	record("health_port", port.FallbackApplied, port.Warnings)

	shutdown := config.LoadEnvDuration("WORKER_SHUTDOWN_TIMEOUT", cfg.ShutdownTimeout, config.ValidatePositiveDuration)
	cfg.ShutdownTimeout = shutdown.Value
	record("shutdown_timeout", shutdown.FallbackApplied, shutdown.Warnings)

	store := config.LoadEnvWithFallback("NOTIFY_STORE", cfg.Store, validateStore)
	cfg.Store = store.Value
	record("store", store.FallbackApplied, store.Warnings)

	metrics.SetFallbackActive(fallbackApplied)
	metrics.RecordLoadTimestamp()

	return &cfg, nil
}

// Location returns the audit schedule's time zone, UTC if it cannot be loaded.
func (c *WorkerConfig) Location() *time.Location {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}
