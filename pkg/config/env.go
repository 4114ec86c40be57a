// Package config provides plain environment getters for settings that need no
// validation beyond parsing. A value that does not parse is logged and replaced
// by the default.
package config

import (
	"log/slog"
	"time"

	loader "research-notify/internal/pkg/config"
)

// GetEnvString returns the variable's value, or defaultValue when unset or empty.
func GetEnvString(key, defaultValue string) string {
	return loader.LoadEnvString(key, defaultValue)
}

func GetEnvInt(key string, defaultValue int) int {
	return valueOf(key, loader.LoadEnvInt(key, defaultValue, nil))
}

func GetEnvBool(key string, defaultValue bool) bool {
	return valueOf(key, loader.LoadEnvBool(key, defaultValue))
}

// GetEnvDuration parses values such as "30s" or "1h".
func GetEnvDuration(key string, defaultValue time.Duration) time.Duration {
	return valueOf(key, loader.LoadEnvDuration(key, defaultValue, nil))
}

func GetEnvFloat(key string, defaultValue float64) float64 {
	return valueOf(key, loader.LoadEnvFloat(key, defaultValue, nil))
}

func valueOf[T any](key string, r loader.LoadResult[T]) T {
	for _, w := range r.Warnings {
		slog.Warn("invalid environment variable, using default",
			slog.String("key", key),
			slog.String("warning", w))
	}
	return r.Value
}
