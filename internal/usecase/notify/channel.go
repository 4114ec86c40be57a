// Package notify schedules notifications, delivers them through per-type
// channels when they fall due, and retries failed deliveries with backoff.
//
// The Engine owns the in-memory job map. The notification store remains the
// single source of truth: every fire re-reads the record and its student
// status link before anything is dispatched.
package notify

import (
	"context"

	"research-notify/internal/domain/entity"
)

// Channel delivers a rendered notification. One channel is registered per
// notification type.
//
// Retry Policy Contract:
//   - Channels make a single attempt per Send. Rescheduling is the engine's job.
//   - Any returned error counts as a failed attempt.
//
// Thread Safety:
//   - All methods must be safe for concurrent use by multiple goroutines
//
// Context Handling:
//   - Implementations must respect context cancellation and timeout
//   - request_id is available via logging.RequestIDFromContext
type Channel interface {
	// Name returns the channel identifier used in logs, metrics and health output.
	Name() string

	// IsEnabled reports whether the channel may deliver. Sending through a
	// disabled channel fails with ErrChannelDisabled.
	IsEnabled() bool

	// Send delivers p to the recipient recorded on n.
	Send(ctx context.Context, n *entity.Notification, p Payload) error
}

// HealthReporter is implemented by channels whose transport sits behind a
// circuit breaker.
type HealthReporter interface {
	CircuitOpen() bool
}

// ChannelHealthStatus represents the health status of a notification channel.
type ChannelHealthStatus struct {
	Type               entity.NotificationType `json:"type"`
	Name               string                  `json:"name"`
	Enabled            bool                    `json:"enabled"`
	CircuitBreakerOpen bool                    `json:"circuit_breaker_open"`
}
