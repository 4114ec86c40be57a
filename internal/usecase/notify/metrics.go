package notify

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Outcome labels for notificationOutcomeTotal.
const (
	outcomeSent      = "sent"
	outcomeCancelled = "cancelled"
	outcomeRetried   = "retried"
	outcomeFailed    = "failed"
)

// Prometheus metrics for notification system monitoring
var (
	// notificationScheduledTotal tracks notifications accepted by the engine per type
	notificationScheduledTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "notification_scheduled_total",
			Help: "Total number of notifications scheduled",
		},
		[]string{"type"},
	)

	// notificationDispatchedTotal tracks total notifications dispatched per channel
	notificationDispatchedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "notification_dispatched_total",
			Help: "Total number of notifications dispatched",
		},
		[]string{"channel"},
	)

	// notificationSentTotal tracks notification send results per channel
	notificationSentTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "notification_sent_total",
			Help: "Total number of notifications sent",
		},
		[]string{"channel", "status"}, // status: success|failure
	)

	// notificationDuration tracks notification send duration
	notificationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "notification_duration_seconds",
			Help:    "Notification send duration in seconds",
			Buckets: []float64{0.1, 0.5, 1, 5, 10, 30}, // 100ms to 30s
		},
		[]string{"channel"},
	)

	// notificationOutcomeTotal tracks what each fire did to the record
	notificationOutcomeTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "notification_outcome_total",
			Help: "Total number of fire outcomes",
		},
		[]string{"outcome"}, // outcome: sent|cancelled|retried|failed
	)

	// notificationRecoveredTotal tracks jobs re-armed at startup
	notificationRecoveredTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "notification_recovered_total",
			Help: "Total number of pending notifications re-armed during recovery",
		},
	)

	// activeJobs tracks armed timers
	activeJobs = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "notification_active_jobs",
			Help: "Number of notifications with an armed timer",
		},
	)

	// stalePending tracks overdue PENDING notifications with no timer
	stalePending = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "notification_stale_pending",
			Help: "Number of PENDING notifications past their schedule without an armed timer",
		},
	)

	// channelsEnabled tracks number of enabled channels
	channelsEnabled = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "notification_channels_enabled",
			Help: "Number of enabled notification channels",
		},
	)
)

// RecordScheduled records a notification accepted for delivery.
func RecordScheduled(notificationType string) {
	notificationScheduledTotal.WithLabelValues(notificationType).Inc()
}

// RecordDispatch records a notification dispatch attempt.
//
// This should be called when a notification is about to be sent to a channel.
func RecordDispatch(channel string) {
	notificationDispatchedTotal.WithLabelValues(channel).Inc()
}

// RecordSuccess records a successful notification send.
//
// This increments the success counter and records the send duration.
func RecordSuccess(channel string, duration time.Duration) {
	notificationSentTotal.WithLabelValues(channel, "success").Inc()
	notificationDuration.WithLabelValues(channel).Observe(duration.Seconds())
}

// RecordFailure records a failed notification send.
func RecordFailure(channel string, duration time.Duration) {
	notificationSentTotal.WithLabelValues(channel, "failure").Inc()
	notificationDuration.WithLabelValues(channel).Observe(duration.Seconds())
}

// RecordOutcome records the state a fire left the notification in.
func RecordOutcome(outcome string) {
	notificationOutcomeTotal.WithLabelValues(outcome).Inc()
}

// RecordRecovered adds count re-armed jobs.
func RecordRecovered(count int) {
	notificationRecoveredTotal.Add(float64(count))
}

// SetActiveJobs sets the number of armed timers.
func SetActiveJobs(count int) {
	activeJobs.Set(float64(count))
}

// SetStalePending sets the last audit's stale count.
func SetStalePending(count int) {
	stalePending.Set(float64(count))
}

// SetChannelsEnabled sets the number of enabled notification channels.
//
// This should be called when the engine is initialized.
func SetChannelsEnabled(count int) {
	channelsEnabled.Set(float64(count))
}
