package worker

import (
	"research-notify/internal/pkg/config"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// WorkerMetrics embeds the worker_config_* metrics and adds the periodic
// audit job metrics:
//   - worker_audit_runs_total{status}: started, success, failure
//   - worker_audit_duration_seconds
//   - worker_audit_stale_found_total: stale notifications reported across runs
//   - worker_audit_last_success_timestamp
//
// Metrics are registered with the default registry on creation, so
// NewWorkerMetrics may be called once per process.
type WorkerMetrics struct {
	*config.ConfigMetrics

	AuditRunsTotal            *prometheus.CounterVec
	AuditDurationSeconds      prometheus.Histogram
	AuditStaleFoundTotal      prometheus.Counter
	AuditLastSuccessTimestamp prometheus.Gauge
}

func NewWorkerMetrics() *WorkerMetrics {
	return &WorkerMetrics{
		ConfigMetrics: config.NewConfigMetrics("worker"),

		AuditRunsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "worker_audit_runs_total",
			Help: "Total number of stale notification audit runs by status",
		}, []string{"status"}),

		AuditDurationSeconds: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "worker_audit_duration_seconds",
			Help:    "Duration of stale notification audit runs in seconds",
			Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 5, 30},
		}),

		AuditStaleFoundTotal: promauto.NewCounter(prometheus.CounterOpts{
			Name: "worker_audit_stale_found_total",
			Help: "Total number of stale PENDING notifications reported by audit runs",
		}),

		AuditLastSuccessTimestamp: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "worker_audit_last_success_timestamp",
			Help: "Unix timestamp of the last successful audit run",
		}),
	}
}

// RecordAuditRun increments the run counter for status.
func (m *WorkerMetrics) RecordAuditRun(status string) {
	m.AuditRunsTotal.WithLabelValues(status).Inc()
}

func (m *WorkerMetrics) RecordAuditDuration(seconds float64) {
	m.AuditDurationSeconds.Observe(seconds)
}

func (m *WorkerMetrics) RecordStaleFound(count int) {
	m.AuditStaleFoundTotal.Add(float64(count))
}

func (m *WorkerMetrics) RecordLastSuccess() {
	m.AuditLastSuccessTimestamp.SetToCurrentTime()
}
