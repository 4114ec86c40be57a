// Package observability groups the worker's logging and tracing helpers.
//
// Subpackages:
//   - logging: slog construction, request id and notification attributes
//   - tracing: OpenTelemetry provider setup and HTTP middleware
//
// Prometheus metrics live next to the code they measure (usecase/notify,
// infra/worker) and register through promauto.
package observability
