// Package logging wraps log/slog with the conventions used by the worker:
// JSON output in production, LOG_LEVEL control, request id propagation and
// per-notification attributes.
//
// Example usage:
//
//	logger := logging.NewLogger()
//	slog.SetDefault(logger)
//
//	ctx = logging.WithLogger(ctx, logging.WithNotification(logger, n))
//	logging.FromContext(ctx).Info("notification sent")
package logging
