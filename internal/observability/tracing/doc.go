// Package tracing sets up OpenTelemetry for the worker.
//
// The engine opens a "notify.fire" span for every delivery attempt; the HTTP
// middleware traces the health and metrics endpoints.
//
//	shutdown := tracing.Install(tracing.NewProvider("research-notify", 1))
//	defer shutdown(context.Background())
package tracing
