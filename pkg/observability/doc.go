// Package observability provides structured logging, Prometheus metrics,
// health checks, optional OpenTelemetry tracing, and graceful shutdown
// for the taskdeck server.
package observability
