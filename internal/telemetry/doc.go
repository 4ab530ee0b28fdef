// Package telemetry provides structured logging and Prometheus metrics for
// optimization runs.
//
// Logging uses zerolog with console or JSON output. Metrics live on a
// private registry and can be exposed over HTTP with [Metrics.Serve].
package telemetry
