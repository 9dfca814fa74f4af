// Package observability provides the archive's logging, metrics and tracing.
//
// Logging is zap throughout. The logger is built around a zap.AtomicLevel
// so the configuration watcher can change verbosity without a restart.
//
// Metrics are Prometheus collectors registered on a private registry, which
// keeps repeated construction in tests from tripping duplicate registration.
//
// Tracing is OpenTelemetry with an OTLP gRPC exporter; when tracing is
// disabled the global no-op provider is used and spans cost nothing.
package observability
