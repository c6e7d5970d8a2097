// Package instrumentation provides OpenTelemetry metrics and tracing for
// todoagent.
//
// # Metrics
//
// Pipeline:
//   - emails_processed_total / emails_processed_duration_seconds by outcome
//   - rule_matches_total by rule (collapsed to "other" unless tracked or detailed)
//   - ai_classifications_total by label and status, ai_classifications_duration_seconds
//   - tasks_created_total by category
//
// Batch:
//   - batch_runs_total / batch_runs_duration_seconds by status
//
// Google API, HTTP and MCP:
//   - google_api_operations_total / google_api_operations_duration_seconds
//   - http_requests_total / http_requests_duration_seconds
//   - webhook_notifications_total by result
//   - mcp_tool_invocations_total / mcp_tool_invocations_duration_seconds
//
// # Tracing
//
// Spans are created for pipeline runs (pipeline.process), rule evaluation,
// AI classification, batch cycles, Google API calls (google.<service>.<operation>)
// and MCP tool invocations (tool.<name>).
//
// # Configuration
//
// Instrumentation is configured via environment variables:
//   - INSTRUMENTATION_ENABLED: Enable/disable instrumentation (default: true)
//   - METRICS_EXPORTER: prometheus, otlp, stdout (default: prometheus)
//   - TRACING_EXPORTER: otlp, stdout, none (default: none)
//   - OTEL_EXPORTER_OTLP_ENDPOINT: OTLP endpoint for traces/metrics
//   - OTEL_TRACES_SAMPLER_ARG: Sampling rate (0.0 to 1.0, default: 0.1)
//   - OTEL_SERVICE_NAME: Service name (default: todoagent)
//   - METRICS_DETAILED_LABELS: keep rule names verbatim (default: false)
package instrumentation
