// Package server provides the HTTP surface of the agent.
//
// HTTPServer carries the webhook route, the Kubernetes health probes and,
// when the MCP server runs over streamable HTTP, the /mcp endpoint.
// MetricsServer exposes Prometheus metrics on a separate port.
// ServerContext hands the agent session to HTTP handlers and MCP tools and
// stops the schedule on shutdown.
package server
