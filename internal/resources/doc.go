// Package resources provides read-only MCP resources describing the agent:
// the active rule set as YAML and the Gmail labels it manages.
package resources
