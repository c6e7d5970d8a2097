// Package agent_tools exposes the agent as MCP tools: processing single
// emails, queries and batch cycles, managing rules, and reading statistics.
package agent_tools
