// Package agent composes the mail provider, task tracker, rule engine, AI
// classifier, pipeline and scheduler into one session object. The CLI, the
// webhook and the MCP tools all talk to an Agent.
package agent
