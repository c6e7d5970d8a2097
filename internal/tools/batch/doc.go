// Package batch helps MCP tools that act on several emails at once: it parses
// id parameters given as a string or array, runs each id through the
// pipeline and summarizes the per-email results.
package batch
