// Package cmd implements the command-line interface for todoagent.
//
// This package provides the following commands:
//   - run: Process unprocessed inbox emails once (default)
//   - process: Process specific emails by message ID
//   - schedule: Run batch cycles on a timer and accept webhooks
//   - serve: Start the MCP server to expose the agent to AI assistants
//   - rules: List, export and print the default classification rules
//   - auth: Authorize a Google account
//   - version: Display version information
//   - generate-docs: Generate markdown documentation for all MCP tools
package cmd
