// Package logging holds the slog conventions shared across todoagent:
// attribute keys and constructors, logger construction for the CLI, and
// helpers that keep sender addresses out of log output.
//
// Typical use:
//
//	logger := logging.WithComponent(slog.Default(), "pipeline")
//	logger.Info("task created",
//	    logging.EmailID(id),
//	    logging.Outcome("task_created"),
//	    logging.Sender(e.From))
//
// Sender addresses are hashed. Subjects and bodies are never logged.
package logging
