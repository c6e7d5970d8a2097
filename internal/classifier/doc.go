// Package classifier decides with a language model whether an email is
// actionable and which TodoAgent label it deserves.
//
// The model sits behind the Completer interface. OpenAICompleter talks to the
// OpenAI chat completions API (or any compatible endpoint) through a circuit
// breaker; tests install an in-memory completer. A failed call or an
// unreadable answer degrades to FallbackVerdict, which never creates a task.
//
// Successful verdicts are kept in a bounded history that feeds Stats and
// SenderPatterns, which in turn drive rule suggestions.
package classifier
