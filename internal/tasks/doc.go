// Package tasks creates Google Tasks entries for actionable emails.
//
// Google Tasks has no notion of priority, category or labels, so CreateTask
// writes them into the task notes together with a link back to the email.
// Free-form due dates suggested by the classifier ("tomorrow", "friday",
// "2026-03-01") are resolved with ParseDueHint.
package tasks
