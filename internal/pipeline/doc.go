// Package pipeline turns emails into tasks.
//
// For each email the Processor reads its TodoAgent labels first. Processed or
// skipped emails are left alone, and an email that already carries an action
// label only needs its task. Everything else is run through the rule engine
// and, when no rule decides, the AI classifier. While the classifier is
// unavailable a keyword check skips obviously automated mail and a
// FallbackPolicy decides the rest.
//
// Gmail labels are the only state, so a crashed or failed run is simply
// retried: TodoAgent_Failed marks emails that should be picked up again.
package pipeline
