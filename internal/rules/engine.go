package rules

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/teemow/todoagent/internal/email"
	"github.com/teemow/todoagent/internal/instrumentation"
	"github.com/teemow/todoagent/internal/logging"
)

// MatchThreshold is the minimum share of declared criteria that must match.
const MatchThreshold = 0.5

// Labeler writes a label to a message.
type Labeler interface {
	AddLabel(ctx context.Context, emailID, label string) error
}

// Engine evaluates emails against the active rules of a Store.
type Engine struct {
	store   *Store
	labeler Labeler
	logger  *slog.Logger
	metrics *instrumentation.Metrics
}

// NewEngine creates an engine. logger and metrics may be nil.
func NewEngine(store *Store, labeler Labeler, logger *slog.Logger, metrics *instrumentation.Metrics) *Engine {
	return &Engine{
		store:   store,
		labeler: labeler,
		logger:  logging.WithComponent(logging.OrDefault(logger), "rules"),
		metrics: metrics,
	}
}

// Store returns the rule store the engine reads from.
func (e *Engine) Store() *Store {
	return e.store
}

// Evaluate runs the active rules in priority order and stops at the first
// match. On a match the rule statistics are updated and the rule's label is
// written to the email before returning. A label write failure is returned
// together with the match.
func (e *Engine) Evaluate(ctx context.Context, msg *email.Email) (Match, error) {
	ctx, span := instrumentation.StartSpan(ctx, "rules.evaluate",
		instrumentation.SpanFields{EmailID: msg.ID}.Attributes()...)
	defer span.End()

	m := e.Preview(msg)
	if !m.Matched {
		return m, nil
	}

	e.store.recordMatch(m.Rule.ID)
	m.Rule.MatchCount++
	e.metrics.RecordRuleMatch(ctx, m.Rule.Name)
	span.SetAttributes(instrumentation.SpanFields{Rule: m.Rule.Name, Label: m.Rule.Action.Label}.Attributes()...)

	e.logger.Info("rule matched",
		logging.EmailID(msg.ID),
		logging.Rule(m.Rule.Name),
		logging.Label(m.Rule.Action.Label),
		slog.Float64("confidence", m.Confidence))

	if err := e.labeler.AddLabel(ctx, msg.ID, m.Rule.Action.Label); err != nil {
		instrumentation.SetSpanError(span, err)
		return m, fmt.Errorf("failed to apply label %s from rule %s: %w", m.Rule.Action.Label, m.Rule.Name, err)
	}
	return m, nil
}

// Preview evaluates without side effects.
func (e *Engine) Preview(msg *email.Email) Match {
	for _, r := range e.store.Active() {
		if m := Score(&r, msg); m.Matched {
			return m
		}
	}
	return Match{}
}

// Score evaluates a single rule against an email.
func Score(r *Rule, msg *email.Email) Match {
	c := r.Criteria
	subject := strings.ToLower(msg.Subject)
	content := strings.ToLower(msg.Body + " " + msg.Snippet)

	if len(c.ExcludeKeywords) > 0 &&
		(containsAny(subject, c.ExcludeKeywords) || containsAny(content, c.ExcludeKeywords)) {
		return Match{}
	}

	total := c.criteriaCount()
	if total == 0 {
		return Match{}
	}

	var matched []string
	if len(c.From) > 0 && containsAny(strings.ToLower(msg.From), c.From) {
		matched = append(matched, "from")
	}
	if len(c.FromDomain) > 0 {
		if domain := email.SenderDomain(msg.From); domain != "" && containsAny(domain, c.FromDomain) {
			matched = append(matched, "fromDomain")
		}
	}
	if len(c.Subject) > 0 && containsAny(subject, c.Subject) {
		matched = append(matched, "subject")
	}
	if len(c.BodyKeywords) > 0 && containsAny(content, c.BodyKeywords) {
		matched = append(matched, "bodyKeywords")
	}

	confidence := float64(len(matched)) / float64(total)
	if len(matched) == 0 || confidence < MatchThreshold {
		return Match{Confidence: confidence, MatchedCriteria: matched}
	}

	return Match{
		Matched:         true,
		Rule:            r,
		Confidence:      confidence,
		MatchedCriteria: matched,
	}
}

// containsAny reports whether any needle is a case-insensitive substring of
// haystack. haystack must already be lowercased.
func containsAny(haystack string, needles []string) bool {
	for _, n := range needles {
		n = strings.ToLower(strings.TrimSpace(n))
		if n != "" && strings.Contains(haystack, n) {
			return true
		}
	}
	return false
}
