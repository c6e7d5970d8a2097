package rules

import (
	"errors"
	"fmt"
	"time"

	"github.com/teemow/todoagent/internal/email"
)

var (
	// ErrRuleNotFound is returned when a rule ID is unknown.
	ErrRuleNotFound = errors.New("rule not found")
	// ErrDuplicateRule is returned when adding a rule whose ID already exists.
	ErrDuplicateRule = errors.New("rule already exists")
	// ErrInvalidRule wraps validation failures.
	ErrInvalidRule = errors.New("invalid rule")
)

// Criteria are the matching conditions of a rule. Each list is optional;
// a populated list is satisfied when any of its values matches.
type Criteria struct {
	From            []string `json:"from,omitempty" yaml:"from,omitempty"`
	FromDomain      []string `json:"fromDomain,omitempty" yaml:"fromDomain,omitempty"`
	Subject         []string `json:"subject,omitempty" yaml:"subject,omitempty"`
	BodyKeywords    []string `json:"bodyKeywords,omitempty" yaml:"bodyKeywords,omitempty"`
	ExcludeKeywords []string `json:"excludeKeywords,omitempty" yaml:"excludeKeywords,omitempty"`
}

// Action is applied when a rule matches.
type Action struct {
	Label string `json:"label" yaml:"label"`
	// Priority overrides the label-derived task priority (1-4). Zero means unset.
	Priority int  `json:"priority,omitempty" yaml:"priority,omitempty"`
	SkipAI   bool `json:"skipAI,omitempty" yaml:"skipAI,omitempty"`
}

// Rule is a named, prioritized criteria-to-label mapping.
type Rule struct {
	ID          string    `json:"id" yaml:"id"`
	Name        string    `json:"name" yaml:"name"`
	Description string    `json:"description,omitempty" yaml:"description,omitempty"`
	Priority    int       `json:"priority" yaml:"priority"`
	Active      bool      `json:"active" yaml:"active"`
	Criteria    Criteria  `json:"criteria" yaml:"criteria"`
	Action      Action    `json:"action" yaml:"action"`
	MatchCount  int       `json:"matchCount" yaml:"-"`
	LastMatched time.Time `json:"lastMatched,omitempty" yaml:"-"`
	CreatedAt   time.Time `json:"createdAt,omitempty" yaml:"-"`
}

// Validate checks a rule before it enters the store.
func (r *Rule) Validate() error {
	if r.Name == "" {
		return fmt.Errorf("%w: name is required", ErrInvalidRule)
	}
	if !email.IsKnownLabel(r.Action.Label) {
		return fmt.Errorf("%w: unknown label %q", ErrInvalidRule, r.Action.Label)
	}
	if r.Action.Label == email.LabelProcessed || r.Action.Label == email.LabelFailed {
		return fmt.Errorf("%w: label %q is reserved for processing state", ErrInvalidRule, r.Action.Label)
	}
	if r.Action.Priority < 0 || r.Action.Priority > 4 {
		return fmt.Errorf("%w: action priority must be between 1 and 4, got %d", ErrInvalidRule, r.Action.Priority)
	}
	return nil
}

// criteriaCount returns the number of populated positive criteria.
func (c Criteria) criteriaCount() int {
	n := 0
	for _, l := range [][]string{c.From, c.FromDomain, c.Subject, c.BodyKeywords} {
		if len(l) > 0 {
			n++
		}
	}
	return n
}

// Match is the result of evaluating an email against the rule set.
type Match struct {
	Matched         bool     `json:"matched"`
	Rule            *Rule    `json:"rule,omitempty"`
	Confidence      float64  `json:"confidence"`
	MatchedCriteria []string `json:"matchedCriteria,omitempty"`
}

// Stats summarizes the rule store.
type Stats struct {
	TotalRules   int            `json:"totalRules"`
	ActiveRules  int            `json:"activeRules"`
	TotalMatches int            `json:"totalMatches"`
	ByRule       map[string]int `json:"byRule"`
	TopRule      string         `json:"topRule,omitempty"`
}
