package pipeline

import (
	"fmt"
	"strings"

	"github.com/teemow/todoagent/internal/email"
)

// FallbackPolicy decides what happens to an email that neither a rule nor
// the AI classifier could categorize and that does not look automated.
type FallbackPolicy string

const (
	// FallbackCreate creates a plain task.
	FallbackCreate FallbackPolicy = "create"
	// FallbackSkip marks the email as skipped.
	FallbackSkip FallbackPolicy = "skip"
	// FallbackDefer leaves the email untouched for a later run.
	FallbackDefer FallbackPolicy = "defer"
)

// ParseFallbackPolicy validates a policy name. Empty selects FallbackCreate.
func ParseFallbackPolicy(s string) (FallbackPolicy, error) {
	switch p := FallbackPolicy(strings.ToLower(strings.TrimSpace(s))); p {
	case "":
		return FallbackCreate, nil
	case FallbackCreate, FallbackSkip, FallbackDefer:
		return p, nil
	default:
		return "", fmt.Errorf("unknown fallback policy %q (want create, skip or defer)", s)
	}
}

var (
	automatedSenders = []string{
		"noreply", "no-reply", "donotreply", "do-not-reply", "newsletter",
		"marketing", "mailer-daemon", "notifications@", "automated",
	}
	automatedSubjects = []string{
		"unsubscribe", "promotion", "digest", "newsletter",
	}
)

// looksAutomated is the keyword check used while the AI classifier is
// unavailable.
func looksAutomated(msg *email.Email) bool {
	from := strings.ToLower(msg.From)
	for _, p := range automatedSenders {
		if strings.Contains(from, p) {
			return true
		}
	}
	subject := strings.ToLower(msg.Subject)
	for _, p := range automatedSubjects {
		if strings.Contains(subject, p) {
			return true
		}
	}
	return false
}
