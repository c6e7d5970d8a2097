package pipeline

import (
	"context"

	"github.com/teemow/todoagent/internal/classifier"
	"github.com/teemow/todoagent/internal/email"
	"github.com/teemow/todoagent/internal/rules"
	"github.com/teemow/todoagent/internal/tasks"
)

// MailProvider reads messages and writes labels.
type MailProvider interface {
	FetchEmails(ctx context.Context, query string, max int) ([]*email.Email, error)
	FetchEmailByID(ctx context.Context, id string) (*email.Email, error)
	AddLabel(ctx context.Context, emailID, label string) error
	RemoveLabel(ctx context.Context, emailID, label string) error
}

// TaskTracker creates tasks.
type TaskTracker interface {
	CreateTask(ctx context.Context, task tasks.NewTask) (*tasks.Task, error)
}

// RuleEvaluator applies the rule set to an email.
type RuleEvaluator interface {
	Evaluate(ctx context.Context, msg *email.Email) (rules.Match, error)
}

// Classifier is the AI fallback used when no rule matches.
type Classifier interface {
	Available() bool
	Classify(ctx context.Context, msg *email.Email) (classifier.Verdict, error)
}

var (
	_ RuleEvaluator = (*rules.Engine)(nil)
	_ Classifier    = (*classifier.Classifier)(nil)
)
