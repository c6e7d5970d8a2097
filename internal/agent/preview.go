package agent

import (
	"context"
	"fmt"

	"github.com/teemow/todoagent/internal/classifier"
	"github.com/teemow/todoagent/internal/email"
)

// Preview decisions.
const (
	DecisionDone  = "done"
	DecisionTask  = "task"
	DecisionRule  = "rule"
	DecisionAI    = "ai"
	DecisionBasic = "basic"
)

const previewSubjectLen = 120

// Preview describes what the pipeline would do with an email, without
// writing labels or creating tasks.
type Preview struct {
	EmailID  string              `json:"emailId"`
	From     string              `json:"from"`
	Subject  string              `json:"subject"`
	Status   string              `json:"status"`
	Decision string              `json:"decision"`
	Rule     string              `json:"rule,omitempty"`
	Label    string              `json:"label,omitempty"`
	Verdict  *classifier.Verdict `json:"verdict,omitempty"`
}

// PreviewEmails dry-runs the decision for every email matching query, up to
// max. An empty query uses the scheduler's base query. Emails that no label
// or rule decides are classified together with ClassifyBatch when AI is
// available; those verdicts are recorded in the AI history like any other.
func (a *Agent) PreviewEmails(ctx context.Context, query string, max int) ([]Preview, error) {
	if query == "" {
		query = a.scheduler.Config().BaseQuery
	}
	msgs, err := a.mail.FetchEmails(ctx, query, max)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch emails: %w", err)
	}

	previews := make([]Preview, len(msgs))
	var (
		pending []*email.Email
		slots   []int
	)
	for i, msg := range msgs {
		p := Preview{
			EmailID: msg.ID,
			From:    msg.From,
			Subject: email.Truncate(msg.Subject, previewSubjectLen),
		}
		state := email.DeriveStatus(msg.Labels)
		p.Status = state.Status.String()

		switch {
		case state.Status.Terminal():
			p.Decision = DecisionDone
		case state.Status == email.StatusCategorized:
			p.Decision, p.Label = DecisionTask, state.Category
		default:
			if m := a.engine.Preview(msg); m.Matched {
				p.Decision, p.Rule, p.Label = DecisionRule, m.Rule.Name, m.Rule.Action.Label
			} else if a.classifier.Available() {
				p.Decision = DecisionAI
				pending = append(pending, msg)
				slots = append(slots, i)
			} else {
				p.Decision = DecisionBasic
			}
		}
		previews[i] = p
	}

	if len(pending) == 0 {
		return previews, nil
	}
	verdicts, err := a.classifier.ClassifyBatch(ctx, pending)
	for j, v := range verdicts {
		previews[slots[j]].Verdict = &v
		previews[slots[j]].Label = v.SuggestedLabel
	}
	if err != nil {
		return previews, fmt.Errorf("classification interrupted: %w", err)
	}
	return previews, nil
}
