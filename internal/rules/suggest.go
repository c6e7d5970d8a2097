package rules

import (
	"fmt"
	"strings"

	"github.com/teemow/todoagent/internal/email"
)

// Thresholds for turning observed sender behaviour into a rule suggestion.
const (
	SuggestMinCount      = 3
	SuggestMinConfidence = 0.8
)

// SenderStat summarizes how emails from one sender were classified.
type SenderStat struct {
	Sender        string
	Label         string
	Count         int
	AvgConfidence float64
}

// Suggestion is a proposed rule derived from classification history.
type Suggestion struct {
	Rule   Rule   `json:"rule"`
	Reason string `json:"reason"`
}

// Suggest proposes a from-rule for every sender that was classified with the
// same label often enough and confidently enough, unless an existing rule
// already names that sender in its from criterion.
func Suggest(stats []SenderStat, existing []Rule) []Suggestion {
	covered := make(map[string]bool)
	for _, r := range existing {
		for _, f := range r.Criteria.From {
			covered[strings.ToLower(strings.TrimSpace(f))] = true
		}
	}

	var out []Suggestion
	for _, s := range stats {
		sender := strings.ToLower(strings.TrimSpace(s.Sender))
		if sender == "" || covered[sender] {
			continue
		}
		if s.Count < SuggestMinCount || s.AvgConfidence < SuggestMinConfidence {
			continue
		}
		if !email.IsKnownLabel(s.Label) || s.Label == email.LabelProcessed || s.Label == email.LabelFailed {
			continue
		}

		r := Rule{
			Name:        "Auto: " + sender,
			Description: fmt.Sprintf("Suggested from %d classifications", s.Count),
			Priority:    5,
			Active:      true,
			Criteria:    Criteria{From: []string{sender}},
			Action:      Action{Label: s.Label, SkipAI: s.Label == email.LabelSkip},
		}
		out = append(out, Suggestion{
			Rule: r,
			Reason: fmt.Sprintf("%s classified %d times as %s with %.0f%% average confidence",
				sender, s.Count, s.Label, s.AvgConfidence*100),
		})
		covered[sender] = true
	}
	return out
}
