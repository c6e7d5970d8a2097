package rules

import "github.com/teemow/todoagent/internal/email"

// Built-in rule IDs.
const (
	RuleSecurityNotifications = "security-notifications"
	RuleMeetingInvitations    = "meeting-invitations"
	RuleNewsletters           = "newsletters"
	RuleUrgentRequests        = "urgent-requests"
	RulePromotions            = "promotions"
)

// DefaultRules returns the built-in rule set. Security notifications sit
// above meeting invitations so that "new sign-in" mails are never taken for
// calendar traffic.
func DefaultRules() []Rule {
	return []Rule{
		{
			ID:          RuleSecurityNotifications,
			Name:        "Security notifications",
			Description: "Account security and sign-in alerts need no task",
			Priority:    10,
			Active:      true,
			Criteria: Criteria{
				Subject: []string{
					"security alert", "new sign-in", "new login", "sign-in attempt",
					"verification code", "password reset", "password was changed", "2-step verification",
				},
			},
			Action: Action{Label: email.LabelSkip, SkipAI: true},
		},
		{
			ID:          RuleMeetingInvitations,
			Name:        "Meeting invitations",
			Description: "Calendar invitations and meeting requests",
			Priority:    9,
			Active:      true,
			Criteria: Criteria{
				Subject:         []string{"invitation:", "meeting", "updated invitation", "calendar", "zoom", "google meet", "webex"},
				ExcludeKeywords: []string{"declined:", "canceled event", "cancelled event"},
			},
			Action: Action{Label: email.LabelMeeting, Priority: 3},
		},
		{
			ID:          RuleNewsletters,
			Name:        "Newsletters",
			Description: "Bulk mail from no-reply and newsletter senders",
			Priority:    8,
			Active:      true,
			Criteria: Criteria{
				From:    []string{"noreply", "no-reply", "newsletter", "digest", "news@"},
				Subject: []string{"newsletter", "digest", "weekly", "monthly", "edition"},
			},
			Action: Action{Label: email.LabelSkip, SkipAI: true},
		},
		{
			ID:          RuleUrgentRequests,
			Name:        "Urgent requests",
			Description: "Explicitly urgent asks",
			Priority:    7,
			Active:      true,
			Criteria: Criteria{
				Subject:         []string{"urgent", "asap", "immediately", "action required", "time sensitive"},
				ExcludeKeywords: []string{"unsubscribe"},
			},
			Action: Action{Label: email.LabelUrgent, Priority: 4},
		},
		{
			ID:          RulePromotions,
			Name:        "Promotions",
			Description: "Marketing and sales campaigns",
			Priority:    5,
			Active:      true,
			Criteria: Criteria{
				FromDomain: []string{"marketing", "mailchimp", "sendgrid", "promo", "deals"},
				Subject:    []string{"% off", "sale", "discount", "limited time", "special offer"},
			},
			Action: Action{Label: email.LabelSkip, SkipAI: true},
		},
	}
}
