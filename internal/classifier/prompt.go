package classifier

import (
	"fmt"
	"strings"

	"github.com/teemow/todoagent/internal/email"
)

const (
	promptBodyLimit = 2000
	temperature     = 0.1
)

const systemPrompt = `You triage email for a personal task list. Decide whether the email asks the recipient to do something and, if so, describe the task.

Choose exactly one label:
- TodoAgent_Important: needs attention from the recipient, significant consequences
- TodoAgent_Urgent: must be handled within a day
- TodoAgent_Meeting: a meeting request, invitation or scheduling change
- TodoAgent_Task: a concrete request or to-do without special urgency
- TodoAgent_Skip: informational, automated, marketing or otherwise not actionable

Rules:
- Newsletters, receipts, notifications and promotions are never actionable.
- If the email is not actionable the label must be TodoAgent_Skip.
- Task titles are short imperatives. Keep descriptions under 300 characters.
- priority is 1 (low) to 4 (critical). category is one of task, meeting, urgent, important, followup.
- dueDate is free text such as "tomorrow", "next week" or an ISO date, or empty.

Answer with a single JSON object:
{"isActionable": bool, "suggestedLabel": string, "confidence": number between 0 and 1,
 "taskData": {"title": string, "description": string, "dueDate": string, "priority": number, "category": string},
 "keywords": [string], "reasoning": string, "urgency": "low" | "medium" | "high"}`

func userPrompt(msg *email.Email) string {
	var b strings.Builder
	fmt.Fprintf(&b, "From: %s\n", msg.From)
	fmt.Fprintf(&b, "To: %s\n", msg.To)
	fmt.Fprintf(&b, "Subject: %s\n", msg.Subject)
	fmt.Fprintf(&b, "Snippet: %s\n\n", msg.Snippet)
	b.WriteString("Body:\n")
	b.WriteString(email.Truncate(msg.Body, promptBodyLimit))
	return b.String()
}
