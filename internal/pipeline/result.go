package pipeline

// Outcomes of processing one email.
const (
	OutcomeAlreadyProcessed = "already_processed"
	OutcomeTaskCreated      = "task_created"
	OutcomeSkipped          = "skipped"
	OutcomeFailed           = "failed"
	OutcomeNotFound         = "not_found"
	OutcomeDeferred         = "deferred"
)

// Result reports what happened to one email.
type Result struct {
	EmailID string `json:"emailId"`
	Success bool   `json:"success"`
	Outcome string `json:"outcome"`
	TaskID  string `json:"taskId,omitempty"`
	Message string `json:"message"`
	Error   string `json:"error,omitempty"`
}
