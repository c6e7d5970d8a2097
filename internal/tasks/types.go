package tasks

import (
	"time"

	tasks "google.golang.org/api/tasks/v1"
)

// DefaultList is the Google Tasks alias for the user's default list.
const DefaultList = "@default"

// TaskList is a Google Tasks list the agent can file tasks into.
type TaskList struct {
	ID      string    `json:"id"`
	Title   string    `json:"title"`
	Updated time.Time `json:"updated"`
}

// Task is a task as stored by Google Tasks.
type Task struct {
	ID      string    `json:"id"`
	ListID  string    `json:"listId"`
	Title   string    `json:"title"`
	Notes   string    `json:"notes,omitempty"`
	Status  string    `json:"status"` // "needsAction" or "completed"
	Due     time.Time `json:"due,omitempty"`
	WebLink string    `json:"webLink,omitempty"`
}

// NewTask is the request to create a task for an email.
type NewTask struct {
	Title       string
	Description string
	// Priority is 1 (low) to 4 (critical).
	Priority int
	Category string
	// DueHint is free text such as "tomorrow" or "2026-03-01"; see ParseDueHint.
	DueHint string
	// ProjectID selects the task list. Empty uses the client default.
	ProjectID string
	Labels    []string
	// EmailLink points back at the source email.
	EmailLink string
}

func parseTime(v string) time.Time {
	t, _ := time.Parse(time.RFC3339, v)
	return t
}

func toTaskList(tl *tasks.TaskList) TaskList {
	if tl == nil {
		return TaskList{}
	}
	return TaskList{ID: tl.Id, Title: tl.Title, Updated: parseTime(tl.Updated)}
}

// toTask keeps the list ID because the API response does not carry it.
func toTask(listID string, t *tasks.Task) Task {
	if t == nil {
		return Task{}
	}
	return Task{
		ID:      t.Id,
		ListID:  listID,
		Title:   t.Title,
		Notes:   t.Notes,
		Status:  t.Status,
		Due:     parseTime(t.Due),
		WebLink: t.WebViewLink,
	}
}
