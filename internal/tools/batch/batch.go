package batch

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/teemow/todoagent/internal/pipeline"
)

// Status values of a Result.
const (
	StatusSuccess = "success"
	StatusError   = "error"
)

// Result is the outcome of processing one email within a batch.
type Result struct {
	ID      string `json:"id"`
	Status  string `json:"status"`
	Outcome string `json:"outcome,omitempty"`
	TaskID  string `json:"taskId,omitempty"`
	Message string `json:"message,omitempty"`
	Error   string `json:"error,omitempty"`
}

// Summary aggregates a batch.
type Summary struct {
	Total        int      `json:"total"`
	Successful   int      `json:"successful"`
	Failed       int      `json:"failed"`
	TasksCreated int      `json:"tasksCreated"`
	Skipped      int      `json:"skipped"`
	Results      []Result `json:"results"`
}

// ParseIDs accepts an email id parameter given as a single string, a
// comma-separated string or an array of strings. Duplicates are dropped.
func ParseIDs(param any, paramName string) ([]string, error) {
	if param == nil {
		return nil, fmt.Errorf("%s is required", paramName)
	}

	var raw []string
	switch v := param.(type) {
	case string:
		raw = strings.Split(v, ",")
	case []any:
		for i, item := range v {
			s, ok := item.(string)
			if !ok {
				return nil, fmt.Errorf("%s[%d] must be a string", paramName, i)
			}
			if strings.TrimSpace(s) == "" {
				return nil, fmt.Errorf("%s[%d] cannot be empty", paramName, i)
			}
			raw = append(raw, s)
		}
	default:
		return nil, fmt.Errorf("%s must be a string or array of strings", paramName)
	}

	seen := make(map[string]bool, len(raw))
	ids := make([]string, 0, len(raw))
	for _, id := range raw {
		id = strings.TrimSpace(id)
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		ids = append(ids, id)
	}
	if len(ids) == 0 {
		return nil, fmt.Errorf("%s cannot be empty", paramName)
	}
	return ids, nil
}

// FromPipeline converts a pipeline result.
func FromPipeline(r pipeline.Result) Result {
	status := StatusSuccess
	if !r.Success {
		status = StatusError
	}
	return Result{
		ID:      r.EmailID,
		Status:  status,
		Outcome: r.Outcome,
		TaskID:  r.TaskID,
		Message: r.Message,
		Error:   r.Error,
	}
}

// Process runs fn for each id in order. Ids left when ctx is cancelled are
// reported as errors.
func Process(ctx context.Context, ids []string, fn func(ctx context.Context, id string) pipeline.Result) []Result {
	results := make([]Result, 0, len(ids))
	for _, id := range ids {
		if err := ctx.Err(); err != nil {
			results = append(results, Result{ID: id, Status: StatusError, Error: err.Error()})
			continue
		}
		results = append(results, FromPipeline(fn(ctx, id)))
	}
	return results
}

// Summarize counts the results.
func Summarize(results []Result) Summary {
	s := Summary{Total: len(results), Results: results}
	for _, r := range results {
		if r.Status == StatusSuccess {
			s.Successful++
		} else {
			s.Failed++
		}
		switch r.Outcome {
		case pipeline.OutcomeTaskCreated:
			s.TasksCreated++
		case pipeline.OutcomeSkipped:
			s.Skipped++
		}
	}
	return s
}

// FormatResults renders the summary of results as indented JSON.
func FormatResults(results []Result) string {
	out, _ := json.MarshalIndent(Summarize(results), "", "  ")
	return string(out)
}
