package tasks

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"google.golang.org/api/option"
	tasks "google.golang.org/api/tasks/v1"

	"github.com/teemow/todoagent/internal/instrumentation"
	"github.com/teemow/todoagent/internal/logging"
)

// Client creates tasks in Google Tasks.
type Client struct {
	svc         *tasks.Service
	defaultList string
	logger      *slog.Logger
	metrics     *instrumentation.Metrics
	now         func() time.Time
}

// Config configures a Client.
type Config struct {
	// DefaultList is the task list used when NewTask.ProjectID is empty.
	DefaultList string
	Logger      *slog.Logger
	Metrics     *instrumentation.Metrics
}

// NewClient creates a Tasks client. Authentication is supplied through opts,
// typically option.WithHTTPClient with a client from the google package.
func NewClient(ctx context.Context, cfg Config, opts ...option.ClientOption) (*Client, error) {
	svc, err := tasks.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create Tasks service: %w", err)
	}

	list := cfg.DefaultList
	if list == "" {
		list = DefaultList
	}
	return &Client{
		svc:         svc,
		defaultList: list,
		logger:      logging.WithComponent(logging.OrDefault(cfg.Logger), "tasks"),
		metrics:     cfg.Metrics,
		now:         time.Now,
	}, nil
}

// CreateTask creates a task from an email-derived request.
func (c *Client) CreateTask(ctx context.Context, in NewTask) (*Task, error) {
	listID := in.ProjectID
	if listID == "" {
		listID = c.defaultList
	}

	t := &tasks.Task{
		Title:  in.Title,
		Notes:  formatNotes(in),
		Status: "needsAction",
	}
	if in.EmailLink != "" {
		t.Links = []*tasks.TaskLinks{{Type: "email", Description: "Source email", Link: in.EmailLink}}
	}
	if due, ok := ParseDueHint(in.DueHint, c.now()); ok {
		t.Due = due.Format(time.RFC3339)
	}

	var created *tasks.Task
	err := c.call(ctx, instrumentation.OperationCreate, func(ctx context.Context) error {
		var err error
		created, err = c.svc.Tasks.Insert(listID, t).Context(ctx).Do()
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create task: %w", err)
	}

	c.logger.Debug("task created",
		slog.String("task_id", created.Id),
		slog.String("list_id", listID),
		slog.Int("priority", in.Priority))
	result := toTask(listID, created)
	return &result, nil
}

// ListTaskLists lists all task lists for the authenticated user
func (c *Client) ListTaskLists(ctx context.Context) ([]TaskList, error) {
	var result *tasks.TaskLists
	err := c.call(ctx, instrumentation.OperationList, func(ctx context.Context) error {
		var err error
		result, err = c.svc.Tasklists.List().Context(ctx).Do()
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list task lists: %w", err)
	}

	lists := make([]TaskList, 0, len(result.Items))
	for _, tl := range result.Items {
		lists = append(lists, toTaskList(tl))
	}
	return lists, nil
}

// call wraps a Tasks API call with a span and an operation metric.
func (c *Client) call(ctx context.Context, op string, fn func(ctx context.Context) error) error {
	ctx, span := instrumentation.StartGoogleAPISpan(ctx, instrumentation.ServiceTasks, op)
	defer span.End()

	start := time.Now()
	err := fn(ctx)
	status := instrumentation.StatusSuccess
	if err != nil {
		status = instrumentation.StatusError
		instrumentation.SetSpanError(span, err)
	}
	c.metrics.RecordGoogleAPIOperation(ctx, instrumentation.ServiceTasks, op, status, time.Since(start))
	return err
}

// formatNotes renders the task body. Google Tasks has no priority or label
// fields, so both are kept as plain lines under the description.
func formatNotes(in NewTask) string {
	var b strings.Builder
	if in.Description != "" {
		b.WriteString(in.Description)
		b.WriteString("\n\n")
	}
	if in.Priority > 0 {
		fmt.Fprintf(&b, "Priority: %s\n", PriorityName(in.Priority))
	}
	if in.Category != "" {
		fmt.Fprintf(&b, "Category: %s\n", in.Category)
	}
	if len(in.Labels) > 0 {
		fmt.Fprintf(&b, "Labels: %s\n", strings.Join(in.Labels, ", "))
	}
	if in.DueHint != "" {
		fmt.Fprintf(&b, "Due: %s\n", in.DueHint)
	}
	if in.EmailLink != "" {
		fmt.Fprintf(&b, "Email: %s\n", in.EmailLink)
	}
	return strings.TrimRight(b.String(), "\n")
}

// PriorityName maps priority 1-4 to a readable name.
func PriorityName(p int) string {
	switch {
	case p >= 4:
		return "critical"
	case p == 3:
		return "high"
	case p == 2:
		return "medium"
	default:
		return "low"
	}
}
