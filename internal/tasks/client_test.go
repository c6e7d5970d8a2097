package tasks

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/option"
	tasks "google.golang.org/api/tasks/v1"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	c, err := NewClient(context.Background(), Config{},
		option.WithEndpoint(srv.URL+"/"),
		option.WithHTTPClient(srv.Client()),
		option.WithoutAuthentication())
	require.NoError(t, err)
	c.now = func() time.Time { return time.Date(2026, 3, 4, 12, 0, 0, 0, time.UTC) }
	return c
}

func TestClient_CreateTask(t *testing.T) {
	var got tasks.Task
	var path string
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		path = r.URL.Path
		require.Equal(t, http.MethodPost, r.Method)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_ = json.NewEncoder(w).Encode(tasks.Task{Id: "t1", Title: got.Title, Notes: got.Notes, Status: "needsAction", Due: got.Due})
	})

	task, err := c.CreateTask(context.Background(), NewTask{
		Title:       "Review proposal",
		Description: "Partner proposal needs feedback",
		Priority:    3,
		Category:    "task",
		DueHint:     "tomorrow",
		Labels:      []string{"email-task"},
		EmailLink:   "https://mail.google.com/mail/u/0/#all/m1",
	})
	require.NoError(t, err)

	assert.True(t, strings.HasSuffix(path, "/lists/@default/tasks"), path)
	assert.Equal(t, "t1", task.ID)
	assert.Equal(t, DefaultList, task.ListID)
	assert.Equal(t, "2026-03-05T00:00:00Z", got.Due)
	assert.Contains(t, got.Notes, "Partner proposal needs feedback")
	assert.Contains(t, got.Notes, "Priority: high")
	assert.Contains(t, got.Notes, "Labels: email-task")
	require.Len(t, got.Links, 1)
	assert.Equal(t, "email", got.Links[0].Type)
}

func TestClient_CreateTaskInProject(t *testing.T) {
	var path string
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		path = r.URL.Path
		_ = json.NewEncoder(w).Encode(tasks.Task{Id: "t2"})
	})

	task, err := c.CreateTask(context.Background(), NewTask{Title: "x", ProjectID: "work-list", DueHint: "someday"})
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(path, "/lists/work-list/tasks"), path)
	assert.Equal(t, "work-list", task.ListID)
}

func TestClient_CreateTaskError(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		_, _ = w.Write([]byte(`{"error":{"code":403,"message":"insufficient scope"}}`))
	})

	_, err := c.CreateTask(context.Background(), NewTask{Title: "x"})
	assert.Error(t, err)
}

func TestClient_ListTaskLists(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(tasks.TaskLists{Items: []*tasks.TaskList{
			{Id: "l1", Title: "My Tasks", Updated: "2026-03-01T10:00:00Z"},
		}})
	})

	lists, err := c.ListTaskLists(context.Background())
	require.NoError(t, err)
	require.Len(t, lists, 1)
	assert.Equal(t, "My Tasks", lists[0].Title)
	assert.False(t, lists[0].Updated.IsZero())
}

func TestFormatNotes(t *testing.T) {
	assert.Equal(t, "", formatNotes(NewTask{}))
	assert.Equal(t, "Priority: critical\nCategory: urgent", formatNotes(NewTask{Priority: 4, Category: "urgent"}))
}

func TestToTask(t *testing.T) {
	assert.Equal(t, Task{}, toTask("l", nil))

	got := toTask("l1", &tasks.Task{Id: "t", Title: "x", Due: "2026-03-05T00:00:00Z", WebViewLink: "https://tasks.google.com/x"})
	assert.Equal(t, "l1", got.ListID)
	assert.False(t, got.Due.IsZero())
	assert.Equal(t, "https://tasks.google.com/x", got.WebLink)
}
