package server

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/teemow/todoagent/internal/agent"
	"github.com/teemow/todoagent/internal/email"
	"github.com/teemow/todoagent/internal/tasks"
)

type emptyMail struct{}

func (emptyMail) FetchEmails(context.Context, string, int) ([]*email.Email, error) { return nil, nil }
func (emptyMail) FetchEmailByID(context.Context, string) (*email.Email, error) {
	return nil, email.ErrNotFound
}
func (emptyMail) AddLabel(context.Context, string, string) error    { return nil }
func (emptyMail) RemoveLabel(context.Context, string, string) error { return nil }

type nopTracker struct{}

func (nopTracker) CreateTask(_ context.Context, in tasks.NewTask) (*tasks.Task, error) {
	return &tasks.Task{ID: "t1", Title: in.Title}, nil
}

func newTestServerContext(t *testing.T) *ServerContext {
	t.Helper()
	a, err := agent.New(agent.Deps{Mail: emptyMail{}, Tracker: nopTracker{}}, agent.Config{})
	require.NoError(t, err)
	sc := NewServerContext(context.Background(), a, "default")
	t.Cleanup(func() { _ = sc.Shutdown() })
	return sc
}
