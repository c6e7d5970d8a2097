package pipeline

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"

	"github.com/teemow/todoagent/internal/classifier"
	"github.com/teemow/todoagent/internal/email"
	"github.com/teemow/todoagent/internal/tasks"
)

type fakeMail struct {
	mu       sync.Mutex
	emails   map[string]*email.Email
	order    []string
	fetchErr error
	labelErr map[string]error
	fetches  int
}

func newFakeMail(msgs ...*email.Email) *fakeMail {
	f := &fakeMail{emails: map[string]*email.Email{}, labelErr: map[string]error{}}
	for _, m := range msgs {
		f.emails[m.ID] = m
		f.order = append(f.order, m.ID)
	}
	return f
}

func (f *fakeMail) FetchEmails(_ context.Context, _ string, max int) ([]*email.Email, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fetchErr != nil {
		return nil, f.fetchErr
	}
	var out []*email.Email
	for _, id := range f.order {
		if len(out) == max {
			break
		}
		out = append(out, f.copyLocked(id))
	}
	return out, nil
}

func (f *fakeMail) FetchEmailByID(_ context.Context, id string) (*email.Email, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.fetches++
	if _, ok := f.emails[id]; !ok {
		return nil, fmt.Errorf("get %s: %w", id, email.ErrNotFound)
	}
	return f.copyLocked(id), nil
}

func (f *fakeMail) copyLocked(id string) *email.Email {
	c := *f.emails[id]
	c.Labels = slices.Clone(c.Labels)
	return &c
}

func (f *fakeMail) AddLabel(_ context.Context, id, label string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.labelErr[label]; err != nil {
		return err
	}
	m, ok := f.emails[id]
	if !ok {
		return email.ErrNotFound
	}
	if !slices.Contains(m.Labels, label) {
		m.Labels = append(m.Labels, label)
	}
	return nil
}

func (f *fakeMail) RemoveLabel(_ context.Context, id, label string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if m, ok := f.emails[id]; ok {
		m.Labels = slices.DeleteFunc(m.Labels, func(l string) bool { return l == label })
	}
	return nil
}

func (f *fakeMail) labels(id string) []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return slices.Clone(f.emails[id].Labels)
}

type fakeTracker struct {
	mu      sync.Mutex
	created []tasks.NewTask
	err     error
}

func (f *fakeTracker) CreateTask(_ context.Context, t tasks.NewTask) (*tasks.Task, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	f.created = append(f.created, t)
	return &tasks.Task{ID: fmt.Sprintf("task-%d", len(f.created)), Title: t.Title}, nil
}

type fakeClassifier struct {
	available bool
	verdict   classifier.Verdict
	err       error
	panics    bool
	calls     int
}

func (f *fakeClassifier) Available() bool { return f.available }

func (f *fakeClassifier) Classify(context.Context, *email.Email) (classifier.Verdict, error) {
	f.calls++
	if f.panics {
		panic("classifier exploded")
	}
	return f.verdict, f.err
}

var errBoom = errors.New("boom")
