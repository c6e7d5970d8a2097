package batch

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teemow/todoagent/internal/pipeline"
)

func TestParseIDs(t *testing.T) {
	tests := []struct {
		name    string
		input   any
		want    []string
		wantErr bool
	}{
		{"single string", "abc", []string{"abc"}, false},
		{"comma separated", "a, b ,c", []string{"a", "b", "c"}, false},
		{"array", []any{"a", "b"}, []string{"a", "b"}, false},
		{"duplicates dropped", []any{"a", "b", "a"}, []string{"a", "b"}, false},
		{"nil", nil, nil, true},
		{"empty string", "", nil, true},
		{"only commas", " , ,", nil, true},
		{"empty array", []any{}, nil, true},
		{"array with number", []any{"a", 1.0}, nil, true},
		{"array with blank", []any{"a", " "}, nil, true},
		{"wrong type", 42.0, nil, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseIDs(tt.input, "emailIds")
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestProcess(t *testing.T) {
	outcomes := map[string]pipeline.Result{
		"a": {EmailID: "a", Success: true, Outcome: pipeline.OutcomeTaskCreated, TaskID: "t1"},
		"b": {EmailID: "b", Success: true, Outcome: pipeline.OutcomeSkipped, Message: "rule marked to skip"},
		"c": {EmailID: "c", Outcome: pipeline.OutcomeFailed, Error: "boom"},
	}
	var calls []string
	fn := func(_ context.Context, id string) pipeline.Result {
		calls = append(calls, id)
		return outcomes[id]
	}

	results := Process(context.Background(), []string{"a", "b", "c"}, fn)
	assert.Equal(t, []string{"a", "b", "c"}, calls)
	require.Len(t, results, 3)
	assert.Equal(t, Result{ID: "a", Status: StatusSuccess, Outcome: pipeline.OutcomeTaskCreated, TaskID: "t1"}, results[0])
	assert.Equal(t, StatusError, results[2].Status)
	assert.Equal(t, "boom", results[2].Error)

	s := Summarize(results)
	assert.Equal(t, Summary{Total: 3, Successful: 2, Failed: 1, TasksCreated: 1, Skipped: 1, Results: results}, s)

	var decoded Summary
	require.NoError(t, json.Unmarshal([]byte(FormatResults(results)), &decoded))
	assert.Equal(t, 3, decoded.Total)
	assert.Equal(t, 1, decoded.TasksCreated)
}

func TestProcessCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	called := false
	results := Process(ctx, []string{"a", "b"}, func(context.Context, string) pipeline.Result {
		called = true
		return pipeline.Result{}
	})
	assert.False(t, called)
	require.Len(t, results, 2)
	assert.Equal(t, StatusError, results[1].Status)
	assert.Equal(t, context.Canceled.Error(), results[1].Error)
}
