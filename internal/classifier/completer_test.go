package classifier

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teemow/todoagent/internal/email"
)

func TestNewOpenAICompleter_RequiresKey(t *testing.T) {
	_, err := NewOpenAICompleter(OpenAIConfig{}, nil)
	assert.Error(t, err)
}

func TestOpenAICompleter_Complete(t *testing.T) {
	var got map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"c1","object":"chat.completion","model":"gpt-4o-mini",
			"choices":[{"index":0,"message":{"role":"assistant","content":"{\"isActionable\":false}"},"finish_reason":"stop"}]}`))
	}))
	defer srv.Close()

	c, err := NewOpenAICompleter(OpenAIConfig{APIKey: "test-key", BaseURL: srv.URL + "/v1"}, nil)
	require.NoError(t, err)
	assert.Equal(t, DefaultModel, c.Model())

	out, err := c.Complete(context.Background(), CompletionRequest{
		SystemPrompt: "system",
		UserPrompt:   "user",
		Temperature:  0.1,
		JSON:         true,
	})
	require.NoError(t, err)
	assert.Equal(t, `{"isActionable":false}`, out)

	assert.Equal(t, DefaultModel, got["model"])
	format, ok := got["response_format"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "json_object", format["type"])
}

func TestOpenAICompleter_BreakerOpensAfterFailures(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"error":{"message":"boom","type":"server_error"}}`))
	}))
	defer srv.Close()

	c, err := NewOpenAICompleter(OpenAIConfig{APIKey: "k", BaseURL: srv.URL + "/v1"}, nil)
	require.NoError(t, err)
	assert.True(t, c.Healthy())

	for i := 0; i < 8; i++ {
		_, err := c.Complete(context.Background(), CompletionRequest{UserPrompt: "x"})
		assert.Error(t, err)
	}
	assert.Equal(t, 5, calls, "open breaker short-circuits further calls")
	assert.False(t, c.Healthy())
}

func TestClassifier_UnavailableWhileBreakerOpen(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte(`{"error":{"message":"down","type":"server_error"}}`))
	}))
	defer srv.Close()

	completer, err := NewOpenAICompleter(OpenAIConfig{APIKey: "k", BaseURL: srv.URL + "/v1"}, nil)
	require.NoError(t, err)
	c := New(nil)
	c.Initialize(completer)

	msg := &email.Email{ID: "m", Subject: "Please review the proposal"}
	for i := 0; i < 4; i++ {
		v, err := c.Classify(context.Background(), msg)
		require.NoError(t, err)
		assert.Equal(t, FallbackVerdict(), v)
	}
	assert.True(t, c.Available())

	_, err = c.Classify(context.Background(), msg)
	assert.ErrorIs(t, err, ErrUnavailable, "the failure that opens the breaker")
	assert.False(t, c.Available())

	_, err = c.Classify(context.Background(), msg)
	assert.ErrorIs(t, err, ErrUnavailable)
}
