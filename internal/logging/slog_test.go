package logging

import (
	"bytes"
	"errors"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestAttrs(t *testing.T) {
	tests := []struct {
		name  string
		attr  slog.Attr
		key   string
		value string
	}{
		{"tool", Tool("todoagent_get_stats"), KeyTool, "todoagent_get_stats"},
		{"status", Status("success"), KeyStatus, "success"},
		{"email id", EmailID("18c2"), KeyEmailID, "18c2"},
		{"rule", Rule("newsletters"), KeyRule, "newsletters"},
		{"label", Label("TodoAgent_Skip"), KeyLabel, "TodoAgent_Skip"},
		{"outcome", Outcome("skipped"), KeyOutcome, "skipped"},
		{"run id", RunID("abc"), KeyRunID, "abc"},
		{"sender domain", SenderDomain("Jane <jane@example.com>"), KeySenderDomain, "example.com"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.key, tt.attr.Key)
			assert.Equal(t, tt.value, tt.attr.Value.String())
		})
	}
}

func TestDuration(t *testing.T) {
	attr := Duration(1500 * time.Millisecond)
	assert.Equal(t, KeyDuration, attr.Key)
	assert.Equal(t, 1500*time.Millisecond, attr.Value.Duration())
}

func TestErr(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))

	logger.Info("with error", Err(errors.New("boom")))
	logger.Info("without error", Err(nil))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	assert.Contains(t, lines[0], "error=boom")
	assert.NotContains(t, lines[1], "error")
}

func TestWithHelpers(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))

	WithEmail(WithComponent(logger, "scheduler"), "msg-1").Info("done")
	assert.Contains(t, buf.String(), "component=scheduler")
	assert.Contains(t, buf.String(), "email_id=msg-1")
}

func TestHashAddress(t *testing.T) {
	assert.Empty(t, hashAddress(""))

	hash := hashAddress("jane@example.com")
	assert.Len(t, hash, 21)
	assert.True(t, strings.HasPrefix(hash, "user:"))
	assert.Equal(t, hash, hashAddress("Jane@Example.com"))
	assert.NotEqual(t, hash, hashAddress("other@example.com"))

	attr := Sender("jane@example.com")
	assert.Equal(t, KeySenderHash, attr.Key)
	assert.NotContains(t, attr.Value.String(), "jane")
}

func TestDomainOf(t *testing.T) {
	tests := []struct {
		address string
		want    string
	}{
		{"jane@example.com", "example.com"},
		{"Jane <jane@example.com>", "example.com"},
		{"invalid", ""},
		{"", ""},
		{"a@b@c", ""},
	}
	for _, tt := range tests {
		t.Run(tt.address, func(t *testing.T) {
			assert.Equal(t, tt.want, domainOf(tt.address))
		})
	}
}
