package rules

import (
	"bytes"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teemow/todoagent/internal/email"
)

func TestDecode(t *testing.T) {
	input := `
rules:
  - id: vendor-invoices
    name: Vendor invoices
    priority: 6
    criteria:
      fromDomain: [billing.example.com]
      subject: [invoice]
    action:
      label: TodoAgent_Important
      priority: 3
  - id: disabled
    name: Disabled
    active: false
    criteria:
      subject: [ignore]
    action:
      label: TodoAgent_Skip
      skipAI: true
`
	rules, err := Decode(strings.NewReader(input))
	require.NoError(t, err)
	require.Len(t, rules, 2)

	assert.Equal(t, "vendor-invoices", rules[0].ID)
	assert.True(t, rules[0].Active, "rules default to active")
	assert.Equal(t, []string{"billing.example.com"}, rules[0].Criteria.FromDomain)
	assert.Equal(t, email.LabelImportant, rules[0].Action.Label)
	assert.Equal(t, 3, rules[0].Action.Priority)

	assert.False(t, rules[1].Active)
	assert.True(t, rules[1].Action.SkipAI)
}

func TestDecode_Empty(t *testing.T) {
	rules, err := Decode(strings.NewReader(""))
	require.NoError(t, err)
	assert.Empty(t, rules)
}

func TestDecode_Invalid(t *testing.T) {
	_, err := Decode(strings.NewReader("rules: [this is: not valid"))
	assert.Error(t, err)
}

func TestEncodeDecode(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Encode(&buf, DefaultRules()))

	rules, err := Decode(&buf)
	require.NoError(t, err)
	require.Len(t, rules, len(DefaultRules()))
	assert.Equal(t, DefaultRules()[0].Criteria, rules[0].Criteria)
}

func TestWriteAndLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rules.yaml")
	require.NoError(t, WriteFile(path, DefaultRules()[:2]))

	rules, err := LoadFile(path)
	require.NoError(t, err)
	assert.Len(t, rules, 2)

	_, err = LoadFile(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}
