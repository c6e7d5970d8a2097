package rules

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teemow/todoagent/internal/email"
)

type recordingLabeler struct {
	calls []string
	err   error
}

func (l *recordingLabeler) AddLabel(_ context.Context, emailID, label string) error {
	l.calls = append(l.calls, emailID+":"+label)
	return l.err
}

func newTestEngine(t *testing.T, labeler Labeler, rules ...Rule) *Engine {
	t.Helper()
	store, err := NewStore(rules...)
	require.NoError(t, err)
	return NewEngine(store, labeler, nil, nil)
}

func TestScore(t *testing.T) {
	msg := &email.Email{
		ID:      "m1",
		From:    "Alice <alice@partner.example>",
		Subject: "Quarterly report ready",
		Body:    "The report is attached.",
		Snippet: "The report is attached",
	}

	tests := []struct {
		name       string
		criteria   Criteria
		matched    bool
		confidence float64
		hits       []string
	}{
		{
			name:       "single criterion hit",
			criteria:   Criteria{Subject: []string{"report"}},
			matched:    true,
			confidence: 1,
			hits:       []string{"subject"},
		},
		{
			name:       "two criteria one hit is inclusive threshold",
			criteria:   Criteria{Subject: []string{"report"}, From: []string{"bob@"}},
			matched:    true,
			confidence: 0.5,
			hits:       []string{"subject"},
		},
		{
			name:       "three criteria one hit stays below threshold",
			criteria:   Criteria{Subject: []string{"report"}, From: []string{"bob@"}, BodyKeywords: []string{"invoice"}},
			matched:    false,
			confidence: 1.0 / 3.0,
			hits:       []string{"subject"},
		},
		{
			name:       "exclude keyword in body vetoes full match",
			criteria:   Criteria{Subject: []string{"report"}, FromDomain: []string{"partner.example"}, ExcludeKeywords: []string{"attached"}},
			matched:    false,
			confidence: 0,
		},
		{
			name:       "exclude keyword in subject vetoes",
			criteria:   Criteria{Subject: []string{"report"}, ExcludeKeywords: []string{"QUARTERLY"}},
			matched:    false,
			confidence: 0,
		},
		{
			name:       "domain match is case-insensitive",
			criteria:   Criteria{FromDomain: []string{"Partner.Example"}},
			matched:    true,
			confidence: 1,
			hits:       []string{"fromDomain"},
		},
		{
			name:       "body keywords search the snippet too",
			criteria:   Criteria{BodyKeywords: []string{"is attached"}},
			matched:    true,
			confidence: 1,
			hits:       []string{"bodyKeywords"},
		},
		{
			name:       "no criteria never matches",
			criteria:   Criteria{ExcludeKeywords: []string{"nothing"}},
			matched:    false,
			confidence: 0,
		},
		{
			name:       "no hits",
			criteria:   Criteria{Subject: []string{"invoice"}},
			matched:    false,
			confidence: 0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := &Rule{ID: "r", Name: "r", Active: true, Criteria: tt.criteria, Action: Action{Label: email.LabelTask}}
			m := Score(r, msg)
			assert.Equal(t, tt.matched, m.Matched)
			assert.InDelta(t, tt.confidence, m.Confidence, 1e-9)
			assert.Equal(t, tt.hits, m.MatchedCriteria)
		})
	}
}

func TestEngine_HigherPriorityWins(t *testing.T) {
	labeler := &recordingLabeler{}
	engine := newTestEngine(t, labeler,
		Rule{ID: "low", Name: "low", Priority: 1, Active: true,
			Criteria: Criteria{Subject: []string{"meeting"}}, Action: Action{Label: email.LabelMeeting}},
		Rule{ID: "high", Name: "high", Priority: 10, Active: true,
			Criteria: Criteria{Subject: []string{"new login"}}, Action: Action{Label: email.LabelSkip, SkipAI: true}},
	)

	m, err := engine.Evaluate(context.Background(), &email.Email{ID: "m1", Subject: "New login before the meeting"})
	require.NoError(t, err)
	require.True(t, m.Matched)
	assert.Equal(t, "high", m.Rule.ID)
	assert.Equal(t, []string{"m1:" + email.LabelSkip}, labeler.calls)

	high, err := engine.Store().Get("high")
	require.NoError(t, err)
	assert.Equal(t, 1, high.MatchCount)
	assert.False(t, high.LastMatched.IsZero())

	low, err := engine.Store().Get("low")
	require.NoError(t, err)
	assert.Equal(t, 0, low.MatchCount)
}

func TestEngine_PriorityTiesKeepInsertionOrder(t *testing.T) {
	labeler := &recordingLabeler{}
	engine := newTestEngine(t, labeler,
		Rule{ID: "first", Name: "first", Priority: 5, Active: true,
			Criteria: Criteria{Subject: []string{"report"}}, Action: Action{Label: email.LabelTask}},
		Rule{ID: "second", Name: "second", Priority: 5, Active: true,
			Criteria: Criteria{Subject: []string{"report"}}, Action: Action{Label: email.LabelImportant}},
	)

	for i := 0; i < 5; i++ {
		m, err := engine.Evaluate(context.Background(), &email.Email{ID: "m", Subject: "report"})
		require.NoError(t, err)
		assert.Equal(t, "first", m.Rule.ID)
	}
}

func TestEngine_InactiveRulesAreIgnored(t *testing.T) {
	labeler := &recordingLabeler{}
	engine := newTestEngine(t, labeler,
		Rule{ID: "off", Name: "off", Priority: 9, Active: false,
			Criteria: Criteria{Subject: []string{"report"}}, Action: Action{Label: email.LabelUrgent}},
	)

	m, err := engine.Evaluate(context.Background(), &email.Email{ID: "m", Subject: "report"})
	require.NoError(t, err)
	assert.False(t, m.Matched)
	assert.Empty(t, labeler.calls)
}

func TestEngine_LabelFailureIsReturned(t *testing.T) {
	labeler := &recordingLabeler{err: errors.New("quota exceeded")}
	engine := newTestEngine(t, labeler,
		Rule{ID: "r", Name: "r", Priority: 1, Active: true,
			Criteria: Criteria{Subject: []string{"report"}}, Action: Action{Label: email.LabelTask}},
	)

	m, err := engine.Evaluate(context.Background(), &email.Email{ID: "m", Subject: "report"})
	require.Error(t, err)
	assert.True(t, m.Matched)
	assert.Contains(t, err.Error(), "quota exceeded")
}

func TestEngine_PreviewHasNoSideEffects(t *testing.T) {
	labeler := &recordingLabeler{}
	engine := newTestEngine(t, labeler, DefaultRules()...)

	m := engine.Preview(&email.Email{ID: "m", From: "noreply@newsletter.example", Subject: "Weekly Digest"})
	require.True(t, m.Matched)
	assert.Equal(t, RuleNewsletters, m.Rule.ID)
	assert.Empty(t, labeler.calls)

	r, err := engine.Store().Get(RuleNewsletters)
	require.NoError(t, err)
	assert.Equal(t, 0, r.MatchCount)
}

func TestDefaultRules(t *testing.T) {
	engine := newTestEngine(t, &recordingLabeler{}, DefaultRules()...)

	tests := []struct {
		name   string
		msg    email.Email
		ruleID string
	}{
		{"newsletter", email.Email{From: "noreply@newsletter.example", Subject: "Weekly Digest"}, RuleNewsletters},
		{"security beats meeting", email.Email{From: "no-reply@accounts.example", Subject: "New login to Zoom"}, RuleSecurityNotifications},
		{"meeting invitation", email.Email{From: "calendar@example.com", Subject: "Invitation: Design review @ Tue"}, RuleMeetingInvitations},
		{"declined invitation vetoed", email.Email{From: "bob@example.com", Subject: "Declined: Invitation: sync"}, ""},
		{"urgent request", email.Email{From: "boss@example.com", Subject: "URGENT: numbers for the board"}, RuleUrgentRequests},
		{"promotion", email.Email{From: "offers@marketing.shop.example", Subject: "50% off this weekend"}, RulePromotions},
		{"plain request", email.Email{From: "alice@partner.example", Subject: "Please review the attached proposal by tomorrow"}, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := engine.Preview(&tt.msg)
			if tt.ruleID == "" {
				assert.False(t, m.Matched)
				return
			}
			require.True(t, m.Matched)
			assert.Equal(t, tt.ruleID, m.Rule.ID)
		})
	}
}
