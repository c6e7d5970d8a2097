package gmail

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	gmail "google.golang.org/api/gmail/v1"
	"google.golang.org/api/option"

	"github.com/teemow/todoagent/internal/email"
)

// fakeGmail serves the subset of the Gmail REST API the client uses.
type fakeGmail struct {
	mu       sync.Mutex
	labels   []*gmail.Label
	messages map[string]*gmail.Message
	modifies []gmail.ModifyMessageRequest
	created  []string
	getFails int
}

func newFakeGmail() *fakeGmail {
	return &fakeGmail{
		labels: []*gmail.Label{
			{Id: "INBOX", Name: "INBOX"},
			{Id: "Label_1", Name: email.LabelTask},
		},
		messages: map[string]*gmail.Message{},
	}
}

func (f *fakeGmail) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	path := strings.TrimPrefix(r.URL.Path, "/gmail/v1/users/me/")
	switch {
	case path == "labels" && r.Method == http.MethodGet:
		writeJSON(w, gmail.ListLabelsResponse{Labels: f.labels})
	case path == "labels" && r.Method == http.MethodPost:
		var l gmail.Label
		_ = json.NewDecoder(r.Body).Decode(&l)
		l.Id = "Label_new_" + l.Name
		f.labels = append(f.labels, &l)
		f.created = append(f.created, l.Name)
		writeJSON(w, l)
	case path == "messages":
		var refs []*gmail.Message
		for id := range f.messages {
			refs = append(refs, &gmail.Message{Id: id})
		}
		writeJSON(w, gmail.ListMessagesResponse{Messages: refs})
	case strings.HasSuffix(path, "/modify"):
		var req gmail.ModifyMessageRequest
		_ = json.NewDecoder(r.Body).Decode(&req)
		f.modifies = append(f.modifies, req)
		writeJSON(w, gmail.Message{Id: strings.TrimSuffix(strings.TrimPrefix(path, "messages/"), "/modify")})
	case strings.HasPrefix(path, "messages/"):
		if f.getFails > 0 {
			f.getFails--
			w.WriteHeader(http.StatusInternalServerError)
			_, _ = w.Write([]byte(`{"error":{"code":500,"message":"backend error"}}`))
			return
		}
		m, ok := f.messages[strings.TrimPrefix(path, "messages/")]
		if !ok {
			w.WriteHeader(http.StatusNotFound)
			_, _ = w.Write([]byte(`{"error":{"code":404,"message":"Requested entity was not found."}}`))
			return
		}
		writeJSON(w, m)
	default:
		http.NotFound(w, r)
	}
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

func newTestClient(t *testing.T, fake *fakeGmail) *Client {
	t.Helper()
	srv := httptest.NewServer(fake)
	t.Cleanup(srv.Close)

	c, err := NewClient(context.Background(), Config{},
		option.WithEndpoint(srv.URL+"/"),
		option.WithHTTPClient(srv.Client()),
		option.WithoutAuthentication())
	require.NoError(t, err)
	return c
}

func b64(s string) string {
	return base64.URLEncoding.EncodeToString([]byte(s))
}

func TestFetchEmailByID(t *testing.T) {
	fake := newFakeGmail()
	fake.messages["m1"] = &gmail.Message{
		Id:           "m1",
		ThreadId:     "t1",
		Snippet:      "Hi, could you review the proposal?",
		LabelIds:     []string{"INBOX", "Label_1"},
		InternalDate: 1767225600000,
		Payload: &gmail.MessagePart{
			MimeType: "multipart/alternative",
			Headers: []*gmail.MessagePartHeader{
				{Name: "From", Value: "Alice <alice@partner.example>"},
				{Name: "To", Value: "me@example.com"},
				{Name: "Subject", Value: "Please review the attached proposal by tomorrow"},
			},
			Parts: []*gmail.MessagePart{
				{MimeType: "text/html", Body: &gmail.MessagePartBody{Data: b64("<p>HTML</p>")}},
				{MimeType: "text/plain", Body: &gmail.MessagePartBody{Data: b64("Hi, could you review the proposal?")}},
			},
		},
	}
	c := newTestClient(t, fake)

	msg, err := c.FetchEmailByID(context.Background(), "m1")
	require.NoError(t, err)
	assert.Equal(t, "Alice <alice@partner.example>", msg.From)
	assert.Equal(t, "Please review the attached proposal by tomorrow", msg.Subject)
	assert.Equal(t, "Hi, could you review the proposal?", msg.Body)
	assert.Equal(t, []string{"INBOX", email.LabelTask}, msg.Labels)
	assert.Equal(t, 2026, msg.ReceivedAt.Year())
}

func TestFetchEmailByID_RecreatedLabel(t *testing.T) {
	fake := newFakeGmail()
	fake.messages["m1"] = &gmail.Message{Id: "m1", LabelIds: []string{"INBOX", "Label_1"}, Payload: &gmail.MessagePart{}}
	c := newTestClient(t, fake)

	msg, err := c.FetchEmailByID(context.Background(), "m1")
	require.NoError(t, err)
	assert.Equal(t, []string{"INBOX", email.LabelTask}, msg.Labels)

	fake.mu.Lock()
	fake.labels = []*gmail.Label{
		{Id: "INBOX", Name: "INBOX"},
		{Id: "Label_9", Name: email.LabelTask},
		{Id: "Label_10", Name: email.LabelProcessed},
	}
	fake.messages["m1"].LabelIds = []string{"INBOX", "Label_9", "Label_10"}
	fake.mu.Unlock()

	msg, err = c.FetchEmailByID(context.Background(), "m1")
	require.NoError(t, err)
	assert.Equal(t, []string{"INBOX", email.LabelTask, email.LabelProcessed}, msg.Labels)
	assert.Equal(t, email.StatusProcessed, email.DeriveStatus(msg.Labels).Status)
}

func TestFetchEmailByID_NotFound(t *testing.T) {
	c := newTestClient(t, newFakeGmail())

	_, err := c.FetchEmailByID(context.Background(), "gone")
	assert.True(t, errors.Is(err, email.ErrNotFound))
	assert.True(t, c.Available(), "404s do not trip the breaker")
}

func TestFetchEmails(t *testing.T) {
	fake := newFakeGmail()
	for _, id := range []string{"a", "b", "c"} {
		fake.messages[id] = &gmail.Message{Id: id, Payload: &gmail.MessagePart{}}
	}
	c := newTestClient(t, fake)

	msgs, err := c.FetchEmails(context.Background(), "in:inbox", 2)
	require.NoError(t, err)
	assert.Len(t, msgs, 2)
}

func TestAddLabel_CreatesMissingLabel(t *testing.T) {
	fake := newFakeGmail()
	c := newTestClient(t, fake)

	require.NoError(t, c.AddLabel(context.Background(), "m1", email.LabelTask))
	require.NoError(t, c.AddLabel(context.Background(), "m1", email.LabelProcessed))
	require.NoError(t, c.AddLabel(context.Background(), "m2", email.LabelProcessed))

	assert.Equal(t, []string{email.LabelProcessed}, fake.created, "labels are created once")
	require.Len(t, fake.modifies, 3)
	assert.Equal(t, []string{"Label_1"}, fake.modifies[0].AddLabelIds)
	assert.Equal(t, []string{"Label_new_" + email.LabelProcessed}, fake.modifies[1].AddLabelIds)
}

func TestRemoveLabel(t *testing.T) {
	fake := newFakeGmail()
	c := newTestClient(t, fake)

	require.NoError(t, c.RemoveLabel(context.Background(), "m1", email.LabelFailed))
	assert.Empty(t, fake.modifies, "removing an unknown label is a no-op")

	require.NoError(t, c.RemoveLabel(context.Background(), "m1", email.LabelTask))
	require.Len(t, fake.modifies, 1)
	assert.Equal(t, []string{"Label_1"}, fake.modifies[0].RemoveLabelIds)
}

func TestEnsureLabels(t *testing.T) {
	fake := newFakeGmail()
	c := newTestClient(t, fake)

	require.NoError(t, c.EnsureLabels(context.Background()))
	assert.Len(t, fake.created, len(email.AllLabels)-1)
}

func TestBreakerOpensOnServerErrors(t *testing.T) {
	fake := newFakeGmail()
	fake.getFails = 100
	c := newTestClient(t, fake)

	for i := 0; i < 7; i++ {
		_, err := c.FetchEmailByID(context.Background(), "m1")
		assert.Error(t, err)
	}
	assert.False(t, c.Available())
}

func TestMessageBody(t *testing.T) {
	tests := []struct {
		name    string
		payload *gmail.MessagePart
		want    string
	}{
		{"nil payload", nil, ""},
		{
			"single part plain",
			&gmail.MessagePart{MimeType: "text/plain", Body: &gmail.MessagePartBody{Data: b64("hello")}},
			"hello",
		},
		{
			"html fallback",
			&gmail.MessagePart{MimeType: "text/html", Body: &gmail.MessagePartBody{
				Data: b64("<html><style>p{}</style><p>Hello &amp; <b>world</b></p></html>"),
			}},
			"Hello & world",
		},
		{
			"unpadded data",
			&gmail.MessagePart{MimeType: "text/plain", Body: &gmail.MessagePartBody{Data: base64.RawURLEncoding.EncodeToString([]byte("ab"))}},
			"ab",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, messageBody(tt.payload))
		})
	}
}

func TestHeaderValue(t *testing.T) {
	m := &gmail.Message{Payload: &gmail.MessagePart{Headers: []*gmail.MessagePartHeader{{Name: "subject", Value: "x"}}}}
	assert.Equal(t, "x", HeaderValue(m, "Subject"))
	assert.Equal(t, "", HeaderValue(&gmail.Message{}, "Subject"))
}
