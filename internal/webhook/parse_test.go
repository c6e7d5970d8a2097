package webhook

import (
	"encoding/base64"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParse(t *testing.T) {
	push := base64.StdEncoding.EncodeToString([]byte(`{"emailAddress":"me@example.com","historyId":9876}`))
	pushNoHistory := base64.StdEncoding.EncodeToString([]byte(`{"emailAddress":"me@example.com"}`))

	tests := []struct {
		name     string
		payload  string
		ok       bool
		expected Notification
	}{
		{"flat emailId", `{"emailId":"abc"}`, true, Notification{Kind: KindEmail, EmailID: "abc"}},
		{"snake case", `{"email_id":"abc"}`, true, Notification{Kind: KindEmail, EmailID: "abc"}},
		{"messageId", `{"messageId":"m1"}`, true, Notification{Kind: KindEmail, EmailID: "m1"}},
		{"message_id", `{"message_id":"m1"}`, true, Notification{Kind: KindEmail, EmailID: "m1"}},
		{"plain id", `{"id":"x"}`, true, Notification{Kind: KindEmail, EmailID: "x"}},
		{"numeric id", `{"id":12345}`, true, Notification{Kind: KindEmail, EmailID: "12345"}},
		{"emailId wins over id", `{"id":"x","emailId":"abc"}`, true, Notification{Kind: KindEmail, EmailID: "abc"}},
		{"nested data", `{"data":{"emailId":"n1"}}`, true, Notification{Kind: KindEmail, EmailID: "n1"}},
		{"nested email", `{"email":{"id":"n2"}}`, true, Notification{Kind: KindEmail, EmailID: "n2"}},
		{"nested message", `{"message":{"id":"n3"}}`, true, Notification{Kind: KindEmail, EmailID: "n3"}},
		{"nested payload", `{"payload":{"message_id":"n4"}}`, true, Notification{Kind: KindEmail, EmailID: "n4"}},
		{"email trigger", `{"trigger":"new_email","emailId":"t1"}`, true,
			Notification{Kind: KindEmail, EmailID: "t1", Trigger: "new_email"}},
		{"event type case-insensitive", `{"eventType":"Gmail.Message.Received","data":{"id":"t2"}}`, true,
			Notification{Kind: KindEmail, EmailID: "t2", Trigger: "Gmail.Message.Received"}},
		{"non-email trigger", `{"type":"calendar.event","id":"c1"}`, false, Notification{}},
		{"no id", `{"trigger":"new_email"}`, false, Notification{}},
		{"blank id", `{"emailId":"  "}`, false, Notification{}},
		{"not json", `hello`, false, Notification{}},
		{"json array", `[1,2]`, false, Notification{}},
		{"empty object", `{}`, false, Notification{}},
		{"pubsub push", `{"message":{"data":"` + push + `","messageId":"p1"},"subscription":"projects/x/subscriptions/y"}`, true,
			Notification{Kind: KindHistory, HistoryID: "9876", EmailAddress: "me@example.com", Trigger: "gmail.push"}},
		{"pubsub without history", `{"message":{"data":"` + pushNoHistory + `"}}`, false, Notification{}},
		{"pubsub bad base64", `{"message":{"data":"%%%"}}`, false, Notification{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := Parse([]byte(tt.payload))
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.expected, got)
		})
	}
}

func TestIsEmailEvent(t *testing.T) {
	assert.True(t, IsEmailEvent("email.received"))
	assert.True(t, IsEmailEvent(" MESSAGE_ADDED "))
	assert.False(t, IsEmailEvent("calendar.updated"))
	assert.False(t, IsEmailEvent(""))
}
