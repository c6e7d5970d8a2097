package webhook

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strings"
)

// Kind tells what a notification asks for.
type Kind string

const (
	// KindEmail names a single message to process.
	KindEmail Kind = "email"
	// KindHistory is a Gmail push notification; the mailbox changed and a
	// batch cycle should pick up whatever is new.
	KindHistory Kind = "history"
)

// Notification is a parsed webhook payload.
type Notification struct {
	Kind         Kind   `json:"kind"`
	EmailID      string `json:"emailId,omitempty"`
	HistoryID    string `json:"historyId,omitempty"`
	EmailAddress string `json:"emailAddress,omitempty"`
	Trigger      string `json:"trigger,omitempty"`
}

var (
	idFields      = []string{"emailId", "email_id", "messageId", "message_id", "id"}
	triggerFields = []string{"trigger", "type", "event", "eventType"}
	nestedFields  = []string{"data", "email", "message", "payload"}

	emailEvents = map[string]bool{
		"new_email":              true,
		"email_received":         true,
		"email.received":         true,
		"email.new":              true,
		"gmail.message.received": true,
		"gmail.message.added":    true,
		"message_added":          true,
		"message.added":          true,
		"message_received":       true,
		"message.received":       true,
	}
)

// Parse extracts a notification from a webhook body. The second return value
// is false when the payload is not something the agent acts on; malformed
// JSON, a non-email trigger and a missing id all count as ignored.
func Parse(payload []byte) (Notification, bool) {
	var doc map[string]any
	if err := json.Unmarshal(payload, &doc); err != nil {
		return Notification{}, false
	}

	if n, ok := parsePush(doc); ok {
		return n, true
	}

	trigger := firstString(doc, triggerFields)
	if trigger != "" && !IsEmailEvent(trigger) {
		return Notification{}, false
	}

	id := firstString(doc, idFields)
	if id == "" {
		for _, key := range nestedFields {
			nested, ok := doc[key].(map[string]any)
			if !ok {
				continue
			}
			if id = firstString(nested, idFields); id != "" {
				break
			}
		}
	}
	if id == "" {
		return Notification{}, false
	}
	return Notification{Kind: KindEmail, EmailID: id, Trigger: trigger}, true
}

// IsEmailEvent reports whether a trigger value names a new-email event.
func IsEmailEvent(trigger string) bool {
	return emailEvents[strings.ToLower(strings.TrimSpace(trigger))]
}

// parsePush recognizes a Pub/Sub push envelope:
//
//	{"message": {"data": "<base64 {emailAddress, historyId}>", "messageId": "..."}, "subscription": "..."}
func parsePush(doc map[string]any) (Notification, bool) {
	msg, ok := doc["message"].(map[string]any)
	if !ok {
		return Notification{}, false
	}
	data, ok := msg["data"].(string)
	if !ok || data == "" {
		return Notification{}, false
	}

	raw, err := decodeData(data)
	if err != nil {
		return Notification{}, false
	}
	var inner struct {
		EmailAddress string          `json:"emailAddress"`
		HistoryID    json.RawMessage `json:"historyId"`
	}
	if err := json.Unmarshal(raw, &inner); err != nil || len(inner.HistoryID) == 0 {
		return Notification{}, false
	}

	history := strings.Trim(string(inner.HistoryID), `"`)
	if history == "" || history == "null" {
		return Notification{}, false
	}
	return Notification{
		Kind:         KindHistory,
		HistoryID:    history,
		EmailAddress: inner.EmailAddress,
		Trigger:      "gmail.push",
	}, true
}

func decodeData(s string) ([]byte, error) {
	for _, enc := range []*base64.Encoding{base64.StdEncoding, base64.URLEncoding, base64.RawStdEncoding, base64.RawURLEncoding} {
		if b, err := enc.DecodeString(s); err == nil {
			return b, nil
		}
	}
	return nil, fmt.Errorf("push data is not base64")
}

// firstString returns the first non-empty string value among keys. Numeric
// values are accepted for ids sent as numbers.
func firstString(m map[string]any, keys []string) string {
	for _, k := range keys {
		switch v := m[k].(type) {
		case string:
			if s := strings.TrimSpace(v); s != "" {
				return s
			}
		case float64:
			return fmt.Sprintf("%.0f", v)
		}
	}
	return ""
}
