package email

import (
	"errors"
	"regexp"
	"strings"
	"time"
)

// ErrNotFound is returned by mail providers when a message no longer exists.
var ErrNotFound = errors.New("email not found")

// MaxBodyLength bounds the body excerpt carried on an Email.
const MaxBodyLength = 5000

// Email is a snapshot of a message fetched for a single processing attempt.
// Labels holds label names, not provider label IDs.
type Email struct {
	ID         string    `json:"id"`
	ThreadID   string    `json:"threadId,omitempty"`
	From       string    `json:"from"`
	To         string    `json:"to,omitempty"`
	Subject    string    `json:"subject"`
	Body       string    `json:"body,omitempty"`
	Snippet    string    `json:"snippet,omitempty"`
	Labels     []string  `json:"labels,omitempty"`
	ReceivedAt time.Time `json:"receivedAt,omitempty"`
}

// HasLabel reports whether the email carries the named label.
func (e *Email) HasLabel(name string) bool {
	for _, l := range e.Labels {
		if l == name {
			return true
		}
	}
	return false
}

// Link returns the Gmail web link for the message.
func (e *Email) Link() string {
	return "https://mail.google.com/mail/u/0/#all/" + e.ID
}

var domainPattern = regexp.MustCompile(`@([^\s>]+)`)

// SenderDomain extracts the domain of the From header, lowercased.
// It returns an empty string when no address is present.
func SenderDomain(from string) string {
	m := domainPattern.FindStringSubmatch(from)
	if len(m) < 2 {
		return ""
	}
	return strings.ToLower(strings.TrimRight(m[1], ">"))
}

var addressPattern = regexp.MustCompile(`<([^>]+)>`)

// SenderAddress returns the bare address of a From header such as
// "Jane Doe <jane@example.com>", lowercased.
func SenderAddress(from string) string {
	if m := addressPattern.FindStringSubmatch(from); len(m) == 2 {
		return strings.ToLower(strings.TrimSpace(m[1]))
	}
	return strings.ToLower(strings.TrimSpace(from))
}

// Truncate shortens s to at most n runes.
func Truncate(s string, n int) string {
	if n <= 0 {
		return ""
	}
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
