package gmail

import (
	"encoding/base64"
	"html"
	"regexp"
	"strings"
	"time"

	gmail "google.golang.org/api/gmail/v1"

	"github.com/teemow/todoagent/internal/email"
)

// HeaderValue extracts a header value from a Gmail message
func HeaderValue(m *gmail.Message, header string) string {
	if m.Payload == nil {
		return ""
	}
	for _, h := range m.Payload.Headers {
		if strings.EqualFold(h.Name, header) {
			return h.Value
		}
	}
	return ""
}

func toEmail(m *gmail.Message, labelNames []string) *email.Email {
	e := &email.Email{
		ID:       m.Id,
		ThreadID: m.ThreadId,
		From:     HeaderValue(m, "From"),
		To:       HeaderValue(m, "To"),
		Subject:  HeaderValue(m, "Subject"),
		Snippet:  html.UnescapeString(m.Snippet),
		Labels:   labelNames,
		Body:     email.Truncate(messageBody(m.Payload), email.MaxBodyLength),
	}
	if m.InternalDate > 0 {
		e.ReceivedAt = time.UnixMilli(m.InternalDate).UTC()
	}
	return e
}

// messageBody returns the plain-text body, falling back to the HTML body
// with tags stripped.
func messageBody(payload *gmail.MessagePart) string {
	if text := findPart(payload, "text/plain"); text != "" {
		return text
	}
	return htmlToText(findPart(payload, "text/html"))
}

func findPart(payload *gmail.MessagePart, mimeType string) string {
	var body string
	walkParts(payload, func(part *gmail.MessagePart) {
		if body != "" || part.MimeType != mimeType || part.Body == nil || part.Body.Data == "" {
			return
		}
		body = decodeBody(part.Body.Data)
	})
	return body
}

// walkParts recursively walks through message parts
func walkParts(part *gmail.MessagePart, fn func(*gmail.MessagePart)) {
	if part == nil {
		return
	}
	fn(part)
	for _, sub := range part.Parts {
		walkParts(sub, fn)
	}
}

// decodeBody decodes base64url body data. Gmail omits padding on some
// messages, so both padded and raw encodings are tried.
func decodeBody(data string) string {
	for _, enc := range []*base64.Encoding{base64.URLEncoding, base64.RawURLEncoding, base64.StdEncoding} {
		if decoded, err := enc.DecodeString(data); err == nil {
			return string(decoded)
		}
	}
	return ""
}

var (
	scriptPattern = regexp.MustCompile(`(?is)<(script|style)[^>]*>.*?</(script|style)>`)
	tagPattern    = regexp.MustCompile(`<[^>]+>`)
	spacePattern  = regexp.MustCompile(`\s+`)
)

func htmlToText(s string) string {
	if s == "" {
		return ""
	}
	s = scriptPattern.ReplaceAllString(s, " ")
	s = tagPattern.ReplaceAllString(s, " ")
	s = html.UnescapeString(s)
	return strings.TrimSpace(spacePattern.ReplaceAllString(s, " "))
}
