package logging

import (
	"crypto/sha256"
	"encoding/hex"
	"log/slog"
	"strings"
	"time"
)

// Attribute keys shared by every component.
const (
	KeyComponent    = "component"
	KeyDuration     = "duration"
	KeyStatus       = "status"
	KeyError        = "error"
	KeyTool         = "tool"
	KeyEmailID      = "email_id"
	KeyRule         = "rule"
	KeyLabel        = "label"
	KeyOutcome      = "outcome"
	KeyRunID        = "run_id"
	KeySenderHash   = "sender_hash"
	KeySenderDomain = "sender_domain"
)

// WithComponent tags every record from logger with the emitting component,
// e.g. "scheduler" or "webhook".
func WithComponent(logger *slog.Logger, component string) *slog.Logger {
	return logger.With(slog.String(KeyComponent, component))
}

// WithEmail scopes logger to one message.
func WithEmail(logger *slog.Logger, emailID string) *slog.Logger {
	return logger.With(EmailID(emailID))
}

func Tool(name string) slog.Attr       { return slog.String(KeyTool, name) }
func Status(status string) slog.Attr   { return slog.String(KeyStatus, status) }
func EmailID(id string) slog.Attr      { return slog.String(KeyEmailID, id) }
func Rule(name string) slog.Attr       { return slog.String(KeyRule, name) }
func Label(name string) slog.Attr      { return slog.String(KeyLabel, name) }
func Outcome(outcome string) slog.Attr { return slog.String(KeyOutcome, outcome) }
func RunID(id string) slog.Attr        { return slog.String(KeyRunID, id) }

func Duration(d time.Duration) slog.Attr { return slog.Duration(KeyDuration, d) }

// Err renders err under the error key. A nil error yields an empty group,
// which handlers drop, so Err(maybeNil) is always safe to pass.
func Err(err error) slog.Attr {
	if err == nil {
		return slog.Group("")
	}
	return slog.String(KeyError, err.Error())
}

// Sender logs a stable hash of the sender address instead of the address.
// Email subjects and bodies are never logged.
func Sender(address string) slog.Attr {
	return slog.String(KeySenderHash, hashAddress(address))
}

// SenderDomain logs only the domain part of the sender address.
func SenderDomain(address string) slog.Attr {
	return slog.String(KeySenderDomain, domainOf(address))
}

// hashAddress returns "user:" followed by the first 8 bytes of the
// SHA-256 of the lowercased address, or "" for an empty address.
func hashAddress(address string) string {
	if address == "" {
		return ""
	}
	sum := sha256.Sum256([]byte(strings.ToLower(address)))
	return "user:" + hex.EncodeToString(sum[:8])
}

// domainOf accepts bare addresses and "Name <addr>" forms.
func domainOf(address string) string {
	at := strings.LastIndexByte(address, '@')
	if at < 0 || strings.Count(address, "@") != 1 {
		return ""
	}
	return strings.TrimRight(address[at+1:], "> ")
}
