package classifier

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/teemow/todoagent/internal/email"
)

// Urgency levels reported by the model.
const (
	UrgencyLow    = "low"
	UrgencyMedium = "medium"
	UrgencyHigh   = "high"
)

const (
	fallbackConfidence = 0.1
	fallbackReasoning  = "AI classification failed, marked as non-actionable for safety"
)

// TaskData describes the task the model proposes for an actionable email.
type TaskData struct {
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
	DueDate     string `json:"dueDate,omitempty"`
	Priority    int    `json:"priority"`
	Category    string `json:"category"`
}

// Verdict is the outcome of classifying one email.
type Verdict struct {
	IsActionable   bool      `json:"isActionable"`
	SuggestedLabel string    `json:"suggestedLabel"`
	Confidence     float64   `json:"confidence"`
	TaskData       *TaskData `json:"taskData,omitempty"`
	Keywords       []string  `json:"keywords,omitempty"`
	Reasoning      string    `json:"reasoning,omitempty"`
	Urgency        string    `json:"urgency"`
}

// FallbackVerdict is returned when the model call or its answer fails. It
// never leads to a task.
func FallbackVerdict() Verdict {
	return Verdict{
		IsActionable:   false,
		SuggestedLabel: email.LabelSkip,
		Confidence:     fallbackConfidence,
		Reasoning:      fallbackReasoning,
		Urgency:        UrgencyLow,
	}
}

var validCategories = map[string]bool{
	email.CategoryTask:      true,
	email.CategoryMeeting:   true,
	email.CategoryUrgent:    true,
	email.CategoryImportant: true,
	email.CategoryFollowUp:  true,
}

// parseVerdict decodes a model answer. It accepts answers wrapped in markdown
// code fences and coerces loosely typed fields into the Verdict shape.
func parseVerdict(raw string) (Verdict, error) {
	body := stripCodeFence(raw)
	if body == "" {
		return Verdict{}, errors.New("empty model response")
	}

	var fields map[string]any
	if err := json.Unmarshal([]byte(body), &fields); err != nil {
		return Verdict{}, fmt.Errorf("failed to decode model response: %w", err)
	}

	v := Verdict{
		IsActionable: toBool(fields["isActionable"]),
		Confidence:   clamp01(toFloat(fields["confidence"])),
		Reasoning:    toString(fields["reasoning"]),
		Keywords:     toStrings(fields["keywords"]),
		Urgency:      strings.ToLower(toString(fields["urgency"])),
	}

	v.SuggestedLabel = toString(fields["suggestedLabel"])
	if !isVerdictLabel(v.SuggestedLabel) {
		v.SuggestedLabel = email.LabelSkip
	}

	switch v.Urgency {
	case UrgencyLow, UrgencyMedium, UrgencyHigh:
	default:
		v.Urgency = UrgencyLow
	}

	if td, ok := fields["taskData"].(map[string]any); ok {
		v.TaskData = parseTaskData(td)
	}
	return v, nil
}

func parseTaskData(fields map[string]any) *TaskData {
	td := &TaskData{
		Title:       strings.TrimSpace(toString(fields["title"])),
		Description: toString(fields["description"]),
		DueDate:     toString(fields["dueDate"]),
		Priority:    int(toFloat(fields["priority"])),
		Category:    strings.ToLower(toString(fields["category"])),
	}
	if td.Priority < 1 || td.Priority > 4 {
		td.Priority = 2
	}
	if !validCategories[td.Category] {
		td.Category = email.CategoryTask
	}
	return td
}

func isVerdictLabel(label string) bool {
	if label == email.LabelSkip {
		return true
	}
	return email.IsActionLabel(label)
}

func stripCodeFence(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	// drop the language tag on the opening fence
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = s[i+1:]
	}
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}

func toBool(v any) bool {
	switch t := v.(type) {
	case bool:
		return t
	case float64:
		return t != 0
	case string:
		switch strings.ToLower(strings.TrimSpace(t)) {
		case "true", "yes", "1", "y":
			return true
		}
	}
	return false
}

func toFloat(v any) float64 {
	switch t := v.(type) {
	case float64:
		return t
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(t), 64)
		if err == nil {
			return f
		}
	case bool:
		if t {
			return 1
		}
	}
	return 0
}

func toString(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(t)
	}
	return ""
}

func toStrings(v any) []string {
	switch t := v.(type) {
	case []any:
		out := make([]string, 0, len(t))
		for _, item := range t {
			if s := strings.TrimSpace(toString(item)); s != "" {
				out = append(out, s)
			}
		}
		return out
	case string:
		var out []string
		for _, part := range strings.Split(t, ",") {
			if s := strings.TrimSpace(part); s != "" {
				out = append(out, s)
			}
		}
		return out
	}
	return nil
}

func clamp01(f float64) float64 {
	if math.IsNaN(f) {
		return 0
	}
	return math.Max(0, math.Min(1, f))
}
