package email

// Status is the processing state derived from an email's label set.
type Status int

const (
	StatusUnprocessed Status = iota
	StatusFailed
	StatusCategorized
	StatusProcessed
	StatusSkipped
)

func (s Status) String() string {
	switch s {
	case StatusFailed:
		return "failed"
	case StatusCategorized:
		return "categorized"
	case StatusProcessed:
		return "processed"
	case StatusSkipped:
		return "skipped"
	default:
		return "unprocessed"
	}
}

// Terminal reports whether the status is absorbing.
func (s Status) Terminal() bool {
	return s == StatusProcessed || s == StatusSkipped
}

// State is the result of DeriveStatus. Category is set only for
// StatusCategorized and holds the winning action label.
type State struct {
	Status   Status
	Category string
	// Retry is true when the Failed marker is present alongside the status.
	Retry bool
}

// DeriveStatus computes the processing state from a label set.
// Precedence: Processed, Skip, action labels (Important > Urgent > Meeting > Task),
// Failed, then unprocessed.
func DeriveStatus(labels []string) State {
	set := make(map[string]struct{}, len(labels))
	for _, l := range labels {
		set[l] = struct{}{}
	}
	_, failed := set[LabelFailed]

	if _, ok := set[LabelProcessed]; ok {
		return State{Status: StatusProcessed, Retry: failed}
	}
	if _, ok := set[LabelSkip]; ok {
		return State{Status: StatusSkipped, Retry: failed}
	}
	for _, l := range ActionLabels {
		if _, ok := set[l]; ok {
			return State{Status: StatusCategorized, Category: l, Retry: failed}
		}
	}
	if failed {
		return State{Status: StatusFailed, Retry: true}
	}
	return State{Status: StatusUnprocessed}
}
