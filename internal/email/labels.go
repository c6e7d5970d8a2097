package email

// Processing state labels written to Gmail.
const (
	LabelProcessed = "TodoAgent_Processed"
	LabelSkip      = "TodoAgent_Skip"
	LabelFailed    = "TodoAgent_Failed"

	LabelImportant = "TodoAgent_Important"
	LabelUrgent    = "TodoAgent_Urgent"
	LabelMeeting   = "TodoAgent_Meeting"
	LabelTask      = "TodoAgent_Task"
)

// ActionLabels are the category labels in precedence order.
var ActionLabels = []string{LabelImportant, LabelUrgent, LabelMeeting, LabelTask}

// AllLabels lists every label the agent may write.
var AllLabels = []string{
	LabelProcessed, LabelSkip, LabelFailed,
	LabelImportant, LabelUrgent, LabelMeeting, LabelTask,
}

// Task categories.
const (
	CategoryImportant = "important"
	CategoryUrgent    = "urgent"
	CategoryMeeting   = "meeting"
	CategoryTask      = "task"
	CategoryFollowUp  = "followup"
)

// IsActionLabel reports whether name is one of the category labels.
func IsActionLabel(name string) bool {
	for _, l := range ActionLabels {
		if l == name {
			return true
		}
	}
	return false
}

// IsKnownLabel reports whether name is a label the agent manages.
func IsKnownLabel(name string) bool {
	for _, l := range AllLabels {
		if l == name {
			return true
		}
	}
	return false
}

// LabelDefaults returns the task priority (1-4, 4 highest) and category
// implied by an action label. Unknown labels map to the plain task defaults.
func LabelDefaults(label string) (priority int, category string) {
	switch label {
	case LabelImportant:
		return 4, CategoryImportant
	case LabelUrgent:
		return 4, CategoryUrgent
	case LabelMeeting:
		return 3, CategoryMeeting
	default:
		return 2, CategoryTask
	}
}
