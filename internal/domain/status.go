package domain

// Status represents the lifecycle state of a task.
type Status string

const (
	StatusTodo       Status = "todo"        // Created, not started
	StatusInProgress Status = "in_progress" // Being worked on
	StatusDone       Status = "done"        // Completed
	StatusArchived   Status = "archived"    // Hidden from normal views, never pushed
)

// AllStatuses returns all valid status values.
func AllStatuses() []Status {
	return []Status{StatusTodo, StatusInProgress, StatusDone, StatusArchived}
}

// Valid returns true if the status is a known value.
func (s Status) Valid() bool {
	switch s {
	case StatusTodo, StatusInProgress, StatusDone, StatusArchived:
		return true
	}
	return false
}

// Display returns a human-readable representation of the status.
func (s Status) Display() string {
	switch s {
	case StatusTodo:
		return "todo"
	case StatusInProgress:
		return "in progress"
	case StatusDone:
		return "done"
	case StatusArchived:
		return "archived"
	}
	return string(s)
}

// Priority represents the urgency of a task.
type Priority string

const (
	PriorityNone   Priority = "none"
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
	PriorityUrgent Priority = "urgent"
)

// AllPriorities returns all valid priority values, lowest first.
func AllPriorities() []Priority {
	return []Priority{PriorityNone, PriorityLow, PriorityMedium, PriorityHigh, PriorityUrgent}
}

// Valid returns true if the priority is a known value.
func (p Priority) Valid() bool {
	switch p {
	case PriorityNone, PriorityLow, PriorityMedium, PriorityHigh, PriorityUrgent:
		return true
	}
	return false
}

// Rank returns the numeric weight of the priority for sorting.
// Higher is more urgent.
func (p Priority) Rank() int {
	switch p {
	case PriorityLow:
		return 1
	case PriorityMedium:
		return 2
	case PriorityHigh:
		return 3
	case PriorityUrgent:
		return 4
	}
	return 0
}
