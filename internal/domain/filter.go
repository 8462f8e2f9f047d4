package domain

import (
	"strings"
	"time"
)

// TaskFilter specifies criteria for listing tasks. Zero value matches all.
// Fields are ordered to minimize memory padding.
type TaskFilter struct {
	DueBefore       *time.Time // Only tasks due strictly before this time
	Status          *Status    // nil = any status
	Priority        *Priority  // nil = any priority
	Project         string     // "" = any project
	Search          string     // Case-insensitive substring of title/description
	Tags            []string   // AND condition
	IncludeArchived bool       // Archived tasks are hidden unless set
}

// Matches returns true if the task satisfies every set criterion.
func (f TaskFilter) Matches(t *Task) bool {
	if !f.IncludeArchived && t.Status == StatusArchived && (f.Status == nil || *f.Status != StatusArchived) {
		return false
	}
	if f.Status != nil && t.Status != *f.Status {
		return false
	}
	if f.Priority != nil && t.Priority != *f.Priority {
		return false
	}
	if f.Project != "" && t.Project != f.Project {
		return false
	}
	if f.DueBefore != nil {
		if t.DueDate == nil || !t.DueDate.Before(*f.DueBefore) {
			return false
		}
	}
	for _, tag := range f.Tags {
		if !containsString(t.Tags, tag) {
			return false
		}
	}
	if f.Search != "" {
		q := strings.ToLower(f.Search)
		if !strings.Contains(strings.ToLower(t.Title), q) &&
			!strings.Contains(strings.ToLower(t.Description), q) {
			return false
		}
	}
	return true
}

func containsString(slice []string, s string) bool {
	for _, item := range slice {
		if item == s {
			return true
		}
	}
	return false
}

// SortField selects the active ordering for task listings.
type SortField string

const (
	SortManual   SortField = "manual" // Manual order key
	SortPriority SortField = "priority"
	SortDue      SortField = "due"
	SortCreated  SortField = "created"
	SortTitle    SortField = "title"
)

// Valid returns true if the sort field is a known value.
func (s SortField) Valid() bool {
	switch s {
	case SortManual, SortPriority, SortDue, SortCreated, SortTitle:
		return true
	}
	return false
}

// CompareTasks defines a total order over tasks for the given field.
// Ties on the active field always break by task ID, so repeated calls on
// unchanged data return byte-identical orderings.
func CompareTasks(a, b *Task, field SortField) int {
	if c := compareField(a, b, field); c != 0 {
		return c
	}
	return strings.Compare(a.ID, b.ID)
}

func compareField(a, b *Task, field SortField) int {
	switch field {
	case SortPriority:
		// Urgent first
		return b.Priority.Rank() - a.Priority.Rank()
	case SortDue:
		return compareDue(a.DueDate, b.DueDate)
	case SortCreated:
		return a.CreatedAt.Compare(b.CreatedAt)
	case SortTitle:
		return strings.Compare(a.Title, b.Title)
	default:
		return a.Order - b.Order
	}
}

// compareDue orders earlier due dates first; tasks without a due date last.
func compareDue(a, b *time.Time) int {
	switch {
	case a == nil && b == nil:
		return 0
	case a == nil:
		return 1
	case b == nil:
		return -1
	default:
		return a.Compare(*b)
	}
}
