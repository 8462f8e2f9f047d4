package cli

import (
	"fmt"
	"strings"
	"time"

	"github.com/okui/taskdeck/internal/domain"
	"github.com/okui/taskdeck/internal/store"
)

// resolveTask finds a task by full ID or unique ID prefix.
func resolveTask(st *store.Store, ref string) (*domain.Task, error) {
	if t, ok := st.Get(ref); ok {
		return t, nil
	}
	var matches []*domain.Task
	for _, t := range st.All() {
		if strings.HasPrefix(t.ID, ref) {
			matches = append(matches, t)
		}
	}
	switch len(matches) {
	case 0:
		return nil, fmt.Errorf("%w: %s", domain.ErrTaskNotFound, ref)
	case 1:
		return matches[0], nil
	default:
		return nil, fmt.Errorf("ambiguous task ID prefix %q (%d matches)", ref, len(matches))
	}
}

// parseDate accepts YYYY-MM-DD or RFC 3339.
func parseDate(s string) (time.Time, error) {
	if t, err := time.Parse("2006-01-02", s); err == nil {
		return t, nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q (want YYYY-MM-DD or RFC 3339)", s)
	}
	return t, nil
}

// parseRecurrence builds a rule from flag values.
func parseRecurrence(freq string, every int, until string) (*domain.RecurrenceRule, error) {
	f := domain.Frequency(freq)
	if !f.Valid() {
		return nil, fmt.Errorf("invalid recurrence frequency %q (daily|weekly|monthly|yearly)", freq)
	}
	rule := &domain.RecurrenceRule{Frequency: f, Interval: every}
	if until != "" {
		u, err := parseDate(until)
		if err != nil {
			return nil, err
		}
		rule.Until = &u
	}
	return rule, nil
}

// taskAdder is the store surface the import path needs.
type taskAdder interface {
	AddTask(in store.TaskInput) (*domain.Task, error)
	AddSubtask(parentID string, in store.TaskInput) (*domain.Task, error)
	MoveToStatus(id string, status domain.Status) (*domain.Task, error)
}

// taskInputFrom converts a decoded task back into creation input.
func taskInputFrom(t *domain.Task) store.TaskInput {
	in := store.TaskInput{
		Title:       t.Title,
		Description: t.Description,
		Project:     t.Project,
		Priority:    t.Priority,
		Tags:        t.Tags,
		EstimateMin: t.EstimateMin,
	}
	if t.DueDate != nil {
		v := *t.DueDate
		in.DueDate = &v
	}
	if t.Recurrence != nil {
		v := *t.Recurrence
		in.Recurrence = &v
	}
	return in
}

// shortID trims a task ID for display.
func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

// formatDue renders a due date, or "-" when absent.
func formatDue(t *time.Time) string {
	if t == nil {
		return "-"
	}
	return t.Format("2006-01-02")
}
