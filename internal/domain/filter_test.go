package domain_test

import (
	"slices"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/okui/taskdeck/internal/domain"
)

func TestTaskFilterMatches(t *testing.T) {
	t.Parallel()

	task := &domain.Task{
		ID:          "a",
		Title:       "Write report",
		Description: "quarterly numbers",
		Project:     "work",
		Status:      domain.StatusTodo,
		Priority:    domain.PriorityHigh,
		Tags:        []string{"office", "writing"},
	}

	t.Run("zero filter matches", func(t *testing.T) {
		t.Parallel()
		assert.True(t, domain.TaskFilter{}.Matches(task))
	})

	t.Run("status mismatch", func(t *testing.T) {
		t.Parallel()
		done := domain.StatusDone
		assert.False(t, domain.TaskFilter{Status: &done}.Matches(task))
	})

	t.Run("archived hidden by default", func(t *testing.T) {
		t.Parallel()
		archived := &domain.Task{ID: "b", Status: domain.StatusArchived}
		assert.False(t, domain.TaskFilter{}.Matches(archived))
		assert.True(t, domain.TaskFilter{IncludeArchived: true}.Matches(archived))

		status := domain.StatusArchived
		assert.True(t, domain.TaskFilter{Status: &status}.Matches(archived))
	})

	t.Run("tags are an AND condition", func(t *testing.T) {
		t.Parallel()
		assert.True(t, domain.TaskFilter{Tags: []string{"office", "writing"}}.Matches(task))
		assert.False(t, domain.TaskFilter{Tags: []string{"office", "urgent"}}.Matches(task))
	})

	t.Run("search is case-insensitive over title and description", func(t *testing.T) {
		t.Parallel()
		assert.True(t, domain.TaskFilter{Search: "REPORT"}.Matches(task))
		assert.True(t, domain.TaskFilter{Search: "quarterly"}.Matches(task))
		assert.False(t, domain.TaskFilter{Search: "budget"}.Matches(task))
	})

	t.Run("due before", func(t *testing.T) {
		t.Parallel()
		due := time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC)
		withDue := &domain.Task{ID: "c", DueDate: &due}
		cutoff := due.AddDate(0, 0, 1)
		assert.True(t, domain.TaskFilter{DueBefore: &cutoff}.Matches(withDue))
		assert.False(t, domain.TaskFilter{DueBefore: &due}.Matches(withDue))
		assert.False(t, domain.TaskFilter{DueBefore: &cutoff}.Matches(task))
	})
}

func TestCompareTasksDeterminism(t *testing.T) {
	t.Parallel()

	// Same priority everywhere: only the ID tie-break orders them.
	tasks := []*domain.Task{
		{ID: "c", Priority: domain.PriorityHigh},
		{ID: "a", Priority: domain.PriorityHigh},
		{ID: "b", Priority: domain.PriorityHigh},
	}

	sorted := func() []string {
		out := slices.Clone(tasks)
		slices.SortFunc(out, func(x, y *domain.Task) int {
			return domain.CompareTasks(x, y, domain.SortPriority)
		})
		ids := make([]string, len(out))
		for i, task := range out {
			ids[i] = task.ID
		}
		return ids
	}

	first := sorted()
	assert.Equal(t, []string{"a", "b", "c"}, first)
	for range 10 {
		assert.Equal(t, first, sorted())
	}
}

func TestCompareTasksDueDate(t *testing.T) {
	t.Parallel()

	early := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	late := time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)
	a := &domain.Task{ID: "a", DueDate: &late}
	b := &domain.Task{ID: "b", DueDate: &early}
	c := &domain.Task{ID: "c"} // No due date sorts last

	tasks := []*domain.Task{a, c, b}
	slices.SortFunc(tasks, func(x, y *domain.Task) int {
		return domain.CompareTasks(x, y, domain.SortDue)
	})
	assert.Equal(t, "b", tasks[0].ID)
	assert.Equal(t, "a", tasks[1].ID)
	assert.Equal(t, "c", tasks[2].ID)
}

func TestTaskCloneIsDeep(t *testing.T) {
	t.Parallel()

	due := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	parent := "p"
	task := &domain.Task{
		ID:       "a",
		ParentID: &parent,
		DueDate:  &due,
		Tags:     []string{"x"},
		Notes:    []domain.Note{{Text: "n"}},
	}

	clone := task.Clone()
	*clone.ParentID = "q"
	*clone.DueDate = due.AddDate(1, 0, 0)
	clone.Tags[0] = "y"
	clone.Notes[0].Text = "m"

	assert.Equal(t, "p", *task.ParentID)
	assert.Equal(t, due, *task.DueDate)
	assert.Equal(t, "x", task.Tags[0])
	assert.Equal(t, "n", task.Notes[0].Text)
}

func TestTaskNormalize(t *testing.T) {
	t.Parallel()

	now := time.Now()
	empty := ""
	task := &domain.Task{
		CreatedAt:   now,
		CompletedAt: &now,
		ParentID:    &empty,
		Status:      "bogus",
		Priority:    "bogus",
	}
	task.Normalize()

	assert.NotEmpty(t, task.ID)
	assert.Equal(t, domain.StatusTodo, task.Status)
	assert.Equal(t, domain.PriorityNone, task.Priority)
	assert.Nil(t, task.CompletedAt, "completedAt only valid on done tasks")
	assert.Nil(t, task.ParentID)
	assert.Equal(t, now, task.UpdatedAt)
}
