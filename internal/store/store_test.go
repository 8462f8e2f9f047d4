package store_test

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/okui/taskdeck/internal/domain"
	"github.com/okui/taskdeck/internal/store"
	"github.com/okui/taskdeck/internal/testutil"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// openStore creates a store on a temp file with a controllable clock.
func openStore(t *testing.T) (*store.Store, *testutil.MockClock) {
	t.Helper()
	clock := &testutil.MockClock{NowTime: date(2025, time.January, 6)}
	st, err := store.Open(filepath.Join(t.TempDir(), "tasks.json"),
		store.WithClock(clock),
		store.WithDebounce(time.Hour), // Tests flush explicitly
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })
	return st, clock
}

func TestAddTask(t *testing.T) {
	t.Parallel()
	st, clock := openStore(t)

	task, err := st.AddTask(store.TaskInput{Title: "write report", Project: "work"})
	require.NoError(t, err)
	assert.NotEmpty(t, task.ID)
	assert.Equal(t, domain.StatusTodo, task.Status)
	assert.Equal(t, domain.PriorityNone, task.Priority)
	assert.Equal(t, clock.NowTime, task.CreatedAt)
	assert.Equal(t, clock.NowTime, task.UpdatedAt)
	assert.True(t, task.IsRoot())

	_, err = st.AddTask(store.TaskInput{})
	assert.ErrorIs(t, err, domain.ErrEmptyTitle)

	_, err = st.AddTask(store.TaskInput{Title: "x", Priority: "sometime"})
	assert.ErrorIs(t, err, domain.ErrInvalidPriority)
}

func TestAddSubtask(t *testing.T) {
	t.Parallel()
	st, _ := openStore(t)

	parent, err := st.AddTask(store.TaskInput{Title: "parent"})
	require.NoError(t, err)
	child, err := st.AddSubtask(parent.ID, store.TaskInput{Title: "child"})
	require.NoError(t, err)

	require.NotNil(t, child.ParentID)
	assert.Equal(t, parent.ID, *child.ParentID)
	got, ok := st.Get(parent.ID)
	require.True(t, ok)
	assert.True(t, got.HasSubtask(child.ID))

	_, err = st.AddSubtask("missing", store.TaskInput{Title: "orphan"})
	assert.ErrorIs(t, err, domain.ErrParentNotFound)
}

func TestUpdateTask(t *testing.T) {
	t.Parallel()
	st, clock := openStore(t)

	task, err := st.AddTask(store.TaskInput{Title: "before"})
	require.NoError(t, err)

	clock.Advance(time.Hour)
	title := "after"
	status := domain.StatusDone
	updated, err := st.UpdateTask(task.ID, store.TaskPatch{Title: &title, Status: &status})
	require.NoError(t, err)
	assert.Equal(t, "after", updated.Title)
	assert.Equal(t, domain.StatusDone, updated.Status)
	require.NotNil(t, updated.CompletedAt)
	assert.Equal(t, clock.NowTime, *updated.CompletedAt)
	assert.Equal(t, clock.NowTime, updated.UpdatedAt)

	// Leaving done clears completedAt.
	todo := domain.StatusTodo
	updated, err = st.UpdateTask(task.ID, store.TaskPatch{Status: &todo})
	require.NoError(t, err)
	assert.Nil(t, updated.CompletedAt)

	_, err = st.UpdateTask(task.ID, store.TaskPatch{})
	assert.ErrorIs(t, err, domain.ErrNoFieldsToUpdate)

	empty := ""
	_, err = st.UpdateTask(task.ID, store.TaskPatch{Title: &empty})
	assert.ErrorIs(t, err, domain.ErrEmptyTitle)

	_, err = st.UpdateTask("missing", store.TaskPatch{Title: &title})
	assert.ErrorIs(t, err, domain.ErrTaskNotFound)
}

func TestUpdateTaskTags(t *testing.T) {
	t.Parallel()
	st, _ := openStore(t)

	task, err := st.AddTask(store.TaskInput{Title: "x", Tags: []string{"a", "b"}})
	require.NoError(t, err)

	updated, err := st.UpdateTask(task.ID, store.TaskPatch{
		AddTags:    []string{"c", "a"}, // Duplicate add is a no-op
		RemoveTags: []string{"b"},
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "c"}, updated.Tags)
}

func TestDeleteTaskCascades(t *testing.T) {
	t.Parallel()
	st, _ := openStore(t)

	root, err := st.AddTask(store.TaskInput{Title: "root"})
	require.NoError(t, err)
	child, err := st.AddSubtask(root.ID, store.TaskInput{Title: "child"})
	require.NoError(t, err)
	grandchild, err := st.AddSubtask(child.ID, store.TaskInput{Title: "grandchild"})
	require.NoError(t, err)
	other, err := st.AddTask(store.TaskInput{Title: "other"})
	require.NoError(t, err)

	require.True(t, st.DeleteTask(root.ID))

	for _, id := range []string{root.ID, child.ID, grandchild.ID} {
		_, ok := st.Get(id)
		assert.False(t, ok)
	}
	_, ok := st.Get(other.ID)
	assert.True(t, ok)

	assert.False(t, st.DeleteTask(root.ID))
}

func TestIndentTaskRejectsCycles(t *testing.T) {
	t.Parallel()
	st, _ := openStore(t)

	a, err := st.AddTask(store.TaskInput{Title: "a"})
	require.NoError(t, err)
	b, err := st.AddSubtask(a.ID, store.TaskInput{Title: "b"})
	require.NoError(t, err)
	c, err := st.AddSubtask(b.ID, store.TaskInput{Title: "c"})
	require.NoError(t, err)

	undoBefore := st.UndoCount()

	// Under itself, under a descendant, unknown IDs: all rejected.
	assert.False(t, st.IndentTask(a.ID, a.ID))
	assert.False(t, st.IndentTask(a.ID, b.ID))
	assert.False(t, st.IndentTask(a.ID, c.ID))
	assert.False(t, st.IndentTask("missing", a.ID))
	assert.False(t, st.IndentTask(a.ID, "missing"))
	// Already the parent.
	assert.False(t, st.IndentTask(b.ID, a.ID))

	// No state change, no undo entry.
	assert.Equal(t, undoBefore, st.UndoCount())
	got, _ := st.Get(a.ID)
	assert.Nil(t, got.ParentID)
	assert.Equal(t, []string{b.ID}, got.SubtaskIDs)
}

func TestIndentAndPromote(t *testing.T) {
	t.Parallel()
	st, _ := openStore(t)

	a, err := st.AddTask(store.TaskInput{Title: "a"})
	require.NoError(t, err)
	b, err := st.AddTask(store.TaskInput{Title: "b"})
	require.NoError(t, err)

	require.True(t, st.IndentTask(b.ID, a.ID))
	got, _ := st.Get(b.ID)
	require.NotNil(t, got.ParentID)
	assert.Equal(t, a.ID, *got.ParentID)

	require.True(t, st.PromoteSubtask(b.ID))
	got, _ = st.Get(b.ID)
	assert.Nil(t, got.ParentID)
	parent, _ := st.Get(a.ID)
	assert.Empty(t, parent.SubtaskIDs)

	assert.False(t, st.PromoteSubtask(b.ID), "already top-level")
}

func TestCompleteRecurringWeekly(t *testing.T) {
	t.Parallel()
	st, clock := openStore(t)
	clock.NowTime = date(2025, time.January, 6)

	due := date(2025, time.January, 6)
	task, err := st.AddTask(store.TaskInput{
		Title:      "team retro",
		DueDate:    &due,
		Recurrence: &domain.RecurrenceRule{Frequency: domain.FreqWeekly, Interval: 1},
	})
	require.NoError(t, err)

	next, err := st.CompleteRecurring(task.ID)
	require.NoError(t, err)
	require.NotNil(t, next)

	done, _ := st.Get(task.ID)
	assert.Equal(t, domain.StatusDone, done.Status)

	assert.Equal(t, domain.StatusTodo, next.Status)
	require.NotNil(t, next.DueDate)
	assert.Equal(t, date(2025, time.January, 13), *next.DueDate)
	assert.Equal(t, task.Title, next.Title)
	require.NotNil(t, next.Recurrence)

	// One undo entry covers both the completion and the insertion.
	require.True(t, st.Undo())
	reverted, _ := st.Get(task.ID)
	assert.Equal(t, domain.StatusTodo, reverted.Status)
	_, ok := st.Get(next.ID)
	assert.False(t, ok)
}

func TestCompleteRecurringWithoutRule(t *testing.T) {
	t.Parallel()
	st, _ := openStore(t)

	task, err := st.AddTask(store.TaskInput{Title: "one-off"})
	require.NoError(t, err)

	next, err := st.CompleteRecurring(task.ID)
	require.NoError(t, err)
	assert.Nil(t, next)
	done, _ := st.Get(task.ID)
	assert.Equal(t, domain.StatusDone, done.Status)
}

func TestCompleteRecurringExpired(t *testing.T) {
	t.Parallel()
	st, clock := openStore(t)
	clock.NowTime = date(2025, time.January, 6)

	until := date(2025, time.January, 10)
	due := date(2025, time.January, 6)
	task, err := st.AddTask(store.TaskInput{
		Title:      "winding down",
		DueDate:    &due,
		Recurrence: &domain.RecurrenceRule{Frequency: domain.FreqWeekly, Interval: 1, Until: &until},
	})
	require.NoError(t, err)

	next, err := st.CompleteRecurring(task.ID)
	require.NoError(t, err)
	assert.Nil(t, next, "next occurrence past until")
}

func TestBlockedTasks(t *testing.T) {
	t.Parallel()
	st, _ := openStore(t)

	blocker, err := st.AddTask(store.TaskInput{Title: "blocker"})
	require.NoError(t, err)
	blocked, err := st.AddTask(store.TaskInput{Title: "blocked"})
	require.NoError(t, err)

	require.NoError(t, st.Block(blocked.ID, blocker.ID))
	assert.True(t, st.IsBlocked(blocked.ID))
	assert.False(t, st.IsBlocked(blocker.ID))

	assert.Equal(t, []string{blocked.ID}, st.GetUnblockedTasks(blocker.ID))

	_, err = st.MoveToStatus(blocker.ID, domain.StatusDone)
	require.NoError(t, err)
	assert.False(t, st.IsBlocked(blocked.ID))

	// Blockers referencing deleted tasks are ignored.
	require.NoError(t, st.Unblock(blocked.ID, blocker.ID))
	require.NoError(t, st.Block(blocked.ID, blocker.ID))
	require.True(t, st.DeleteTask(blocker.ID))
	assert.False(t, st.IsBlocked(blocked.ID))
}

func TestGetProgressDirectChildrenOnly(t *testing.T) {
	t.Parallel()
	st, _ := openStore(t)

	root, err := st.AddTask(store.TaskInput{Title: "root"})
	require.NoError(t, err)
	c1, err := st.AddSubtask(root.ID, store.TaskInput{Title: "c1"})
	require.NoError(t, err)
	_, err = st.AddSubtask(root.ID, store.TaskInput{Title: "c2"})
	require.NoError(t, err)
	g1, err := st.AddSubtask(c1.ID, store.TaskInput{Title: "g1"})
	require.NoError(t, err)

	_, err = st.MoveToStatus(c1.ID, domain.StatusDone)
	require.NoError(t, err)
	_, err = st.MoveToStatus(g1.ID, domain.StatusDone)
	require.NoError(t, err)

	done, total := st.GetProgress(root.ID)
	assert.Equal(t, 1, done)
	assert.Equal(t, 2, total, "grandchildren do not count")
}

func TestEstimateAndLogTime(t *testing.T) {
	t.Parallel()
	st, _ := openStore(t)

	task, err := st.AddTask(store.TaskInput{Title: "work"})
	require.NoError(t, err)

	require.NoError(t, st.SetEstimate(task.ID, 120))
	require.NoError(t, st.LogTime(task.ID, 30))
	require.NoError(t, st.LogTime(task.ID, 15))

	got, _ := st.Get(task.ID)
	assert.Equal(t, 120, got.EstimateMin)
	assert.Equal(t, 45, got.ActualMin)

	assert.ErrorIs(t, st.SetEstimate(task.ID, -1), domain.ErrNegativeMinutes)
	assert.ErrorIs(t, st.LogTime(task.ID, -1), domain.ErrNegativeMinutes)
	assert.ErrorIs(t, st.LogTime("missing", 5), domain.ErrTaskNotFound)
}

func TestAddNote(t *testing.T) {
	t.Parallel()
	st, clock := openStore(t)

	task, err := st.AddTask(store.TaskInput{Title: "x"})
	require.NoError(t, err)
	clock.Advance(time.Minute)
	require.NoError(t, st.AddNote(task.ID, "checked with design"))

	got, _ := st.Get(task.ID)
	require.Len(t, got.Notes, 1)
	assert.Equal(t, "checked with design", got.Notes[0].Text)
	assert.Equal(t, clock.NowTime, got.Notes[0].Time)
}
