package store_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/okui/taskdeck/internal/domain"
	"github.com/okui/taskdeck/internal/store"
)

func TestGetFilteredSortStability(t *testing.T) {
	t.Parallel()
	st, _ := openStore(t)

	// All share a priority; only the ID tie-break can order them.
	for _, title := range []string{"one", "two", "three", "four"} {
		_, err := st.AddTask(store.TaskInput{Title: title, Priority: domain.PriorityMedium})
		require.NoError(t, err)
	}

	ids := func() []string {
		var out []string
		for _, task := range st.GetFiltered(domain.TaskFilter{}, domain.SortPriority) {
			out = append(out, task.ID)
		}
		return out
	}

	first := ids()
	for range 5 {
		assert.Equal(t, first, ids())
	}
	assert.IsIncreasing(t, first)
}

func TestGetFilteredTree(t *testing.T) {
	t.Parallel()
	st, _ := openStore(t)

	root, err := st.AddTask(store.TaskInput{Title: "root", Project: "work"})
	require.NoError(t, err)
	kid1, err := st.AddSubtask(root.ID, store.TaskInput{Title: "kid1", Project: "work"})
	require.NoError(t, err)
	kid2, err := st.AddSubtask(root.ID, store.TaskInput{Title: "kid2", Project: "work"})
	require.NoError(t, err)

	rows := st.GetFilteredTree(domain.TaskFilter{}, domain.SortManual)
	require.Len(t, rows, 3)
	assert.Equal(t, root.ID, rows[0].Task.ID)
	assert.Equal(t, 0, rows[0].Depth)
	assert.Equal(t, kid1.ID, rows[1].Task.ID)
	assert.Equal(t, 1, rows[1].Depth)
	assert.False(t, rows[1].IsLast)
	assert.Equal(t, kid2.ID, rows[2].Task.ID)
	assert.True(t, rows[2].IsLast)
}

func TestGetFilteredTreePromotesOrphanedMatches(t *testing.T) {
	t.Parallel()
	st, _ := openStore(t)

	root, err := st.AddTask(store.TaskInput{Title: "root", Project: "home"})
	require.NoError(t, err)
	kid, err := st.AddSubtask(root.ID, store.TaskInput{Title: "kid", Project: "work"})
	require.NoError(t, err)

	// Only the child matches: it surfaces at the top level.
	rows := st.GetFilteredTree(domain.TaskFilter{Project: "work"}, domain.SortManual)
	require.Len(t, rows, 1)
	assert.Equal(t, kid.ID, rows[0].Task.ID)
	assert.Equal(t, 0, rows[0].Depth)
}

func TestGetSubtasksKeepsOrder(t *testing.T) {
	t.Parallel()
	st, _ := openStore(t)

	root, err := st.AddTask(store.TaskInput{Title: "root"})
	require.NoError(t, err)
	var want []string
	for _, title := range []string{"z", "m", "a"} {
		child, err := st.AddSubtask(root.ID, store.TaskInput{Title: title})
		require.NoError(t, err)
		want = append(want, child.ID)
	}

	var got []string
	for _, child := range st.GetSubtasks(root.ID) {
		got = append(got, child.ID)
	}
	assert.Equal(t, want, got, "insertion order, not sorted")
}

func TestQueriesReturnCopies(t *testing.T) {
	t.Parallel()
	st, _ := openStore(t)

	task, err := st.AddTask(store.TaskInput{Title: "original"})
	require.NoError(t, err)

	got, ok := st.Get(task.ID)
	require.True(t, ok)
	got.Title = "mutated"

	again, _ := st.Get(task.ID)
	assert.Equal(t, "original", again.Title)
}
