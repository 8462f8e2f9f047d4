package syncstate_test

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/okui/taskdeck/internal/store"
	"github.com/okui/taskdeck/internal/syncstate"
)

func TestDeleteTaskTree(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	st, err := store.Open(filepath.Join(dir, "tasks.json"), store.WithDebounce(time.Hour))
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })
	m := syncstate.Open(filepath.Join(dir, "syncstate.json"))

	parent, err := st.AddTask(store.TaskInput{Title: "parent"})
	require.NoError(t, err)
	mapped, err := st.AddSubtask(parent.ID, store.TaskInput{Title: "mapped child"})
	require.NoError(t, err)
	unmapped, err := st.AddSubtask(parent.ID, store.TaskInput{Title: "local-only child"})
	require.NoError(t, err)
	m.AddMapping(parent.ID, "ext-p", "")
	m.AddMapping(mapped.ID, "ext-c", "")

	require.True(t, syncstate.DeleteTaskTree(st, m, parent.ID))

	assert.Equal(t, 0, st.Len(), "whole subtree removed")
	assert.True(t, m.IsDeletedLocally(parent.ID))
	assert.True(t, m.IsDeletedLocally(mapped.ID))
	assert.False(t, m.IsDeletedLocally(unmapped.ID), "unmapped tasks need no marker")
}

func TestDeleteTaskTreeUnknownTask(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	st, err := store.Open(filepath.Join(dir, "tasks.json"), store.WithDebounce(time.Hour))
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })
	m := syncstate.Open(filepath.Join(dir, "syncstate.json"))

	assert.False(t, syncstate.DeleteTaskTree(st, m, "missing"))
	assert.Empty(t, m.DeletedLocalIDs())
}
