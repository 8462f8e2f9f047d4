package tui_test

import (
	"path/filepath"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/okui/taskdeck/internal/domain"
	"github.com/okui/taskdeck/internal/store"
	"github.com/okui/taskdeck/internal/syncstate"
	"github.com/okui/taskdeck/internal/tui"
)

func newFixtures(t *testing.T) (*store.Store, *syncstate.Manager) {
	t.Helper()
	dir := t.TempDir()
	st, err := store.Open(filepath.Join(dir, "tasks.json"), store.WithDebounce(time.Hour))
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })
	return st, syncstate.Open(filepath.Join(dir, "syncstate.json"))
}

func press(m tea.Model, key string) tea.Model {
	var msg tea.KeyMsg
	switch key {
	case "enter":
		msg = tea.KeyMsg{Type: tea.KeyEnter}
	default:
		msg = tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(key)}
	}
	next, _ := m.Update(msg)
	return next
}

func TestEnterTogglesDone(t *testing.T) {
	t.Parallel()
	st, state := newFixtures(t)
	task, err := st.AddTask(store.TaskInput{Title: "toggle me"})
	require.NoError(t, err)
	var m tea.Model = tui.New(st, state)
	m, _ = m.Update(tea.WindowSizeMsg{Width: 80, Height: 24})

	m = press(m, "enter")
	got, _ := st.Get(task.ID)
	assert.True(t, got.IsDone())

	// A second press reopens instead of re-completing.
	m = press(m, "enter")
	got, _ = st.Get(task.ID)
	assert.Equal(t, domain.StatusTodo, got.Status)
}

func TestDeleteKeyRemovesTask(t *testing.T) {
	t.Parallel()
	st, state := newFixtures(t)
	task, err := st.AddTask(store.TaskInput{Title: "doomed"})
	require.NoError(t, err)
	var m tea.Model = tui.New(st, state)
	m, _ = m.Update(tea.WindowSizeMsg{Width: 80, Height: 24})

	m = press(m, "d")
	_, exists := st.Get(task.ID)
	assert.False(t, exists)

	m = press(m, "u")
	_, exists = st.Get(task.ID)
	assert.True(t, exists, "undo restores the deleted task")

	press(m, "r")
	_, exists = st.Get(task.ID)
	assert.False(t, exists, "redo deletes again")
}

func TestDeleteKeyMarksMappedSubtreeForSync(t *testing.T) {
	t.Parallel()
	st, state := newFixtures(t)
	parent, err := st.AddTask(store.TaskInput{Title: "synced parent"})
	require.NoError(t, err)
	child, err := st.AddSubtask(parent.ID, store.TaskInput{Title: "synced child"})
	require.NoError(t, err)
	state.AddMapping(parent.ID, "X123", "")
	state.AddMapping(child.ID, "X124", "")

	var m tea.Model = tui.New(st, state)
	m, _ = m.Update(tea.WindowSizeMsg{Width: 80, Height: 24})

	press(m, "d")
	_, exists := st.Get(parent.ID)
	require.False(t, exists)
	assert.True(t, state.IsDeletedLocally(parent.ID), "mapped parent queued for remote deletion")
	assert.True(t, state.IsDeletedLocally(child.ID), "mapped subtask queued too")
}

func TestViewShowsFooter(t *testing.T) {
	t.Parallel()
	st, state := newFixtures(t)
	_, err := st.AddTask(store.TaskInput{Title: "visible"})
	require.NoError(t, err)
	var m tea.Model = tui.New(st, state)
	m, _ = m.Update(tea.WindowSizeMsg{Width: 80, Height: 24})

	view := m.View()
	assert.Contains(t, view, "visible")
	assert.Contains(t, view, "q: quit")
}
