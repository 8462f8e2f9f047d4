package store_test

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/okui/taskdeck/internal/domain"
	"github.com/okui/taskdeck/internal/store"
	"github.com/okui/taskdeck/internal/testutil"
)

func TestRoundTrip(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "tasks.json")

	st, err := store.Open(path, store.WithDebounce(time.Hour))
	require.NoError(t, err)
	root, err := st.AddTask(store.TaskInput{Title: "root", Tags: []string{"x"}})
	require.NoError(t, err)
	child, err := st.AddSubtask(root.ID, store.TaskInput{Title: "child"})
	require.NoError(t, err)
	_, err = st.MoveToStatus(child.ID, domain.StatusDone)
	require.NoError(t, err)
	require.NoError(t, st.Close())

	reopened, err := store.Open(path, store.WithDebounce(time.Hour))
	require.NoError(t, err)
	defer func() { _ = reopened.Close() }()

	require.Equal(t, 2, reopened.Len())
	gotRoot, ok := reopened.Get(root.ID)
	require.True(t, ok)
	assert.Equal(t, "root", gotRoot.Title)
	assert.Equal(t, []string{"x"}, gotRoot.Tags)
	assert.True(t, gotRoot.HasSubtask(child.ID))

	gotChild, ok := reopened.Get(child.ID)
	require.True(t, ok)
	assert.Equal(t, domain.StatusDone, gotChild.Status)
	assert.NotNil(t, gotChild.CompletedAt)
	require.NotNil(t, gotChild.ParentID)
	assert.Equal(t, root.ID, *gotChild.ParentID)
}

func TestSerializationIsByteStable(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "tasks.json")

	st, err := store.Open(path, store.WithDebounce(time.Hour))
	require.NoError(t, err)
	for _, title := range []string{"c", "a", "b"} {
		_, err := st.AddTask(store.TaskInput{Title: title})
		require.NoError(t, err)
	}
	require.NoError(t, st.Flush())
	first, err := os.ReadFile(path)
	require.NoError(t, err)

	// Force another full write of unchanged data.
	task, err := st.AddTask(store.TaskInput{Title: "tmp"})
	require.NoError(t, err)
	require.True(t, st.DeleteTask(task.ID))
	require.NoError(t, st.Flush())
	require.NoError(t, st.Close())

	second, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestOpenMissingFile(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "tasks.json")
	st, err := store.Open(path)
	require.NoError(t, err)
	defer func() { _ = st.Close() }()
	assert.Equal(t, 0, st.Len())

	// The first open materializes the file, so init leaves a valid empty
	// store behind even when nothing is ever added.
	content, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.JSONEq(t, "[]", string(content))
}

func TestOpenQuarantinesCorruptFile(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	path := filepath.Join(dir, "tasks.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o600))

	st, err := store.Open(path)
	require.NoError(t, err)
	defer func() { _ = st.Close() }()
	assert.Equal(t, 0, st.Len())

	// The corrupt content survives in a sidecar; the live file is valid again.
	entries, err := filepath.Glob(path + ".invalid.*.bak")
	require.NoError(t, err)
	require.Len(t, entries, 1)
	saved, err := os.ReadFile(entries[0])
	require.NoError(t, err)
	assert.Equal(t, "{not json", string(saved))

	live, err := os.ReadFile(path)
	require.NoError(t, err)
	var tasks []*domain.Task
	assert.NoError(t, json.Unmarshal(live, &tasks))
	assert.Empty(t, tasks)
}

func TestOpenRepairsHierarchy(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	path := filepath.Join(dir, "tasks.json")

	// a's parent does not exist; b claims a child that denies the link.
	parent := "ghost"
	content, err := json.Marshal([]*domain.Task{
		{ID: "a", Title: "a", Status: domain.StatusTodo, ParentID: &parent},
		{ID: "b", Title: "b", Status: domain.StatusTodo, SubtaskIDs: []string{"a", "b", "missing"}},
	})
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, content, 0o600))

	st, err := store.Open(path)
	require.NoError(t, err)
	defer func() { _ = st.Close() }()

	a, ok := st.Get("a")
	require.True(t, ok)
	assert.Nil(t, a.ParentID, "dangling parent dropped")
	b, ok := st.Get("b")
	require.True(t, ok)
	assert.Empty(t, b.SubtaskIDs, "phantom children dropped")
}

func TestAtomicityUnderWriteFailure(t *testing.T) {
	t.Parallel()
	if os.Geteuid() == 0 {
		t.Skip("directory permissions do not bind root")
	}

	dir := t.TempDir()
	path := filepath.Join(dir, "tasks.json")

	st, err := store.Open(path, store.WithDebounce(time.Hour))
	require.NoError(t, err)
	task, err := st.AddTask(store.TaskInput{Title: "persisted"})
	require.NoError(t, err)
	require.NoError(t, st.Flush())
	good, err := os.ReadFile(path)
	require.NoError(t, err)

	// Make the directory unwritable: the temp-file create fails, the
	// last-good file must remain untouched, and the error is sticky.
	require.NoError(t, os.Chmod(dir, 0o500))
	t.Cleanup(func() { _ = os.Chmod(dir, 0o700) })

	_, err = st.AddTask(store.TaskInput{Title: "doomed"})
	require.NoError(t, err, "in-memory state accepts the mutation")
	flushErr := st.Flush()
	require.Error(t, flushErr)
	assert.Error(t, st.SaveError())
	assert.True(t, st.PendingSave())

	after, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, good, after, "failed write must not corrupt the file")

	// Restore writability: the next flush succeeds and clears the error.
	require.NoError(t, os.Chmod(dir, 0o700))
	require.NoError(t, st.Flush())
	assert.NoError(t, st.SaveError())
	assert.False(t, st.PendingSave())

	require.NoError(t, st.Close())

	reopened, err := store.Open(path)
	require.NoError(t, err)
	defer func() { _ = reopened.Close() }()
	assert.Equal(t, 2, reopened.Len())
	_, ok := reopened.Get(task.ID)
	assert.True(t, ok)
}

func TestDebouncedSaveCoalesces(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "tasks.json")

	st, err := store.Open(path, store.WithDebounce(20*time.Millisecond))
	require.NoError(t, err)
	defer func() { _ = st.Close() }()

	for i := 0; i < 5; i++ {
		_, err := st.AddTask(store.TaskInput{Title: "burst"})
		require.NoError(t, err)
	}
	assert.True(t, st.PendingSave())

	require.Eventually(t, func() bool {
		return !st.PendingSave()
	}, time.Second, 5*time.Millisecond)

	content, err := os.ReadFile(path)
	require.NoError(t, err)
	var tasks []*domain.Task
	require.NoError(t, json.Unmarshal(content, &tasks))
	assert.Len(t, tasks, 5)
}

func TestCloseFlushesAndStops(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "tasks.json")

	clock := &testutil.MockClock{NowTime: date(2025, time.January, 6)}
	st, err := store.Open(path, store.WithClock(clock), store.WithDebounce(time.Hour))
	require.NoError(t, err)
	_, err = st.AddTask(store.TaskInput{Title: "x"})
	require.NoError(t, err)

	require.NoError(t, st.Close())
	assert.ErrorIs(t, st.Close(), domain.ErrStoreClosed)

	content, err := os.ReadFile(path)
	require.NoError(t, err)
	var tasks []*domain.Task
	require.NoError(t, json.Unmarshal(content, &tasks))
	assert.Len(t, tasks, 1)
}
