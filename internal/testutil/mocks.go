// Package testutil provides shared test utilities and mock implementations.
package testutil

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/okui/taskdeck/internal/domain"
)

// MockClock is a test double for domain.Clock.
type MockClock struct {
	NowTime time.Time
}

// Now returns the configured time.
func (m *MockClock) Now() time.Time {
	return m.NowTime
}

// Advance moves the configured time forward.
func (m *MockClock) Advance(d time.Duration) {
	m.NowTime = m.NowTime.Add(d)
}

// MockLogger records log entries for assertions.
type MockLogger struct {
	Entries []string
}

func (m *MockLogger) record(level, scope, category, msg string) {
	m.Entries = append(m.Entries, fmt.Sprintf("%s %s %s %s", level, scope, category, msg))
}

// Debug records a debug entry.
func (m *MockLogger) Debug(scope, category, msg string) { m.record("DEBUG", scope, category, msg) }

// Info records an info entry.
func (m *MockLogger) Info(scope, category, msg string) { m.record("INFO", scope, category, msg) }

// Warn records a warn entry.
func (m *MockLogger) Warn(scope, category, msg string) { m.record("WARN", scope, category, msg) }

// Error records an error entry.
func (m *MockLogger) Error(scope, category, msg string) { m.record("ERROR", scope, category, msg) }

// Contains reports whether any recorded entry contains the substring.
func (m *MockLogger) Contains(substr string) bool {
	for _, e := range m.Entries {
		if strings.Contains(e, substr) {
			return true
		}
	}
	return false
}

// MockProvider is an in-memory test double for domain.Provider. It keeps a
// fake remote task set and records every mutating call, with per-method and
// per-ID error injection.
// Fields are ordered to minimize memory padding.
type MockProvider struct {
	Remote      map[string]domain.ExternalTask
	UpdateErrBy map[string]error // Per external ID
	DeleteErrBy map[string]error // Per external ID
	FetchErr    error
	CreateErr   error
	UpdateErr   error
	CompleteErr error
	ReopenErr   error
	DeleteErr   error
	ProviderNam string
	Created     []string // External IDs, in call order
	Updated     []string
	Completed   []string
	Reopened    []string
	Deleted     []string
	NextIDN     int
	Subtasks    bool
	Connected   bool
}

// NewMockProvider creates a connected MockProvider with an empty remote set.
func NewMockProvider() *MockProvider {
	return &MockProvider{
		ProviderNam: "mock",
		Remote:      make(map[string]domain.ExternalTask),
		UpdateErrBy: make(map[string]error),
		DeleteErrBy: make(map[string]error),
		NextIDN:     1,
		Connected:   true,
		Subtasks:    true,
	}
}

// Ensure MockProvider implements the provider interfaces.
var (
	_ domain.Provider        = (*MockProvider)(nil)
	_ domain.SubtaskProvider = (*MockProvider)(nil)
)

// Name returns the configured provider name.
func (m *MockProvider) Name() string {
	return m.ProviderNam
}

// IsConnected returns the configured value.
func (m *MockProvider) IsConnected() bool {
	return m.Connected
}

// TestConnection reports the configured connection state.
func (m *MockProvider) TestConnection(_ context.Context) (domain.ConnectionStatus, error) {
	if !m.Connected {
		return domain.ConnectionStatus{Err: "not connected"}, nil
	}
	return domain.ConnectionStatus{OK: true, User: "mock-user"}, nil
}

// FetchTasks returns the remote set sorted by external ID, honoring
// UpdatedSince.
func (m *MockProvider) FetchTasks(_ context.Context, opts domain.FetchOptions) ([]domain.ExternalTask, error) {
	if m.FetchErr != nil {
		return nil, m.FetchErr
	}
	var out []domain.ExternalTask
	for _, t := range m.Remote {
		if !opts.UpdatedSince.IsZero() && !t.UpdatedAt.After(opts.UpdatedSince) {
			continue
		}
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// CreateTask stores the task under a generated external ID.
func (m *MockProvider) CreateTask(_ context.Context, t domain.ExternalTask) (string, error) {
	if m.CreateErr != nil {
		return "", m.CreateErr
	}
	id := fmt.Sprintf("ext-%d", m.NextIDN)
	m.NextIDN++
	t.ID = id
	m.Remote[id] = t
	m.Created = append(m.Created, id)
	return id, nil
}

// UpdateTask overwrites the remote task, keeping its ID and parent.
func (m *MockProvider) UpdateTask(_ context.Context, externalID string, t domain.ExternalTask) error {
	if err, ok := m.UpdateErrBy[externalID]; ok {
		return err
	}
	if m.UpdateErr != nil {
		return m.UpdateErr
	}
	existing, ok := m.Remote[externalID]
	if !ok {
		return fmt.Errorf("remote task %s not found", externalID)
	}
	t.ID = externalID
	if t.ParentID == "" {
		t.ParentID = existing.ParentID
	}
	m.Remote[externalID] = t
	m.Updated = append(m.Updated, externalID)
	return nil
}

// CompleteTask marks the remote task completed. Idempotent.
func (m *MockProvider) CompleteTask(_ context.Context, externalID string) error {
	if m.CompleteErr != nil {
		return m.CompleteErr
	}
	if t, ok := m.Remote[externalID]; ok {
		t.Completed = true
		m.Remote[externalID] = t
	}
	m.Completed = append(m.Completed, externalID)
	return nil
}

// ReopenTask marks the remote task not completed. Idempotent.
func (m *MockProvider) ReopenTask(_ context.Context, externalID string) error {
	if m.ReopenErr != nil {
		return m.ReopenErr
	}
	if t, ok := m.Remote[externalID]; ok {
		t.Completed = false
		m.Remote[externalID] = t
	}
	m.Reopened = append(m.Reopened, externalID)
	return nil
}

// DeleteTask removes the remote task.
func (m *MockProvider) DeleteTask(_ context.Context, externalID string) error {
	if err, ok := m.DeleteErrBy[externalID]; ok {
		return err
	}
	if m.DeleteErr != nil {
		return m.DeleteErr
	}
	delete(m.Remote, externalID)
	m.Deleted = append(m.Deleted, externalID)
	return nil
}

// SupportsSubtasks returns the configured value.
func (m *MockProvider) SupportsSubtasks() bool {
	return m.Subtasks
}

// FetchSubtasks lists remote tasks whose parent matches.
func (m *MockProvider) FetchSubtasks(_ context.Context, parentExternalID string) ([]domain.ExternalTask, error) {
	var out []domain.ExternalTask
	for _, t := range m.Remote {
		if t.ParentID == parentExternalID {
			out = append(out, t)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// CreateSubtask stores the task under the given remote parent.
func (m *MockProvider) CreateSubtask(ctx context.Context, parentExternalID string, t domain.ExternalTask) (string, error) {
	t.ParentID = parentExternalID
	return m.CreateTask(ctx, t)
}

// MapToLocal translates a remote task to local fields. Pure.
func (m *MockProvider) MapToLocal(t domain.ExternalTask) domain.Task {
	status := domain.StatusTodo
	if t.Completed {
		status = domain.StatusDone
	}
	local := domain.Task{
		Title:       t.Title,
		Description: t.Description,
		Project:     t.Project,
		Status:      status,
		Priority:    t.Priority,
		Tags:        append([]string(nil), t.Tags...),
	}
	if !local.Priority.Valid() {
		local.Priority = domain.PriorityNone
	}
	if t.DueDate != nil {
		v := *t.DueDate
		local.DueDate = &v
	}
	return local
}

// MapToExternal translates a local task to remote fields. Pure.
func (m *MockProvider) MapToExternal(t domain.Task) domain.ExternalTask {
	ext := domain.ExternalTask{
		Title:       t.Title,
		Description: t.Description,
		Project:     t.Project,
		Priority:    t.Priority,
		Tags:        append([]string(nil), t.Tags...),
		Completed:   t.IsDone(),
		CreatedAt:   t.CreatedAt,
		UpdatedAt:   t.UpdatedAt,
	}
	if t.DueDate != nil {
		v := *t.DueDate
		ext.DueDate = &v
	}
	return ext
}

// SeedRemote adds a remote task, assigning an external ID when empty.
func (m *MockProvider) SeedRemote(t domain.ExternalTask) string {
	if t.ID == "" {
		t.ID = fmt.Sprintf("ext-%d", m.NextIDN)
		m.NextIDN++
	}
	m.Remote[t.ID] = t
	return t.ID
}
