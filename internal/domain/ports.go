package domain

import (
	"context"
	"time"
)

// Clock provides time operations for testability.
type Clock interface {
	// Now returns the current time.
	Now() time.Time
}

// RealClock implements Clock using the system clock.
type RealClock struct{}

// Now returns the current time.
func (RealClock) Now() time.Time {
	return time.Now()
}

// Logger writes categorized log messages. The scope is "" for application-wide
// entries or a provider name for sync entries.
type Logger interface {
	Debug(scope, category, msg string)
	Info(scope, category, msg string)
	Warn(scope, category, msg string)
	Error(scope, category, msg string)
}

// ExternalTask is the provider-neutral representation of a remote task.
// Fields are ordered to minimize memory padding.
type ExternalTask struct {
	CreatedAt   time.Time  `json:"createdAt"`
	UpdatedAt   time.Time  `json:"updatedAt"`
	DueDate     *time.Time `json:"dueDate,omitempty"`
	ID          string     `json:"id"` // Provider-assigned identifier
	Title       string     `json:"title"`
	Description string     `json:"description,omitempty"`
	Project     string     `json:"project,omitempty"`
	ParentID    string     `json:"parentId,omitempty"` // External ID of the remote parent
	Tags        []string   `json:"tags,omitempty"`
	Priority    Priority   `json:"priority"`
	Completed   bool       `json:"completed"`
}

// ConnectionStatus reports the outcome of a provider connection test.
type ConnectionStatus struct {
	User string // Authenticated user, if known
	Err  string // Failure description when OK is false
	OK   bool
}

// FetchOptions narrows a remote task listing.
type FetchOptions struct {
	// UpdatedSince limits results to tasks changed after this time.
	// Zero means a full fetch.
	UpdatedSince time.Time
}

// Provider is the uniform contract over an external task tracker. The sync
// engine never calls a network API directly; every external effect crosses
// this interface.
type Provider interface {
	// Name returns the configured provider name.
	Name() string

	// IsConnected reports whether credentials are present.
	IsConnected() bool

	// TestConnection verifies the credentials against the remote service.
	TestConnection(ctx context.Context) (ConnectionStatus, error)

	// FetchTasks lists remote tasks matching the options.
	FetchTasks(ctx context.Context, opts FetchOptions) ([]ExternalTask, error)

	// CreateTask creates a remote task and returns its external ID.
	CreateTask(ctx context.Context, t ExternalTask) (string, error)

	// UpdateTask updates a remote task by external ID.
	UpdateTask(ctx context.Context, externalID string, t ExternalTask) error

	// CompleteTask marks a remote task completed. Idempotent.
	CompleteTask(ctx context.Context, externalID string) error

	// ReopenTask marks a remote task not completed. Idempotent.
	ReopenTask(ctx context.Context, externalID string) error

	// DeleteTask removes a remote task by external ID.
	DeleteTask(ctx context.Context, externalID string) error

	// SupportsSubtasks reports whether the remote service models hierarchy.
	SupportsSubtasks() bool

	// MapToLocal translates a remote task to local fields. Pure.
	MapToLocal(t ExternalTask) Task

	// MapToExternal translates a local task to remote fields. Pure.
	MapToExternal(t Task) ExternalTask
}

// SubtaskProvider is optionally implemented by providers whose remote service
// exposes hierarchy through dedicated endpoints.
type SubtaskProvider interface {
	FetchSubtasks(ctx context.Context, parentExternalID string) ([]ExternalTask, error)
	CreateSubtask(ctx context.Context, parentExternalID string, t ExternalTask) (string, error)
}

// ConflictStrategy decides which side wins when both local and remote copies
// of a task changed.
type ConflictStrategy string

const (
	RemoteWins ConflictStrategy = "remote-wins"
	LocalWins  ConflictStrategy = "local-wins"
	NewestWins ConflictStrategy = "newest-wins" // Compare updatedAt; remote wins ties
)

// Valid returns true if the strategy is a known value.
func (s ConflictStrategy) Valid() bool {
	switch s {
	case RemoteWins, LocalWins, NewestWins:
		return true
	}
	return false
}
