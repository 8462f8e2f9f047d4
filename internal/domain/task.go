// Package domain contains core business entities and interfaces.
package domain

import (
	"time"

	"github.com/google/uuid"
)

// Task represents a unit of trackable work.
// Fields are ordered to minimize memory padding.
type Task struct {
	CreatedAt      time.Time       `json:"createdAt"`
	UpdatedAt      time.Time       `json:"updatedAt"`
	CompletedAt    *time.Time      `json:"completedAt,omitempty"` // Set exactly when status becomes done
	DueDate        *time.Time      `json:"dueDate,omitempty"`
	Recurrence     *RecurrenceRule `json:"recurrence,omitempty"`
	ParentID       *string         `json:"parentId"` // nil = top-level task
	ID             string          `json:"id"`       // Opaque, globally unique, immutable
	Title          string          `json:"title"`
	Description    string          `json:"description,omitempty"`
	Project        string          `json:"project,omitempty"`
	ExternalID     string          `json:"externalId,omitempty"`     // Written only by the sync engine
	ExternalSource string          `json:"externalSource,omitempty"` // Provider name owning ExternalID
	Status         Status          `json:"status"`
	Priority       Priority        `json:"priority"`
	Tags           []string        `json:"tags,omitempty"`
	SubtaskIDs     []string        `json:"subtaskIds,omitempty"` // Ordered children
	BlockedBy      []string        `json:"blockedBy,omitempty"`  // Blocking task IDs
	Notes          []Note          `json:"notes,omitempty"`
	Order          int             `json:"order"` // Manual order key
	EstimateMin    int             `json:"estimateMinutes,omitempty"`
	ActualMin      int             `json:"actualMinutes,omitempty"`
}

// Note is a timestamped annotation attached to a task.
type Note struct {
	Time time.Time `json:"time"`
	Text string    `json:"text"`
}

// NewTaskID returns a fresh opaque task ID.
func NewTaskID() string {
	return uuid.NewString()
}

// IsRoot returns true if this is a top-level task (no parent).
func (t *Task) IsRoot() bool {
	return t.ParentID == nil
}

// IsDone returns true if the task is completed.
func (t *Task) IsDone() bool {
	return t.Status == StatusDone
}

// HasSubtask returns true if id is a direct child of this task.
func (t *Task) HasSubtask(id string) bool {
	for _, s := range t.SubtaskIDs {
		if s == id {
			return true
		}
	}
	return false
}

// Clone returns a deep copy of the task.
func (t *Task) Clone() *Task {
	c := *t
	if t.CompletedAt != nil {
		v := *t.CompletedAt
		c.CompletedAt = &v
	}
	if t.DueDate != nil {
		v := *t.DueDate
		c.DueDate = &v
	}
	if t.Recurrence != nil {
		v := *t.Recurrence
		if t.Recurrence.Until != nil {
			u := *t.Recurrence.Until
			v.Until = &u
		}
		c.Recurrence = &v
	}
	if t.ParentID != nil {
		v := *t.ParentID
		c.ParentID = &v
	}
	c.Tags = append([]string(nil), t.Tags...)
	c.SubtaskIDs = append([]string(nil), t.SubtaskIDs...)
	c.BlockedBy = append([]string(nil), t.BlockedBy...)
	c.Notes = append([]Note(nil), t.Notes...)
	return &c
}

// Normalize fills defaults for fields that may be absent in old task files.
// Tolerant-read contract: unknown fields are dropped by the decoder, missing
// fields get explicit defaults here.
func (t *Task) Normalize() {
	if t.ID == "" {
		t.ID = NewTaskID()
	}
	if !t.Status.Valid() {
		t.Status = StatusTodo
	}
	if !t.Priority.Valid() {
		t.Priority = PriorityNone
	}
	if t.Status != StatusDone {
		t.CompletedAt = nil
	}
	if t.UpdatedAt.IsZero() {
		t.UpdatedAt = t.CreatedAt
	}
	if t.ParentID != nil && *t.ParentID == "" {
		t.ParentID = nil
	}
}
