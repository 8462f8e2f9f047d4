// Package store implements the authoritative in-memory task collection with
// hierarchical mutation, undo/redo history, and debounced atomic persistence.
package store

import (
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/okui/taskdeck/internal/domain"
)

// Store owns the task collection. It is single-writer: every mutation entry
// point runs to completion before the next begins. The mutex exists because
// the debounced persistence timer fires on a background goroutine.
type Store struct {
	clock     domain.Clock
	logger    domain.Logger
	tasks     map[string]*domain.Task
	saveTimer *time.Timer
	timer     *activeTimer
	path      string
	undo      []snapshot
	redo      []snapshot
	saveErr   error
	debounce  time.Duration
	mu        sync.Mutex
	retry     retryState
	pending   bool
	closed    bool
}

// Option configures a Store.
type Option func(*Store)

// WithClock overrides the system clock, for tests.
func WithClock(c domain.Clock) Option {
	return func(s *Store) { s.clock = c }
}

// WithLogger attaches a logger.
func WithLogger(l domain.Logger) Option {
	return func(s *Store) { s.logger = l }
}

// WithDebounce sets the persistence debounce window.
func WithDebounce(d time.Duration) Option {
	return func(s *Store) { s.debounce = d }
}

// Open loads the task file at path. A missing file yields an empty store; an
// unparsable file is quarantined to a timestamped .invalid.*.bak sidecar and
// the store starts from a freshly written empty file.
func Open(path string, opts ...Option) (*Store, error) {
	s := &Store{
		path:     path,
		clock:    domain.RealClock{},
		debounce: 300 * time.Millisecond,
		tasks:    make(map[string]*domain.Task),
	}
	for _, opt := range opts {
		opt(s)
	}
	if err := s.load(); err != nil {
		return nil, err
	}
	return s, nil
}

// TaskInput contains the fields accepted when creating a task.
// Fields are ordered to minimize memory padding.
type TaskInput struct {
	DueDate     *time.Time
	Recurrence  *domain.RecurrenceRule
	Title       string
	Description string
	Project     string
	Priority    domain.Priority
	Tags        []string
	BlockedBy   []string
	EstimateMin int
}

// TaskPatch contains the fields accepted by UpdateTask. Nil pointer fields
// are left unchanged.
// Fields are ordered to minimize memory padding.
type TaskPatch struct {
	Title           *string
	Description     *string
	Project         *string
	Status          *domain.Status
	Priority        *domain.Priority
	DueDate         *time.Time
	Recurrence      *domain.RecurrenceRule
	EstimateMin     *int
	Order           *int
	AddTags         []string
	RemoveTags      []string
	ClearDueDate    bool
	ClearRecurrence bool
}

func (p TaskPatch) empty() bool {
	return p.Title == nil && p.Description == nil && p.Project == nil &&
		p.Status == nil && p.Priority == nil && p.DueDate == nil &&
		p.Recurrence == nil && p.EstimateMin == nil && p.Order == nil &&
		len(p.AddTags) == 0 && len(p.RemoveTags) == 0 &&
		!p.ClearDueDate && !p.ClearRecurrence
}

// AddTask creates a top-level task.
func (s *Store) AddTask(in TaskInput) (*domain.Task, error) {
	return s.add(nil, in)
}

// AddSubtask creates a task under parentID.
func (s *Store) AddSubtask(parentID string, in TaskInput) (*domain.Task, error) {
	s.mu.Lock()
	_, ok := s.tasks[parentID]
	s.mu.Unlock()
	if !ok {
		return nil, domain.ErrParentNotFound
	}
	return s.add(&parentID, in)
}

func (s *Store) add(parentID *string, in TaskInput) (*domain.Task, error) {
	if in.Title == "" {
		return nil, domain.ErrEmptyTitle
	}
	if in.Priority != "" && !in.Priority.Valid() {
		return nil, domain.ErrInvalidPriority
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if parentID != nil {
		if _, ok := s.tasks[*parentID]; !ok {
			return nil, domain.ErrParentNotFound
		}
	}

	s.pushUndoLocked()

	now := s.clock.Now()
	t := &domain.Task{
		ID:          domain.NewTaskID(),
		ParentID:    parentID,
		Title:       in.Title,
		Description: in.Description,
		Project:     in.Project,
		Status:      domain.StatusTodo,
		Priority:    in.Priority,
		Tags:        slices.Clone(in.Tags),
		BlockedBy:   slices.Clone(in.BlockedBy),
		DueDate:     in.DueDate,
		Recurrence:  in.Recurrence,
		EstimateMin: in.EstimateMin,
		Order:       s.nextOrderLocked(),
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if t.Priority == "" {
		t.Priority = domain.PriorityNone
	}
	s.tasks[t.ID] = t
	if parentID != nil {
		parent := s.tasks[*parentID]
		parent.SubtaskIDs = append(parent.SubtaskIDs, t.ID)
	}

	s.scheduleSaveLocked()
	s.logf("task", "created %q", t.Title)
	return t.Clone(), nil
}

// UpdateTask applies the given fields only, refreshing updatedAt. A
// transition into done sets completedAt; a transition out clears it.
func (s *Store) UpdateTask(id string, patch TaskPatch) (*domain.Task, error) {
	if patch.empty() {
		return nil, domain.ErrNoFieldsToUpdate
	}
	if patch.Title != nil && *patch.Title == "" {
		return nil, domain.ErrEmptyTitle
	}
	if patch.Status != nil && !patch.Status.Valid() {
		return nil, domain.ErrInvalidStatus
	}
	if patch.Priority != nil && !patch.Priority.Valid() {
		return nil, domain.ErrInvalidPriority
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.tasks[id]
	if !ok {
		return nil, domain.ErrTaskNotFound
	}

	s.pushUndoLocked()

	if patch.Title != nil {
		t.Title = *patch.Title
	}
	if patch.Description != nil {
		t.Description = *patch.Description
	}
	if patch.Project != nil {
		t.Project = *patch.Project
	}
	if patch.Status != nil {
		s.applyStatusLocked(t, *patch.Status)
	}
	if patch.Priority != nil {
		t.Priority = *patch.Priority
	}
	if patch.ClearDueDate {
		t.DueDate = nil
	} else if patch.DueDate != nil {
		v := *patch.DueDate
		t.DueDate = &v
	}
	if patch.ClearRecurrence {
		t.Recurrence = nil
	} else if patch.Recurrence != nil {
		v := *patch.Recurrence
		t.Recurrence = &v
	}
	if patch.EstimateMin != nil {
		t.EstimateMin = *patch.EstimateMin
	}
	if patch.Order != nil {
		t.Order = *patch.Order
	}
	if len(patch.AddTags) > 0 || len(patch.RemoveTags) > 0 {
		t.Tags = updateTags(t.Tags, patch.AddTags, patch.RemoveTags)
	}

	t.UpdatedAt = s.clock.Now()
	s.scheduleSaveLocked()
	return t.Clone(), nil
}

// DeleteTask removes the task and its subtree, detaching it from any parent.
// Returns false if the task does not exist.
func (s *Store) DeleteTask(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.tasks[id]
	if !ok {
		return false
	}

	s.pushUndoLocked()
	s.removeSubtreeLocked(t)
	s.scheduleSaveLocked()
	s.logf("task", "deleted %q", t.Title)
	return true
}

// ToggleDone flips the task between done and todo.
func (s *Store) ToggleDone(id string) (*domain.Task, error) {
	s.mu.Lock()
	t, ok := s.tasks[id]
	if !ok {
		s.mu.Unlock()
		return nil, domain.ErrTaskNotFound
	}
	next := domain.StatusDone
	if t.IsDone() {
		next = domain.StatusTodo
	}
	s.mu.Unlock()
	return s.MoveToStatus(id, next)
}

// MoveToStatus sets the task status, maintaining completedAt.
func (s *Store) MoveToStatus(id string, status domain.Status) (*domain.Task, error) {
	if !status.Valid() {
		return nil, domain.ErrInvalidStatus
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.tasks[id]
	if !ok {
		return nil, domain.ErrTaskNotFound
	}

	s.pushUndoLocked()
	s.applyStatusLocked(t, status)
	t.UpdatedAt = s.clock.Now()
	s.scheduleSaveLocked()
	return t.Clone(), nil
}

// CompleteRecurring marks the task done and, if it carries a recurrence rule
// that has not expired, inserts the next occurrence as a fresh todo task.
// Returns the new task, or nil when no occurrence was created. The whole
// operation is one undo entry.
func (s *Store) CompleteRecurring(id string) (*domain.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.tasks[id]
	if !ok {
		return nil, domain.ErrTaskNotFound
	}

	s.pushUndoLocked()

	now := s.clock.Now()
	s.applyStatusLocked(t, domain.StatusDone)
	t.UpdatedAt = now

	if t.Recurrence == nil {
		s.scheduleSaveLocked()
		return nil, nil
	}

	from := now
	if t.DueDate != nil {
		from = *t.DueDate
	}
	due, ok := t.Recurrence.NextAfter(from)
	if !ok {
		s.scheduleSaveLocked()
		return nil, nil
	}

	rule := *t.Recurrence
	next := &domain.Task{
		ID:          domain.NewTaskID(),
		ParentID:    t.ParentID,
		Title:       t.Title,
		Description: t.Description,
		Project:     t.Project,
		Status:      domain.StatusTodo,
		Priority:    t.Priority,
		Tags:        slices.Clone(t.Tags),
		BlockedBy:   slices.Clone(t.BlockedBy),
		DueDate:     &due,
		Recurrence:  &rule,
		EstimateMin: t.EstimateMin,
		Order:       s.nextOrderLocked(),
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	s.tasks[next.ID] = next
	if next.ParentID != nil {
		if parent, ok := s.tasks[*next.ParentID]; ok {
			parent.SubtaskIDs = append(parent.SubtaskIDs, next.ID)
		} else {
			next.ParentID = nil
		}
	}

	s.scheduleSaveLocked()
	s.logf("task", "recurring %q rolled to %s", t.Title, due.Format("2006-01-02"))
	return next.Clone(), nil
}

// IndentTask reparents childID under newParentID. It rejects, with no
// mutation and no undo entry, reparenting under itself or any of its
// descendants, and unknown IDs.
func (s *Store) IndentTask(childID, newParentID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	child, ok := s.tasks[childID]
	if !ok {
		return false
	}
	parent, ok := s.tasks[newParentID]
	if !ok {
		return false
	}
	if childID == newParentID || s.isDescendantLocked(newParentID, childID) {
		return false
	}
	if child.ParentID != nil && *child.ParentID == newParentID {
		return false
	}

	s.pushUndoLocked()
	s.detachLocked(child)
	pid := newParentID
	child.ParentID = &pid
	parent.SubtaskIDs = append(parent.SubtaskIDs, childID)
	child.UpdatedAt = s.clock.Now()
	s.scheduleSaveLocked()
	return true
}

// PromoteSubtask detaches the task from its parent, making it top-level.
// Returns false if the task has no parent or does not exist.
func (s *Store) PromoteSubtask(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.tasks[id]
	if !ok || t.ParentID == nil {
		return false
	}

	s.pushUndoLocked()
	s.detachLocked(t)
	t.ParentID = nil
	t.UpdatedAt = s.clock.Now()
	s.scheduleSaveLocked()
	return true
}

// SetEstimate sets the task estimate in minutes.
func (s *Store) SetEstimate(id string, minutes int) error {
	if minutes < 0 {
		return domain.ErrNegativeMinutes
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.tasks[id]
	if !ok {
		return domain.ErrTaskNotFound
	}
	s.pushUndoLocked()
	t.EstimateMin = minutes
	t.UpdatedAt = s.clock.Now()
	s.scheduleSaveLocked()
	return nil
}

// LogTime accumulates worked minutes into the task's actual time.
func (s *Store) LogTime(id string, minutes int) error {
	if minutes < 0 {
		return domain.ErrNegativeMinutes
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.logTimeLocked(id, minutes)
}

func (s *Store) logTimeLocked(id string, minutes int) error {
	t, ok := s.tasks[id]
	if !ok {
		return domain.ErrTaskNotFound
	}
	s.pushUndoLocked()
	t.ActualMin += minutes
	t.UpdatedAt = s.clock.Now()
	s.scheduleSaveLocked()
	return nil
}

// AddNote appends a timestamped note to the task.
func (s *Store) AddNote(id, text string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.tasks[id]
	if !ok {
		return domain.ErrTaskNotFound
	}
	s.pushUndoLocked()
	t.Notes = append(t.Notes, domain.Note{Time: s.clock.Now(), Text: text})
	t.UpdatedAt = s.clock.Now()
	s.scheduleSaveLocked()
	return nil
}

// Block records blockerID as a blocker of id.
func (s *Store) Block(id, blockerID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.tasks[id]
	if !ok {
		return domain.ErrTaskNotFound
	}
	if _, ok := s.tasks[blockerID]; !ok {
		return domain.ErrTaskNotFound
	}
	if slices.Contains(t.BlockedBy, blockerID) {
		return nil
	}
	s.pushUndoLocked()
	t.BlockedBy = append(t.BlockedBy, blockerID)
	t.UpdatedAt = s.clock.Now()
	s.scheduleSaveLocked()
	return nil
}

// Unblock removes blockerID from the task's blockers.
func (s *Store) Unblock(id, blockerID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.tasks[id]
	if !ok {
		return domain.ErrTaskNotFound
	}
	if !slices.Contains(t.BlockedBy, blockerID) {
		return nil
	}
	s.pushUndoLocked()
	t.BlockedBy = slices.DeleteFunc(t.BlockedBy, func(b string) bool { return b == blockerID })
	t.UpdatedAt = s.clock.Now()
	s.scheduleSaveLocked()
	return nil
}

// === Sync engine entry points ===
//
// These bypass the undo history and leave updatedAt under the caller's
// control: replaying a remote change must not look like a fresh local edit,
// or every pull would echo straight back as a push. They also clear the
// undo/redo stacks, since undoing across a sync would silently re-diverge
// from the remote.

// ApplyRemote inserts or replaces a task with remote-derived content.
func (s *Store) ApplyRemote(t *domain.Task) {
	s.mu.Lock()
	defer s.mu.Unlock()

	t = t.Clone()
	t.Normalize()
	if old, ok := s.tasks[t.ID]; ok {
		// Hierarchy is local-owned; keep the existing placement.
		t.ParentID = old.ParentID
		t.SubtaskIDs = old.SubtaskIDs
		t.Order = old.Order
	} else {
		t.Order = s.nextOrderLocked()
		if t.ParentID != nil {
			if parent, ok := s.tasks[*t.ParentID]; ok {
				parent.SubtaskIDs = append(parent.SubtaskIDs, t.ID)
			} else {
				t.ParentID = nil
			}
		}
	}
	s.tasks[t.ID] = t
	s.clearHistoryLocked()
	s.scheduleSaveLocked()
}

// SetExternalIdentity records the provider mapping fields on a task.
func (s *Store) SetExternalIdentity(id, externalID, source string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.tasks[id]
	if !ok {
		return false
	}
	t.ExternalID = externalID
	t.ExternalSource = source
	s.scheduleSaveLocked()
	return true
}

// RemoveSynced deletes a task (and its subtree) in response to a remote
// deletion. Returns false if the task does not exist.
func (s *Store) RemoveSynced(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.tasks[id]
	if !ok {
		return false
	}
	s.removeSubtreeLocked(t)
	s.clearHistoryLocked()
	s.scheduleSaveLocked()
	return true
}

// === Internal helpers ===

func (s *Store) applyStatusLocked(t *domain.Task, status domain.Status) {
	wasDone := t.IsDone()
	t.Status = status
	switch {
	case status == domain.StatusDone && !wasDone:
		now := s.clock.Now()
		t.CompletedAt = &now
	case status != domain.StatusDone:
		t.CompletedAt = nil
	}
}

// isDescendantLocked reports whether id is in the subtree rooted at rootID.
func (s *Store) isDescendantLocked(id, rootID string) bool {
	root, ok := s.tasks[rootID]
	if !ok {
		return false
	}
	stack := slices.Clone(root.SubtaskIDs)
	for len(stack) > 0 {
		cur := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if cur == id {
			return true
		}
		if t, ok := s.tasks[cur]; ok {
			stack = append(stack, t.SubtaskIDs...)
		}
	}
	return false
}

func (s *Store) detachLocked(t *domain.Task) {
	if t.ParentID == nil {
		return
	}
	if parent, ok := s.tasks[*t.ParentID]; ok {
		parent.SubtaskIDs = slices.DeleteFunc(parent.SubtaskIDs, func(id string) bool {
			return id == t.ID
		})
	}
}

func (s *Store) removeSubtreeLocked(t *domain.Task) {
	s.detachLocked(t)
	stack := []string{t.ID}
	for len(stack) > 0 {
		cur := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if node, ok := s.tasks[cur]; ok {
			stack = append(stack, node.SubtaskIDs...)
			delete(s.tasks, cur)
			if s.timer != nil && s.timer.taskID == cur {
				s.timer = nil
			}
		}
	}
}

func (s *Store) nextOrderLocked() int {
	next := 0
	for _, t := range s.tasks {
		if t.Order >= next {
			next = t.Order + 1
		}
	}
	return next
}

func updateTags(current, add, remove []string) []string {
	removeSet := make(map[string]bool, len(remove))
	for _, tag := range remove {
		removeSet[tag] = true
	}
	seen := make(map[string]bool, len(current)+len(add))
	var out []string
	for _, tag := range current {
		if !removeSet[tag] && !seen[tag] {
			seen[tag] = true
			out = append(out, tag)
		}
	}
	for _, tag := range add {
		if !removeSet[tag] && !seen[tag] {
			seen[tag] = true
			out = append(out, tag)
		}
	}
	return out
}

func (s *Store) logf(category, format string, args ...any) {
	if s.logger != nil {
		s.logger.Info("", category, fmt.Sprintf(format, args...))
	}
}
