package store

import (
	"slices"

	"github.com/okui/taskdeck/internal/domain"
)

// TreeRow is one entry of a depth-first task listing.
type TreeRow struct {
	Task   *domain.Task
	Depth  int
	IsLast bool // Last sibling at its level, for tree rendering
}

// Get returns a copy of the task, or false if it does not exist.
func (s *Store) Get(id string) (*domain.Task, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tasks[id]
	if !ok {
		return nil, false
	}
	return t.Clone(), true
}

// Len returns the number of tasks in the store.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.tasks)
}

// All returns copies of every task, sorted by ID.
func (s *Store) All() []*domain.Task {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*domain.Task, 0, len(s.tasks))
	for _, t := range s.tasks {
		out = append(out, t.Clone())
	}
	slices.SortFunc(out, func(a, b *domain.Task) int {
		return domain.CompareTasks(a, b, domain.SortCreated)
	})
	return out
}

// GetSubtasks returns copies of the direct children of id, in subtask order.
func (s *Store) GetSubtasks(id string) []*domain.Task {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tasks[id]
	if !ok {
		return nil
	}
	out := make([]*domain.Task, 0, len(t.SubtaskIDs))
	for _, cid := range t.SubtaskIDs {
		if c, ok := s.tasks[cid]; ok {
			out = append(out, c.Clone())
		}
	}
	return out
}

// GetProgress reports done and total counts over the direct children of id.
// It does not recurse into deeper levels.
func (s *Store) GetProgress(id string) (done, total int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tasks[id]
	if !ok {
		return 0, 0
	}
	for _, cid := range t.SubtaskIDs {
		c, ok := s.tasks[cid]
		if !ok {
			continue
		}
		total++
		if c.IsDone() {
			done++
		}
	}
	return done, total
}

// IsBlocked returns true iff any existing blockedBy task is not done.
// Blockers referencing deleted tasks are ignored.
func (s *Store) IsBlocked(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.isBlockedLocked(id, "")
}

// isBlockedLocked checks blockers of id, treating assumeDone as completed.
func (s *Store) isBlockedLocked(id, assumeDone string) bool {
	t, ok := s.tasks[id]
	if !ok {
		return false
	}
	for _, bid := range t.BlockedBy {
		if bid == assumeDone {
			continue
		}
		if b, ok := s.tasks[bid]; ok && !b.IsDone() {
			return true
		}
	}
	return false
}

// GetUnblockedTasks returns the IDs of tasks blocked by id that, once id is
// done, have no remaining incomplete blocker. Sorted for determinism.
func (s *Store) GetUnblockedTasks(id string) []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []string
	for tid, t := range s.tasks {
		if !slices.Contains(t.BlockedBy, id) {
			continue
		}
		if !s.isBlockedLocked(tid, id) {
			out = append(out, tid)
		}
	}
	slices.Sort(out)
	return out
}

// GetFiltered returns copies of tasks matching the filter, in the total
// order defined by the sort field (ties break by ID).
func (s *Store) GetFiltered(filter domain.TaskFilter, sort domain.SortField) []*domain.Task {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []*domain.Task
	for _, t := range s.tasks {
		if filter.Matches(t) {
			out = append(out, t.Clone())
		}
	}
	slices.SortFunc(out, func(a, b *domain.Task) int {
		return domain.CompareTasks(a, b, sort)
	})
	return out
}

// GetFilteredTree returns matching tasks depth-first, parent before children.
// A matching task whose parent does not match is promoted to the top level of
// the listing. Siblings at every level follow the sort order.
func (s *Store) GetFilteredTree(filter domain.TaskFilter, sort domain.SortField) []TreeRow {
	s.mu.Lock()
	defer s.mu.Unlock()

	visible := make(map[string]bool, len(s.tasks))
	for id, t := range s.tasks {
		if filter.Matches(t) {
			visible[id] = true
		}
	}

	var roots []*domain.Task
	children := make(map[string][]*domain.Task)
	for id, t := range s.tasks {
		if !visible[id] {
			continue
		}
		if t.ParentID != nil && visible[*t.ParentID] {
			children[*t.ParentID] = append(children[*t.ParentID], t)
		} else {
			roots = append(roots, t)
		}
	}
	cmp := func(a, b *domain.Task) int { return domain.CompareTasks(a, b, sort) }
	slices.SortFunc(roots, cmp)
	for _, sibs := range children {
		slices.SortFunc(sibs, cmp)
	}

	var rows []TreeRow
	var walk func(t *domain.Task, depth int, isLast bool)
	walk = func(t *domain.Task, depth int, isLast bool) {
		rows = append(rows, TreeRow{Task: t.Clone(), Depth: depth, IsLast: isLast})
		kids := children[t.ID]
		for i, kid := range kids {
			walk(kid, depth+1, i == len(kids)-1)
		}
	}
	for i, root := range roots {
		walk(root, 0, i == len(roots)-1)
	}
	return rows
}
