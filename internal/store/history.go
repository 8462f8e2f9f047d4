package store

import "github.com/okui/taskdeck/internal/domain"

// maxHistory bounds the undo stack; the oldest entries fall off first.
const maxHistory = 200

// snapshot is a deep copy of the task collection. Full snapshots keep the
// inverse law trivial: N mutations then N undos restore the exact prior
// state, and undo followed by redo is a no-op.
type snapshot map[string]*domain.Task

func (s *Store) snapshotLocked() snapshot {
	snap := make(snapshot, len(s.tasks))
	for id, t := range s.tasks {
		snap[id] = t.Clone()
	}
	return snap
}

func (s *Store) restoreLocked(snap snapshot) {
	s.tasks = make(map[string]*domain.Task, len(snap))
	for id, t := range snap {
		s.tasks[id] = t.Clone()
	}
	if s.timer != nil {
		if _, ok := s.tasks[s.timer.taskID]; !ok {
			s.timer = nil
		}
	}
}

// pushUndoLocked records the pre-mutation state and clears the redo stack.
// Every successful mutation calls this exactly once.
func (s *Store) pushUndoLocked() {
	s.undo = append(s.undo, s.snapshotLocked())
	if len(s.undo) > maxHistory {
		s.undo = s.undo[len(s.undo)-maxHistory:]
	}
	s.redo = nil
}

func (s *Store) clearHistoryLocked() {
	s.undo = nil
	s.redo = nil
}

// Undo reverts the most recent mutation. Returns false if there is nothing
// to undo.
func (s *Store) Undo() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.undo) == 0 {
		return false
	}
	prev := s.undo[len(s.undo)-1]
	s.undo = s.undo[:len(s.undo)-1]
	s.redo = append(s.redo, s.snapshotLocked())
	s.restoreLocked(prev)
	s.scheduleSaveLocked()
	return true
}

// Redo re-applies the most recently undone mutation. Returns false if there
// is nothing to redo.
func (s *Store) Redo() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.redo) == 0 {
		return false
	}
	next := s.redo[len(s.redo)-1]
	s.redo = s.redo[:len(s.redo)-1]
	s.undo = append(s.undo, s.snapshotLocked())
	s.restoreLocked(next)
	s.scheduleSaveLocked()
	return true
}

// UndoCount returns the number of undoable mutations.
func (s *Store) UndoCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.undo)
}

// RedoCount returns the number of redoable mutations.
func (s *Store) RedoCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.redo)
}
