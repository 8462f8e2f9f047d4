package store

import (
	"encoding/json"
	"fmt"
	"os"
	"slices"
	"strings"
	"time"

	"github.com/okui/taskdeck/internal/domain"
	"github.com/okui/taskdeck/internal/infra/atomicfile"
)

// Retry schedule for failed writes: doubling delay, capped.
const (
	retryBase = time.Second
	retryCap  = 30 * time.Second
)

type retryState struct {
	timer *time.Timer
	count int
}

// load reads the task file. Missing file: an empty one is written so the
// path exists from the first open. Present but invalid: the file is
// quarantined to a timestamped sidecar and a fresh valid empty file is
// written in its place.
func (s *Store) load() error {
	content, err := os.ReadFile(s.path)
	if os.IsNotExist(err) {
		return s.writeNow()
	}
	if err != nil {
		return fmt.Errorf("read task file: %w", err)
	}

	var records []*domain.Task
	if err := json.Unmarshal(content, &records); err != nil {
		if qerr := s.quarantine(); qerr != nil {
			return qerr
		}
		s.logf("store", "task file was invalid and has been quarantined")
		return s.writeNow()
	}

	for _, t := range records {
		t.Normalize()
		s.tasks[t.ID] = t
	}
	s.repairHierarchy()
	return nil
}

// quarantine moves the unparsable task file aside so it is never overwritten.
func (s *Store) quarantine() error {
	stamp := time.Now().UTC().Format("20060102T150405")
	backup := fmt.Sprintf("%s.invalid.%s.bak", s.path, stamp)
	if err := os.Rename(s.path, backup); err != nil {
		return fmt.Errorf("quarantine task file: %w", err)
	}
	return nil
}

// repairHierarchy restores the parent/child invariant after a tolerant read:
// parentId always references an existing task whose subtaskIds contains the
// child, and the parent graph is acyclic.
func (s *Store) repairHierarchy() {
	for _, t := range s.tasks {
		if t.ParentID != nil {
			if _, ok := s.tasks[*t.ParentID]; !ok {
				t.ParentID = nil
			}
		}
		seen := make(map[string]bool, len(t.SubtaskIDs))
		t.SubtaskIDs = slices.DeleteFunc(t.SubtaskIDs, func(id string) bool {
			child, ok := s.tasks[id]
			if !ok || seen[id] || id == t.ID {
				return true
			}
			if child.ParentID == nil || *child.ParentID != t.ID {
				return true
			}
			seen[id] = true
			return false
		})
	}
	// Re-attach children whose parent lost track of them.
	for _, t := range s.tasks {
		if t.ParentID == nil {
			continue
		}
		parent := s.tasks[*t.ParentID]
		if !parent.HasSubtask(t.ID) {
			parent.SubtaskIDs = append(parent.SubtaskIDs, t.ID)
		}
	}
	// Break any parent cycle surviving a hand-edited file.
	for _, t := range s.tasks {
		if s.onParentCycle(t) {
			s.detachLocked(t)
			t.ParentID = nil
		}
	}
}

func (s *Store) onParentCycle(t *domain.Task) bool {
	cur := t
	for i := 0; cur.ParentID != nil; i++ {
		if i > len(s.tasks) {
			return true
		}
		cur = s.tasks[*cur.ParentID]
		if cur == t {
			return true
		}
	}
	return false
}

// serializeLocked renders the collection as a JSON array sorted by ID, so
// unchanged data always produces byte-identical files.
func (s *Store) serializeLocked() ([]byte, error) {
	tasks := make([]*domain.Task, 0, len(s.tasks))
	for _, t := range s.tasks {
		tasks = append(tasks, t)
	}
	slices.SortFunc(tasks, func(a, b *domain.Task) int {
		return strings.Compare(a.ID, b.ID)
	})
	content, err := json.MarshalIndent(tasks, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal tasks: %w", err)
	}
	return content, nil
}

// scheduleSaveLocked arms (or re-arms) the debounced write, coalescing
// mutation bursts into one write.
func (s *Store) scheduleSaveLocked() {
	s.pending = true
	if s.closed {
		return
	}
	if s.saveTimer != nil {
		s.saveTimer.Reset(s.debounce)
		return
	}
	s.saveTimer = time.AfterFunc(s.debounce, s.debouncedSave)
}

func (s *Store) debouncedSave() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.pending || s.closed {
		return
	}
	s.saveLocked()
}

// saveLocked performs one write attempt and updates the sticky persistence
// status. On failure the last-good file is untouched and a retry is armed;
// in-memory state is never rolled back.
func (s *Store) saveLocked() {
	if err := s.writeNow(); err != nil {
		s.saveErr = err
		s.retry.count++
		delay := backoff(s.retry.count)
		if s.retry.timer != nil {
			s.retry.timer.Stop()
			s.retry.timer = nil
		}
		if !s.closed {
			s.retry.timer = time.AfterFunc(delay, s.debouncedSave)
		}
		s.logf("store", "save failed (attempt %d, retrying in %s): %v", s.retry.count, delay, err)
		return
	}
	s.pending = false
	s.saveErr = nil
	s.retry.count = 0
	if s.retry.timer != nil {
		s.retry.timer.Stop()
		s.retry.timer = nil
	}
}

func (s *Store) writeNow() error {
	content, err := s.serializeLocked()
	if err != nil {
		return err
	}
	return atomicfile.WithLock(s.path, func() error {
		return atomicfile.WriteFile(s.path, content)
	})
}

func backoff(attempt int) time.Duration {
	d := retryBase << (attempt - 1)
	if d > retryCap || d <= 0 {
		return retryCap
	}
	return d
}

// Flush forces an immediate write, superseding any pending debounced write.
// Callers needing a durability guarantee use this.
func (s *Store) Flush() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.saveTimer != nil {
		s.saveTimer.Stop()
		s.saveTimer = nil
	}
	if !s.pending && s.saveErr == nil {
		return nil
	}
	s.saveLocked()
	return s.saveErr
}

// SaveError returns the sticky persistence error from the most recent failed
// write, or nil. Success clears it.
func (s *Store) SaveError() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.saveErr
}

// PendingSave reports whether in-memory state is ahead of the file.
func (s *Store) PendingSave() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pending
}

// Close flushes outstanding changes and stops background timers. The store
// must not be used afterwards.
func (s *Store) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return domain.ErrStoreClosed
	}
	s.closed = true
	if s.saveTimer != nil {
		s.saveTimer.Stop()
		s.saveTimer = nil
	}
	if s.retry.timer != nil {
		s.retry.timer.Stop()
		s.retry.timer = nil
	}
	var err error
	if s.pending || s.saveErr != nil {
		s.saveLocked()
		err = s.saveErr
	}
	s.mu.Unlock()
	return err
}
