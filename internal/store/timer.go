package store

import (
	"math"
	"time"

	"github.com/okui/taskdeck/internal/domain"
)

// activeTimer tracks the single running work timer. At most one timer runs
// process-wide; it is a Store field rather than package state so parallel
// test instances stay independent.
type activeTimer struct {
	startedAt time.Time
	taskID    string
}

// StartTimer begins tracking time against the task. If a timer is already
// running it is stopped first, logging its elapsed minutes into its task.
func (s *Store) StartTimer(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.tasks[id]; !ok {
		return domain.ErrTaskNotFound
	}
	if s.timer != nil {
		s.stopTimerLocked()
	}
	s.timer = &activeTimer{taskID: id, startedAt: s.clock.Now()}
	return nil
}

// StopTimer stops the running timer, accumulates the elapsed minutes into
// the timed task's actual time, and returns them. With no active timer it
// returns 0.
func (s *Store) StopTimer() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stopTimerLocked()
}

// ActiveTimerTask returns the ID of the task being timed, or "".
func (s *Store) ActiveTimerTask() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.timer == nil {
		return ""
	}
	return s.timer.taskID
}

func (s *Store) stopTimerLocked() int {
	if s.timer == nil {
		return 0
	}
	elapsed := s.clock.Now().Sub(s.timer.startedAt)
	minutes := int(math.Round(elapsed.Minutes()))
	if minutes < 0 {
		minutes = 0
	}
	id := s.timer.taskID
	s.timer = nil
	if minutes > 0 {
		// The task may have been deleted while the timer ran.
		_ = s.logTimeLocked(id, minutes)
	}
	return minutes
}
