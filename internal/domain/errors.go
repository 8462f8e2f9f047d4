package domain

import "errors"

// Domain errors.
var (
	ErrTaskNotFound     = errors.New("task not found")
	ErrParentNotFound   = errors.New("parent task not found")
	ErrEmptyTitle       = errors.New("title cannot be empty")
	ErrInvalidStatus    = errors.New("invalid status")
	ErrInvalidPriority  = errors.New("invalid priority")
	ErrCyclicHierarchy  = errors.New("reparenting would create a cycle")
	ErrNoFieldsToUpdate = errors.New("no fields to update")
	ErrNegativeMinutes  = errors.New("minutes cannot be negative")
	ErrProviderNotFound = errors.New("provider not configured")
	ErrNotConnected     = errors.New("provider is not connected")
	ErrStoreClosed      = errors.New("store is closed")
)
