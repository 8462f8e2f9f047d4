// Package syncengine reconciles the local task store against a remote task
// source through the provider contract, using the persisted sync state as the
// identity map between the two sides.
package syncengine

import (
	"fmt"
	"strings"
)

// Phase tags where in the pass an item error occurred.
type Phase string

const (
	PhasePull   Phase = "pull"
	PhasePush   Phase = "push"
	PhaseDelete Phase = "delete"
	PhaseMap    Phase = "map"
)

// ItemError records one failed item without aborting the batch.
// Fields are ordered to minimize memory padding.
type ItemError struct {
	Err        error
	Phase      Phase
	LocalID    string
	ExternalID string
}

func (e ItemError) Error() string {
	var b strings.Builder
	b.WriteString(string(e.Phase))
	if e.LocalID != "" {
		fmt.Fprintf(&b, " local=%s", e.LocalID)
	}
	if e.ExternalID != "" {
		fmt.Fprintf(&b, " external=%s", e.ExternalID)
	}
	fmt.Fprintf(&b, ": %v", e.Err)
	return b.String()
}

// Result summarizes one sync pass. The ID slices carry local task IDs where
// one exists, otherwise the external ID (e.g. dry-run creations).
type Result struct {
	Pulled    []string
	Pushed    []string
	Deleted   []string
	Conflicts []string
	Errors    []ItemError
}

// Summary renders the counts on one line.
func (r *Result) Summary() string {
	return fmt.Sprintf("pulled %d, pushed %d, deleted %d, conflicts %d, errors %d",
		len(r.Pulled), len(r.Pushed), len(r.Deleted), len(r.Conflicts), len(r.Errors))
}

func (r *Result) recordError(phase Phase, localID, externalID string, err error) {
	r.Errors = append(r.Errors, ItemError{Phase: phase, LocalID: localID, ExternalID: externalID, Err: err})
}
