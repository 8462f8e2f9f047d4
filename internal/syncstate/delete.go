package syncstate

import "github.com/okui/taskdeck/internal/domain"

// TaskTree is the store surface deletion bookkeeping reads.
type TaskTree interface {
	Get(id string) (*domain.Task, bool)
	DeleteTask(id string) bool
}

// DeleteTaskTree removes the subtree rooted at id from the store and marks
// every mapped member as locally deleted, so the next sync propagates the
// removals remotely. The walk happens before the delete because the subtree
// is unreachable afterwards. Returns false when the task does not exist.
func DeleteTaskTree(st TaskTree, m *Manager, id string) bool {
	var marked []string
	stack := []string{id}
	for len(stack) > 0 {
		cur := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if _, mapped := m.ExternalID(cur); mapped {
			marked = append(marked, cur)
		}
		if node, ok := st.Get(cur); ok {
			stack = append(stack, node.SubtaskIDs...)
		}
	}

	if !st.DeleteTask(id) {
		return false
	}
	for _, cur := range marked {
		m.MarkDeletedLocally(cur)
	}
	return true
}
