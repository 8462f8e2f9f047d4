package syncstate

import (
	"encoding/json"
	"fmt"
	"os"
	"slices"
	"sync"
	"time"

	"github.com/okui/taskdeck/internal/infra/atomicfile"
)

// Manager owns the sync state file. It keeps the directional maps and the
// hash cache referentially consistent; it has no business logic beyond that.
type Manager struct {
	state *State
	path  string
	mu    sync.Mutex
	dirty bool
}

// Open loads the sync state from path. A missing or unreadable file yields
// empty state; sync bookkeeping is rebuildable, so no backup is taken.
func Open(path string) *Manager {
	m := &Manager{path: path, state: newState()}

	content, err := os.ReadFile(path)
	if err != nil {
		return m
	}
	var st State
	if err := json.Unmarshal(content, &st); err != nil {
		return m
	}
	st.normalize()
	m.state = &st
	return m
}

// Save persists the state with the atomic-write discipline. A save with no
// changes since load is a no-op.
func (m *Manager) Save() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.dirty {
		return nil
	}

	content, err := json.MarshalIndent(m.state, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal sync state: %w", err)
	}
	err = atomicfile.WithLock(m.path, func() error {
		return atomicfile.WriteFile(m.path, content)
	})
	if err != nil {
		return fmt.Errorf("write sync state: %w", err)
	}
	m.dirty = false
	return nil
}

// AddMapping records a local<->external pair, replacing any stale entries for
// either side, and seeds the hash cache for the external ID.
func (m *Manager) AddMapping(localID, externalID, hash string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if old, ok := m.state.IDMap[localID]; ok && old != externalID {
		delete(m.state.ReverseIDMap, old)
		delete(m.state.LastPullHashes, old)
	}
	if old, ok := m.state.ReverseIDMap[externalID]; ok && old != localID {
		delete(m.state.IDMap, old)
	}
	m.state.IDMap[localID] = externalID
	m.state.ReverseIDMap[externalID] = localID
	if hash != "" {
		m.state.LastPullHashes[externalID] = hash
	}
	m.dirty = true
}

// RemoveMappingByLocal drops the pair keyed by local ID, if present.
func (m *Manager) RemoveMappingByLocal(localID string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	ext, ok := m.state.IDMap[localID]
	if !ok {
		return
	}
	delete(m.state.IDMap, localID)
	delete(m.state.ReverseIDMap, ext)
	delete(m.state.LastPullHashes, ext)
	m.dirty = true
}

// RemoveMappingByExternal drops the pair keyed by external ID, if present.
func (m *Manager) RemoveMappingByExternal(externalID string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	local, ok := m.state.ReverseIDMap[externalID]
	if !ok {
		return
	}
	delete(m.state.ReverseIDMap, externalID)
	delete(m.state.IDMap, local)
	delete(m.state.LastPullHashes, externalID)
	m.dirty = true
}

// ExternalID looks up the external ID mapped to a local task.
func (m *Manager) ExternalID(localID string) (string, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	ext, ok := m.state.IDMap[localID]
	return ext, ok
}

// LocalID looks up the local ID mapped to an external task.
func (m *Manager) LocalID(externalID string) (string, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	local, ok := m.state.ReverseIDMap[externalID]
	return local, ok
}

// MappedExternalIDs returns every mapped external ID in sorted order.
func (m *Manager) MappedExternalIDs() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	ids := make([]string, 0, len(m.state.ReverseIDMap))
	for ext := range m.state.ReverseIDMap {
		ids = append(ids, ext)
	}
	slices.Sort(ids)
	return ids
}

// SetHash records the content hash of the last pulled remote copy.
func (m *Manager) SetHash(externalID, hash string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.state.LastPullHashes[externalID] = hash
	m.dirty = true
}

// Hash returns the recorded content hash for an external ID, or "".
func (m *Manager) Hash(externalID string) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state.LastPullHashes[externalID]
}

// LastSync returns the last successful sync time for a provider.
func (m *Manager) LastSync(provider string) time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state.LastSyncAt[provider]
}

// SetLastSync records a completed pass for a provider.
func (m *Manager) SetLastSync(provider string, t time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.state.LastSyncAt[provider] = t
	m.dirty = true
}

// MarkDeletedLocally flags a local ID whose remote counterpart still needs
// deletion.
func (m *Manager) MarkDeletedLocally(localID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !slices.Contains(m.state.DeletedLocally, localID) {
		m.state.DeletedLocally = append(m.state.DeletedLocally, localID)
		m.dirty = true
	}
}

// ClearDeletedLocally removes the pending-deletion flag for a local ID.
func (m *Manager) ClearDeletedLocally(localID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	before := len(m.state.DeletedLocally)
	m.state.DeletedLocally = slices.DeleteFunc(m.state.DeletedLocally, func(id string) bool {
		return id == localID
	})
	if len(m.state.DeletedLocally) != before {
		m.dirty = true
	}
}

// IsDeletedLocally reports whether a local ID awaits remote deletion.
func (m *Manager) IsDeletedLocally(localID string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return slices.Contains(m.state.DeletedLocally, localID)
}

// DeletedLocalIDs returns the pending local deletions in stable order.
func (m *Manager) DeletedLocalIDs() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	ids := slices.Clone(m.state.DeletedLocally)
	slices.Sort(ids)
	return ids
}

// MarkDeletedRemotely flags an external ID whose local counterpart still
// needs deletion.
func (m *Manager) MarkDeletedRemotely(externalID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !slices.Contains(m.state.DeletedRemotely, externalID) {
		m.state.DeletedRemotely = append(m.state.DeletedRemotely, externalID)
		m.dirty = true
	}
}

// ClearDeletedRemotely removes the pending-deletion flag for an external ID.
func (m *Manager) ClearDeletedRemotely(externalID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	before := len(m.state.DeletedRemotely)
	m.state.DeletedRemotely = slices.DeleteFunc(m.state.DeletedRemotely, func(id string) bool {
		return id == externalID
	})
	if len(m.state.DeletedRemotely) != before {
		m.dirty = true
	}
}

// DeletedRemoteIDs returns the pending remote-side deletions in stable order.
func (m *Manager) DeletedRemoteIDs() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	ids := slices.Clone(m.state.DeletedRemotely)
	slices.Sort(ids)
	return ids
}
