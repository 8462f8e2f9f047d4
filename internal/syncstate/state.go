// Package syncstate persists the bookkeeping that ties local tasks to their
// remote counterparts: the bidirectional ID map, per-provider last-sync
// timestamps, pending-deletion markers, and the last-pull content hashes.
package syncstate

import "time"

// State is the on-disk sync bookkeeping record. It is derived, rebuildable
// data: an absent or corrupt file silently resets to empty defaults.
type State struct {
	LastSyncAt      map[string]time.Time `json:"lastSyncAt"`      // Provider name -> last successful pass
	IDMap           map[string]string    `json:"idMap"`           // Local ID -> external ID
	ReverseIDMap    map[string]string    `json:"reverseIdMap"`    // External ID -> local ID
	LastPullHashes  map[string]string    `json:"lastPullHashes"`  // External ID -> content hash of last pull
	DeletedLocally  []string             `json:"deletedLocally"`  // Local IDs awaiting remote deletion
	DeletedRemotely []string             `json:"deletedRemotely"` // External IDs awaiting local deletion
}

func newState() *State {
	return &State{
		LastSyncAt:     make(map[string]time.Time),
		IDMap:          make(map[string]string),
		ReverseIDMap:   make(map[string]string),
		LastPullHashes: make(map[string]string),
	}
}

// normalize initializes any maps missing from an old or hand-edited file.
func (s *State) normalize() {
	if s.LastSyncAt == nil {
		s.LastSyncAt = make(map[string]time.Time)
	}
	if s.IDMap == nil {
		s.IDMap = make(map[string]string)
	}
	if s.ReverseIDMap == nil {
		s.ReverseIDMap = make(map[string]string)
	}
	if s.LastPullHashes == nil {
		s.LastPullHashes = make(map[string]string)
	}
	// The two maps must stay mutually consistent; rebuild the reverse map if
	// it drifted.
	for local, ext := range s.IDMap {
		if s.ReverseIDMap[ext] != local {
			s.ReverseIDMap[ext] = local
		}
	}
	for ext, local := range s.ReverseIDMap {
		if s.IDMap[local] != ext {
			delete(s.ReverseIDMap, ext)
		}
	}
}
