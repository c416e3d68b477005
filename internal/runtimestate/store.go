// Package runtimestate implements C8: the per-group accumulator state the
// scheduler loop persists atomically at the end of every tick and reloads
// at startup.
package runtimestate

import (
	"sync"

	"github.com/chrissnell/plugscheduler/internal/persist"
	"github.com/chrissnell/plugscheduler/internal/types"
)

const schemaVersion = 1

type stateFile struct {
	Version int                             `json:"version"`
	Groups  map[string]types.RuntimeState `json:"groups"`
}

// Store is C8. It is owned exclusively by the scheduler loop; reads from
// elsewhere (status API) must go through Snapshot.
type Store struct {
	mu     sync.Mutex
	path   string
	groups map[string]types.RuntimeState
}

// Load reads path at startup, starting every group empty if the file is
// absent or malformed.
func Load(path string) (*Store, error) {
	s := &Store{path: path, groups: make(map[string]types.RuntimeState)}

	var f stateFile
	if err := persist.ReadJSON(path, &f); err == nil && f.Version == schemaVersion && f.Groups != nil {
		s.groups = f.Groups
	}
	return s, nil
}

// Get returns the current state for group, or the zero value if absent.
func (s *Store) Get(group string) types.RuntimeState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.groups[group]
}

// Set replaces group's state in memory. It does not persist; call Save once
// per tick after all groups are updated.
func (s *Store) Set(group string, st types.RuntimeState) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.groups[group] = st
}

// Save atomically persists the current in-memory state for every group.
func (s *Store) Save() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return persist.WriteJSON(s.path, stateFile{Version: schemaVersion, Groups: s.groups})
}

// Snapshot returns a copy of every group's state, safe for concurrent
// readers (e.g. a status API).
func (s *Store) Snapshot() map[string]types.RuntimeState {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]types.RuntimeState, len(s.groups))
	for k, v := range s.groups {
		out[k] = v
	}
	return out
}
