package overrides

import (
	"errors"
	"os"
	"sync"
	"time"

	"github.com/chrissnell/plugscheduler/internal/persist"
	"github.com/chrissnell/plugscheduler/internal/types"
)

const manualSchemaVersion = 1

type manualFile struct {
	Version int                              `json:"version"`
	Groups  map[string]types.ManualOverride `json:"groups"`
}

// ManualStore is C5: per-group forced ON/OFF with optional expiry.
type ManualStore struct {
	mu     sync.Mutex
	path   string
	groups map[string]types.ManualOverride
}

// NewManualStore loads the store from path, starting empty if missing or
// malformed.
func NewManualStore(path string) (*ManualStore, bool, error) {
	s := &ManualStore{path: path, groups: make(map[string]types.ManualOverride)}

	var f manualFile
	err := persist.ReadJSON(path, &f)
	switch {
	case err == nil && f.Version == manualSchemaVersion:
		if f.Groups != nil {
			s.groups = f.Groups
		}
		return s, false, nil
	case errors.Is(err, os.ErrNotExist):
		return s, false, nil
	default:
		return s, true, nil
	}
}

// Apply sets a forced action for group, persisting atomically. A zero
// timeout means no expiry.
func (s *ManualStore) Apply(group string, action types.OverrideAction, now time.Time, timeout time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	ov := types.ManualOverride{Action: action, SetAt: now}
	if timeout > 0 {
		exp := now.Add(timeout)
		ov.ExpiresAt = &exp
	}
	s.groups[group] = ov
	return s.saveLocked()
}

// Clear removes group's manual override, persisting atomically.
func (s *ManualStore) Clear(group string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.groups[group]; !ok {
		return nil
	}
	delete(s.groups, group)
	return s.saveLocked()
}

// Active returns the override in effect for group at "now", auto-clearing
// (and persisting the clear) if it has expired.
func (s *ManualStore) Active(group string, now time.Time) (*types.ManualOverride, error) {
	s.mu.Lock()
	ov, ok := s.groups[group]
	if !ok {
		s.mu.Unlock()
		return nil, nil
	}
	if ov.Active(now) {
		s.mu.Unlock()
		return &ov, nil
	}
	delete(s.groups, group)
	err := s.saveLocked()
	s.mu.Unlock()
	return nil, err
}

func (s *ManualStore) saveLocked() error {
	return persist.WriteJSON(s.path, manualFile{Version: manualSchemaVersion, Groups: s.groups})
}
