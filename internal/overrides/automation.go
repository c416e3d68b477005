// Package overrides implements C4 (automation override store) and C5
// (manual override store): small per-group JSON documents layered on top of
// config, persisted atomically.
package overrides

import (
	"errors"
	"os"
	"sync"

	"github.com/chrissnell/plugscheduler/internal/persist"
)

const automationSchemaVersion = 1

type automationFile struct {
	Version int                        `json:"version"`
	Groups  map[string]map[string]*bool `json:"groups"`
}

// AutomationStore is C4: per-group sparse flag overrides layered on top of a
// group's base automation flags. A nil value means "clear" (fall back to
// base).
type AutomationStore struct {
	mu     sync.Mutex
	path   string
	groups map[string]map[string]*bool
}

// NewAutomationStore loads the store from path, starting empty if the file is
// missing or malformed. The returned bool is true only for a malformed or
// version-mismatched file, so the caller can log it.
func NewAutomationStore(path string) (*AutomationStore, bool, error) {
	s := &AutomationStore{path: path, groups: make(map[string]map[string]*bool)}

	var f automationFile
	err := persist.ReadJSON(path, &f)
	switch {
	case err == nil && f.Version == automationSchemaVersion:
		s.groups = f.Groups
		if s.groups == nil {
			s.groups = make(map[string]map[string]*bool)
		}
		return s, false, nil
	case errors.Is(err, os.ErrNotExist):
		return s, false, nil
	case err == nil:
		// version mismatch: start empty
		return s, true, nil
	default:
		// malformed file: start empty and let the caller log it
		return s, true, nil
	}
}

// EffectiveFlags returns base with any stored overrides for group applied.
func (s *AutomationStore) EffectiveFlags(group string, base map[string]bool) map[string]bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make(map[string]bool, len(base))
	for k, v := range base {
		out[k] = v
	}
	for flag, override := range s.groups[group] {
		if override == nil {
			continue
		}
		out[flag] = *override
	}
	return out
}

// Set stores (or, if value is nil, clears) a flag override for group and
// persists the store atomically.
func (s *AutomationStore) Set(group, flag string, value *bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	g, ok := s.groups[group]
	if !ok {
		g = make(map[string]*bool)
		s.groups[group] = g
	}
	if value == nil {
		delete(g, flag)
	} else {
		v := *value
		g[flag] = &v
	}

	return s.saveLocked()
}

func (s *AutomationStore) saveLocked() error {
	return persist.WriteJSON(s.path, automationFile{Version: automationSchemaVersion, Groups: s.groups})
}
