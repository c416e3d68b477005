package runtimestate

import (
	"path/filepath"
	"testing"

	"github.com/chrissnell/plugscheduler/internal/types"
)

func TestStoreGetDefaultsToZeroValue(t *testing.T) {
	s, err := Load(filepath.Join(t.TempDir(), "runtime.json"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	got := s.Get("does-not-exist")
	if got.IsOn || got.ActiveScheduleName != "" {
		t.Errorf("expected a zero-value RuntimeState, got %+v", got)
	}
}

func TestStoreSetSaveLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "runtime.json")
	s, err := Load(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	s.Set("g1", types.RuntimeState{IsOn: true, ActiveScheduleName: "daytime", LastActionSource: types.SourceSchedule})
	if err := s.Save(); err != nil {
		t.Fatalf("unexpected error saving: %v", err)
	}

	reloaded, err := Load(path)
	if err != nil {
		t.Fatalf("unexpected error reloading: %v", err)
	}
	got := reloaded.Get("g1")
	if !got.IsOn || got.ActiveScheduleName != "daytime" || got.LastActionSource != types.SourceSchedule {
		t.Errorf("expected the persisted state to round-trip, got %+v", got)
	}
}

func TestStoreSnapshotIsACopy(t *testing.T) {
	s, err := Load(filepath.Join(t.TempDir(), "runtime.json"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	s.Set("g1", types.RuntimeState{IsOn: true})

	snap := s.Snapshot()
	snap["g1"] = types.RuntimeState{IsOn: false}

	if got := s.Get("g1"); !got.IsOn {
		t.Error("expected mutating a Snapshot copy to not affect the store")
	}
}
