package memdevice

import (
	"context"
	"testing"

	"github.com/chrissnell/plugscheduler/internal/types"
)

func TestInitAndSetRoundTrip(t *testing.T) {
	ctrl := New()
	ctx := context.Background()
	dev := types.Device{Name: "plug1", Outlets: []int{0}}
	group := types.Group{Devices: []types.Device{dev}}

	if err := ctrl.Init(ctx, dev); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if err := ctrl.Set(ctx, group, types.StateOn); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	state, err := ctrl.State(ctx, group)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !state.IsOn || !state.Online {
		t.Errorf("expected the group to be on and online, got %+v", state)
	}

	if err := ctrl.Set(ctx, group, types.StateOff); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	state, err = ctrl.State(ctx, group)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if state.IsOn {
		t.Errorf("expected the group to be off after Set(off), got %+v", state)
	}
}

func TestInitFailureModes(t *testing.T) {
	ctrl := New()
	ctx := context.Background()
	dev := types.Device{Name: "plug1"}

	ctrl.SetFailureMode("plug1", FailInitTimeout)
	err := ctrl.Init(ctx, dev)
	if err == nil {
		t.Fatal("expected an init timeout error")
	}

	ctrl.SetFailureMode("plug1", FailInitError)
	err = ctrl.Init(ctx, dev)
	if err == nil {
		t.Fatal("expected an init error")
	}

	ctrl.SetFailureMode("plug1", FailNone)
	if err := ctrl.Init(ctx, dev); err != nil {
		t.Fatalf("expected init to succeed once failure mode is cleared, got %v", err)
	}
}

func TestStateUnreachableDeviceMarksGroupOffline(t *testing.T) {
	ctrl := New()
	ctx := context.Background()
	dev := types.Device{Name: "plug1"}
	group := types.Group{Devices: []types.Device{dev}}

	if err := ctrl.Init(ctx, dev); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	ctrl.SetFailureMode("plug1", FailUnreachable)

	state, err := ctrl.State(ctx, group)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if state.Online {
		t.Error("expected an unreachable device to mark the group offline")
	}
}

func TestSetCommandFailureMode(t *testing.T) {
	ctrl := New()
	ctx := context.Background()
	dev := types.Device{Name: "plug1"}
	group := types.Group{Devices: []types.Device{dev}}

	if err := ctrl.Init(ctx, dev); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	ctrl.SetFailureMode("plug1", FailCommand)

	if err := ctrl.Set(ctx, group, types.StateOn); err == nil {
		t.Fatal("expected Set to fail in FailCommand mode")
	}
}

func TestRefreshUnknownDeviceErrors(t *testing.T) {
	ctrl := New()
	if err := ctrl.Refresh(context.Background(), types.Device{Name: "never-initialized"}); err == nil {
		t.Fatal("expected Refresh to error for a device that was never initialized")
	}
}
