// Package devicecontrol defines the DeviceController collaborator (§6.1)
// and an in-memory reference implementation for testing and demos, grounded
// on the teacher's registry-of-backends shape (controller.go/storage.go).
package devicecontrol

import (
	"context"
	"time"

	"github.com/chrissnell/plugscheduler/internal/types"
)

// GroupState is the aggregated observed state of a group's devices.
type GroupState struct {
	IsOn       bool
	PerOutlet  []bool
	Online     bool
}

// InitError is returned by Init when a device cannot be brought up.
type InitError struct {
	Detail    string
	IsTimeout bool
}

func (e *InitError) Error() string { return e.Detail }

// Controller is the required external collaborator: the smart-plug
// transport. The core never talks to hardware directly.
type Controller interface {
	// Init brings up a device, with a timeout of device.DiscoveryTimeout().
	Init(ctx context.Context, device types.Device) error
	// State aggregates per-outlet state for every device in the group: ON
	// iff at least one participating outlet is ON.
	State(ctx context.Context, group types.Group) (GroupState, error)
	// Set issues the on/off command to every device in the group.
	Set(ctx context.Context, group types.Group, desired types.DesiredState) error
	// Refresh forces a re-fetch of a device's outlet states.
	Refresh(ctx context.Context, device types.Device) error
}

// DefaultCommandTimeout is the bounded timeout for Set/State calls (§5).
const DefaultCommandTimeout = 10 * time.Second
