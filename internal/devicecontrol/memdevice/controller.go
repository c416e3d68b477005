// Package memdevice is an in-memory devicecontrol.Controller used by tests
// and the plug-simulator command. It models outlet state directly in the
// process instead of talking over the network, with injectable failure
// modes so the scheduler's retry/degraded-health paths are exercisable
// without real hardware.
package memdevice

import (
	"context"
	"fmt"
	"sync"

	"github.com/chrissnell/plugscheduler/internal/devicecontrol"
	"github.com/chrissnell/plugscheduler/internal/types"
)

// FailureMode lets a test or demo force a specific device to misbehave.
type FailureMode int

const (
	FailNone FailureMode = iota
	FailInitTimeout
	FailInitError
	FailCommand
	FailUnreachable
)

type deviceRecord struct {
	outlets     []bool
	initialized bool
	mode        FailureMode
}

// Controller is a thread-safe in-memory DeviceController.
type Controller struct {
	mu      sync.Mutex
	devices map[string]*deviceRecord
}

// New returns an empty controller.
func New() *Controller {
	return &Controller{devices: make(map[string]*deviceRecord)}
}

// SetFailureMode configures how device (by name) behaves on the next calls.
func (c *Controller) SetFailureMode(deviceName string, mode FailureMode) {
	c.mu.Lock()
	defer c.mu.Unlock()
	d := c.recordLocked(deviceName, 1)
	d.mode = mode
}

func (c *Controller) recordLocked(name string, outlets int) *deviceRecord {
	d, ok := c.devices[name]
	if !ok {
		if outlets < 1 {
			outlets = 1
		}
		d = &deviceRecord{outlets: make([]bool, outlets)}
		c.devices[name] = d
	}
	return d
}

func (c *Controller) Init(ctx context.Context, device types.Device) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	n := len(device.Outlets)
	d := c.recordLocked(device.Name, n)

	switch d.mode {
	case FailInitTimeout:
		return &devicecontrol.InitError{Detail: fmt.Sprintf("device %q: simulated init timeout", device.Name), IsTimeout: true}
	case FailInitError:
		return &devicecontrol.InitError{Detail: fmt.Sprintf("device %q: simulated init failure", device.Name)}
	}

	d.initialized = true
	return nil
}

func (c *Controller) State(ctx context.Context, group types.Group) (devicecontrol.GroupState, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var gs devicecontrol.GroupState
	gs.Online = true
	for _, dev := range group.Devices {
		d, ok := c.devices[dev.Name]
		if !ok || d.mode == FailUnreachable {
			gs.Online = false
			continue
		}
		for _, on := range d.outlets {
			gs.PerOutlet = append(gs.PerOutlet, on)
			if on {
				gs.IsOn = true
			}
		}
	}
	return gs, nil
}

func (c *Controller) Set(ctx context.Context, group types.Group, desired types.DesiredState) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	on := desired == types.StateOn
	for _, dev := range group.Devices {
		d, ok := c.devices[dev.Name]
		if !ok {
			continue
		}
		if d.mode == FailCommand || d.mode == FailUnreachable {
			return fmt.Errorf("device %q: simulated command failure", dev.Name)
		}
		for i := range d.outlets {
			d.outlets[i] = on
		}
	}
	return nil
}

func (c *Controller) Refresh(ctx context.Context, device types.Device) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	d, ok := c.devices[device.Name]
	if !ok {
		return fmt.Errorf("device %q: not initialized", device.Name)
	}
	if d.mode == FailUnreachable {
		return fmt.Errorf("device %q: unreachable", device.Name)
	}
	return nil
}
