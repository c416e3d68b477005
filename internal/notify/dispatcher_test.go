package notify

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chrissnell/plugscheduler/internal/types"
)

type fakeSink struct {
	mu       sync.Mutex
	name     string
	fail     bool
	received []types.NotificationEvent
}

func (f *fakeSink) Name() string                     { return f.name }
func (f *fakeSink) Validate(ctx context.Context) error { return nil }
func (f *fakeSink) Send(ctx context.Context, event types.NotificationEvent) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail {
		return errors.New("delivery failed")
	}
	f.received = append(f.received, event)
	return nil
}

func (f *fakeSink) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.received)
}

// eventually polls cond until it returns true or the deadline passes, since
// Dispatch delivers on its own goroutine (§4.9 fire-and-forget) and tests
// must not assert on delivery state synchronously.
func eventually(t *testing.T, cond func() bool, msg string) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(2 * time.Millisecond)
	}
	t.Fatal(msg)
}

func TestDispatchDeliversToAllSinksByDefault(t *testing.T) {
	d := NewDispatcher(nil, nil)
	a := &fakeSink{name: "a"}
	b := &fakeSink{name: "b"}
	d.Register(a)
	d.Register(b)

	d.Dispatch(context.Background(), types.NotificationEvent{EventType: types.EventDeviceLost, OccurredAt: time.Now()})

	eventually(t, func() bool { return a.count() == 1 }, "expected sink a to receive the event")
	eventually(t, func() bool { return b.count() == 1 }, "expected sink b to receive the event")
}

func TestDispatchRoutingTableRestrictsTargets(t *testing.T) {
	routing := RoutingTable{
		types.EventDeviceLost: {"a": true},
	}
	d := NewDispatcher(routing, nil)
	a := &fakeSink{name: "a"}
	b := &fakeSink{name: "b"}
	d.Register(a)
	d.Register(b)

	d.Dispatch(context.Background(), types.NotificationEvent{EventType: types.EventDeviceLost, OccurredAt: time.Now()})

	eventually(t, func() bool { return a.count() == 1 }, "expected the routed sink to receive the event")
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, 0, b.count(), "expected the unrouted sink to receive nothing")
}

func TestDispatchSinkHealthDegradesThenFails(t *testing.T) {
	d := NewDispatcher(nil, nil)
	sink := &fakeSink{name: "a", fail: true}
	d.Register(sink)

	events := []types.EventType{types.EventDeviceLost, types.EventDeviceFound, types.EventDeviceChanged}
	for _, evt := range events {
		d.Dispatch(context.Background(), types.NotificationEvent{EventType: evt, OccurredAt: time.Now()})
	}

	eventually(t, func() bool { return d.Health()["a"] == SinkFailed },
		fmt.Sprintf("expected the sink to be marked failed after %d consecutive failures", len(events)))
}

func TestDispatchSinkRecoversHealthOnSuccess(t *testing.T) {
	d := NewDispatcher(nil, nil)
	sink := &fakeSink{name: "a", fail: true}
	d.Register(sink)

	d.Dispatch(context.Background(), types.NotificationEvent{EventType: types.EventDeviceLost, OccurredAt: time.Now()})
	eventually(t, func() bool { return d.Health()["a"] == SinkDegraded }, "expected degraded after the first failure")

	sink.mu.Lock()
	sink.fail = false
	sink.mu.Unlock()

	d.Dispatch(context.Background(), types.NotificationEvent{EventType: types.EventDeviceFound, OccurredAt: time.Now()})
	eventually(t, func() bool { return d.Health()["a"] == SinkHealthy }, "expected a successful delivery to restore healthy status")
}

func TestValidateAllDisablesFailingOptionalSink(t *testing.T) {
	d := NewDispatcher(nil, nil)
	d.Register(&failingValidateSink{name: "bad"})
	d.Register(&fakeSink{name: "good"})

	results := d.ValidateAll(context.Background(), false)
	require.Len(t, results, 2)

	d.Dispatch(context.Background(), types.NotificationEvent{EventType: types.EventDeviceLost, OccurredAt: time.Now()})
	_, stillRegistered := d.Health()["bad"]
	assert.False(t, stillRegistered, "expected the failing optional sink to be removed from rotation")
}

type failingValidateSink struct{ name string }

func (f *failingValidateSink) Name() string                       { return f.name }
func (f *failingValidateSink) Validate(ctx context.Context) error  { return errors.New("unreachable") }
func (f *failingValidateSink) Send(ctx context.Context, e types.NotificationEvent) error {
	return nil
}
