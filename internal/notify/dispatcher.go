package notify

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/chrissnell/plugscheduler/internal/types"
)

const maxConsecutiveFailures = 3

// stateChangeCategory is the only category §4.9 rate-limits; it must match
// the string types.EventType.Category() returns for the weather_service_*
// family.
const stateChangeCategory = "state_change"

// sinkState tracks one registered sink's health and per-category gates,
// mirroring the teacher's StorageEngine pairing of a backend with the
// channel that feeds it (storage.go), generalized to per-category fan-out
// instead of a single unconditional channel.
type sinkState struct {
	sink                Sink
	health              SinkHealth
	consecutiveFailures int
	gates               map[string]*CoalescingGate
}

// RoutingTable maps event_type -> sink name -> enabled, per §4.9. A nil or
// absent entry for an event type means "send to every enabled sink".
type RoutingTable map[types.EventType]map[string]bool

// Dispatcher is C9: a typed event bus that resolves per-event routing,
// rate-limits per (sink, category), and delivers fire-and-forget.
type Dispatcher struct {
	mu      sync.Mutex
	sinks   map[string]*sinkState
	order   []string
	routing RoutingTable
	logger  *zap.SugaredLogger
}

// NewDispatcher returns an empty dispatcher. Register sinks with Register,
// then call ValidateAll once at startup before Dispatch is used.
func NewDispatcher(routing RoutingTable, logger *zap.SugaredLogger) *Dispatcher {
	return &Dispatcher{
		sinks:   make(map[string]*sinkState),
		routing: routing,
		logger:  logger,
	}
}

// Register adds a sink in enabled state.
func (d *Dispatcher) Register(s Sink) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.sinks[s.Name()] = &sinkState{sink: s, health: SinkHealthy, gates: make(map[string]*CoalescingGate)}
	d.order = append(d.order, s.Name())
}

// ValidationResult is one sink's startup validation outcome.
type ValidationResult struct {
	SinkName string
	Err      error
}

// ValidateAll runs Validate on every registered sink. Per §4.9, when
// required is true a validation failure is returned to the caller to be
// treated as fatal; otherwise the sink is disabled (removed from rotation)
// and the failure is only reported.
func (d *Dispatcher) ValidateAll(ctx context.Context, required bool) []ValidationResult {
	d.mu.Lock()
	names := append([]string(nil), d.order...)
	d.mu.Unlock()

	var results []ValidationResult
	for _, name := range names {
		d.mu.Lock()
		st, ok := d.sinks[name]
		d.mu.Unlock()
		if !ok {
			continue
		}
		err := st.sink.Validate(ctx)
		results = append(results, ValidationResult{SinkName: name, Err: err})
		if err != nil {
			if d.logger != nil {
				d.logger.Warnw("sink failed startup validation", "sink", name, "error", err)
			}
			if !required {
				d.mu.Lock()
				delete(d.sinks, name)
				d.mu.Unlock()
			}
		}
	}
	return results
}

// Health returns a snapshot of every registered sink's health, for the
// status API.
func (d *Dispatcher) Health() map[string]SinkHealth {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make(map[string]SinkHealth, len(d.sinks))
	for name, st := range d.sinks {
		out[name] = st.health
	}
	return out
}

// Dispatch resolves routing for event.EventType and delivers to each
// resolved sink in its own fire-and-forget goroutine. It never blocks the
// caller on sink I/O. Per §4.9, rate limiting applies only to the
// "state_change" category (the weather_service_* family); every other
// category is delivered immediately, so independent events of the same
// type (e.g. safety_max_runtime for two different groups) are never
// coalesced into one another.
func (d *Dispatcher) Dispatch(ctx context.Context, event types.NotificationEvent) {
	if event.EventID == "" {
		event.EventID = uuid.NewString()
	}
	category := event.EventType.Category()

	d.mu.Lock()
	targets := d.resolveTargetsLocked(event.EventType)
	if category != stateChangeCategory {
		d.mu.Unlock()
		for _, name := range targets {
			go d.deliver(ctx, name, event)
		}
		return
	}

	gates := make([]*CoalescingGate, 0, len(targets))
	for _, name := range targets {
		st, ok := d.sinks[name]
		if !ok {
			continue
		}
		gate, ok := st.gates[category]
		if !ok {
			sinkName := name
			gate = NewCoalescingGate(rateLimitWindow, func(v interface{}) {
				ev, ok := v.(types.NotificationEvent)
				if !ok {
					return
				}
				// deliver runs its own bounded-timeout sink I/O; run it on its
				// own goroutine so Dispatch never blocks its caller (the
				// scheduler tick or the weather poll loop) on that I/O.
				go d.deliver(ctx, sinkName, ev)
			})
			st.gates[category] = gate
		}
		gates = append(gates, gate)
	}
	d.mu.Unlock()

	for _, gate := range gates {
		gate.Observe(event)
	}
}

func (d *Dispatcher) resolveTargetsLocked(eventType types.EventType) []string {
	table, hasEntry := d.routing[eventType]
	if d.routing == nil || !hasEntry {
		return append([]string(nil), d.order...)
	}
	var targets []string
	for _, name := range d.order {
		if table[name] {
			targets = append(targets, name)
		}
	}
	return targets
}

func (d *Dispatcher) deliver(ctx context.Context, sinkName string, event types.NotificationEvent) {
	d.mu.Lock()
	st, ok := d.sinks[sinkName]
	d.mu.Unlock()
	if !ok {
		return
	}

	sendCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	err := st.sink.Send(sendCtx, event)

	d.mu.Lock()
	defer d.mu.Unlock()
	if err != nil {
		if d.logger != nil {
			d.logger.Warnw("notification delivery failed", "sink", sinkName, "event_type", event.EventType, "error", err)
		}
		st.consecutiveFailures++
		switch {
		case st.consecutiveFailures >= maxConsecutiveFailures:
			st.health = SinkFailed
		case st.consecutiveFailures > 0:
			st.health = SinkDegraded
		}
		return
	}
	st.consecutiveFailures = 0
	st.health = SinkHealthy
}
