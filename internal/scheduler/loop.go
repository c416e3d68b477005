// Package scheduler implements C7: the periodic driver that evaluates every
// group, applies safety gating, dispatches device commands, and persists
// runtime state.
package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/chrissnell/plugscheduler/internal/clock"
	"github.com/chrissnell/plugscheduler/internal/devicecontrol"
	"github.com/chrissnell/plugscheduler/internal/evaluator"
	"github.com/chrissnell/plugscheduler/internal/notify"
	"github.com/chrissnell/plugscheduler/internal/overrides"
	"github.com/chrissnell/plugscheduler/internal/runtimestate"
	"github.com/chrissnell/plugscheduler/internal/types"
	"github.com/chrissnell/plugscheduler/internal/weather"
	"github.com/chrissnell/plugscheduler/pkg/config"
)

// maxConsecutiveFailures is the number of failed device commands on a group
// before connectivity_lost is emitted and a re-init is attempted (§4.7).
const maxConsecutiveFailures = 3

// WeatherSource is the subset of weather.Service the loop depends on.
type WeatherSource interface {
	SnapshotForNow(now time.Time) (types.WeatherSnapshot, error)
}

// Loop is C7. It owns RuntimeState exclusively; every other shared resource
// (config, override stores) is read under its own lock and never mutated
// by the loop directly except through the override stores' own methods.
type Loop struct {
	cfgFn      func() *config.Snapshot
	weather    WeatherSource
	manual     *overrides.ManualStore
	automation *overrides.AutomationStore
	runtime    *runtimestate.Store
	dispatcher *notify.Dispatcher
	controller devicecontrol.Controller
	resolver   *clock.Resolver
	logger     *zap.SugaredLogger

	firstTick bool
}

// New constructs a Loop ready to Tick. cfgFn is called once per tick so a
// config reload (swapping the pointer it returns) takes effect on the very
// next tick without restarting the loop.
func New(cfgFn func() *config.Snapshot, weatherSrc WeatherSource, manual *overrides.ManualStore, automation *overrides.AutomationStore, runtime *runtimestate.Store, dispatcher *notify.Dispatcher, controller devicecontrol.Controller, logger *zap.SugaredLogger) *Loop {
	return &Loop{
		cfgFn:      cfgFn,
		weather:    weatherSrc,
		manual:     manual,
		automation: automation,
		runtime:    runtime,
		dispatcher: dispatcher,
		controller: controller,
		resolver:   clock.NewResolver(),
		logger:     logger,
		firstTick:  true,
	}
}

// Run drives Tick every cfg.CheckInterval, without drift: the next tick is
// scheduled at lastTick + interval, coalescing if the previous tick ran
// long.
func (l *Loop) Run(ctx context.Context) {
	next := time.Now().Add(l.cfgFn().CheckInterval)

	l.Tick(ctx, time.Now())

	for {
		sleep := time.Until(next)
		if sleep < 0 {
			sleep = 0
		}
		select {
		case <-ctx.Done():
			return
		case <-time.After(sleep):
		}
		if ctx.Err() != nil {
			return
		}
		now := time.Now()
		l.Tick(ctx, now)
		interval := l.cfgFn().CheckInterval
		next = next.Add(interval)
		if next.Before(now) {
			next = now.Add(interval)
		}
	}
}

// Tick runs one full pass over every enabled group. Per-group failures never
// abort other groups (§7 propagation policy).
func (l *Loop) Tick(ctx context.Context, now time.Time) {
	cfg := l.cfgFn()

	snap, err := l.weather.SnapshotForNow(now)
	if err != nil {
		snap = types.WeatherSnapshot{State: types.WeatherOfflineNoData, IsOffline: true}
	}

	loc := clock.Location{Latitude: cfg.Location.Latitude, Longitude: cfg.Location.Longitude, TZ: cfg.TZ}

	for _, group := range cfg.Groups {
		if ctx.Err() != nil {
			return
		}
		if !group.Enabled {
			continue
		}
		l.tickGroup(ctx, cfg, group, now, loc, snap)
	}

	if err := l.runtime.Save(); err != nil && l.logger != nil {
		l.logger.Warnw("failed to persist runtime state", "error", err)
	}

	l.firstTick = false
}

func (l *Loop) tickGroup(ctx context.Context, cfg *config.Snapshot, group types.Group, now time.Time, loc clock.Location, snap types.WeatherSnapshot) {
	state := l.runtime.Get(group.Name)

	manualOverride, err := l.manual.Active(group.Name, now)
	if err != nil && l.logger != nil {
		l.logger.Warnw("failed to read manual override", "group", group.Name, "error", err)
	}

	var decision types.Decision
	switch {
	case state.CooldownUntil != nil && now.Before(*state.CooldownUntil):
		decision = types.Decision{DesiredState: types.StateOff, ReasonCode: types.ReasonCooldown, EffectiveConditionsSnapshot: snap}
	case manualOverride.Active(now):
		decision = types.Decision{DesiredState: types.DesiredState(manualOverride.Action), ReasonCode: types.ReasonManualOverride, EffectiveConditionsSnapshot: snap}
	default:
		decision = evaluator.Evaluate(l.resolver, evaluator.Input{
			Group:      withEffectiveEnabled(group, l.automation.EffectiveFlags(group.Name, group.AutomationFlags)),
			Now:        now,
			Location:   loc,
			Weather:    snap,
			VacationOn: cfg.VacationMode,
		})
	}

	source := types.SourceSchedule
	switch decision.ReasonCode {
	case types.ReasonManualOverride:
		source = types.SourceManual
	case types.ReasonVacation:
		source = types.SourceVacation
	}

	decision, cooldownMinutes, tripped := l.applyMaxRuntimeGate(cfg, group, state, decision, now)
	if tripped {
		source = types.SourceSafety
		if err := l.manual.Clear(group.Name); err != nil && l.logger != nil {
			l.logger.Warnw("failed to clear manual override after safety trip", "group", group.Name, "error", err)
		}
		l.dispatcher.Dispatch(ctx, types.NotificationEvent{
			EventType:  types.EventSafetyMaxRuntime,
			Message:    fmt.Sprintf("group %s exceeded max runtime, forcing off", group.Name),
			OccurredAt: now,
			Source:     "scheduler",
			Details:    map[string]interface{}{"group": group.Name},
		})
	}

	l.applyDeviceCommand(ctx, group, state, decision, source, cooldownMinutes, now)
}

// withEffectiveEnabled returns a shallow copy of group whose schedule Enabled
// flags reflect automation-override layering: a flag keyed by schedule name
// overrides that schedule's base Enabled value.
func withEffectiveEnabled(group types.Group, effective map[string]bool) types.Group {
	out := group
	out.Schedules = make([]types.Schedule, len(group.Schedules))
	copy(out.Schedules, group.Schedules)
	for i, s := range out.Schedules {
		if v, ok := effective[s.Name]; ok {
			out.Schedules[i].Enabled = v
		}
	}
	return out
}

// applyMaxRuntimeGate enforces the per-group hard ceiling on continuous ON
// duration (§4.7 step 5). It returns the (possibly overridden) decision, the
// effective cooldown in minutes, and whether a trip occurred.
func (l *Loop) applyMaxRuntimeGate(cfg *config.Snapshot, group types.Group, state types.RuntimeState, decision types.Decision, now time.Time) (types.Decision, int, bool) {
	maxHours := group.Safety.MaxRuntimeHours
	cooldownMinutes := group.Safety.CooldownMinutes
	if decision.WinningSchedule != nil && decision.WinningSchedule.Safety != nil {
		if decision.WinningSchedule.Safety.MaxRuntimeHours > 0 {
			maxHours = decision.WinningSchedule.Safety.MaxRuntimeHours
		}
		if decision.WinningSchedule.Safety.CooldownMinutes > 0 {
			cooldownMinutes = decision.WinningSchedule.Safety.CooldownMinutes
		}
	}
	if maxHours <= 0 {
		maxHours = cfg.Safety.MaxRuntimeHours
	}
	if cooldownMinutes <= 0 {
		cooldownMinutes = cfg.Safety.CooldownMinutes
	}

	if decision.DesiredState != types.StateOn || state.OnSince == nil {
		return decision, cooldownMinutes, false
	}

	elapsed := now.Sub(*state.OnSince)
	if elapsed < time.Duration(maxHours)*time.Hour {
		return decision, cooldownMinutes, false
	}

	return types.Decision{
		DesiredState:                types.StateOff,
		ReasonCode:                  types.ReasonCooldown,
		EffectiveConditionsSnapshot: decision.EffectiveConditionsSnapshot,
	}, cooldownMinutes, true
}

// applyDeviceCommand compares the decision against observed device state,
// issues a command if they differ, updates bookkeeping, and stores the
// resulting RuntimeState for the group in memory; Tick saves it to disk.
func (l *Loop) applyDeviceCommand(ctx context.Context, group types.Group, state types.RuntimeState, decision types.Decision, source types.ActionSource, cooldownMinutes int, now time.Time) {
	actual, err := l.controller.State(ctx, group)
	if err != nil && l.logger != nil {
		l.logger.Warnw("failed to read device state", "group", group.Name, "error", err)
	}

	actualOn := actual.IsOn
	desiredOn := decision.DesiredState == types.StateOn

	suppressEvents := l.firstTick && !state.InitialStateReported

	if desiredOn != actualOn {
		// commandID correlates the Set attempt with whatever connectivity
		// event it triggers, so an operator can match a logged failure to
		// the notification it produced.
		commandID := uuid.NewString()
		if err := l.controller.Set(ctx, group, decision.DesiredState); err != nil {
			if l.logger != nil {
				l.logger.Warnw("device command failed, will retry next tick", "group", group.Name, "command_id", commandID, "error", err)
			}
			state.ConsecutiveFailures++
			if state.ConsecutiveFailures == maxConsecutiveFailures {
				if !suppressEvents {
					l.dispatcher.Dispatch(ctx, types.NotificationEvent{
						EventType: types.EventConnectivityLost, Message: fmt.Sprintf("group %s lost connectivity", group.Name),
						OccurredAt: now, Source: "scheduler", Details: map[string]interface{}{"group": group.Name, "command_id": commandID},
					})
				}
				l.attemptReinit(ctx, group, now, suppressEvents)
			}
			l.runtime.Set(group.Name, state)
			return
		}
		if state.ConsecutiveFailures >= maxConsecutiveFailures && !suppressEvents {
			l.dispatcher.Dispatch(ctx, types.NotificationEvent{
				EventType: types.EventConnectivityRestored, Message: fmt.Sprintf("group %s connectivity restored", group.Name),
				OccurredAt: now, Source: "scheduler", Details: map[string]interface{}{"group": group.Name, "command_id": commandID},
			})
		}
		state.ConsecutiveFailures = 0

		state.IsOn = desiredOn
		state.LastAction = &now
		state.LastActionSource = source
		if decision.WinningSchedule != nil {
			state.ActiveScheduleName = decision.WinningSchedule.Name
		} else {
			state.ActiveScheduleName = ""
		}
		if desiredOn {
			onSince := now
			state.OnSince = &onSince
			state.OnRuntimeElapsed = 0
		} else {
			state.OnSince = nil
			if decision.ReasonCode == types.ReasonCooldown && source == types.SourceSafety {
				cooldownUntil := now.Add(time.Duration(cooldownMinutes) * time.Minute)
				state.CooldownUntil = &cooldownUntil
			}
		}
	} else if desiredOn && state.OnSince != nil {
		state.OnRuntimeElapsed = now.Sub(*state.OnSince)
	}

	if state.CooldownUntil != nil && now.After(*state.CooldownUntil) {
		state.CooldownUntil = nil
	}

	state.InitialStateReported = true
	l.runtime.Set(group.Name, state)
}

func (l *Loop) attemptReinit(ctx context.Context, group types.Group, now time.Time, suppressEvents bool) {
	var lastErr error
	for _, dev := range group.Devices {
		if err := l.controller.Init(ctx, dev); err != nil {
			lastErr = err
		}
	}
	if lastErr == nil && !suppressEvents {
		l.dispatcher.Dispatch(ctx, types.NotificationEvent{
			EventType: types.EventConnectivityRestored, Message: fmt.Sprintf("group %s re-initialized", group.Name),
			OccurredAt: now, Source: "scheduler", Details: map[string]interface{}{"group": group.Name},
		})
	}
}
