package evaluator

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chrissnell/plugscheduler/internal/clock"
	"github.com/chrissnell/plugscheduler/internal/types"
)

func mustSchedule(t *testing.T, name string, priority types.Priority, days []int, on, off types.TimeSpec) types.Schedule {
	t.Helper()
	s := types.Schedule{
		Name:    name,
		Enabled: true,
		DaysRaw: days,
		On:      on,
		Off:     off,
	}
	switch priority {
	case types.PriorityCritical:
		s.PriorityRaw = "critical"
	case types.PriorityLow:
		s.PriorityRaw = "low"
	default:
		s.PriorityRaw = "normal"
	}
	require.NoError(t, s.Normalize(), "normalize %q", name)
	return s
}

func allDays() []int { return []int{1, 2, 3, 4, 5, 6, 7} }

func testLocation() clock.Location {
	return clock.Location{Latitude: 39.7, Longitude: -104.9, TZ: time.UTC}
}

// Friday, 2026-07-31.
func fridayAt(hh, mm int) time.Time {
	return time.Date(2026, 7, 31, hh, mm, 0, 0, time.UTC)
}

func TestEvaluateNoScheduleActiveOutsideWindow(t *testing.T) {
	resolver := clock.NewResolver()
	sched := mustSchedule(t, "daytime", types.PriorityNormal, allDays(), types.Clock("08:00"), types.Clock("18:00"))
	group := types.Group{Name: "g1", Enabled: true, Schedules: []types.Schedule{sched}}

	decision := Evaluate(resolver, Input{Group: group, Now: fridayAt(20, 0), Location: testLocation()})

	assert.Equal(t, types.StateOff, decision.DesiredState)
	assert.Equal(t, types.ReasonNoScheduleActive, decision.ReasonCode)
}

func TestEvaluateScheduleActiveInsideWindow(t *testing.T) {
	resolver := clock.NewResolver()
	sched := mustSchedule(t, "daytime", types.PriorityNormal, allDays(), types.Clock("08:00"), types.Clock("18:00"))
	group := types.Group{Name: "g1", Enabled: true, Schedules: []types.Schedule{sched}}

	decision := Evaluate(resolver, Input{Group: group, Now: fridayAt(12, 0), Location: testLocation()})

	require.Equal(t, types.StateOn, decision.DesiredState)
	require.Equal(t, types.ReasonScheduleActive, decision.ReasonCode)
	require.NotNil(t, decision.WinningSchedule)
	assert.Equal(t, "daytime", decision.WinningSchedule.Name)
}

func TestEvaluateHalfOpenWindowBoundaries(t *testing.T) {
	resolver := clock.NewResolver()
	sched := mustSchedule(t, "daytime", types.PriorityNormal, allDays(), types.Clock("08:00"), types.Clock("18:00"))
	group := types.Group{Name: "g1", Enabled: true, Schedules: []types.Schedule{sched}}

	atStart := Evaluate(resolver, Input{Group: group, Now: fridayAt(8, 0), Location: testLocation()})
	assert.Equal(t, types.StateOn, atStart.DesiredState, "the start instant is inclusive")

	atEnd := Evaluate(resolver, Input{Group: group, Now: fridayAt(18, 0), Location: testLocation()})
	assert.Equal(t, types.StateOff, atEnd.DesiredState, "the end instant is exclusive")
}

func TestEvaluateCrossMidnightWindow(t *testing.T) {
	resolver := clock.NewResolver()
	sched := mustSchedule(t, "overnight", types.PriorityNormal, allDays(), types.Clock("22:00"), types.Clock("06:00"))
	group := types.Group{Name: "g1", Enabled: true, Schedules: []types.Schedule{sched}}

	// 02:00 the next calendar day should still be inside yesterday's window.
	decision := Evaluate(resolver, Input{Group: group, Now: fridayAt(2, 0), Location: testLocation()})
	assert.Equal(t, types.StateOn, decision.DesiredState)
}

func TestEvaluateCrossMidnightWindowRespectsDayOfWeek(t *testing.T) {
	resolver := clock.NewResolver()
	// Monday-only overnight schedule: 23:00 Monday -> 02:00 Tuesday.
	sched := mustSchedule(t, "overnight", types.PriorityNormal, []int{1}, types.Clock("23:00"), types.Clock("02:00"))
	group := types.Group{Name: "g1", Enabled: true, Schedules: []types.Schedule{sched}}

	monday := time.Date(2026, 7, 27, 23, 30, 0, 0, time.UTC)
	tuesdayEarly := time.Date(2026, 7, 28, 0, 30, 0, 0, time.UTC)
	tuesdayLate := time.Date(2026, 7, 28, 23, 30, 0, 0, time.UTC)

	onMonday := Evaluate(resolver, Input{Group: group, Now: monday, Location: testLocation()})
	assert.Equal(t, types.StateOn, onMonday.DesiredState, "Monday 23:30 is inside the Monday-anchored window")

	onTuesdayEarly := Evaluate(resolver, Input{Group: group, Now: tuesdayEarly, Location: testLocation()})
	assert.Equal(t, types.StateOn, onTuesdayEarly.DesiredState, "Tuesday 00:30 is still inside Monday's overnight window")

	offTuesdayLate := Evaluate(resolver, Input{Group: group, Now: tuesdayLate, Location: testLocation()})
	assert.Equal(t, types.StateOff, offTuesdayLate.DesiredState, "Tuesday 23:30 is not covered by a Monday-only schedule")
}

func TestEvaluatePriorityTieBreak(t *testing.T) {
	resolver := clock.NewResolver()
	low := mustSchedule(t, "low-prio", types.PriorityLow, allDays(), types.Clock("08:00"), types.Clock("18:00"))
	critical := mustSchedule(t, "critical-prio", types.PriorityCritical, allDays(), types.Clock("09:00"), types.Clock("17:00"))
	group := types.Group{Name: "g1", Enabled: true, Schedules: []types.Schedule{low, critical}}

	decision := Evaluate(resolver, Input{Group: group, Now: fridayAt(12, 0), Location: testLocation()})

	require.NotNil(t, decision.WinningSchedule)
	assert.Equal(t, "critical-prio", decision.WinningSchedule.Name)
}

func TestEvaluateVacationModeForcesOff(t *testing.T) {
	resolver := clock.NewResolver()
	sched := mustSchedule(t, "daytime", types.PriorityCritical, allDays(), types.Clock("08:00"), types.Clock("18:00"))
	group := types.Group{Name: "g1", Enabled: true, Schedules: []types.Schedule{sched}}

	decision := Evaluate(resolver, Input{Group: group, Now: fridayAt(12, 0), Location: testLocation(), VacationOn: true})

	assert.Equal(t, types.StateOff, decision.DesiredState)
	assert.Equal(t, types.ReasonVacation, decision.ReasonCode)
}

func TestEvaluateConditionsGateTemperature(t *testing.T) {
	resolver := clock.NewResolver()
	maxTemp := 40.0
	sched := mustSchedule(t, "daytime", types.PriorityNormal, allDays(), types.Clock("08:00"), types.Clock("18:00"))
	sched.Conditions = types.Conditions{TemperatureMaxF: &maxTemp}
	group := types.Group{Name: "g1", Enabled: true, Schedules: []types.Schedule{sched}}

	hot := 65.0
	decision := Evaluate(resolver, Input{
		Group: group, Now: fridayAt(12, 0), Location: testLocation(),
		Weather: types.WeatherSnapshot{Current: types.CurrentConditions{TemperatureF: &hot}},
	})
	assert.Equal(t, types.StateOff, decision.DesiredState, "too hot to satisfy the condition")

	cold := 30.0
	decision = Evaluate(resolver, Input{
		Group: group, Now: fridayAt(12, 0), Location: testLocation(),
		Weather: types.WeatherSnapshot{Current: types.CurrentConditions{TemperatureF: &cold}},
	})
	assert.Equal(t, types.StateOn, decision.DesiredState, "cool enough to satisfy the condition")
}

func TestEvaluateConditionsGateOfflineWeatherBlocks(t *testing.T) {
	resolver := clock.NewResolver()
	maxTemp := 40.0
	sched := mustSchedule(t, "daytime", types.PriorityNormal, allDays(), types.Clock("08:00"), types.Clock("18:00"))
	sched.Conditions = types.Conditions{TemperatureMaxF: &maxTemp}
	group := types.Group{Name: "g1", Enabled: true, Schedules: []types.Schedule{sched}}

	decision := Evaluate(resolver, Input{
		Group: group, Now: fridayAt(12, 0), Location: testLocation(),
		Weather: types.WeatherSnapshot{IsOffline: true},
	})
	assert.Equal(t, types.StateOff, decision.DesiredState)
}

func TestEvaluateDisabledScheduleNeverWins(t *testing.T) {
	resolver := clock.NewResolver()
	sched := mustSchedule(t, "daytime", types.PriorityNormal, allDays(), types.Clock("08:00"), types.Clock("18:00"))
	sched.Enabled = false
	group := types.Group{Name: "g1", Enabled: true, Schedules: []types.Schedule{sched}}

	decision := Evaluate(resolver, Input{Group: group, Now: fridayAt(12, 0), Location: testLocation()})
	assert.Equal(t, types.StateOff, decision.DesiredState)
}

func TestEvaluateWrongDayNeverMatches(t *testing.T) {
	resolver := clock.NewResolver()
	// Friday 2026-07-31 is ISO weekday 5; restrict the schedule to Monday only.
	sched := mustSchedule(t, "monday-only", types.PriorityNormal, []int{1}, types.Clock("08:00"), types.Clock("18:00"))
	group := types.Group{Name: "g1", Enabled: true, Schedules: []types.Schedule{sched}}

	decision := Evaluate(resolver, Input{Group: group, Now: fridayAt(12, 0), Location: testLocation()})
	assert.Equal(t, types.StateOff, decision.DesiredState)
}
