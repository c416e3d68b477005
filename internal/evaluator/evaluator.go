// Package evaluator implements C6, the pure schedule-evaluation function
// that fuses time, day-of-week, weather conditions, and priority into a
// single per-group Decision.
package evaluator

import (
	"sort"
	"time"

	"github.com/chrissnell/plugscheduler/internal/clock"
	"github.com/chrissnell/plugscheduler/internal/types"
)

// Input bundles everything the evaluator needs for one decision. It takes no
// clock or I/O internally; `Now` is always caller-supplied so the function
// stays deterministic and easy to replay in tests.
type Input struct {
	Group       types.Group
	Now         time.Time
	Location    clock.Location
	Weather     types.WeatherSnapshot
	VacationOn  bool
}

// window is a resolved, concrete activation interval for one schedule
// instance (today's or yesterday's, for cross-midnight schedules).
type window struct {
	schedule *types.Schedule
	start    time.Time
	end      time.Time
}

// Evaluate runs the §4.6 algorithm against a single group and returns the
// resulting Decision. It never mutates its inputs.
func Evaluate(resolver *clock.Resolver, in Input) types.Decision {
	if in.VacationOn {
		return types.Decision{
			DesiredState:                types.StateOff,
			ReasonCode:                  types.ReasonVacation,
			EffectiveConditionsSnapshot: in.Weather,
		}
	}

	weekday := isoWeekday(in.Now)

	var candidates []window
	for i := range in.Group.Schedules {
		sched := &in.Group.Schedules[i]
		if !sched.Enabled {
			continue
		}
		if !sched.ActiveOn(weekday) && !sched.ActiveOn(isoWeekday(in.Now.AddDate(0, 0, -1))) {
			continue
		}

		for _, w := range resolveWindows(resolver, sched, in.Now, in.Location) {
			active := !in.Now.Before(w.start) && in.Now.Before(w.end)
			if !active {
				continue
			}
			if !conditionsPass(sched, in.Weather) {
				continue
			}
			candidates = append(candidates, w)
		}
	}

	if len(candidates) == 0 {
		return types.Decision{
			DesiredState:                types.StateOff,
			ReasonCode:                  types.ReasonNoScheduleActive,
			EffectiveConditionsSnapshot: in.Weather,
		}
	}

	winner := pickWinner(candidates)
	priority := winner.schedule.Priority
	return types.Decision{
		DesiredState:                types.StateOn,
		WinningSchedule:             winner.schedule,
		ReasonCode:                  types.ReasonScheduleActive,
		Priority:                    &priority,
		EffectiveConditionsSnapshot: in.Weather,
	}
}

// resolveWindows builds the candidate activation windows for a schedule: the
// instance anchored to today, and (if the window crosses midnight) the
// instance anchored to yesterday, per §4.6 step 3b.
func resolveWindows(resolver *clock.Resolver, sched *types.Schedule, now time.Time, loc clock.Location) []window {
	today := startOfDay(now, loc.TZ)
	yesterday := today.AddDate(0, 0, -1)

	var out []window
	if sched.ActiveOn(isoWeekday(today)) {
		if w, ok := resolveWindowFor(resolver, sched, today, loc); ok {
			out = append(out, w)
		}
	}
	if sched.ActiveOn(isoWeekday(yesterday)) {
		if w, ok := resolveWindowFor(resolver, sched, yesterday, loc); ok {
			if crossesMidnight(w) {
				out = append(out, w)
			}
		}
	}
	return out
}

func resolveWindowFor(resolver *clock.Resolver, sched *types.Schedule, anchorDay time.Time, loc clock.Location) (window, bool) {
	onTime, err := resolver.Resolve(sched.On, anchorDay, loc)
	if err != nil {
		return window{}, false
	}

	var offTime time.Time
	if sched.Off.Kind == types.TimeSpecDuration {
		offTime = onTime.Add(time.Duration(sched.Off.DurationHours * float64(time.Hour)))
	} else {
		offTime, err = resolver.Resolve(sched.Off, anchorDay, loc)
		if err != nil {
			return window{}, false
		}
		if !offTime.After(onTime) {
			// cross-midnight: off time belongs to the following calendar day
			offTime = offTime.AddDate(0, 0, 1)
		}
	}

	return window{schedule: sched, start: onTime, end: offTime}, true
}

func crossesMidnight(w window) bool {
	return w.end.YearDay() != w.start.YearDay() || w.end.Year() != w.start.Year()
}

func conditionsPass(sched *types.Schedule, snap types.WeatherSnapshot) bool {
	if sched.Conditions.Empty() {
		return true
	}
	if snap.IsOffline {
		return false
	}
	c := sched.Conditions
	if c.TemperatureMaxF != nil {
		if snap.Current.TemperatureF == nil || *snap.Current.TemperatureF > *c.TemperatureMaxF {
			return false
		}
	}
	if c.PrecipitationActive != nil {
		if snap.Current.PrecipitationActive == nil || *snap.Current.PrecipitationActive != *c.PrecipitationActive {
			return false
		}
	}
	if c.BlackIceRisk != nil {
		if snap.BlackIceRisk != *c.BlackIceRisk {
			return false
		}
	}
	return true
}

// pickWinner resolves priority ties per §4.6 step 4: highest priority wins,
// ties broken by earliest start time, then by schedule name.
func pickWinner(candidates []window) window {
	sort.SliceStable(candidates, func(i, j int) bool {
		a, b := candidates[i], candidates[j]
		if a.schedule.Priority != b.schedule.Priority {
			return a.schedule.Priority > b.schedule.Priority
		}
		if !a.start.Equal(b.start) {
			return a.start.Before(b.start)
		}
		return a.schedule.Name < b.schedule.Name
	})
	return candidates[0]
}

func isoWeekday(t time.Time) int {
	wd := int(t.Weekday())
	if wd == 0 {
		return 7
	}
	return wd
}

func startOfDay(t time.Time, tz *time.Location) time.Time {
	local := t.In(tz)
	return time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, tz)
}
