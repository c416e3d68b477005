// Package clock implements C1: resolving a types.TimeSpec into an absolute
// local time for a given calendar date and location, backed by pkg/solar's
// memoized sunrise/sunset calculator.
package clock

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/chrissnell/plugscheduler/internal/types"
	"github.com/chrissnell/plugscheduler/pkg/solar"
)

// Location is the geographic + timezone context schedules are evaluated in.
type Location struct {
	Latitude  float64
	Longitude float64
	TZ        *time.Location
}

// Resolver resolves TimeSpecs to absolute local times, one calculator shared
// across every call so solar events are memoized per calendar day.
type Resolver struct {
	calc *solar.Calculator
}

// NewResolver returns a ready-to-use Resolver.
func NewResolver() *Resolver {
	return &Resolver{calc: solar.NewCalculator()}
}

// Resolve implements the C1 contract: for `clock` it returns the literal
// time-of-day on `date`; for `sunrise`/`sunset` it computes the solar event
// for (date, loc), applies the offset, and falls back to the configured
// clock fallback if the computation fails (polar regions, etc). `duration`
// specs are off-only and must be resolved by the caller relative to the
// matched on-time; Resolve rejects them.
func (r *Resolver) Resolve(spec types.TimeSpec, date time.Time, loc Location) (time.Time, error) {
	switch spec.Kind {
	case types.TimeSpecClock:
		return clockTimeOn(date, loc.TZ, spec.Value)

	case types.TimeSpecSunrise, types.TimeSpecSunset:
		event := solar.Sunrise
		if spec.Kind == types.TimeSpecSunset {
			event = solar.Sunset
		}
		t, err := r.calc.Resolve(event, date, loc.Latitude, loc.Longitude, loc.TZ)
		if err != nil {
			if spec.Fallback == "" {
				return time.Time{}, fmt.Errorf("clock: resolve %s with no fallback configured: %w", spec.Kind, err)
			}
			return clockTimeOn(date, loc.TZ, spec.Fallback)
		}
		return t.In(loc.TZ).Add(time.Duration(spec.OffsetMinutes) * time.Minute), nil

	case types.TimeSpecDuration:
		return time.Time{}, fmt.Errorf("clock: duration time specs must be resolved relative to the matched on-time, not independently")

	default:
		return time.Time{}, fmt.Errorf("clock: unknown time spec kind %q", spec.Kind)
	}
}

// Prune forwards to the underlying solar calculator's cache eviction.
func (r *Resolver) Prune(now time.Time) {
	r.calc.Prune(now)
}

func clockTimeOn(date time.Time, tz *time.Location, hhmm string) (time.Time, error) {
	parts := strings.SplitN(hhmm, ":", 2)
	if len(parts) != 2 {
		return time.Time{}, fmt.Errorf("clock: malformed time %q", hhmm)
	}
	hh, err := strconv.Atoi(parts[0])
	if err != nil {
		return time.Time{}, fmt.Errorf("clock: malformed hour in %q: %w", hhmm, err)
	}
	mm, err := strconv.Atoi(parts[1])
	if err != nil {
		return time.Time{}, fmt.Errorf("clock: malformed minute in %q: %w", hhmm, err)
	}
	local := date.In(tz)
	return time.Date(local.Year(), local.Month(), local.Day(), hh, mm, 0, 0, tz), nil
}
