package types

import (
	"fmt"
	"regexp"
)

// TimeSpecKind is a closed enumeration of the ways a schedule boundary can be
// expressed. It stands in for the tagged union in the source design: Go has
// no sum types, so each kind's extra fields simply go unused on the others,
// and TimeSpec.Validate checks that a value is consistent for its kind.
type TimeSpecKind string

const (
	TimeSpecClock    TimeSpecKind = "clock"
	TimeSpecSunrise  TimeSpecKind = "sunrise"
	TimeSpecSunset   TimeSpecKind = "sunset"
	TimeSpecDuration TimeSpecKind = "duration"
)

var clockPattern = regexp.MustCompile(`^([01]?[0-9]|2[0-3]):([0-5][0-9])$`)

// TimeSpec is a symbolic specification of a schedule boundary: a fixed clock
// time, an offset from sunrise/sunset with a fallback, or (off-only) a
// duration relative to the matched on-time.
type TimeSpec struct {
	Kind           TimeSpecKind `yaml:"kind" json:"kind"`
	Value          string       `yaml:"value,omitempty" json:"value,omitempty"`               // clock: "HH:MM"
	OffsetMinutes  int          `yaml:"offset_minutes,omitempty" json:"offset_minutes,omitempty"` // sunrise/sunset
	Fallback       string       `yaml:"fallback,omitempty" json:"fallback,omitempty"`           // sunrise/sunset: "HH:MM"
	DurationHours  float64      `yaml:"hours,omitempty" json:"hours,omitempty"`                 // duration
}

// Validate checks that the TimeSpec is internally consistent for its kind.
func (t TimeSpec) Validate() error {
	switch t.Kind {
	case TimeSpecClock:
		if !clockPattern.MatchString(t.Value) {
			return fmt.Errorf("clock time spec has invalid value %q", t.Value)
		}
	case TimeSpecSunrise, TimeSpecSunset:
		if t.OffsetMinutes < -180 || t.OffsetMinutes > 180 {
			return fmt.Errorf("%s offset_minutes %d out of range [-180,180]", t.Kind, t.OffsetMinutes)
		}
		if t.Fallback != "" && !clockPattern.MatchString(t.Fallback) {
			return fmt.Errorf("%s fallback has invalid value %q", t.Kind, t.Fallback)
		}
	case TimeSpecDuration:
		if t.DurationHours <= 0 {
			return fmt.Errorf("duration spec hours must be > 0, got %v", t.DurationHours)
		}
	default:
		return fmt.Errorf("unknown time spec kind %q", t.Kind)
	}
	return nil
}

// Clock builds a clock-kind TimeSpec. It does not check value; Validate
// (called by Schedule.Normalize) rejects a malformed one.
func Clock(value string) TimeSpec {
	return TimeSpec{Kind: TimeSpecClock, Value: value}
}

// Sunrise builds a sunrise-kind TimeSpec with the given offset and fallback.
func Sunrise(offsetMinutes int, fallback string) TimeSpec {
	return TimeSpec{Kind: TimeSpecSunrise, OffsetMinutes: offsetMinutes, Fallback: fallback}
}

// Sunset builds a sunset-kind TimeSpec with the given offset and fallback.
func Sunset(offsetMinutes int, fallback string) TimeSpec {
	return TimeSpec{Kind: TimeSpecSunset, OffsetMinutes: offsetMinutes, Fallback: fallback}
}

// DurationSpec builds an off-only duration TimeSpec.
func DurationSpec(hours float64) TimeSpec {
	return TimeSpec{Kind: TimeSpecDuration, DurationHours: hours}
}
