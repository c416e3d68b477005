// Package apperrors defines the closed set of error kinds the scheduler core
// raises, so callers can branch with errors.Is instead of string matching.
package apperrors

import "errors"

var (
	// ErrConfigInvalid is surfaced at config load; fatal at startup, never
	// raised during a tick.
	ErrConfigInvalid = errors.New("config invalid")

	// ErrWeatherUnavailable is returned by the weather service when the
	// cache is empty and the fetch loop has never succeeded; the evaluator
	// treats it as an OFFLINE snapshot.
	ErrWeatherUnavailable = errors.New("weather unavailable")

	// ErrDeviceInitTimeout and ErrDeviceInitFailure mark a device as not
	// initialized; the owning group still ticks with its remaining devices.
	ErrDeviceInitTimeout  = errors.New("device init timeout")
	ErrDeviceInitFailure  = errors.New("device init failure")

	// ErrDeviceCommandFailure is logged and retried on the next tick; it
	// contributes to a group's consecutive-failure counter.
	ErrDeviceCommandFailure = errors.New("device command failure")

	// ErrPersistFailure is logged; in-memory state is unaffected and the
	// next tick retries the write.
	ErrPersistFailure = errors.New("persist failure")

	// ErrNotificationSinkFailure is logged at WARNING; it degrades the
	// sink's health but never propagates to the scheduler loop.
	ErrNotificationSinkFailure = errors.New("notification sink failure")
)
