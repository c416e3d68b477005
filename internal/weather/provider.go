// Package weather implements C2 (the durable weather cache) and C3 (the
// resilient weather service wrapping a WeatherProvider with an
// ONLINE/DEGRADED/OFFLINE state machine).
package weather

import (
	"context"
	"fmt"
	"time"
)

// FetchErrorKind classifies a WeatherProvider failure.
type FetchErrorKind string

const (
	FetchErrorTransport FetchErrorKind = "transport"
	FetchErrorTimeout   FetchErrorKind = "timeout"
	FetchErrorHTTP      FetchErrorKind = "http"
)

// FetchError is the single error shape a WeatherProvider may return.
type FetchError struct {
	Kind   FetchErrorKind
	Detail string
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("weather fetch error (%s): %s", e.Kind, e.Detail)
}

// Location is the point a forecast is requested for.
type Location struct {
	Latitude  float64
	Longitude float64
}

// NormalizedForecast is the provider-agnostic shape every WeatherProvider
// implementation must produce.
type NormalizedForecast struct {
	Current CurrentConditions
	Hours   []HourlyForecast
}

// CurrentConditions mirrors types.CurrentConditions at the provider
// boundary; the resilient service converts between the two so providers
// don't need to import internal/types.
type CurrentConditions struct {
	TemperatureF        *float64
	DewPointF           *float64
	HumidityPct         *float64
	WindMPH             *float64
	Condition           string
	PrecipitationActive *bool
}

// HourlyForecast is one normalized forward-looking hour from a provider.
type HourlyForecast struct {
	Time                     time.Time
	TemperatureF             float64
	PrecipitationIntensity   float64
	PrecipitationProbability float64
	PrecipitationType        string
	Condition                string
	WindMPH                  float64
	FeelsLikeF               float64
}

// Provider is the required external collaborator: something that can fetch
// a normalized forecast for a location over some forward horizon.
type Provider interface {
	Fetch(ctx context.Context, loc Location, horizonHours int) (NormalizedForecast, error)
	Name() string
}
