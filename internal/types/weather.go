package types

import "time"

// WeatherState is the resilient weather service's observable state.
type WeatherState string

const (
	WeatherOnline                WeatherState = "online"
	WeatherDegradedUsingCache    WeatherState = "degraded_offline_using_cache"
	WeatherOfflineNoData         WeatherState = "offline_no_weather_data"
)

// CurrentConditions is the set of present-moment observations a schedule's
// conditions can be evaluated against. Every field is optional because a
// provider's current observation may be partial.
type CurrentConditions struct {
	TemperatureF        *float64 `json:"temperature_f,omitempty"`
	DewPointF           *float64 `json:"dew_point_f,omitempty"`
	HumidityPct         *float64 `json:"humidity_pct,omitempty"`
	PrecipitationActive *bool    `json:"precipitation_active,omitempty"`
	WindMPH             *float64 `json:"wind_mph,omitempty"`
	Condition           string   `json:"condition,omitempty"`
}

// HourlyForecast is one normalized forward-looking hour.
type HourlyForecast struct {
	Time                     time.Time `json:"time"`
	TemperatureF             float64   `json:"temperature_f"`
	PrecipitationIntensity   float64   `json:"precipitation_intensity"`
	PrecipitationProbability float64   `json:"precipitation_probability"`
	PrecipitationType        string    `json:"precipitation_type,omitempty"`
	Condition                string    `json:"condition,omitempty"`
	WindMPH                  float64   `json:"wind_mph"`
	FeelsLikeF               float64   `json:"feels_like_f"`
}

// WeatherSnapshot is the immutable value produced by the resilient weather
// service and consumed by the evaluator. Once emitted it is never mutated;
// a newer snapshot simply supersedes it.
type WeatherSnapshot struct {
	FetchedAt     time.Time          `json:"fetched_at"`
	Provider      string             `json:"provider"`
	State         WeatherState       `json:"state"`
	Age           time.Duration      `json:"-"`
	IsUsable      bool               `json:"-"`
	IsOffline     bool               `json:"-"`
	Current       CurrentConditions  `json:"current"`
	Hours         []HourlyForecast   `json:"hours,omitempty"`
	BlackIceRisk  bool               `json:"black_ice_risk"`
}

// WithAge returns a copy of the snapshot with Age/IsUsable/IsOffline derived
// relative to "now" and the supplied cache-valid horizon. The stored
// WeatherSnapshot itself is immutable; callers derive freshness at read time
// since "age" depends on when it is observed, not when it was produced.
func (w WeatherSnapshot) WithAge(now time.Time, cacheValidHours float64) WeatherSnapshot {
	out := w
	out.Age = now.Sub(w.FetchedAt)
	out.IsUsable = out.Age.Hours() <= cacheValidHours
	out.IsOffline = out.Age.Hours() > 12
	return out
}
