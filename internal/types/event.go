package types

import "time"

// EventType is the authoritative, closed set of notification identifiers.
type EventType string

const (
	EventDeviceLost               EventType = "device_lost"
	EventDeviceFound              EventType = "device_found"
	EventDeviceChanged            EventType = "device_changed"
	EventDeviceIPChanged          EventType = "device_ip_changed"
	EventConnectivityLost         EventType = "connectivity_lost"
	EventConnectivityRestored     EventType = "connectivity_restored"
	EventWeatherModeEnabled       EventType = "weather_mode_enabled"
	EventWeatherModeDisabled      EventType = "weather_mode_disabled"
	EventWeatherServiceRecovered  EventType = "weather_service_recovered"
	EventWeatherServiceDegraded   EventType = "weather_service_degraded"
	EventWeatherServiceOffline    EventType = "weather_service_offline"
	EventWeatherServiceOutageAlert EventType = "weather_service_outage_alert"
	EventForecastSummary          EventType = "forecast_summary"
	EventSafetyMaxRuntime         EventType = "safety_max_runtime"
	EventManualOverrideApplied    EventType = "manual_override_applied"
	EventManualOverrideExpired    EventType = "manual_override_expired"
	EventStartupTest              EventType = "startup_test"
)

// NotificationEvent is the payload handed to the notification dispatcher and,
// after marshaling, to every sink.
type NotificationEvent struct {
	EventID    string                 `json:"event_id,omitempty"`
	EventType  EventType              `json:"event_type"`
	Message    string                 `json:"message"`
	OccurredAt time.Time              `json:"timestamp"`
	Details    map[string]interface{} `json:"details,omitempty"`
	Source     string                 `json:"source"`
}

// Category groups related event types for rate-limiting purposes. Only the
// weather_service_* family shares a "state_change" category per §4.9; every
// other event type gets its own implicit category (its own EventType value).
func (e EventType) Category() string {
	switch e {
	case EventWeatherServiceRecovered, EventWeatherServiceDegraded, EventWeatherServiceOffline, EventWeatherServiceOutageAlert:
		return "state_change"
	default:
		return string(e)
	}
}
