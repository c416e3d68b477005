// Package forecast implements C12: a forecast-summary formatter that hashes
// the next 24 hours of a WeatherSnapshot and emits a human-readable
// forecast_summary event only when the hash changes.
package forecast

import (
	"fmt"
	"hash/fnv"
	"strings"
	"time"

	"github.com/chrissnell/plugscheduler/internal/persist"
	"github.com/chrissnell/plugscheduler/internal/types"
)

const schemaVersion = 1
const summaryWindowHours = 24

type stateFile struct {
	Version     int       `json:"version"`
	LastHash    uint64    `json:"last_hash"`
	LastSummary string    `json:"last_summary"`
	LastUpdated time.Time `json:"last_updated"`
}

// Formatter is C12. It owns forecast_notification_state.json and decides
// whether the current forecast window has materially changed since the
// last emission.
type Formatter struct {
	path     string
	lastHash uint64
	loaded   bool
}

// NewFormatter loads any prior hash state from path (starting fresh if
// absent or malformed).
func NewFormatter(path string) *Formatter {
	f := &Formatter{path: path}
	var sf stateFile
	if err := persist.ReadJSON(path, &sf); err == nil && sf.Version == schemaVersion {
		f.lastHash = sf.LastHash
		f.loaded = true
	}
	return f
}

// MaybeSummarize hashes the next `summaryWindowHours` hours of snap and, if
// the hash differs from the last persisted one, returns a human-readable
// summary and true. Otherwise returns ("", false). Either way the new hash
// is persisted.
func (f *Formatter) MaybeSummarize(snap types.WeatherSnapshot, now time.Time) (string, bool, error) {
	window := snap.Hours
	if len(window) > summaryWindowHours {
		window = window[:summaryWindowHours]
	}

	hash := hashWindow(window)
	changed := hash != f.lastHash || !f.loaded

	var summary string
	if changed {
		summary = renderSummary(window)
	}

	f.lastHash = hash
	f.loaded = true

	err := persist.WriteJSON(f.path, stateFile{
		Version:     schemaVersion,
		LastHash:    hash,
		LastSummary: summary,
		LastUpdated: now,
	})
	return summary, changed, err
}

// hashWindow computes an FNV-1a hash over a canonical, rounded encoding of
// the forecast window so float noise between fetches doesn't churn the
// hash on every poll.
func hashWindow(hours []types.HourlyForecast) uint64 {
	h := fnv.New64a()
	for _, hr := range hours {
		fmt.Fprintf(h, "%d|%.0f|%.2f|%.2f|%s|%s\n",
			hr.Time.Unix(),
			hr.TemperatureF,
			hr.PrecipitationProbability,
			hr.PrecipitationIntensity,
			hr.PrecipitationType,
			hr.Condition,
		)
	}
	return h.Sum64()
}

func renderSummary(hours []types.HourlyForecast) string {
	if len(hours) == 0 {
		return "no forecast data available"
	}
	var b strings.Builder
	fmt.Fprintf(&b, "forecast for the next %d hours: ", len(hours))
	minTemp, maxTemp := hours[0].TemperatureF, hours[0].TemperatureF
	var rainHours int
	for _, hr := range hours {
		if hr.TemperatureF < minTemp {
			minTemp = hr.TemperatureF
		}
		if hr.TemperatureF > maxTemp {
			maxTemp = hr.TemperatureF
		}
		if hr.PrecipitationProbability >= 0.5 {
			rainHours++
		}
	}
	fmt.Fprintf(&b, "%.0f-%.0fF, %s", minTemp, maxTemp, hours[0].Condition)
	if rainHours > 0 {
		fmt.Fprintf(&b, ", precipitation likely in %d of the next %d hours", rainHours, len(hours))
	}
	return b.String()
}
