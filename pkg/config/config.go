// Package config loads and validates the scheduler's YAML configuration
// into an immutable Snapshot, following the teacher's yaml.v2, tagged-struct
// loading style (pkg/config/provider_yaml.go) rather than a dict-of-dicts
// with per-leaf metadata.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v2"

	"github.com/chrissnell/plugscheduler/internal/apperrors"
	"github.com/chrissnell/plugscheduler/internal/types"
)

// LocationConfig is the scheduler's geographic + timezone anchor.
type LocationConfig struct {
	Latitude  float64 `yaml:"latitude"`
	Longitude float64 `yaml:"longitude"`
	Timezone  string  `yaml:"timezone"`
}

// SchedulerConfig tunes the C7 tick cadence.
type SchedulerConfig struct {
	CheckIntervalMinutes int `yaml:"check_interval_minutes"`
}

// SafetyConfig carries the default (group-overridable) runtime limits.
type SafetyConfig struct {
	MaxRuntimeHours int `yaml:"max_runtime_hours"`
	CooldownMinutes int `yaml:"cooldown_minutes"`
}

// BlackIceThresholdConfig configures C6/C3's black-ice-risk heuristic.
type BlackIceThresholdConfig struct {
	Disabled           bool    `yaml:"disabled,omitempty"`
	TemperatureMaxF    float64 `yaml:"temperature_max_f,omitempty"`
	DewPointSpreadMaxF float64 `yaml:"dew_point_spread_max_f,omitempty"`
	HumidityMinPct     float64 `yaml:"humidity_min_pct,omitempty"`
}

// ThresholdsConfig groups the condition-evaluation thresholds. The
// forecast-summary finer-grained fields are accepted but intentionally
// unused — reserved no-op config per the resolved open question on
// hash-based change detection.
type ThresholdsConfig struct {
	BlackIceDetection        BlackIceThresholdConfig `yaml:"black_ice_detection,omitempty"`
	ForecastChangeThresholds map[string]float64      `yaml:"forecast_change_thresholds,omitempty"`
}

// WeatherResilienceConfig is C3's polling/backoff policy.
type WeatherResilienceConfig struct {
	RefreshIntervalMinutes  int     `yaml:"refresh_interval_minutes,omitempty"`
	RetryIntervalMinutes    int     `yaml:"retry_interval_minutes,omitempty"`
	MaxRetryIntervalMinutes int     `yaml:"max_retry_interval_minutes,omitempty"`
	CacheValidHours         float64 `yaml:"cache_valid_hours,omitempty"`
}

// WeatherAPIConfig names the provider and its resilience policy.
type WeatherAPIConfig struct {
	Provider    string                  `yaml:"provider,omitempty"`
	APIKey      string                  `yaml:"api_key,omitempty"`
	HorizonHours int                    `yaml:"horizon_hours,omitempty"`
	Resilience  WeatherResilienceConfig `yaml:"resilience,omitempty"`
}

// SinkConfig is one notification sink's configuration.
type SinkConfig struct {
	Name    string `yaml:"name"`
	Type    string `yaml:"type"` // "webhook" | "email"
	Enabled bool   `yaml:"enabled"`

	WebhookURL string `yaml:"webhook_url,omitempty"`

	SMTPHost string   `yaml:"smtp_host,omitempty"`
	SMTPPort int      `yaml:"smtp_port,omitempty"`
	Username string   `yaml:"username,omitempty"`
	Password string   `yaml:"password,omitempty"`
	From     string   `yaml:"from,omitempty"`
	To       []string `yaml:"to,omitempty"`
}

// NotificationsConfig is the C9 setup block.
type NotificationsConfig struct {
	Sinks          []SinkConfig            `yaml:"sinks,omitempty"`
	Routing        map[string]map[string]bool `yaml:"routing,omitempty"`
	Required       bool                    `yaml:"required,omitempty"`
	TestOnStartup  bool                    `yaml:"test_on_startup,omitempty"`
}

// legacySchedule is the single-schedule shape a pre-migration config may
// still use, per the spec's resolved open question: migrate it into a
// synthetic normal-priority Schedule named "legacy" at load time.
type legacySchedule struct {
	OnTime  string `yaml:"on_time,omitempty"`
	OffTime string `yaml:"off_time,omitempty"`
}

// groupYAML is the on-disk shape of one group.
type groupYAML struct {
	Name            string              `yaml:"name"`
	Enabled         bool                `yaml:"enabled"`
	Devices         []types.Device      `yaml:"devices"`
	Schedules       []types.Schedule    `yaml:"schedules,omitempty"`
	Legacy          *legacySchedule     `yaml:"schedule,omitempty"`
	AutomationFlags map[string]bool     `yaml:"automation_flags,omitempty"`
	Safety          types.SafetyDefaults `yaml:"safety,omitempty"`
}

// document is the full on-disk YAML shape.
type document struct {
	Location      LocationConfig      `yaml:"location"`
	Groups        []groupYAML         `yaml:"groups"`
	Scheduler     SchedulerConfig     `yaml:"scheduler,omitempty"`
	Safety        SafetyConfig        `yaml:"safety,omitempty"`
	Thresholds    ThresholdsConfig    `yaml:"thresholds,omitempty"`
	WeatherAPI    WeatherAPIConfig    `yaml:"weather_api,omitempty"`
	Notifications NotificationsConfig `yaml:"notifications,omitempty"`
	VacationMode  bool                `yaml:"vacation_mode,omitempty"`
}

// Snapshot is C11: the immutable, validated configuration the rest of the
// system reads. A reload builds an entirely new Snapshot and swaps it in;
// nothing ever mutates one in place.
type Snapshot struct {
	Location      LocationConfig
	TZ            *time.Location
	Groups        []types.Group
	CheckInterval time.Duration
	Safety        SafetyConfig
	Thresholds    ThresholdsConfig
	WeatherAPI    WeatherAPIConfig
	Notifications NotificationsConfig
	VacationMode  bool
}

// Load reads, parses, migrates legacy schedules, and validates path,
// returning a ready-to-use Snapshot.
func Load(path string) (*Snapshot, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: reading %s: %v", apperrors.ErrConfigInvalid, path, err)
	}

	var doc document
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("%w: parsing %s: %v", apperrors.ErrConfigInvalid, path, err)
	}

	snap, errs := build(doc)
	if len(errs) > 0 {
		return nil, fmt.Errorf("%w: %s", apperrors.ErrConfigInvalid, joinErrors(errs))
	}
	return snap, nil
}

// build converts a parsed document into a Snapshot, applying defaults and
// the legacy-schedule migration, and collects a field-pathed error for every
// invariant it finds violated.
func build(doc document) (*Snapshot, []error) {
	snap := &Snapshot{
		Location:      doc.Location,
		Safety:        doc.Safety,
		Thresholds:    doc.Thresholds,
		WeatherAPI:    doc.WeatherAPI,
		Notifications: doc.Notifications,
		VacationMode:  doc.VacationMode,
	}

	checkInterval := doc.Scheduler.CheckIntervalMinutes
	if checkInterval <= 0 {
		checkInterval = 10
	}
	snap.CheckInterval = time.Duration(checkInterval) * time.Minute

	applyResilienceDefaults(&snap.WeatherAPI.Resilience)
	applyBlackIceDefaults(&snap.Thresholds.BlackIceDetection)
	if snap.Safety.MaxRuntimeHours <= 0 {
		snap.Safety.MaxRuntimeHours = 24
	}
	if snap.Safety.CooldownMinutes <= 0 {
		snap.Safety.CooldownMinutes = 30
	}

	tz, err := time.LoadLocation(doc.Location.Timezone)
	var errs []error
	if err != nil {
		errs = append(errs, fmt.Errorf("location.timezone: %w", err))
	}
	snap.TZ = tz

	for _, g := range doc.Groups {
		group := types.Group{
			Name:            g.Name,
			Enabled:         g.Enabled,
			Devices:         g.Devices,
			AutomationFlags: g.AutomationFlags,
			Safety:          g.Safety,
		}

		schedules := g.Schedules
		if g.Legacy != nil {
			schedules = append(schedules, migrateLegacySchedule(*g.Legacy))
		}
		if len(schedules) == 0 {
			errs = append(errs, fmt.Errorf("group %q: must declare at least one schedule", g.Name))
		}

		for i := range schedules {
			if err := schedules[i].Normalize(); err != nil {
				errs = append(errs, fmt.Errorf("group %q: %w", g.Name, err))
			}
		}
		group.Schedules = schedules
		snap.Groups = append(snap.Groups, group)
	}

	if snap.Location.Latitude == 0 && snap.Location.Longitude == 0 {
		errs = append(errs, fmt.Errorf("location: latitude/longitude are required"))
	}
	if len(snap.Groups) == 0 {
		errs = append(errs, fmt.Errorf("groups: at least one group is required"))
	}

	return snap, errs
}

// migrateLegacySchedule turns a single on_time/off_time pair into a
// synthetic normal-priority, every-day clock schedule, per the spec's
// resolved migration note: a fresh implementation supports only the
// multi-schedule model, with legacy config migrated at load time.
func migrateLegacySchedule(l legacySchedule) types.Schedule {
	return types.Schedule{
		Name:        "legacy",
		Enabled:     true,
		PriorityRaw: "normal",
		DaysRaw:     []int{1, 2, 3, 4, 5, 6, 7},
		On:          types.Clock(l.OnTime),
		Off:         types.Clock(l.OffTime),
	}
}

func applyResilienceDefaults(r *WeatherResilienceConfig) {
	if r.RefreshIntervalMinutes <= 0 {
		r.RefreshIntervalMinutes = 10
	}
	if r.RetryIntervalMinutes <= 0 {
		r.RetryIntervalMinutes = 5
	}
	if r.MaxRetryIntervalMinutes <= 0 {
		r.MaxRetryIntervalMinutes = 60
	}
	if r.CacheValidHours <= 0 {
		r.CacheValidHours = 6
	}
}

func applyBlackIceDefaults(t *BlackIceThresholdConfig) {
	if t.TemperatureMaxF == 0 {
		t.TemperatureMaxF = 36
	}
	if t.DewPointSpreadMaxF == 0 {
		t.DewPointSpreadMaxF = 4
	}
	if t.HumidityMinPct == 0 {
		t.HumidityMinPct = 80
	}
}

func joinErrors(errs []error) string {
	s := ""
	for i, e := range errs {
		if i > 0 {
			s += "; "
		}
		s += e.Error()
	}
	return s
}
