package weather

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/chrissnell/plugscheduler/internal/apperrors"
	"github.com/chrissnell/plugscheduler/internal/notify"
	"github.com/chrissnell/plugscheduler/internal/types"
)

// BlackIceThresholds configures the black-ice-risk heuristic evaluated on
// every fetched snapshot (§4.6): risk is true when temperature is at or
// below T_max AND the dew-point spread is at or below the configured
// spread AND humidity is at or above the minimum.
type BlackIceThresholds struct {
	Disabled           bool
	TemperatureMaxF    float64
	DewPointSpreadMaxF float64
	HumidityMinPct     float64
}

// DefaultBlackIceThresholds returns the spec's documented defaults.
func DefaultBlackIceThresholds() BlackIceThresholds {
	return BlackIceThresholds{TemperatureMaxF: 36, DewPointSpreadMaxF: 4, HumidityMinPct: 80}
}

func (t BlackIceThresholds) evaluate(c CurrentConditions) bool {
	if t.Disabled {
		return false
	}
	if c.TemperatureF == nil || c.DewPointF == nil || c.HumidityPct == nil {
		return false
	}
	return *c.TemperatureF <= t.TemperatureMaxF &&
		(*c.TemperatureF-*c.DewPointF) <= t.DewPointSpreadMaxF &&
		*c.HumidityPct >= t.HumidityMinPct
}

// ResiliencePolicy is the C3 polling/backoff configuration (§4.3).
type ResiliencePolicy struct {
	RefreshInterval    time.Duration
	RetryInterval      time.Duration
	MaxRetryInterval   time.Duration
	CacheValidHours    float64
}

// DefaultResiliencePolicy returns the spec's documented defaults.
func DefaultResiliencePolicy() ResiliencePolicy {
	return ResiliencePolicy{
		RefreshInterval:  10 * time.Minute,
		RetryInterval:    5 * time.Minute,
		MaxRetryInterval: 60 * time.Minute,
		CacheValidHours:  6,
	}
}

const rateLimitWindow = 15 * time.Minute
const offlineThresholdHours = 12

// Service is C3: it wraps a Provider, owns the ONLINE/DEGRADED/OFFLINE state
// machine, and exposes the latest snapshot to the evaluator. The snapshot
// pointer is swapped atomically under mu; readers always see a consistent
// value.
type Service struct {
	provider   Provider
	cacheStore *CacheStore
	loc        Location
	horizon    int
	thresholds BlackIceThresholds
	policy     ResiliencePolicy
	logger     *zap.SugaredLogger
	now        func() time.Time

	mu               sync.RWMutex
	snapshot         *types.WeatherSnapshot
	state            types.WeatherState
	stateObservedOnce bool
	offlineSince     *time.Time
	outageAlertSent  bool
	currentRetry     time.Duration

	gate    *notify.CoalescingGate
	onEvent func(types.NotificationEvent)
}

// NewService constructs a Service. onEvent is called (outside any lock) for
// every state-change / outage-alert event the gate lets through.
func NewService(provider Provider, cacheStore *CacheStore, loc Location, horizon int, thresholds BlackIceThresholds, policy ResiliencePolicy, logger *zap.SugaredLogger, onEvent func(types.NotificationEvent)) *Service {
	s := &Service{
		provider:   provider,
		cacheStore: cacheStore,
		loc:        loc,
		horizon:    horizon,
		thresholds: thresholds,
		policy:     policy,
		logger:     logger,
		now:        time.Now,
		currentRetry: policy.RetryInterval,
		onEvent:    onEvent,
	}
	s.gate = notify.NewCoalescingGate(rateLimitWindow, func(v interface{}) {
		if s.onEvent != nil {
			if ev, ok := v.(types.NotificationEvent); ok {
				s.onEvent(ev)
			}
		}
	})

	if cached, ok, err := cacheStore.Load(); err == nil && ok {
		s.snapshot = &cached
	} else if err != nil && s.logger != nil {
		s.logger.Warnw("failed to load weather cache at startup", "error", err)
	}

	return s
}

// Run drives the polling loop until ctx is cancelled: fetch, handle the
// result, then sleep for the success interval or the current backoff.
func (s *Service) Run(ctx context.Context) {
	for {
		forecast, err := s.provider.Fetch(ctx, s.loc, s.horizon)
		s.handleFetchResult(err == nil, forecast, err, s.now())

		sleep := s.policy.RefreshInterval
		if err != nil {
			s.mu.RLock()
			sleep = s.currentRetry
			s.mu.RUnlock()
		}

		select {
		case <-ctx.Done():
			return
		case <-time.After(sleep):
		}
	}
}

// handleFetchResult applies one fetch outcome to the state machine. It is
// factored out of Run so tests can drive the state machine deterministically
// without a real ticker.
func (s *Service) handleFetchResult(success bool, forecast NormalizedForecast, fetchErr error, now time.Time) {
	s.mu.Lock()

	previousState := s.state

	if success {
		snap := s.buildSnapshot(forecast, now)
		s.snapshot = &snap
		if err := s.cacheStore.Save(snap); err != nil && s.logger != nil {
			s.logger.Warnw("failed to persist weather cache", "error", err)
		}
		s.currentRetry = s.policy.RetryInterval
		s.state = types.WeatherOnline
		s.offlineSince = nil
		s.outageAlertSent = false
	} else {
		if s.logger != nil {
			s.logger.Warnw("weather fetch failed", "error", fetchErr)
		}
		age := time.Duration(0)
		hasCache := s.snapshot != nil
		if hasCache {
			age = now.Sub(s.snapshot.FetchedAt)
		}
		switch {
		case hasCache && age.Hours() <= s.policy.CacheValidHours:
			s.state = types.WeatherDegradedUsingCache
		default:
			s.state = types.WeatherOfflineNoData
			if s.offlineSince == nil {
				t := now
				s.offlineSince = &t
			}
		}
		if s.currentRetry*2 <= s.policy.MaxRetryInterval {
			s.currentRetry *= 2
		} else {
			s.currentRetry = s.policy.MaxRetryInterval
		}
	}

	newState := s.state
	firstObservation := !s.stateObservedOnce
	s.stateObservedOnce = true

	var outageAlert bool
	if s.state == types.WeatherOfflineNoData && s.offlineSince != nil && !s.outageAlertSent {
		if now.Sub(*s.offlineSince).Hours() > 2*s.policy.CacheValidHours {
			outageAlert = true
			s.outageAlertSent = true
		}
	}

	s.mu.Unlock()

	if firstObservation {
		return // initial-startup suppression: never emit for the first observed state
	}
	if outageAlert {
		s.gate.Observe(types.NotificationEvent{
			EventType:  types.EventWeatherServiceOutageAlert,
			Message:    "weather service has been offline for an extended period",
			OccurredAt: now,
			Source:     "weather_service",
		})
		return
	}
	if newState == previousState {
		return
	}
	s.gate.Observe(stateChangeEvent(newState, now))
}

func stateChangeEvent(state types.WeatherState, now time.Time) types.NotificationEvent {
	var evt types.EventType
	var msg string
	switch state {
	case types.WeatherOnline:
		evt, msg = types.EventWeatherServiceRecovered, "weather service recovered"
	case types.WeatherDegradedUsingCache:
		evt, msg = types.EventWeatherServiceDegraded, "weather service degraded, using cached data"
	case types.WeatherOfflineNoData:
		evt, msg = types.EventWeatherServiceOffline, "weather service offline, no usable data"
	}
	return types.NotificationEvent{EventType: evt, Message: msg, OccurredAt: now, Source: "weather_service"}
}

func (s *Service) buildSnapshot(forecast NormalizedForecast, now time.Time) types.WeatherSnapshot {
	current := types.CurrentConditions{
		TemperatureF:        forecast.Current.TemperatureF,
		DewPointF:           forecast.Current.DewPointF,
		HumidityPct:         forecast.Current.HumidityPct,
		PrecipitationActive: forecast.Current.PrecipitationActive,
		WindMPH:             forecast.Current.WindMPH,
		Condition:           forecast.Current.Condition,
	}
	hours := make([]types.HourlyForecast, len(forecast.Hours))
	for i, h := range forecast.Hours {
		hours[i] = types.HourlyForecast{
			Time:                     h.Time,
			TemperatureF:             h.TemperatureF,
			PrecipitationIntensity:   h.PrecipitationIntensity,
			PrecipitationProbability: h.PrecipitationProbability,
			PrecipitationType:        h.PrecipitationType,
			Condition:                h.Condition,
			WindMPH:                  h.WindMPH,
			FeelsLikeF:               h.FeelsLikeF,
		}
	}
	return types.WeatherSnapshot{
		FetchedAt:    now,
		Provider:     s.provider.Name(),
		State:        types.WeatherOnline,
		Current:      current,
		Hours:        hours,
		BlackIceRisk: s.thresholds.evaluate(forecast.Current),
	}
}

// SnapshotForNow returns the evaluator-facing snapshot with freshness fields
// derived relative to "now". It returns apperrors.ErrWeatherUnavailable when
// the cache is empty and the fetch loop has never succeeded.
func (s *Service) SnapshotForNow(now time.Time) (types.WeatherSnapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.snapshot == nil {
		return types.WeatherSnapshot{}, apperrors.ErrWeatherUnavailable
	}
	snap := s.snapshot.WithAge(now, s.policy.CacheValidHours)
	snap.State = s.state
	return snap, nil
}

// State returns the current observed state without a snapshot.
func (s *Service) State() types.WeatherState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}
