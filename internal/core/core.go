// Package core wires the twelve decision-core components into one runnable
// process: it owns startup, config reload, signal-driven shutdown, and the
// forecast-summary poller, following the teacher's internal/app wg.Wait
// shutdown shape (internal/app/app.go) generalized from its
// storage/weather-station/controller manager trio to this system's
// weather-service/scheduler-loop pair.
package core

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/chrissnell/plugscheduler/internal/devicecontrol"
	"github.com/chrissnell/plugscheduler/internal/forecast"
	"github.com/chrissnell/plugscheduler/internal/notify"
	"github.com/chrissnell/plugscheduler/internal/overrides"
	"github.com/chrissnell/plugscheduler/internal/runtimestate"
	"github.com/chrissnell/plugscheduler/internal/scheduler"
	"github.com/chrissnell/plugscheduler/internal/types"
	"github.com/chrissnell/plugscheduler/internal/weather"
	"github.com/chrissnell/plugscheduler/pkg/config"
)

// Paths is the set of JSON files the core persists to, per §6.3.
type Paths struct {
	RuntimeState       string
	ManualOverride     string
	AutomationOverride string
	WeatherCache       string
	ForecastState      string
}

// DefaultPaths roots every persisted file under dir.
func DefaultPaths(dir string) Paths {
	return Paths{
		RuntimeState:       dir + "/runtime_state.json",
		ManualOverride:     dir + "/manual_overrides.json",
		AutomationOverride: dir + "/automation_overrides.json",
		WeatherCache:       dir + "/weather_cache.json",
		ForecastState:      dir + "/forecast_notification_state.json",
	}
}

// configStore lets a config reload swap the active Snapshot without
// restarting the scheduler loop or weather service.
type configStore struct {
	mu   sync.RWMutex
	snap *config.Snapshot
}

func (c *configStore) Current() *config.Snapshot {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.snap
}

func (c *configStore) Set(snap *config.Snapshot) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.snap = snap
}

// Core owns every long-lived component and the goroutines driving them.
type Core struct {
	cfgPath string
	cfg     *configStore

	provider   weather.Provider
	controller devicecontrol.Controller
	logger     *zap.SugaredLogger

	weatherSvc *weather.Service
	dispatcher *notify.Dispatcher
	automation *overrides.AutomationStore
	manual     *overrides.ManualStore
	runtime    *runtimestate.Store
	forecastFmt *forecast.Formatter
	loop       *scheduler.Loop
}

// New loads cfgPath and constructs every component. provider and controller
// are the two required external collaborators (§6.1/§6.2); callers wire a
// weather.SyntheticProvider and a devicecontrol/memdevice.Controller for a
// local run, or their own implementations against real hardware/APIs.
func New(cfgPath string, paths Paths, provider weather.Provider, controller devicecontrol.Controller, logger *zap.SugaredLogger) (*Core, error) {
	snap, err := config.Load(cfgPath)
	if err != nil {
		return nil, err
	}

	c := &Core{
		cfgPath:    cfgPath,
		cfg:        &configStore{snap: snap},
		provider:   provider,
		controller: controller,
		logger:     logger,
	}

	if err := c.build(snap, paths); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *Core) build(snap *config.Snapshot, paths Paths) error {
	routing := make(notify.RoutingTable, len(snap.Notifications.Routing))
	for eventType, sinks := range snap.Notifications.Routing {
		routing[types.EventType(eventType)] = sinks
	}
	dispatcher := notify.NewDispatcher(routing, c.logger)
	for _, sc := range snap.Notifications.Sinks {
		if !sc.Enabled {
			continue
		}
		switch sc.Type {
		case "webhook":
			dispatcher.Register(notify.NewWebhookSink(sc.Name, sc.WebhookURL, 0))
		case "email":
			dispatcher.Register(notify.NewEmailSink(sc.Name, notify.EmailConfig{
				Host: sc.SMTPHost, Port: sc.SMTPPort, Username: sc.Username,
				Password: sc.Password, From: sc.From, To: sc.To,
			}))
		default:
			c.logger.Warnw("unknown notification sink type, skipping", "sink", sc.Name, "type", sc.Type)
		}
	}

	cacheStore := weather.NewCacheStore(paths.WeatherCache)
	thresholds := weather.BlackIceThresholds{
		Disabled:           snap.Thresholds.BlackIceDetection.Disabled,
		TemperatureMaxF:    snap.Thresholds.BlackIceDetection.TemperatureMaxF,
		DewPointSpreadMaxF: snap.Thresholds.BlackIceDetection.DewPointSpreadMaxF,
		HumidityMinPct:     snap.Thresholds.BlackIceDetection.HumidityMinPct,
	}
	policy := weather.ResiliencePolicy{
		RefreshInterval:  time.Duration(snap.WeatherAPI.Resilience.RefreshIntervalMinutes) * time.Minute,
		RetryInterval:    time.Duration(snap.WeatherAPI.Resilience.RetryIntervalMinutes) * time.Minute,
		MaxRetryInterval: time.Duration(snap.WeatherAPI.Resilience.MaxRetryIntervalMinutes) * time.Minute,
		CacheValidHours:  snap.WeatherAPI.Resilience.CacheValidHours,
	}
	horizon := snap.WeatherAPI.HorizonHours
	if horizon <= 0 {
		horizon = 48
	}
	loc := weather.Location{Latitude: snap.Location.Latitude, Longitude: snap.Location.Longitude}

	weatherSvc := weather.NewService(c.provider, cacheStore, loc, horizon, thresholds, policy, c.logger, func(ev types.NotificationEvent) {
		dispatcher.Dispatch(context.Background(), ev)
	})

	automationStore, malformedAutomation, err := overrides.NewAutomationStore(paths.AutomationOverride)
	if err != nil {
		return fmt.Errorf("automation override store: %w", err)
	}
	if malformedAutomation {
		c.logger.Warnw("automation override file malformed, starting empty", "path", paths.AutomationOverride)
	}

	manualStore, malformedManual, err := overrides.NewManualStore(paths.ManualOverride)
	if err != nil {
		return fmt.Errorf("manual override store: %w", err)
	}
	if malformedManual {
		c.logger.Warnw("manual override file malformed, starting empty", "path", paths.ManualOverride)
	}

	runtimeStore, err := runtimestate.Load(paths.RuntimeState)
	if err != nil {
		return fmt.Errorf("runtime state store: %w", err)
	}

	c.dispatcher = dispatcher
	c.weatherSvc = weatherSvc
	c.automation = automationStore
	c.manual = manualStore
	c.runtime = runtimeStore
	c.forecastFmt = forecast.NewFormatter(paths.ForecastState)
	c.loop = scheduler.New(c.cfg.Current, weatherSvc, manualStore, automationStore, runtimeStore, dispatcher, c.controller, c.logger)
	return nil
}

// ReloadConfiguration reloads cfgPath and, if valid, swaps the active
// Snapshot in place; the scheduler loop picks it up on its next tick without
// restarting. The weather service, notification sinks and forecast poller
// keep the settings they were built with at startup.
func (c *Core) ReloadConfiguration() error {
	snap, err := config.Load(c.cfgPath)
	if err != nil {
		c.logger.Errorw("config reload failed, keeping previous configuration", "error", err)
		return err
	}
	c.cfg.Set(snap)
	c.logger.Info("configuration reloaded")
	return nil
}

// Run starts the weather service, scheduler loop, and forecast poller, and
// blocks until ctx is cancelled or a SIGINT/SIGTERM arrives, then waits for
// every goroutine to return.
func (c *Core) Run(ctx context.Context) error {
	snap := c.cfg.Current()
	results := c.dispatcher.ValidateAll(ctx, snap.Notifications.Required)
	for _, r := range results {
		if r.Err != nil && snap.Notifications.Required {
			return fmt.Errorf("notification sink %q failed required validation: %w", r.SinkName, r.Err)
		}
	}
	if snap.Notifications.TestOnStartup {
		c.dispatcher.Dispatch(ctx, types.NotificationEvent{
			EventType:  types.EventStartupTest,
			Message:    "plugscheduler started",
			OccurredAt: time.Now(),
			Source:     "core",
		})
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		c.weatherSvc.Run(ctx)
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		c.loop.Run(ctx)
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		c.runForecastPoller(ctx)
	}()

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-sigs:
		c.logger.Info("shutdown signal received, initiating graceful shutdown...")
	case <-ctx.Done():
		c.logger.Info("context cancelled, shutting down...")
	}

	cancel()
	wg.Wait()
	c.logger.Info("shutdown complete")
	return nil
}

// runForecastPoller checks the latest weather snapshot once per tick
// interval and dispatches forecast_summary when the hashed window changes.
func (c *Core) runForecastPoller(ctx context.Context) {
	interval := c.cfg.Current().CheckInterval
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			now := time.Now()
			snap, err := c.weatherSvc.SnapshotForNow(now)
			if err != nil {
				continue
			}
			summary, changed, err := c.forecastFmt.MaybeSummarize(snap, now)
			if err != nil {
				c.logger.Warnw("failed to persist forecast summary state", "error", err)
			}
			if changed {
				c.dispatcher.Dispatch(ctx, types.NotificationEvent{
					EventType:  types.EventForecastSummary,
					Message:    summary,
					OccurredAt: now,
					Source:     "forecast",
				})
			}
		}
	}
}
