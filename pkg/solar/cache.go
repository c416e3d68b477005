package solar

import (
	"fmt"
	"math"
	"sync"
	"time"
)

// Event identifies sunrise or sunset.
type Event int

const (
	Sunrise Event = iota
	Sunset
)

type cacheKey struct {
	date string
	lat  float64
	lon  float64
	tz   string
}

type cacheEntry struct {
	sunriseUTCMinutes int
	sunsetUTCMinutes  int
}

// Calculator memoizes sunrise/sunset calculations per (date, location, timezone)
// so a scheduler tick interval doesn't recompute the same astronomy dozens of
// times a day. Entries are keyed by calendar date, so a stale entry is simply
// never looked up again once the date rolls over; Prune reclaims that memory.
type Calculator struct {
	mu    sync.Mutex
	cache map[cacheKey]cacheEntry
}

// NewCalculator returns a ready-to-use Calculator.
func NewCalculator() *Calculator {
	return &Calculator{cache: make(map[cacheKey]cacheEntry)}
}

// Resolve returns the UTC instant of the given event (sunrise or sunset) for
// the calendar date identified by "at" in the supplied location, at the given
// latitude/longitude. Coordinates are rounded to 4 decimal places (~11m) for
// cache keying, matching the day-scale precision sunrise/sunset needs.
//
// Returns an error if the location experiences polar day/night on that date
// (the sun never rises or never sets); callers must decide a fallback.
func (c *Calculator) Resolve(event Event, at time.Time, latitude, longitude float64, loc *time.Location) (time.Time, error) {
	local := at.In(loc)
	key := cacheKey{
		date: local.Format("2006-01-02"),
		lat:  roundTo(latitude, 4),
		lon:  roundTo(longitude, 4),
		tz:   loc.String(),
	}

	c.mu.Lock()
	entry, ok := c.cache[key]
	if !ok {
		sunrise, sunset, err := CalculateSunriseSunset(local.YearDay(), latitude, longitude)
		if err != nil {
			c.mu.Unlock()
			return time.Time{}, err
		}
		entry = cacheEntry{sunriseUTCMinutes: sunrise, sunsetUTCMinutes: sunset}
		c.cache[key] = entry
	}
	c.mu.Unlock()

	minutes := entry.sunriseUTCMinutes
	if event == Sunset {
		minutes = entry.sunsetUTCMinutes
	}
	if minutes < 0 {
		return time.Time{}, fmt.Errorf("solar: no %s at lat=%.4f lon=%.4f on %s (polar conditions)", eventName(event), latitude, longitude, key.date)
	}

	midnightUTC := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, time.UTC)
	return midnightUTC.Add(time.Duration(minutes) * time.Minute), nil
}

// Prune discards cached entries whose date no longer matches "today" in their
// own recorded timezone, bounding memory for a long-running process.
func (c *Calculator) Prune(now time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for key := range c.cache {
		loc, err := time.LoadLocation(key.tz)
		if err != nil {
			continue
		}
		if now.In(loc).Format("2006-01-02") != key.date {
			delete(c.cache, key)
		}
	}
}

func eventName(e Event) string {
	if e == Sunset {
		return "sunset"
	}
	return "sunrise"
}

func roundTo(v float64, decimals int) float64 {
	scale := math.Pow(10, float64(decimals))
	return math.Round(v*scale) / scale
}
