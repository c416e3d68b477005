package weather

import (
	"errors"
	"os"
	"time"

	"github.com/chrissnell/plugscheduler/internal/persist"
	"github.com/chrissnell/plugscheduler/internal/types"
)

const cacheSchemaVersion = 1

// cacheFile is the on-disk shape of weather_cache.json (§6.3). Payload
// carries the normalized hours/current the evaluator needs; fields the
// evaluator doesn't need (provider's raw response) are never persisted.
type cacheFile struct {
	Version   int                    `json:"version"`
	FetchedAt time.Time              `json:"fetched_at"`
	Provider  string                 `json:"provider"`
	Payload   cachePayload           `json:"payload"`
}

type cachePayload struct {
	Current      types.CurrentConditions `json:"current"`
	Hours        []types.HourlyForecast  `json:"hours"`
	BlackIceRisk bool                    `json:"black_ice_risk"`
}

// CacheStore is C2: a durable record of the last good forecast, written
// atomically on every successful fetch and read once at startup.
type CacheStore struct {
	path string
}

// NewCacheStore returns a store backed by the given file path.
func NewCacheStore(path string) *CacheStore {
	return &CacheStore{path: path}
}

// Load reads the cache file. A missing file or a schema-version mismatch is
// reported as "absent" (ok=false), not an error.
func (c *CacheStore) Load() (snapshot types.WeatherSnapshot, ok bool, err error) {
	var f cacheFile
	if err := persist.ReadJSON(c.path, &f); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return types.WeatherSnapshot{}, false, nil
		}
		return types.WeatherSnapshot{}, false, err
	}
	if f.Version != cacheSchemaVersion {
		return types.WeatherSnapshot{}, false, nil
	}
	return types.WeatherSnapshot{
		FetchedAt:    f.FetchedAt,
		Provider:     f.Provider,
		Current:      f.Payload.Current,
		Hours:        f.Payload.Hours,
		BlackIceRisk: f.Payload.BlackIceRisk,
	}, true, nil
}

// Save atomically persists a freshly fetched snapshot.
func (c *CacheStore) Save(snapshot types.WeatherSnapshot) error {
	f := cacheFile{
		Version:   cacheSchemaVersion,
		FetchedAt: snapshot.FetchedAt,
		Provider:  snapshot.Provider,
		Payload: cachePayload{
			Current:      snapshot.Current,
			Hours:        snapshot.Hours,
			BlackIceRisk: snapshot.BlackIceRisk,
		},
	}
	return persist.WriteJSON(c.path, f)
}
